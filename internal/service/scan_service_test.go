package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearlogapp/gearlog/internal/auth"
	"github.com/gearlogapp/gearlog/internal/db"
	"github.com/gearlogapp/gearlog/internal/domain"
	"github.com/gearlogapp/gearlog/internal/scan"
	"github.com/gearlogapp/gearlog/internal/store"
	"github.com/gearlogapp/gearlog/internal/vision"
)

// memPhotoStore is an in-memory photostore.PhotoStore for tests.
type memPhotoStore struct {
	blobs map[string][]byte
	next  int
}

func newMemPhotoStore() *memPhotoStore {
	return &memPhotoStore{blobs: make(map[string][]byte)}
}

func (m *memPhotoStore) Save(_ context.Context, prefix, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.next++
	key := fmt.Sprintf("%s_%d.jpg", prefix, m.next)
	m.blobs[key] = data
	return key, nil
}

func (m *memPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, "", errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), "image/jpeg", nil
}

func (m *memPhotoStore) Delete(_ context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

// stubAnalyzer returns a fixed report, or an error.
type stubAnalyzer struct {
	report *vision.ConditionReport
	err    error
}

func (s *stubAnalyzer) Assess(context.Context, io.Reader, string) (*vision.ConditionReport, error) {
	return s.report, s.err
}

type scanFixture struct {
	svc    *ScanService
	db     *sql.DB
	photos *memPhotoStore
	txs    *store.TransactionStore
	units  *store.UnitStore
	auth   auth.Context
	eq     *domain.Equipment
	unit   []*domain.EquipmentUnit
}

// newScanFixture builds a service over a real database seeded with one studio
// and one equipment entry with the given unit codes.
func newScanFixture(t *testing.T, analyzer vision.Analyzer, codes ...string) *scanFixture {
	t.Helper()
	ctx := context.Background()

	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, d.Close()) })

	studio, err := store.NewStudioStore(d).Create(ctx, "Test Studio", "user-1")
	require.NoError(t, err)

	eq, err := store.NewEquipmentStore(d).CreateWithUnits(ctx, studio.ID, "Test Gear", "misc", nil, codes)
	require.NoError(t, err)

	units := store.NewUnitStore(d)
	seeded, err := units.ListByEquipment(ctx, eq.ID)
	require.NoError(t, err)
	require.Len(t, seeded, len(codes))

	photos := newMemPhotoStore()
	txs := store.NewTransactionStore(d)
	svc := NewScanService(units, txs, photos, analyzer, slog.Default())

	return &scanFixture{
		svc:    svc,
		db:     d,
		photos: photos,
		txs:    txs,
		units:  units,
		auth:   auth.Context{UserID: "user-1", Email: "user-1@example.com", StudioID: studio.ID},
		eq:     eq,
		unit:   seeded,
	}
}

func (f *scanFixture) payload(t *testing.T, unit *domain.EquipmentUnit) string {
	t.Helper()
	p, err := scan.Encode(unit.StudioID, unit.ID)
	require.NoError(t, err)
	return p
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestScanSessionCheckoutFlow(t *testing.T) {
	f := newScanFixture(t, nil, "GL-FLOW0001", "GL-FLOW0002", "GL-FLOW0003")
	ctx := context.Background()

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	assert.Equal(t, StateScanning, sess.State())

	unit, err := sess.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)
	assert.Equal(t, f.unit[0].ID, unit.ID)
	assert.Equal(t, StateConfirmed, sess.State())
	require.NotNil(t, sess.Staged())

	txn, err := sess.Commit(ctx, CommitInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionCheckout, txn.Type)
	assert.Nil(t, txn.PhotoURL)
	assert.NotEmpty(t, txn.IdempotencyKey)

	// The session resets for the next unit.
	assert.Equal(t, StateScanning, sess.State())
	assert.Nil(t, sess.Staged())

	got, err := store.NewEquipmentStore(f.db).GetByID(ctx, f.eq.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableQuantity)
	assert.Equal(t, 3, got.TotalQuantity)
}

func TestScanSessionCheckinFlow(t *testing.T) {
	f := newScanFixture(t, nil, "GL-CIN00001")
	ctx := context.Background()

	out, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	_, err = out.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)
	_, err = out.Commit(ctx, CommitInput{})
	require.NoError(t, err)

	in, err := f.svc.StartSession(f.auth, domain.TransactionCheckin)
	require.NoError(t, err)
	_, err = in.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)
	txn, err := in.Commit(ctx, CommitInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionCheckin, txn.Type)
	assert.Nil(t, txn.ApprovalStatus)

	unit, err := f.units.GetByID(ctx, f.unit[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitAvailable, unit.Status)
}

func TestStartSession_UnknownMode(t *testing.T) {
	f := newScanFixture(t, nil, "GL-MODE0001")

	_, err := f.svc.StartSession(f.auth, "borrow")
	assert.Error(t, err)
}

func TestResolveCode(t *testing.T) {
	f := newScanFixture(t, nil, "GL-RES00001")
	ctx := context.Background()

	// Structured payload.
	unit, err := f.svc.ResolveCode(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)
	assert.Equal(t, f.unit[0].ID, unit.ID)

	// Bare code, with scanner whitespace.
	unit, err = f.svc.ResolveCode(ctx, "  GL-RES00001\n")
	require.NoError(t, err)
	assert.Equal(t, f.unit[0].ID, unit.ID)

	// Malformed structured input falls back to a literal code lookup.
	_, err = f.svc.ResolveCode(ctx, `{"studio": 1, "item":`)
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)

	_, err = f.svc.ResolveCode(ctx, "GL-NOPE0000")
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)

	// Resolution is read-only: the unit is unchanged after repeated resolves.
	unit, err = f.units.GetByID(ctx, f.unit[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitAvailable, unit.Status)
}

func TestScan_WrongStudio(t *testing.T) {
	f := newScanFixture(t, nil, "GL-WS000001")
	ctx := context.Background()

	other, err := store.NewStudioStore(f.db).Create(ctx, "Other Studio", "user-2")
	require.NoError(t, err)
	otherEq, err := store.NewEquipmentStore(f.db).CreateWithUnits(ctx, other.ID, "Foreign Gear", "misc", nil, []string{"GL-FOREIGN1"})
	require.NoError(t, err)
	foreign, err := f.units.ListByEquipment(ctx, otherEq.ID)
	require.NoError(t, err)

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)

	_, err = sess.Scan(ctx, f.payload(t, foreign[0]))
	assert.ErrorIs(t, err, domain.ErrWrongStudio)

	// Rejected scans write nothing and leave the session scanning.
	assert.Equal(t, StateScanning, sess.State())
	txns, err := f.txs.ListByStudio(ctx, other.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestScan_StatusLegality(t *testing.T) {
	f := newScanFixture(t, nil, "GL-SL000001")
	ctx := context.Background()

	// Checking in an available unit is rejected before anything is staged.
	in, err := f.svc.StartSession(f.auth, domain.TransactionCheckin)
	require.NoError(t, err)
	_, err = in.Scan(ctx, f.payload(t, f.unit[0]))
	assert.ErrorIs(t, err, domain.ErrNotCheckedOut)
	assert.Equal(t, StateScanning, in.State())

	out, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	_, err = out.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)
	_, err = out.Commit(ctx, CommitInput{})
	require.NoError(t, err)

	// Checking out a checked-out unit is rejected in a fresh session too.
	out2, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	_, err = out2.Scan(ctx, f.payload(t, f.unit[0]))
	assert.ErrorIs(t, err, domain.ErrNotAvailable)
}

func TestScan_DuplicateInSession(t *testing.T) {
	f := newScanFixture(t, nil, "GL-DUP00001")
	ctx := context.Background()

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	_, err = sess.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)
	_, err = sess.Commit(ctx, CommitInput{})
	require.NoError(t, err)

	// The unit stays in the session's seen set after commit.
	_, err = sess.Scan(ctx, f.payload(t, f.unit[0]))
	assert.ErrorIs(t, err, domain.ErrAlreadyStaged)
}

func TestScan_WhileStaged(t *testing.T) {
	f := newScanFixture(t, nil, "GL-BUSY0001", "GL-BUSY0002")
	ctx := context.Background()

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	_, err = sess.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)

	// A second scan must wait for the staged unit to be committed or
	// cancelled.
	_, err = sess.Scan(ctx, f.payload(t, f.unit[1]))
	assert.ErrorIs(t, err, domain.ErrSessionBusy)
}

func TestCommit_NothingStaged(t *testing.T) {
	f := newScanFixture(t, nil, "GL-NS000001")

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)

	_, err = sess.Commit(context.Background(), CommitInput{})
	assert.ErrorIs(t, err, domain.ErrSessionBusy)
}

func TestCommit_WithPhotoAndNote(t *testing.T) {
	analyzer := &stubAnalyzer{report: &vision.ConditionReport{Condition: "good", Issues: "scratched lens cap"}}
	f := newScanFixture(t, analyzer, "GL-PH000001")
	ctx := context.Background()

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	_, err = sess.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)

	txn, err := sess.Commit(ctx, CommitInput{Photo: pngBytes(t), IdempotencyKey: "commit-key-1"})
	require.NoError(t, err)
	assert.Equal(t, "commit-key-1", txn.IdempotencyKey)
	require.NotNil(t, txn.PhotoURL)
	assert.Contains(t, *txn.PhotoURL, "/photos/")
	require.NotNil(t, txn.ConditionNote)
	assert.Equal(t, "good; scratched lens cap", *txn.ConditionNote)
	assert.Len(t, f.photos.blobs, 1)
}

func TestCommit_AnalyzerFailureNonBlocking(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("model unavailable")}
	f := newScanFixture(t, analyzer, "GL-AN000001")
	ctx := context.Background()

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	_, err = sess.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)

	txn, err := sess.Commit(ctx, CommitInput{Photo: pngBytes(t)})
	require.NoError(t, err)
	require.NotNil(t, txn.PhotoURL)
	assert.Nil(t, txn.ConditionNote)
}

func TestCommit_RejectsNonImagePhoto(t *testing.T) {
	f := newScanFixture(t, nil, "GL-BAD00001")
	ctx := context.Background()

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	_, err = sess.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)

	_, err = sess.Commit(ctx, CommitInput{Photo: []byte("not an image")})
	require.Error(t, err)

	// The staged unit survives for a retry without the photo.
	require.NotNil(t, sess.Staged())
	txn, err := sess.Commit(ctx, CommitInput{})
	require.NoError(t, err)
	assert.Nil(t, txn.PhotoURL)
}

func TestCommit_FailureKeepsStagedAndCleansPhoto(t *testing.T) {
	f := newScanFixture(t, nil, "GL-FAIL0001")
	ctx := context.Background()

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	_, err = sess.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)

	// Force the availability counter out of sync so the commit aborts.
	_, err = f.db.Exec(`UPDATE equipment SET available_quantity = 0 WHERE id = ?`, f.eq.ID)
	require.NoError(t, err)

	_, err = sess.Commit(ctx, CommitInput{Photo: pngBytes(t)})
	assert.ErrorIs(t, err, domain.ErrQuantityConflict)

	// The staged unit is kept for a retry and the uploaded photo is cleaned
	// up again.
	assert.Equal(t, StateConfirmed, sess.State())
	require.NotNil(t, sess.Staged())
	assert.Empty(t, f.photos.blobs)

	// After the counter is repaired the retry succeeds.
	_, err = f.db.Exec(`UPDATE equipment SET available_quantity = 1 WHERE id = ?`, f.eq.ID)
	require.NoError(t, err)
	_, err = sess.Commit(ctx, CommitInput{})
	require.NoError(t, err)
}

func TestCancel(t *testing.T) {
	f := newScanFixture(t, nil, "GL-CAN00001")
	ctx := context.Background()

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)
	_, err = sess.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)

	require.NoError(t, sess.Cancel())
	assert.Equal(t, StateScanning, sess.State())
	assert.Nil(t, sess.Staged())

	// A cancelled unit was never committed, so it can be rescanned.
	_, err = sess.Scan(ctx, f.payload(t, f.unit[0]))
	require.NoError(t, err)

	txns, err := f.txs.ListByStudio(ctx, f.auth.StudioID, 10)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestSessionOwnership(t *testing.T) {
	f := newScanFixture(t, nil, "GL-OWN00001")

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)

	otherUser := auth.Context{UserID: "user-2", StudioID: f.auth.StudioID}
	_, err = f.svc.Session(sess.ID, otherUser)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	otherStudio := auth.Context{UserID: f.auth.UserID, StudioID: f.auth.StudioID + 1}
	_, err = f.svc.Session(sess.ID, otherStudio)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	got, err := f.svc.Session(sess.ID, f.auth)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestEndSession(t *testing.T) {
	f := newScanFixture(t, nil, "GL-END00001")

	sess, err := f.svc.StartSession(f.auth, domain.TransactionCheckout)
	require.NoError(t, err)

	require.NoError(t, f.svc.EndSession(sess.ID, f.auth))

	_, err = f.svc.Session(sess.ID, f.auth)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, f.svc.EndSession(sess.ID, f.auth), domain.ErrSessionNotFound)
}
