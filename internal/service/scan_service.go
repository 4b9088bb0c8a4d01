package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gearlogapp/gearlog/internal/auth"
	"github.com/gearlogapp/gearlog/internal/domain"
	"github.com/gearlogapp/gearlog/internal/imaging"
	"github.com/gearlogapp/gearlog/internal/photostore"
	"github.com/gearlogapp/gearlog/internal/scan"
	"github.com/gearlogapp/gearlog/internal/store"
	"github.com/gearlogapp/gearlog/internal/vision"
)

// unitRepository is the subset of store.UnitStore that ScanService requires.
type unitRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.EquipmentUnit, error)
	GetByCode(ctx context.Context, code string) (*domain.EquipmentUnit, error)
}

// transactionRepository is the subset of store.TransactionStore that
// ScanService requires.
type transactionRepository interface {
	Commit(ctx context.Context, p store.CommitParams) (*domain.Transaction, error)
}

// SessionState is where a scan session currently is in its
// scanning → confirmed → submitted cycle.
type SessionState string

const (
	// StateScanning accepts the next unit scan.
	StateScanning SessionState = "scanning"
	// StateConfirmed holds a staged unit awaiting photo capture and submit.
	StateConfirmed SessionState = "confirmed"
	// StateSubmitted is the transient terminal state of a successful commit;
	// the session immediately resets to StateScanning for the next unit.
	StateSubmitted SessionState = "submitted"
)

// ScanService drives scan-to-commit cycles. Sessions are in-memory,
// per-user, per-studio, and serialize their own scans.
type ScanService struct {
	units    unitRepository
	txs      transactionRepository
	photos   photostore.PhotoStore
	analyzer vision.Analyzer // nil disables condition notes
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*ScanSession
}

func NewScanService(units unitRepository, txs transactionRepository, photos photostore.PhotoStore, analyzer vision.Analyzer, logger *slog.Logger) *ScanService {
	return &ScanService{
		units:    units,
		txs:      txs,
		photos:   photos,
		analyzer: analyzer,
		logger:   logger,
		sessions: make(map[string]*ScanSession),
	}
}

// ScanSession is one user's scan-to-commit flow for a fixed mode. The seen
// set is the session's staging "cart": it de-duplicates scans for the life of
// the session even though only one unit is committed per cycle.
type ScanSession struct {
	ID        string
	Mode      domain.TransactionType
	Auth      auth.Context
	CreatedAt time.Time

	svc *ScanService

	mu         sync.Mutex
	state      SessionState
	processing bool
	staged     *domain.EquipmentUnit
	seen       map[int64]struct{}
}

// StartSession opens a scan session bound to the given auth context.
func (s *ScanService) StartSession(authCtx auth.Context, mode domain.TransactionType) (*ScanSession, error) {
	if mode != domain.TransactionCheckout && mode != domain.TransactionCheckin {
		return nil, fmt.Errorf("unknown scan mode %q", mode)
	}

	sess := &ScanSession{
		ID:        uuid.NewString(),
		Mode:      mode,
		Auth:      authCtx,
		CreatedAt: time.Now(),
		svc:       s,
		state:     StateScanning,
		seen:      make(map[int64]struct{}),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("scan session started",
		"session_id", sess.ID, "mode", mode, "studio_id", authCtx.StudioID, "user_id", authCtx.UserID)
	return sess, nil
}

// Session returns a live session. Sessions are private to the user and
// studio that opened them; anything else reports not found.
func (s *ScanService) Session(id string, authCtx auth.Context) (*ScanSession, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok || sess.Auth.UserID != authCtx.UserID || sess.Auth.StudioID != authCtx.StudioID {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// EndSession cancels and discards a session.
func (s *ScanService) EndSession(id string, authCtx auth.Context) error {
	sess, err := s.Session(id, authCtx)
	if err != nil {
		return err
	}
	if err := sess.Cancel(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// ResolveCode maps raw scanner input to a unit. Structured payloads are
// tried first; anything that does not decode is treated as a literal unit
// code. Resolution is read-only and safe to repeat.
func (s *ScanService) ResolveCode(ctx context.Context, raw string) (*domain.EquipmentUnit, error) {
	if p, ok := scan.Decode(raw); ok {
		unit, err := s.units.GetByID(ctx, p.Item)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			return nil, domain.ErrUnitNotFound
		}
		return unit, nil
	}

	if scan.LooksStructured(raw) {
		// Preserved behavior: malformed structured payloads fall back to a
		// literal code lookup, but the fallback is observable.
		s.logger.Debug("structured scan payload did not decode, treating as literal code", "payload_len", len(raw))
	}

	unit, err := s.units.GetByCode(ctx, strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrUnitNotFound
	}
	return unit, nil
}

// begin marks the session as processing if it is in the expected state,
// serializing scans and commits against each other.
func (sess *ScanSession) begin(expect SessionState) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.processing || sess.state != expect {
		return domain.ErrSessionBusy
	}
	sess.processing = true
	return nil
}

func (sess *ScanSession) finish() {
	sess.mu.Lock()
	sess.processing = false
	sess.mu.Unlock()
}

// Scan resolves raw scanner input and stages the unit for commit. Validation
// failures leave the session in scanning so the user can immediately rescan.
// A scan arriving while a previous one is processing, or while a unit is
// already staged, is rejected with ErrSessionBusy.
func (sess *ScanSession) Scan(ctx context.Context, raw string) (*domain.EquipmentUnit, error) {
	if err := sess.begin(StateScanning); err != nil {
		return nil, err
	}
	defer sess.finish()

	unit, err := sess.svc.ResolveCode(ctx, raw)
	if err != nil {
		return nil, err
	}
	if err := sess.validate(unit); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.staged = unit
	sess.state = StateConfirmed
	sess.mu.Unlock()

	return unit, nil
}

// validate checks a resolved unit against the session, in order: studio
// match, duplicate-in-session, status legality for the session mode.
func (sess *ScanSession) validate(unit *domain.EquipmentUnit) error {
	if unit.StudioID != sess.Auth.StudioID {
		return domain.ErrWrongStudio
	}

	sess.mu.Lock()
	_, dup := sess.seen[unit.ID]
	sess.mu.Unlock()
	if dup {
		return domain.ErrAlreadyStaged
	}

	switch sess.Mode {
	case domain.TransactionCheckout:
		if unit.Status != domain.UnitAvailable {
			return domain.ErrNotAvailable
		}
	case domain.TransactionCheckin:
		if unit.Status == domain.UnitAvailable {
			return domain.ErrNotCheckedOut
		}
	}

	return nil
}

// CommitInput carries the optional condition photo and the client-generated
// idempotency key for one submit.
type CommitInput struct {
	Photo          []byte
	IdempotencyKey string
}

// Commit submits the staged unit: the optional condition photo is normalized
// and uploaded (with an optional condition note derived from it), then the
// transaction append, unit status flip, and availability adjustment happen
// atomically in the store. On success the session resets to scanning for the
// next unit. On failure the staged unit is kept so the user can retry the
// submit; an uploaded photo is deleted again so a retry starts clean.
func (sess *ScanSession) Commit(ctx context.Context, in CommitInput) (*domain.Transaction, error) {
	if err := sess.begin(StateConfirmed); err != nil {
		return nil, err
	}
	defer sess.finish()

	sess.mu.Lock()
	unit := sess.staged
	sess.mu.Unlock()
	if unit == nil {
		return nil, domain.ErrNothingStaged
	}

	var photoURL, note *string
	var storageKey string
	if len(in.Photo) > 0 {
		processed, err := imaging.Process(bytes.NewReader(in.Photo))
		if err != nil {
			return nil, fmt.Errorf("failed to process condition photo: %w", err)
		}

		storageKey, err = sess.svc.photos.Save(ctx, fmt.Sprintf("unit_%d", unit.ID), processed.MIME, bytes.NewReader(processed.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to upload condition photo: %w", err)
		}
		url := "/photos/" + storageKey
		photoURL = &url

		if sess.svc.analyzer != nil {
			report, err := sess.svc.analyzer.Assess(ctx, bytes.NewReader(processed.Data), processed.MIME)
			if err != nil {
				// Condition notes are best-effort; the commit proceeds without one.
				sess.svc.logger.Warn("condition analysis failed", "unit_id", unit.ID, "error", err)
			} else if report != nil {
				n := report.Note()
				note = &n
			}
		}
	}

	key := in.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	txn, err := sess.svc.txs.Commit(ctx, store.CommitParams{
		StudioID:       unit.StudioID,
		EquipmentID:    unit.EquipmentID,
		UnitID:         unit.ID,
		UserID:         sess.Auth.UserID,
		Type:           sess.Mode,
		PhotoURL:       photoURL,
		ConditionNote:  note,
		IdempotencyKey: key,
	})
	if err != nil {
		if storageKey != "" {
			if derr := sess.svc.photos.Delete(ctx, storageKey); derr != nil {
				sess.svc.logger.Error("failed to delete photo after commit failure", "storage_key", storageKey, "error", derr)
			}
		}
		return nil, err
	}

	sess.mu.Lock()
	sess.seen[unit.ID] = struct{}{}
	sess.staged = nil
	// Submitted is terminal per cycle; reset straight back to scanning so
	// the next unit can be scanned.
	sess.state = StateScanning
	sess.mu.Unlock()

	sess.svc.logger.Info("scan committed",
		"session_id", sess.ID, "transaction_id", txn.ID, "unit_id", unit.ID, "type", sess.Mode)
	return txn, nil
}

// Cancel abandons the staged unit, if any. Nothing has been written remotely
// at that point, so there is nothing to compensate.
func (sess *ScanSession) Cancel() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.processing {
		return domain.ErrSessionBusy
	}
	sess.staged = nil
	sess.state = StateScanning
	return nil
}

// State reports the session's current state.
func (sess *ScanSession) State() SessionState {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// Staged returns the unit awaiting commit, or nil.
func (sess *ScanSession) Staged() *domain.EquipmentUnit {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.staged
}
