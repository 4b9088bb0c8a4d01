package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gearlogapp/gearlog/internal/domain"
	"github.com/gearlogapp/gearlog/internal/service"
)

// maxPhotoSize bounds an uploaded condition photo.
const maxPhotoSize = 20 * 1024 * 1024 // 20 MB

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	var req struct {
		Mode domain.TransactionType `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	sess, err := s.scans.StartSession(authCtx, req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

// handleScan resolves one scanner payload and stages the unit. Rejections
// (wrong studio, duplicate, illegal status) come back as 4xx with a
// machine-readable code; the session stays usable for an immediate rescan.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Payload) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "scan payload required")
		return
	}

	unit, err := sess.Scan(r.Context(), req.Payload)
	if err != nil {
		writeDomainError(w, err, http.StatusBadGateway, "remote_read_failure")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"unit":    toUnitResponse(unit),
		"session": toSessionResponse(sess),
	})
}

// handleCommit submits the staged unit. The body is either empty or a
// multipart form with an optional "photo" part; the idempotency key comes
// from the Idempotency-Key header. Commit-time storage failures are blocking
// (502); the client retries the submit manually with the same key.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	photo, ok := s.readPhoto(w, r)
	if !ok {
		return
	}

	txn, err := sess.Commit(r.Context(), service.CommitInput{
		Photo:          photo,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeDomainError(w, err, http.StatusBadGateway, "remote_write_failure")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionResponse(txn),
		"session":     toSessionResponse(sess),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	if err := s.scans.EndSession(r.PathValue("sessionID"), authCtx); err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// session authorizes the request and looks up its scan session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*service.ScanSession, bool) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return nil, false
	}

	sess, err := s.scans.Session(r.PathValue("sessionID"), authCtx)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return nil, false
	}
	return sess, true
}

// readPhoto extracts the optional condition photo from a multipart body.
// A non-multipart or empty body means no photo.
func (s *Server) readPhoto(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return nil, true
	}

	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "failed to parse form")
		return nil, false
	}

	file, _, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return nil, true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid photo upload")
		return nil, false
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			s.logger.Error("failed to close upload", "error", cerr)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read photo upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to read photo")
		return nil, false
	}
	return data, true
}
