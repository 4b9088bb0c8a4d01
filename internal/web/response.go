package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gearlogapp/gearlog/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// errorStatus maps the recoverable scan/commit failures to HTTP statuses and
// machine-readable codes. Unknown errors return (0, "").
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnitNotFound):
		return http.StatusNotFound, "unit_not_found"
	case errors.Is(err, domain.ErrEquipmentNotFound):
		return http.StatusNotFound, "equipment_not_found"
	case errors.Is(err, domain.ErrStudioNotFound):
		return http.StatusNotFound, "studio_not_found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrWrongStudio):
		return http.StatusConflict, "wrong_studio"
	case errors.Is(err, domain.ErrAlreadyStaged):
		return http.StatusConflict, "already_staged"
	case errors.Is(err, domain.ErrNotAvailable):
		return http.StatusConflict, "not_available"
	case errors.Is(err, domain.ErrNotCheckedOut):
		return http.StatusConflict, "not_checked_out"
	case errors.Is(err, domain.ErrNothingStaged):
		return http.StatusConflict, "nothing_staged"
	case errors.Is(err, domain.ErrQuantityConflict):
		return http.StatusConflict, "quantity_conflict"
	case errors.Is(err, domain.ErrSessionBusy):
		return http.StatusConflict, "session_busy"
	case errors.Is(err, domain.ErrNotMember):
		return http.StatusForbidden, "not_member"
	}
	return 0, ""
}

// writeDomainError writes a mapped error, or the fallback status for errors
// outside the recoverable taxonomy.
func writeDomainError(w http.ResponseWriter, err error, fallbackStatus int, fallbackCode string) {
	if status, code := errorStatus(err); status != 0 {
		writeError(w, status, code, err.Error())
		return
	}
	writeError(w, fallbackStatus, fallbackCode, "request failed")
}
