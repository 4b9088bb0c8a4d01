package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gearlogapp/gearlog/internal/domain"
)

const defaultTransactionLimit = 100

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	limit := defaultTransactionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
		limit = n
	}

	txns, err := s.txs.ListByStudio(r.Context(), authCtx.StudioID, limit)
	if err != nil {
		s.logger.Error("list transactions failed", "studio_id", authCtx.StudioID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, toTransactionResponse(txn))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSetApproval records the downstream review of a checkout transaction.
func (s *Server) handleSetApproval(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid transaction id")
		return
	}

	var req struct {
		Status domain.ApprovalStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Status != domain.ApprovalApproved && req.Status != domain.ApprovalDenied {
		writeError(w, http.StatusBadRequest, "bad_request", "status must be approved or denied")
		return
	}

	txn, err := s.txs.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("get transaction failed", "transaction_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get transaction")
		return
	}
	if txn == nil || txn.StudioID != authCtx.StudioID {
		writeError(w, http.StatusNotFound, "transaction_not_found", "transaction not found")
		return
	}

	if err := s.txs.SetApproval(r.Context(), id, req.Status); err != nil {
		writeError(w, http.StatusConflict, "not_reviewable", err.Error())
		return
	}

	updated, err := s.txs.GetByID(r.Context(), id)
	if err != nil || updated == nil {
		s.logger.Error("reload transaction failed", "transaction_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to load transaction")
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}
