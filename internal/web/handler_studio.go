package web

import (
	"encoding/json"
	"net/http"
	"strings"
)

const maxStudioNameLen = 200

func (s *Server) handleCreateStudio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxStudioNameLen {
		writeError(w, http.StatusBadRequest, "bad_request", "studio name required")
		return
	}

	claims := claimsFrom(r.Context())
	studio, err := s.studios.Create(r.Context(), name, claims.Subject)
	if err != nil {
		s.logger.Error("create studio failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create studio")
		return
	}

	writeJSON(w, http.StatusCreated, toStudioResponse(studio))
}

func (s *Server) handleListStudios(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	studios, err := s.studios.ListForUser(r.Context(), claims.Subject)
	if err != nil {
		s.logger.Error("list studios failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list studios")
		return
	}

	out := make([]studioResponse, 0, len(studios))
	for _, studio := range studios {
		out = append(out, toStudioResponse(studio))
	}
	writeJSON(w, http.StatusOK, out)
}
