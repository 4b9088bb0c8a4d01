package web

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	var req struct {
		Name     string  `json:"name"`
		Category string  `json:"category"`
		Quantity int     `json:"quantity"`
		PhotoURL *string `json:"photo_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	eq, units, err := s.equipment.CreateEquipment(r.Context(), authCtx, req.Name, req.Category, req.Quantity, req.PhotoURL)
	if err != nil {
		if status, code := errorStatus(err); status != 0 {
			writeError(w, status, code, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"equipment": toEquipmentResponse(eq),
		"units":     toUnitResponses(units),
	})
}

func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	list, err := s.equipment.ListEquipment(r.Context(), authCtx)
	if err != nil {
		s.logger.Error("list equipment failed", "studio_id", authCtx.StudioID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list equipment")
		return
	}

	out := make([]equipmentResponse, 0, len(list))
	for _, eq := range list {
		out = append(out, toEquipmentResponse(eq))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEquipment(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid equipment id")
		return
	}

	eq, units, err := s.equipment.GetEquipment(r.Context(), authCtx, id)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"equipment": toEquipmentResponse(eq),
		"units":     toUnitResponses(units),
	})
}

func (s *Server) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid equipment id")
		return
	}

	if err := s.equipment.DeleteEquipment(r.Context(), authCtx, id); err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddUnits(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid equipment id")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	eq, units, err := s.equipment.AddUnits(r.Context(), authCtx, id, req.Quantity)
	if err != nil {
		if status, code := errorStatus(err); status != 0 {
			writeError(w, status, code, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"equipment": toEquipmentResponse(eq),
		"units":     toUnitResponses(units),
	})
}

func (s *Server) handleUnitQR(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.studioContext(r)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid unit id")
		return
	}

	payload, err := s.equipment.UnitQRPayload(r.Context(), authCtx, id)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError, "internal")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"payload": payload})
}
