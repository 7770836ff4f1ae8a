package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nrowsell/doorlatch/internal/store"
)

type addPinRequest struct {
	Pin   string `json:"pin"`
	Label string `json:"label,omitempty"`
}

// handleListPins returns all stored PINs. Hashes are never serialised.
func (s *Server) handleListPins(w http.ResponseWriter, r *http.Request) {
	pins, err := s.service.ListPins(r.Context())
	if err != nil {
		s.logger.Error("list pins failed", "error", err)
		writeInternalError(w, "failed to list pins")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pins":  pins,
		"count": len(pins),
	})
}

// handleAddPin stores a new door PIN.
func (s *Server) handleAddPin(w http.ResponseWriter, r *http.Request) {
	var req addPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	pin, err := s.service.AddPin(r.Context(), req.Pin, req.Label, requestUsername(r))
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("add pin failed", "error", err)
		writeInternalError(w, "failed to add pin")
		return
	}

	writeJSON(w, http.StatusCreated, pin)
}

// handleRemovePin deletes a stored PIN by its ID.
func (s *Server) handleRemovePin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.service.RemovePin(r.Context(), id, requestUsername(r)); err != nil {
		switch {
		case errors.Is(err, store.ErrPinNotFound):
			writeNotFound(w, "pin not found")
		case errors.Is(err, store.ErrInvalidInput):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("remove pin failed", "error", err)
			writeInternalError(w, "failed to remove pin")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
