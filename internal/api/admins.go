package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nrowsell/doorlatch/internal/store"
)

type addAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleListAdmins returns all admin accounts. Hashes are never serialised.
func (s *Server) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := s.service.ListAdmins(r.Context())
	if err != nil {
		s.logger.Error("list admins failed", "error", err)
		writeInternalError(w, "failed to list admins")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"admins": admins,
		"count":  len(admins),
	})
}

// handleAddAdmin creates a new admin account.
func (s *Server) handleAddAdmin(w http.ResponseWriter, r *http.Request) {
	var req addAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	admin, err := s.service.AddAdmin(r.Context(), req.Username, req.Password, requestUsername(r))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUsernameExists):
			writeConflict(w, "username already exists")
		case errors.Is(err, store.ErrInvalidInput):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("add admin failed", "error", err)
			writeInternalError(w, "failed to add admin")
		}
		return
	}

	writeJSON(w, http.StatusCreated, admin)
}

// handleRemoveAdmin deletes an admin account.
// An admin cannot remove their own account.
func (s *Server) handleRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if username == requestUsername(r) {
		writeConflict(w, "cannot remove your own account")
		return
	}

	if err := s.service.RemoveAdmin(r.Context(), username, requestUsername(r)); err != nil {
		switch {
		case errors.Is(err, store.ErrAdminNotFound):
			writeNotFound(w, "admin not found")
		case errors.Is(err, store.ErrInvalidInput):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("remove admin failed", "error", err)
			writeInternalError(w, "failed to remove admin")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
