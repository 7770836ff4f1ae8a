package api

import (
	"encoding/json"
	"net/http"
)

type accessCheckRequest struct {
	Pin string `json:"pin"`
}

type accessCheckResponse struct {
	Granted bool `json:"granted"`
}

// handleAccessCheck decides whether a keypad entry opens the door.
//
// The response says granted or denied and nothing else. Malformed PINs
// are a denial, not a 400: the keypad needs no diagnostics and an
// attacker gets none.
func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	var req accessCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	granted, err := s.service.CheckPin(r.Context(), req.Pin, clientAddr(r))
	if err != nil {
		s.logger.Error("access check failed", "error", err)
		writeInternalError(w, "access check failed")
		return
	}

	writeJSON(w, http.StatusOK, accessCheckResponse{Granted: granted})
}
