package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nrowsell/doorlatch/internal/access"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin authenticates an admin and issues a session token.
//
// Failed attempts from one address are rate limited; once throttled the
// response is 429 with a Retry-After header.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	token, err := s.service.Login(r.Context(), clientAddr(r), req.Username, req.Password)
	if err != nil {
		var throttled *access.ThrottledError
		switch {
		case errors.As(err, &throttled):
			writeTooManyRequests(w, throttled.RetryAfter)
		case errors.Is(err, access.ErrInvalidCredentials):
			writeUnauthorized(w, "invalid credentials")
		default:
			s.logger.Error("login failed", "error", err)
			writeInternalError(w, "login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// handleLogout revokes the caller's session token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.service.Logout(bearerToken(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// handleMe returns the authenticated admin's username.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"username": requestUsername(r),
	})
}
