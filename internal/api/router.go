package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// The keypad itself is unauthenticated: the PIN is the credential
		r.Post("/access/check", s.handleAccessCheck)

		// Login is unauthenticated but rate limited inside the service
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)

			r.Route("/pins", func(r chi.Router) {
				r.Get("/", s.handleListPins)
				r.Post("/", s.handleAddPin)
				r.Delete("/{id}", s.handleRemovePin)
			})

			r.Route("/admins", func(r chi.Router) {
				r.Get("/", s.handleListAdmins)
				r.Post("/", s.handleAddAdmin)
				r.Delete("/{username}", s.handleRemoveAdmin)
			})

			r.Get("/events", s.handleListEvents)
		})
	})

	return r
}

// handleHealth returns the server health status, including database liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	overall, dbStatus := "ok", "ok"
	status := http.StatusOK
	if err := s.db.HealthCheck(r.Context()); err != nil {
		overall, dbStatus = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":   overall,
		"version":  s.version,
		"database": dbStatus,
	})
}
