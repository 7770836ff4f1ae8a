package api

import (
	"net/http"
	"strconv"

	"github.com/nrowsell/doorlatch/internal/audit"
)

// handleListEvents returns the access history, most recent first.
//
// Query parameters: type (event type filter), limit, offset.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		EventType: r.URL.Query().Get("type"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.service.ListEvents(r.Context(), filter)
	if err != nil {
		s.logger.Error("list events failed", "error", err)
		writeInternalError(w, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
