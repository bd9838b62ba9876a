package http

import (
	"fmt"
	"net/http"
	"time"
)

func statsKey(userID int64) string {
	return fmt.Sprintf("stats:%d", userID)
}

// handleDashboardStats serves the monthly aggregates, cached briefly per
// user. Transaction mutations invalidate the cache entry.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := statsKey(userID)
	if stats, ok := s.statsCache.Get(key); ok {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := s.dashboard.GetStats(r.Context(), userID, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.statsCache.Set(key, *stats)
	writeJSON(w, http.StatusOK, stats)
}
