// internal/handlers/results.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/rodrigobarba653/babygame/internal/auth"
	"github.com/rodrigobarba653/babygame/internal/models"
)

const (
	defaultWinsLimit = 10
	maxWinsLimit     = 50
)

// WinsHandler lists the archived games the caller has won.
func WinsHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if s.Results == nil {
			writeError(w, http.StatusServiceUnavailable, "results archive disabled")
			return
		}

		limit := defaultWinsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxWinsLimit {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 50")
				return
			}
			limit = n
		}

		wins, err := s.Results.WinsByUser(r.Context(), userID, limit)
		if err != nil {
			s.Logger.WithError(err).WithField("user", userID).Error("failed to load results")
			writeError(w, http.StatusInternalServerError, "could not load results")
			return
		}
		if wins == nil {
			wins = []models.GameResult{}
		}
		writeJSON(w, http.StatusOK, wins)
	}
}
