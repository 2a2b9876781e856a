// internal/handlers/reveal.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/auth"
	"github.com/rodrigobarba653/babygame/internal/cache"
	"github.com/rodrigobarba653/babygame/internal/models"
)

type revealRequest struct {
	Code string `json:"code"`
}

type revealResponse struct {
	RevealText string `json:"revealText"`
}

// RevealHandler hands the reveal text to the winner of an ended session only.
func RevealHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req revealRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
			writeError(w, http.StatusBadRequest, "code required")
			return
		}

		code := cache.NormalizeCode(req.Code)
		sess, err := s.Sessions.Get(r.Context(), code)
		if errors.Is(err, cache.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			s.Logger.WithError(err).WithField("code", code).Error("failed to load session for reveal")
			writeError(w, http.StatusInternalServerError, "could not load session")
			return
		}

		logger := s.Logger.WithFields(map[string]interface{}{"code": code, "user": userID})
		if sess.Status != models.StatusEnded {
			writeError(w, http.StatusBadRequest, "game not complete yet")
			return
		}
		if sess.WinnerID == uuid.Nil {
			writeError(w, http.StatusBadRequest, "winner not determined yet")
			return
		}
		if sess.WinnerID != userID {
			logger.Warn("reveal denied to non-winner")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		logger.Info("reveal delivered")
		writeJSON(w, http.StatusOK, revealResponse{RevealText: s.Config.RevealText})
	}
}
