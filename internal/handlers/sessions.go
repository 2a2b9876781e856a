// internal/handlers/sessions.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/auth"
	"github.com/rodrigobarba653/babygame/internal/cache"
	"github.com/rodrigobarba653/babygame/internal/models"
)

type sessionResponse struct {
	Code      string               `json:"code"`
	HostID    uuid.UUID            `json:"hostId"`
	Status    models.SessionStatus `json:"status"`
	ExpiresAt time.Time            `json:"expiresAt"`
	IsHost    bool                 `json:"isHost"`
}

func newSessionResponse(sess *models.Session, caller uuid.UUID) sessionResponse {
	return sessionResponse{
		Code:      sess.Code,
		HostID:    sess.HostID,
		Status:    sess.Status,
		ExpiresAt: sess.ExpiresAt,
		IsHost:    sess.HostID == caller,
	}
}

// CreateSessionHandler opens a new session hosted by the caller.
func CreateSessionHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		sess, err := s.Sessions.Create(r.Context(), userID, s.Config.SessionTTL)
		if err != nil {
			s.Logger.WithError(err).Error("failed to create session")
			writeError(w, http.StatusInternalServerError, "could not create session")
			return
		}
		s.Logger.WithFields(map[string]interface{}{"code": sess.Code, "host": userID}).Info("session created")
		writeJSON(w, http.StatusCreated, newSessionResponse(sess, userID))
	}
}

// GetSessionHandler validates a join. Ended sessions stay readable so the
// results and reveal can load; otherwise an expired session is gone.
func GetSessionHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		sess, ok := s.loadSession(w, r)
		if !ok {
			return
		}
		if sess.Expired(s.Now()) {
			writeError(w, http.StatusGone, "session expired")
			return
		}
		writeJSON(w, http.StatusOK, newSessionResponse(sess, userID))
	}
}

// DeleteSessionHandler lets the host end a session early.
func DeleteSessionHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		sess, ok := s.loadSession(w, r)
		if !ok {
			return
		}
		if sess.HostID != userID {
			writeError(w, http.StatusForbidden, "only the host can delete a session")
			return
		}
		if err := s.Sessions.Delete(r.Context(), sess.Code); err != nil {
			s.Logger.WithError(err).WithField("code", sess.Code).Error("failed to delete session")
			writeError(w, http.StatusInternalServerError, "could not delete session")
			return
		}
		if s.Rooms != nil {
			s.Rooms.Remove(sess.Code)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// loadSession resolves the {code} path value, answering 400/404/500 itself.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	code := cache.NormalizeCode(chi.URLParam(r, "code"))
	if !cache.ValidCode(code) {
		writeError(w, http.StatusBadRequest, "invalid session code")
		return nil, false
	}
	sess, err := s.Sessions.Get(r.Context(), code)
	if errors.Is(err, cache.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		s.Logger.WithError(err).WithField("code", code).Error("failed to load session")
		writeError(w, http.StatusInternalServerError, "could not load session")
		return nil, false
	}
	return sess, true
}
