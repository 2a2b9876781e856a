// internal/handlers/profile.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rodrigobarba653/babygame/internal/auth"
	"github.com/rodrigobarba653/babygame/internal/database"
	"github.com/rodrigobarba653/babygame/internal/models"
)

const maxNameLength = 50

type profileRequest struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
}

func GetProfileHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		p, err := s.Profiles.GetProfile(r.Context(), userID)
		if errors.Is(err, database.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		if err != nil {
			s.Logger.WithError(err).WithField("user", userID).Error("failed to load profile")
			writeError(w, http.StatusInternalServerError, "could not load profile")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// UpdateProfileHandler creates or replaces the caller's name and relationship.
func UpdateProfileHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req profileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad profile payload")
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" || utf8.RuneCountInString(name) > maxNameLength {
			writeError(w, http.StatusBadRequest, "name must be 1 to 50 characters")
			return
		}
		rel, ok := models.ParseRelationship(req.Relationship)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown relationship")
			return
		}

		p := &models.Profile{ID: userID, Name: name, Relationship: rel}
		if err := s.Profiles.UpsertProfile(r.Context(), p); err != nil {
			s.Logger.WithError(err).WithField("user", userID).Error("failed to save profile")
			writeError(w, http.StatusInternalServerError, "could not save profile")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
