// internal/models/session.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the coarse progress marker persisted alongside a session code.
// It lets a reconnecting host or player resume at the right screen.
type SessionStatus string

const (
	StatusLobby          SessionStatus = "lobby"
	StatusTriviaComplete SessionStatus = "trivia_complete"
	StatusEnded          SessionStatus = "ended"
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusLobby, StatusTriviaComplete, StatusEnded:
		return true
	}
	return false
}

// Session is the record kept in the key-value store under its 4-letter code.
type Session struct {
	Code      string        `json:"code"`
	HostID    uuid.UUID     `json:"hostId"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Status    SessionStatus `json:"status"`

	// WinnerID is uuid.Nil until the game has ended.
	WinnerID uuid.UUID `json:"winnerId,omitempty"`
}

// Expired reports whether the session lifetime has passed at t.
// Ended sessions stay readable so the results and reveal screens can load.
func (s *Session) Expired(t time.Time) bool {
	return s.Status != StatusEnded && !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(t)
}
