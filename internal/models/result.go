// internal/models/result.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Standing is one player's final place in a finished game.
type Standing struct {
	Rank         int       `json:"rank"`
	UserID       uuid.UUID `json:"userId"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	Points       int       `json:"points"`
}

// GameResult is the archived outcome of a session, written once when the
// drawing round ends.
type GameResult struct {
	Code      string     `json:"code"`
	HostID    uuid.UUID  `json:"hostId"`
	WinnerID  uuid.UUID  `json:"winnerId"`
	EndedAt   time.Time  `json:"endedAt"`
	Standings []Standing `json:"standings"`
}
