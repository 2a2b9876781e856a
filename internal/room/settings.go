// internal/room/settings.go
package room

import (
	"time"

	"github.com/rodrigobarba653/babygame/internal/config"
)

const (
	minPlayers         = 2
	maxPlayers         = 10
	maxPictionaryTurns = 5
	minGuessPool       = 3
	maxGuessLength     = 100
)

// Settings are the timings a coordinator runs with.
type Settings struct {
	QuestionDuration       time.Duration
	QuestionRevealDuration time.Duration
	DrawDuration           time.Duration
	GuessDuration          time.Duration
	TurnGrace              time.Duration
	FinalTurnGrace         time.Duration
	PresenceGrace          time.Duration
}

func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		QuestionDuration:       cfg.QuestionDuration,
		QuestionRevealDuration: cfg.QuestionRevealDuration,
		DrawDuration:           cfg.DrawDuration,
		GuessDuration:          cfg.GuessDuration,
		TurnGrace:              cfg.TurnGrace,
		FinalTurnGrace:         cfg.FinalTurnGrace,
		PresenceGrace:          cfg.PresenceGrace,
	}
}
