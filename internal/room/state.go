// internal/room/state.go
package room

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Phase is the wire name of a room stage.
type Phase string

const (
	PhaseLobby            Phase = "lobby"
	PhaseTriviaQuestion   Phase = "trivia_question"
	PhaseTriviaReveal     Phase = "trivia_reveal"
	PhaseResults          Phase = "results"
	PhasePictionaryDraw   Phase = "pictionary_draw"
	PhasePictionaryGuess  Phase = "pictionary_guess"
	PhasePictionaryReveal Phase = "pictionary_reveal"
	PhaseReveal           Phase = "reveal"
)

// Unanswered marks a player with no recorded answer in a revealed question.
const Unanswered = -1

// Player is one participant on the canonical roster.
type Player struct {
	UserID       uuid.UUID `json:"userId"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	Points       int       `json:"points"`
	JoinedAt     int64     `json:"joinedAt"` // unix millis
}

// Timer is a declarative deadline. Viewers derive the remaining time themselves.
type Timer struct {
	StartedAt  int64 `json:"startedAt"` // unix millis
	DurationMs int64 `json:"durationMs"`
}

func newTimer(now time.Time, d time.Duration) *Timer {
	return &Timer{StartedAt: now.UnixMilli(), DurationMs: d.Milliseconds()}
}

// Remaining returns max(0, duration - elapsed) as seen at now.
func (t Timer) Remaining(now time.Time) time.Duration {
	left := t.DurationMs - (now.UnixMilli() - t.StartedAt)
	if left < 0 {
		left = 0
	}
	return time.Duration(left) * time.Millisecond
}

type PublicQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type TriviaState struct {
	QuestionIndex  int               `json:"questionIndex"`
	PublicQuestion PublicQuestion    `json:"publicQuestion"`
	Answers        map[uuid.UUID]int `json:"answers"`
	// CorrectIndex is withheld until the question is revealed.
	CorrectIndex *int `json:"correctIndex,omitempty"`
}

// Guess is either a real player's guess or a synthetic filler entry.
type Guess interface {
	// Key is the identifier a drawer picks the guess by.
	Key() string
	Content() string
	isGuess()
}

type PlayerGuess struct {
	UserID uuid.UUID
	Text   string
}

func (g PlayerGuess) Key() string     { return g.UserID.String() }
func (g PlayerGuess) Content() string { return g.Text }
func (PlayerGuess) isGuess()          {}

// FillerGuess pads the reveal pool. It never scores.
type FillerGuess struct {
	Tag  string
	Text string
}

func (g FillerGuess) Key() string     { return g.Tag }
func (g FillerGuess) Content() string { return g.Text }
func (FillerGuess) isGuess()          {}

type guessJSON struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
	Filler bool   `json:"filler,omitempty"`
}

type Award string

const (
	AwardClosest  Award = "closest"
	AwardFunniest Award = "funniest"
)

// Points awarded to the author of a picked guess.
func (a Award) Points() int {
	switch a {
	case AwardClosest:
		return 2
	case AwardFunniest:
		return 1
	}
	return 0
}

type PictionaryState struct {
	TurnOrder        []uuid.UUID
	TurnIndex        int
	DrawerUserID     uuid.UUID
	PromptMasked     string
	PromptFull       string
	Guesses          []Guess
	ClosestWinnerID  string
	FunniestWinnerID string
}

type pictionaryJSON struct {
	TurnOrder        []uuid.UUID `json:"turnOrder"`
	TurnIndex        int         `json:"turnIndex"`
	DrawerUserID     uuid.UUID   `json:"drawerUserId"`
	PromptMasked     string      `json:"promptMasked"`
	PromptFull       string      `json:"promptFull"`
	Guesses          []guessJSON `json:"guesses"`
	ClosestWinnerID  string      `json:"closestWinnerId,omitempty"`
	FunniestWinnerID string      `json:"funniestWinnerId,omitempty"`
}

func (p PictionaryState) MarshalJSON() ([]byte, error) {
	out := pictionaryJSON{
		TurnOrder:        p.TurnOrder,
		TurnIndex:        p.TurnIndex,
		DrawerUserID:     p.DrawerUserID,
		PromptMasked:     p.PromptMasked,
		PromptFull:       p.PromptFull,
		Guesses:          make([]guessJSON, 0, len(p.Guesses)),
		ClosestWinnerID:  p.ClosestWinnerID,
		FunniestWinnerID: p.FunniestWinnerID,
	}
	if out.TurnOrder == nil {
		out.TurnOrder = []uuid.UUID{}
	}
	for _, g := range p.Guesses {
		_, filler := g.(FillerGuess)
		out.Guesses = append(out.Guesses, guessJSON{UserID: g.Key(), Text: g.Content(), Filler: filler})
	}
	return json.Marshal(out)
}

func (p *PictionaryState) UnmarshalJSON(data []byte) error {
	var in pictionaryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = PictionaryState{
		TurnOrder:        in.TurnOrder,
		TurnIndex:        in.TurnIndex,
		DrawerUserID:     in.DrawerUserID,
		PromptMasked:     in.PromptMasked,
		PromptFull:       in.PromptFull,
		ClosestWinnerID:  in.ClosestWinnerID,
		FunniestWinnerID: in.FunniestWinnerID,
	}
	for _, g := range in.Guesses {
		if g.Filler {
			p.Guesses = append(p.Guesses, FillerGuess{Tag: g.UserID, Text: g.Text})
			continue
		}
		id, err := uuid.Parse(g.UserID)
		if err != nil {
			return fmt.Errorf("guess has invalid userId %q: %w", g.UserID, err)
		}
		p.Guesses = append(p.Guesses, PlayerGuess{UserID: id, Text: g.Text})
	}
	return nil
}

// MaxTurns is the number of drawing turns this round will run.
func (p *PictionaryState) MaxTurns() int {
	return min(maxPictionaryTurns, len(p.TurnOrder))
}

func (p *PictionaryState) IsLastTurn() bool {
	return p.TurnIndex+1 >= p.MaxTurns()
}

func (p *PictionaryState) HasGuessed(userID uuid.UUID) bool {
	for _, g := range p.Guesses {
		if pg, ok := g.(PlayerGuess); ok && pg.UserID == userID {
			return true
		}
	}
	return false
}

// PlayerGuessCount counts real guesses only.
func (p *PictionaryState) PlayerGuessCount() int {
	n := 0
	for _, g := range p.Guesses {
		if _, ok := g.(PlayerGuess); ok {
			n++
		}
	}
	return n
}

func (p *PictionaryState) FindGuess(key string) (Guess, bool) {
	for _, g := range p.Guesses {
		if g.Key() == key {
			return g, true
		}
	}
	return nil, false
}

func (p *PictionaryState) Decided(a Award) bool {
	switch a {
	case AwardClosest:
		return p.ClosestWinnerID != ""
	case AwardFunniest:
		return p.FunniestWinnerID != ""
	}
	return false
}

func (p *PictionaryState) BothDecided() bool {
	return p.ClosestWinnerID != "" && p.FunniestWinnerID != ""
}

func maskPrompt(prompt string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return r
		}
		return '_'
	}, prompt)
}

// Stage is the phase-specific part of a RoomState. Only the variants below implement it.
type Stage interface {
	Phase() Phase
	isStage()
}

type Lobby struct{}

// TriviaRound covers both trivia phases.
type TriviaRound struct {
	Revealed bool
	Trivia   TriviaState
}

// Game identifies a finished round.
type Game string

const (
	GameTrivia     Game = "trivia"
	GamePictionary Game = "pictionary"
)

// Results follows a completed round.
type Results struct {
	After Game
}

type PictionaryStep int

const (
	StepDraw PictionaryStep = iota
	StepGuess
	StepReveal
)

type PictionaryRound struct {
	Step       PictionaryStep
	Pictionary PictionaryState
}

type FinalReveal struct{}

func (*Lobby) Phase() Phase { return PhaseLobby }
func (s *TriviaRound) Phase() Phase {
	if s.Revealed {
		return PhaseTriviaReveal
	}
	return PhaseTriviaQuestion
}
func (*Results) Phase() Phase { return PhaseResults }
func (s *PictionaryRound) Phase() Phase {
	switch s.Step {
	case StepGuess:
		return PhasePictionaryGuess
	case StepReveal:
		return PhasePictionaryReveal
	}
	return PhasePictionaryDraw
}
func (*FinalReveal) Phase() Phase { return PhaseReveal }

func (*Lobby) isStage()           {}
func (*TriviaRound) isStage()     {}
func (*Results) isStage()         {}
func (*PictionaryRound) isStage() {}
func (*FinalReveal) isStage()     {}

// RoomState is the canonical document of one room.
type RoomState struct {
	Code    string
	HostID  uuid.UUID
	Version uint64
	Players []Player
	Timer   *Timer
	Stage   Stage
}

func (s RoomState) Phase() Phase {
	if s.Stage == nil {
		return PhaseLobby
	}
	return s.Stage.Phase()
}

// Trivia returns the trivia sub-state, or nil outside the trivia phases.
func (s RoomState) Trivia() *TriviaState {
	if r, ok := s.Stage.(*TriviaRound); ok {
		return &r.Trivia
	}
	return nil
}

// Pictionary returns the pictionary sub-state, or nil outside the pictionary phases.
func (s RoomState) Pictionary() *PictionaryState {
	if r, ok := s.Stage.(*PictionaryRound); ok {
		return &r.Pictionary
	}
	return nil
}

// Player returns the roster entry for id.
func (s RoomState) Player(id uuid.UUID) (*Player, bool) {
	for i := range s.Players {
		if s.Players[i].UserID == id {
			return &s.Players[i], true
		}
	}
	return nil, false
}

type roomStateJSON struct {
	Code       string           `json:"code"`
	HostID     uuid.UUID        `json:"hostId"`
	Version    uint64           `json:"version"`
	Phase      Phase            `json:"phase"`
	Players    []Player         `json:"players"`
	Timer      *Timer           `json:"timer"`
	Trivia     *TriviaState     `json:"trivia,omitempty"`
	Pictionary *PictionaryState `json:"pictionary,omitempty"`
	Completed  Game             `json:"completed,omitempty"`
	LeaderID   *uuid.UUID       `json:"leaderId,omitempty"`
}

func (s RoomState) MarshalJSON() ([]byte, error) {
	out := roomStateJSON{
		Code:    s.Code,
		HostID:  s.HostID,
		Version: s.Version,
		Phase:   s.Phase(),
		Players: s.Players,
		Timer:   s.Timer,
	}
	if out.Players == nil {
		out.Players = []Player{}
	}
	switch st := s.Stage.(type) {
	case *TriviaRound:
		out.Trivia = &st.Trivia
	case *PictionaryRound:
		out.Pictionary = &st.Pictionary
	case *Results:
		out.Completed = st.After
	}
	if leader, ok := Leader(s.Players); ok {
		out.LeaderID = &leader.UserID
	}
	return json.Marshal(out)
}

func (s *RoomState) UnmarshalJSON(data []byte) error {
	var in roomStateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var stage Stage
	switch in.Phase {
	case PhaseLobby:
		stage = &Lobby{}
	case PhaseTriviaQuestion, PhaseTriviaReveal:
		if in.Trivia == nil {
			return fmt.Errorf("phase %s without trivia state", in.Phase)
		}
		stage = &TriviaRound{Revealed: in.Phase == PhaseTriviaReveal, Trivia: *in.Trivia}
	case PhasePictionaryDraw, PhasePictionaryGuess, PhasePictionaryReveal:
		if in.Pictionary == nil {
			return fmt.Errorf("phase %s without pictionary state", in.Phase)
		}
		step := StepDraw
		if in.Phase == PhasePictionaryGuess {
			step = StepGuess
		} else if in.Phase == PhasePictionaryReveal {
			step = StepReveal
		}
		stage = &PictionaryRound{Step: step, Pictionary: *in.Pictionary}
	case PhaseResults:
		stage = &Results{After: in.Completed}
	case PhaseReveal:
		stage = &FinalReveal{}
	default:
		return fmt.Errorf("unknown phase %q", in.Phase)
	}
	if stage.Phase() != PhasePictionaryDraw && stage.Phase() != PhasePictionaryGuess &&
		stage.Phase() != PhasePictionaryReveal && in.Pictionary != nil {
		return fmt.Errorf("phase %s carries pictionary state", in.Phase)
	}
	if _, trivia := stage.(*TriviaRound); !trivia && in.Trivia != nil {
		return fmt.Errorf("phase %s carries trivia state", in.Phase)
	}

	*s = RoomState{
		Code:    in.Code,
		HostID:  in.HostID,
		Version: in.Version,
		Players: in.Players,
		Timer:   in.Timer,
		Stage:   stage,
	}
	return nil
}
