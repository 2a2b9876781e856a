// internal/room/pictionary.go
package room

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/models"
	"github.com/rodrigobarba653/babygame/internal/realtime"
)

var fillerTexts = []string{
	"A random guess",
	"Something else",
	"Not sure what this is",
}

func (c *Coordinator) startPictionary() error {
	res, ok := c.state.Stage.(*Results)
	if !ok || res.After != GameTrivia || c.status == models.StatusEnded {
		return ErrPhase
	}
	if len(c.state.Players) < minPlayers {
		return ErrPlayerCount
	}

	order := make([]uuid.UUID, 0, len(c.state.Players))
	for _, p := range c.state.Players {
		order = append(order, p.UserID)
	}
	if len(c.deck) == 0 {
		c.deck = c.prompts()
	}
	c.logger.WithField("turns", min(maxPictionaryTurns, len(order))).Info("pictionary started")
	c.startTurn(order, 0)
	return nil
}

// startTurn begins drawing turn `turn`, skipping drawers who have left.
func (c *Coordinator) startTurn(order []uuid.UUID, turn int) {
	maxTurns := min(maxPictionaryTurns, len(order))
	for turn < maxTurns {
		if _, ok := c.state.Player(order[turn]); ok {
			break
		}
		c.logger.WithField("drawer", order[turn]).Info("drawer gone, turn skipped")
		turn++
	}
	if turn >= maxTurns {
		c.endPictionary()
		return
	}

	var prompt string
	if len(c.deck) > 0 {
		prompt = c.deck[turn%len(c.deck)]
	}

	c.emit(realtime.KindClearCanvas, nil)
	c.state.Stage = &PictionaryRound{
		Step: StepDraw,
		Pictionary: PictionaryState{
			TurnOrder:    order,
			TurnIndex:    turn,
			DrawerUserID: order[turn],
			PromptMasked: maskPrompt(prompt),
			PromptFull:   prompt,
			Guesses:      []Guess{},
		},
	}
	c.state.Timer = newTimer(c.now(), c.settings.DrawDuration)
	c.schedule(slotPhase, c.settings.DrawDuration, func() { c.openGuessing(turn) })
	c.publish()
}

// pictionaryAt returns the live round if it is at step in turn.
func (c *Coordinator) pictionaryAt(step PictionaryStep, turn int) (*PictionaryRound, bool) {
	round, ok := c.state.Stage.(*PictionaryRound)
	if !ok || round.Step != step || round.Pictionary.TurnIndex != turn {
		return nil, false
	}
	return round, true
}

func (c *Coordinator) openGuessing(turn int) {
	round, ok := c.pictionaryAt(StepDraw, turn)
	if !ok {
		return
	}
	round.Step = StepGuess
	c.state.Timer = newTimer(c.now(), c.settings.GuessDuration)
	c.schedule(slotPhase, c.settings.GuessDuration, func() { c.revealGuesses(turn) })
	c.publish()
	c.checkAllGuessed()
}

// submitGuess keeps the first guess of each non-drawer.
func (c *Coordinator) submitGuess(userID uuid.UUID, text string) bool {
	round, ok := c.state.Stage.(*PictionaryRound)
	if !ok || round.Step != StepGuess {
		return false
	}
	p := &round.Pictionary
	if userID == p.DrawerUserID || p.HasGuessed(userID) {
		return false
	}
	if _, ok := c.state.Player(userID); !ok {
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if utf8.RuneCountInString(text) > maxGuessLength {
		text = string([]rune(text)[:maxGuessLength])
	}

	p.Guesses = append(p.Guesses, PlayerGuess{UserID: userID, Text: text})
	c.publish()
	c.checkAllGuessed()
	return true
}

// checkAllGuessed reveals early once every non-drawer on the roster has guessed.
func (c *Coordinator) checkAllGuessed() {
	round, ok := c.state.Stage.(*PictionaryRound)
	if !ok || round.Step != StepGuess {
		return
	}
	p := &round.Pictionary
	for _, player := range c.state.Players {
		if player.UserID != p.DrawerUserID && !p.HasGuessed(player.UserID) {
			return
		}
	}
	c.logger.WithField("turn", p.TurnIndex).Debug("all guesses in")
	c.revealGuesses(p.TurnIndex)
}

func (c *Coordinator) revealGuesses(turn int) {
	round, ok := c.pictionaryAt(StepGuess, turn)
	if !ok {
		return
	}
	c.cancel(slotPhase)

	p := &round.Pictionary
	for i := 0; len(p.Guesses) < minGuessPool; i++ {
		p.Guesses = append(p.Guesses, FillerGuess{
			Tag:  fmt.Sprintf("filler-%d", i+1),
			Text: fillerTexts[i%len(fillerTexts)],
		})
	}
	round.Step = StepReveal
	c.state.Timer = nil
	c.publish()
	c.checkDrawerGone()
}

// pickWinner applies the drawer's closest or funniest pick. Each category
// can be decided once; fillers can be picked but never score.
func (c *Coordinator) pickWinner(drawerID uuid.UUID, guessKey string, award Award) bool {
	round, ok := c.state.Stage.(*PictionaryRound)
	if !ok || round.Step != StepReveal {
		return false
	}
	p := &round.Pictionary
	if drawerID != p.DrawerUserID || award.Points() == 0 || p.Decided(award) {
		return false
	}
	guess, ok := p.FindGuess(guessKey)
	if !ok {
		return false
	}

	if award == AwardClosest {
		p.ClosestWinnerID = guess.Key()
	} else {
		p.FunniestWinnerID = guess.Key()
	}
	if pg, isPlayer := guess.(PlayerGuess); isPlayer {
		if player, ok := c.state.Player(pg.UserID); ok {
			player.Points += award.Points()
		}
	}
	c.publish()

	if p.BothDecided() {
		grace := c.settings.TurnGrace
		if p.IsLastTurn() {
			grace = c.settings.FinalTurnGrace
		}
		turn := p.TurnIndex
		c.schedule(slotPhase, grace, func() { c.advanceTurn(turn) })
	}
	return true
}

// checkDrawerGone lets a reveal whose drawer left move on by itself.
func (c *Coordinator) checkDrawerGone() {
	round, ok := c.state.Stage.(*PictionaryRound)
	if !ok || round.Step != StepReveal || round.Pictionary.BothDecided() {
		return
	}
	if _, ok := c.state.Player(round.Pictionary.DrawerUserID); ok {
		return
	}
	turn := round.Pictionary.TurnIndex
	c.schedule(slotPhase, c.settings.TurnGrace, func() { c.advanceTurn(turn) })
}

// continueTurn is the host skipping the wait after a decided reveal.
func (c *Coordinator) continueTurn() error {
	round, ok := c.state.Stage.(*PictionaryRound)
	if !ok || round.Step != StepReveal {
		return ErrPhase
	}
	_, drawerPresent := c.state.Player(round.Pictionary.DrawerUserID)
	if !round.Pictionary.BothDecided() && drawerPresent {
		return ErrPhase
	}
	c.advanceTurn(round.Pictionary.TurnIndex)
	return nil
}

func (c *Coordinator) advanceTurn(turn int) {
	round, ok := c.pictionaryAt(StepReveal, turn)
	if !ok {
		return
	}
	c.cancel(slotPhase)
	c.startTurn(round.Pictionary.TurnOrder, turn+1)
}

func (c *Coordinator) endPictionary() {
	now := c.now()
	c.state.Stage = &Results{After: GamePictionary}
	c.state.Timer = nil
	c.status = models.StatusEnded
	c.cancel(slotExpiry)

	code := c.state.Code
	winner, ok := Leader(c.state.Players)
	if ok {
		c.logger.WithField("winner", winner.UserID).Info("pictionary complete")
	} else {
		c.logger.Info("pictionary complete without players")
	}

	if c.sessions != nil {
		c.persist("ended", func(ctx context.Context) error {
			if !ok {
				return c.sessions.UpdateStatus(ctx, code, models.StatusEnded)
			}
			return c.sessions.MarkEnded(ctx, code, winner.UserID, now)
		})
	}
	if c.results != nil && ok {
		result := c.result(winner.UserID, now)
		c.persist("result", func(ctx context.Context) error {
			return c.results.Record(ctx, result)
		})
	}
	c.publish()
}

// result snapshots the final standings of the roster.
func (c *Coordinator) result(winner uuid.UUID, at time.Time) models.GameResult {
	standings := Standings(c.state.Players)
	out := models.GameResult{
		Code:      c.state.Code,
		HostID:    c.state.HostID,
		WinnerID:  winner,
		EndedAt:   at,
		Standings: make([]models.Standing, len(standings)),
	}
	for i, p := range standings {
		out.Standings[i] = models.Standing{
			Rank:         i + 1,
			UserID:       p.UserID,
			Name:         p.Name,
			Relationship: p.Relationship,
			Points:       p.Points,
		}
	}
	return out
}
