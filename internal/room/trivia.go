// internal/room/trivia.go
package room

import (
	"context"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/models"
)

func (c *Coordinator) startTrivia() error {
	if _, ok := c.state.Stage.(*Lobby); !ok {
		return ErrPhase
	}
	if n := len(c.state.Players); n < minPlayers || n > maxPlayers {
		return ErrPlayerCount
	}
	if len(c.questions) == 0 {
		c.completeTrivia()
		return nil
	}
	c.deck = c.prompts()
	c.logger.WithField("players", len(c.state.Players)).Info("trivia started")
	c.askQuestion(0)
	return nil
}

func (c *Coordinator) askQuestion(index int) {
	q := c.questions[index]
	c.state.Stage = &TriviaRound{
		Trivia: TriviaState{
			QuestionIndex: index,
			PublicQuestion: PublicQuestion{
				Text:    q.Text,
				Options: append([]string(nil), q.Options...),
			},
			Answers: make(map[uuid.UUID]int),
		},
	}
	c.state.Timer = newTimer(c.now(), c.settings.QuestionDuration)
	c.schedule(slotPhase, c.settings.QuestionDuration, func() { c.revealQuestion(index) })
	c.publish()
}

// submitAnswer records (or replaces) a player's answer to the live question.
func (c *Coordinator) submitAnswer(userID uuid.UUID, questionIndex, option int) bool {
	round, ok := c.state.Stage.(*TriviaRound)
	if !ok || round.Revealed || round.Trivia.QuestionIndex != questionIndex {
		return false
	}
	if option < 0 || option >= len(round.Trivia.PublicQuestion.Options) {
		return false
	}
	if _, ok := c.state.Player(userID); !ok {
		return false
	}
	if prev, ok := round.Trivia.Answers[userID]; ok && prev == option {
		return true
	}
	round.Trivia.Answers[userID] = option
	c.publish()
	return true
}

func (c *Coordinator) revealQuestion(index int) {
	round, ok := c.state.Stage.(*TriviaRound)
	if !ok || round.Revealed || round.Trivia.QuestionIndex != index {
		return
	}
	correct := c.questions[index].CorrectIndex

	answers := make(map[uuid.UUID]int, len(c.state.Players))
	for i := range c.state.Players {
		p := &c.state.Players[i]
		answer, answered := round.Trivia.Answers[p.UserID]
		if !answered {
			answers[p.UserID] = Unanswered
			continue
		}
		answers[p.UserID] = answer
		if answer == correct {
			p.Points++
		}
	}

	round.Revealed = true
	round.Trivia.Answers = answers
	round.Trivia.CorrectIndex = &correct
	c.state.Timer = newTimer(c.now(), c.settings.QuestionRevealDuration)
	c.schedule(slotPhase, c.settings.QuestionRevealDuration, func() { c.nextQuestion(index) })
	c.publish()
}

func (c *Coordinator) nextQuestion(index int) {
	round, ok := c.state.Stage.(*TriviaRound)
	if !ok || !round.Revealed || round.Trivia.QuestionIndex != index {
		return
	}
	if index+1 < len(c.questions) {
		c.askQuestion(index + 1)
		return
	}
	c.completeTrivia()
}

func (c *Coordinator) completeTrivia() {
	c.state.Stage = &Results{After: GameTrivia}
	c.state.Timer = nil
	c.status = models.StatusTriviaComplete
	c.logger.Info("trivia complete")

	code := c.state.Code
	if c.sessions != nil {
		c.persist("trivia_complete", func(ctx context.Context) error {
			return c.sessions.UpdateStatus(ctx, code, models.StatusTriviaComplete)
		})
	}
	c.publish()
}
