// internal/room/gateway.go
package room

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/realtime"
	"github.com/sirupsen/logrus"
)

type AnswerPayload struct {
	UserID        uuid.UUID `json:"userId"`
	QuestionIndex *int      `json:"questionIndex"`
	OptionIndex   *int      `json:"optionIndex"`
}

type GuessPayload struct {
	UserID uuid.UUID `json:"userId"`
	Text   string    `json:"text"`
}

type PickPayload struct {
	DrawerUserID uuid.UUID `json:"drawerUserId"`
	WinnerUserID string    `json:"winnerUserId"`
	AwardType    Award     `json:"awardType"`
}

type StrokePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type StrokePayload struct {
	DrawerUserID uuid.UUID     `json:"drawerUserId"`
	Points       []StrokePoint `json:"points"`
	Color        string        `json:"color"`
	Width        float64       `json:"width"`
	IsStart      bool          `json:"isStart,omitempty"`
	IsEnd        bool          `json:"isEnd,omitempty"`
}

type HostStatusPayload struct {
	Connected bool `json:"connected"`
}

type ClosedPayload struct {
	Reason string `json:"reason"`
}

// OnMessage hands discrete actions from other instances to the loop.
// Anything this coordinator emitted itself is ignored here.
func (c *Coordinator) OnMessage(env realtime.Envelope) {
	if env.Origin == c.id {
		return
	}
	switch env.Type {
	case realtime.KindAnswerSubmit, realtime.KindGuessSubmit, realtime.KindPickWinner:
		c.post(inboundEvent{env: env})
	}
}

func (c *Coordinator) OnPresenceSync(snapshot []realtime.Presence) {
	c.post(syncEvent{snapshot: snapshot})
}

func (c *Coordinator) OnPresenceLeave(userID uuid.UUID) {
	c.post(leaveEvent{userID: userID})
}

// applyAction validates one discrete action and feeds it to the engines.
// Invalid, stale and duplicate actions are dropped without telling the sender.
func (c *Coordinator) applyAction(env realtime.Envelope) bool {
	logger := c.logger.WithFields(logrus.Fields{
		"type":   env.Type,
		"sender": env.Sender,
	})
	if !c.seen.add(env.ID) {
		logger.Debug("duplicate action dropped")
		return false
	}

	var applied bool
	switch env.Type {
	case realtime.KindAnswerSubmit:
		var p AnswerPayload
		if err := env.Decode(&p); err != nil || p.QuestionIndex == nil || p.OptionIndex == nil {
			break
		}
		if p.UserID != env.Sender {
			break
		}
		applied = c.submitAnswer(p.UserID, *p.QuestionIndex, *p.OptionIndex)
	case realtime.KindGuessSubmit:
		var p GuessPayload
		if err := env.Decode(&p); err != nil || p.UserID != env.Sender {
			break
		}
		applied = c.submitGuess(p.UserID, p.Text)
	case realtime.KindPickWinner:
		var p PickPayload
		if err := env.Decode(&p); err != nil || p.DrawerUserID != env.Sender {
			break
		}
		applied = c.pickWinner(p.DrawerUserID, p.WinnerUserID, p.AwardType)
	}
	if !applied {
		logger.Debug("action dropped")
	}
	return applied
}

// publish fans out the full state under a new version.
func (c *Coordinator) publish() {
	c.state.Version++
	raw, err := json.Marshal(c.state)
	if err != nil {
		c.logger.WithError(err).Error("failed to marshal room state")
		return
	}

	view := &published{phase: c.state.Phase(), version: c.state.Version}
	if p := c.state.Pictionary(); p != nil {
		view.drawer = p.DrawerUserID
	}
	c.last.Store(view)

	c.channel.Broadcast(realtime.Envelope{
		ID:      uuid.New(),
		Type:    realtime.KindRoomState,
		Origin:  c.id,
		Payload: raw,
	})
}

// emit broadcasts a discrete event originated by this coordinator.
func (c *Coordinator) emit(kind realtime.Kind, payload interface{}) {
	env, err := realtime.NewEnvelope(kind, c.id, payload)
	if err != nil {
		c.logger.WithError(err).Error("failed to build event")
		return
	}
	c.seen.add(env.ID)
	c.channel.Broadcast(env)
}

// RelayStroke forwards a drawer's stroke batch or canvas clear to every other
// viewer. It is safe to call from any goroutine and reports whether the
// sender is the current drawer.
func (c *Coordinator) RelayStroke(env realtime.Envelope) bool {
	view := c.last.Load()
	if view == nil || view.drawer == uuid.Nil || env.Sender != view.drawer {
		return false
	}
	switch env.Type {
	case realtime.KindStrokeBatch:
		var p StrokePayload
		if err := env.Decode(&p); err != nil || p.DrawerUserID != view.drawer {
			return false
		}
	case realtime.KindClearCanvas:
	default:
		return false
	}
	c.channel.Broadcast(env, view.drawer)
	return true
}

// seenSet remembers the last n envelope ids.
type seenSet struct {
	ids   map[uuid.UUID]struct{}
	order []uuid.UUID
	next  int
}

func newSeenSet(n int) *seenSet {
	return &seenSet{
		ids:   make(map[uuid.UUID]struct{}, n),
		order: make([]uuid.UUID, n),
	}
}

// add records id and reports whether it was new. uuid.Nil is never recorded.
func (s *seenSet) add(id uuid.UUID) bool {
	if id == uuid.Nil {
		return true
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	if old := s.order[s.next]; old != uuid.Nil {
		delete(s.ids, old)
	}
	s.order[s.next] = id
	s.next = (s.next + 1) % len(s.order)
	s.ids[id] = struct{}{}
	return true
}
