// internal/room/helpers_test.go
package room

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/content"
	"github.com/rodrigobarba653/babygame/internal/models"
	"github.com/rodrigobarba653/babygame/internal/realtime"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manual Scheduler. Timers only fire inside Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and fires every timer that came due, in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

type sentEnvelope struct {
	env    realtime.Envelope
	except []uuid.UUID
}

// fakeChannel records everything broadcast on it.
type fakeChannel struct {
	mu       sync.Mutex
	sent     []sentEnvelope
	presence []realtime.Presence
}

func (f *fakeChannel) Broadcast(env realtime.Envelope, except ...uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEnvelope{env: env, except: except})
}

func (f *fakeChannel) Presence() []realtime.Presence {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]realtime.Presence(nil), f.presence...)
}

func (f *fakeChannel) Listen(realtime.Listener) func() { return func() {} }

func (f *fakeChannel) ofKind(kind realtime.Kind) []sentEnvelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEnvelope
	for _, s := range f.sent {
		if s.env.Type == kind {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeChannel) kinds() []realtime.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]realtime.Kind, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.env.Type)
	}
	return out
}

func (f *fakeChannel) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type endedWrite struct {
	code   string
	winner uuid.UUID
	at     time.Time
}

// fakeSessions records session writes. The first failures calls return an error.
type fakeSessions struct {
	mu       sync.Mutex
	failures int
	calls    int
	statuses []models.SessionStatus
	ended    []endedWrite
}

func (s *fakeSessions) fail() bool {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return true
	}
	return false
}

func (s *fakeSessions) UpdateStatus(_ context.Context, _ string, status models.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail() {
		return context.DeadlineExceeded
	}
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeSessions) MarkEnded(_ context.Context, code string, winner uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail() {
		return context.DeadlineExceeded
	}
	s.ended = append(s.ended, endedWrite{code: code, winner: winner, at: at})
	return nil
}

type fakeResults struct {
	mu      sync.Mutex
	results []models.GameResult
}

func (r *fakeResults) Record(_ context.Context, result models.GameResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// testQuestions is a short bank: the correct option is always index 1.
var testQuestions = []content.Question{
	{ID: "1", Text: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 1},
	{ID: "2", Text: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 1},
}

var testPrompts = []string{"rattle", "teddy bear", "crib", "stork", "bib"}

type harness struct {
	t       *testing.T
	clock   *fakeClock
	channel *fakeChannel
	store   *fakeSessions
	results *fakeResults
	c       *Coordinator
	host    uuid.UUID
	members []realtime.Presence
}

func newHarness(t *testing.T, players int, status models.SessionStatus) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		clock:   newFakeClock(),
		channel: &fakeChannel{},
		store:   &fakeSessions{},
		results: &fakeResults{},
	}
	for i := 0; i < players; i++ {
		h.members = append(h.members, realtime.Presence{
			UserID:       uuid.New(),
			Name:         "player",
			Relationship: string(models.RelationshipFriend),
			JoinedAt:     int64(1000 + i),
		})
	}
	h.host = h.members[0].UserID

	sess := models.Session{
		Code:      "ABCD",
		HostID:    h.host,
		CreatedAt: h.clock.Now(),
		ExpiresAt: h.clock.Now().Add(2 * time.Hour),
		Status:    status,
	}
	h.c = New(sess, h.host, DefaultSettings(), Deps{
		Channel:   h.channel,
		Sessions:  h.store,
		Results:   h.results,
		Scheduler: h.clock,
		Logger:    quietLogger(),
		Questions: testQuestions,
		Prompts:   func() []string { return append([]string(nil), testPrompts...) },
	})
	h.c.retryBackoff = 0
	h.sync(h.members...)
	return h
}

func (h *harness) player(i int) uuid.UUID { return h.members[i].UserID }

// drain runs every queued event on the calling goroutine.
func (h *harness) drain() {
	for {
		select {
		case ev := <-h.c.inbox:
			h.c.dispatch(ev)
		default:
			return
		}
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.drain()
}

func (h *harness) sync(members ...realtime.Presence) {
	h.c.dispatch(syncEvent{snapshot: members})
}

func (h *harness) leave(id uuid.UUID) {
	h.c.dispatch(leaveEvent{userID: id})
}

func (h *harness) command(actor uuid.UUID, cmd Command) error {
	ev := commandEvent{actor: actor, cmd: cmd, done: make(chan error, 1)}
	h.c.dispatch(ev)
	return <-ev.done
}

func (h *harness) send(kind realtime.Kind, sender uuid.UUID, payload interface{}) {
	h.t.Helper()
	env, err := realtime.NewEnvelope(kind, "conn-"+sender.String(), payload)
	require.NoError(h.t, err)
	env.Sender = sender
	h.c.dispatch(inboundEvent{env: env})
}

func (h *harness) answer(user uuid.UUID, question, option int) {
	h.send(realtime.KindAnswerSubmit, user, AnswerPayload{UserID: user, QuestionIndex: &question, OptionIndex: &option})
}

func (h *harness) guess(user uuid.UUID, text string) {
	h.send(realtime.KindGuessSubmit, user, GuessPayload{UserID: user, Text: text})
}

func (h *harness) pick(drawer uuid.UUID, key string, award Award) {
	h.send(realtime.KindPickWinner, drawer, PickPayload{DrawerUserID: drawer, WinnerUserID: key, AwardType: award})
}

// state decodes the most recent ROOM_STATE broadcast.
func (h *harness) state() RoomState {
	h.t.Helper()
	states := h.channel.ofKind(realtime.KindRoomState)
	require.NotEmpty(h.t, states, "no state was published")
	var s RoomState
	require.NoError(h.t, json.Unmarshal(states[len(states)-1].env.Payload, &s))
	return s
}

func (h *harness) points(s RoomState, id uuid.UUID) int {
	h.t.Helper()
	p, ok := s.Player(id)
	require.True(h.t, ok, "player %s not on roster", id)
	return p.Points
}

func (h *harness) waitPersist() {
	h.c.persistWG.Wait()
}

// finishTrivia runs the whole trivia round with no answers.
func (h *harness) finishTrivia() {
	h.t.Helper()
	require.NoError(h.t, h.command(h.host, CmdStartGame))
	settings := DefaultSettings()
	for range h.c.questions {
		h.advance(settings.QuestionDuration)
		h.advance(settings.QuestionRevealDuration)
	}
	require.Equal(h.t, PhaseResults, h.state().Phase())
}

func (h *harness) startPictionary() {
	h.t.Helper()
	h.finishTrivia()
	require.NoError(h.t, h.command(h.host, CmdStartPictionary))
	require.Equal(h.t, PhasePictionaryDraw, h.state().Phase())
}

// playFillerTurn runs the live turn with no guesses; the drawer picks two fillers.
func (h *harness) playFillerTurn() {
	h.t.Helper()
	settings := DefaultSettings()
	p := h.state().Pictionary()
	require.NotNil(h.t, p)
	drawer, last := p.DrawerUserID, p.IsLastTurn()

	h.advance(settings.DrawDuration)
	h.advance(settings.GuessDuration)
	require.Equal(h.t, PhasePictionaryReveal, h.state().Phase())
	h.pick(drawer, "filler-1", AwardClosest)
	h.pick(drawer, "filler-2", AwardFunniest)
	if last {
		h.advance(settings.FinalTurnGrace)
	} else {
		h.advance(settings.TurnGrace)
	}
}
