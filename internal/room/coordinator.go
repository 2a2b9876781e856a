// internal/room/coordinator.go
package room

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/content"
	"github.com/rodrigobarba653/babygame/internal/models"
	"github.com/rodrigobarba653/babygame/internal/realtime"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotHost        = errors.New("only the host can do that")
	ErrPhase          = errors.New("not allowed in the current phase")
	ErrPlayerCount    = errors.New("a game needs between 2 and 10 players")
	ErrUnknownCommand = errors.New("unknown command")
	ErrStopped        = errors.New("room closed")
)

// Command is a host-only phase transition requested over the socket.
type Command string

const (
	CmdStartGame       Command = "START_GAME"
	CmdStartPictionary Command = "START_PICTIONARY"
	CmdContinue        Command = "CONTINUE"
	CmdReveal          Command = "REVEAL"
)

// SessionWriter persists the transitions of a session record.
type SessionWriter interface {
	UpdateStatus(ctx context.Context, code string, status models.SessionStatus) error
	MarkEnded(ctx context.Context, code string, winnerID uuid.UUID, at time.Time) error
}

// ResultRecorder archives the outcome of a finished game.
type ResultRecorder interface {
	Record(ctx context.Context, result models.GameResult) error
}

// Channel is the room's pub/sub topic as seen by its coordinator.
type Channel interface {
	Broadcast(env realtime.Envelope, except ...uuid.UUID)
	Presence() []realtime.Presence
	Listen(l realtime.Listener) func()
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Channel   Channel
	Sessions  SessionWriter
	Results   ResultRecorder
	Scheduler Scheduler
	Logger    logrus.FieldLogger
	Questions []content.Question
	Prompts   func() []string

	// OnClose is called once the room has torn itself down on expiry.
	OnClose func(code string)
}

const (
	inboxSize      = 256
	seenCapacity   = 1024
	persistTries   = 3
	persistTimeout = 5 * time.Second
)

type event interface{}

type (
	inboundEvent struct{ env realtime.Envelope }
	localEvent   struct{ env realtime.Envelope }
	syncEvent    struct{ snapshot []realtime.Presence }
	leaveEvent   struct{ userID uuid.UUID }
	commandEvent struct {
		actor uuid.UUID
		cmd   Command
		done  chan error
	}
	timerFired struct {
		slot timerSlot
		seq  uint64
	}
)

type timerSlot string

const (
	slotPhase  timerSlot = "phase"
	slotHost   timerSlot = "host"
	slotExpiry timerSlot = "expiry"
)

func leaveSlot(id uuid.UUID) timerSlot {
	return timerSlot("leave:" + id.String())
}

type pendingTimer struct {
	seq    uint64
	handle Handle
	fire   func()
}

// published is what concurrent readers may see of the last broadcast state.
type published struct {
	phase   Phase
	drawer  uuid.UUID
	version uint64
}

// Coordinator owns the canonical state of one room. Every mutation runs on
// the goroutine started by Start, one event at a time.
type Coordinator struct {
	id        string
	localUser uuid.UUID
	settings  Settings

	channel   Channel
	sessions  SessionWriter
	results   ResultRecorder
	sched     Scheduler
	logger    logrus.FieldLogger
	questions []content.Question
	prompts   func() []string
	onClose   func(string)

	state   RoomState
	status  models.SessionStatus
	present map[uuid.UUID]bool
	retired map[uuid.UUID]Player
	// hostAway is set once the host has been declared disconnected.
	hostAway bool
	deck     []string

	timers map[timerSlot]*pendingTimer
	seq    uint64
	seen   *seenSet

	inbox        chan event
	quit         chan struct{}
	done         chan struct{}
	stopOnce     sync.Once
	persistWG    sync.WaitGroup
	retryBackoff time.Duration
	unlisten     func()
	last         atomic.Pointer[published]
}

// New builds the coordinator of sess acting as localUser. It only mutates
// state when localUser is the session host.
func New(sess models.Session, localUser uuid.UUID, settings Settings, deps Deps) *Coordinator {
	if deps.Scheduler == nil {
		deps.Scheduler = WallClock()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Questions == nil {
		deps.Questions = content.TriviaQuestions
	}
	if deps.Prompts == nil {
		deps.Prompts = func() []string {
			return append([]string(nil), content.DrawingPrompts...)
		}
	}

	c := &Coordinator{
		id:        "room-" + uuid.NewString(),
		localUser: localUser,
		settings:  settings,
		channel:   deps.Channel,
		sessions:  deps.Sessions,
		results:   deps.Results,
		sched:     deps.Scheduler,
		logger:    deps.Logger.WithField("room", sess.Code),
		questions: deps.Questions,
		prompts:   deps.Prompts,
		onClose:   deps.OnClose,
		state: RoomState{
			Code:   sess.Code,
			HostID: sess.HostID,
			Stage:  stageFor(sess.Status),
		},
		status:       sess.Status,
		present:      make(map[uuid.UUID]bool),
		retired:      make(map[uuid.UUID]Player),
		timers:       make(map[timerSlot]*pendingTimer),
		seen:         newSeenSet(seenCapacity),
		inbox:        make(chan event, inboxSize),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		retryBackoff: 250 * time.Millisecond,
	}

	if sess.Status != models.StatusEnded && !sess.ExpiresAt.IsZero() {
		c.schedule(slotExpiry, sess.ExpiresAt.Sub(c.sched.Now()), c.expire)
	}
	return c
}

// stageFor resumes a room from the persisted session status.
func stageFor(status models.SessionStatus) Stage {
	switch status {
	case models.StatusTriviaComplete:
		return &Results{After: GameTrivia}
	case models.StatusEnded:
		return &Results{After: GamePictionary}
	}
	return &Lobby{}
}

func (c *Coordinator) Code() string { return c.state.Code }

func (c *Coordinator) HostID() uuid.UUID { return c.state.HostID }

// Start subscribes to the channel, seeds presence and runs the event loop.
func (c *Coordinator) Start() {
	c.unlisten = c.channel.Listen(c)
	c.post(syncEvent{snapshot: c.channel.Presence()})
	go c.run()
}

func (c *Coordinator) run() {
	defer close(c.done)
	c.logger.Info("room coordinator started")
	for {
		select {
		case <-c.quit:
			c.shutdown()
			return
		case ev := <-c.inbox:
			c.dispatch(ev)
		}
	}
}

func (c *Coordinator) shutdown() {
	for slot := range c.timers {
		c.cancel(slot)
	}
	if c.unlisten != nil {
		c.unlisten()
	}
	c.logger.Info("room coordinator stopped")
}

// Stop ends the event loop. It does not wait; use Done for that.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
}

func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) post(ev event) {
	select {
	case c.inbox <- ev:
	case <-c.quit:
	}
}

// Submit applies an action the host itself originated, then emits it.
func (c *Coordinator) Submit(env realtime.Envelope) {
	c.post(localEvent{env: env})
}

// Command runs a host command and reports why it was refused, if it was.
func (c *Coordinator) Command(ctx context.Context, actor uuid.UUID, cmd Command) error {
	select {
	case <-c.quit:
		return ErrStopped
	default:
	}
	ev := commandEvent{actor: actor, cmd: cmd, done: make(chan error, 1)}
	select {
	case c.inbox <- ev:
	case <-c.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ev.done:
		return err
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) holdsHostRole() bool {
	return c.localUser == c.state.HostID
}

// dispatch is the single entry point of every state transition.
func (c *Coordinator) dispatch(ev event) {
	if !c.holdsHostRole() {
		if cmd, ok := ev.(commandEvent); ok {
			cmd.done <- ErrNotHost
		}
		c.logger.Debug("not holding host role, event ignored")
		return
	}

	switch ev := ev.(type) {
	case timerFired:
		c.fireTimer(ev)
	case syncEvent:
		c.applySync(ev.snapshot)
	case leaveEvent:
		c.applyLeave(ev.userID)
	case inboundEvent:
		c.applyAction(ev.env)
	case localEvent:
		if c.applyAction(ev.env) {
			ev.env.Origin = c.id
			c.channel.Broadcast(ev.env)
		}
	case commandEvent:
		ev.done <- c.runCommand(ev.actor, ev.cmd)
	}
}

func (c *Coordinator) runCommand(actor uuid.UUID, cmd Command) error {
	if actor != c.state.HostID {
		return ErrNotHost
	}
	var err error
	switch cmd {
	case CmdStartGame:
		err = c.startTrivia()
	case CmdStartPictionary:
		err = c.startPictionary()
	case CmdContinue:
		err = c.continueTurn()
	case CmdReveal:
		err = c.finalReveal()
	default:
		err = ErrUnknownCommand
	}
	if err != nil {
		c.logger.WithError(err).WithField("command", cmd).Debug("command refused")
	}
	return err
}

// finalReveal moves a finished game to the reveal screen.
func (c *Coordinator) finalReveal() error {
	if _, ok := c.state.Stage.(*Results); !ok || c.status != models.StatusEnded {
		return ErrPhase
	}
	c.state.Stage = &FinalReveal{}
	c.state.Timer = nil
	c.logger.Info("final reveal")
	c.publish()
	return nil
}

// schedule arms the timer in slot, replacing whatever was pending there.
func (c *Coordinator) schedule(slot timerSlot, d time.Duration, fire func()) {
	c.cancel(slot)
	if d < 0 {
		d = 0
	}
	c.seq++
	seq := c.seq
	handle := c.sched.AfterFunc(d, func() {
		c.post(timerFired{slot: slot, seq: seq})
	})
	c.timers[slot] = &pendingTimer{seq: seq, handle: handle, fire: fire}
}

func (c *Coordinator) cancel(slot timerSlot) {
	if t, ok := c.timers[slot]; ok {
		t.handle.Stop()
		delete(c.timers, slot)
	}
}

func (c *Coordinator) pending(slot timerSlot) bool {
	_, ok := c.timers[slot]
	return ok
}

// fireTimer runs a timer callback unless it was cancelled or replaced after
// the underlying timer had already fired.
func (c *Coordinator) fireTimer(ev timerFired) {
	t, ok := c.timers[ev.slot]
	if !ok || t.seq != ev.seq {
		return
	}
	delete(c.timers, ev.slot)
	t.fire()
}

func (c *Coordinator) expire() {
	c.logger.Info("session lifetime passed, closing room")
	c.emit(realtime.KindRoomClosed, ClosedPayload{Reason: "expired"})
	c.Stop()
	if c.onClose != nil {
		c.onClose(c.state.Code)
	}
}

// persist writes to an external store off the loop, retrying a few times.
// The in-memory transition never waits for it.
func (c *Coordinator) persist(what string, write func(ctx context.Context) error) {
	logger := c.logger.WithField("write", what)
	c.persistWG.Add(1)
	go func() {
		defer c.persistWG.Done()
		for attempt := 1; attempt <= persistTries; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			err := write(ctx)
			cancel()
			if err == nil {
				logger.Debug("store write done")
				return
			}
			logger.WithError(err).WithField("attempt", attempt).Warn("store write failed")
			time.Sleep(c.retryBackoff * time.Duration(attempt))
		}
		logger.Error("store write abandoned")
	}()
}

func (c *Coordinator) now() time.Time {
	return c.sched.Now()
}
