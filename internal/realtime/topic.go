// internal/realtime/topic.go
package realtime

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrTopicClosed is returned when joining a topic that was already released.
var ErrTopicClosed = errors.New("topic closed")

// Presence is what a participant tracks about itself on a room channel.
type Presence struct {
	UserID       uuid.UUID `json:"userId"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	Points       int       `json:"points"`
	JoinedAt     int64     `json:"joinedAt"`
}

// Listener receives channel traffic in-process. Implementations must not block.
type Listener interface {
	OnMessage(env Envelope)
	OnPresenceSync(snapshot []Presence)
	OnPresenceLeave(userID uuid.UUID)
}

// Subscriber is a single connection on a topic.
type Subscriber struct {
	ID     string
	UserID uuid.UUID
	out    chan Envelope
	closed bool
}

// Out yields every envelope delivered to this connection. It is closed on Leave.
func (s *Subscriber) Out() <-chan Envelope {
	return s.out
}

type presenceEntry struct {
	meta  Presence
	conns int
}

// Topic is the pub/sub channel of one room: subscribers, presence and listeners.
type Topic struct {
	Name string

	mu        sync.Mutex
	subs      map[string]*Subscriber
	presence  map[uuid.UUID]*presenceEntry
	listeners map[int]Listener
	nextID    int
	closed    bool

	onEmpty func(name string)
	logger  logrus.FieldLogger
}

func newTopic(name string, logger logrus.FieldLogger, onEmpty func(string)) *Topic {
	return &Topic{
		Name:      name,
		subs:      make(map[string]*Subscriber),
		presence:  make(map[uuid.UUID]*presenceEntry),
		listeners: make(map[int]Listener),
		onEmpty:   onEmpty,
		logger:    logger.WithField("topic", name),
	}
}

// Join subscribes a new connection and tracks meta as its user's presence.
// A user with several connections is present once; the latest meta wins.
func (t *Topic) Join(meta Presence, buffer int) (*Subscriber, error) {
	sub := &Subscriber{
		ID:     uuid.NewString(),
		UserID: meta.UserID,
		out:    make(chan Envelope, buffer),
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTopicClosed
	}
	t.subs[sub.ID] = sub
	if entry, ok := t.presence[meta.UserID]; ok {
		entry.meta = meta
		entry.conns++
	} else {
		t.presence[meta.UserID] = &presenceEntry{meta: meta, conns: 1}
	}
	snapshot := t.snapshotLocked()
	listeners := t.listenersLocked()
	t.mu.Unlock()

	t.logger.WithField("user", meta.UserID).Debug("subscriber joined")
	for _, l := range listeners {
		l.OnPresenceSync(snapshot)
	}
	return sub, nil
}

// Leave unsubscribes a connection. When it was the user's last one, listeners
// get a leave followed by a fresh sync.
func (t *Topic) Leave(sub *Subscriber) {
	t.mu.Lock()
	if _, ok := t.subs[sub.ID]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.subs, sub.ID)
	if !sub.closed {
		sub.closed = true
		close(sub.out)
	}

	left := false
	if entry, ok := t.presence[sub.UserID]; ok {
		entry.conns--
		if entry.conns <= 0 {
			delete(t.presence, sub.UserID)
			left = true
		}
	}
	snapshot := t.snapshotLocked()
	listeners := t.listenersLocked()
	empty := len(t.subs) == 0
	onEmpty := t.onEmpty
	t.mu.Unlock()

	t.logger.WithField("user", sub.UserID).Debug("subscriber left")
	if left {
		for _, l := range listeners {
			l.OnPresenceLeave(sub.UserID)
			l.OnPresenceSync(snapshot)
		}
	}
	if empty && onEmpty != nil {
		onEmpty(t.Name)
	}
}

// Presence lists the users currently present, oldest first.
func (t *Topic) Presence() []Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Broadcast delivers env to every connection except those of the listed users,
// and to every listener. Delivery to a full connection buffer is dropped.
func (t *Topic) Broadcast(env Envelope, except ...uuid.UUID) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	for _, sub := range t.subs {
		if excluded(sub.UserID, except) {
			continue
		}
		select {
		case sub.out <- env:
		default:
			t.logger.WithFields(logrus.Fields{
				"user": sub.UserID,
				"type": env.Type,
			}).Warn("subscriber buffer full, dropped message")
		}
	}
	listeners := t.listenersLocked()
	t.mu.Unlock()

	for _, l := range listeners {
		l.OnMessage(env)
	}
}

// Send delivers env to the connections of a single user only.
func (t *Topic) Send(userID uuid.UUID, env Envelope) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sub := range t.subs {
		if sub.UserID != userID {
			continue
		}
		select {
		case sub.out <- env:
		default:
			t.logger.WithField("user", userID).Warn("subscriber buffer full, dropped direct message")
		}
	}
}

// Listen registers an in-process listener and returns its removal func.
func (t *Topic) Listen(l Listener) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = l
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Size reports the number of live connections.
func (t *Topic) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (t *Topic) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for id, sub := range t.subs {
		if !sub.closed {
			sub.closed = true
			close(sub.out)
		}
		delete(t.subs, id)
	}
	t.presence = make(map[uuid.UUID]*presenceEntry)
	t.listeners = make(map[int]Listener)
}

func (t *Topic) snapshotLocked() []Presence {
	out := make([]Presence, 0, len(t.presence))
	for _, entry := range t.presence {
		out = append(out, entry.meta)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt != out[j].JoinedAt {
			return out[i].JoinedAt < out[j].JoinedAt
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out
}

func (t *Topic) listenersLocked() []Listener {
	out := make([]Listener, 0, len(t.listeners))
	for _, l := range t.listeners {
		out = append(out, l)
	}
	return out
}

func excluded(id uuid.UUID, except []uuid.UUID) bool {
	for _, e := range except {
		if e == id {
			return true
		}
	}
	return false
}
