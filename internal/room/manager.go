// internal/room/manager.go
package room

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/content"
	"github.com/rodrigobarba653/babygame/internal/models"
	"github.com/rodrigobarba653/babygame/internal/realtime"
	"github.com/sirupsen/logrus"
)

// Manager keeps one coordinator per live room code.
type Manager struct {
	mu    sync.Mutex
	rooms map[string]*Coordinator

	hub      *realtime.Hub
	sessions SessionWriter
	settings Settings
	logger   logrus.FieldLogger

	// Results, when set, archives every finished game.
	Results ResultRecorder

	// NewScheduler is overridable for tests.
	NewScheduler func() Scheduler
	// Prompts deals the drawing deck of a new room.
	Prompts func() []string
}

func NewManager(hub *realtime.Hub, sessions SessionWriter, settings Settings, logger logrus.FieldLogger) *Manager {
	return &Manager{
		rooms:        make(map[string]*Coordinator),
		hub:          hub,
		sessions:     sessions,
		settings:     settings,
		logger:       logger,
		NewScheduler: WallClock,
		Prompts:      shuffledDeck,
	}
}

func shuffledDeck() []string {
	return content.ShuffledPrompts(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// Get returns the coordinator of a live room.
func (m *Manager) Get(code string) (*Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rooms[code]
	return c, ok
}

// Ensure returns the coordinator of sess, building and starting it when the
// host is the one joining. Other users never create a room.
func (m *Manager) Ensure(sess *models.Session, joining uuid.UUID) (*Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.rooms[sess.Code]; ok {
		select {
		case <-c.Done():
			// stopped but not yet forgotten
			delete(m.rooms, sess.Code)
		default:
			return c, true
		}
	}
	if joining != sess.HostID {
		return nil, false
	}

	c := New(*sess, joining, m.settings, Deps{
		Channel:   m.hub.Topic(sess.Code),
		Sessions:  m.sessions,
		Results:   m.Results,
		Scheduler: m.NewScheduler(),
		Prompts:   m.Prompts,
		Logger:    m.logger,
		OnClose:   m.Remove,
	})
	m.rooms[sess.Code] = c
	c.Start()
	m.logger.WithFields(logrus.Fields{"room": sess.Code, "status": sess.Status}).Info("room opened")
	return c, true
}

// Remove stops and forgets the coordinator of code. It is wired as the hub's
// OnEmpty callback.
func (m *Manager) Remove(code string) {
	m.mu.Lock()
	c, ok := m.rooms[code]
	delete(m.rooms, code)
	m.mu.Unlock()

	if !ok {
		return
	}
	c.Stop()
	m.logger.WithField("room", code).Info("room closed")
}

// Len reports the number of live rooms.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}
