// internal/realtime/hub.go
package realtime

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub manages the topics of all live rooms in memory.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*Topic
	logger logrus.FieldLogger

	// OnEmpty is called after a topic lost its last subscriber and was removed.
	// Typically assigned by the code that owns per-room state, e.g.
	//   hub.OnEmpty = manager.Remove
	OnEmpty func(name string)
}

func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		topics: make(map[string]*Topic),
		logger: logger,
	}
}

// Topic returns the topic called name, creating it if needed.
func (h *Hub) Topic(name string) *Topic {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[name]
	if !ok {
		t = newTopic(name, h.logger, h.release)
		h.topics[name] = t
		h.logger.WithField("topic", name).Info("topic created")
	}
	return t
}

// Lookup returns an existing topic.
func (h *Hub) Lookup(name string) (*Topic, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[name]
	return t, ok
}

func (h *Hub) release(name string) {
	h.mu.Lock()
	t, ok := h.topics[name]
	if !ok || t.Size() > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.topics, name)
	onEmpty := h.OnEmpty
	h.mu.Unlock()

	t.close()
	h.logger.WithField("topic", name).Info("topic empty, removed")
	if onEmpty != nil {
		onEmpty(name)
	}
}
