// internal/room/manager_test.go
package room

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/content"
	"github.com/rodrigobarba653/babygame/internal/models"
	"github.com/rodrigobarba653/babygame/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(clock *fakeClock) (*Manager, *realtime.Hub) {
	hub := realtime.NewHub(quietLogger())
	m := NewManager(hub, &fakeSessions{}, DefaultSettings(), quietLogger())
	m.NewScheduler = func() Scheduler { return clock }
	hub.OnEmpty = m.Remove
	return m, hub
}

func TestManagerOnlyHostOpensRoom(t *testing.T) {
	clock := newFakeClock()
	m, hub := newTestManager(clock)
	host, guest := uuid.New(), uuid.New()
	sess := &models.Session{Code: "ROOM", HostID: host, Status: models.StatusLobby, ExpiresAt: clock.Now().Add(time.Hour)}

	_, ok := m.Ensure(sess, guest)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	c, ok := m.Ensure(sess, host)
	require.True(t, ok)
	again, ok := m.Ensure(sess, guest)
	require.True(t, ok)
	assert.Same(t, c, again)

	topic := hub.Topic("ROOM")
	sub, err := topic.Join(realtime.Presence{UserID: host, Name: "Host", JoinedAt: 1}, 16)
	require.NoError(t, err)

	select {
	case env := <-sub.Out():
		assert.Equal(t, realtime.KindRoomState, env.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("host never received the room state")
	}

	topic.Leave(sub)
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator not stopped after the room emptied")
	}
	assert.Equal(t, 0, m.Len())
}

func TestManagerClosesExpiredRoom(t *testing.T) {
	clock := newFakeClock()
	m, hub := newTestManager(clock)
	host := uuid.New()
	sess := &models.Session{Code: "OLDR", HostID: host, Status: models.StatusLobby, ExpiresAt: clock.Now().Add(time.Minute)}

	c, ok := m.Ensure(sess, host)
	require.True(t, ok)
	sub, err := hub.Topic("OLDR").Join(realtime.Presence{UserID: host, JoinedAt: 1}, 16)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expired room still running")
	}
	assert.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	var closed bool
	for len(sub.Out()) > 0 {
		if env := <-sub.Out(); env.Type == realtime.KindRoomClosed {
			closed = true
		}
	}
	assert.True(t, closed, "participants are told the room closed")
}

func TestManagerDealsShuffledPrompts(t *testing.T) {
	clock := newFakeClock()
	m, _ := newTestManager(clock)
	host := uuid.New()

	want := append([]string(nil), content.DrawingPrompts...)
	sort.Strings(want)

	openers := make(map[string]int)
	for i := 0; i < 20; i++ {
		sess := &models.Session{Code: fmt.Sprintf("R%03d", i), HostID: host, Status: models.StatusLobby, ExpiresAt: clock.Now().Add(time.Hour)}
		c, ok := m.Ensure(sess, host)
		require.True(t, ok)

		deck := c.prompts()
		openers[deck[0]]++
		sort.Strings(deck)
		assert.Equal(t, want, deck, "every room gets the whole prompt list")
		m.Remove(sess.Code)
	}
	assert.Greater(t, len(openers), 1, "rooms do not all open on the same prompt")
}
