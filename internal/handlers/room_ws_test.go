package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/auth"
	"github.com/rodrigobarba653/babygame/internal/models"
	"github.com/rodrigobarba653/babygame/internal/realtime"
	"github.com/rodrigobarba653/babygame/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialRoom(t *testing.T, srv *httptest.Server, code string, user uuid.UUID, protos ...string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if user != uuid.Nil {
		token, err := auth.CreateJWT(user)
		require.NoError(t, err)
		header.Add("Cookie", auth.CookieName+"="+token)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/room/" + code
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: protos, HTTPHeader: header})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

// closeStatus reads until the server closes the socket and returns the code.
func closeStatus(t *testing.T, c *websocket.Conn) websocket.StatusCode {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		if _, _, err := c.Read(ctx); err != nil {
			return websocket.CloseStatus(err)
		}
	}
}

func readUntil(t *testing.T, c *websocket.Conn, match func(realtime.Envelope) bool) realtime.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var env realtime.Envelope
		require.NoError(t, wsjson.Read(ctx, c, &env))
		if match(env) {
			return env
		}
	}
}

func stateWhere(t *testing.T, pred func(*room.RoomState) bool) func(realtime.Envelope) bool {
	return func(env realtime.Envelope) bool {
		if env.Type != realtime.KindRoomState {
			return false
		}
		var st room.RoomState
		require.NoError(t, env.Decode(&st))
		return pred(&st)
	}
}

func sendFrame(t *testing.T, c *websocket.Conn, msg clientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, msg))
}

func TestRoomSocketRejections(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	host, guest, stranger := uuid.New(), uuid.New(), uuid.New()
	env.profiles.add(host, "Host")
	env.profiles.add(guest, "Guest")
	env.sessions.put(models.Session{Code: "OPEN", HostID: host, Status: models.StatusLobby, ExpiresAt: time.Now().Add(time.Hour)})
	env.sessions.put(models.Session{Code: "LATE", HostID: host, Status: models.StatusLobby, ExpiresAt: time.Now().Add(-time.Minute)})

	tests := []struct {
		name   string
		code   string
		user   uuid.UUID
		protos []string
		want   websocket.StatusCode
	}{
		{"no subprotocol", "OPEN", guest, nil, BadSubprotocolError},
		{"anonymous", "OPEN", uuid.Nil, []string{"room"}, InvalidAuthTokenError},
		{"no profile", "OPEN", stranger, []string{"room"}, ProfileRequiredError},
		{"malformed code", "OP3N", guest, []string{"room"}, InvalidRoomCodeError},
		{"unknown code", "NOPE", guest, []string{"room"}, InvalidRoomCodeError},
		{"expired", "LATE", guest, []string{"room"}, SessionExpiredError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := dialRoom(t, srv, tt.code, tt.user, tt.protos...)
			assert.Equal(t, tt.want, closeStatus(t, c))
		})
	}
}

func TestRoomSocketGameFlow(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	host, guest := uuid.New(), uuid.New()
	env.profiles.add(host, "Host")
	env.profiles.add(guest, "Guest")
	env.sessions.put(models.Session{Code: "BABY", HostID: host, Status: models.StatusLobby, ExpiresAt: time.Now().Add(time.Hour)})

	// guest first: nobody runs the room yet
	guestConn := dialRoom(t, srv, "BABY", guest, "room")
	status := readUntil(t, guestConn, func(e realtime.Envelope) bool { return e.Type == realtime.KindHostStatus })
	var hs room.HostStatusPayload
	require.NoError(t, status.Decode(&hs))
	assert.False(t, hs.Connected)

	hostConn := dialRoom(t, srv, "BABY", host, "room")
	bothIn := stateWhere(t, func(st *room.RoomState) bool { return len(st.Players) == 2 })
	readUntil(t, hostConn, bothIn)
	readUntil(t, guestConn, bothIn)

	_, ok := env.server.Rooms.Get("BABY")
	require.True(t, ok)

	sendFrame(t, guestConn, clientMessage{Type: string(room.CmdStartGame)})
	refused := readUntil(t, guestConn, func(e realtime.Envelope) bool { return e.Type == realtime.KindError })
	var ep errorPayload
	require.NoError(t, refused.Decode(&ep))
	assert.Equal(t, room.ErrNotHost.Error(), ep.Message)

	sendFrame(t, hostConn, clientMessage{Type: string(room.CmdStartGame)})
	readUntil(t, guestConn, stateWhere(t, func(st *room.RoomState) bool {
		return st.Phase() == room.PhaseTriviaQuestion
	}))

	zero, one := 0, 1
	sendFrame(t, guestConn, clientMessage{
		Type:    string(realtime.KindAnswerSubmit),
		ID:      uuid.New(),
		Payload: mustJSON(t, room.AnswerPayload{UserID: guest, QuestionIndex: &zero, OptionIndex: &one}),
	})
	readUntil(t, hostConn, stateWhere(t, func(st *room.RoomState) bool {
		tr := st.Trivia()
		return tr != nil && tr.Answers[guest] == 1
	}))

	// the host plays too; its own answers go straight to the coordinator
	sendFrame(t, hostConn, clientMessage{
		Type:    string(realtime.KindAnswerSubmit),
		Payload: mustJSON(t, room.AnswerPayload{UserID: host, QuestionIndex: &zero, OptionIndex: &zero}),
	})
	readUntil(t, guestConn, stateWhere(t, func(st *room.RoomState) bool {
		tr := st.Trivia()
		if tr == nil {
			return false
		}
		got, ok := tr.Answers[host]
		return ok && got == 0
	}))

	sendFrame(t, guestConn, clientMessage{Type: "NOT_A_THING"})
	readUntil(t, guestConn, func(e realtime.Envelope) bool { return e.Type == realtime.KindError })

	coord, _ := env.server.Rooms.Get("BABY")
	assert.Equal(t, host, coord.HostID())
}

func TestRoomTornDownWhenEveryoneLeaves(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	host := uuid.New()
	env.profiles.add(host, "Host")
	env.sessions.put(models.Session{Code: "SOLO", HostID: host, Status: models.StatusLobby, ExpiresAt: time.Now().Add(time.Hour)})

	c := dialRoom(t, srv, "SOLO", host, "room")
	readUntil(t, c, func(e realtime.Envelope) bool { return e.Type == realtime.KindRoomState })
	require.Equal(t, 1, env.server.Rooms.Len())

	c.Close(websocket.StatusNormalClosure, "bye")
	assert.Eventually(t, func() bool { return env.server.Rooms.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}
