// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/auth"
	"github.com/rodrigobarba653/babygame/internal/cache"
	"github.com/rodrigobarba653/babygame/internal/database"
	"github.com/rodrigobarba653/babygame/internal/middleware"
	"github.com/rodrigobarba653/babygame/internal/realtime"
	"github.com/rodrigobarba653/babygame/internal/room"
	"github.com/sirupsen/logrus"
)

const (
	roomSubprotocol  = "room"
	subscriberBuffer = 64
	directBuffer     = 8
	joinAttempts     = 3
	writeTimeout     = 5 * time.Second
	commandTimeout   = 5 * time.Second
	pingInterval     = 30 * time.Second
)

// clientMessage is a frame sent by a participant. Type is an action kind or a
// host command; ID lets a client resend an action without it applying twice.
type clientMessage struct {
	Type    string          `json:"type"`
	ID      uuid.UUID       `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// roomConn is one participant's socket on a room.
type roomConn struct {
	server *Server
	ws     *websocket.Conn
	code   string
	user   uuid.UUID
	topic  *realtime.Topic
	sub    *realtime.Subscriber
	direct chan realtime.Envelope
	logger logrus.FieldLogger
}

// RoomWSHandler upgrades a participant onto the room channel of {code}.
// Validation failures close the socket with one of the custom codes in ws_codes.go.
func RoomWSHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{roomSubprotocol},
			OriginPatterns: s.Config.AllowedOrigins,
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != roomSubprotocol {
			c.Close(BadSubprotocolError, "client must speak the room subprotocol")
			return
		}

		userID, err := auth.UserFromRequest(r)
		if err != nil {
			c.Close(InvalidAuthTokenError, "authentication required")
			return
		}

		code := cache.NormalizeCode(chi.URLParam(r, "code"))
		if !cache.ValidCode(code) {
			c.Close(InvalidRoomCodeError, "invalid room code")
			return
		}
		sess, err := s.Sessions.Get(r.Context(), code)
		if errors.Is(err, cache.ErrSessionNotFound) {
			c.Close(InvalidRoomCodeError, "room does not exist")
			return
		}
		if err != nil {
			s.Logger.WithError(err).WithField("code", code).Error("failed to load session for socket")
			c.Close(websocket.StatusInternalError, "could not load session")
			return
		}
		if sess.Expired(s.Now()) {
			c.Close(SessionExpiredError, "session expired")
			return
		}

		profile, err := s.Profiles.GetProfile(r.Context(), userID)
		if errors.Is(err, database.ErrProfileNotFound) {
			c.Close(ProfileRequiredError, "create a profile before joining")
			return
		}
		if err != nil {
			s.Logger.WithError(err).WithField("user", userID).Error("failed to load profile for socket")
			c.Close(websocket.StatusInternalError, "could not load profile")
			return
		}

		topic, sub, err := s.joinTopic(code, realtime.Presence{
			UserID:       userID,
			Name:         profile.Name,
			Relationship: string(profile.Relationship),
			JoinedAt:     s.Now().UnixMilli(),
		})
		if err != nil {
			s.Logger.WithError(err).WithField("code", code).Error("failed to join room topic")
			c.Close(websocket.StatusInternalError, "could not join room")
			return
		}

		rc := &roomConn{
			server: s,
			ws:     c,
			code:   code,
			user:   userID,
			topic:  topic,
			sub:    sub,
			direct: make(chan realtime.Envelope, directBuffer),
			logger: s.Logger.WithFields(logrus.Fields{"room": code, "user": userID, "conn": sub.ID}),
		}
		defer topic.Leave(sub)

		// The joining user's own host opens the room; everyone else needs it open already.
		if _, ok := s.Rooms.Ensure(sess, userID); !ok {
			rc.sendDirect(realtime.KindHostStatus, room.HostStatusPayload{Connected: false})
		}

		middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go func() {
			rc.writePump(ctx)
			cancel()
		}()
		err = rc.readPump(ctx)

		middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
	}
}

// joinTopic subscribes to the room topic, retrying when it was torn down
// between lookup and join.
func (s *Server) joinTopic(code string, meta realtime.Presence) (*realtime.Topic, *realtime.Subscriber, error) {
	for attempt := 0; attempt < joinAttempts; attempt++ {
		topic := s.Hub.Topic(code)
		sub, err := topic.Join(meta, subscriberBuffer)
		if errors.Is(err, realtime.ErrTopicClosed) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return topic, sub, nil
	}
	return nil, nil, realtime.ErrTopicClosed
}

// readPump handles frames from the participant until the socket closes.
func (rc *roomConn) readPump(ctx context.Context) error {
	for {
		typ, data, err := rc.ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			rc.logger.Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			rc.sendError("invalid JSON format")
			continue
		}
		rc.handle(ctx, msg)
	}
}

func (rc *roomConn) handle(ctx context.Context, msg clientMessage) {
	kind := realtime.Kind(msg.Type)
	switch kind {
	case realtime.KindAnswerSubmit, realtime.KindGuessSubmit, realtime.KindPickWinner:
		rc.publishAction(rc.envelope(kind, msg))
	case realtime.KindStrokeBatch, realtime.KindClearCanvas:
		coord, ok := rc.server.Rooms.Get(rc.code)
		if !ok || !coord.RelayStroke(rc.envelope(kind, msg)) {
			rc.logger.WithField("type", kind).Debug("dropped drawing event")
		}
	default:
		cmd := room.Command(strings.ToUpper(msg.Type))
		switch cmd {
		case room.CmdStartGame, room.CmdStartPictionary, room.CmdContinue, room.CmdReveal:
			rc.runCommand(ctx, cmd)
		default:
			rc.logger.Warnf("unknown message type %q", msg.Type)
			rc.sendError("unknown message type: " + msg.Type)
		}
	}
}

// envelope stamps a client frame with its authenticated sender and this connection.
func (rc *roomConn) envelope(kind realtime.Kind, msg clientMessage) realtime.Envelope {
	id := msg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return realtime.Envelope{
		ID:      id,
		Type:    kind,
		Origin:  rc.sub.ID,
		Sender:  rc.user,
		Payload: msg.Payload,
	}
}

// publishAction hands the host's own actions to its coordinator and puts
// everyone else's on the room channel, where the coordinator picks them up.
func (rc *roomConn) publishAction(env realtime.Envelope) {
	if coord, ok := rc.server.Rooms.Get(rc.code); ok && coord.HostID() == rc.user {
		coord.Submit(env)
		return
	}
	rc.topic.Broadcast(env)
}

func (rc *roomConn) runCommand(ctx context.Context, cmd room.Command) {
	coord, ok := rc.server.Rooms.Get(rc.code)
	if !ok {
		rc.sendError(room.ErrNotHost.Error())
		return
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := coord.Command(ctx, rc.user, cmd); err != nil {
		rc.logger.WithError(err).WithField("command", cmd).Info("command refused")
		rc.sendError(err.Error())
	}
}

func (rc *roomConn) sendError(message string) {
	rc.sendDirect(realtime.KindError, errorPayload{Message: message})
}

// sendDirect queues a message for this connection only.
func (rc *roomConn) sendDirect(kind realtime.Kind, payload interface{}) {
	env, err := realtime.NewEnvelope(kind, "", payload)
	if err != nil {
		rc.logger.WithError(err).Error("failed to build direct message")
		return
	}
	select {
	case rc.direct <- env:
	default:
		rc.logger.WithField("type", kind).Warn("direct queue full, dropping message")
	}
}

// writePump delivers room traffic and direct replies, and keeps the socket alive.
func (rc *roomConn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-rc.sub.Out():
			if !ok {
				rc.ws.Close(websocket.StatusGoingAway, "room closed")
				return
			}
			if err := rc.write(ctx, room.ForViewer(env, rc.user)); err != nil {
				return
			}
			if env.Type == realtime.KindRoomClosed {
				rc.ws.Close(websocket.StatusNormalClosure, "room closed")
				return
			}
		case env := <-rc.direct:
			if err := rc.write(ctx, env); err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := rc.ws.Ping(pingCtx)
			cancel()
			if err != nil {
				rc.logger.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

func (rc *roomConn) write(ctx context.Context, env realtime.Envelope) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(writeCtx, rc.ws, env); err != nil {
		rc.logger.WithError(err).Warn("failed to write to socket")
		return err
	}
	return nil
}
