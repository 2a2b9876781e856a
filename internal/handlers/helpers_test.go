package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/auth"
	"github.com/rodrigobarba653/babygame/internal/cache"
	"github.com/rodrigobarba653/babygame/internal/config"
	"github.com/rodrigobarba653/babygame/internal/database"
	"github.com/rodrigobarba653/babygame/internal/models"
	"github.com/rodrigobarba653/babygame/internal/realtime"
	"github.com/rodrigobarba653/babygame/internal/room"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeSessions is an in-memory session store.
type fakeSessions struct {
	mu     sync.Mutex
	byCode map[string]models.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byCode: make(map[string]models.Session)}
}

func (f *fakeSessions) Create(ctx context.Context, hostID uuid.UUID, ttl time.Duration) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := cache.GenerateCode()
	for {
		if _, taken := f.byCode[code]; !taken {
			break
		}
		code = cache.GenerateCode()
	}
	now := time.Now()
	sess := models.Session{Code: code, HostID: hostID, CreatedAt: now, ExpiresAt: now.Add(ttl), Status: models.StatusLobby}
	f.byCode[code] = sess
	return &sess, nil
}

func (f *fakeSessions) Get(ctx context.Context, code string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.byCode[code]
	if !ok {
		return nil, cache.ErrSessionNotFound
	}
	return &sess, nil
}

func (f *fakeSessions) Delete(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byCode, code)
	return nil
}

func (f *fakeSessions) UpdateStatus(ctx context.Context, code string, status models.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.byCode[code]
	if !ok {
		return cache.ErrSessionNotFound
	}
	sess.Status = status
	f.byCode[code] = sess
	return nil
}

func (f *fakeSessions) MarkEnded(ctx context.Context, code string, winnerID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.byCode[code]
	if !ok {
		return cache.ErrSessionNotFound
	}
	sess.Status = models.StatusEnded
	sess.WinnerID = winnerID
	sess.ExpiresAt = at
	f.byCode[code] = sess
	return nil
}

func (f *fakeSessions) put(sess models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byCode[sess.Code] = sess
}

type fakeProfiles struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.Profile
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, database.ErrProfileNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) UpsertProfile(ctx context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	f.byID[p.ID] = *p
	return nil
}

func (f *fakeProfiles) add(id uuid.UUID, name string) {
	f.UpsertProfile(context.Background(), &models.Profile{ID: id, Name: name, Relationship: models.RelationshipFriend})
}

type testEnv struct {
	server   *Server
	sessions *fakeSessions
	profiles *fakeProfiles
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, auth.Init())

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sessions := newFakeSessions()
	profiles := &fakeProfiles{byID: make(map[uuid.UUID]models.Profile)}
	hub := realtime.NewHub(logger)
	rooms := room.NewManager(hub, sessions, room.DefaultSettings(), logger)
	hub.OnEmpty = rooms.Remove

	s := NewServer(config.Default(), sessions, profiles, hub, rooms, logger)
	return &testEnv{server: s, sessions: sessions, profiles: profiles, handler: s.Routes()}
}

// do sends a request as user (uuid.Nil for anonymous) and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, user uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != uuid.Nil {
		token, err := auth.CreateJWT(user)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
