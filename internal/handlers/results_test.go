package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	wins      map[uuid.UUID][]models.GameResult
	lastLimit int
}

func (f *fakeArchive) WinsByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.GameResult, error) {
	f.lastLimit = limit
	return f.wins[userID], nil
}

func TestWinsHandler(t *testing.T) {
	env := newTestEnv(t)
	user, other := uuid.New(), uuid.New()

	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/api/results", user, nil).Code)

	archive := &fakeArchive{wins: map[uuid.UUID][]models.GameResult{
		user: {{Code: "WINS", WinnerID: user, EndedAt: time.Now()}},
	}}
	env.server.Results = archive

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/results", uuid.Nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/results?limit=0", user, nil).Code)

	rec := env.do(t, http.MethodGet, "/api/results?limit=5", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.GameResult
	decodeBody(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "WINS", got[0].Code)
	assert.Equal(t, 5, archive.lastLimit)

	rec = env.do(t, http.MethodGet, "/api/results", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	assert.Equal(t, defaultWinsLimit, archive.lastLimit)
}
