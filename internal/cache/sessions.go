// internal/cache/sessions.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rodrigobarba653/babygame/internal/models"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength      = 4
	maxCodeAttempts = 10
	keyPrefix       = "session:"
)

var (
	// ErrSessionNotFound is returned when no record exists for a code.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoFreeCode is returned when every generated code was already taken.
	ErrNoFreeCode = errors.New("failed to generate unique session code")

	errCodeTaken = errors.New("session code taken")
)

// GenerateCode returns a random 4-letter uppercase session code.
func GenerateCode() string {
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// NormalizeCode upper-cases and trims user input.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidCode reports whether code has the session code shape.
func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// SessionStore keeps session records as Redis hashes keyed by code.
// Records outlive their expiresAt by the retention window so the results and
// reveal screens can still read an ended session.
type SessionStore struct {
	rdb       *redis.Client
	retention time.Duration
	newCode   func() string
}

// NewSessionStore wraps a connected client.
func NewSessionStore(rdb *redis.Client, retention time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, retention: retention, newCode: GenerateCode}
}

func sessionKey(code string) string {
	return keyPrefix + code
}

// Create allocates a fresh code for hostID with status lobby.
func (s *SessionStore) Create(ctx context.Context, hostID uuid.UUID, ttl time.Duration) (*models.Session, error) {
	now := time.Now().UTC()
	sess := &models.Session{
		HostID:    hostID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Status:    models.StatusLobby,
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.newCode()
		key := sessionKey(code)

		// Fields and TTL land in one transaction, so a failed write never
		// leaves a half-claimed code behind.
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return errCodeTaken
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key,
					"code", code,
					"host_id", hostID.String(),
					"created_at", now.Format(time.RFC3339Nano),
					"expires_at", sess.ExpiresAt.Format(time.RFC3339Nano),
					"status", string(models.StatusLobby),
					"winner_id", "",
				)
				pipe.ExpireAt(ctx, key, sess.ExpiresAt.Add(s.retention))
				return nil
			})
			return err
		}, key)
		if errors.Is(err, errCodeTaken) || errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write session %s: %w", code, err)
		}
		sess.Code = code
		return sess, nil
	}
	return nil, ErrNoFreeCode
}

// Get loads the record for code.
func (s *SessionStore) Get(ctx context.Context, code string) (*models.Session, error) {
	fields, err := s.rdb.HGetAll(ctx, sessionKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", code, err)
	}
	if len(fields) == 0 {
		return nil, ErrSessionNotFound
	}
	return decodeSession(code, fields)
}

func decodeSession(code string, fields map[string]string) (*models.Session, error) {
	sess := &models.Session{
		Code:   code,
		Status: models.SessionStatus(fields["status"]),
	}
	var err error
	if sess.HostID, err = uuid.Parse(fields["host_id"]); err != nil {
		return nil, fmt.Errorf("session %s has invalid host id: %w", code, err)
	}
	if raw := fields["winner_id"]; raw != "" {
		if sess.WinnerID, err = uuid.Parse(raw); err != nil {
			return nil, fmt.Errorf("session %s has invalid winner id: %w", code, err)
		}
	}
	if raw := fields["created_at"]; raw != "" {
		sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	if raw := fields["expires_at"]; raw != "" {
		sess.ExpiresAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	if !sess.Status.Valid() {
		sess.Status = models.StatusLobby
	}
	return sess, nil
}

// UpdateStatus records a status change. It never moves an ended session
// backwards and is safe to retry.
func (s *SessionStore) UpdateStatus(ctx context.Context, code string, status models.SessionStatus) error {
	key := sessionKey(code)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "status").Result()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if models.SessionStatus(current) == models.StatusEnded || current == string(status) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "status", string(status))
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("failed to update status of session %s: %w", code, err)
	}
	return nil
}

// MarkEnded stores the winner, flips the status to ended and sets expiresAt.
// Writing the same winner twice leaves the record unchanged.
func (s *SessionStore) MarkEnded(ctx context.Context, code string, winnerID uuid.UUID, at time.Time) error {
	key := sessionKey(code)
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to read session %s: %w", code, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"status", string(models.StatusEnded),
			"winner_id", winnerID.String(),
			"expires_at", at.UTC().Format(time.RFC3339Nano),
		)
		pipe.ExpireAt(ctx, key, at.Add(s.retention))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", code, err)
	}
	return nil
}

// Delete removes the record.
func (s *SessionStore) Delete(ctx context.Context, code string) error {
	if err := s.rdb.Del(ctx, sessionKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", code, err)
	}
	return nil
}
