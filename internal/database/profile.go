// internal/database/profile.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rodrigobarba653/babygame/internal/models"
)

// ErrProfileNotFound is returned when a user has not filled in a profile yet.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore reads and writes the profiles table.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// GetProfile loads the profile of id.
func (s *ProfileStore) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	var rel string
	q := `SELECT id, name, relationship, created_at FROM profiles WHERE id=$1`
	err := s.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Name, &rel, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", id, err)
	}
	p.Relationship = models.Relationship(rel)
	return &p, nil
}

// UpsertProfile inserts or updates the name and relationship of p.ID.
func (s *ProfileStore) UpsertProfile(ctx context.Context, p *models.Profile) error {
	q := `
	INSERT INTO profiles (id, name, relationship)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, relationship = EXCLUDED.relationship
	RETURNING created_at`

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q, p.ID, p.Name, string(p.Relationship)).Scan(&p.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", p.ID, err)
	}
	return nil
}
