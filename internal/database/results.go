// internal/database/results.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rodrigobarba653/babygame/internal/models"
)

// ResultStore archives finished games in the game_results table.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// SaveResults writes a batch in one transaction. A result already stored for
// the same code and end time is skipped, so redelivered batches are harmless.
func (s *ResultStore) SaveResults(ctx context.Context, results []models.GameResult) error {
	if len(results) == 0 {
		return nil
	}
	q := `
	INSERT INTO game_results (code, ended_at, host_id, winner_id, standings)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (code, ended_at) DO NOTHING`

	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range results {
			standings, err := json.Marshal(r.Standings)
			if err != nil {
				return fmt.Errorf("failed to encode standings of %s: %w", r.Code, err)
			}
			batch.Queue(q, r.Code, r.EndedAt, r.HostID, r.WinnerID, standings)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert results: %w", err)
		}
		return nil
	})
}

// WinsByUser returns the finished games userID has won, newest first.
func (s *ResultStore) WinsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.GameResult, error) {
	q := `
	SELECT code, ended_at, host_id, winner_id, standings
	FROM game_results
	WHERE winner_id = $1
	ORDER BY ended_at DESC
	LIMIT $2`

	rows, err := s.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []models.GameResult
	for rows.Next() {
		var r models.GameResult
		var standings []byte
		if err := rows.Scan(&r.Code, &r.EndedAt, &r.HostID, &r.WinnerID, &standings); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if err := json.Unmarshal(standings, &r.Standings); err != nil {
			return nil, fmt.Errorf("invalid standings for %s: %w", r.Code, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
