// internal/cache/results.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rodrigobarba653/babygame/internal/models"
)

// DefaultResultsQueue is the list finished games are pushed to.
const DefaultResultsQueue = "babygame_results"

// ResultQueue hands finished games from the room servers to the historian
// through a Redis list.
type ResultQueue struct {
	rdb  *redis.Client
	name string
}

func NewResultQueue(rdb *redis.Client, name string) *ResultQueue {
	if name == "" {
		name = DefaultResultsQueue
	}
	return &ResultQueue{rdb: rdb, name: name}
}

// Record appends result to the tail of the queue.
func (q *ResultQueue) Record(ctx context.Context, result models.GameResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result %s: %w", result.Code, err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to queue result %s: %w", result.Code, err)
	}
	return nil
}

// Pop blocks up to timeout for the next result. It returns nil, nil when the
// queue stayed empty.
func (q *ResultQueue) Pop(ctx context.Context, timeout time.Duration) (*models.GameResult, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop result: %w", err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}

	var result models.GameResult
	if err := json.Unmarshal([]byte(res[1]), &result); err != nil {
		return nil, fmt.Errorf("invalid result record: %w", err)
	}
	return &result, nil
}
