// internal/historian/historian.go
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/rodrigobarba653/babygame/internal/models"
	"github.com/sirupsen/logrus"
)

// Source yields queued results. Pop returns nil, nil when nothing arrived
// within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*models.GameResult, error)
}

// Sink stores a batch of results.
type Sink interface {
	SaveResults(ctx context.Context, results []models.GameResult) error
}

// Config tunes batching.
type Config struct {
	BatchSize   int
	FlushDelay  time.Duration
	PollTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:   20,
		FlushDelay:  500 * time.Millisecond,
		PollTimeout: 3 * time.Second,
	}
}

// Service drains finished games from the queue into the archive in batches.
type Service struct {
	source Source
	sink   Sink
	cfg    Config
	logger logrus.FieldLogger

	batchMu sync.Mutex
	batch   []models.GameResult
}

func New(source Source, sink Sink, cfg Config, logger logrus.FieldLogger) *Service {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = def.FlushDelay
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	return &Service{
		source: source,
		sink:   sink,
		cfg:    cfg,
		logger: logger.WithField("service", "historian"),
		batch:  make([]models.GameResult, 0, cfg.BatchSize),
	}
}

// Run reads until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("historian started")
	defer s.logger.Info("historian stopped")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()

	for ctx.Err() == nil {
		result, err := s.source.Pop(ctx, s.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.WithError(err).Error("failed to read result queue")
			continue
		}
		if result == nil {
			continue
		}
		s.add(*result)
	}

	wg.Wait()
	s.flush(context.Background())
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

// add appends a result and flushes once the batch is full.
func (s *Service) add(result models.GameResult) {
	s.batchMu.Lock()
	s.batch = append(s.batch, result)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.flush(context.Background())
	}
}

// flush writes the pending batch. On failure the results are put back for
// the next attempt.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]models.GameResult, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.SaveResults(ctx, pending); err != nil {
		s.logger.WithError(err).WithField("count", len(pending)).Error("failed to flush results")
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.logger.WithField("count", len(pending)).Info("flushed results")
}
