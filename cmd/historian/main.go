// cmd/historian/main.go moves finished games from the Redis results queue into
// the PostgreSQL archive.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rodrigobarba653/babygame/internal/cache"
	"github.com/rodrigobarba653/babygame/internal/config"
	"github.com/rodrigobarba653/babygame/internal/database"
	"github.com/rodrigobarba653/babygame/internal/historian"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("%v", err)
	}

	svc := historian.New(
		cache.NewResultQueue(rdb, cfg.ResultsQueue),
		database.NewResultStore(pool),
		historian.Config{BatchSize: cfg.HistorianBatchSize, FlushDelay: cfg.HistorianFlush},
		logger,
	)
	svc.Run(ctx)
	logger.Info("historian shutdown complete")
}
