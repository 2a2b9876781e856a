// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rodrigobarba653/babygame/internal/auth"
	"github.com/rodrigobarba653/babygame/internal/cache"
	"github.com/rodrigobarba653/babygame/internal/config"
	"github.com/rodrigobarba653/babygame/internal/database"
	"github.com/rodrigobarba653/babygame/internal/handlers"
	"github.com/rodrigobarba653/babygame/internal/realtime"
	"github.com/rodrigobarba653/babygame/internal/room"
	"github.com/sirupsen/logrus"
)

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func initAuth(cfg config.Config) error {
	if cfg.AuthPrivateKeyPath != "" && cfg.AuthPublicKeyPath != "" {
		return auth.InitFromPath(cfg.AuthPrivateKeyPath, cfg.AuthPublicKeyPath)
	}
	return auth.Init()
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	if err := initAuth(cfg); err != nil {
		logger.Fatalf("auth init failed: %v", err)
	}

	ctx := context.Background()
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

	sessions := cache.NewSessionStore(rdb, cfg.SessionRetention)
	profiles := database.NewProfileStore(pool)

	hub := realtime.NewHub(logger)
	rooms := room.NewManager(hub, sessions, room.SettingsFromConfig(cfg), logger)
	rooms.Results = cache.NewResultQueue(rdb, cfg.ResultsQueue)
	hub.OnEmpty = rooms.Remove

	srv := handlers.NewServer(cfg, sessions, profiles, hub, rooms, logger)
	srv.Results = database.NewResultStore(pool)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
}
