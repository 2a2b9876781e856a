// internal/handlers/server.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/config"
	"github.com/rodrigobarba653/babygame/internal/middleware"
	"github.com/rodrigobarba653/babygame/internal/models"
	"github.com/rodrigobarba653/babygame/internal/realtime"
	"github.com/rodrigobarba653/babygame/internal/room"
	"github.com/sirupsen/logrus"
)

// SessionStore is the session-code record store.
type SessionStore interface {
	Create(ctx context.Context, hostID uuid.UUID, ttl time.Duration) (*models.Session, error)
	Get(ctx context.Context, code string) (*models.Session, error)
	Delete(ctx context.Context, code string) error
}

type ProfileStore interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) error
}

// ResultArchive reads finished games.
type ResultArchive interface {
	WinsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.GameResult, error)
}

// Server holds what the HTTP and socket handlers share.
type Server struct {
	Sessions SessionStore
	Profiles ProfileStore
	Results  ResultArchive // optional
	Hub      *realtime.Hub
	Rooms    *room.Manager
	Config   config.Config
	Logger   *logrus.Logger
	Now      func() time.Time
}

func NewServer(cfg config.Config, sessions SessionStore, profiles ProfileStore, hub *realtime.Hub, rooms *room.Manager, logger *logrus.Logger) *Server {
	return &Server{
		Sessions: sessions,
		Profiles: profiles,
		Hub:      hub,
		Rooms:    rooms,
		Config:   cfg,
		Logger:   logger,
		Now:      time.Now,
	}
}

// Routes builds the full router: panic recovery, request logging, the
// heartbeat, CORS, then the API and the room socket.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.LogMiddleware(s.Logger))
	r.Use(chimw.Heartbeat("/healthz"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", CreateSessionHandler(s))
		r.Get("/sessions/{code}", GetSessionHandler(s))
		r.Delete("/sessions/{code}", DeleteSessionHandler(s))

		r.Get("/profile", GetProfileHandler(s))
		r.Put("/profile", UpdateProfileHandler(s))

		r.Post("/reveal", RevealHandler(s))
		r.Get("/results", WinsHandler(s))
	})

	r.Get("/ws/room/{code}", RoomWSHandler(s))
	return r
}
