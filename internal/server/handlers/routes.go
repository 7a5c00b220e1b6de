package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/iudanet/repsync/internal/server/changefeed"
	"github.com/iudanet/repsync/internal/server/middleware"
	"github.com/iudanet/repsync/internal/server/realtime"
	"github.com/iudanet/repsync/internal/server/storage"
	"github.com/iudanet/repsync/internal/server/ticket"
)

// healthPath не пишется в журнал запросов: его опрашивает монитор связи
const healthPath = "/api/v1/health"

// RouterDeps собирает зависимости HTTP API
type RouterDeps struct {
	Logger  *slog.Logger
	Store   storage.EntityStorage
	Ping    PingFunc
	Feed    *changefeed.Hub
	Hub     *realtime.Hub
	Tickets *ticket.Service
	Limiter *middleware.RateLimiter // nil отключает ограничение
	Types   EntityTypes
}

// NewRouter builds the HTTP API of repsync-server
func NewRouter(d RouterDeps) http.Handler {
	health := NewHealthHandler(d.Logger, d.Ping)
	entities := NewEntityHandler(d.Logger, d.Store, d.Feed, d.Types)
	changes := NewChangesHandler(d.Logger, d.Store, d.Feed, d.Types)
	sessions := NewSessionHandler(d.Logger, d.Hub, d.Tickets)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LoggingMiddleware(d.Logger, healthPath))
	r.Use(middleware.RecoveryMiddleware(d.Logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.Health)

		r.Group(func(r chi.Router) {
			if d.Limiter != nil {
				r.Use(d.Limiter.Middleware)
			}

			r.Put("/entities/{type}/{id}", entities.Put)
			r.Get("/entities/{type}/{id}", entities.Get)
			r.Get("/changes", changes.Stream)

			r.Post("/sessions", sessions.Create)
			r.Post("/sessions/join", sessions.Join)

			r.Route("/sessions/{"+middleware.SessionIDParam+"}", func(r chi.Router) {
				r.Use(middleware.TicketMiddleware(d.Logger, d.Tickets))
				r.Post("/events", sessions.Publish)
				r.Post("/leave", sessions.Leave)
				r.Post("/end", sessions.End)
				r.Get("/stream", sessions.Stream)
			})
		})
	})

	return r
}
