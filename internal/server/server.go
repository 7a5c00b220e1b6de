// Package server assembles repsync-server: storage, change feed, session hub,
// HTTP API and the background janitor.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/repsync/internal/config"
	"github.com/iudanet/repsync/internal/server/changefeed"
	"github.com/iudanet/repsync/internal/server/handlers"
	"github.com/iudanet/repsync/internal/server/janitor"
	"github.com/iudanet/repsync/internal/server/middleware"
	"github.com/iudanet/repsync/internal/server/realtime"
	"github.com/iudanet/repsync/internal/server/storage/sqlite"
	"github.com/iudanet/repsync/internal/server/ticket"
)

// shutdownTimeout время на завершение активных HTTP запросов
const shutdownTimeout = 10 * time.Second

// Server is a configured repsync-server
type Server struct {
	logger  *slog.Logger
	store   *sqlite.Storage
	hub     *realtime.Hub
	limiter *middleware.RateLimiter
	janitor *janitor.Janitor
	handler http.Handler
	cfg     *config.Server
}

// New opens the database and wires the server components
func New(ctx context.Context, cfg *config.Server, logger *slog.Logger) (*Server, error) {
	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	secret := cfg.TicketSecret
	if secret == "" {
		secret, err = ticket.GenerateSecret()
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Warn("ticket_secret is not set, using a random secret; session tickets will not survive a restart")
	}

	feed := changefeed.NewHub(logger)
	hub := realtime.NewHub(logger)
	tickets := ticket.NewService(ticket.Config{Secret: []byte(secret), TTL: cfg.TicketTTL}, nil)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, logger)

	s := &Server{
		logger:  logger,
		store:   store,
		hub:     hub,
		limiter: limiter,
		cfg:     cfg,
		janitor: janitor.New(janitor.Config{
			Schedule:        cfg.JanitorSchedule,
			IdempotencyTTL:  cfg.IdempotencyTTL,
			ChangeRetention: cfg.ChangeRetention,
			SessionTTL:      cfg.SessionTTL,
		}, store, hub, logger),
		handler: handlers.NewRouter(handlers.RouterDeps{
			Logger:  logger,
			Store:   store,
			Ping:    store.Ping,
			Feed:    feed,
			Hub:     hub,
			Tickets: tickets,
			Limiter: limiter,
			Types:   handlers.NewEntityTypes(cfg.EntityTypes),
		}),
	}
	return s, nil
}

// Handler returns the HTTP API
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe listens on the configured address and serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then ends live
// sessions and shuts the HTTP server down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// базовый контекст запросов отменяется при остановке, чтобы
	// WebSocket потоки завершились вместе с сервером
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	if err := s.janitor.Start(ctx); err != nil {
		_ = ln.Close()
		return err
	}
	defer s.janitor.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server")

		s.hub.Shutdown()
		cancelBase()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases the database and background workers
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.store.Close()
}
