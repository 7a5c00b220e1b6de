package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/repsync/internal/client/api"
	"github.com/iudanet/repsync/internal/client/cache"
	"github.com/iudanet/repsync/internal/client/conflict"
	"github.com/iudanet/repsync/internal/client/connectivity"
	"github.com/iudanet/repsync/internal/client/queue"
	"github.com/iudanet/repsync/internal/client/session"
	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/client/storage/boltdb"
	clientsync "github.com/iudanet/repsync/internal/client/sync"
	"github.com/iudanet/repsync/internal/clock"
	"github.com/iudanet/repsync/internal/config"
)

// LocalStore is everything the client keeps on disk
type LocalStore interface {
	storage.QueueStorage
	storage.EntityStorage
	storage.ConflictStorage
	storage.MetadataStorage
	storage.TicketStorage
}

// Remote is the server as the client sees it. *api.Client implements it.
type Remote interface {
	api.RemoteStore
	connectivity.Prober
	session.Transport
}

var _ Remote = (*api.Client)(nil)

// App связывает компоненты клиента для одного запуска CLI
type App struct {
	Config   *config.Client
	Store    LocalStore
	Remote   Remote
	Monitor  *connectivity.Monitor
	Queue    *queue.Queue
	Cache    *cache.Cache
	Resolver *conflict.Resolver
	Engine   *clientsync.Engine
	Sessions *session.Service
	logger   *slog.Logger
	closer   func() error
	NodeID   string
}

// Open opens the local database and connects the components to the
// configured server.
func Open(ctx context.Context, cfg *config.Client, logger *slog.Logger) (*App, error) {
	store, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	remote := api.NewClient(cfg.ServerURL, cfg.RequestTimeout, logger)
	app, err := NewApp(ctx, cfg, store, remote, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	app.closer = store.Close
	return app, nil
}

// NewApp wires the client components over store and remote.
// Queue and cache are loaded from store.
func NewApp(ctx context.Context, cfg *config.Client, store LocalStore, remote Remote, logger *slog.Logger, opts ...connectivity.Option) (*App, error) {
	nodeID, err := nodeIdentity(ctx, store)
	if err != nil {
		return nil, err
	}

	q := queue.New(store, clock.NewWithNodeID(nodeID), logger)
	if err := q.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}

	c := cache.New(store, logger)
	if err := c.Load(ctx, q.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	resolver := conflict.NewResolver(store, logger)
	if cfg.ConflictRetention > 0 {
		if _, err := resolver.Prune(ctx, time.Now().Add(-cfg.ConflictRetention)); err != nil {
			logger.Warn("Failed to prune conflict records", "error", err)
		}
	}

	monitorOpts := append([]connectivity.Option{
		connectivity.WithInterval(cfg.ProbeInterval),
		connectivity.WithTimeout(cfg.ProbeTimeout),
	}, opts...)
	monitor := connectivity.NewMonitor(remote, logger, monitorOpts...)

	engine := clientsync.NewEngine(q, c, resolver, remote, monitor, nodeID, clientsync.Config{
		Backoff: clientsync.BackoffPolicy{
			Base:          cfg.BackoffBase,
			Max:           cfg.BackoffMax,
			JitterPercent: cfg.BackoffJitterPercent,
		},
		RequestTimeout: cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
	}, logger)

	sessions := session.NewService(remote, store, nodeID, logger)
	engine.SetSessionPublisher(sessions)

	return &App{
		Config:   cfg,
		Store:    store,
		Remote:   remote,
		Monitor:  monitor,
		Queue:    q,
		Cache:    c,
		Resolver: resolver,
		Engine:   engine,
		Sessions: sessions,
		NodeID:   nodeID,
		logger:   logger,
	}, nil
}

// Close stops the engine and closes the local database
func (a *App) Close() error {
	a.Engine.Stop()
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// Feed returns a change feed follower for topic
func (a *App) Feed(topic string) *clientsync.Feed {
	backoff := clientsync.BackoffPolicy{
		Base:          a.Config.BackoffBase,
		Max:           a.Config.BackoffMax,
		JitterPercent: a.Config.BackoffJitterPercent,
	}
	return clientsync.NewFeed(a.Engine, a.Remote, a.Store, topic, backoff, a.logger)
}

// nodeIdentity возвращает id устройства, создавая его при первом запуске
func nodeIdentity(ctx context.Context, store storage.MetadataStorage) (string, error) {
	nodeID, err := store.GetNodeID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get node id: %w", err)
	}
	if nodeID != "" {
		return nodeID, nil
	}

	nodeID = uuid.NewString()
	if err := store.SaveNodeID(ctx, nodeID); err != nil {
		return "", fmt.Errorf("failed to save node id: %w", err)
	}
	return nodeID, nil
}
