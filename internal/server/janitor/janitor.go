// Package janitor periodically expires server state that is only kept for a
// while: idempotency keys, old change feed entries and idle sessions.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iudanet/repsync/internal/server/storage"
)

// Sessions is the part of the session hub the janitor expires
type Sessions interface {
	Purge(before time.Time) int
}

// Config задает расписание и сроки хранения. Нулевой срок отключает
// соответствующую очистку.
type Config struct {
	Schedule        string // cron выражение или дескриптор вида "@every 10m"
	IdempotencyTTL  time.Duration
	ChangeRetention time.Duration
	SessionTTL      time.Duration
}

// Janitor runs the cleanup on a cron schedule
type Janitor struct {
	logger   *slog.Logger
	store    storage.EntityStorage
	sessions Sessions
	cron     *cron.Cron
	now      func() time.Time
	cfg      Config
}

// New creates a janitor. sessions may be nil.
func New(cfg Config, store storage.EntityStorage, sessions Sessions, logger *slog.Logger) *Janitor {
	cl := cronLogger{logger: logger}
	return &Janitor{
		logger:   logger,
		store:    store,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start schedules the cleanup and starts the cron runner
func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.cfg.Schedule, func() {
		j.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.cfg.Schedule, err)
	}

	j.logger.Info("Janitor started", "schedule", j.cfg.Schedule)
	j.cron.Start()
	return nil
}

// Stop stops scheduling and waits for a running cleanup to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Janitor stopped")
}

// RunOnce runs every cleanup step once. A failed step is logged and does
// not prevent the others.
func (j *Janitor) RunOnce(ctx context.Context) {
	now := j.now()

	if j.cfg.IdempotencyTTL > 0 {
		n, err := j.store.PurgeIdempotency(ctx, now.Add(-j.cfg.IdempotencyTTL))
		if err != nil {
			j.logger.Error("Failed to purge idempotency keys", "error", err)
		} else if n > 0 {
			j.logger.Info("Purged idempotency keys", "count", n)
		}
	}

	if j.cfg.ChangeRetention > 0 {
		n, err := j.store.TrimChanges(ctx, now.Add(-j.cfg.ChangeRetention))
		if err != nil {
			j.logger.Error("Failed to trim change feed", "error", err)
		} else if n > 0 {
			j.logger.Info("Trimmed change feed", "rows", n)
		}
	}

	if j.sessions != nil && j.cfg.SessionTTL > 0 {
		if n := j.sessions.Purge(now.Add(-j.cfg.SessionTTL)); n > 0 {
			j.logger.Info("Purged sessions", "count", n)
		}
	}
}

// cronLogger направляет журнал cron в slog
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
