package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/repsync/internal/client/api"
	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/models"
)

// Feed follows the remote change feed and applies every change to the
// engine. The last seen sequence is kept in metadata so a reconnect resumes
// where the previous subscription stopped.
type Feed struct {
	engine  *Engine
	remote  api.RemoteStore
	cursor  storage.MetadataStorage
	logger  *slog.Logger
	topic   string
	backoff BackoffPolicy
}

// NewFeed creates a follower for topic (an entity type, empty for all)
func NewFeed(engine *Engine, remote api.RemoteStore, cursor storage.MetadataStorage, topic string, backoff BackoffPolicy, logger *slog.Logger) *Feed {
	return &Feed{
		engine:  engine,
		remote:  remote,
		cursor:  cursor,
		topic:   topic,
		backoff: backoff,
		logger:  logger,
	}
}

// Run subscribes and resubscribes until ctx is done
func (f *Feed) Run(ctx context.Context) error {
	for {
		closed, err := f.connect(ctx)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case err := <-closed:
			if err != nil {
				f.logger.Warn("Change feed disconnected", "topic", f.topic, "error", err)
			}
		}
	}
}

// connect подписывается с повторами по расписанию backoff.
// Возвращает канал, который получает причину закрытия подписки.
func (f *Feed) connect(ctx context.Context) (<-chan error, error) {
	closed := make(chan error, 1)

	err := retry.Do(ctx, f.backoff.Retry(), func(ctx context.Context) error {
		since, err := f.cursor.GetChangeCursor(ctx)
		if err != nil {
			return fmt.Errorf("failed to get change cursor: %w", err)
		}

		sub := api.Subscription{
			Topic: f.topic,
			Since: since,
			OnClose: func(err error) {
				closed <- err
			},
		}
		if _, err := f.remote.Subscribe(ctx, sub, f.handle(ctx)); err != nil {
			f.logger.Debug("Change feed subscribe failed", "since", since, "error", err)
			if errors.Is(err, api.ErrForbidden) {
				return err
			}
			return retry.RetryableError(err)
		}

		f.logger.Info("Change feed subscribed", "topic", f.topic, "since", since)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			// Остановка во время ожидания повтора
			return nil, nil
		}
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}
	return closed, nil
}

func (f *Feed) handle(ctx context.Context) api.ChangeHandler {
	stuck := false
	return func(change models.Change) {
		if _, err := f.engine.HandleRemoteChange(ctx, change); err != nil {
			// Курсор больше не двигается: изменения придут повторно после переподключения
			f.logger.Error("Failed to apply remote change", "seq", change.Seq, "error", err)
			stuck = true
			return
		}
		if stuck {
			return
		}

		if err := f.cursor.SaveChangeCursor(context.WithoutCancel(ctx), change.Seq); err != nil {
			f.logger.Error("Failed to save change cursor", "seq", change.Seq, "error", err)
		}
	}
}
