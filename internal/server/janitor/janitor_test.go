package janitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/server/storage"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type fakeSessions struct {
	before []time.Time
}

func (f *fakeSessions) Purge(before time.Time) int {
	f.before = append(f.before, before)
	return 1
}

func TestJanitor_RunOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store := &storage.EntityStorageMock{
		PurgeIdempotencyFunc: func(ctx context.Context, before time.Time) (int64, error) {
			return 3, nil
		},
		TrimChangesFunc: func(ctx context.Context, before time.Time) (int64, error) {
			return 0, errors.New("database is locked")
		},
	}
	sessions := &fakeSessions{}

	j := New(Config{
		Schedule:        "@every 10m",
		IdempotencyTTL:  72 * time.Hour,
		ChangeRetention: 720 * time.Hour,
		SessionTTL:      24 * time.Hour,
	}, store, sessions, setupTestLogger())
	j.now = func() time.Time { return now }

	j.RunOnce(context.Background())

	require.Len(t, store.PurgeIdempotencyCalls(), 1)
	assert.Equal(t, now.Add(-72*time.Hour), store.PurgeIdempotencyCalls()[0].Before)
	require.Len(t, store.TrimChangesCalls(), 1)
	assert.Equal(t, now.Add(-720*time.Hour), store.TrimChangesCalls()[0].Before)

	// ошибка очистки ленты не мешает очистке сессий
	assert.Equal(t, []time.Time{now.Add(-24 * time.Hour)}, sessions.before)
}

func TestJanitor_RunOnce_DisabledSteps(t *testing.T) {
	store := &storage.EntityStorageMock{}

	j := New(Config{Schedule: "@every 10m"}, store, nil, setupTestLogger())
	j.RunOnce(context.Background())

	assert.Empty(t, store.PurgeIdempotencyCalls())
	assert.Empty(t, store.TrimChangesCalls())
}

func TestJanitor_Start(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "descriptor", schedule: "@every 10m"},
		{name: "cron expression", schedule: "*/5 * * * *"},
		{name: "invalid", schedule: "every ten minutes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := New(Config{Schedule: tt.schedule}, &storage.EntityStorageMock{}, nil, setupTestLogger())

			err := j.Start(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, j.cron.Entries(), 1)
			j.Stop()
		})
	}
}
