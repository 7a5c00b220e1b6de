package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/client/api"
	"github.com/iudanet/repsync/internal/models"
)

var fastBackoff = BackoffPolicy{Base: time.Millisecond, Max: 5 * time.Millisecond}

func TestFeed_AppliesChangesAndSavesCursor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, Config{})

	key := models.EntityKey{Type: "workoutSet", ID: "s1"}
	f.remote.Put(key, models.OperationCreate, map[string]any{"reps": 8}, "device-b")

	feed := NewFeed(f.engine, f.remote, f.store, "workoutSet", fastBackoff, setupTestLogger())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	// Изменение до подписки приходит из истории
	require.Eventually(t, func() bool {
		return f.engine.Entity("workoutSet", "s1") != nil
	}, time.Second, 5*time.Millisecond)

	f.remote.Put(key, models.OperationUpdate, map[string]any{"reps": 9}, "device-b")
	assert.Equal(t, 9, f.engine.Entity("workoutSet", "s1").Fields["reps"])

	cursor, err := f.store.GetChangeCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cursor)

	// Изменения других типов не относятся к подписке
	f.remote.Put(models.EntityKey{Type: "workout", ID: "w1"}, models.OperationCreate, map[string]any{"name": "legs"}, "device-b")
	assert.Nil(t, f.engine.Entity("workout", "w1"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("feed did not stop")
	}
}

func TestFeed_ReconnectResumesFromCursor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, Config{})

	resumed := make(chan int64, 1)
	calls := 0
	remote := &api.RemoteStoreMock{
		SubscribeFunc: func(ctx context.Context, sub api.Subscription, handler api.ChangeHandler) (func(), error) {
			calls++
			switch calls {
			case 1:
				return nil, errReset
			case 2:
				handler(models.Change{Seq: 5, Entity: &models.Entity{
					Type: "workoutSet", ID: "s1", Version: 3, Fields: map[string]any{"reps": 12},
				}})
				go sub.OnClose(errReset)
			default:
				resumed <- sub.Since
			}
			return func() {}, nil
		},
	}

	feed := NewFeed(f.engine, remote, f.store, "", fastBackoff, setupTestLogger())
	go func() { _ = feed.Run(ctx) }()

	select {
	case since := <-resumed:
		assert.Equal(t, int64(5), since)
	case <-time.After(time.Second):
		t.Fatal("feed did not reconnect")
	}

	view := f.engine.Entity("workoutSet", "s1")
	require.NotNil(t, view)
	assert.Equal(t, int64(3), view.Version)
}

func TestFeed_ForbiddenStopsRun(t *testing.T) {
	f := newFixture(t, Config{})
	remote := &api.RemoteStoreMock{
		SubscribeFunc: func(ctx context.Context, sub api.Subscription, handler api.ChangeHandler) (func(), error) {
			return nil, api.ErrForbidden
		},
	}

	feed := NewFeed(f.engine, remote, f.store, "", fastBackoff, setupTestLogger())
	err := feed.Run(context.Background())
	assert.ErrorIs(t, err, api.ErrForbidden)
	assert.Len(t, remote.SubscribeCalls(), 1)
}
