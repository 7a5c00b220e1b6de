package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/client/storage/memory"
	"github.com/iudanet/repsync/internal/models"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

var s1 = models.EntityKey{Type: "workoutSet", ID: "s1"}

func mutation(op models.Operation, payload map[string]any) *models.Mutation {
	return &models.Mutation{EntityType: s1.Type, EntityID: s1.ID, Operation: op, Payload: payload}
}

func TestCache_ApplyOptimistic(t *testing.T) {
	c := New(memory.New(), setupTestLogger())
	require.NoError(t, c.Load(context.Background(), nil))

	view := c.ApplyOptimistic(mutation(models.OperationCreate, map[string]any{"reps": 8, "weight": 50}))
	require.NotNil(t, view)
	assert.Equal(t, int64(0), view.Version, "unconfirmed entity has no version")

	view = c.ApplyOptimistic(mutation(models.OperationUpdate, map[string]any{"reps": 10}))
	require.NotNil(t, view)
	assert.Equal(t, map[string]any{"reps": 10, "weight": 50}, view.Fields)

	assert.Nil(t, c.ApplyOptimistic(mutation(models.OperationDelete, nil)))
	assert.Nil(t, c.Get(s1))
	assert.Nil(t, c.Base(s1))
}

func TestCache_SetBase_ReplaysPending(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := New(store, setupTestLogger())
	require.NoError(t, c.Load(ctx, nil))

	changed, err := c.SetBase(ctx, &models.Entity{Type: "workoutSet", ID: "s1", Version: 1, Fields: map[string]any{"reps": 8, "weight": 50}}, nil)
	require.NoError(t, err)
	assert.True(t, changed)

	pending := []*models.Mutation{mutation(models.OperationUpdate, map[string]any{"reps": 10})}
	c.ApplyOptimistic(pending[0])

	// Удаленное изменение другого поля: представление = base + pending
	changed, err = c.SetBase(ctx, &models.Entity{Type: "workoutSet", ID: "s1", Version: 2, Fields: map[string]any{"reps": 8, "weight": 55}}, pending)
	require.NoError(t, err)
	assert.True(t, changed)

	view := c.Get(s1)
	require.NotNil(t, view)
	assert.Equal(t, int64(2), view.Version)
	assert.Equal(t, map[string]any{"reps": 10, "weight": 55}, view.Fields)

	// Старая версия игнорируется
	changed, err = c.SetBase(ctx, &models.Entity{Type: "workoutSet", ID: "s1", Version: 1}, nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int64(2), c.Base(s1).Version)

	stored, err := store.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, int64(2), stored[0].Version)
}

func TestCache_Rebuild(t *testing.T) {
	ctx := context.Background()
	c := New(memory.New(), setupTestLogger())
	require.NoError(t, c.Load(ctx, nil))

	_, err := c.SetBase(ctx, &models.Entity{Type: "workoutSet", ID: "s1", Version: 3, Fields: map[string]any{"reps": 8}}, nil)
	require.NoError(t, err)

	c.ApplyOptimistic(mutation(models.OperationUpdate, map[string]any{"reps": 12}))
	assert.Equal(t, 12, c.Get(s1).Fields["reps"])

	// Мутация отклонена сервером: откатываем к базе
	c.Rebuild(s1, nil)
	assert.Equal(t, 8, c.Get(s1).Fields["reps"])

	// Неизвестная сущность без pending исчезает из представления
	other := models.EntityKey{Type: "workoutSet", ID: "new"}
	c.ApplyOptimistic(&models.Mutation{EntityType: other.Type, EntityID: other.ID, Operation: models.OperationCreate, Payload: map[string]any{"reps": 1}})
	require.NotNil(t, c.Get(other))
	c.Rebuild(other, nil)
	assert.Nil(t, c.Get(other))
}

func TestCache_LoadAndList(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.SaveEntity(ctx, &models.Entity{Type: "workoutSet", ID: "b", Version: 1, Fields: map[string]any{"reps": 1}}))
	require.NoError(t, store.SaveEntity(ctx, &models.Entity{Type: "workoutSet", ID: "a", Version: 1, Fields: map[string]any{"reps": 2}}))
	require.NoError(t, store.SaveEntity(ctx, &models.Entity{Type: "workoutSet", ID: "gone", Version: 2, Deleted: true}))
	require.NoError(t, store.SaveEntity(ctx, &models.Entity{Type: "workout", ID: "w1", Version: 1}))

	c := New(store, setupTestLogger())
	pending := []*models.Mutation{
		{EntityType: "workoutSet", EntityID: "a", Operation: models.OperationUpdate, Payload: map[string]any{"reps": 3}},
	}
	require.NoError(t, c.Load(ctx, pending))

	sets := c.List("workoutSet")
	require.Len(t, sets, 2)
	assert.Equal(t, "a", sets[0].ID)
	assert.Equal(t, 3, sets[0].Fields["reps"])
	assert.Equal(t, "b", sets[1].ID)

	assert.Len(t, c.List(""), 3)
	assert.True(t, c.Base(models.EntityKey{Type: "workoutSet", ID: "gone"}).Deleted)
}

func TestCache_Forget(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := New(store, setupTestLogger())
	require.NoError(t, c.Load(ctx, nil))

	_, err := c.SetBase(ctx, &models.Entity{Type: "workoutSet", ID: "s1", Version: 1, Fields: map[string]any{"reps": 8}}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Forget(ctx, s1, nil))
	assert.Nil(t, c.Get(s1))
	assert.Nil(t, c.Base(s1))

	stored, err := store.ListEntities(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	// Неизвестная сущность: no-op
	require.NoError(t, c.Forget(ctx, models.EntityKey{Type: "workoutSet", ID: "nope"}, nil))
}
