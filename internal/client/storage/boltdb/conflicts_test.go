package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/models"
)

func TestStorage_Conflicts(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	now := time.Now().UTC()

	late := &models.ConflictRecord{
		ID:         "c2",
		MutationID: "m2",
		EntityType: "workoutSet",
		EntityID:   "s1",
		Operation:  models.OperationUpdate,
		Resolution: models.ResolutionPending,
		DetectedAt: now.Add(time.Second),
		Visible:    true,
	}
	early := &models.ConflictRecord{
		ID:          "c1",
		MutationID:  "m1",
		EntityType:  "workoutSet",
		EntityID:    "s2",
		Operation:   models.OperationCreate,
		Resolution:  models.ResolutionKeptRemote,
		DetectedAt:  now,
		LocalValue:  map[string]any{"reps": 8},
		RemoteValue: map[string]any{"reps": 8},
	}

	require.NoError(t, store.SaveConflict(ctx, late))
	require.NoError(t, store.SaveConflict(ctx, early))

	got, err := store.GetConflict(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, models.ResolutionPending, got.Resolution)
	assert.True(t, got.Visible)

	list, err := store.ListConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ID)
	assert.Equal(t, "c2", list[1].ID)

	// Обновление записи
	late.Resolution = models.ResolutionKeptLocal
	require.NoError(t, store.SaveConflict(ctx, late))
	got, err = store.GetConflict(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, models.ResolutionKeptLocal, got.Resolution)

	require.NoError(t, store.DeleteConflict(ctx, "c1"))
	_, err = store.GetConflict(ctx, "c1")
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}

func TestStorage_Conflicts_ClosedDB(t *testing.T) {
	store := createTestStorage(t)
	require.NoError(t, store.Close())

	_, err := store.ListConflicts(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
