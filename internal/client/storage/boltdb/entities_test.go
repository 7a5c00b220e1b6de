package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/models"
)

func TestStorage_Entities(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	s1 := &models.Entity{Type: "workoutSet", ID: "s1", Version: 1, Fields: map[string]any{"reps": 8}}
	s2 := &models.Entity{Type: "workoutSet", ID: "s2", Version: 3, Deleted: true}

	require.NoError(t, store.SaveEntity(ctx, s1))
	require.NoError(t, store.SaveEntity(ctx, s2))

	// Более новая версия перезаписывает снимок
	s1v2 := s1.Clone()
	s1v2.Version = 2
	s1v2.Fields["reps"] = 10
	require.NoError(t, store.SaveEntity(ctx, s1v2))

	list, err := store.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := make(map[string]*models.Entity)
	for _, e := range list {
		byID[e.ID] = e
	}
	assert.Equal(t, int64(2), byID["s1"].Version)
	assert.Equal(t, float64(10), byID["s1"].Fields["reps"])
	assert.True(t, byID["s2"].Deleted)

	require.NoError(t, store.DeleteEntity(ctx, s2.Key()))
	list, err = store.ListEntities(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
