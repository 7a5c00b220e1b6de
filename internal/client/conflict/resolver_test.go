package conflict

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/client/api"
	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/client/storage/memory"
	"github.com/iudanet/repsync/internal/models"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func remoteSet(version int64, fields map[string]any) *models.Entity {
	return &models.Entity{Type: "workoutSet", ID: "s1", Version: version, Fields: fields}
}

func setMutation(op models.Operation, payload map[string]any, base int64) *models.Mutation {
	return &models.Mutation{
		ID:          "m1",
		EntityType:  "workoutSet",
		EntityID:    "s1",
		Operation:   op,
		Payload:     payload,
		BaseVersion: base,
	}
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		m           *models.Mutation
		ce          *api.ConflictError
		base        *models.Entity
		name        string
		wantKind    models.Resolution
		wantFields  map[string]any
		wantVisible bool
	}{
		{
			name: "update disjoint from remote changes is merged",
			m:    setMutation(models.OperationUpdate, map[string]any{"reps": 10}, 1),
			ce: &api.ConflictError{
				Current:       remoteSet(2, map[string]any{"reps": 8, "weight": 55}),
				ChangedFields: []string{"weight"},
				ChangedKnown:  true,
				BaseVersion:   1,
			},
			wantKind:   models.ResolutionMerged,
			wantFields: map[string]any{"reps": 10, "weight": 55},
		},
		{
			name: "update overlapping remote changes is pending",
			m:    setMutation(models.OperationUpdate, map[string]any{"reps": 10}, 1),
			ce: &api.ConflictError{
				Current:       remoteSet(2, map[string]any{"reps": 12}),
				ChangedFields: []string{"reps"},
				ChangedKnown:  true,
				BaseVersion:   1,
			},
			wantKind:    models.ResolutionPending,
			wantVisible: true,
		},
		{
			name: "changed fields computed from local base",
			m:    setMutation(models.OperationUpdate, map[string]any{"reps": 10}, 1),
			ce: &api.ConflictError{
				Current:     remoteSet(2, map[string]any{"reps": 8, "weight": 55}),
				BaseVersion: 1,
			},
			base:       remoteSet(1, map[string]any{"reps": 8, "weight": 50}),
			wantKind:   models.ResolutionMerged,
			wantFields: map[string]any{"reps": 10, "weight": 55},
		},
		{
			name: "unknown changes without base are treated as overlapping",
			m:    setMutation(models.OperationUpdate, map[string]any{"reps": 10}, 1),
			ce: &api.ConflictError{
				Current:     remoteSet(3, map[string]any{"reps": 8, "weight": 55}),
				BaseVersion: 1,
			},
			base:        remoteSet(2, map[string]any{"reps": 8, "weight": 50}),
			wantKind:    models.ResolutionPending,
			wantVisible: true,
		},
		{
			name: "update without known base is treated as overlapping",
			m:    setMutation(models.OperationUpdate, map[string]any{"reps": 10}, 0),
			ce: &api.ConflictError{
				Current: remoteSet(2, map[string]any{"reps": 8, "weight": 55}),
			},
			base:        &models.Entity{Type: "workoutSet", ID: "s1", Fields: map[string]any{"reps": 8, "weight": 50}},
			wantKind:    models.ResolutionPending,
			wantVisible: true,
		},
		{
			name: "update against remotely deleted entity is pending",
			m:    setMutation(models.OperationUpdate, map[string]any{"reps": 10}, 1),
			ce: &api.ConflictError{
				Current:     &models.Entity{Type: "workoutSet", ID: "s1", Version: 2, Deleted: true},
				BaseVersion: 1,
			},
			wantKind:    models.ResolutionPending,
			wantVisible: true,
		},
		{
			name: "duplicate create with equal payload is kept remote silently",
			m:    setMutation(models.OperationCreate, map[string]any{"reps": 8}, 0),
			ce: &api.ConflictError{
				Current: remoteSet(1, map[string]any{"reps": 8.0}),
			},
			wantKind:   models.ResolutionKeptRemote,
			wantFields: map[string]any{"reps": 8.0},
		},
		{
			name: "create with different payload is kept remote visibly",
			m:    setMutation(models.OperationCreate, map[string]any{"reps": 9}, 0),
			ce: &api.ConflictError{
				Current: remoteSet(1, map[string]any{"reps": 8}),
			},
			wantKind:    models.ResolutionKeptRemote,
			wantFields:  map[string]any{"reps": 8},
			wantVisible: true,
		},
		{
			name: "delete against newer version is kept remote visibly",
			m:    setMutation(models.OperationDelete, nil, 1),
			ce: &api.ConflictError{
				Current:     remoteSet(2, map[string]any{"reps": 12}),
				BaseVersion: 1,
			},
			wantKind:    models.ResolutionKeptRemote,
			wantFields:  map[string]any{"reps": 12},
			wantVisible: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			r := NewResolver(store, setupTestLogger())

			res, err := r.Resolve(context.Background(), tt.m, tt.ce, tt.base)
			require.NoError(t, err)

			assert.Equal(t, tt.wantKind, res.Kind)
			assert.Equal(t, tt.wantKind, res.Record.Resolution)
			assert.Equal(t, tt.wantVisible, res.Record.Visible)
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, res.Record.ResolvedValue)
			}
			if tt.wantKind == models.ResolutionPending {
				assert.True(t, res.Record.ResolvedAt.IsZero())
				assert.Equal(t, tt.m.Payload, res.Record.LocalValue, "both values are kept")
			}

			// Любая запись сохраняется для аудита
			saved, err := store.GetConflict(context.Background(), res.Record.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.m.ID, saved.MutationID)
		})
	}
}

func TestResolver_Resolve_StorageFailure(t *testing.T) {
	mock := &storage.ConflictStorageMock{
		SaveConflictFunc: func(ctx context.Context, record *models.ConflictRecord) error {
			return errors.New("disk full")
		},
	}
	r := NewResolver(mock, setupTestLogger())

	_, err := r.Resolve(context.Background(), setMutation(models.OperationDelete, nil, 1), &api.ConflictError{
		Current: remoteSet(2, nil),
	}, nil)
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, mock.SaveConflictCalls(), 1)
}

func TestResolver_Settle(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(memory.New(), setupTestLogger())

	res, err := r.Resolve(ctx, setMutation(models.OperationUpdate, map[string]any{"reps": 10}, 1), &api.ConflictError{
		Current:       remoteSet(2, map[string]any{"reps": 12}),
		ChangedFields: []string{"reps"},
		ChangedKnown:  true,
	}, nil)
	require.NoError(t, err)
	id := res.Record.ID

	pending, err := r.Unresolved(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, _, err = r.Settle(ctx, id, models.ResolutionMerged, nil)
	assert.ErrorIs(t, err, ErrInvalidDecision)
	_, _, err = r.Settle(ctx, id, models.ResolutionPending, nil)
	assert.ErrorIs(t, err, ErrInvalidDecision)

	record, changed, err := r.Settle(ctx, id, models.ResolutionKeptLocal, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.ResolutionKeptLocal, record.Resolution)
	assert.Equal(t, map[string]any{"reps": 10}, record.ResolvedValue)
	assert.False(t, record.ResolvedAt.IsZero())

	// Повторное разрешение ничего не меняет
	again, changed, err := r.Settle(ctx, id, models.ResolutionKeptRemote, nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.ResolutionKeptLocal, again.Resolution)

	pending, err = r.Unresolved(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, _, err = r.Settle(ctx, "missing", models.ResolutionKeptLocal, nil)
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}

func TestResolver_Prune(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := NewResolver(store, setupTestLogger())

	old := time.Now().Add(-48 * time.Hour)
	r.now = func() time.Time { return old }
	_, err := r.Resolve(ctx, setMutation(models.OperationDelete, nil, 1), &api.ConflictError{Current: remoteSet(2, nil)}, nil)
	require.NoError(t, err)
	_, err = r.Resolve(ctx, setMutation(models.OperationUpdate, map[string]any{"reps": 1}, 1), &api.ConflictError{
		Current: remoteSet(2, map[string]any{"reps": 2}), ChangedFields: []string{"reps"}, ChangedKnown: true,
	}, nil)
	require.NoError(t, err)

	r.now = time.Now
	_, err = r.Resolve(ctx, setMutation(models.OperationDelete, nil, 1), &api.ConflictError{Current: remoteSet(2, nil)}, nil)
	require.NoError(t, err)

	removed, err := r.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "only the old resolved record is pruned")

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestResolver_Reconcile(t *testing.T) {
	r := NewResolver(memory.New(), setupTestLogger())
	m := setMutation(models.OperationUpdate, map[string]any{"reps": 10}, 1)

	entity := r.Reconcile(m, &api.WriteResult{Entity: remoteSet(2, map[string]any{"reps": 10, "weight": 55})})
	require.NotNil(t, entity)
	assert.Equal(t, int64(2), entity.Version)
}
