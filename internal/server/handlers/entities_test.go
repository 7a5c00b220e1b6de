package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/internal/server/storage"
	"github.com/iudanet/repsync/pkg/api"
)

const workoutPath = "/api/v1/entities/workout/w1"

func TestEntityHandler_PutAndGet(t *testing.T) {
	ts := setupTestServer(t, nil)

	var created api.WriteResponse
	code := ts.do(t, http.MethodPut, workoutPath, map[string]string{api.IdempotencyKeyHeader: "m1"}, api.WriteRequest{
		Operation: "create",
		Payload:   map[string]any{"name": "legs", "reps": 10},
		Origin:    "node-a",
	}, &created)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), created.Entity.Version)
	assert.Equal(t, "node-a", created.Entity.Origin)
	assert.Equal(t, []string{"name", "reps"}, created.ChangedFields)
	assert.False(t, created.Replayed)

	var updated api.WriteResponse
	code = ts.do(t, http.MethodPut, workoutPath, nil, api.WriteRequest{
		Operation:   "update",
		BaseVersion: 1,
		Payload:     map[string]any{"reps": 12},
	}, &updated)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(2), updated.Entity.Version)
	assert.Equal(t, []string{"reps"}, updated.ChangedFields)

	var got api.EntityDTO
	code = ts.do(t, http.MethodGet, workoutPath, nil, nil, &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "legs", got.Fields["name"])
	assert.InDelta(t, 12, got.Fields["reps"], 0)

	var notFound api.ErrorResponse
	code = ts.do(t, http.MethodGet, "/api/v1/entities/workout/nope", nil, nil, &notFound)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not Found", notFound.Error)
}

func TestEntityHandler_Put_Conflict(t *testing.T) {
	ts := setupTestServer(t, nil)

	writes := []api.WriteRequest{
		{Operation: "create", Payload: map[string]any{"name": "legs", "reps": 10}},
		{Operation: "update", BaseVersion: 1, Payload: map[string]any{"reps": 12}},
	}
	for _, w := range writes {
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, workoutPath, nil, w, nil))
	}

	var conflict api.ConflictResponse
	code := ts.do(t, http.MethodPut, workoutPath, nil, api.WriteRequest{
		Operation:   "update",
		BaseVersion: 1,
		Payload:     map[string]any{"name": "arms"},
	}, &conflict)

	require.Equal(t, http.StatusConflict, code)
	require.NotNil(t, conflict.Current)
	assert.Equal(t, int64(2), conflict.Current.Version)
	assert.Equal(t, int64(1), conflict.BaseVersion)
	assert.True(t, conflict.ChangedKnown)
	assert.Equal(t, []string{"reps"}, conflict.ChangedFields)
}

func TestEntityHandler_Put_IdempotentReplay(t *testing.T) {
	ts := setupTestServer(t, nil)
	headers := map[string]string{api.IdempotencyKeyHeader: "m1"}
	req := api.WriteRequest{Operation: "create", Payload: map[string]any{"name": "legs"}}

	var first, second api.WriteResponse
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, workoutPath, headers, req, &first))
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, workoutPath, headers, req, &second))

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Entity.Version, second.Entity.Version)
}

func TestEntityHandler_Put_Validation(t *testing.T) {
	ts := setupTestServer(t, nil, "workout")

	tests := []struct {
		body           any
		name           string
		path           string
		expectedStatus int
	}{
		{name: "malformed body", path: workoutPath, body: "{not json", expectedStatus: http.StatusBadRequest},
		{name: "unknown field", path: workoutPath, body: `{"operation":"create","extra":1}`, expectedStatus: http.StatusBadRequest},
		{name: "create without payload", path: workoutPath, body: api.WriteRequest{Operation: "create"}, expectedStatus: http.StatusUnprocessableEntity},
		{name: "delete with payload", path: workoutPath, body: api.WriteRequest{Operation: "delete", BaseVersion: 1, Payload: map[string]any{"a": 1}}, expectedStatus: http.StatusUnprocessableEntity},
		{name: "unknown operation", path: workoutPath, body: api.WriteRequest{Operation: "upsert", Payload: map[string]any{"a": 1}}, expectedStatus: http.StatusUnprocessableEntity},
		{name: "type not accepted", path: "/api/v1/entities/meal/m1", body: api.WriteRequest{Operation: "create", Payload: map[string]any{"a": 1}}, expectedStatus: http.StatusUnprocessableEntity},
		{name: "update of unknown entity", path: workoutPath, body: api.WriteRequest{Operation: "update", BaseVersion: 1, Payload: map[string]any{"a": 1}}, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp api.ErrorResponse
			code := ts.do(t, http.MethodPut, tt.path, nil, tt.body, &errResp)
			assert.Equal(t, tt.expectedStatus, code)
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestEntityHandler_Put_PublishesToFeed(t *testing.T) {
	ts := setupTestServer(t, nil)
	sub := ts.feed.Subscribe("workout", 0)
	defer sub.Close()

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, workoutPath, map[string]string{api.IdempotencyKeyHeader: "m1"},
		api.WriteRequest{Operation: "create", Payload: map[string]any{"a": 1}}, nil))
	// повтор не публикуется второй раз
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, workoutPath, map[string]string{api.IdempotencyKeyHeader: "m1"},
		api.WriteRequest{Operation: "create", Payload: map[string]any{"a": 1}}, nil))

	require.Len(t, sub.C(), 1)
	c := <-sub.C()
	assert.Equal(t, int64(1), c.Seq)
	assert.Equal(t, models.EntityKey{Type: "workout", ID: "w1"}, c.Entity.Key())
}

func TestEntityHandler_StorageFailure(t *testing.T) {
	store := &storage.EntityStorageMock{
		WriteFunc: func(ctx context.Context, params storage.WriteParams) (*storage.WriteResult, error) {
			return nil, errors.New("database is locked")
		},
		ReadFunc: func(ctx context.Context, key models.EntityKey) (*models.Entity, error) {
			return nil, errors.New("database is locked")
		},
	}
	ts := setupTestServer(t, store)

	var errResp api.ErrorResponse
	code := ts.do(t, http.MethodPut, workoutPath, nil, api.WriteRequest{Operation: "create", Payload: map[string]any{"a": 1}}, &errResp)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotContains(t, errResp.Message, "locked")

	code = ts.do(t, http.MethodGet, workoutPath, nil, nil, nil)
	assert.Equal(t, http.StatusInternalServerError, code)

	require.Len(t, store.WriteCalls(), 1)
	assert.Equal(t, models.OperationCreate, store.WriteCalls()[0].Params.Operation)
}

func TestEntityTypes_Check(t *testing.T) {
	assert.NoError(t, NewEntityTypes(nil).Check("anything"))
	assert.Error(t, NewEntityTypes(nil).Check("1bad"))

	types := NewEntityTypes([]string{"workout", "workoutSet"})
	assert.NoError(t, types.Check("workoutSet"))
	assert.Error(t, types.Check("meal"))
}
