package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/repsync/internal/models"
)

func TestValidateEntityType(t *testing.T) {
	tests := []struct {
		name       string
		entityType string
		wantErr    bool
	}{
		{name: "camel case", entityType: "workoutSet"},
		{name: "with dash", entityType: "body-weight"},
		{name: "empty", entityType: "", wantErr: true},
		{name: "starts with digit", entityType: "1set", wantErr: true},
		{name: "slash", entityType: "workout/set", wantErr: true},
		{name: "too long", entityType: "a" + strings.Repeat("b", 64), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntityType(tt.entityType)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEntityID(t *testing.T) {
	assert.NoError(t, ValidateEntityID("s1"))
	assert.NoError(t, ValidateEntityID("0b6f7c1e-4a55-4c6f-9d8e-2f9a5d0c7b21"))
	assert.Error(t, ValidateEntityID(""))
	assert.Error(t, ValidateEntityID("a b"))
	assert.Error(t, ValidateEntityID("a/b"))
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		payload map[string]any
		name    string
		op      models.Operation
		wantErr bool
	}{
		{name: "create", op: models.OperationCreate, payload: map[string]any{"reps": 8}},
		{name: "update", op: models.OperationUpdate, payload: map[string]any{"reps": 10}},
		{name: "update clears field", op: models.OperationUpdate, payload: map[string]any{"note": nil}},
		{name: "delete", op: models.OperationDelete},
		{name: "create empty", op: models.OperationCreate, wantErr: true},
		{name: "update empty", op: models.OperationUpdate, payload: map[string]any{}, wantErr: true},
		{name: "delete with payload", op: models.OperationDelete, payload: map[string]any{"a": 1}, wantErr: true},
		{name: "unknown op", op: "upsert", payload: map[string]any{"a": 1}, wantErr: true},
		{name: "blank field name", op: models.OperationUpdate, payload: map[string]any{" reps": 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload(tt.op, tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateWrite(t *testing.T) {
	assert.NoError(t, ValidateWrite("workoutSet", "s1", models.OperationUpdate, map[string]any{"reps": 10}))
	assert.Error(t, ValidateWrite("", "s1", models.OperationUpdate, map[string]any{"reps": 10}))
	assert.Error(t, ValidateWrite("workoutSet", "", models.OperationUpdate, map[string]any{"reps": 10}))
}
