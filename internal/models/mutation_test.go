package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMutation_Eligible(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		m        Mutation
		name     string
		expected bool
	}{
		{name: "pending", m: Mutation{Status: StatusPending}, expected: true},
		{name: "in-flight after restart", m: Mutation{Status: StatusInFlight}, expected: true},
		{name: "failed, backoff over", m: Mutation{Status: StatusFailed, NextRetryAt: now}, expected: true},
		{name: "failed, in backoff", m: Mutation{Status: StatusFailed, NextRetryAt: now.Add(time.Second)}, expected: false},
		{name: "failed, exhausted", m: Mutation{Status: StatusFailed, Exhausted: true}, expected: false},
		{name: "applied", m: Mutation{Status: StatusApplied}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.m.Eligible(now))
		})
	}
}

func TestMutation_Clone(t *testing.T) {
	m := &Mutation{
		ID:          "m1",
		EntityType:  "workoutSet",
		EntityID:    "s1",
		Operation:   OperationUpdate,
		Payload:     map[string]any{"reps": 10},
		BaseVersion: 1,
	}

	c := m.Clone()
	c.Payload["reps"] = 11

	assert.Equal(t, 10, m.Payload["reps"])
	assert.Equal(t, EntityKey{Type: "workoutSet", ID: "s1"}, c.Key())
	assert.Equal(t, "workoutSet/s1", c.Key().String())
	assert.True(t, m.HasBase())
}

func TestOperation_Valid(t *testing.T) {
	assert.True(t, OperationCreate.Valid())
	assert.True(t, OperationUpdate.Valid())
	assert.True(t, OperationDelete.Valid())
	assert.False(t, Operation("upsert").Valid())
}

func TestSessionEventType_Publishable(t *testing.T) {
	assert.True(t, EventSetCompleted.Publishable())
	assert.True(t, EventRestTimerSynced.Publishable())
	assert.False(t, EventParticipantJoined.Publishable())
	assert.False(t, EventSnapshot.Publishable())
}
