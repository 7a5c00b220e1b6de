package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/client/api"
	"github.com/iudanet/repsync/internal/client/storage/memory"
	clientsync "github.com/iudanet/repsync/internal/client/sync"
	"github.com/iudanet/repsync/internal/models"
)

var _ clientsync.SessionPublisher = (*Service)(nil)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testTicket(expires time.Time) *models.SessionTicket {
	return &models.SessionTicket{
		SessionID:     "sess-1",
		ParticipantID: "device-a",
		Code:          "ABC234",
		Token:         "token",
		ExpiresAt:     expires,
	}
}

func newTransport() *TransportMock {
	return &TransportMock{
		CreateSessionFunc: func(ctx context.Context, hostID string, settings models.SessionSettings) (*models.Session, *models.SessionTicket, error) {
			sess := &models.Session{ID: "sess-1", Code: "ABC234", HostID: hostID, State: models.SessionActive, Participants: []string{hostID}, Settings: settings}
			return sess, testTicket(time.Now().Add(time.Hour)), nil
		},
		JoinSessionFunc: func(ctx context.Context, code string, participantID string) (*models.Session, *models.SessionTicket, error) {
			if code != "ABC234" {
				return nil, nil, fmt.Errorf("join session failed: %w", api.ErrNotFound)
			}
			sess := &models.Session{ID: "sess-1", Code: code, State: models.SessionActive, Participants: []string{"host", participantID}}
			return sess, testTicket(time.Now().Add(time.Hour)), nil
		},
		PublishEventFunc: func(ctx context.Context, ticket *models.SessionTicket, eventType models.SessionEventType, payload map[string]any, excludeSender bool) (int64, error) {
			return 7, nil
		},
		LeaveSessionFunc: func(ctx context.Context, ticket *models.SessionTicket) error { return nil },
		EndSessionFunc:   func(ctx context.Context, ticket *models.SessionTicket) error { return nil },
	}
}

func TestService_CreateStoresTicket(t *testing.T) {
	ctx := context.Background()
	tickets := memory.New()
	transport := newTransport()
	s := NewService(transport, tickets, "device-a", setupTestLogger())

	sess, err := s.Create(ctx, models.SessionSettings{SyncRestTimers: true, RestSeconds: 90})
	require.NoError(t, err)
	assert.Equal(t, "ABC234", sess.Code)
	assert.True(t, sess.Settings.SyncRestTimers)

	calls := transport.CreateSessionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "device-a", calls[0].HostID)

	ticket, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", ticket.SessionID)

	_, err = s.Create(ctx, models.SessionSettings{RestSeconds: -1})
	assert.Error(t, err)
}

func TestService_Join(t *testing.T) {
	ctx := context.Background()
	transport := newTransport()
	s := NewService(transport, memory.New(), "device-b", setupTestLogger())

	// Код нормализуется перед отправкой
	sess, err := s.Join(ctx, " abc234 ")
	require.NoError(t, err)
	assert.True(t, sess.HasParticipant("device-b"))
	assert.Equal(t, "ABC234", transport.JoinSessionCalls()[0].Code)

	_, err = s.Join(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, err = s.Join(ctx, "0O")
	assert.Error(t, err)
	assert.Len(t, transport.JoinSessionCalls(), 2, "malformed code is not sent")
}

func TestService_Current(t *testing.T) {
	ctx := context.Background()
	tickets := memory.New()
	s := NewService(newTransport(), tickets, "device-a", setupTestLogger())

	_, err := s.Current(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, tickets.SaveTicket(ctx, testTicket(time.Now().Add(-time.Minute))))
	_, err = s.Current(ctx)
	assert.ErrorIs(t, err, ErrTicketExpired)

	// Просроченный билет удален
	_, err = s.Current(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestService_Publish(t *testing.T) {
	ctx := context.Background()
	tickets := memory.New()
	transport := newTransport()
	s := NewService(transport, tickets, "device-a", setupTestLogger())

	_, err := s.Publish(ctx, models.EventProgress, nil, false)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, tickets.SaveTicket(ctx, testTicket(time.Now().Add(time.Hour))))

	_, err = s.Publish(ctx, models.EventParticipantJoined, nil, false)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	seq, err := s.Publish(ctx, models.EventRestTimerSynced, map[string]any{"rest_seconds": 90}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)

	calls := transport.PublishEventCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.EventRestTimerSynced, calls[0].EventType)
	assert.Equal(t, "token", calls[0].Ticket.Token)
}

func TestService_PublishMutation(t *testing.T) {
	ctx := context.Background()
	tickets := memory.New()
	transport := newTransport()
	s := NewService(transport, tickets, "device-a", setupTestLogger())
	require.NoError(t, tickets.SaveTicket(ctx, testTicket(time.Now().Add(time.Hour))))

	m := &models.Mutation{
		ID:         "m1",
		EntityType: "workoutSet",
		EntityID:   "s1",
		Operation:  models.OperationUpdate,
		Payload:    map[string]any{"completed": true, "reps": 10},
		SessionID:  "sess-1",
	}
	entity := &models.Entity{Type: "workoutSet", ID: "s1", Version: 3, Fields: map[string]any{"completed": true, "reps": 10}}

	require.NoError(t, s.PublishMutation(ctx, "sess-1", m, entity))

	calls := transport.PublishEventCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.EventSetCompleted, calls[0].EventType)
	assert.True(t, calls[0].ExcludeSender)
	assert.Equal(t, int64(3), calls[0].Payload["version"])
	assert.Equal(t, "s1", calls[0].Payload["entity_id"])

	// Мутация другой сессии не публикуется
	err := s.PublishMutation(ctx, "sess-2", m, entity)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Len(t, transport.PublishEventCalls(), 1)
}

func TestEventFor(t *testing.T) {
	completed := &models.Entity{Fields: map[string]any{"completed": true}}

	tests := []struct {
		m        *models.Mutation
		entity   *models.Entity
		name     string
		expected models.SessionEventType
	}{
		{
			name:     "set marked completed",
			m:        &models.Mutation{Operation: models.OperationUpdate, Payload: map[string]any{"completed": true}},
			entity:   completed,
			expected: models.EventSetCompleted,
		},
		{
			name:     "completed set created",
			m:        &models.Mutation{Operation: models.OperationCreate, Payload: map[string]any{"completed": true, "reps": 5}},
			entity:   completed,
			expected: models.EventSetCompleted,
		},
		{
			name:     "other field of completed set",
			m:        &models.Mutation{Operation: models.OperationUpdate, Payload: map[string]any{"note": "easy"}},
			entity:   completed,
			expected: models.EventProgress,
		},
		{
			name:     "rest timer",
			m:        &models.Mutation{Operation: models.OperationUpdate, Payload: map[string]any{"rest_until": "12:00:30"}},
			expected: models.EventRestTimerSynced,
		},
		{
			name:     "progress",
			m:        &models.Mutation{Operation: models.OperationUpdate, Payload: map[string]any{"reps": 3}},
			entity:   &models.Entity{Fields: map[string]any{"reps": 3}},
			expected: models.EventProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EventFor(tt.m, tt.entity))
		})
	}
}

func TestService_LeaveAndEnd(t *testing.T) {
	ctx := context.Background()
	tickets := memory.New()
	transport := newTransport()
	s := NewService(transport, tickets, "device-a", setupTestLogger())

	assert.ErrorIs(t, s.Leave(ctx), ErrNoSession)

	require.NoError(t, tickets.SaveTicket(ctx, testTicket(time.Now().Add(time.Hour))))
	transport.LeaveSessionFunc = func(ctx context.Context, ticket *models.SessionTicket) error {
		return fmt.Errorf("leave session failed: %w", api.ErrNotFound)
	}
	// Сессия, которую сервер уже забыл, считается покинутой
	require.NoError(t, s.Leave(ctx))
	_, err := s.Current(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, tickets.SaveTicket(ctx, testTicket(time.Now().Add(time.Hour))))
	transport.EndSessionFunc = func(ctx context.Context, ticket *models.SessionTicket) error {
		return fmt.Errorf("end session failed: %w", api.ErrForbidden)
	}
	assert.ErrorIs(t, s.End(ctx), api.ErrForbidden)
	_, err = s.Current(ctx)
	require.NoError(t, err, "ticket is kept when ending fails")
}

func TestService_WatchForgetsEndedSession(t *testing.T) {
	ctx := context.Background()
	tickets := memory.New()
	transport := newTransport()
	transport.StreamSessionFunc = func(ctx context.Context, ticket *models.SessionTicket, handler func(models.SessionEvent)) error {
		handler(models.SessionEvent{SessionID: ticket.SessionID, Type: models.EventSnapshot, Snapshot: &models.Session{ID: ticket.SessionID}})
		handler(models.SessionEvent{SessionID: ticket.SessionID, Seq: 4, Type: models.EventSetCompleted})
		handler(models.SessionEvent{SessionID: ticket.SessionID, Seq: 5, Type: models.EventSessionEnded})
		return nil
	}
	s := NewService(transport, tickets, "device-a", setupTestLogger())
	require.NoError(t, tickets.SaveTicket(ctx, testTicket(time.Now().Add(time.Hour))))

	var got []models.SessionEventType
	require.NoError(t, s.Watch(ctx, func(ev models.SessionEvent) { got = append(got, ev.Type) }))

	assert.Equal(t, []models.SessionEventType{models.EventSnapshot, models.EventSetCompleted, models.EventSessionEnded}, got)
	_, err := s.Current(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}
