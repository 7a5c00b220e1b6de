// Package session manages the device's participation in a live session:
// creating or joining it, keeping the session ticket, publishing events and
// forwarding acknowledged session-scoped mutations to the other
// participants.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/repsync/internal/client/api"
	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/internal/validation"
)

var (
	// ErrNoSession is returned when the device does not take part in a session
	ErrNoSession = errors.New("not in a session")

	// ErrTicketExpired is returned when the stored ticket is no longer valid
	ErrTicketExpired = errors.New("session ticket expired")

	// ErrInvalidEvent is returned for event types clients may not publish
	ErrInvalidEvent = errors.New("invalid session event")
)

//go:generate moq -out transport_mock.go . Transport

// Transport is the part of the server API the service needs.
// *api.Client implements it.
type Transport interface {
	CreateSession(ctx context.Context, hostID string, settings models.SessionSettings) (*models.Session, *models.SessionTicket, error)
	JoinSession(ctx context.Context, code, participantID string) (*models.Session, *models.SessionTicket, error)
	PublishEvent(ctx context.Context, ticket *models.SessionTicket, eventType models.SessionEventType, payload map[string]any, excludeSender bool) (int64, error)
	LeaveSession(ctx context.Context, ticket *models.SessionTicket) error
	EndSession(ctx context.Context, ticket *models.SessionTicket) error
	StreamSession(ctx context.Context, ticket *models.SessionTicket, handler func(models.SessionEvent)) error
}

// Service представляет участие устройства в совместной сессии
type Service struct {
	transport     Transport
	tickets       storage.TicketStorage
	logger        *slog.Logger
	now           func() time.Time
	participantID string // node id устройства
}

// NewService creates a session service acting as participantID
func NewService(transport Transport, tickets storage.TicketStorage, participantID string, logger *slog.Logger) *Service {
	return &Service{
		transport:     transport,
		tickets:       tickets,
		participantID: participantID,
		logger:        logger,
		now:           time.Now,
	}
}

// Create starts a session hosted by this device and stores its ticket
func (s *Service) Create(ctx context.Context, settings models.SessionSettings) (*models.Session, error) {
	if settings.RestSeconds < 0 {
		return nil, fmt.Errorf("rest seconds must not be negative")
	}

	sess, ticket, err := s.transport.CreateSession(ctx, s.participantID, settings)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to save ticket: %w", err)
	}

	s.logger.Info("Session created", "session_id", sess.ID, "code", sess.Code)
	return sess, nil
}

// Join enters an active session by its join code and stores the ticket
func (s *Service) Join(ctx context.Context, code string) (*models.Session, error) {
	code = validation.NormalizeSessionCode(code)
	if err := validation.ValidateSessionCode(code); err != nil {
		return nil, fmt.Errorf("invalid code: %w", err)
	}

	sess, ticket, err := s.transport.JoinSession(ctx, code, s.participantID)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to save ticket: %w", err)
	}

	s.logger.Info("Session joined",
		"session_id", sess.ID,
		"participants", len(sess.Participants))
	return sess, nil
}

// Current returns the ticket of the session the device takes part in.
// An expired ticket is forgotten and ErrTicketExpired returned.
func (s *Service) Current(ctx context.Context) (*models.SessionTicket, error) {
	ticket, err := s.tickets.GetTicket(ctx)
	if errors.Is(err, storage.ErrTicketNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	if !ticket.ExpiresAt.IsZero() && !s.now().Before(ticket.ExpiresAt) {
		if err := s.tickets.DeleteTicket(ctx); err != nil {
			return nil, fmt.Errorf("failed to delete expired ticket: %w", err)
		}
		return nil, ErrTicketExpired
	}
	return ticket, nil
}

// Publish sends a participant event to the current session
func (s *Service) Publish(ctx context.Context, eventType models.SessionEventType, payload map[string]any, excludeSender bool) (int64, error) {
	if !eventType.Publishable() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEvent, eventType)
	}

	ticket, err := s.Current(ctx)
	if err != nil {
		return 0, err
	}
	return s.transport.PublishEvent(ctx, ticket, eventType, payload, excludeSender)
}

// PublishMutation announces an acknowledged mutation of the current session
// to the other participants.
func (s *Service) PublishMutation(ctx context.Context, sessionID string, m *models.Mutation, entity *models.Entity) error {
	ticket, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if ticket.SessionID != sessionID {
		return fmt.Errorf("%w: mutation belongs to session %s", ErrNoSession, sessionID)
	}

	payload := map[string]any{
		"mutation_id": m.ID,
		"entity_type": m.EntityType,
		"entity_id":   m.EntityID,
		"operation":   string(m.Operation),
		"fields":      models.CloneFields(m.Payload),
	}
	if entity != nil {
		payload["version"] = entity.Version
	}

	eventType := EventFor(m, entity)
	seq, err := s.transport.PublishEvent(ctx, ticket, eventType, payload, true)
	if err != nil {
		return err
	}

	s.logger.Debug("Session mutation published",
		"session_id", sessionID,
		"mutation_id", m.ID,
		"type", eventType,
		"seq", seq)
	return nil
}

// EventFor picks the session event type announcing a mutation: a set marked
// completed, a rest timer change, or generic progress.
func EventFor(m *models.Mutation, entity *models.Entity) models.SessionEventType {
	if entity != nil && !entity.Deleted {
		if done, ok := entity.Fields["completed"].(bool); ok && done {
			if _, touched := m.Payload["completed"]; touched || m.Operation == models.OperationCreate {
				return models.EventSetCompleted
			}
		}
	}
	for _, field := range []string{"rest_seconds", "rest_until"} {
		if _, ok := m.Payload[field]; ok {
			return models.EventRestTimerSynced
		}
	}
	return models.EventProgress
}

// Leave leaves the current session and forgets the ticket. A session the
// server no longer knows is treated as left.
func (s *Service) Leave(ctx context.Context) error {
	ticket, err := s.Current(ctx)
	if err != nil {
		return err
	}

	if err := s.transport.LeaveSession(ctx, ticket); err != nil && !errors.Is(err, api.ErrNotFound) {
		return err
	}
	if err := s.tickets.DeleteTicket(ctx); err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}

	s.logger.Info("Session left", "session_id", ticket.SessionID)
	return nil
}

// End ends the current session. Only the host may do this.
func (s *Service) End(ctx context.Context) error {
	ticket, err := s.Current(ctx)
	if err != nil {
		return err
	}

	if err := s.transport.EndSession(ctx, ticket); err != nil {
		return err
	}
	if err := s.tickets.DeleteTicket(ctx); err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}

	s.logger.Info("Session ended", "session_id", ticket.SessionID)
	return nil
}

// Watch streams the events of the current session to handler until ctx is
// done or the session ends. The first event is a snapshot.
func (s *Service) Watch(ctx context.Context, handler func(models.SessionEvent)) error {
	ticket, err := s.Current(ctx)
	if err != nil {
		return err
	}

	ended := false
	err = s.transport.StreamSession(ctx, ticket, func(ev models.SessionEvent) {
		if ev.Type == models.EventSessionEnded {
			ended = true
		}
		handler(ev)
	})

	if ended {
		// Сессия завершена ведущим: билет больше не нужен
		if delErr := s.tickets.DeleteTicket(context.WithoutCancel(ctx)); delErr != nil {
			s.logger.Warn("Failed to delete ticket of ended session", "error", delErr)
		}
	}
	return err
}

var _ Transport = (*api.Client)(nil)
