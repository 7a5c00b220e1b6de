package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/pkg/api"
)

// CreateSession создает совместную сессию, hostID становится ведущим
func (c *Client) CreateSession(ctx context.Context, hostID string, settings models.SessionSettings) (*models.Session, *models.SessionTicket, error) {
	req := api.CreateSessionRequest{HostID: hostID, Settings: api.FromSettings(settings)}

	var resp api.SessionTicketResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sessions", nil, req, &resp); err != nil {
		return nil, nil, fmt.Errorf("create session failed: %w", err)
	}
	return resp.Session.ToSession(), ticketFrom(resp, hostID), nil
}

// JoinSession входит в активную сессию по коду
func (c *Client) JoinSession(ctx context.Context, code, participantID string) (*models.Session, *models.SessionTicket, error) {
	req := api.JoinSessionRequest{Code: code, ParticipantID: participantID}

	var resp api.SessionTicketResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sessions/join", nil, req, &resp); err != nil {
		return nil, nil, fmt.Errorf("join session failed: %w", err)
	}
	return resp.Session.ToSession(), ticketFrom(resp, participantID), nil
}

// PublishEvent публикует событие участника и возвращает его номер
func (c *Client) PublishEvent(ctx context.Context, ticket *models.SessionTicket, eventType models.SessionEventType, payload map[string]any, excludeSender bool) (int64, error) {
	req := api.PublishEventRequest{Type: string(eventType), Payload: payload, ExcludeSender: excludeSender}

	var resp api.PublishEventResponse
	if err := c.doRequest(ctx, http.MethodPost, sessionPath(ticket.SessionID, "events"), authHeader(ticket), req, &resp); err != nil {
		return 0, fmt.Errorf("publish event failed: %w", err)
	}
	return resp.Seq, nil
}

// LeaveSession покидает сессию
func (c *Client) LeaveSession(ctx context.Context, ticket *models.SessionTicket) error {
	if err := c.doRequest(ctx, http.MethodPost, sessionPath(ticket.SessionID, "leave"), authHeader(ticket), nil, nil); err != nil {
		return fmt.Errorf("leave session failed: %w", err)
	}
	return nil
}

// EndSession завершает сессию, доступно только ведущему
func (c *Client) EndSession(ctx context.Context, ticket *models.SessionTicket) error {
	if err := c.doRequest(ctx, http.MethodPost, sessionPath(ticket.SessionID, "end"), authHeader(ticket), nil, nil); err != nil {
		return fmt.Errorf("end session failed: %w", err)
	}
	return nil
}

// StreamSession читает поток событий сессии до отмены ctx или закрытия
// потока сервером. Первое событие всегда snapshot.
func (c *Client) StreamSession(ctx context.Context, ticket *models.SessionTicket, handler func(models.SessionEvent)) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+ticket.Token)

	conn, err := c.dial(ctx, sessionPath(ticket.SessionID, "stream"), header)
	if err != nil {
		return fmt.Errorf("open session stream failed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var event api.SessionEventDTO
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("%w: session stream read failed: %w", ErrTransient, err)
		}
		handler(event.ToEvent())
	}
}

func sessionPath(sessionID, action string) string {
	return fmt.Sprintf("/api/v1/sessions/%s/%s", url.PathEscape(sessionID), action)
}

func authHeader(ticket *models.SessionTicket) map[string]string {
	return map[string]string{"Authorization": "Bearer " + ticket.Token}
}

func ticketFrom(resp api.SessionTicketResponse, participantID string) *models.SessionTicket {
	return &models.SessionTicket{
		SessionID:     resp.Session.ID,
		ParticipantID: participantID,
		Code:          resp.Session.Code,
		Token:         resp.Ticket,
		ExpiresAt:     resp.ExpiresAt,
	}
}
