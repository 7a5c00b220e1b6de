package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/internal/server/realtime"
	"github.com/iudanet/repsync/internal/server/ticket"
	"github.com/iudanet/repsync/pkg/api"
)

// SessionHandler serves live sessions: create, join, publish and stream
type SessionHandler struct {
	logger  *slog.Logger
	hub     *realtime.Hub
	tickets *ticket.Service
}

// NewSessionHandler creates a session handler
func NewSessionHandler(logger *slog.Logger, hub *realtime.Hub, tickets *ticket.Service) *SessionHandler {
	return &SessionHandler{
		logger:  logger,
		hub:     hub,
		tickets: tickets,
	}
}

// Create обрабатывает POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode create session request", "error", err)
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	s, err := h.hub.CreateSession(req.HostID, req.Settings.ToSettings())
	if err != nil {
		h.sessionFailed(w, err)
		return
	}

	h.respondWithTicket(w, s, req.HostID, http.StatusCreated)
}

// Join обрабатывает POST /api/v1/sessions/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req api.JoinSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode join request", "error", err)
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	s, err := h.hub.JoinByCode(req.Code, req.ParticipantID)
	if err != nil {
		h.sessionFailed(w, err)
		return
	}

	h.respondWithTicket(w, s, req.ParticipantID, http.StatusOK)
}

// Publish обрабатывает POST /api/v1/sessions/{id}/events
func (h *SessionHandler) Publish(w http.ResponseWriter, r *http.Request) {
	claims, ok := ticket.FromContext(r.Context())
	if !ok {
		sendError(h.logger, w, "missing session ticket", http.StatusUnauthorized)
		return
	}

	var req api.PublishEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode publish request", "error", err)
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	seq, err := h.hub.Publish(claims.SessionID, models.SessionEvent{
		Type:     models.SessionEventType(req.Type),
		SenderID: claims.ParticipantID,
		Payload:  req.Payload,
	}, req.ExcludeSender)
	if err != nil {
		h.sessionFailed(w, err)
		return
	}

	sendJSON(h.logger, w, api.PublishEventResponse{Seq: seq}, http.StatusOK)
}

// Leave обрабатывает POST /api/v1/sessions/{id}/leave
func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	claims, ok := ticket.FromContext(r.Context())
	if !ok {
		sendError(h.logger, w, "missing session ticket", http.StatusUnauthorized)
		return
	}

	if err := h.hub.Leave(claims.SessionID, claims.ParticipantID); err != nil {
		h.sessionFailed(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// End обрабатывает POST /api/v1/sessions/{id}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	claims, ok := ticket.FromContext(r.Context())
	if !ok {
		sendError(h.logger, w, "missing session ticket", http.StatusUnauthorized)
		return
	}

	if err := h.hub.End(claims.SessionID, claims.ParticipantID); err != nil {
		h.sessionFailed(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream обрабатывает GET /api/v1/sessions/{id}/stream.
// Первым приходит snapshot сессии, затем события в порядке публикации.
// Поток закрывается нормально после session_ended или ухода самого
// участника.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims, ok := ticket.FromContext(r.Context())
	if !ok {
		sendError(h.logger, w, "missing session ticket", http.StatusUnauthorized)
		return
	}

	events := make(chan models.SessionEvent)
	done := make(chan struct{})
	defer close(done)

	// подписка до upgrade: ошибки отдаются обычным HTTP статусом
	unsubscribe, err := h.hub.Subscribe(claims.SessionID, claims.ParticipantID, func(e models.SessionEvent) {
		select {
		case events <- e:
		case <-done:
		}
	})
	if err != nil {
		h.sessionFailed(w, err)
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readUntilClosed(conn, cancel)

	log := h.logger.With("session_id", claims.SessionID, "participant_id", claims.ParticipantID)
	log.Debug("Session stream opened")

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Session stream closed by client")
			return
		case e := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(api.FromEvent(e)); err != nil {
				log.Debug("Session stream write failed", "error", err)
				return
			}
			if streamFinished(e, claims.ParticipantID) {
				log.Debug("Session stream finished", "event", e.Type)
				closeWith(conn, websocket.CloseNormalClosure, string(e.Type))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// streamFinished сообщает, что после события e поток участника завершен
func streamFinished(e models.SessionEvent, participantID string) bool {
	switch e.Type {
	case models.EventSessionEnded:
		return true
	case models.EventParticipantLeft:
		return e.SenderID == participantID
	}
	return false
}

func (h *SessionHandler) respondWithTicket(w http.ResponseWriter, s *models.Session, participantID string, status int) {
	token, expiresAt, err := h.tickets.Issue(s.ID, participantID)
	if err != nil {
		h.logger.Error("Failed to issue session ticket", "session_id", s.ID, "error", err)
		sendError(h.logger, w, "failed to issue session ticket", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.SessionTicketResponse{
		Session:   api.FromSession(s),
		Ticket:    token,
		ExpiresAt: expiresAt,
	}, status)
}

// sessionFailed сопоставляет ошибку брокера со статусом ответа
func (h *SessionHandler) sessionFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, realtime.ErrNotFound):
		sendError(h.logger, w, "session not found", http.StatusNotFound)
	case errors.Is(err, realtime.ErrForbidden):
		sendError(h.logger, w, err.Error(), http.StatusForbidden)
	case errors.Is(err, realtime.ErrInvalidEvent), errors.Is(err, realtime.ErrInvalidParticipant):
		sendError(h.logger, w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error("Session operation failed", "error", err)
		sendError(h.logger, w, "session operation failed", http.StatusInternalServerError)
	}
}
