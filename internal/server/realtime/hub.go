// Package realtime implements the in-memory broker of live sessions: join
// codes, membership and an ordered event stream per session.
package realtime

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/internal/validation"
)

// maxCodeAttempts число попыток подобрать свободный код
const maxCodeAttempts = 16

// Hub keeps live sessions in memory. Events are numbered per session and
// pushed to every subscriber mailbox under the hub lock, so all subscribers
// observe the publish order.
type Hub struct {
	logger   *slog.Logger
	now      func() time.Time
	newCode  func() (string, error)
	sessions map[string]*room
	codes    map[string]string // код входа -> id активной сессии
	mu       sync.Mutex
}

type room struct {
	touched time.Time
	session *models.Session
	subs    map[uint64]*mailbox
	nextSub uint64
}

// Option configures Hub
type Option func(*Hub)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// WithCodeGenerator overrides join code generation
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(h *Hub) {
		h.newCode = gen
	}
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		logger:   logger,
		now:      time.Now,
		newCode:  GenerateCode,
		sessions: make(map[string]*room),
		codes:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GenerateCode returns a random join code from validation.SessionCodeAlphabet
func GenerateCode() (string, error) {
	alphabet := validation.SessionCodeAlphabet
	size := big.NewInt(int64(len(alphabet)))

	code := make([]byte, validation.SessionCodeLen)
	for i := range code {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate session code: %w", err)
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}

// CreateSession starts a session with the host as its first participant
func (h *Hub) CreateSession(hostID string, settings models.SessionSettings) (*models.Session, error) {
	if err := validation.ValidateParticipantID(hostID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParticipant, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	code, err := h.freeCodeLocked()
	if err != nil {
		return nil, err
	}

	now := h.now().UTC()
	s := &models.Session{
		ID:           uuid.New().String(),
		Code:         code,
		HostID:       hostID,
		State:        models.SessionActive, // ведущий уже участник, created сразу переходит в active
		Participants: []string{hostID},
		Settings:     settings,
		CreatedAt:    now,
	}

	h.sessions[s.ID] = &room{session: s, subs: make(map[uint64]*mailbox), touched: now}
	h.codes[code] = s.ID

	h.logger.Info("Session created", "session_id", s.ID, "host_id", hostID)
	return s.Clone(), nil
}

// JoinByCode adds a participant to the active session with this code.
// Joining twice returns the current session without a new event.
func (h *Hub) JoinByCode(code, participantID string) (*models.Session, error) {
	if err := validation.ValidateParticipantID(participantID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParticipant, err)
	}
	code = validation.NormalizeSessionCode(code)

	h.mu.Lock()
	defer h.mu.Unlock()

	id, ok := h.codes[code]
	if !ok {
		return nil, fmt.Errorf("%w: code %q", ErrNotFound, code)
	}
	r := h.sessions[id]
	if r == nil || r.session.State != models.SessionActive {
		return nil, fmt.Errorf("%w: code %q", ErrNotFound, code)
	}

	if !r.session.HasParticipant(participantID) {
		r.session.Participants = append(r.session.Participants, participantID)
		h.publishLocked(r, models.SessionEvent{Type: models.EventParticipantJoined, SenderID: participantID}, "")
		h.logger.Info("Participant joined", "session_id", id, "participant_id", participantID)
	}

	return r.session.Clone(), nil
}

// Leave removes a participant. The host leaving ends the session.
func (h *Hub) Leave(sessionID, participantID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.activeLocked(sessionID)
	if err != nil {
		return err
	}
	if !r.session.HasParticipant(participantID) {
		return fmt.Errorf("%w: %s is not a participant", ErrForbidden, participantID)
	}

	participants := r.session.Participants[:0]
	for _, p := range r.session.Participants {
		if p != participantID {
			participants = append(participants, p)
		}
	}
	r.session.Participants = participants
	h.publishLocked(r, models.SessionEvent{Type: models.EventParticipantLeft, SenderID: participantID}, "")
	h.logger.Info("Participant left", "session_id", sessionID, "participant_id", participantID)

	if participantID == r.session.HostID {
		h.endLocked(r, participantID)
	}
	return nil
}

// End finishes the session. Only the host may end it.
func (h *Hub) End(sessionID, hostID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.activeLocked(sessionID)
	if err != nil {
		return err
	}
	if r.session.HostID != hostID {
		return fmt.Errorf("%w: only the host can end the session", ErrForbidden)
	}

	h.endLocked(r, hostID)
	return nil
}

// Publish fans a participant event out to the subscribers of a session and
// returns its sequence number. With excludeSender the sender's own
// subscriptions do not receive it.
func (h *Hub) Publish(sessionID string, event models.SessionEvent, excludeSender bool) (int64, error) {
	if !event.Type.Publishable() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEvent, event.Type)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.activeLocked(sessionID)
	if err != nil {
		return 0, err
	}
	if !r.session.HasParticipant(event.SenderID) {
		return 0, fmt.Errorf("%w: %s is not a participant", ErrForbidden, event.SenderID)
	}

	exclude := ""
	if excludeSender {
		exclude = event.SenderID
	}
	event.Snapshot = nil
	return h.publishLocked(r, event, exclude), nil
}

// Subscribe attaches a listener for a participant. The listener first gets a
// snapshot of the session, then every event published after this call in
// publish order. No earlier events are replayed.
func (h *Hub) Subscribe(sessionID, participantID string, listener Listener) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}
	if !r.session.HasParticipant(participantID) {
		return nil, fmt.Errorf("%w: %s is not a participant", ErrForbidden, participantID)
	}

	mb := newMailbox(participantID, listener)
	mb.push(models.SessionEvent{
		SessionID: sessionID,
		Seq:       r.session.Seq,
		Type:      models.EventSnapshot,
		Snapshot:  r.session.Clone(),
		At:        h.now().UTC(),
	})

	id := r.nextSub
	r.nextSub++
	r.subs[id] = mb

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(r.subs, id)
			h.mu.Unlock()
			mb.close(false)
		})
	}, nil
}

// Get returns a copy of a session, including ended ones not yet purged
func (h *Hub) Get(sessionID string) (*models.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return r.session.Clone(), nil
}

// Purge ends active sessions idle since before and forgets ended sessions
// that ended before it. Returns the number of sessions removed.
func (h *Hub) Purge(before time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for id, r := range h.sessions {
		if r.session.State == models.SessionActive && r.touched.Before(before) {
			h.logger.Info("Ending idle session", "session_id", id)
			h.endLocked(r, "")
		}
		if r.session.State == models.SessionEnded && r.session.EndedAt.Before(before) {
			delete(h.sessions, id)
			removed++
		}
	}
	return removed
}

// Shutdown ends every active session so that open streams finish
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, r := range h.sessions {
		if r.session.State == models.SessionActive {
			h.endLocked(r, "")
		}
	}
}

// publishLocked нумерует событие и кладет его во все почтовые ящики сессии
func (h *Hub) publishLocked(r *room, e models.SessionEvent, exclude string) int64 {
	now := h.now().UTC()
	r.session.Seq++
	r.touched = now

	e.SessionID = r.session.ID
	e.Seq = r.session.Seq
	e.At = now

	for _, mb := range r.subs {
		if exclude != "" && mb.participant == exclude {
			continue
		}
		out := e
		out.Payload = models.CloneFields(e.Payload)
		mb.push(out)
	}
	return e.Seq
}

// endLocked публикует session_ended и закрывает все подписки после доставки
func (h *Hub) endLocked(r *room, by string) {
	h.publishLocked(r, models.SessionEvent{Type: models.EventSessionEnded, SenderID: by}, "")

	r.session.State = models.SessionEnded
	r.session.EndedAt = h.now().UTC()
	delete(h.codes, r.session.Code)

	for id, mb := range r.subs {
		mb.close(true)
		delete(r.subs, id)
	}

	h.logger.Info("Session ended", "session_id", r.session.ID)
}

func (h *Hub) activeLocked(sessionID string) (*room, error) {
	r, ok := h.sessions[sessionID]
	if !ok || r.session.State != models.SessionActive {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return r, nil
}

func (h *Hub) freeCodeLocked() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := h.newCode()
		if err != nil {
			return "", err
		}
		if _, taken := h.codes[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to allocate a free session code after %d attempts", maxCodeAttempts)
}
