package models

import "time"

// SessionState состояние совместной сессии
type SessionState string

const (
	SessionCreated SessionState = "created"
	SessionActive  SessionState = "active"
	SessionEnded   SessionState = "ended"
)

// SessionSettings флаги совместной тренировки
type SessionSettings struct {
	Name           string `json:"name,omitempty"`
	RestSeconds    int    `json:"rest_seconds,omitempty"`
	SyncRestTimers bool   `json:"sync_rest_timers"`
}

// Session описывает эфемерную совместную сессию.
// Список участников меняется только событиями join/leave.
type Session struct {
	CreatedAt    time.Time       `json:"created_at"`
	EndedAt      time.Time       `json:"ended_at,omitempty"`
	Settings     SessionSettings `json:"settings"`
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	HostID       string          `json:"host_id"`
	State        SessionState    `json:"state"`
	Participants []string        `json:"participants"`
	Seq          int64           `json:"seq"` // Seq номер последнего опубликованного события
}

// HasParticipant reports whether id is a current participant.
func (s *Session) HasParticipant(id string) bool {
	for _, p := range s.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Clone создает копию сессии
func (s *Session) Clone() *Session {
	c := *s
	c.Participants = append([]string(nil), s.Participants...)
	return &c
}

// SessionEventType тип события сессии
type SessionEventType string

const (
	EventSnapshot          SessionEventType = "snapshot"
	EventParticipantJoined SessionEventType = "participant_joined"
	EventParticipantLeft   SessionEventType = "participant_left"
	EventSetCompleted      SessionEventType = "set_completed"
	EventRestTimerSynced   SessionEventType = "rest_timer_synced"
	EventProgress          SessionEventType = "progress"
	EventSessionEnded      SessionEventType = "session_ended"
)

// Publishable reports whether clients may publish events of this type.
// Membership and lifecycle events are produced by the hub itself.
func (t SessionEventType) Publishable() bool {
	switch t {
	case EventSetCompleted, EventRestTimerSynced, EventProgress:
		return true
	}
	return false
}

// SessionEvent одно событие в упорядоченном потоке сессии.
// События не сохраняются.
type SessionEvent struct {
	At        time.Time        `json:"at"`
	Payload   map[string]any   `json:"payload,omitempty"`
	Snapshot  *Session         `json:"snapshot,omitempty"` // Snapshot заполнен только для EventSnapshot
	SessionID string           `json:"session_id"`
	Type      SessionEventType `json:"type"`
	SenderID  string           `json:"sender_id,omitempty"`
	Seq       int64            `json:"seq"`
}

// SessionTicket подтверждение участия в сессии, выданное сервером
type SessionTicket struct {
	ExpiresAt     time.Time `json:"expires_at"`
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	Code          string    `json:"code"`
	Token         string    `json:"token"` // Token подписанный JWT для заголовка Authorization
}
