package api

import "time"

// SessionSettingsDTO настройки совместной сессии
type SessionSettingsDTO struct {
	Name           string `json:"name,omitempty"`
	RestSeconds    int    `json:"rest_seconds,omitempty"`
	SyncRestTimers bool   `json:"sync_rest_timers"`
}

// SessionDTO представляет сессию на проводе
type SessionDTO struct {
	CreatedAt    time.Time          `json:"created_at"`
	EndedAt      time.Time          `json:"ended_at,omitempty"`
	Settings     SessionSettingsDTO `json:"settings"`
	ID           string             `json:"id"`
	Code         string             `json:"code"`
	HostID       string             `json:"host_id"`
	State        string             `json:"state"`
	Participants []string           `json:"participants"`
	Seq          int64              `json:"seq"`
}

// CreateSessionRequest тело POST /api/v1/sessions
type CreateSessionRequest struct {
	HostID   string             `json:"host_id"`
	Settings SessionSettingsDTO `json:"settings"`
}

// JoinSessionRequest тело POST /api/v1/sessions/join
type JoinSessionRequest struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participant_id"`
}

// SessionTicketResponse ответ на создание сессии и вход в нее
type SessionTicketResponse struct {
	ExpiresAt time.Time  `json:"expires_at"`
	Session   SessionDTO `json:"session"`
	Ticket    string     `json:"ticket"` // JWT для остальных запросов сессии
}

// PublishEventRequest тело POST /api/v1/sessions/{id}/events
type PublishEventRequest struct {
	Payload       map[string]any `json:"payload,omitempty"`
	Type          string         `json:"type"`
	ExcludeSender bool           `json:"exclude_sender"`
}

// PublishEventResponse ответ с номером опубликованного события
type PublishEventResponse struct {
	Seq int64 `json:"seq"`
}

// SessionEventDTO событие потока сессии
type SessionEventDTO struct {
	At        time.Time      `json:"at"`
	Payload   map[string]any `json:"payload,omitempty"`
	Snapshot  *SessionDTO    `json:"snapshot,omitempty"`
	SessionID string         `json:"session_id"`
	Type      string         `json:"type"`
	SenderID  string         `json:"sender_id,omitempty"`
	Seq       int64          `json:"seq"`
}
