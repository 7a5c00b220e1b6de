package realtime

import "errors"

// Ошибки брокера сессий
var (
	// ErrNotFound unknown session or code, or the session is no longer active
	ErrNotFound = errors.New("session not found")

	// ErrForbidden the caller is not a participant or not the host
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidEvent the event type cannot be published by participants
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidParticipant malformed participant id
	ErrInvalidParticipant = errors.New("invalid participant")
)
