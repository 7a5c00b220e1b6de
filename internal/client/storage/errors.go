package storage

import "errors"

// Common client storage errors
var (
	// ErrMutationNotFound indicates that the queued mutation does not exist
	ErrMutationNotFound = errors.New("mutation not found")

	// ErrConflictNotFound indicates that the conflict record does not exist
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrTicketNotFound indicates that no session ticket is stored
	ErrTicketNotFound = errors.New("session ticket not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
