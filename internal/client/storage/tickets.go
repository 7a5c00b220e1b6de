package storage

import (
	"context"

	"github.com/iudanet/repsync/internal/models"
)

// TicketStorage keeps the ticket of the live session the device takes part in.
// Only one session at a time is supported.
type TicketStorage interface {
	// SaveTicket stores the current session ticket
	SaveTicket(ctx context.Context, ticket *models.SessionTicket) error

	// GetTicket returns the current ticket
	// Returns ErrTicketNotFound if the device is not in a session
	GetTicket(ctx context.Context) (*models.SessionTicket, error)

	// DeleteTicket forgets the current ticket
	DeleteTicket(ctx context.Context) error
}
