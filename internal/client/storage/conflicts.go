package storage

import (
	"context"

	"github.com/iudanet/repsync/internal/models"
)

//go:generate moq -out conflictstorage_mock.go . ConflictStorage

// ConflictStorage defines interface for storing conflict records on client
type ConflictStorage interface {
	// SaveConflict stores or updates a conflict record
	SaveConflict(ctx context.Context, record *models.ConflictRecord) error

	// GetConflict retrieves a conflict record by ID
	// Returns ErrConflictNotFound if record doesn't exist
	GetConflict(ctx context.Context, id string) (*models.ConflictRecord, error)

	// ListConflicts returns all records ordered by detection time
	ListConflicts(ctx context.Context) ([]*models.ConflictRecord, error)

	// DeleteConflict removes a record
	DeleteConflict(ctx context.Context, id string) error
}
