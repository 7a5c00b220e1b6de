package storage

import (
	"context"

	"github.com/iudanet/repsync/internal/models"
)

// EntityStorage persists the last authoritative snapshot of every entity
// known to the device. The optimistic view is never stored: it is replayed
// from these snapshots and the queued mutations.
type EntityStorage interface {
	// SaveEntity stores the authoritative snapshot
	SaveEntity(ctx context.Context, entity *models.Entity) error

	// ListEntities returns all stored snapshots
	ListEntities(ctx context.Context) ([]*models.Entity, error)

	// DeleteEntity forgets the snapshot of an entity
	DeleteEntity(ctx context.Context, key models.EntityKey) error
}
