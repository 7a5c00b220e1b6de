package storage

import (
	"context"
	"time"

	"github.com/iudanet/repsync/internal/models"
)

//go:generate moq -out entitystorage_mock.go . EntityStorage

// WriteParams describes one versioned write
type WriteParams struct {
	Payload        map[string]any
	Key            models.EntityKey
	Operation      models.Operation
	Origin         string
	IdempotencyKey string // пустой ключ отключает повтор ответа
	BaseVersion    int64
}

// WriteResult is the outcome of an accepted write
type WriteResult struct {
	Entity        *models.Entity
	ChangedFields []string
	Seq           int64 // номер записи в ленте изменений, 0 для повтора
	Replayed      bool  // ответ повторен по ключу идемпотентности
}

// EntityStorage defines the server side of the remote store
type EntityStorage interface {
	// Write applies a write if BaseVersion matches the stored version.
	// A known IdempotencyKey returns the stored response without a new version.
	// Returns *ConflictError on a version mismatch, ErrEntityNotFound for an
	// update or delete of an entity that was never written.
	Write(ctx context.Context, params WriteParams) (*WriteResult, error)

	// Read returns the current snapshot, including deleted entities.
	// Returns ErrEntityNotFound if the entity was never written.
	Read(ctx context.Context, key models.EntityKey) (*models.Entity, error)

	// ChangesSince returns change log entries with seq greater than since,
	// ordered by seq. An empty topic matches every entity type.
	// limit <= 0 means no limit.
	ChangesSince(ctx context.Context, topic string, since int64, limit int) ([]models.Change, error)

	// PurgeIdempotency removes stored responses created before the given time
	PurgeIdempotency(ctx context.Context, before time.Time) (int64, error)

	// TrimChanges removes change log and version history entries created
	// before the given time
	TrimChanges(ctx context.Context, before time.Time) (int64, error)
}
