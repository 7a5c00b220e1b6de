package storage

import (
	"context"
	"time"

	"github.com/iudanet/repsync/internal/models"
)

//go:generate moq -out queuestorage_mock.go . QueueStorage

// QueueStorage is the durable backing of the local mutation queue.
// Append must be durable when it returns: the queue relies on it to never
// lose an accepted mutation.
type QueueStorage interface {
	// Append durably stores a new mutation
	Append(ctx context.Context, m *models.Mutation) error

	// ReadAll returns all stored mutations ordered by Seq
	ReadAll(ctx context.Context) ([]*models.Mutation, error)

	// Update applies a partial update to a stored mutation
	// Returns ErrMutationNotFound if mutation doesn't exist
	Update(ctx context.Context, id string, patch MutationPatch) error

	// Delete removes a mutation. Deleting a missing mutation is not an error.
	Delete(ctx context.Context, id string) error
}

// MutationPatch описывает частичное обновление мутации.
// nil поля не изменяются.
type MutationPatch struct {
	Status      *models.MutationStatus
	RetryCount  *int
	NextRetryAt *time.Time
	LastError   *string
	Exhausted   *bool
	BaseVersion *int64
}

// Apply writes the non-nil fields of the patch into m.
func (p MutationPatch) Apply(m *models.Mutation) {
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.RetryCount != nil {
		m.RetryCount = *p.RetryCount
	}
	if p.NextRetryAt != nil {
		m.NextRetryAt = *p.NextRetryAt
	}
	if p.LastError != nil {
		m.LastError = *p.LastError
	}
	if p.Exhausted != nil {
		m.Exhausted = *p.Exhausted
	}
	if p.BaseVersion != nil {
		m.BaseVersion = *p.BaseVersion
	}
}
