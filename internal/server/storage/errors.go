package storage

import (
	"errors"
	"fmt"

	"github.com/iudanet/repsync/internal/models"
)

// Common storage errors
var (
	// ErrEntityNotFound indicates that the entity was never written
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidWrite indicates that the write cannot be applied to any state
	ErrInvalidWrite = errors.New("invalid write")
)

// ConflictError is returned when the base version of a write does not match
// the stored entity.
type ConflictError struct {
	Current       *models.Entity // nil если сущность не существует
	ChangedFields []string       // поля, измененные после BaseVersion
	BaseVersion   int64
	ChangedKnown  bool // история версий после BaseVersion сохранилась полностью
}

func (e *ConflictError) Error() string {
	if e.Current == nil {
		return fmt.Sprintf("version conflict: base %d, entity missing", e.BaseVersion)
	}
	return fmt.Sprintf("version conflict: base %d, current %d", e.BaseVersion, e.Current.Version)
}
