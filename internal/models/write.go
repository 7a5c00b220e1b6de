package models

import (
	"errors"
	"time"
)

// Ошибки проверки версионированной записи.
// Используются и серверным хранилищем, и in-memory хранилищем клиента,
// чтобы правила записи были одинаковыми.
var (
	// ErrEntityExists create against a live entity
	ErrEntityExists = errors.New("entity already exists")
	// ErrEntityMissing update or delete against a missing or deleted entity
	ErrEntityMissing = errors.New("entity does not exist")
	// ErrVersionMismatch base version differs from the stored version
	ErrVersionMismatch = errors.New("version mismatch")
)

// CheckWrite validates an operation against the currently stored snapshot
// using optimistic concurrency. Payload content is never inspected.
func CheckWrite(current *Entity, op Operation, baseVersion int64) error {
	switch op {
	case OperationCreate:
		if current.Live() {
			return ErrEntityExists
		}
		return nil
	case OperationUpdate, OperationDelete:
		if !current.Live() {
			return ErrEntityMissing
		}
		if baseVersion != current.Version {
			return ErrVersionMismatch
		}
		return nil
	}
	return errors.New("unknown operation")
}

// NextEntity builds the snapshot that results from applying an accepted write
// to current. The caller must have validated the write with CheckWrite.
// The second result lists the fields touched by this version.
func NextEntity(current *Entity, key EntityKey, op Operation, payload map[string]any, origin string, now time.Time) (*Entity, []string) {
	var version int64 = 1
	if current != nil {
		version = current.Version + 1
	}

	next := &Entity{
		Type:      key.Type,
		ID:        key.ID,
		Version:   version,
		Origin:    origin,
		UpdatedAt: now,
	}

	switch op {
	case OperationCreate:
		next.Fields = ApplyFields(nil, payload)
		return next, FieldNames(payload)
	case OperationUpdate:
		next.Fields = ApplyFields(CloneFields(current.Fields), payload)
		return next, FieldNames(payload)
	default:
		// delete затрагивает все поля сущности
		next.Fields = CloneFields(current.Fields)
		next.Deleted = true
		return next, FieldNames(current.Fields)
	}
}
