package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/repsync/internal/models"
)

//go:generate moq -out remotestore_mock.go . RemoteStore

// RemoteStore is the narrow interface the sync engine consumes.
// Any backend that provides versioned writes with idempotency keys and a
// change subscription can sit behind it.
type RemoteStore interface {
	// Write applies one mutation. Retrying with the same IdempotencyKey never
	// applies it twice. Errors are classified by the sentinels below and
	// *ConflictError.
	Write(ctx context.Context, req WriteRequest) (*WriteResult, error)

	// Read returns the current snapshot, deleted ones included.
	// Returns ErrNotFound if the entity was never written.
	Read(ctx context.Context, entityType, id string) (*models.Entity, error)

	// Subscribe delivers remote changes to handler until ctx is done, the
	// returned function is called, or the connection fails. Handler calls
	// are sequential.
	Subscribe(ctx context.Context, sub Subscription, handler ChangeHandler) (func(), error)
}

// WriteRequest is one conditional write
type WriteRequest struct {
	Payload        map[string]any
	IdempotencyKey string // ID мутации
	EntityType     string
	EntityID       string
	Origin         string // node id устройства
	Operation      models.Operation
	BaseVersion    int64
}

// WriteResult is the authoritative outcome of an accepted write
type WriteResult struct {
	Entity        *models.Entity
	ChangedFields []string
	Replayed      bool // ответ повторен по ключу идемпотентности
}

// ChangeHandler receives change feed entries in sequence order
type ChangeHandler func(change models.Change)

// Subscription selects a slice of the change feed
type Subscription struct {
	OnClose func(err error) // OnClose вызывается один раз при завершении подписки
	Topic   string          // тип сущности, пустая строка означает все типы
	Since   int64           // последняя увиденная запись ленты
}

// Remote store errors
var (
	// ErrTransient covers timeouts, connection failures and 5xx responses.
	// The write may or may not have been applied.
	ErrTransient = errors.New("transient remote error")

	// ErrValidation means the remote store rejected the payload.
	// Retrying the same mutation can never succeed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means the target entity does not exist
	ErrNotFound = errors.New("entity not found")

	// ErrForbidden means the request was not authorized
	ErrForbidden = errors.New("forbidden")
)

// ConflictError is returned by Write when the base version of the mutation
// does not match the current server version.
type ConflictError struct {
	Current       *models.Entity // Current nil если сущность не существует
	ChangedFields []string       // ChangedFields поля, измененные после BaseVersion
	BaseVersion   int64
	ChangedKnown  bool // ChangedKnown сервер смог вычислить ChangedFields
}

func (e *ConflictError) Error() string {
	if e.Current == nil {
		return fmt.Sprintf("version conflict: base %d, entity missing", e.BaseVersion)
	}
	return fmt.Sprintf("version conflict: base %d, current %d", e.BaseVersion, e.Current.Version)
}

// IsConflict unwraps a *ConflictError from err
func IsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
