package models

import (
	"fmt"
	"time"
)

// Operation тип операции над сущностью
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid reports whether the operation is one of create, update or delete.
func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// MutationStatus статус мутации в локальной очереди
type MutationStatus string

const (
	StatusPending  MutationStatus = "pending"
	StatusInFlight MutationStatus = "in-flight"
	StatusFailed   MutationStatus = "failed"
	StatusApplied  MutationStatus = "applied"
)

// EntityKey identifies an entity independently of its version.
type EntityKey struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// String returns "type/id".
func (k EntityKey) String() string {
	return fmt.Sprintf("%s/%s", k.Type, k.ID)
}

// Mutation представляет одну отложенную запись в удаленное хранилище.
// ID используется как ключ идемпотентности при отправке.
type Mutation struct {
	CreatedAt   time.Time      `json:"created_at"`    // CreatedAt клиентское время, только для порядка и backoff
	NextRetryAt time.Time      `json:"next_retry_at"` // NextRetryAt когда мутацию можно отправить повторно
	Payload     map[string]any `json:"payload,omitempty"`
	ID          string         `json:"id"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Operation   Operation      `json:"operation"`
	Status      MutationStatus `json:"status"`
	LastError   string         `json:"last_error,omitempty"`
	SessionID   string         `json:"session_id,omitempty"` // SessionID заполнен для мутаций живой сессии
	BaseVersion int64          `json:"base_version"`         // BaseVersion 0 означает отсутствие версии (create)
	Seq         int64          `json:"seq"`                  // Seq порядковый номер постановки в очередь
	RetryCount  int            `json:"retry_count"`
	Exhausted   bool           `json:"exhausted,omitempty"` // Exhausted достигнут потолок повторов
}

// Key returns the key of the mutated entity.
func (m *Mutation) Key() EntityKey {
	return EntityKey{Type: m.EntityType, ID: m.EntityID}
}

// HasBase reports whether the mutation was computed against a known version.
func (m *Mutation) HasBase() bool {
	return m.BaseVersion > 0
}

// Retryable reports whether a failed mutation left its backoff window.
func (m *Mutation) Retryable(now time.Time) bool {
	return m.Status == StatusFailed && !m.Exhausted && !m.NextRetryAt.After(now)
}

// Eligible reports whether the mutation may be sent at now.
// In-flight mutations are eligible because they are only observed as
// in-flight after an interrupted drain and must be re-sent.
func (m *Mutation) Eligible(now time.Time) bool {
	switch m.Status {
	case StatusPending, StatusInFlight:
		return true
	case StatusFailed:
		return m.Retryable(now)
	}
	return false
}

// Clone создает глубокую копию мутации
func (m *Mutation) Clone() *Mutation {
	c := *m
	c.Payload = CloneFields(m.Payload)
	return &c
}
