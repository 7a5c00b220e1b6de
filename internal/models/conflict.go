package models

import "time"

// Resolution исход разрешения конфликта
type Resolution string

const (
	ResolutionPending    Resolution = "pending"
	ResolutionKeptLocal  Resolution = "kept-local"
	ResolutionKeptRemote Resolution = "kept-remote"
	ResolutionMerged     Resolution = "merged"
)

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionPending, ResolutionKeptLocal, ResolutionKeptRemote, ResolutionMerged:
		return true
	}
	return false
}

// ConflictRecord описывает расхождение между оптимистичной локальной
// версией и авторитетной версией сервера.
type ConflictRecord struct {
	DetectedAt    time.Time      `json:"detected_at"`
	ResolvedAt    time.Time      `json:"resolved_at,omitempty"`
	LocalValue    map[string]any `json:"local_value,omitempty"`    // LocalValue изменения, которые пытался записать клиент
	RemoteValue   map[string]any `json:"remote_value,omitempty"`   // RemoteValue поля сервера на момент конфликта (nil если удалена)
	ResolvedValue map[string]any `json:"resolved_value,omitempty"` // ResolvedValue итоговые поля после разрешения
	ID            string         `json:"id"`
	MutationID    string         `json:"mutation_id"`
	EntityType    string         `json:"entity_type"`
	EntityID      string         `json:"entity_id"`
	Operation     Operation      `json:"operation"`
	Resolution    Resolution     `json:"resolution"`
	ChangedFields []string       `json:"changed_fields,omitempty"` // ChangedFields поля, измененные на сервере после BaseVersion
	BaseVersion   int64          `json:"base_version"`
	RemoteVersion int64          `json:"remote_version"`
	RemoteDeleted bool           `json:"remote_deleted,omitempty"`
	Visible       bool           `json:"visible"` // Visible конфликт показывается пользователю
}

// Key returns the key of the conflicting entity.
func (c *ConflictRecord) Key() EntityKey {
	return EntityKey{Type: c.EntityType, ID: c.EntityID}
}

// Resolved reports whether the record left the pending state.
func (c *ConflictRecord) Resolved() bool {
	return c.Resolution != ResolutionPending
}

// Clone создает глубокую копию записи
func (c *ConflictRecord) Clone() *ConflictRecord {
	r := *c
	r.LocalValue = CloneFields(c.LocalValue)
	r.RemoteValue = CloneFields(c.RemoteValue)
	r.ResolvedValue = CloneFields(c.ResolvedValue)
	r.ChangedFields = append([]string(nil), c.ChangedFields...)
	return &r
}
