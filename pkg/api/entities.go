package api

import "time"

// EntityDTO представляет снимок сущности на проводе
type EntityDTO struct {
	UpdatedAt time.Time      `json:"updated_at"`
	Fields    map[string]any `json:"fields,omitempty"`
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	Origin    string         `json:"origin,omitempty"` // узел, записавший версию
	Version   int64          `json:"version"`
	Deleted   bool           `json:"deleted"`
}

// WriteRequest тело PUT /api/v1/entities/{type}/{id}
type WriteRequest struct {
	Payload     map[string]any `json:"payload,omitempty"`
	Operation   string         `json:"operation"`        // create, update или delete
	Origin      string         `json:"origin,omitempty"` // node id клиента
	BaseVersion int64          `json:"base_version"`     // 0 для create
}

// WriteResponse ответ на принятую запись
type WriteResponse struct {
	Entity        EntityDTO `json:"entity"`
	ChangedFields []string  `json:"changed_fields,omitempty"` // поля, затронутые этой версией
	Replayed      bool      `json:"replayed,omitempty"`       // ответ повторен по ключу идемпотентности
}

// ConflictResponse ответ 409 при расхождении версий
type ConflictResponse struct {
	Current       *EntityDTO `json:"current,omitempty"` // nil если сущности нет
	Error         string     `json:"error"`
	Message       string     `json:"message,omitempty"`
	ChangedFields []string   `json:"changed_fields,omitempty"` // поля, измененные после base_version
	BaseVersion   int64      `json:"base_version"`
	ChangedKnown  bool       `json:"changed_known"` // сервер знает историю начиная с base_version
}

// ChangeDTO одна запись ленты изменений
type ChangeDTO struct {
	Entity EntityDTO `json:"entity"`
	Seq    int64     `json:"seq"`
}
