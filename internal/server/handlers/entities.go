package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/internal/server/changefeed"
	"github.com/iudanet/repsync/internal/server/storage"
	"github.com/iudanet/repsync/internal/validation"
	"github.com/iudanet/repsync/pkg/api"
)

// EntityTypes ограничивает допустимые типы сущностей. Пустой набор
// разрешает любые типы.
type EntityTypes map[string]struct{}

// NewEntityTypes builds the set of accepted entity types
func NewEntityTypes(types []string) EntityTypes {
	set := make(EntityTypes, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// Check returns an error if entityType is not accepted
func (s EntityTypes) Check(entityType string) error {
	if err := validation.ValidateEntityType(entityType); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	if _, ok := s[entityType]; !ok {
		return fmt.Errorf("entity type %q is not accepted by this server", entityType)
	}
	return nil
}

// EntityHandler serves versioned reads and writes of entities
type EntityHandler struct {
	logger *slog.Logger
	store  storage.EntityStorage
	feed   *changefeed.Hub
	types  EntityTypes
	// writeMu держит порядок Publish равным порядку seq в ленте
	writeMu sync.Mutex
}

// NewEntityHandler creates an entity handler
func NewEntityHandler(logger *slog.Logger, store storage.EntityStorage, feed *changefeed.Hub, types EntityTypes) *EntityHandler {
	return &EntityHandler{
		logger: logger,
		store:  store,
		feed:   feed,
		types:  types,
	}
}

// Put обрабатывает PUT /api/v1/entities/{type}/{id}
func (h *EntityHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := models.EntityKey{Type: chi.URLParam(r, "type"), ID: chi.URLParam(r, "id")}

	var req api.WriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode write request", "error", err)
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	op := models.Operation(req.Operation)
	if err := h.types.Check(key.Type); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := validation.ValidateWrite(key.Type, key.ID, op, req.Payload); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	params := storage.WriteParams{
		Key:            key,
		Operation:      op,
		Payload:        req.Payload,
		Origin:         req.Origin,
		BaseVersion:    req.BaseVersion,
		IdempotencyKey: r.Header.Get(api.IdempotencyKeyHeader),
	}

	h.writeMu.Lock()
	res, err := h.store.Write(r.Context(), params)
	if err == nil && !res.Replayed {
		h.feed.Publish(models.Change{Seq: res.Seq, Entity: res.Entity})
	}
	h.writeMu.Unlock()

	if err != nil {
		h.writeFailed(w, key, params, err)
		return
	}

	h.logger.Debug("Write accepted",
		"entity_type", key.Type,
		"entity_id", key.ID,
		"mutation_id", params.IdempotencyKey,
		"version", res.Entity.Version,
		"replayed", res.Replayed,
	)

	sendJSON(h.logger, w, api.WriteResponse{
		Entity:        api.FromEntity(res.Entity),
		ChangedFields: res.ChangedFields,
		Replayed:      res.Replayed,
	}, http.StatusOK)
}

// Get обрабатывает GET /api/v1/entities/{type}/{id}
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := models.EntityKey{Type: chi.URLParam(r, "type"), ID: chi.URLParam(r, "id")}

	e, err := h.store.Read(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			sendError(h.logger, w, "entity not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to read entity", "entity_type", key.Type, "entity_id", key.ID, "error", err)
		sendError(h.logger, w, "failed to read entity", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.FromEntity(e), http.StatusOK)
}

// writeFailed сопоставляет ошибку хранилища со статусом ответа
func (h *EntityHandler) writeFailed(w http.ResponseWriter, key models.EntityKey, p storage.WriteParams, err error) {
	var ce *storage.ConflictError
	switch {
	case errors.As(err, &ce):
		h.logger.Info("Write conflict",
			"entity_type", key.Type,
			"entity_id", key.ID,
			"mutation_id", p.IdempotencyKey,
			"base_version", p.BaseVersion,
		)
		resp := api.ConflictResponse{
			Error:         http.StatusText(http.StatusConflict),
			Message:       ce.Error(),
			ChangedFields: ce.ChangedFields,
			BaseVersion:   ce.BaseVersion,
			ChangedKnown:  ce.ChangedKnown,
		}
		if ce.Current != nil {
			current := api.FromEntity(ce.Current)
			resp.Current = &current
		}
		sendJSON(h.logger, w, resp, http.StatusConflict)
	case errors.Is(err, storage.ErrEntityNotFound):
		sendError(h.logger, w, "entity not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrInvalidWrite):
		sendError(h.logger, w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error("Failed to write entity",
			"entity_type", key.Type,
			"entity_id", key.ID,
			"mutation_id", p.IdempotencyKey,
			"error", err,
		)
		sendError(h.logger, w, "failed to write entity", http.StatusInternalServerError)
	}
}
