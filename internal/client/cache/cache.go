// Package cache holds the optimistic view of entities on the device.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/models"
)

// Cache keeps two snapshots per entity: the last authoritative version seen
// from the server (base) and the optimistic view the user interacts with.
// The view always equals the base with the queued mutations of that entity
// replayed on top, so only bases are persisted.
type Cache struct {
	store  storage.EntityStorage
	logger *slog.Logger
	bases  map[models.EntityKey]*models.Entity // авторитетные снимки сервера
	views  map[models.EntityKey]*models.Entity // оптимистичное представление
	mu     sync.RWMutex
}

// New creates an empty cache backed by store
func New(store storage.EntityStorage, logger *slog.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger,
		bases:  make(map[models.EntityKey]*models.Entity),
		views:  make(map[models.EntityKey]*models.Entity),
	}
}

// Load reads the persisted bases and replays queued mutations on top of them.
// pending must be ordered by enqueue sequence.
func (c *Cache) Load(ctx context.Context, pending []*models.Mutation) error {
	entities, err := c.store.ListEntities(ctx)
	if err != nil {
		return fmt.Errorf("failed to load entities: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.bases = make(map[models.EntityKey]*models.Entity, len(entities))
	c.views = make(map[models.EntityKey]*models.Entity, len(entities))
	for _, e := range entities {
		c.bases[e.Key()] = e
		c.views[e.Key()] = e.Clone()
	}

	for _, m := range pending {
		c.applyLocked(m)
	}

	c.logger.Debug("Entity cache loaded", "entities", len(entities), "replayed", len(pending))
	return nil
}

// Get returns the optimistic view of an entity, or nil if it does not exist
// or is deleted.
func (c *Cache) Get(key models.EntityKey) *models.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	view, ok := c.views[key]
	if !ok || view.Deleted {
		return nil
	}
	return view.Clone()
}

// Base returns the last authoritative snapshot, deleted ones included, or nil
// if the server version is unknown.
func (c *Cache) Base(key models.EntityKey) *models.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.bases[key].Clone()
}

// List returns the live optimistic views of one type ordered by id.
// An empty type lists every type.
func (c *Cache) List(entityType string) []*models.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*models.Entity, 0, len(c.views))
	for key, view := range c.views {
		if view.Deleted || (entityType != "" && key.Type != entityType) {
			continue
		}
		out = append(out, view.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ApplyOptimistic applies a queued mutation to the view and returns the new
// view, nil for a delete.
func (c *Cache) ApplyOptimistic(m *models.Mutation) *models.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := c.applyLocked(m)
	if view == nil || view.Deleted {
		return nil
	}
	return view.Clone()
}

// SetBase records a newer authoritative snapshot and re-derives the view of
// the entity from it and the still queued mutations. A snapshot that is not
// newer than the known base is ignored and false is returned.
func (c *Cache) SetBase(ctx context.Context, e *models.Entity, pending []*models.Mutation) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := e.Key()
	if current, ok := c.bases[key]; ok && !e.IsNewerThan(current) {
		return false, nil
	}

	if err := c.store.SaveEntity(ctx, e); err != nil {
		return false, fmt.Errorf("failed to persist entity %s: %w", key, err)
	}

	c.bases[key] = e.Clone()
	c.rebuildLocked(key, pending)

	c.logger.Debug("Entity base updated",
		"entity_type", key.Type,
		"entity_id", key.ID,
		"version", e.Version,
		"replayed", len(pending))

	return true, nil
}

// Rebuild re-derives the view of one entity from its base and pending.
// Used after a queued mutation was dropped.
func (c *Cache) Rebuild(key models.EntityKey, pending []*models.Mutation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rebuildLocked(key, pending)
}

// Forget drops the base of an entity the server reports as unknown and
// re-derives its view from pending.
func (c *Cache) Forget(ctx context.Context, key models.EntityKey, pending []*models.Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.bases[key]; ok {
		if err := c.store.DeleteEntity(ctx, key); err != nil {
			return fmt.Errorf("failed to forget entity %s: %w", key, err)
		}
		delete(c.bases, key)
	}
	c.rebuildLocked(key, pending)
	return nil
}

func (c *Cache) rebuildLocked(key models.EntityKey, pending []*models.Mutation) {
	if base, ok := c.bases[key]; ok {
		c.views[key] = base.Clone()
	} else {
		delete(c.views, key)
	}
	for _, m := range pending {
		c.applyLocked(m)
	}
}

// applyLocked применяет мутацию к представлению. Требует c.mu.
func (c *Cache) applyLocked(m *models.Mutation) *models.Entity {
	key := m.Key()
	view, ok := c.views[key]
	if !ok {
		view = &models.Entity{Type: key.Type, ID: key.ID, Deleted: true}
		if base, ok := c.bases[key]; ok {
			view.Version = base.Version
		}
		c.views[key] = view
	}

	view.UpdatedAt = time.Now()

	switch m.Operation {
	case models.OperationCreate:
		view.Fields = models.ApplyFields(nil, m.Payload)
		view.Deleted = false
	case models.OperationUpdate:
		view.Fields = models.ApplyFields(view.Fields, m.Payload)
		view.Deleted = false
	case models.OperationDelete:
		view.Deleted = true
	}

	return view
}
