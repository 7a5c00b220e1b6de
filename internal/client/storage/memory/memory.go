// Package memory implements the client storage interfaces in process memory.
// It keeps no data across restarts and is used by tests and by the CLI
// --memory mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/models"
)

// Storage is the in-memory counterpart of boltdb.Storage.
// Values are cloned on the way in and out so callers never share state
// with the store.
type Storage struct {
	mutations map[string]*models.Mutation
	conflicts map[string]*models.ConflictRecord
	entities  map[models.EntityKey]*models.Entity
	ticket    *models.SessionTicket
	nodeID    string
	cursor    int64
	mu        sync.RWMutex
}

// New creates an empty in-memory storage
func New() *Storage {
	return &Storage{
		mutations: make(map[string]*models.Mutation),
		conflicts: make(map[string]*models.ConflictRecord),
		entities:  make(map[models.EntityKey]*models.Entity),
	}
}

// Close is a no-op kept for parity with boltdb.Storage
func (s *Storage) Close() error {
	return nil
}

// Append stores a new mutation
func (s *Storage) Append(ctx context.Context, m *models.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mutations[m.ID] = m.Clone()
	return nil
}

// ReadAll returns all mutations ordered by Seq
func (s *Storage) ReadAll(ctx context.Context) ([]*models.Mutation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Mutation, 0, len(s.mutations))
	for _, m := range s.mutations {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Update applies a partial update to a stored mutation
func (s *Storage) Update(ctx context.Context, id string, patch storage.MutationPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.mutations[id]
	if !ok {
		return storage.ErrMutationNotFound
	}
	patch.Apply(m)
	return nil
}

// Delete removes a mutation
func (s *Storage) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.mutations, id)
	return nil
}

// SaveConflict stores or updates a conflict record
func (s *Storage) SaveConflict(ctx context.Context, record *models.ConflictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conflicts[record.ID] = record.Clone()
	return nil
}

// GetConflict retrieves a conflict record by ID
func (s *Storage) GetConflict(ctx context.Context, id string) (*models.ConflictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.conflicts[id]
	if !ok {
		return nil, storage.ErrConflictNotFound
	}
	return r.Clone(), nil
}

// ListConflicts returns all records ordered by detection time
func (s *Storage) ListConflicts(ctx context.Context) ([]*models.ConflictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ConflictRecord, 0, len(s.conflicts))
	for _, r := range s.conflicts {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out, nil
}

// DeleteConflict removes a record
func (s *Storage) DeleteConflict(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conflicts, id)
	return nil
}

// SaveEntity stores the authoritative snapshot
func (s *Storage) SaveEntity(ctx context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities[entity.Key()] = entity.Clone()
	return nil
}

// ListEntities returns all stored snapshots
func (s *Storage) ListEntities(ctx context.Context) ([]*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e.Clone())
	}
	return out, nil
}

// DeleteEntity forgets the snapshot of an entity
func (s *Storage) DeleteEntity(ctx context.Context, key models.EntityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entities, key)
	return nil
}

// SaveNodeID saves the identity of this device
func (s *Storage) SaveNodeID(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodeID = nodeID
	return nil
}

// GetNodeID retrieves the identity of this device
func (s *Storage) GetNodeID(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nodeID, nil
}

// SaveChangeCursor saves the last seen change sequence
func (s *Storage) SaveChangeCursor(ctx context.Context, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursor = seq
	return nil
}

// GetChangeCursor retrieves the last seen change sequence
func (s *Storage) GetChangeCursor(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cursor, nil
}

// SaveTicket stores the current session ticket
func (s *Storage) SaveTicket(ctx context.Context, ticket *models.SessionTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *ticket
	s.ticket = &t
	return nil
}

// GetTicket returns the current ticket
func (s *Storage) GetTicket(ctx context.Context) (*models.SessionTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ticket == nil {
		return nil, storage.ErrTicketNotFound
	}
	t := *s.ticket
	return &t, nil
}

// DeleteTicket forgets the current ticket
func (s *Storage) DeleteTicket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticket = nil
	return nil
}

var (
	_ storage.QueueStorage    = (*Storage)(nil)
	_ storage.ConflictStorage = (*Storage)(nil)
	_ storage.EntityStorage   = (*Storage)(nil)
	_ storage.MetadataStorage = (*Storage)(nil)
	_ storage.TicketStorage   = (*Storage)(nil)
)
