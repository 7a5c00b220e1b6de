package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/internal/validation"
)

// MemoryStore is an in-process RemoteStore with the same write rules as
// repsync-server. Tests use its hooks to inject failures.
type MemoryStore struct {
	entities  map[models.EntityKey]*models.Entity
	history   map[models.EntityKey][]memoryVersion
	responses map[string]*WriteResult // ответы по ключу идемпотентности
	subs      map[int]*memorySub

	// Validate, если задан, отклоняет запись с ErrValidation
	Validate func(req WriteRequest) error

	failures  []error
	writes    []WriteRequest
	changes   []models.Change
	nextSub   int
	seq       int64
	dropAcks  int
	mu        sync.Mutex
	deliverMu sync.Mutex // сохраняет порядок доставки подписчикам
}

type memoryVersion struct {
	fields  []string
	version int64
}

type memorySub struct {
	handler ChangeHandler
	onClose func(error)
	topic   string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:  make(map[models.EntityKey]*models.Entity),
		history:   make(map[models.EntityKey][]memoryVersion),
		responses: make(map[string]*WriteResult),
		subs:      make(map[int]*memorySub),
	}
}

// FailNext makes the next len(errs) writes fail with errs in order without
// applying them.
func (s *MemoryStore) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, errs...)
}

// DropNextAcks applies the next n writes but answers them with ErrTransient,
// as if the response was lost on the way back.
func (s *MemoryStore) DropNextAcks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropAcks += n
}

// Writes returns every write request received, failed ones included
func (s *MemoryStore) Writes() []WriteRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]WriteRequest(nil), s.writes...)
}

// Write applies a conditional write
func (s *MemoryStore) Write(ctx context.Context, req WriteRequest) (*WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	s.mu.Lock()

	s.writes = append(s.writes, req)

	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		s.mu.Unlock()
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if prev, ok := s.responses[req.IdempotencyKey]; ok {
			s.mu.Unlock()
			return &WriteResult{Entity: prev.Entity.Clone(), ChangedFields: prev.ChangedFields, Replayed: true}, nil
		}
	}

	if err := validation.ValidateWrite(req.EntityType, req.EntityID, req.Operation, req.Payload); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if s.Validate != nil {
		if err := s.Validate(req); err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	key := models.EntityKey{Type: req.EntityType, ID: req.EntityID}
	current := s.entities[key]

	if err := models.CheckWrite(current, req.Operation, req.BaseVersion); err != nil {
		err = s.classifyLocked(err, key, current, req)
		s.mu.Unlock()
		return nil, err
	}

	change, result := s.applyLocked(key, current, req.Operation, req.Payload, req.Origin)
	if req.IdempotencyKey != "" {
		s.responses[req.IdempotencyKey] = result
	}

	drop := s.dropAcks > 0
	if drop {
		s.dropAcks--
	}
	s.mu.Unlock()

	s.deliver(change)

	if drop {
		return nil, fmt.Errorf("%w: response lost", ErrTransient)
	}
	return &WriteResult{Entity: result.Entity.Clone(), ChangedFields: result.ChangedFields}, nil
}

// Read returns the current snapshot
func (s *MemoryStore) Read(ctx context.Context, entityType, id string) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[models.EntityKey{Type: entityType, ID: id}]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

// Put writes an entity on behalf of another device, bypassing the version
// check, and publishes the change.
func (s *MemoryStore) Put(key models.EntityKey, op models.Operation, payload map[string]any, origin string) *models.Entity {
	s.mu.Lock()
	change, result := s.applyLocked(key, s.entities[key], op, payload, origin)
	s.mu.Unlock()

	s.deliver(change)
	return result.Entity.Clone()
}

// Subscribe replays changes after sub.Since and then delivers new ones
// synchronously from the writing goroutine.
func (s *MemoryStore) Subscribe(ctx context.Context, sub Subscription, handler ChangeHandler) (func(), error) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = &memorySub{handler: handler, onClose: sub.OnClose, topic: sub.Topic}
	var backlog []models.Change
	for _, c := range s.changes {
		if c.Seq > sub.Since && (sub.Topic == "" || c.Entity.Type == sub.Topic) {
			backlog = append(backlog, c)
		}
	}
	s.mu.Unlock()

	for _, c := range backlog {
		handler(models.Change{Seq: c.Seq, Entity: c.Entity.Clone()})
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			ms := s.subs[id]
			delete(s.subs, id)
			s.mu.Unlock()
			if ms != nil && ms.onClose != nil {
				ms.onClose(nil)
			}
		})
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return unsubscribe, nil
}

// classifyLocked сопоставляет отказ CheckWrite с ошибкой удаленного хранилища
func (s *MemoryStore) classifyLocked(err error, key models.EntityKey, current *models.Entity, req WriteRequest) error {
	switch {
	case errors.Is(err, models.ErrEntityMissing):
		if current == nil || req.Operation == models.OperationDelete {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return s.conflictLocked(key, current, req.BaseVersion)
	case errors.Is(err, models.ErrEntityExists), errors.Is(err, models.ErrVersionMismatch):
		return s.conflictLocked(key, current, req.BaseVersion)
	default:
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
}

func (s *MemoryStore) conflictLocked(key models.EntityKey, current *models.Entity, base int64) *ConflictError {
	ce := &ConflictError{Current: current.Clone(), BaseVersion: base}
	if current == nil || base <= 0 || base >= current.Version {
		return ce
	}

	var lists [][]string
	for _, v := range s.history[key] {
		if v.version > base {
			lists = append(lists, v.fields)
		}
	}
	ce.ChangedFields = models.UnionFields(lists...)
	ce.ChangedKnown = true
	return ce
}

func (s *MemoryStore) applyLocked(key models.EntityKey, current *models.Entity, op models.Operation, payload map[string]any, origin string) (models.Change, *WriteResult) {
	next, changed := models.NextEntity(current, key, op, payload, origin, time.Now())
	s.entities[key] = next
	s.history[key] = append(s.history[key], memoryVersion{version: next.Version, fields: changed})

	s.seq++
	change := models.Change{Seq: s.seq, Entity: next.Clone()}
	s.changes = append(s.changes, change)

	return change, &WriteResult{Entity: next.Clone(), ChangedFields: changed}
}

func (s *MemoryStore) deliver(change models.Change) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	targets := make([]*memorySub, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.topic == "" || sub.topic == change.Entity.Type {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.handler(models.Change{Seq: change.Seq, Entity: change.Entity.Clone()})
	}
}

var _ RemoteStore = (*MemoryStore)(nil)
