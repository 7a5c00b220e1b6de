// Package queue implements the durable local mutation queue.
//
// The queue keeps an in-memory index ordered by enqueue sequence on top of
// a storage.QueueStorage. Every state change is written to storage first and
// only then applied to the index, so a crash never leaves the index ahead of
// the durable state.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/clock"
	"github.com/iudanet/repsync/internal/models"
)

// ErrInvalidMutation is returned by Enqueue for a malformed mutation
var ErrInvalidMutation = errors.New("invalid mutation")

// Queue is the local mutation queue
type Queue struct {
	storage storage.QueueStorage
	clock   *clock.Lamport
	logger  *slog.Logger
	index   map[string]*models.Mutation
	items   []*models.Mutation // items упорядочены по Seq
	mu      sync.Mutex
}

// New creates a queue over the given storage. Call Load before use to pick
// up mutations persisted by a previous run.
func New(store storage.QueueStorage, clk *clock.Lamport, logger *slog.Logger) *Queue {
	return &Queue{
		storage: store,
		clock:   clk,
		logger:  logger,
		index:   make(map[string]*models.Mutation),
	}
}

// Load rebuilds the in-memory index from storage and moves the clock past
// the highest stored sequence.
func (q *Queue) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	stored, err := q.storage.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load queue: %w", err)
	}

	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Seq < stored[j].Seq })

	q.items = q.items[:0]
	q.index = make(map[string]*models.Mutation, len(stored))

	inFlight := 0
	for _, m := range stored {
		if m.Status == models.StatusApplied {
			// Запись пережила сбой между отправкой и удалением
			if err := q.storage.Delete(ctx, m.ID); err != nil {
				return fmt.Errorf("failed to drop applied mutation: %w", err)
			}
			continue
		}
		if m.Status == models.StatusInFlight {
			inFlight++
		}
		q.items = append(q.items, m)
		q.index[m.ID] = m
		q.clock.Witness(m.Seq)
	}

	q.logger.Debug("Mutation queue loaded",
		"count", len(q.items),
		"in_flight", inFlight,
		"seq", q.clock.Now())

	return nil
}

// Enqueue durably appends a mutation and returns its id.
// A missing ID is generated. Seq, Status and CreatedAt are assigned by the
// queue. The mutation is visible to DequeueNext only after the storage
// append succeeded.
func (q *Queue) Enqueue(ctx context.Context, m *models.Mutation) (string, error) {
	if m == nil || !m.Operation.Valid() || m.EntityType == "" || m.EntityID == "" {
		return "", ErrInvalidMutation
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	item := m.Clone()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if _, exists := q.index[item.ID]; exists {
		return "", fmt.Errorf("%w: duplicate id %s", ErrInvalidMutation, item.ID)
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	item.Seq = q.clock.Tick()
	item.Status = models.StatusPending
	item.RetryCount = 0
	item.NextRetryAt = time.Time{}
	item.Exhausted = false
	item.LastError = ""

	if err := q.storage.Append(ctx, item); err != nil {
		return "", fmt.Errorf("failed to persist mutation: %w", err)
	}

	q.items = append(q.items, item)
	q.index[item.ID] = item

	q.logger.Debug("Mutation enqueued",
		"mutation_id", item.ID,
		"entity_type", item.EntityType,
		"entity_id", item.EntityID,
		"operation", item.Operation,
		"seq", item.Seq)

	return item.ID, nil
}

// DequeueNext returns the eligible mutation with the lowest sequence, or nil.
// A mutation is skipped while an earlier mutation on the same entity is still
// queued, so per-entity causal order holds even when that earlier mutation
// sits in backoff. The returned value is a copy.
func (q *Queue) DequeueNext(now time.Time) *models.Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()

	blocked := make(map[models.EntityKey]struct{})
	for _, m := range q.items {
		key := m.Key()
		if _, ok := blocked[key]; ok {
			continue
		}
		if m.Eligible(now) {
			return m.Clone()
		}
		blocked[key] = struct{}{}
	}
	return nil
}

// PeekFailedEligibleForRetry returns copies of failed mutations whose backoff
// window is over.
func (q *Queue) PeekFailedEligibleForRetry(now time.Time) []*models.Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*models.Mutation
	for _, m := range q.items {
		if m.Retryable(now) {
			out = append(out, m.Clone())
		}
	}
	return out
}

// MarkInFlight records that the mutation is being sent
func (q *Queue) MarkInFlight(ctx context.Context, id string) error {
	status := models.StatusInFlight
	return q.update(ctx, id, storage.MutationPatch{Status: &status})
}

// MarkApplied removes an acknowledged mutation from the queue
func (q *Queue) MarkApplied(ctx context.Context, id string) error {
	return q.Remove(ctx, id)
}

// MarkFailed records a transient failure. RetryCount is incremented, the
// mutation becomes eligible again at nextRetryAt unless exhausted is set,
// in which case it waits for ResetRetries or Remove.
func (q *Queue) MarkFailed(ctx context.Context, id, reason string, nextRetryAt time.Time, exhausted bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	m, ok := q.index[id]
	if !ok {
		return storage.ErrMutationNotFound
	}

	status := models.StatusFailed
	retries := m.RetryCount + 1
	patch := storage.MutationPatch{
		Status:      &status,
		RetryCount:  &retries,
		NextRetryAt: &nextRetryAt,
		LastError:   &reason,
		Exhausted:   &exhausted,
	}
	return q.applyLocked(ctx, m, patch)
}

// ResetRetries makes an exhausted or failed mutation pending again with a
// fresh retry budget.
func (q *Queue) ResetRetries(ctx context.Context, id string) error {
	status := models.StatusPending
	retries := 0
	var next time.Time
	exhausted := false
	empty := ""
	return q.update(ctx, id, storage.MutationPatch{
		Status:      &status,
		RetryCount:  &retries,
		NextRetryAt: &next,
		Exhausted:   &exhausted,
		LastError:   &empty,
	})
}

// Rebase moves a mutation onto a newer server version and makes it pending,
// e.g. after the resolver merged it with concurrent remote changes.
func (q *Queue) Rebase(ctx context.Context, id string, baseVersion int64) error {
	status := models.StatusPending
	return q.update(ctx, id, storage.MutationPatch{Status: &status, BaseVersion: &baseVersion})
}

// AdvanceBase moves queued update and delete mutations of an entity onto
// version after an earlier mutation on it was acknowledged. Mutations already
// based on version or a later one keep their base.
func (q *Queue) AdvanceBase(ctx context.Context, key models.EntityKey, version int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, m := range q.items {
		if m.Key() != key || m.Operation == models.OperationCreate || m.BaseVersion >= version {
			continue
		}
		v := version
		if err := q.applyLocked(ctx, m, storage.MutationPatch{BaseVersion: &v}); err != nil {
			return err
		}
	}
	return nil
}

// Remove drops a mutation from storage and from the index.
// Removing an unknown id is a no-op.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[id]; !ok {
		return nil
	}

	if err := q.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete mutation: %w", err)
	}

	delete(q.index, id)
	for i, m := range q.items {
		if m.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a copy of a queued mutation
func (q *Queue) Get(id string) (*models.Mutation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	m, ok := q.index[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// NextRetryAt returns the earliest time a failed, non-exhausted mutation
// at the head of its entity becomes eligible. Mutations queued behind an
// earlier one on the same entity are not considered. ok is false when no
// mutation waits in backoff.
func (q *Queue) NextRetryAt() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var earliest time.Time
	found := false
	seen := make(map[models.EntityKey]struct{})
	for _, m := range q.items {
		key := m.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if m.Status != models.StatusFailed || m.Exhausted {
			continue
		}
		if !found || m.NextRetryAt.Before(earliest) {
			earliest = m.NextRetryAt
			found = true
		}
	}
	return earliest, found
}

// PendingFor returns copies of the queued mutations of one entity in order
func (q *Queue) PendingFor(key models.EntityKey) []*models.Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*models.Mutation
	for _, m := range q.items {
		if m.Key() == key {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Snapshot returns copies of all queued mutations in order
func (q *Queue) Snapshot() []*models.Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*models.Mutation, 0, len(q.items))
	for _, m := range q.items {
		out = append(out, m.Clone())
	}
	return out
}

// Len returns the number of queued mutations
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *Queue) update(ctx context.Context, id string, patch storage.MutationPatch) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	m, ok := q.index[id]
	if !ok {
		return storage.ErrMutationNotFound
	}
	return q.applyLocked(ctx, m, patch)
}

// applyLocked пишет патч в хранилище, затем в индекс. Требует q.mu.
func (q *Queue) applyLocked(ctx context.Context, m *models.Mutation, patch storage.MutationPatch) error {
	if err := q.storage.Update(ctx, m.ID, patch); err != nil {
		return fmt.Errorf("failed to update mutation %s: %w", m.ID, err)
	}
	patch.Apply(m)
	return nil
}
