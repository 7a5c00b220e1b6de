// Package conflict decides what happens to a mutation the remote store
// rejected because of a concurrent change, and keeps the audit trail of
// those decisions.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/repsync/internal/client/api"
	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/models"
)

// ErrInvalidDecision is returned by Settle for an unknown or incomplete
// decision
var ErrInvalidDecision = errors.New("invalid conflict decision")

// Resolution is the outcome of Resolve
type Resolution struct {
	Entity *models.Entity         // Entity снимок, который должен стать базой (nil если неизвестен)
	Record *models.ConflictRecord // Record сохраненная запись аудита
	Kind   models.Resolution
}

// Resolver применяет политику разрешения конфликтов
type Resolver struct {
	store  storage.ConflictStorage
	logger *slog.Logger
	now    func() time.Time
}

// NewResolver creates a resolver persisting records to store
func NewResolver(store storage.ConflictStorage, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger, now: time.Now}
}

// Resolve classifies a conflicting mutation. base is the last authoritative
// snapshot the device knows and may be nil; it is used to compute the
// fields changed remotely when the server did not report them.
//
//   - create against a live entity keeps the remote entity;
//   - delete against a newer version keeps the remote entity;
//   - update whose fields do not overlap the remote changes is merged;
//   - everything else stays pending for an explicit decision.
func (r *Resolver) Resolve(ctx context.Context, m *models.Mutation, ce *api.ConflictError, base *models.Entity) (*Resolution, error) {
	remote := ce.Current

	record := &models.ConflictRecord{
		ID:          uuid.NewString(),
		MutationID:  m.ID,
		EntityType:  m.EntityType,
		EntityID:    m.EntityID,
		Operation:   m.Operation,
		LocalValue:  models.CloneFields(m.Payload),
		BaseVersion: m.BaseVersion,
		DetectedAt:  r.now(),
		Resolution:  models.ResolutionPending,
	}
	if remote != nil {
		record.RemoteValue = models.CloneFields(remote.Fields)
		record.RemoteVersion = remote.Version
		record.RemoteDeleted = remote.Deleted
	} else {
		record.RemoteDeleted = true
	}

	res := &Resolution{Entity: remote.Clone(), Record: record}

	switch m.Operation {
	case models.OperationCreate:
		if remote.Live() {
			record.Resolution = models.ResolutionKeptRemote
			// Одинаковое содержимое не требует внимания пользователя
			record.Visible = len(models.DiffFields(m.Payload, remote.Fields)) > 0
			record.ResolvedValue = models.CloneFields(remote.Fields)
		}

	case models.OperationDelete:
		record.Resolution = models.ResolutionKeptRemote
		record.Visible = remote.Live()
		if remote != nil {
			record.ResolvedValue = models.CloneFields(remote.Fields)
		}

	case models.OperationUpdate:
		if !remote.Live() {
			break
		}
		changed, known := changedFields(ce, base, m)
		record.ChangedFields = changed
		if known && models.Disjoint(changed, models.FieldNames(m.Payload)) {
			merged := remote.Clone()
			merged.Fields = models.ApplyFields(merged.Fields, m.Payload)
			record.Resolution = models.ResolutionMerged
			record.ResolvedValue = models.CloneFields(merged.Fields)
			// Entity остается снимком сервера: мутация будет переотправлена
			// поверх него и сервер подтвердит итоговую версию
		}
	}

	if record.Resolution == models.ResolutionPending {
		record.Visible = true
	} else {
		record.ResolvedAt = record.DetectedAt
	}
	res.Kind = record.Resolution

	if err := r.store.SaveConflict(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save conflict record: %w", err)
	}

	r.logger.Info("Conflict resolved",
		"conflict_id", record.ID,
		"mutation_id", m.ID,
		"entity_type", m.EntityType,
		"entity_id", m.EntityID,
		"operation", m.Operation,
		"resolution", record.Resolution,
		"base_version", m.BaseVersion,
		"remote_version", record.RemoteVersion,
		"visible", record.Visible)

	return res, nil
}

// changedFields возвращает поля, измененные на сервере после базы мутации.
// known=false означает, что их нельзя вычислить и изменения считаются
// пересекающимися.
func changedFields(ce *api.ConflictError, base *models.Entity, m *models.Mutation) ([]string, bool) {
	if ce.ChangedKnown {
		return ce.ChangedFields, true
	}
	if m.HasBase() && base != nil && base.Version == m.BaseVersion && ce.Current != nil {
		return models.DiffFields(base.Fields, ce.Current.Fields), true
	}
	return nil, false
}

// Reconcile returns the authoritative entity of an accepted write
func (r *Resolver) Reconcile(m *models.Mutation, result *api.WriteResult) *models.Entity {
	entity := result.Entity.Clone()
	if m.Operation != models.OperationDelete && entity != nil {
		// Сервер мог нормализовать значения
		if diff := models.DiffFields(models.ApplyFields(nil, m.Payload), pick(entity.Fields, m.Payload)); len(diff) > 0 {
			r.logger.Debug("Server adjusted written fields",
				"mutation_id", m.ID,
				"fields", diff)
		}
	}
	return entity
}

// pick возвращает значения fields для ключей payload, которые не удаляются
func pick(fields, payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		if fv, ok := fields[k]; ok {
			out[k] = fv
		}
	}
	return out
}

// Settle resolves a pending record with an explicit decision. value is
// required for merged and ignored otherwise. Settling an already resolved
// record returns it unchanged with changed=false.
func (r *Resolver) Settle(ctx context.Context, id string, decision models.Resolution, value map[string]any) (*models.ConflictRecord, bool, error) {
	record, err := r.store.GetConflict(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get conflict: %w", err)
	}

	if record.Resolved() {
		return record, false, nil
	}

	switch decision {
	case models.ResolutionKeptLocal:
		record.ResolvedValue = models.CloneFields(record.LocalValue)
	case models.ResolutionKeptRemote:
		record.ResolvedValue = models.CloneFields(record.RemoteValue)
	case models.ResolutionMerged:
		if len(value) == 0 {
			return nil, false, fmt.Errorf("%w: merged requires a value", ErrInvalidDecision)
		}
		record.ResolvedValue = models.CloneFields(value)
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	record.Resolution = decision
	record.ResolvedAt = r.now()

	if err := r.store.SaveConflict(ctx, record); err != nil {
		return nil, false, fmt.Errorf("failed to save conflict: %w", err)
	}

	r.logger.Info("Conflict settled", "conflict_id", id, "resolution", decision)
	return record, true, nil
}

// Get returns one record
func (r *Resolver) Get(ctx context.Context, id string) (*models.ConflictRecord, error) {
	return r.store.GetConflict(ctx, id)
}

// List returns all records ordered by detection time
func (r *Resolver) List(ctx context.Context) ([]*models.ConflictRecord, error) {
	return r.store.ListConflicts(ctx)
}

// Unresolved returns pending records ordered by detection time
func (r *Resolver) Unresolved(ctx context.Context) ([]*models.ConflictRecord, error) {
	all, err := r.store.ListConflicts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}

	var pending []*models.ConflictRecord
	for _, rec := range all {
		if !rec.Resolved() {
			pending = append(pending, rec)
		}
	}
	return pending, nil
}

// Prune deletes resolved records resolved before cutoff and returns how
// many were removed. Pending records are never pruned.
func (r *Resolver) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	all, err := r.store.ListConflicts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list conflicts: %w", err)
	}

	removed := 0
	for _, rec := range all {
		if !rec.Resolved() || !rec.ResolvedAt.Before(cutoff) {
			continue
		}
		if err := r.store.DeleteConflict(ctx, rec.ID); err != nil {
			return removed, fmt.Errorf("failed to delete conflict %s: %w", rec.ID, err)
		}
		removed++
	}

	if removed > 0 {
		r.logger.Debug("Conflict records pruned", "count", removed)
	}
	return removed, nil
}
