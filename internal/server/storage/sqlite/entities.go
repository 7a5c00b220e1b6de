package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/internal/server/storage"
)

// queryer общий интерфейс *sql.DB и *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// storedResponse ответ принятой записи, сохраненный по ключу идемпотентности
type storedResponse struct {
	Entity        *models.Entity `json:"entity"`
	ChangedFields []string       `json:"changed_fields"`
	Seq           int64          `json:"seq"`
}

// Write applies a versioned write in one transaction: the version check, the
// new snapshot, its changed fields, the change log entry and the idempotency
// record either all commit or none do.
func (s *Storage) Write(ctx context.Context, p storage.WriteParams) (*storage.WriteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if p.IdempotencyKey != "" {
		prev, err := loadResponse(ctx, tx, p.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			return &storage.WriteResult{Entity: prev.Entity, ChangedFields: prev.ChangedFields, Replayed: true}, nil
		}
	}

	current, err := readEntity(ctx, tx, p.Key)
	if err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
		return nil, err
	}

	if err := models.CheckWrite(current, p.Operation, p.BaseVersion); err != nil {
		return nil, classify(ctx, tx, err, p, current)
	}

	now := s.now().UTC()
	next, changed := models.NextEntity(current, p.Key, p.Operation, p.Payload, p.Origin, now)

	if err := upsertEntity(ctx, tx, next); err != nil {
		return nil, err
	}

	changedJSON, err := json.Marshal(changed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal changed fields: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entity_versions (entity_type, entity_id, version, changed_fields, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, next.Type, next.ID, next.Version, string(changedJSON), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to insert version: %w", err)
	}

	snapshot, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO changes (entity_type, entity_id, version, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, next.Type, next.ID, next.Version, string(snapshot), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to append change: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get change seq: %w", err)
	}

	if p.IdempotencyKey != "" {
		resp, err := json.Marshal(storedResponse{Entity: next, ChangedFields: changed, Seq: seq})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO idempotency_keys (key, entity_type, entity_id, response, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, p.IdempotencyKey, next.Type, next.ID, string(resp), now.UnixMilli())
		if err != nil {
			return nil, fmt.Errorf("failed to save idempotency key: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit write: %w", err)
	}

	return &storage.WriteResult{Entity: next, ChangedFields: changed, Seq: seq}, nil
}

// Read returns the current snapshot of an entity
func (s *Storage) Read(ctx context.Context, key models.EntityKey) (*models.Entity, error) {
	return readEntity(ctx, s.db, key)
}

// ChangesSince returns change log entries after since in seq order
func (s *Storage) ChangesSince(ctx context.Context, topic string, since int64, limit int) ([]models.Change, error) {
	if limit <= 0 {
		// LIMIT -1 в SQLite означает без ограничения
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, snapshot
		FROM changes
		WHERE seq > ? AND (? = '' OR entity_type = ?)
		ORDER BY seq ASC
		LIMIT ?
	`, since, topic, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	changes := make([]models.Change, 0)
	for rows.Next() {
		var (
			seq      int64
			snapshot string
		)
		if err := rows.Scan(&seq, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		var e models.Entity
		if err := json.Unmarshal([]byte(snapshot), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal change %d: %w", seq, err)
		}
		changes = append(changes, models.Change{Seq: seq, Entity: &e})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating changes: %w", err)
	}

	return changes, nil
}

// PurgeIdempotency removes stored responses created before the given time
func (s *Storage) PurgeIdempotency(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge idempotency keys: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// TrimChanges removes change log entries and version history created before
// the given time. Conflicts against trimmed versions report ChangedKnown=false.
func (s *Storage) TrimChanges(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for _, query := range []string{
		`DELETE FROM changes WHERE created_at < ?`,
		`DELETE FROM entity_versions WHERE created_at < ?`,
	} {
		res, err := s.db.ExecContext(ctx, query, before.UnixMilli())
		if err != nil {
			return total, fmt.Errorf("failed to trim change log: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to get rows affected: %w", err)
		}
		total += n
	}
	return total, nil
}

// classify сопоставляет отказ CheckWrite с ошибкой хранилища
func classify(ctx context.Context, q queryer, err error, p storage.WriteParams, current *models.Entity) error {
	switch {
	case errors.Is(err, models.ErrEntityMissing):
		if current == nil || p.Operation == models.OperationDelete {
			return fmt.Errorf("%w: %s", storage.ErrEntityNotFound, p.Key)
		}
		return conflict(ctx, q, current, p.BaseVersion)
	case errors.Is(err, models.ErrEntityExists), errors.Is(err, models.ErrVersionMismatch):
		return conflict(ctx, q, current, p.BaseVersion)
	default:
		return fmt.Errorf("%w: %w", storage.ErrInvalidWrite, err)
	}
}

// conflict собирает поля, измененные после base, из истории версий
func conflict(ctx context.Context, q queryer, current *models.Entity, base int64) error {
	ce := &storage.ConflictError{Current: current, BaseVersion: base}
	if current == nil || base <= 0 || base >= current.Version {
		return ce
	}

	rows, err := q.QueryContext(ctx, `
		SELECT changed_fields
		FROM entity_versions
		WHERE entity_type = ? AND entity_id = ? AND version > ?
		ORDER BY version ASC
	`, current.Type, current.ID, base)
	if err != nil {
		return fmt.Errorf("failed to query version history: %w", err)
	}
	defer rows.Close()

	var (
		lists [][]string
		found int64
	)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("failed to scan version history: %w", err)
		}
		var fields []string
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return fmt.Errorf("failed to unmarshal changed fields: %w", err)
		}
		lists = append(lists, fields)
		found++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating version history: %w", err)
	}

	// часть истории могла быть удалена TrimChanges
	if found == current.Version-base {
		ce.ChangedFields = models.UnionFields(lists...)
		ce.ChangedKnown = true
	}
	return ce
}

func readEntity(ctx context.Context, q queryer, key models.EntityKey) (*models.Entity, error) {
	var (
		fields    string
		deleted   int
		updatedAt int64
	)
	e := &models.Entity{Type: key.Type, ID: key.ID}

	err := q.QueryRowContext(ctx, `
		SELECT version, fields, deleted, origin, updated_at
		FROM entities
		WHERE entity_type = ? AND entity_id = ?
	`, key.Type, key.ID).Scan(&e.Version, &fields, &deleted, &e.Origin, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrEntityNotFound, key)
		}
		return nil, fmt.Errorf("failed to read entity: %w", err)
	}

	if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	if len(e.Fields) == 0 {
		e.Fields = nil
	}
	e.Deleted = intToBool(deleted)
	e.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return e, nil
}

func upsertEntity(ctx context.Context, q queryer, e *models.Entity) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	if e.Fields == nil {
		fields = []byte("{}")
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO entities (entity_type, entity_id, version, fields, deleted, origin, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			version = excluded.version,
			fields = excluded.fields,
			deleted = excluded.deleted,
			origin = excluded.origin,
			updated_at = excluded.updated_at
	`, e.Type, e.ID, e.Version, string(fields), boolToInt(e.Deleted), e.Origin, e.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}
	return nil
}

func loadResponse(ctx context.Context, q queryer, key string) (*storedResponse, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT response FROM idempotency_keys WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var resp storedResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored response: %w", err)
	}
	return &resp, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
