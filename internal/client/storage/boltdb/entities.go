package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/models"
)

// SaveEntity stores the authoritative snapshot under "type/id"
func (s *Storage) SaveEntity(ctx context.Context, entity *models.Entity) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketEntities)
		if err != nil {
			return err
		}
		return b.Put([]byte(entity.Key().String()), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}

	return nil
}

// ListEntities returns all stored snapshots
func (s *Storage) ListEntities(ctx context.Context) ([]*models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entities []*models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketEntities)
		if err != nil {
			return err
		}

		return b.ForEach(func(k, v []byte) error {
			var e models.Entity
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to unmarshal entity %s: %w", k, err)
			}
			entities = append(entities, &e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	return entities, nil
}

// DeleteEntity forgets the snapshot of an entity
func (s *Storage) DeleteEntity(ctx context.Context, key models.EntityKey) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketEntities)
		if err != nil {
			return err
		}
		return b.Delete([]byte(key.String()))
	})
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	return nil
}
