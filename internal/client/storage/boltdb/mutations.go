package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/models"
)

// Append durably stores a new mutation.
// bbolt fsyncs on commit, so the mutation survives a crash once Append returns.
func (s *Storage) Append(ctx context.Context, m *models.Mutation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal mutation: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMutations)
		if err != nil {
			return err
		}
		return b.Put([]byte(m.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to append mutation: %w", err)
	}

	return nil
}

// ReadAll returns all stored mutations ordered by Seq
func (s *Storage) ReadAll(ctx context.Context) ([]*models.Mutation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var mutations []*models.Mutation

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMutations)
		if err != nil {
			return err
		}

		return b.ForEach(func(k, v []byte) error {
			var m models.Mutation
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal mutation %s: %w", k, err)
			}
			mutations = append(mutations, &m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read mutations: %w", err)
	}

	sort.Slice(mutations, func(i, j int) bool {
		return mutations[i].Seq < mutations[j].Seq
	})

	return mutations, nil
}

// Update applies a partial update to a stored mutation
func (s *Storage) Update(ctx context.Context, id string, patch storage.MutationPatch) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMutations)
		if err != nil {
			return err
		}

		data := b.Get([]byte(id))
		if data == nil {
			return storage.ErrMutationNotFound
		}

		var m models.Mutation
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("failed to unmarshal mutation: %w", err)
		}

		patch.Apply(&m)

		updated, err := json.Marshal(&m)
		if err != nil {
			return fmt.Errorf("failed to marshal mutation: %w", err)
		}
		if err := b.Put([]byte(id), updated); err != nil {
			return fmt.Errorf("failed to update mutation: %w", err)
		}
		return nil
	})
}

// Delete removes a mutation
func (s *Storage) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMutations)
		if err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete mutation: %w", err)
	}

	return nil
}
