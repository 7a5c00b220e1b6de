package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/repsync/internal/client/storage"
)

const (
	keyNodeID       = "node_id"
	keyChangeCursor = "change_cursor"
)

// SaveNodeID saves the identity of this device
func (s *Storage) SaveNodeID(ctx context.Context, nodeID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMetadata)
		if b == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := b.Put([]byte(keyNodeID), []byte(nodeID)); err != nil {
			return fmt.Errorf("failed to save node id: %w", err)
		}
		return nil
	})
}

// GetNodeID retrieves the identity of this device
// Returns an empty string if no identity was saved yet
func (s *Storage) GetNodeID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var nodeID string

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMetadata)
		if b == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		nodeID = string(b.Get([]byte(keyNodeID)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get node id: %w", err)
	}

	return nodeID, nil
}

// SaveChangeCursor saves the sequence of the last change feed entry seen
func (s *Storage) SaveChangeCursor(ctx context.Context, seq int64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMetadata)
		if b == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Конвертируем int64 в bytes
		seqBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(seqBytes, uint64(seq))

		if err := b.Put([]byte(keyChangeCursor), seqBytes); err != nil {
			return fmt.Errorf("failed to save change cursor: %w", err)
		}
		return nil
	})
}

// GetChangeCursor retrieves the last seen change sequence
// Returns 0 if the change feed was never consumed
func (s *Storage) GetChangeCursor(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var seq int64

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMetadata)
		if b == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		seqBytes := b.Get([]byte(keyChangeCursor))
		if seqBytes == nil {
			// Лента изменений еще не читалась
			return nil
		}

		seq = int64(binary.BigEndian.Uint64(seqBytes))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get change cursor: %w", err)
	}

	return seq, nil
}
