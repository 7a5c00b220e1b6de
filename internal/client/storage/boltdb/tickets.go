package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/models"
)

var keyCurrentTicket = []byte("current")

// SaveTicket stores the current session ticket
func (s *Storage) SaveTicket(ctx context.Context, ticket *models.SessionTicket) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketTickets)
		if err != nil {
			return err
		}
		return b.Put(keyCurrentTicket, data)
	})
}

// GetTicket returns the current ticket
func (s *Storage) GetTicket(ctx context.Context) (*models.SessionTicket, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var ticket *models.SessionTicket

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketTickets)
		if err != nil {
			return err
		}

		data := b.Get(keyCurrentTicket)
		if data == nil {
			return storage.ErrTicketNotFound
		}

		ticket = &models.SessionTicket{}
		return json.Unmarshal(data, ticket)
	})
	if err != nil {
		return nil, err
	}

	return ticket, nil
}

// DeleteTicket forgets the current ticket
func (s *Storage) DeleteTicket(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketTickets)
		if err != nil {
			return err
		}
		return b.Delete(keyCurrentTicket)
	})
}
