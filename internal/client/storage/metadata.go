package storage

import "context"

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveNodeID saves the identity of this device
	SaveNodeID(ctx context.Context, nodeID string) error

	// GetNodeID retrieves the identity of this device
	// Returns an empty string if no identity was saved yet
	GetNodeID(ctx context.Context) (string, error)

	// SaveChangeCursor saves the sequence of the last change feed entry seen
	SaveChangeCursor(ctx context.Context, seq int64) error

	// GetChangeCursor retrieves the last seen change sequence
	// Returns 0 if the change feed was never consumed
	GetChangeCursor(ctx context.Context) (int64, error)
}
