package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/client/storage"
	"github.com/iudanet/repsync/internal/models"
)

func TestStorage_Tickets(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.GetTicket(ctx)
	assert.ErrorIs(t, err, storage.ErrTicketNotFound)

	ticket := &models.SessionTicket{
		SessionID:     "sess-1",
		ParticipantID: "node-1",
		Code:          "ABC123",
		Token:         "jwt",
	}
	require.NoError(t, store.SaveTicket(ctx, ticket))

	got, err := store.GetTicket(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "ABC123", got.Code)

	require.NoError(t, store.DeleteTicket(ctx))
	_, err = store.GetTicket(ctx)
	assert.ErrorIs(t, err, storage.ErrTicketNotFound)
}
