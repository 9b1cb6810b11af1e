package database

import (
	"context"
	"testing"
	"time"

	"amenityhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := &models.OutboxMessage{EventType: "reservation.created", Key: "gym", Payload: `{"id":"r1"}`}
	require.NoError(t, db.CreateOutboxMessage(ctx, msg))
	assert.NotZero(t, msg.ID)
	assert.Equal(t, models.OutboxPending, msg.Status)

	pending, err := db.GetPendingOutbox(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "gym", pending[0].Key)

	next := time.Now().Add(time.Hour)
	require.NoError(t, db.UpdateOutboxStatus(ctx, msg.ID, models.OutboxRetry, "broker down", &next))

	pending, err = db.GetPendingOutbox(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "retry is not due yet")

	pending, err = db.GetPendingOutbox(ctx, next.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "broker down", *pending[0].LastError)

	require.NoError(t, db.UpdateOutboxStatus(ctx, msg.ID, models.OutboxFailed, "gave up", nil))
	failed, err := db.GetFailedOutbox(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.NotNil(t, failed[0].ProcessedAt)

	got, err := db.GetOutboxMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxFailed, got.Status)

	_, err = db.GetOutboxMessage(ctx, 999)
	assert.Error(t, err)
}
