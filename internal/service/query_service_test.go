package service

import (
	"context"
	"testing"
	"time"

	"amenityhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryService(t *testing.T) {
	f := newFixture(t, BookingOptions{ConfirmationMode: models.ConfirmationHold, HoldWindow: 10 * time.Minute})
	ctx := context.Background()

	held, err := f.svc.CreateReservation(ctx, "R1", "alice", slot(9, 0, 10, 0))
	require.NoError(t, err)
	booked, err := f.svc.CreateReservation(ctx, "R1", "alice", slot(8, 5, 8, 30))
	require.NoError(t, err)
	_, err = f.svc.ConfirmReservation(ctx, booked.ID, "alice")
	require.NoError(t, err)
	_, err = f.svc.CreateReservation(ctx, "R2", "bob", slot(9, 0, 10, 0))
	require.NoError(t, err)

	q := NewQueryService(f.db)
	q.now = f.clock.Now

	t.Run("get", func(t *testing.T) {
		r, err := q.Get(ctx, held.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, r.Status)

		_, err = q.Get(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("by requester", func(t *testing.T) {
		list, err := q.ListByRequester(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, booked.ID, list[0].ID, "ordered by start")
	})

	t.Run("invalid window", func(t *testing.T) {
		_, err := q.ListByResource(ctx, "R1", slot(10, 0, 9, 0))
		assert.ErrorIs(t, err, models.ErrInvalidInterval)
	})

	// Статусы пересчитываются при чтении, даже если sweep ещё не прошёл
	f.clock.Advance(time.Hour)

	t.Run("lazy transitions", func(t *testing.T) {
		list, err := q.ListByResource(ctx, "R1", slot(0, 0, 23, 0))
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, models.StatusCompleted, list[0].Status)
		assert.NotEmpty(t, list[0].ConfirmationRef)
		assert.Equal(t, models.StatusExpired, list[1].Status)
		assert.Empty(t, list[1].ConfirmationRef)

		stored, err := f.db.GetReservation(ctx, held.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, stored.Status, "reads never write")
	})

	t.Run("busy", func(t *testing.T) {
		busy, err := q.Busy(ctx, "R2", slot(0, 0, 23, 0))
		require.NoError(t, err)
		assert.Empty(t, busy, "the lapsed hold on R2 no longer occupies the slot")

		busy, err = q.Busy(ctx, "R1", slot(0, 0, 23, 0))
		require.NoError(t, err)
		assert.Empty(t, busy)
	})
}

func TestQueryService_BusyReportsActiveIntervals(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	ctx := context.Background()

	a, err := f.svc.CreateReservation(ctx, "R1", "alice", slot(9, 0, 10, 0))
	require.NoError(t, err)
	_, err = f.svc.CreateReservation(ctx, "R1", "bob", slot(11, 0, 12, 0))
	require.NoError(t, err)
	_, err = f.svc.CancelReservation(ctx, a.ID, "alice")
	require.NoError(t, err)

	q := NewQueryService(f.db)
	q.now = f.clock.Now

	busy, err := q.Busy(ctx, "R1", slot(8, 0, 13, 0))
	require.NoError(t, err)
	assert.Equal(t, []models.Interval{slot(11, 0, 12, 0)}, busy)
}
