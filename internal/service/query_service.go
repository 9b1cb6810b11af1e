package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amenityhub/internal/database"
	"amenityhub/internal/domain"
	"amenityhub/internal/models"
)

// QueryService reads reservations from storage. Time-driven transitions that
// are due but not yet swept are applied to the returned copies.
type QueryService struct {
	store domain.ReservationStore
	now   func() time.Time
}

func NewQueryService(store domain.ReservationStore) *QueryService {
	return &QueryService{store: store, now: time.Now}
}

func (q *QueryService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := q.store.GetReservation(ctx, id)
	if errors.Is(err, database.ErrReservationNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	return r.At(q.now()), nil
}

func (q *QueryService) ListByRequester(ctx context.Context, requesterID string) ([]*models.Reservation, error) {
	list, err := q.store.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	return q.observe(list), nil
}

// ListByResource returns reservations of resourceID overlapping window, in any status.
func (q *QueryService) ListByResource(ctx context.Context, resourceID string, window models.Interval) ([]*models.Reservation, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	list, err := q.store.ListByResource(ctx, resourceID, window)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	return q.observe(list), nil
}

// Busy returns the intervals of resourceID inside window that are still held
// by a pending or confirmed reservation.
func (q *QueryService) Busy(ctx context.Context, resourceID string, window models.Interval) ([]models.Interval, error) {
	list, err := q.ListByResource(ctx, resourceID, window)
	if err != nil {
		return nil, err
	}
	busy := make([]models.Interval, 0, len(list))
	for _, r := range list {
		if r.Status.Active() {
			busy = append(busy, r.Interval)
		}
	}
	return busy, nil
}

func (q *QueryService) observe(list []*models.Reservation) []*models.Reservation {
	now := q.now()
	out := make([]*models.Reservation, len(list))
	for i, r := range list {
		out[i] = r.At(now)
	}
	return out
}
