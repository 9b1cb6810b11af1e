package domain

import (
	"context"
	"time"

	"amenityhub/internal/models"
)

// ReservationStore is the durable record of reservations.
type ReservationStore interface {
	CreateReservationWithLock(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	UpdateReservationWithVersion(ctx context.Context, r *models.Reservation, fromVersion int64) error
	ListByRequester(ctx context.Context, requesterID string) ([]*models.Reservation, error)
	ListByResource(ctx context.Context, resourceID string, window models.Interval) ([]*models.Reservation, error)
	ListActive(ctx context.Context) ([]*models.Reservation, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Reservation, error)
}

// Catalog answers resource lookups. Unknown ids are reported as models.ErrResourceUnavailable.
type Catalog interface {
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	ListResources(ctx context.Context) ([]*models.Resource, error)
}

type ArtifactIssuer interface {
	Issue(r *models.Reservation) (string, error)
	Validate(ref string) (string, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// BookingService mutates reservations and owns the availability index.
type BookingService interface {
	CreateReservation(ctx context.Context, resourceID, requesterID string, iv models.Interval) (*models.Reservation, error)
	ConfirmReservation(ctx context.Context, id, requesterID string) (*models.Reservation, error)
	CancelReservation(ctx context.Context, id, requesterID string) (*models.Reservation, error)
	RescheduleReservation(ctx context.Context, id, requesterID string, iv models.Interval) (*models.Reservation, error)
	ValidateArtifact(ctx context.Context, ref string) (string, error)
	IsManager(requesterID string) bool
}

// QueryService is the read-only projection of stored reservations.
type QueryService interface {
	ListByRequester(ctx context.Context, requesterID string) ([]*models.Reservation, error)
	ListByResource(ctx context.Context, resourceID string, window models.Interval) ([]*models.Reservation, error)
	Get(ctx context.Context, id string) (*models.Reservation, error)
}

// ResourceCache is a look-aside cache in front of the catalog table. A miss is (nil, nil).
type ResourceCache interface {
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	SetResource(ctx context.Context, res *models.Resource) error
	InvalidateResource(ctx context.Context, id string) error
}

// SweepResult counts the time-driven transitions applied by one sweep.
type SweepResult struct {
	Expired   int
	Completed int
	Skipped   int
}

type Sweeper interface {
	Sweep(ctx context.Context) (SweepResult, error)
}
