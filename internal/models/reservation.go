package models

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusCompleted Status = "completed"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusExpired},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusExpired, StatusCompleted:
		return true
	}
	return false
}

// Active statuses occupy a slot in the availability index.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusExpired || s == StatusCompleted
}

type Reservation struct {
	ID              string    `json:"id"`
	ResourceID      string    `json:"resource_id"`
	ResourceName    string    `json:"resource_name,omitempty"`
	RequesterID     string    `json:"requester_id"`
	Interval        Interval  `json:"interval"`
	Status          Status    `json:"status"`
	ConfirmationRef string    `json:"confirmation_ref,omitempty"`
	HoldExpiresAt   time.Time `json:"hold_expires_at,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

// NewReservation returns a Pending reservation created at now.
func NewReservation(id, resourceID, requesterID string, iv Interval, now time.Time) *Reservation {
	now = now.UTC()
	return &Reservation{
		ID:          id,
		ResourceID:  resourceID,
		RequesterID: requesterID,
		Interval:    iv,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (r *Reservation) transition(to Status, at time.Time) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = at.UTC()
	return nil
}

// Confirm moves a Pending reservation to Confirmed and attaches its artifact reference.
func (r *Reservation) Confirm(ref string, at time.Time) error {
	if ref == "" {
		return fmt.Errorf("%w: confirmation reference is required", ErrInvalidTransition)
	}
	if err := r.transition(StatusConfirmed, at); err != nil {
		return err
	}
	r.ConfirmationRef = ref
	r.HoldExpiresAt = time.Time{}
	return nil
}

func (r *Reservation) Expire(at time.Time) error {
	if err := r.transition(StatusExpired, at); err != nil {
		return err
	}
	r.ConfirmationRef = ""
	return nil
}

func (r *Reservation) Cancel(at time.Time) error {
	if err := r.transition(StatusCancelled, at); err != nil {
		return err
	}
	r.ConfirmationRef = ""
	return nil
}

// Reschedule moves a Confirmed reservation to iv. The reference issued for
// the old interval is replaced by ref.
func (r *Reservation) Reschedule(iv Interval, ref string, at time.Time) error {
	if r.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot reschedule a %s reservation", ErrInvalidTransition, r.Status)
	}
	if err := iv.Validate(); err != nil {
		return err
	}
	if ref == "" {
		return fmt.Errorf("%w: confirmation reference is required", ErrInvalidTransition)
	}
	r.Interval = iv
	r.ConfirmationRef = ref
	r.UpdatedAt = at.UTC()
	return nil
}

// Complete keeps the confirmation reference.
func (r *Reservation) Complete(at time.Time) error {
	return r.transition(StatusCompleted, at)
}

// EffectiveStatus applies the time-driven transitions without mutating r.
func (r *Reservation) EffectiveStatus(now time.Time) Status {
	switch r.Status {
	case StatusPending:
		if !r.HoldExpiresAt.IsZero() && !now.Before(r.HoldExpiresAt) {
			return StatusExpired
		}
	case StatusConfirmed:
		if !now.Before(r.Interval.End) {
			return StatusCompleted
		}
	}
	return r.Status
}

// At returns a copy of r as observed at now.
func (r *Reservation) At(now time.Time) *Reservation {
	out := *r
	switch eff := r.EffectiveStatus(now); {
	case eff == r.Status:
	case eff == StatusExpired:
		out.Status = StatusExpired
		out.ConfirmationRef = ""
		out.UpdatedAt = r.HoldExpiresAt
	case eff == StatusCompleted:
		out.Status = StatusCompleted
		out.UpdatedAt = r.Interval.End
	}
	return &out
}

// Settle applies a due time-driven transition in place and reports whether
// the record changed and needs to be written back.
func (r *Reservation) Settle(now time.Time) (bool, error) {
	switch r.EffectiveStatus(now) {
	case r.Status:
		return false, nil
	case StatusExpired:
		return true, r.Expire(now)
	case StatusCompleted:
		return true, r.Complete(now)
	}
	return false, nil
}

// Owner reports whether requesterID created the reservation.
func (r *Reservation) Owner(requesterID string) bool {
	return requesterID != "" && r.RequesterID == requesterID
}
