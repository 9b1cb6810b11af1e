package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInterval     = errors.New("invalid interval")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrConflict            = errors.New("interval conflicts with an existing reservation")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("reservation not found")
	ErrTooLateToCancel     = errors.New("too late to cancel")
	ErrTooLateToReschedule = errors.New("too late to reschedule")
	ErrInvalidArtifact     = errors.New("invalid confirmation artifact")
	ErrTransientStorage    = errors.New("transient storage error")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrHoldExpired         = errors.New("hold window expired")
)

// ConflictError lists the reservations that block an interval on a resource.
type ConflictError struct {
	ResourceID     string
	ReservationIDs []string
}

func (e *ConflictError) Error() string {
	if len(e.ReservationIDs) == 0 {
		return fmt.Sprintf("%s: resource %s", ErrConflict, e.ResourceID)
	}
	return fmt.Sprintf("%s: resource %s, conflicts with [%s]",
		ErrConflict, e.ResourceID, strings.Join(e.ReservationIDs, ", "))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// InvalidIntervalf wraps ErrInvalidInterval with a human readable reason.
func InvalidIntervalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInterval, fmt.Sprintf(format, args...))
}
