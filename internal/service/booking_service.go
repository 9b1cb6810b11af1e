package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"amenityhub/internal/availability"
	"amenityhub/internal/database"
	"amenityhub/internal/domain"
	"amenityhub/internal/events"
	"amenityhub/internal/logging"
	"amenityhub/internal/metrics"
	"amenityhub/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingOptions are the tunables of the booking coordinator.
type BookingOptions struct {
	ConfirmationMode string
	HoldWindow       time.Duration
	CancelCutoff     time.Duration
	MaxDuration      time.Duration
	MaxAdvance       time.Duration
	StorageTimeout   time.Duration
	SweepBatch       int
	Managers         []string
}

// BookingService serialises mutations per resource, keeps the availability
// index in step with storage and emits reservation events.
type BookingService struct {
	store     domain.ReservationStore
	catalog   domain.Catalog
	artifacts domain.ArtifactIssuer
	index     *availability.Index
	locks     *lockTable
	events    domain.EventPublisher
	opts      BookingOptions
	managers  map[string]struct{}
	now       func() time.Time
	newID     func() string
	logger    *zerolog.Logger
}

func NewBookingService(
	store domain.ReservationStore,
	catalog domain.Catalog,
	artifacts domain.ArtifactIssuer,
	index *availability.Index,
	eventBus domain.EventPublisher,
	opts BookingOptions,
	logger *zerolog.Logger,
) *BookingService {
	if opts.ConfirmationMode == "" {
		opts.ConfirmationMode = models.ConfirmationImmediate
	}
	if opts.HoldWindow <= 0 {
		opts.HoldWindow = models.DefaultHoldWindow
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = models.DefaultStorageTimeout
	}
	if opts.SweepBatch <= 0 {
		opts.SweepBatch = models.DefaultSweepBatch
	}
	if index == nil {
		index = availability.NewIndex()
	}

	managers := make(map[string]struct{}, len(opts.Managers))
	for _, m := range opts.Managers {
		managers[m] = struct{}{}
	}

	return &BookingService{
		store:     store,
		catalog:   catalog,
		artifacts: artifacts,
		index:     index,
		locks:     newLockTable(),
		events:    eventBus,
		opts:      opts,
		managers:  managers,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    logging.Component(logger, "booking"),
	}
}

func (s *BookingService) IsManager(requesterID string) bool {
	_, ok := s.managers[requesterID]
	return ok
}

// CreateReservation books iv on resourceID for requesterID. It fails with a
// *models.ConflictError when the slot is taken.
func (s *BookingService) CreateReservation(ctx context.Context, resourceID, requesterID string, iv models.Interval) (*models.Reservation, error) {
	started := time.Now()
	r, err := s.createReservation(ctx, resourceID, requesterID, iv)
	metrics.ObserveOperation("create", outcome(err), started)
	return r, err
}

func (s *BookingService) createReservation(ctx context.Context, resourceID, requesterID string, iv models.Interval) (*models.Reservation, error) {
	if requesterID == "" {
		return nil, fmt.Errorf("%w: requester is required", models.ErrForbidden)
	}
	now := s.now().UTC()
	iv = models.Interval{Start: iv.Start.UTC(), End: iv.End.UTC()}
	if err := s.validateInterval(iv, now); err != nil {
		return nil, err
	}

	// Каталог опрашиваем до захвата блокировки ресурса
	res, err := s.catalog.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, models.ErrResourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: catalog: %w", models.ErrTransientStorage, err)
	}
	if !res.Active {
		return nil, fmt.Errorf("%w: resource %s is inactive", models.ErrResourceUnavailable, resourceID)
	}

	r := models.NewReservation(s.newID(), resourceID, requesterID, iv, now)
	r.ResourceName = res.Name
	if s.opts.ConfirmationMode == models.ConfirmationHold {
		hold := now.Add(s.opts.HoldWindow)
		if hold.After(iv.Start) {
			hold = iv.Start
		}
		r.HoldExpiresAt = hold
	} else {
		ref, err := s.artifacts.Issue(r)
		if err != nil {
			return nil, fmt.Errorf("issue confirmation: %w", err)
		}
		if err := r.Confirm(ref, now); err != nil {
			return nil, err
		}
	}

	unlock, err := s.locks.Lock(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	settled, err := s.reserveSlot(ctx, r, now)
	unlock()

	s.publishSettled(settled)
	if err != nil {
		return nil, err
	}

	s.publish(events.EventReservationCreated, r, requesterID)
	if r.Status == models.StatusConfirmed {
		s.publish(events.EventReservationConfirmed, r, requesterID)
	}

	logging.Reservation(s.logger.Info(), r).
		Time("start", iv.Start).
		Time("end", iv.End).
		Msg("reservation created")
	return r, nil
}

func (s *BookingService) validateInterval(iv models.Interval, now time.Time) error {
	if err := iv.Validate(); err != nil {
		return err
	}
	if iv.Start.Before(now) {
		return models.InvalidIntervalf("start %s is in the past", iv.Start.Format(time.RFC3339))
	}
	if s.opts.MaxDuration > 0 && iv.Duration() > s.opts.MaxDuration {
		return models.InvalidIntervalf("duration %s exceeds %s", iv.Duration(), s.opts.MaxDuration)
	}
	if s.opts.MaxAdvance > 0 && iv.Start.After(now.Add(s.opts.MaxAdvance)) {
		return models.InvalidIntervalf("start is more than %s ahead", s.opts.MaxAdvance)
	}
	return nil
}

// reserveSlot runs under the resource lock. Entries whose records already
// lapsed are settled first; the returned slice holds them for publishing.
func (s *BookingService) reserveSlot(ctx context.Context, r *models.Reservation, now time.Time) ([]*models.Reservation, error) {
	settled, err := s.releaseLapsed(ctx, r.ResourceID, r.Interval, now)
	if err != nil {
		return settled, err
	}

	if err := s.index.Insert(r.ResourceID, r.ID, r.Interval); err != nil {
		return settled, err
	}
	metrics.AddIndexEntries(1)

	sctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	if err := s.store.CreateReservationWithLock(sctx, r); err != nil {
		// Откатываем индекс: запись не сохранена
		if s.index.Remove(r.ResourceID, r.ID) {
			metrics.AddIndexEntries(-1)
		}
		var ce *models.ConflictError
		if errors.As(err, &ce) {
			return settled, ce
		}
		logging.Reservation(s.logger.Warn(), r).Err(err).Msg("storage rejected reservation, index rolled back")
		return settled, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	return settled, nil
}

// releaseLapsed settles index entries overlapping iv whose hold elapsed or
// whose interval ended, so they stop blocking new bookings.
func (s *BookingService) releaseLapsed(ctx context.Context, resourceID string, iv models.Interval, now time.Time) ([]*models.Reservation, error) {
	ids := s.index.QueryOverlap(resourceID, iv)
	if len(ids) == 0 {
		return nil, nil
	}

	sctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	var settled []*models.Reservation
	for _, id := range ids {
		existing, err := s.store.GetReservation(sctx, id)
		if errors.Is(err, database.ErrReservationNotFound) {
			if s.index.Remove(resourceID, id) {
				metrics.AddIndexEntries(-1)
			}
			continue
		}
		if err != nil {
			return settled, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
		}
		if !existing.EffectiveStatus(now).Terminal() {
			continue
		}
		changed, err := s.settle(sctx, existing, now)
		if err != nil {
			return settled, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
		}
		if changed {
			settled = append(settled, existing)
		}
	}
	return settled, nil
}

// settle applies the due time-driven transition to r, writes it back and
// drops r from the index. The caller holds the resource lock.
func (s *BookingService) settle(ctx context.Context, r *models.Reservation, now time.Time) (bool, error) {
	from := r.Version
	changed, err := r.Settle(now)
	if err != nil || !changed {
		if !r.Status.Active() && s.index.Remove(r.ResourceID, r.ID) {
			metrics.AddIndexEntries(-1)
		}
		return false, err
	}
	if err := s.store.UpdateReservationWithVersion(ctx, r, from); err != nil {
		return false, err
	}
	if s.index.Remove(r.ResourceID, r.ID) {
		metrics.AddIndexEntries(-1)
	}
	return true, nil
}

// CancelReservation cancels a confirmed reservation. Cancelling an already
// cancelled reservation returns it unchanged.
func (s *BookingService) CancelReservation(ctx context.Context, id, requesterID string) (*models.Reservation, error) {
	started := time.Now()
	r, err := s.cancelReservation(ctx, id, requesterID)
	metrics.ObserveOperation("cancel", outcome(err), started)
	return r, err
}

func (s *BookingService) cancelReservation(ctx context.Context, id, requesterID string) (*models.Reservation, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(r, requesterID); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, r.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	r, changed, err := s.cancelLocked(ctx, id)
	unlock()
	if err != nil {
		return nil, err
	}

	if changed {
		s.publish(events.EventReservationCancelled, r, requesterID)
		logging.Reservation(s.logger.Info(), r).Str("by", requesterID).Msg("reservation cancelled")
	}
	return r, nil
}

// cancelLocked reports changed=false when the reservation was already cancelled.
func (s *BookingService) cancelLocked(ctx context.Context, id string) (*models.Reservation, bool, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if r.Status == models.StatusCancelled {
		return r, false, nil
	}

	now := s.now().UTC()
	switch eff := r.EffectiveStatus(now); eff {
	case models.StatusConfirmed:
	case models.StatusCompleted:
		return nil, false, fmt.Errorf("%w: reservation %s already ended", models.ErrTooLateToCancel, id)
	default:
		return nil, false, fmt.Errorf("%w: cannot cancel a %s reservation", models.ErrInvalidTransition, eff)
	}

	if !now.Before(r.Interval.Start.Add(-s.opts.CancelCutoff)) {
		return nil, false, fmt.Errorf("%w: cutoff %s before start has passed", models.ErrTooLateToCancel, s.opts.CancelCutoff)
	}

	from := r.Version
	if err := r.Cancel(now); err != nil {
		return nil, false, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	if err := s.store.UpdateReservationWithVersion(sctx, r, from); err != nil {
		return nil, false, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	if s.index.Remove(r.ResourceID, r.ID) {
		metrics.AddIndexEntries(-1)
	}
	return r, true, nil
}

// RescheduleReservation moves a confirmed reservation to iv on the same
// resource and reissues its confirmation reference. Only the owner may move it,
// and only before the cancellation cutoff of the current interval.
func (s *BookingService) RescheduleReservation(ctx context.Context, id, requesterID string, iv models.Interval) (*models.Reservation, error) {
	started := time.Now()
	r, err := s.rescheduleReservation(ctx, id, requesterID, iv)
	metrics.ObserveOperation("reschedule", outcome(err), started)
	return r, err
}

func (s *BookingService) rescheduleReservation(ctx context.Context, id, requesterID string, iv models.Interval) (*models.Reservation, error) {
	now := s.now().UTC()
	iv = models.Interval{Start: iv.Start.UTC(), End: iv.End.UTC()}
	if err := s.validateInterval(iv, now); err != nil {
		return nil, err
	}

	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Owner(requesterID) {
		return nil, fmt.Errorf("%w: only the owner may reschedule reservation %s", models.ErrForbidden, id)
	}

	unlock, err := s.locks.Lock(ctx, r.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	r, settled, changed, err := s.rescheduleLocked(ctx, id, iv, now)
	unlock()

	s.publishSettled(settled)
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(events.EventReservationRescheduled, r, requesterID)
		logging.Reservation(s.logger.Info(), r).
			Time("start", iv.Start).
			Time("end", iv.End).
			Msg("reservation rescheduled")
	}
	return r, nil
}

// rescheduleLocked reports changed=false when r already occupies iv. If the
// new interval cannot be stored, the index entry goes back to the old one.
func (s *BookingService) rescheduleLocked(ctx context.Context, id string, iv models.Interval, now time.Time) (*models.Reservation, []*models.Reservation, bool, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, false, err
	}

	switch eff := r.EffectiveStatus(now); eff {
	case models.StatusConfirmed:
	case models.StatusCompleted:
		return nil, nil, false, fmt.Errorf("%w: reservation %s already ended", models.ErrTooLateToReschedule, id)
	default:
		return nil, nil, false, fmt.Errorf("%w: cannot reschedule a %s reservation", models.ErrInvalidTransition, eff)
	}
	if !now.Before(r.Interval.Start.Add(-s.opts.CancelCutoff)) {
		return nil, nil, false, fmt.Errorf("%w: cutoff %s before start has passed", models.ErrTooLateToReschedule, s.opts.CancelCutoff)
	}
	if r.Interval.Start.Equal(iv.Start) && r.Interval.End.Equal(iv.End) {
		return r, nil, false, nil
	}

	settled, err := s.releaseLapsed(ctx, r.ResourceID, iv, now)
	if err != nil {
		return nil, settled, false, err
	}

	old := r.Interval
	if err := s.index.Insert(r.ResourceID, r.ID, iv); err != nil {
		return nil, settled, false, err
	}
	restore := func() {
		if err := s.index.Insert(r.ResourceID, r.ID, old); err != nil {
			logging.Reservation(s.logger.Error(), r).Err(err).Msg("failed to restore index entry")
		}
	}

	next := *r
	next.Interval = iv
	ref, err := s.artifacts.Issue(&next)
	if err != nil {
		restore()
		return nil, settled, false, fmt.Errorf("issue confirmation: %w", err)
	}

	from := r.Version
	if err := r.Reschedule(iv, ref, now); err != nil {
		restore()
		return nil, settled, false, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	if err := s.store.UpdateReservationWithVersion(sctx, r, from); err != nil {
		// Запись не обновилась, возвращаем старый интервал в индекс
		restore()
		logging.Reservation(s.logger.Warn(), r).Err(err).Msg("storage rejected reschedule, index rolled back")
		return nil, settled, false, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	return r, settled, true, nil
}

// ConfirmReservation finishes a hold. Confirming a confirmed reservation is a no-op.
func (s *BookingService) ConfirmReservation(ctx context.Context, id, requesterID string) (*models.Reservation, error) {
	started := time.Now()
	r, err := s.confirmReservation(ctx, id, requesterID)
	metrics.ObserveOperation("confirm", outcome(err), started)
	return r, err
}

func (s *BookingService) confirmReservation(ctx context.Context, id, requesterID string) (*models.Reservation, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(r, requesterID); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, r.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	r, changed, err := s.confirmLocked(ctx, id)
	unlock()

	if err != nil {
		if changed && errors.Is(err, models.ErrHoldExpired) {
			s.publish(events.EventReservationExpired, r, "system")
		}
		return nil, err
	}
	if changed {
		s.publish(events.EventReservationConfirmed, r, requesterID)
		logging.Reservation(s.logger.Info(), r).Msg("reservation confirmed")
	}
	return r, nil
}

// confirmLocked reports changed=true when r was written back, which also
// happens when the hold had lapsed and r was expired instead.
func (s *BookingService) confirmLocked(ctx context.Context, id string) (*models.Reservation, bool, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	now := s.now().UTC()

	sctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	switch eff := r.EffectiveStatus(now); eff {
	case models.StatusPending:
	case models.StatusConfirmed, models.StatusCompleted:
		return r.At(now), false, nil
	case models.StatusExpired:
		changed, err := s.settle(sctx, r, now)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
		}
		return r, changed, fmt.Errorf("%w: reservation %s", models.ErrHoldExpired, id)
	default:
		return nil, false, fmt.Errorf("%w: cannot confirm a %s reservation", models.ErrInvalidTransition, eff)
	}

	from := r.Version
	ref, err := s.artifacts.Issue(r)
	if err != nil {
		return nil, false, fmt.Errorf("issue confirmation: %w", err)
	}
	if err := r.Confirm(ref, now); err != nil {
		return nil, false, err
	}
	if err := s.store.UpdateReservationWithVersion(sctx, r, from); err != nil {
		return nil, false, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	return r, true, nil
}

// ValidateArtifact resolves a confirmation reference back to the reservation
// it was issued for. The reference must be the one currently stored on a
// confirmed (or since completed) reservation.
func (s *BookingService) ValidateArtifact(ctx context.Context, ref string) (string, error) {
	id, err := s.artifacts.Validate(ref)
	if err != nil {
		return "", err
	}
	r, err := s.load(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return "", fmt.Errorf("%w: unknown reservation", models.ErrInvalidArtifact)
	}
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(r.ConfirmationRef), []byte(ref)) != 1 {
		return "", fmt.Errorf("%w: reference was superseded", models.ErrInvalidArtifact)
	}
	switch eff := r.EffectiveStatus(s.now()); eff {
	case models.StatusConfirmed, models.StatusCompleted:
		return r.ID, nil
	default:
		return "", fmt.Errorf("%w: reservation is %s", models.ErrInvalidArtifact, eff)
	}
}

// Restore rebuilds the availability index from stored active reservations.
// Records that lapsed while the process was down are settled instead.
func (s *BookingService) Restore(ctx context.Context) (int, error) {
	active, err := s.store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active reservations: %w", err)
	}

	now := s.now().UTC()
	loaded := 0
	for _, r := range active {
		if r.EffectiveStatus(now).Terminal() {
			changed, err := s.settle(ctx, r, now)
			if err != nil {
				logging.Reservation(s.logger.Warn(), r).Err(err).Msg("failed to settle lapsed reservation")
			} else if changed {
				s.publish(events.TypeForStatus(r.Status), r, "system")
			}
			continue
		}
		if err := s.index.Insert(r.ResourceID, r.ID, r.Interval); err != nil {
			logging.Reservation(s.logger.Error(), r).Err(err).Msg("stored reservations overlap")
			continue
		}
		loaded++
	}
	metrics.AddIndexEntries(loaded)

	s.logger.Info().Int("loaded", loaded).Int("stored_active", len(active)).Msg("availability index restored")
	return loaded, nil
}

// Sweep settles reservations whose hold elapsed or whose interval ended.
func (s *BookingService) Sweep(ctx context.Context) (domain.SweepResult, error) {
	var result domain.SweepResult
	now := s.now().UTC()

	due, err := s.store.ListDue(ctx, now, s.opts.SweepBatch)
	if err != nil {
		return result, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}

	for _, d := range due {
		unlock, err := s.locks.Lock(ctx, d.ResourceID)
		if err != nil {
			return result, err
		}
		r, changed, err := s.sweepOne(ctx, d.ID, now)
		unlock()

		switch {
		case errors.Is(err, database.ErrConcurrentModification), errors.Is(err, database.ErrReservationNotFound):
			result.Skipped++
			continue
		case err != nil:
			logging.Reservation(s.logger.Warn(), d).Err(err).Msg("sweep failed for reservation")
			result.Skipped++
			continue
		case !changed:
			result.Skipped++
			continue
		}

		switch r.Status {
		case models.StatusExpired:
			result.Expired++
		case models.StatusCompleted:
			result.Completed++
		}
		s.publish(events.TypeForStatus(r.Status), r, "system")
	}

	for _, resourceID := range s.index.Resources() {
		if pruned := s.index.Prune(resourceID, now); len(pruned) > 0 {
			metrics.AddIndexEntries(-len(pruned))
		}
	}

	metrics.IncSweep(string(models.StatusExpired), result.Expired)
	metrics.IncSweep(string(models.StatusCompleted), result.Completed)
	if result.Expired+result.Completed > 0 {
		s.logger.Info().
			Int("expired", result.Expired).
			Int("completed", result.Completed).
			Int("skipped", result.Skipped).
			Msg("sweep finished")
	}
	return result, nil
}

func (s *BookingService) sweepOne(ctx context.Context, id string, now time.Time) (*models.Reservation, bool, error) {
	sctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	r, err := s.store.GetReservation(sctx, id)
	if err != nil {
		return nil, false, err
	}
	changed, err := s.settle(sctx, r, now)
	return r, changed, err
}

func (s *BookingService) load(ctx context.Context, id string) (*models.Reservation, error) {
	sctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	r, err := s.store.GetReservation(sctx, id)
	if errors.Is(err, database.ErrReservationNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTransientStorage, err)
	}
	return r, nil
}

func (s *BookingService) authorize(r *models.Reservation, requesterID string) error {
	if r.Owner(requesterID) || s.IsManager(requesterID) {
		return nil
	}
	return fmt.Errorf("%w: %s may not act on reservation %s", models.ErrForbidden, requesterID, r.ID)
}

func (s *BookingService) publish(eventType string, r *models.Reservation, changedBy string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, events.NewReservationPayload(r, changedBy)); err != nil {
		logging.Reservation(s.logger.Error(), r).Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func (s *BookingService) publishSettled(settled []*models.Reservation) {
	for _, r := range settled {
		s.publish(events.TypeForStatus(r.Status), r, "system")
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, models.ErrResourceUnavailable):
		return "unavailable"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrTooLateToCancel), errors.Is(err, models.ErrTooLateToReschedule):
		return "too_late"
	case errors.Is(err, models.ErrHoldExpired):
		return "hold_expired"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, models.ErrTransientStorage):
		return "transient"
	default:
		return "error"
	}
}
