package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"amenityhub/internal/models"
)

const reservationColumns = `id, resource_id, resource_name, requester_id, start_at, end_at, status,
        confirmation_ref, hold_expires_at, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r                  models.Reservation
		start, end, holdNs int64
		status             string
	)
	err := row.Scan(&r.ID, &r.ResourceID, &r.ResourceName, &r.RequesterID, &start, &end, &status,
		&r.ConfirmationRef, &holdNs, &r.CreatedAt, &r.UpdatedAt, &r.Version)
	if err != nil {
		return nil, err
	}
	r.Interval = models.Interval{Start: fromNanos(start), End: fromNanos(end)}
	r.Status = models.Status(status)
	r.HoldExpiresAt = fromNanos(holdNs)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func scanReservations(rows *sql.Rows) ([]*models.Reservation, error) {
	defer rows.Close()
	var out []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateReservationWithLock inserts r after re-checking, inside one transaction,
// that no active reservation of the same resource overlaps it. A Pending row
// whose hold elapsed before r.CreatedAt does not block.
func (db *DB) CreateReservationWithLock(ctx context.Context, r *models.Reservation) error {
	if !r.Status.Active() {
		return fmt.Errorf("cannot create reservation in status %s", r.Status)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Проверка пересечений внутри транзакции
	rows, err := tx.QueryContext(ctx, `
        SELECT id FROM reservations
        WHERE resource_id = ?
          AND status IN (?, ?)
          AND start_at < ? AND end_at > ?
          AND NOT (status = ? AND hold_expires_at > 0 AND hold_expires_at <= ?)
        ORDER BY start_at, id`,
		r.ResourceID, models.StatusPending, models.StatusConfirmed,
		nanos(r.Interval.End), nanos(r.Interval.Start),
		models.StatusPending, nanos(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	var conflicts []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan overlap in tx: %w", err)
		}
		conflicts = append(conflicts, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: %w", ErrOverlap,
			&models.ConflictError{ResourceID: r.ResourceID, ReservationIDs: conflicts})
	}

	// 2. Создание брони
	version := int64(1)
	_, err = tx.ExecContext(ctx, `INSERT INTO reservations (`+reservationColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ResourceID, r.ResourceName, r.RequesterID,
		nanos(r.Interval.Start), nanos(r.Interval.End), string(r.Status),
		r.ConfirmationRef, nanos(r.HoldExpiresAt),
		r.CreatedAt.UTC(), r.UpdatedAt.UTC(), version)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.Version = version
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// UpdateReservationWithVersion writes the mutable fields of r when the stored
// version still equals fromVersion, then bumps r.Version.
func (db *DB) UpdateReservationWithVersion(ctx context.Context, r *models.Reservation, fromVersion int64) error {
	res, err := db.ExecContext(ctx, `
        UPDATE reservations
        SET start_at = ?, end_at = ?, status = ?, confirmation_ref = ?, hold_expires_at = ?,
            updated_at = ?, version = version + 1
        WHERE id = ? AND version = ?`,
		nanos(r.Interval.Start), nanos(r.Interval.End), string(r.Status), r.ConfirmationRef,
		nanos(r.HoldExpiresAt), r.UpdatedAt.UTC(), r.ID, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		if _, err := db.GetReservation(ctx, r.ID); err != nil {
			return err
		}
		return ErrConcurrentModification
	}
	r.Version = fromVersion + 1
	return nil
}

func (db *DB) ListByRequester(ctx context.Context, requesterID string) ([]*models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservations
        WHERE requester_id = ? ORDER BY start_at, id`, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations by requester: %w", err)
	}
	return scanReservations(rows)
}

// ListByResource returns every reservation of resourceID that overlaps window, in any status.
func (db *DB) ListByResource(ctx context.Context, resourceID string, window models.Interval) ([]*models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservations
        WHERE resource_id = ? AND start_at < ? AND end_at > ?
        ORDER BY start_at, id`, resourceID, nanos(window.End), nanos(window.Start))
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations by resource: %w", err)
	}
	return scanReservations(rows)
}

// ListActive returns every Pending or Confirmed reservation.
func (db *DB) ListActive(ctx context.Context) ([]*models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservations
        WHERE status IN (?, ?) ORDER BY resource_id, start_at`,
		models.StatusPending, models.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to list active reservations: %w", err)
	}
	return scanReservations(rows)
}

// ListDue returns stored records whose time-driven transition is due at now.
func (db *DB) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Reservation, error) {
	if limit <= 0 {
		limit = models.DefaultSweepBatch
	}
	ts := nanos(now)
	rows, err := db.QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservations
        WHERE (status = ? AND hold_expires_at > 0 AND hold_expires_at <= ?)
           OR (status = ? AND end_at <= ?)
        ORDER BY end_at, id LIMIT ?`,
		models.StatusPending, ts, models.StatusConfirmed, ts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reservations: %w", err)
	}
	return scanReservations(rows)
}
