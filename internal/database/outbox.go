package database

import (
	"context"
	"fmt"
	"time"

	"amenityhub/internal/models"
)

const outboxColumns = `id, event_type, event_key, payload, status, retry_count, last_error,
        created_at, processed_at, next_retry_at`

func (db *DB) CreateOutboxMessage(ctx context.Context, msg *models.OutboxMessage) error {
	now := time.Now().UTC()
	if msg.Status == "" {
		msg.Status = models.OutboxPending
	}
	result, err := db.ExecContext(ctx, `INSERT INTO outbox
        (event_type, event_key, payload, status, retry_count, last_error, created_at, next_retry_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.EventType, msg.Key, msg.Payload, msg.Status, msg.RetryCount, msg.LastError, now, utcPtr(msg.NextRetryAt))
	if err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	msg.ID = id
	msg.CreatedAt = now
	return nil
}

func (db *DB) GetOutboxMessage(ctx context.Context, id int64) (*models.OutboxMessage, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+outboxColumns+` FROM outbox WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox message: %w", err)
	}
	msgs, err := scanOutbox(rows)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("outbox message %d not found", id)
	}
	return &msgs[0], nil
}

// GetPendingOutbox returns messages ready for delivery at now.
func (db *DB) GetPendingOutbox(ctx context.Context, now time.Time, limit int) ([]models.OutboxMessage, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+outboxColumns+` FROM outbox
        WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
        ORDER BY created_at ASC, id ASC LIMIT ?`,
		models.OutboxPending, models.OutboxRetry, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending outbox: %w", err)
	}
	return scanOutbox(rows)
}

func (db *DB) UpdateOutboxStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := time.Now().UTC()

	switch status {
	case models.OutboxRetry:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, errMsg, utcPtr(nextRetryAt), id}
	case models.OutboxCompleted, models.OutboxFailed:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = NULL, processed_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, now, id}
	default:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, utcPtr(nextRetryAt), id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update outbox status: %w", err)
	}
	return nil
}

func (db *DB) GetFailedOutbox(ctx context.Context) ([]models.OutboxMessage, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+outboxColumns+` FROM outbox
        WHERE status = ? ORDER BY created_at DESC`, models.OutboxFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed outbox: %w", err)
	}
	return scanOutbox(rows)
}

func scanOutbox(rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}) ([]models.OutboxMessage, error) {
	defer rows.Close()
	var msgs []models.OutboxMessage
	for rows.Next() {
		var m models.OutboxMessage
		if err := rows.Scan(&m.ID, &m.EventType, &m.Key, &m.Payload, &m.Status, &m.RetryCount,
			&m.LastError, &m.CreatedAt, &m.ProcessedAt, &m.NextRetryAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
