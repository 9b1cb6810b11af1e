package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"amenityhub/internal/models"
)

func (db *DB) UpsertResource(ctx context.Context, res *models.Resource) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
        INSERT INTO resources (id, name, description, price_per_hour, active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            description = excluded.description,
            price_per_hour = excluded.price_per_hour,
            active = excluded.active,
            updated_at = excluded.updated_at`,
		res.ID, res.Name, res.Description, res.PricePerHour, res.Active, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert resource %s: %w", res.ID, err)
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now
	return nil
}

// SeedResources upserts the configured catalog in one transaction.
func (db *DB) SeedResources(ctx context.Context, resources []models.Resource) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, res := range resources {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO resources (id, name, description, price_per_hour, active, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                name = excluded.name,
                description = excluded.description,
                price_per_hour = excluded.price_per_hour,
                active = excluded.active,
                updated_at = excluded.updated_at`,
			res.ID, res.Name, res.Description, res.PricePerHour, res.Active, now, now)
		if err != nil {
			return fmt.Errorf("failed to seed resource %s: %w", res.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit resources: %w", err)
	}
	db.logger.Info().Int("count", len(resources)).Msg("resources seeded")
	return nil
}

func (db *DB) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	var res models.Resource
	err := db.QueryRowContext(ctx, `
        SELECT id, name, description, price_per_hour, active, created_at, updated_at
        FROM resources WHERE id = ?`, id).
		Scan(&res.ID, &res.Name, &res.Description, &res.PricePerHour, &res.Active, &res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return &res, nil
}

func (db *DB) ListResources(ctx context.Context) ([]*models.Resource, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, name, description, price_per_hour, active, created_at, updated_at
        FROM resources ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var out []*models.Resource
	for rows.Next() {
		var res models.Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.Description, &res.PricePerHour,
			&res.Active, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}
