package catalog

import (
	"context"
	"errors"
	"fmt"

	"amenityhub/internal/database"
	"amenityhub/internal/domain"
	"amenityhub/internal/models"

	"github.com/rs/zerolog"
)

// Store is the durable side of the catalog.
type Store interface {
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	ListResources(ctx context.Context) ([]*models.Resource, error)
	UpsertResource(ctx context.Context, res *models.Resource) error
}

// Service resolves resources through a look-aside cache. Cache failures are
// logged and never fail a lookup.
type Service struct {
	store  Store
	cache  domain.ResourceCache
	logger *zerolog.Logger
}

func NewService(store Store, cache domain.ResourceCache, logger *zerolog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

func (s *Service) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	if s.cache != nil {
		res, err := s.cache.GetResource(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("resource_id", id).Msg("resource cache read failed")
		} else if res != nil {
			return res, nil
		}
	}

	res, err := s.store.GetResource(ctx, id)
	if errors.Is(err, database.ErrResourceNotFound) {
		return nil, fmt.Errorf("%w: unknown resource %s", models.ErrResourceUnavailable, id)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetResource(ctx, res); err != nil {
			s.logger.Warn().Err(err).Str("resource_id", id).Msg("resource cache write failed")
		}
	}
	return res, nil
}

func (s *Service) ListResources(ctx context.Context) ([]*models.Resource, error) {
	return s.store.ListResources(ctx)
}

// UpdateResource persists res and drops the cached copy.
func (s *Service) UpdateResource(ctx context.Context, res *models.Resource) error {
	if err := s.store.UpsertResource(ctx, res); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateResource(ctx, res.ID); err != nil {
			s.logger.Warn().Err(err).Str("resource_id", res.ID).Msg("resource cache invalidate failed")
		}
	}
	return nil
}
