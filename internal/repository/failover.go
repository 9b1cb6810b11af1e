package repository

import (
	"context"
	"sync/atomic"
	"time"

	"amenityhub/internal/domain"
	"amenityhub/internal/models"

	"github.com/rs/zerolog"
)

const primaryRetryAfter = time.Minute

// FailoverResourceCache uses primary until it errors, then serves from
// fallback and tries primary again once per primaryRetryAfter.
type FailoverResourceCache struct {
	primary   domain.ResourceCache
	fallback  domain.ResourceCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverResourceCache(primary, fallback domain.ResourceCache, logger *zerolog.Logger) *FailoverResourceCache {
	return &FailoverResourceCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverResourceCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > primaryRetryAfter
}

func (r *FailoverResourceCache) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("primary resource cache failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverResourceCache) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("primary resource cache recovered")
	}
}

func (r *FailoverResourceCache) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	if r.usePrimary() {
		res, err := r.primary.GetResource(ctx, id)
		if err == nil {
			r.markUp()
			return res, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetResource(ctx, id)
}

func (r *FailoverResourceCache) SetResource(ctx context.Context, res *models.Resource) error {
	if r.usePrimary() {
		err := r.primary.SetResource(ctx, res)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetResource(ctx, res)
}

// InvalidateResource clears both layers so a recovered primary never serves stale data.
func (r *FailoverResourceCache) InvalidateResource(ctx context.Context, id string) error {
	_ = r.fallback.InvalidateResource(ctx, id)
	if r.usePrimary() {
		if err := r.primary.InvalidateResource(ctx, id); err != nil {
			r.markDown(err)
		}
	}
	return nil
}
