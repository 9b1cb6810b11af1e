package worker

import (
	"context"
	"time"

	"amenityhub/internal/domain"

	"github.com/rs/zerolog"
)

// ExpiryWorker runs the reservation sweep on a fixed interval.
type ExpiryWorker struct {
	sweeper  domain.Sweeper
	interval time.Duration
	logger   *zerolog.Logger
}

func NewExpiryWorker(sweeper domain.Sweeper, interval time.Duration, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpiryWorker{sweeper: sweeper, interval: interval, logger: logger}
}

// Start sweeps once immediately and then on every tick until ctx is done.
func (w *ExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.interval).Msg("expiry worker started")
	for {
		w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("expiry worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *ExpiryWorker) RunOnce(ctx context.Context) domain.SweepResult {
	res, err := w.sweeper.Sweep(ctx)
	if err != nil && ctx.Err() == nil {
		w.logger.Error().Err(err).Msg("expiry sweep failed")
	}
	if res.Expired+res.Completed > 0 {
		w.logger.Info().
			Int("expired", res.Expired).
			Int("completed", res.Completed).
			Int("skipped", res.Skipped).
			Msg("expiry sweep applied transitions")
	}
	return res
}
