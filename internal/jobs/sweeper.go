// Package jobs runs the periodic background work of the API process.
package jobs

import (
	"context"
	"time"

	"fintrack/internal/logger"
	"fintrack/internal/services"
)

// Sweeper triggers the reconciliation sweep on a fixed interval.
type Sweeper struct {
	reconciler services.Reconciler
	interval   time.Duration
	now        func() time.Time
}

// NewSweeper creates a sweeper that runs every interval.
func NewSweeper(reconciler services.Reconciler, interval time.Duration) *Sweeper {
	return &Sweeper{reconciler: reconciler, interval: interval, now: time.Now}
}

// RunOnce performs a single pass over the current period.
func (s *Sweeper) RunOnce(ctx context.Context) (*services.SweepResult, error) {
	return s.reconciler.Sweep(ctx, s.now())
}

// Run sweeps once at start and then on every tick until ctx is cancelled.
// A pass that has started always finishes; cancellation only stops the
// next one from starting.
func (s *Sweeper) Run(ctx context.Context) error {
	log := logger.Named("sweeper")
	log.Infow("Reconciliation sweeper started", "interval", s.interval.String())

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Reconciliation sweeper stopped")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		logger.Named("sweeper").Errorw("Sweep failed", "error", err)
	}
}
