package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// IdempotencySweeperImpl deletes completed idempotency records older than the
// retention window. PENDING records are never touched.
type IdempotencySweeperImpl struct {
	repo      ports.IdempotencyRepository
	retention time.Duration
	interval  time.Duration
	batch     int
	metrics   *Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// NewIdempotencySweeper creates a sweeper. A zero retention disables it.
func NewIdempotencySweeper(
	repo ports.IdempotencyRepository,
	retention, interval time.Duration,
	batch int,
	metrics *Metrics,
	log zerolog.Logger,
) *IdempotencySweeperImpl {
	if batch < 1 {
		batch = 500
	}
	return &IdempotencySweeperImpl{
		repo:      repo,
		retention: retention,
		interval:  interval,
		batch:     batch,
		metrics:   metrics,
		log:       log.With().Str("component", "sweeper").Logger(),
		now:       time.Now,
	}
}

// Enabled reports whether a retention window is configured.
func (s *IdempotencySweeperImpl) Enabled() bool {
	return s.retention > 0
}

// Sweep deletes expired records in batches until none remain.
func (s *IdempotencySweeperImpl) Sweep(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}

	cutoff := s.now().UTC().Add(-s.retention)
	var total int64
	for {
		n, err := s.repo.DeleteCompletedBefore(ctx, cutoff, s.batch)
		total += n
		s.metrics.addSwept(n)
		if err != nil {
			return total, fmt.Errorf("sweep idempotency records: %w", err)
		}
		if n < int64(s.batch) {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

// Run sweeps every interval until ctx is done.
func (s *IdempotencySweeperImpl) Run(ctx context.Context) error {
	if !s.Enabled() {
		s.log.Info().Msg("idempotency sweeper disabled")
		return nil
	}

	s.log.Info().
		Dur("retention", s.retention).
		Dur("interval", s.interval).
		Msg("idempotency sweeper started")

	for {
		n, err := s.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("idempotency sweep failed")
		} else if n > 0 {
			s.log.Info().Int64("deleted", n).Msg("idempotency records swept")
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("idempotency sweeper stopped")
			return nil
		case <-time.After(s.interval):
		}
	}
}
