package service

import (
	"context"
	"time"

	"github.com/flowlytix/distribution-backend/pkg/actor"
	"github.com/flowlytix/distribution-backend/pkg/errors"
	"github.com/flowlytix/distribution-backend/pkg/logger"
)

const sweepBatchSize = 500

// ExpirySweeper periodically promotes lots whose expiry date has passed to
// EXPIRED, so the stored status catches up with the calendar even when
// nobody reads the lot.
type ExpirySweeper struct {
	service  *LotService
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(service *LotService, interval time.Duration, log *logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		service:  service,
		interval: interval,
		logger:   log.WithComponent("expiry-sweeper"),
	}
}

// Start starts the sweeper in a background goroutine
func (s *ExpirySweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("expiry sweeper started")

		// Run an initial sweep immediately
		s.runSweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("expiry sweeper stopped")
				return
			case <-ticker.C:
				s.runSweep(ctx)
			}
		}
	}()
}

// Stop stops the sweeper goroutine
func (s *ExpirySweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// runSweep marks every lot past its expiry date. Sweeps run as the system
// actor and tolerate races: a lot expired or deleted by someone else
// mid-sweep is simply skipped.
func (s *ExpirySweeper) runSweep(ctx context.Context) {
	start := time.Now()
	ctx = actor.WithActor(ctx, actor.SystemActor())

	candidates, err := s.service.lotRepo.ListExpiredCandidates(ctx, s.service.now(), sweepBatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list expiry candidates")
		return
	}
	if len(candidates) == 0 {
		return
	}

	var expired, skipped int
	for _, lot := range candidates {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.service.MarkLotExpired(ctx, lot.ID); err != nil {
			if errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrConcurrency) {
				skipped++
				continue
			}
			s.logger.WithLot(lot.LotNumber).Error().Err(err).Str("lot_id", lot.ID).Msg("failed to expire lot")
			skipped++
			continue
		}
		expired++
	}

	s.logger.Info().
		Int("expired", expired).
		Int("skipped", skipped).
		Dur("duration", time.Since(start)).
		Msg("expiry sweep completed")
}
