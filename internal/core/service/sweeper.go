package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper cancels reservations left pending past their deadline so abandoned
// sessions cannot lock stock permanently.
type Sweeper struct {
	manager  *ReservationManager
	interval time.Duration
	maxAge   time.Duration
	logger   zerolog.Logger
}

func NewSweeper(manager *ReservationManager, interval, maxAge time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		manager:  manager,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := s.manager.SweepExpired(ctx, s.maxAge)
			if err != nil {
				s.logger.Error().Err(err).Msg("sweep failed")
				continue
			}
			if swept > 0 {
				s.logger.Info().Int("swept", swept).Msg("expired reservations cancelled")
			}
		}
	}
}
