package scheduler

import (
	"context"
	"time"

	schedulingrepo "dormdesk_backend/internal/scheduling/repository"
	"dormdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultHoldExpiryInterval = 5 * time.Minute
	defaultHoldMaxAge         = 30 * time.Minute
)

// HoldExpirySweep periodically releases appointment holds that were never
// confirmed, so the optimizer sees those contractor windows as free again.
type HoldExpirySweep struct {
	repo     *schedulingrepo.Repository
	log      *logger.Logger
	interval time.Duration
	maxAge   time.Duration
}

func NewHoldExpirySweep(pool *pgxpool.Pool, log *logger.Logger, interval, maxAge time.Duration) *HoldExpirySweep {
	if interval <= 0 {
		interval = defaultHoldExpiryInterval
	}
	if maxAge <= 0 {
		maxAge = defaultHoldMaxAge
	}

	return &HoldExpirySweep{
		repo:     schedulingrepo.New(pool),
		log:      log,
		interval: interval,
		maxAge:   maxAge,
	}
}

func (s *HoldExpirySweep) Run(ctx context.Context) {
	if s == nil || s.repo == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *HoldExpirySweep) sweep(ctx context.Context) {
	expired, err := s.repo.ExpireHolds(ctx, time.Now().UTC().Add(-s.maxAge))
	if err != nil {
		s.log.Warn("hold expiry sweep failed", "error", err)
		return
	}

	if expired > 0 {
		s.log.Info("hold expiry sweep released stale holds", "expired", expired)
	}
}
