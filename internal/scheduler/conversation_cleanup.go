package scheduler

import (
	"context"
	"time"

	triagerepo "dormdesk_backend/internal/triage/repository"
	"dormdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultConversationCleanupInterval = time.Hour
	defaultStaleConversationRetention  = 7 * 24 * time.Hour
)

// ConversationCleanup periodically removes abandoned triage conversations
// that never materialized into a case. Completed conversations are kept.
type ConversationCleanup struct {
	repo      *triagerepo.Repository
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
}

func NewConversationCleanup(pool *pgxpool.Pool, log *logger.Logger, interval, retention time.Duration) *ConversationCleanup {
	if interval <= 0 {
		interval = defaultConversationCleanupInterval
	}
	if retention <= 0 {
		retention = defaultStaleConversationRetention
	}

	return &ConversationCleanup{
		repo:      triagerepo.New(pool),
		log:       log,
		interval:  interval,
		retention: retention,
	}
}

func (c *ConversationCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *ConversationCleanup) cleanup(ctx context.Context) {
	deleted, err := c.repo.DeleteStaleBefore(ctx, time.Now().UTC().Add(-c.retention))
	if err != nil {
		c.log.Warn("stale conversation cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("stale conversation cleanup deleted abandoned conversations", "deleted", deleted)
	}
}
