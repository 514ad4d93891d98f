package scheduler

import (
	"context"
	"time"

	"dormdesk_backend/internal/notification/outbox"
	"dormdesk_backend/platform/config"
	"dormdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationOutboxDispatcher polls the outbox for due records and hands
// them to asynq. Claiming flips records to enqueued, so a crashed dispatcher
// leaves nothing double-delivered; enqueue failures put the record back.
type NotificationOutboxDispatcher struct {
	client *Client
	repo   *outbox.Repository
	log    *logger.Logger
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &NotificationOutboxDispatcher{
		client: client,
		repo:   outbox.New(pool),
		log:    log,
	}, nil
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		records, err := d.repo.ClaimPending(ctx, 50)
		if err != nil {
			d.log.Warn("outbox claim failed", "error", err)
			continue
		}
		if len(records) == 0 {
			continue
		}

		for _, rec := range records {
			err := d.client.EnqueueOutboxDue(ctx, NotificationOutboxDuePayload{
				OutboxID:       rec.ID.String(),
				OrganizationID: rec.OrganizationID.String(),
			}, rec.RunAt)
			if err != nil {
				msg := err.Error()
				_ = d.repo.MarkPending(ctx, rec.ID, &msg)
				continue
			}
		}
	}
}
