package jobs

import (
	"context"
	"time"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/queue"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/telemetry"
)

const dispatchBatchSize = 10

// Dispatcher moves committed outbox rows onto their queues. Unsendable rows
// retry forever: attempts only grow, there is no cutoff. That is a deliberate
// simplicity tradeoff for a low-volume internal queue.
type Dispatcher struct {
	log      *logger.Logger
	outbox   repos.OutboxRepo
	queue    queue.Client
	interval time.Duration
}

func NewDispatcher(baseLog *logger.Logger, outbox repos.OutboxRepo, qc queue.Client, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Dispatcher{
		log:      baseLog.With("component", "OutboxDispatcher"),
		outbox:   outbox,
		queue:    qc,
		interval: interval,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := d.RunOnce(ctx); err != nil {
					d.log.Warn("Outbox poll failed", "error", err)
				}
			}
		}
	}()
}

// RunOnce dispatches one batch and reports how many messages were sent.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	msgs, err := d.outbox.ListUnsent(ctx, nil, dispatchBatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, msg := range msgs {
		if err := d.queue.Push(ctx, msg.Queue, msg.Payload); err != nil {
			telemetry.OutboxSendErrors.Inc()
			d.log.Warn("Queue push failed, message stays eligible", "outbox_id", msg.ID, "queue", msg.Queue, "attempts", msg.Attempts, "error", err)
			if err := d.outbox.IncrementAttempts(ctx, nil, msg.ID); err != nil {
				d.log.Warn("Failed to bump outbox attempts", "outbox_id", msg.ID, "error", err)
			}
			continue
		}
		if err := d.outbox.MarkSent(ctx, nil, msg.ID); err != nil {
			// The push went out; worst case the next poll re-sends and the
			// claim protocol absorbs the duplicate.
			d.log.Warn("Failed to mark outbox message sent", "outbox_id", msg.ID, "error", err)
			continue
		}
		telemetry.OutboxDispatched.Inc()
		sent++
	}
	return sent, nil
}
