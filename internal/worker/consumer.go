package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"queue-systemv1/internal/logger"
	"queue-systemv1/internal/metrics"
	"queue-systemv1/internal/model"
	"queue-systemv1/internal/queue"
)

// Consumer repeatedly removes a message from the queue (blocking while
// empty), independently recomputes its checksum, and sleeps a random delay.
// A mismatch is a data-integrity warning, not a fatal error.
type Consumer struct {
	ID      int
	Queue   *queue.Queue
	Log     *slog.Logger
	Metrics *metrics.Metrics

	DelayMin time.Duration
	DelayMax time.Duration
}

// Run blocks until the consumer stops. Intended to be run in its own
// goroutine.
func (c *Consumer) Run(ctx context.Context) {
	log := c.Log.With(slog.String("worker", logger.WorkerName("consumer", c.ID)))
	log.Info("started")
	defer log.Info("terminating")

	for ctx.Err() == nil {
		start := time.Now()
		m, err := c.Queue.Remove()
		if err != nil {
			if errors.Is(err, queue.ErrCancelled) {
				if c.Metrics != nil {
					c.Metrics.CancelledOps.Inc()
				}
				return
			}
			log.Error("remove failed", slog.String("err", err.Error()))
			return
		}

		if c.Metrics != nil {
			c.Metrics.RemoveBlockDur.Observe(time.Since(start).Seconds())
			c.Metrics.MessagesRemoved.Inc()
			c.Metrics.ObserveQueue(c.Queue)
		}

		if !m.Verify() {
			log.Warn("checksum mismatch",
				slog.Int("expected", int(m.Checksum)),
				slog.Int("calculated", int(model.Sum(m))),
				slog.Int("type", int(m.Type)),
				slog.Int("size", m.Size()))
			if c.Metrics != nil {
				c.Metrics.ChecksumMismatches.Inc()
			}
		} else {
			log.Debug("extracted message",
				slog.Int("type", int(m.Type)),
				slog.Int("size", m.Size()),
				slog.Int("checksum", int(m.Checksum)),
				slog.Uint64("total_removed", c.Queue.TotalRemoved()))
		}

		if !sleep(ctx, randDelay(c.DelayMin, c.DelayMax)) {
			return
		}
	}
}
