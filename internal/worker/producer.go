// Package worker implements the producer and consumer loops that exercise
// the shared queue, and a pool that starts and stops them dynamically.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"queue-systemv1/internal/logger"
	"queue-systemv1/internal/metrics"
	"queue-systemv1/internal/queue"
)

// Producer repeatedly builds a random checksummed message, adds it to the
// queue (blocking while full), and sleeps a random delay. It exits on
// cancellation or when its context is done.
type Producer struct {
	ID      int
	Queue   *queue.Queue
	Log     *slog.Logger
	Metrics *metrics.Metrics

	DelayMin time.Duration
	DelayMax time.Duration
}

// Run blocks until the producer stops. Intended to be run in its own
// goroutine.
func (p *Producer) Run(ctx context.Context) {
	log := p.Log.With(slog.String("worker", logger.WorkerName("producer", p.ID)))
	log.Info("started")
	defer log.Info("terminating")

	for ctx.Err() == nil {
		m := randomMessage()

		start := time.Now()
		if err := p.Queue.Add(m); err != nil {
			if errors.Is(err, queue.ErrCancelled) {
				if p.Metrics != nil {
					p.Metrics.CancelledOps.Inc()
				}
				return
			}
			log.Error("add failed", slog.String("err", err.Error()))
			return
		}

		if p.Metrics != nil {
			p.Metrics.AddBlockDur.Observe(time.Since(start).Seconds())
			p.Metrics.MessagesAdded.Inc()
			p.Metrics.ObserveQueue(p.Queue)
		}
		log.Debug("added message",
			slog.Int("type", int(m.Type)),
			slog.Int("size", m.Size()),
			slog.Int("checksum", int(m.Checksum)),
			slog.Uint64("total_added", p.Queue.TotalAdded()))

		if !sleep(ctx, randDelay(p.DelayMin, p.DelayMax)) {
			return
		}
	}
}
