// Package gateway exposes the queue daemon's control surface: a WebSocket
// status stream plus REST endpoints for starting/stopping workers and
// resizing the queue.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"queue-systemv1/internal/metrics"
	"queue-systemv1/internal/queue"
	"queue-systemv1/internal/worker"
)

// Hub manages WebSocket clients and periodic status fan-out. It is also the
// single entry point for control operations, shared by the HTTP handlers
// and the interactive command loop, so that metrics and logging happen in
// one place.
type Hub struct {
	Queue *queue.Queue
	Pool  *worker.Pool

	mu      sync.RWMutex
	clients map[*Client]bool

	metrics  *metrics.Metrics
	log      *slog.Logger
	interval time.Duration
}

// NewHub creates a hub broadcasting status every interval.
func NewHub(q *queue.Queue, pool *worker.Pool, m *metrics.Metrics, log *slog.Logger, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = time.Second
	}
	return &Hub{
		Queue:    q,
		Pool:     pool,
		clients:  make(map[*Client]bool),
		metrics:  m,
		log:      log,
		interval: interval,
	}
}

// Run broadcasts status snapshots to all connected clients until ctx is
// cancelled, then closes them.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			st := h.Status()
			payload, err := json.Marshal(map[string]interface{}{
				"channel": "status",
				"data":    st,
				"ts":      st.TS.Format(time.RFC3339Nano),
			})
			if err != nil {
				continue
			}
			h.broadcast(payload)
		}
	}
}

// Status returns the current queue and pool snapshot.
func (h *Hub) Status() worker.Status {
	return h.Pool.Status()
}

// Resize applies a capacity delta, recording the outcome.
func (h *Hub) Resize(delta int) error {
	direction := "grow"
	if delta < 0 {
		direction = "shrink"
	}

	err := h.Queue.Resize(delta)

	outcome := "ok"
	switch {
	case errors.Is(err, queue.ErrShrinkBelowOccupancy):
		outcome = "rejected"
	case errors.Is(err, queue.ErrShrinkWaitTimeout):
		outcome = "timeout"
	case errors.Is(err, queue.ErrCancelled):
		outcome = "cancelled"
	case err != nil:
		outcome = "error"
	}
	if h.metrics != nil {
		h.metrics.ResizeTotal.WithLabelValues(direction, outcome).Inc()
		h.metrics.ObserveQueue(h.Queue)
	}

	if err != nil {
		h.log.Warn("resize failed",
			slog.Int("delta", delta),
			slog.String("outcome", outcome))
	} else {
		h.log.Info("resize applied",
			slog.Int("delta", delta),
			slog.Int("capacity", h.Queue.Capacity()))
	}
	return err
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("ws client connected", slog.Int("clients", n))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("ws client disconnected", slog.Int("clients", n))
}

// broadcast queues a payload to every client; slow clients are dropped
// rather than allowed to stall the ticker.
func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	var stale []*Client
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.unregister(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
}
