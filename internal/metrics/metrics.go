package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"queue-systemv1/internal/queue"
)

// Metrics holds all Prometheus metrics for the queue daemon.
type Metrics struct {
	MessagesAdded      prometheus.Counter
	MessagesRemoved    prometheus.Counter
	ChecksumMismatches prometheus.Counter
	CancelledOps       prometheus.Counter

	// Resize outcomes (labels: direction=grow|shrink, outcome=ok|rejected|timeout|cancelled)
	ResizeTotal *prometheus.CounterVec

	QueueOccupancy  prometheus.Gauge
	QueueCapacity   prometheus.Gauge
	ActiveProducers prometheus.Gauge
	ActiveConsumers prometheus.Gauge

	// Time spent blocked inside Add / Remove
	AddBlockDur    prometheus.Histogram
	RemoveBlockDur prometheus.Histogram
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queued_messages_added_total",
			Help: "Total messages stored in the queue",
		}),
		MessagesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queued_messages_removed_total",
			Help: "Total messages taken from the queue",
		}),
		ChecksumMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queued_checksum_mismatches_total",
			Help: "Consumed messages whose checksum did not verify",
		}),
		CancelledOps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queued_cancelled_ops_total",
			Help: "Add/Remove calls aborted by cancellation",
		}),
		ResizeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queued_resize_total",
			Help: "Resize attempts by direction and outcome",
		}, []string{"direction", "outcome"}),
		QueueOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queued_queue_occupancy",
			Help: "Messages currently held in the queue",
		}),
		QueueCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queued_queue_capacity",
			Help: "Current queue capacity",
		}),
		ActiveProducers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queued_active_producers",
			Help: "Producer workers currently running",
		}),
		ActiveConsumers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queued_active_consumers",
			Help: "Consumer workers currently running",
		}),
		AddBlockDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queued_add_block_duration_seconds",
			Help:    "Time Add spent blocked waiting for a free slot",
			Buckets: prometheus.DefBuckets,
		}),
		RemoveBlockDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queued_remove_block_duration_seconds",
			Help:    "Time Remove spent blocked waiting for a message",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.MessagesAdded,
		m.MessagesRemoved,
		m.ChecksumMismatches,
		m.CancelledOps,
		m.ResizeTotal,
		m.QueueOccupancy,
		m.QueueCapacity,
		m.ActiveProducers,
		m.ActiveConsumers,
		m.AddBlockDur,
		m.RemoveBlockDur,
	)

	return m
}

// ObserveQueue refreshes the occupancy and capacity gauges from the queue.
func (m *Metrics) ObserveQueue(q *queue.Queue) {
	m.QueueOccupancy.Set(float64(q.Occupancy()))
	m.QueueCapacity.Set(float64(q.Capacity()))
}

// HealthStatus represents the daemon's health.
type HealthStatus struct {
	mu sync.RWMutex

	Mode      string    `json:"mode"`
	QueueOK   bool      `json:"queue_ok"`
	Producers int       `json:"producers"`
	Consumers int       `json:"consumers"`
	StartedAt time.Time `json:"started_at"`

	lastCheckAt time.Time
	queue       *queue.Queue
}

// WorkerCounter reports the number of running workers. Satisfied by the
// worker pool.
type WorkerCounter interface {
	Producers() int
	Consumers() int
}

// NewHealthStatus returns a health status bound to the queue.
func NewHealthStatus(q *queue.Queue) *HealthStatus {
	return &HealthStatus{
		Mode:      q.Mode().String(),
		QueueOK:   true,
		StartedAt: time.Now(),
		queue:     q,
	}
}

func (h *HealthStatus) SetWorkerCounts(producers, consumers int) {
	h.mu.Lock()
	h.Producers = producers
	h.Consumers = consumers
	h.lastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic worker-count refreshes and keeps the
// occupancy/capacity gauges current even when traffic is idle.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, pool WorkerCounter, m *Metrics, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.SetWorkerCounts(pool.Producers(), pool.Consumers())
				if m != nil {
					m.ObserveQueue(h.queue)
				}
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := struct {
		Status       string `json:"status"`
		Uptime       string `json:"uptime"`
		Mode         string `json:"mode"`
		Capacity     int    `json:"capacity"`
		Occupancy    int    `json:"occupancy"`
		TotalAdded   uint64 `json:"total_added"`
		TotalRemoved uint64 `json:"total_removed"`
		Producers    int    `json:"producers"`
		Consumers    int    `json:"consumers"`
		LastCheckAt  string `json:"last_check_at"`
	}{
		Status:       "healthy",
		Uptime:       time.Since(h.StartedAt).Round(time.Second).String(),
		Mode:         h.Mode,
		Capacity:     h.queue.Capacity(),
		Occupancy:    h.queue.Occupancy(),
		TotalAdded:   h.queue.TotalAdded(),
		TotalRemoved: h.queue.TotalRemoved(),
		Producers:    h.Producers,
		Consumers:    h.Consumers,
		LastCheckAt:  h.lastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
