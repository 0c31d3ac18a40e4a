package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"queue-systemv1/internal/metrics"
	"queue-systemv1/internal/queue"
)

var (
	// ErrPoolLimit is returned when the configured worker cap is reached.
	ErrPoolLimit = errors.New("worker: pool limit reached")
	// ErrPoolEmpty is returned when there is no worker of that kind to stop.
	ErrPoolEmpty = errors.New("worker: no workers running")
)

// PoolConfig bounds the pool and sets the workers' delay ranges.
type PoolConfig struct {
	MaxProducers int
	MaxConsumers int

	ProducerDelayMin time.Duration
	ProducerDelayMax time.Duration
	ConsumerDelayMin time.Duration
	ConsumerDelayMax time.Duration
}

// Pool starts and stops producer and consumer workers on demand. Worker IDs
// are assigned from per-kind monotonic sequences; StopProducer/StopConsumer
// cancel the most recently started worker of that kind.
type Pool struct {
	queue   *queue.Queue
	log     *slog.Logger
	metrics *metrics.Metrics
	cfg     PoolConfig

	mu          sync.Mutex
	producers   []*runner
	consumers   []*runner
	producerSeq int
	consumerSeq int

	// Stopped workers that may still be finishing their last blocking call;
	// Shutdown waits for these too.
	draining []chan struct{}
}

type runner struct {
	id     int
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPool creates an empty pool bound to the queue.
func NewPool(q *queue.Queue, log *slog.Logger, m *metrics.Metrics, cfg PoolConfig) *Pool {
	if cfg.MaxProducers <= 0 {
		cfg.MaxProducers = 10
	}
	if cfg.MaxConsumers <= 0 {
		cfg.MaxConsumers = 10
	}
	return &Pool{queue: q, log: log, metrics: m, cfg: cfg}
}

// StartProducer launches a new producer. Returns its ID, or ErrPoolLimit.
func (p *Pool) StartProducer(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.producers) >= p.cfg.MaxProducers {
		return 0, ErrPoolLimit
	}
	p.producerSeq++
	id := p.producerSeq

	wctx, cancel := context.WithCancel(ctx)
	r := &runner{id: id, cancel: cancel, done: make(chan struct{})}
	p.producers = append(p.producers, r)

	prod := &Producer{
		ID:       id,
		Queue:    p.queue,
		Log:      p.log,
		Metrics:  p.metrics,
		DelayMin: p.cfg.ProducerDelayMin,
		DelayMax: p.cfg.ProducerDelayMax,
	}
	go func() {
		defer close(r.done)
		prod.Run(wctx)
	}()

	if p.metrics != nil {
		p.metrics.ActiveProducers.Set(float64(len(p.producers)))
	}
	return id, nil
}

// StartConsumer launches a new consumer. Returns its ID, or ErrPoolLimit.
func (p *Pool) StartConsumer(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.consumers) >= p.cfg.MaxConsumers {
		return 0, ErrPoolLimit
	}
	p.consumerSeq++
	id := p.consumerSeq

	wctx, cancel := context.WithCancel(ctx)
	r := &runner{id: id, cancel: cancel, done: make(chan struct{})}
	p.consumers = append(p.consumers, r)

	cons := &Consumer{
		ID:       id,
		Queue:    p.queue,
		Log:      p.log,
		Metrics:  p.metrics,
		DelayMin: p.cfg.ConsumerDelayMin,
		DelayMax: p.cfg.ConsumerDelayMax,
	}
	go func() {
		defer close(r.done)
		cons.Run(wctx)
	}()

	if p.metrics != nil {
		p.metrics.ActiveConsumers.Set(float64(len(p.consumers)))
	}
	return id, nil
}

// StopProducer cancels the most recently started producer and returns its
// ID. The worker exits at its next cancellation check; if it is blocked
// inside Add it finishes that call first.
func (p *Pool) StopProducer() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.producers)
	if n == 0 {
		return 0, ErrPoolEmpty
	}
	r := p.producers[n-1]
	p.producers = p.producers[:n-1]
	p.draining = append(p.draining, r.done)
	r.cancel()

	if p.metrics != nil {
		p.metrics.ActiveProducers.Set(float64(len(p.producers)))
	}
	return r.id, nil
}

// StopConsumer cancels the most recently started consumer and returns its ID.
func (p *Pool) StopConsumer() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.consumers)
	if n == 0 {
		return 0, ErrPoolEmpty
	}
	r := p.consumers[n-1]
	p.consumers = p.consumers[:n-1]
	p.draining = append(p.draining, r.done)
	r.cancel()

	if p.metrics != nil {
		p.metrics.ActiveConsumers.Set(float64(len(p.consumers)))
	}
	return r.id, nil
}

// Producers returns the number of running producers.
func (p *Pool) Producers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.producers)
}

// Consumers returns the number of running consumers.
func (p *Pool) Consumers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.consumers)
}

// Status is a point-in-time snapshot of the queue and the pool.
type Status struct {
	Mode         string    `json:"mode"`
	Capacity     int       `json:"capacity"`
	Occupancy    int       `json:"occupancy"`
	Free         int       `json:"free"`
	TotalAdded   uint64    `json:"total_added"`
	TotalRemoved uint64    `json:"total_removed"`
	Producers    int       `json:"producers"`
	Consumers    int       `json:"consumers"`
	TS           time.Time `json:"ts"`
}

// Status assembles a snapshot. The queue fields are read one at a time, so
// the snapshot is approximate under concurrent traffic.
func (p *Pool) Status() Status {
	capacity := p.queue.Capacity()
	occupancy := p.queue.Occupancy()
	free := capacity - occupancy
	if free < 0 {
		free = 0
	}
	return Status{
		Mode:         p.queue.Mode().String(),
		Capacity:     capacity,
		Occupancy:    occupancy,
		Free:         free,
		TotalAdded:   p.queue.TotalAdded(),
		TotalRemoved: p.queue.TotalRemoved(),
		Producers:    p.Producers(),
		Consumers:    p.Consumers(),
		TS:           time.Now().UTC(),
	}
}

// Shutdown cancels every worker and waits for all of them, including ones
// stopped earlier that are still draining. Callers must request lifecycle
// cancellation first so workers blocked inside Add/Remove are released.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	var done []chan struct{}
	for _, r := range p.producers {
		r.cancel()
		done = append(done, r.done)
	}
	for _, r := range p.consumers {
		r.cancel()
		done = append(done, r.done)
	}
	done = append(done, p.draining...)
	p.producers = nil
	p.consumers = nil
	p.draining = nil
	p.mu.Unlock()

	for _, ch := range done {
		<-ch
	}

	if p.metrics != nil {
		p.metrics.ActiveProducers.Set(0)
		p.metrics.ActiveConsumers.Set(0)
	}
	p.log.Info("all workers joined", slog.Int("count", len(done)))
}
