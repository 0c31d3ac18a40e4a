// Package queue provides the bounded shared buffer at the heart of the
// system: fixed-capacity ring storage guarded by one of two interchangeable
// blocking protocols (counting slot semaphores or a monitor built from
// condition variables), with live capacity resizing and cooperative
// cancellation of every blocking wait.
package queue

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"queue-systemv1/internal/model"
)

// Capacity bounds. Resize and New clamp into this range.
const (
	MinCapacity     = 1
	MaxCapacity     = 100
	DefaultCapacity = 10
)

// Mode selects the synchronization protocol. Fixed at construction for the
// queue's lifetime.
type Mode int

const (
	// ModeSemaphore synchronizes with two counting semaphores tracking
	// empty and full slots.
	ModeSemaphore Mode = iota
	// ModeMonitor synchronizes with the queue mutex plus notFull/notEmpty
	// condition variables.
	ModeMonitor
)

// ParseMode parses "sem" or "cond".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "sem":
		return ModeSemaphore, nil
	case "cond":
		return ModeMonitor, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func (m Mode) String() string {
	switch m {
	case ModeSemaphore:
		return "sem"
	case ModeMonitor:
		return "cond"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// protocol is the synchronization strategy behind Add/Remove/Resize.
// Chosen once in New; dispatch happens only at the operation entry points.
type protocol interface {
	add(q *Queue, m model.Message) error
	remove(q *Queue) (model.Message, error)
	resize(q *Queue, delta int) error
	// unblock wakes every blocked waiter so it can observe cancellation.
	unblock(q *Queue)
}

// Queue is the bounded ring buffer shared by all producers and consumers.
// The mutex is the sole arbiter of storage, index, and counter mutation;
// semaphore counters live outside it by design.
type Queue struct {
	mu    sync.Mutex
	buf   []model.Message
	head  int
	tail  int
	count int

	totalAdded   uint64
	totalRemoved uint64

	// resizeMu serializes Resize calls; a semaphore-mode shrink must drop
	// the storage lock while it reclaims slots, and two interleaved
	// resizes would race on the capacity they computed.
	resizeMu sync.Mutex

	mode       Mode
	proto      protocol
	lc         *Lifecycle
	shrinkWait time.Duration
	log        *slog.Logger
}

// Option configures a Queue at construction.
type Option func(*Queue)

// WithShrinkWait bounds how long a semaphore-mode shrink may block waiting
// for consumers to free the removed slots. Zero (the default) means wait
// until cancellation.
func WithShrinkWait(d time.Duration) Option {
	return func(q *Queue) { q.shrinkWait = d }
}

// WithLogger sets the queue's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// New creates a queue with the given initial capacity (clamped into
// [MinCapacity, MaxCapacity]) and synchronization mode. The lifecycle is
// shared with the rest of the process; cancelling it unblocks every
// blocked operation on this queue.
func New(capacity int, mode Mode, lc *Lifecycle, opts ...Option) (*Queue, error) {
	if lc == nil {
		return nil, fmt.Errorf("queue: nil lifecycle")
	}
	capacity = clampCapacity(capacity)

	q := &Queue{
		buf:  make([]model.Message, capacity),
		mode: mode,
		lc:   lc,
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(q)
	}

	switch mode {
	case ModeSemaphore:
		q.proto = &semProtocol{
			empty: newSlotSem(capacity),
			full:  newSlotSem(0),
		}
	case ModeMonitor:
		q.proto = &monitorProtocol{
			notFull:  sync.NewCond(&q.mu),
			notEmpty: sync.NewCond(&q.mu),
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}

	lc.onCancel(func() { q.proto.unblock(q) })

	q.log.Info("queue created", slog.Int("capacity", capacity), slog.String("mode", mode.String()))
	return q, nil
}

// Add stores a message, blocking while the queue is full. Returns
// ErrCancelled if cancellation is requested before the message is stored.
func (q *Queue) Add(m model.Message) error {
	return q.proto.add(q, m)
}

// Remove takes the least-recently added message, blocking while the queue
// is empty. Returns ErrCancelled if cancellation is requested first.
func (q *Queue) Remove() (model.Message, error) {
	return q.proto.remove(q)
}

// Resize changes capacity by delta, clamped into [MinCapacity, MaxCapacity].
// Growing is immediate; a semaphore-mode shrink may block until consumers
// free the removed slots. Live messages are never dropped: a shrink below
// the current occupancy fails with ErrShrinkBelowOccupancy.
func (q *Queue) Resize(delta int) error {
	if delta == 0 {
		return nil
	}
	q.resizeMu.Lock()
	defer q.resizeMu.Unlock()
	return q.proto.resize(q, delta)
}

// Close releases the queue. The caller must guarantee that no Add, Remove,
// or Resize call is still in flight; the shutdown sequence is cancel, join
// all workers, then Close.
func (q *Queue) Close() {
	q.mu.Lock()
	added, removed := q.totalAdded, q.totalRemoved
	q.mu.Unlock()
	q.log.Info("queue closed",
		slog.Uint64("total_added", added),
		slog.Uint64("total_removed", removed))
}

// Mode returns the synchronization mode fixed at construction.
func (q *Queue) Mode() Mode {
	return q.mode
}

// Occupancy returns the number of live messages.
func (q *Queue) Occupancy() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Capacity returns the current capacity.
func (q *Queue) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// TotalAdded returns the cumulative count of successful Adds.
func (q *Queue) TotalAdded() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.totalAdded
}

// TotalRemoved returns the cumulative count of successful Removes.
func (q *Queue) TotalRemoved() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.totalRemoved
}

// push writes at tail and advances it. Caller holds q.mu.
func (q *Queue) push(m model.Message) {
	q.buf[q.tail] = m
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	q.totalAdded++
}

// pop reads at head and advances it. Caller holds q.mu.
func (q *Queue) pop() model.Message {
	m := q.buf[q.head]
	q.buf[q.head] = model.Message{} // release the payload backing array
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.totalRemoved++
	return m
}

// relocate linearizes the live messages into a fresh array of newCap,
// starting at index 0. Caller holds q.mu and has verified count <= newCap.
// tail == head means both "empty" and "full"; count disambiguates.
func (q *Queue) relocate(newCap int) {
	fresh := make([]model.Message, newCap)
	for i := 0; i < q.count; i++ {
		fresh[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = fresh
	q.head = 0
	q.tail = q.count % newCap
}

func clampCapacity(n int) int {
	if n < MinCapacity {
		return MinCapacity
	}
	if n > MaxCapacity {
		return MaxCapacity
	}
	return n
}
