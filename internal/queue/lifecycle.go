package queue

import (
	"sync"
	"sync/atomic"
)

// Lifecycle is the process-wide cancellation signal. It is set once by the
// first RequestCancellation call and never cleared. Every blocking wait in
// the queue observes it as an exit condition, so a single request eventually
// unblocks all workers without per-goroutine wakes.
type Lifecycle struct {
	once sync.Once
	flag atomic.Bool
	done chan struct{}

	mu    sync.Mutex
	hooks []func()
}

// NewLifecycle returns a fresh, uncancelled lifecycle.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{done: make(chan struct{})}
}

// RequestCancellation sets the cancellation signal. Idempotent; the first
// call closes the done channel and runs all registered unblock hooks.
func (l *Lifecycle) RequestCancellation() {
	l.once.Do(func() {
		l.flag.Store(true)
		close(l.done)

		l.mu.Lock()
		hooks := l.hooks
		l.hooks = nil
		l.mu.Unlock()
		for _, h := range hooks {
			h()
		}
	})
}

// Cancelled reports whether cancellation has been requested.
func (l *Lifecycle) Cancelled() bool {
	return l.flag.Load()
}

// Done returns a channel closed when cancellation is requested.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// onCancel registers f to run when cancellation is requested. If the
// lifecycle is already cancelled, f runs immediately.
func (l *Lifecycle) onCancel(f func()) {
	l.mu.Lock()
	if l.flag.Load() {
		l.mu.Unlock()
		f()
		return
	}
	l.hooks = append(l.hooks, f)
	l.mu.Unlock()
}
