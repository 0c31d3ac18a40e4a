package queue

import (
	"log/slog"
	"sync"

	"queue-systemv1/internal/model"
)

// monitorProtocol is the monitor strategy: the queue mutex plus two
// condition variables. Waits re-check their predicate in a loop; a wake
// is a hint, not a guarantee.
type monitorProtocol struct {
	notFull  *sync.Cond
	notEmpty *sync.Cond
}

func (s *monitorProtocol) add(q *Queue, m model.Message) error {
	q.mu.Lock()
	for q.count == len(q.buf) && !q.lc.Cancelled() {
		s.notFull.Wait()
	}
	if q.lc.Cancelled() {
		q.mu.Unlock()
		return ErrCancelled
	}

	q.push(m)
	s.notEmpty.Signal()
	q.mu.Unlock()
	return nil
}

func (s *monitorProtocol) remove(q *Queue) (model.Message, error) {
	q.mu.Lock()
	for q.count == 0 && !q.lc.Cancelled() {
		s.notEmpty.Wait()
	}
	if q.lc.Cancelled() {
		q.mu.Unlock()
		return model.Message{}, ErrCancelled
	}

	m := q.pop()
	s.notFull.Signal()
	q.mu.Unlock()
	return m, nil
}

func (s *monitorProtocol) resize(q *Queue, delta int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	oldCap := len(q.buf)
	newCap := clampCapacity(oldCap + delta)
	if newCap == oldCap {
		return nil
	}
	if newCap < q.count {
		return ErrShrinkBelowOccupancy
	}

	q.relocate(newCap)

	// No counters to reconcile; wake everyone so blocked workers
	// re-evaluate their predicates against the new capacity.
	s.notFull.Broadcast()
	s.notEmpty.Broadcast()

	q.log.Info("queue resized", slog.Int("old", oldCap), slog.Int("new", newCap))
	return nil
}

// unblock wakes every waiter on both conditions so each can observe the
// cancellation flag and return. Called once, from the lifecycle hook.
func (s *monitorProtocol) unblock(q *Queue) {
	q.mu.Lock()
	s.notFull.Broadcast()
	s.notEmpty.Broadcast()
	q.mu.Unlock()
}
