package queue

import (
	"errors"
	"log/slog"
	"time"

	"queue-systemv1/internal/model"
)

// semProtocol is the counting-slots strategy: empty tracks free storage
// units, full tracks occupied ones. The semaphores are synchronization
// primitives in their own right and are never touched under q.mu.
type semProtocol struct {
	empty *slotSem
	full  *slotSem
}

func (s *semProtocol) add(q *Queue, m model.Message) error {
	if err := s.empty.acquire(q.lc.Done(), 0); err != nil {
		return err
	}
	// Cancellation may have raced the acquire; give the slot back rather
	// than consume one meant for real work.
	if q.lc.Cancelled() {
		s.empty.release()
		return ErrCancelled
	}

	q.mu.Lock()
	q.push(m)
	q.mu.Unlock()

	s.full.release()
	return nil
}

func (s *semProtocol) remove(q *Queue) (model.Message, error) {
	if err := s.full.acquire(q.lc.Done(), 0); err != nil {
		return model.Message{}, err
	}
	if q.lc.Cancelled() {
		s.full.release()
		return model.Message{}, ErrCancelled
	}

	q.mu.Lock()
	m := q.pop()
	q.mu.Unlock()

	s.empty.release()
	return m, nil
}

func (s *semProtocol) resize(q *Queue, delta int) error {
	q.mu.Lock()
	oldCap := len(q.buf)
	newCap := clampCapacity(oldCap + delta)
	if newCap == oldCap {
		q.mu.Unlock()
		return nil
	}
	if newCap < q.count {
		q.mu.Unlock()
		return ErrShrinkBelowOccupancy
	}

	if newCap > oldCap {
		q.relocate(newCap)
		q.mu.Unlock()
		// Newly available slots become visible to blocked producers.
		for i := 0; i < newCap-oldCap; i++ {
			s.empty.release()
		}
		q.log.Info("queue grown", slog.Int("old", oldCap), slog.Int("new", newCap))
		return nil
	}

	// Shrinking: reclaim the emptiness of the removed slots before the
	// storage moves. This can only complete once producers can no longer
	// fill those logical slots, so it may block until consumers drain.
	// The storage lock is dropped here; holding it would deadlock against
	// the very consumers the reclaim is waiting on. resizeMu keeps the
	// capacity stable in the meantime.
	q.mu.Unlock()
	if err := s.reclaim(q, oldCap-newCap); err != nil {
		return err
	}

	// Semaphore accounting now guarantees count <= newCap: the reclaimed
	// permits plus any in-flight adds cannot exceed the new capacity.
	q.mu.Lock()
	q.relocate(newCap)
	q.mu.Unlock()
	q.log.Info("queue shrunk", slog.Int("old", oldCap), slog.Int("new", newCap))
	return nil
}

// reclaim acquires n empty slots, honoring cancellation and the configured
// shrink wait. On failure every slot already taken is released, leaving the
// queue unchanged.
func (s *semProtocol) reclaim(q *Queue, n int) error {
	var deadline time.Time
	if q.shrinkWait > 0 {
		deadline = time.Now().Add(q.shrinkWait)
	}

	for taken := 0; taken < n; taken++ {
		wait := time.Duration(0)
		if !deadline.IsZero() {
			wait = time.Until(deadline)
			if wait <= 0 {
				s.giveBack(taken)
				return ErrShrinkWaitTimeout
			}
		}
		if err := s.empty.acquire(q.lc.Done(), wait); err != nil {
			s.giveBack(taken)
			if errors.Is(err, errSlotWaitTimeout) {
				return ErrShrinkWaitTimeout
			}
			return err
		}
	}
	return nil
}

func (s *semProtocol) giveBack(n int) {
	for i := 0; i < n; i++ {
		s.empty.release()
	}
}

// unblock is a no-op: every semaphore acquire selects on the lifecycle's
// done channel, so cancellation already reaches all waiters at once.
func (s *semProtocol) unblock(*Queue) {}
