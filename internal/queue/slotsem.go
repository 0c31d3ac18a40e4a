package queue

import (
	"container/list"
	"sync"
	"time"
)

// slotSem is a counting semaphore over queue slots: blocking acquire,
// non-blocking release, no fixed ceiling (resize moves the slot budget up
// and down at runtime). Releases hand slots directly to the oldest waiter,
// the same waiter-queue design golang.org/x/sync/semaphore uses internally;
// that library itself cannot serve here because its size is fixed at
// construction and it panics when released past that size.
type slotSem struct {
	mu      sync.Mutex
	free    int
	waiters list.List // of chan struct{}
}

func newSlotSem(n int) *slotSem {
	return &slotSem{free: n}
}

// acquire takes one slot, blocking until one is available, cancel fires, or
// the wait elapses (wait <= 0 means no deadline). Returns ErrCancelled or
// errSlotWaitTimeout without consuming a slot.
func (s *slotSem) acquire(cancel <-chan struct{}, wait time.Duration) error {
	s.mu.Lock()
	if s.free > 0 && s.waiters.Len() == 0 {
		s.free--
		s.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	elem := s.waiters.PushBack(ready)
	s.mu.Unlock()

	var timeout <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ready:
		return nil
	case <-cancel:
		return s.abandon(elem, ready, ErrCancelled)
	case <-timeout:
		return s.abandon(elem, ready, errSlotWaitTimeout)
	}
}

// abandon withdraws a waiter that gave up. If a release handed it the slot
// in the meantime, the slot is passed on rather than lost.
func (s *slotSem) abandon(elem *list.Element, ready chan struct{}, err error) error {
	s.mu.Lock()
	select {
	case <-ready:
		s.mu.Unlock()
		s.release()
		return err
	default:
	}
	s.waiters.Remove(elem)
	s.mu.Unlock()
	return err
}

// release returns one slot, waking the oldest waiter if any. Never blocks.
func (s *slotSem) release() {
	s.mu.Lock()
	if f := s.waiters.Front(); f != nil {
		s.waiters.Remove(f)
		s.mu.Unlock()
		close(f.Value.(chan struct{}))
		return
	}
	s.free++
	s.mu.Unlock()
}

// value returns the number of immediately available slots. Informational
// only; the count can change before the caller acts on it.
func (s *slotSem) value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.free
}
