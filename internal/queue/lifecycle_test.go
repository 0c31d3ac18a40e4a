package queue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLifecycle_RequestIsIdempotent(t *testing.T) {
	lc := NewLifecycle()
	if lc.Cancelled() {
		t.Fatal("fresh lifecycle should not be cancelled")
	}

	var fired atomic.Int32
	lc.onCancel(func() { fired.Add(1) })

	lc.RequestCancellation()
	lc.RequestCancellation()
	lc.RequestCancellation()

	if !lc.Cancelled() {
		t.Error("expected cancelled")
	}
	if got := fired.Load(); got != 1 {
		t.Errorf("hook fired %d times, want 1", got)
	}

	select {
	case <-lc.Done():
	default:
		t.Error("done channel should be closed")
	}
}

func TestLifecycle_HookAfterCancelRunsImmediately(t *testing.T) {
	lc := NewLifecycle()
	lc.RequestCancellation()

	ran := false
	lc.onCancel(func() { ran = true })
	if !ran {
		t.Error("hook registered after cancellation should run immediately")
	}
}

func TestLifecycle_ConcurrentRequests(t *testing.T) {
	lc := NewLifecycle()
	var fired atomic.Int32
	lc.onCancel(func() { fired.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lc.RequestCancellation()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent requests deadlocked")
	}

	if got := fired.Load(); got != 1 {
		t.Errorf("hook fired %d times, want 1", got)
	}
}
