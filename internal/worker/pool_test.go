package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"queue-systemv1/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig(maxP, maxC int) PoolConfig {
	return PoolConfig{
		MaxProducers:     maxP,
		MaxConsumers:     maxC,
		ProducerDelayMin: time.Millisecond,
		ProducerDelayMax: 2 * time.Millisecond,
		ConsumerDelayMin: time.Millisecond,
		ConsumerDelayMax: 2 * time.Millisecond,
	}
}

func newTestPool(t *testing.T, capacity int, cfg PoolConfig) (*Pool, *queue.Lifecycle) {
	t.Helper()
	lc := queue.NewLifecycle()
	q, err := queue.New(capacity, queue.ModeSemaphore, lc, queue.WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	return NewPool(q, testLogger(), nil, cfg), lc
}

func TestPool_StartStopCounts(t *testing.T) {
	pool, lc := newTestPool(t, 4, fastConfig(5, 5))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := pool.StartProducer(ctx); err != nil {
			t.Fatalf("start producer %d: %v", i, err)
		}
	}
	if _, err := pool.StartConsumer(ctx); err != nil {
		t.Fatal(err)
	}
	if got := pool.Producers(); got != 3 {
		t.Errorf("producers = %d, want 3", got)
	}
	if got := pool.Consumers(); got != 1 {
		t.Errorf("consumers = %d, want 1", got)
	}

	if id, err := pool.StopProducer(); err != nil || id != 3 {
		t.Errorf("StopProducer = %d, %v; want 3, nil", id, err)
	}
	if got := pool.Producers(); got != 2 {
		t.Errorf("producers = %d after stop, want 2", got)
	}

	lc.RequestCancellation()
	pool.Shutdown()
}

func TestPool_StopOnEmpty(t *testing.T) {
	pool, _ := newTestPool(t, 4, fastConfig(2, 2))

	if _, err := pool.StopProducer(); !errors.Is(err, ErrPoolEmpty) {
		t.Errorf("StopProducer on empty pool = %v, want ErrPoolEmpty", err)
	}
	if _, err := pool.StopConsumer(); !errors.Is(err, ErrPoolEmpty) {
		t.Errorf("StopConsumer on empty pool = %v, want ErrPoolEmpty", err)
	}
}

func TestPool_Limits(t *testing.T) {
	pool, lc := newTestPool(t, 4, fastConfig(2, 1))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := pool.StartProducer(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := pool.StartProducer(ctx); !errors.Is(err, ErrPoolLimit) {
		t.Errorf("expected ErrPoolLimit, got %v", err)
	}

	if _, err := pool.StartConsumer(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.StartConsumer(ctx); !errors.Is(err, ErrPoolLimit) {
		t.Errorf("expected ErrPoolLimit, got %v", err)
	}

	lc.RequestCancellation()
	pool.Shutdown()
}

func TestPool_WorkersMoveMessages(t *testing.T) {
	pool, lc := newTestPool(t, 4, fastConfig(4, 4))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := pool.StartProducer(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := pool.StartConsumer(ctx); err != nil {
			t.Fatal(err)
		}
	}

	// Traffic must flow: wait for a couple dozen removals.
	deadline := time.After(10 * time.Second)
	for pool.queue.TotalRemoved() < 25 {
		select {
		case <-deadline:
			t.Fatalf("only %d messages moved", pool.queue.TotalRemoved())
		case <-time.After(5 * time.Millisecond):
		}
	}

	lc.RequestCancellation()
	pool.Shutdown()

	st := pool.Status()
	if st.TotalAdded-st.TotalRemoved != uint64(st.Occupancy) {
		t.Errorf("conservation violated: %+v", st)
	}
	if st.Occupancy > st.Capacity {
		t.Errorf("occupancy %d exceeds capacity %d", st.Occupancy, st.Capacity)
	}
	if st.Producers != 0 || st.Consumers != 0 {
		t.Errorf("workers still counted after shutdown: %+v", st)
	}
}

func TestPool_ShutdownReleasesBlockedWorkers(t *testing.T) {
	// Capacity 1 with producers only: most producers end up blocked in Add.
	pool, lc := newTestPool(t, 1, fastConfig(5, 5))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := pool.StartProducer(ctx); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(50 * time.Millisecond)

	lc.RequestCancellation()
	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown did not join blocked workers")
	}
}

func TestRandomMessage(t *testing.T) {
	for i := 0; i < 100; i++ {
		m := randomMessage()
		if !m.Verify() {
			t.Fatalf("random message %d does not verify", i)
		}
	}
}

func TestRandDelay_Bounds(t *testing.T) {
	min, max := 10*time.Millisecond, 20*time.Millisecond
	for i := 0; i < 100; i++ {
		d := randDelay(min, max)
		if d < min || d > max {
			t.Fatalf("delay %v outside [%v, %v]", d, min, max)
		}
	}
	if d := randDelay(max, min); d != max {
		t.Errorf("inverted range: got %v, want %v", d, max)
	}
}
