// cmd/loadgen runs an in-process load scenario against the queue: a pool of
// producers and consumers hammering it for a fixed duration, with optional
// periodic resizes, then prints final stats and checks message conservation.
//
// Usage:
//
//	go run ./cmd/loadgen --mode=sem --capacity=10 --producers=4 --consumers=3 --duration=10s
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fastrand"

	"queue-systemv1/internal/logger"
	"queue-systemv1/internal/queue"
	"queue-systemv1/internal/worker"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	modeStr := flag.String("mode", "sem", "Synchronization mode: sem or cond")
	capacity := flag.Int("capacity", 10, "Initial queue capacity")
	producers := flag.Int("producers", 4, "Number of producers")
	consumers := flag.Int("consumers", 3, "Number of consumers")
	duration := flag.Duration("duration", 10*time.Second, "How long to run")
	resizeEvery := flag.Duration("resize-every", 0, "Apply a random resize at this interval (0=never)")
	flag.Parse()

	mode, err := queue.ParseMode(*modeStr)
	if err != nil {
		log.Fatalf("[loadgen] %v", err)
	}

	slogger := logger.Init("loadgen", slog.LevelWarn)

	lc := queue.NewLifecycle()
	q, err := queue.New(*capacity, mode, lc, queue.WithLogger(slogger))
	if err != nil {
		log.Fatalf("[loadgen] queue init failed: %v", err)
	}

	pool := worker.NewPool(q, slogger, nil, worker.PoolConfig{
		MaxProducers:     *producers,
		MaxConsumers:     *consumers,
		ProducerDelayMin: time.Millisecond,
		ProducerDelayMax: 10 * time.Millisecond,
		ConsumerDelayMin: time.Millisecond,
		ConsumerDelayMax: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for i := 0; i < *producers; i++ {
		if _, err := pool.StartProducer(ctx); err != nil {
			log.Fatalf("[loadgen] start producer: %v", err)
		}
	}
	for i := 0; i < *consumers; i++ {
		if _, err := pool.StartConsumer(ctx); err != nil {
			log.Fatalf("[loadgen] start consumer: %v", err)
		}
	}
	log.Printf("[loadgen] running: mode=%s capacity=%d producers=%d consumers=%d duration=%s",
		mode, q.Capacity(), *producers, *consumers, *duration)

	var resizeTicker *time.Ticker
	var resizeCh <-chan time.Time
	if *resizeEvery > 0 {
		resizeTicker = time.NewTicker(*resizeEvery)
		resizeCh = resizeTicker.C
		defer resizeTicker.Stop()
	}

	deadline := time.After(*duration)
	resizes, resizeErrs := 0, 0

loop:
	for {
		select {
		case <-deadline:
			break loop
		case sig := <-sigCh:
			log.Printf("[loadgen] %s received, stopping early", sig)
			break loop
		case <-resizeCh:
			// delta in [-3, 3], skewed away from zero
			delta := int(fastrand.Uint32n(7)) - 3
			if delta == 0 {
				delta = 1
			}
			resizes++
			if err := q.Resize(delta); err != nil {
				resizeErrs++
			}
		}
	}

	lc.RequestCancellation()
	pool.Shutdown()
	q.Close()

	added, removed, occ := q.TotalAdded(), q.TotalRemoved(), q.Occupancy()
	fmt.Printf("mode=%s duration=%s added=%d removed=%d occupancy=%d capacity=%d resizes=%d resize_errors=%d\n",
		mode, *duration, added, removed, occ, q.Capacity(), resizes, resizeErrs)
	fmt.Printf("throughput=%.1f msg/s\n", float64(removed)/duration.Seconds())

	if removed+uint64(occ) != added {
		fmt.Println("CONSERVATION VIOLATION: added != removed + occupancy")
		os.Exit(1)
	}
	fmt.Println("conservation check passed")
}
