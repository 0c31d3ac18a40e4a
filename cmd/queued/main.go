package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"queue-systemv1/config"
	"queue-systemv1/internal/gateway"
	"queue-systemv1/internal/logger"
	"queue-systemv1/internal/metrics"
	"queue-systemv1/internal/queue"
	"queue-systemv1/internal/worker"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[queued] starting...")

	modeFlag := flag.String("m", "", "synchronization mode: sem or cond (overrides QUEUE_STRATEGY)")
	flag.Parse()

	// ---- Load config from env ----
	cfg := config.Load()
	if *modeFlag != "" {
		cfg.SyncMode = *modeFlag
	}

	slogger := logger.Init("queued", slog.LevelInfo)

	mode, err := queue.ParseMode(cfg.SyncMode)
	if err != nil {
		log.Fatalf("[queued] %v", err)
	}

	// ---- Build the queue ----
	lc := queue.NewLifecycle()
	q, err := queue.New(cfg.InitialCapacity, mode, lc,
		queue.WithShrinkWait(cfg.ShrinkWait),
		queue.WithLogger(slogger),
	)
	if err != nil {
		log.Fatalf("[queued] queue init failed: %v", err)
	}
	slogger.Info("queue ready", "mode", mode.String(), "capacity", q.Capacity())

	// ---- Setup metrics & health ----
	prom := metrics.NewMetrics()
	prom.ObserveQueue(q)
	health := metrics.NewHealthStatus(q)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Worker pool ----
	pool := worker.NewPool(q, slogger, prom, worker.PoolConfig{
		MaxProducers:     cfg.MaxProducers,
		MaxConsumers:     cfg.MaxConsumers,
		ProducerDelayMin: cfg.ProducerDelayMin,
		ProducerDelayMax: cfg.ProducerDelayMax,
		ConsumerDelayMin: cfg.ConsumerDelayMin,
		ConsumerDelayMax: cfg.ConsumerDelayMax,
	})
	health.StartLivenessChecker(ctx, pool, prom, 10*time.Second)

	// ---- Control gateway: WebSocket status stream + REST endpoints ----
	hub := gateway.NewHub(q, pool, prom, slogger, cfg.StatusInterval)
	mux := http.NewServeMux()
	hub.RegisterRoutes(ctx, mux)
	go hub.Run(ctx)

	gwSrv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}
	go func() {
		slogger.Info("gateway listening", "addr", cfg.GatewayAddr)
		if err := gwSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[queued] gateway server failed: %v", err)
		}
	}()

	// ---- Interactive command loop ----
	cmdCh := make(chan string, 1)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			cmdCh <- sc.Text()
		}
		close(cmdCh)
	}()

	printUsage()

	running := true
	for running {
		select {
		case sig := <-sigCh:
			slogger.Info("signal received, shutting down", "signal", sig.String())
			running = false
		case line, ok := <-cmdCh:
			if !ok {
				// stdin closed; keep serving until a signal arrives
				cmdCh = nil
				continue
			}
			if quit := runCommand(ctx, hub, cfg.ResizeStep, line); quit {
				running = false
			}
		}
	}

	// ---- Graceful shutdown: wake blocked workers, then drain ----
	lc.RequestCancellation()
	pool.Shutdown()
	q.Close()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	gwSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	log.Println("[queued] stopped")
}

func runCommand(ctx context.Context, hub *gateway.Hub, step int, line string) (quit bool) {
	if len(line) == 0 {
		return false
	}
	switch line[0] {
	case 'p':
		id, err := hub.Pool.StartProducer(ctx)
		report(err, "started producer %d", id)
	case 'c':
		id, err := hub.Pool.StartConsumer(ctx)
		report(err, "started consumer %d", id)
	case 'P':
		id, err := hub.Pool.StopProducer()
		report(err, "stopped producer %d", id)
	case 'C':
		id, err := hub.Pool.StopConsumer()
		report(err, "stopped consumer %d", id)
	case '+':
		err := hub.Resize(step)
		report(err, "grew queue to %d slots", hub.Queue.Capacity())
	case '-':
		err := hub.Resize(-step)
		report(err, "shrank queue to %d slots", hub.Queue.Capacity())
	case 's':
		st := hub.Status()
		fmt.Printf("mode=%s capacity=%d occupancy=%d free=%d added=%d removed=%d producers=%d consumers=%d\n",
			st.Mode, st.Capacity, st.Occupancy, st.Free,
			st.TotalAdded, st.TotalRemoved, st.Producers, st.Consumers)
	case 'q':
		return true
	case 'h', '?':
		printUsage()
	default:
		fmt.Printf("unknown command %q (h for help)\n", line)
	}
	return false
}

func report(err error, format string, args ...any) {
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf(format+"\n", args...)
}

func printUsage() {
	fmt.Println(`commands:
  p   start a producer        c   start a consumer
  P   stop newest producer    C   stop newest consumer
  +   grow the queue          -   shrink the queue
  s   print status            q   quit`)
}
