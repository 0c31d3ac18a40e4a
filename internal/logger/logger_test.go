package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWorker_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No worker set
	if w := Worker(ctx); w != "" {
		t.Errorf("expected empty worker, got %q", w)
	}

	// Set and retrieve
	ctx = WithWorker(ctx, "producer", 3)
	if w := Worker(ctx); w != "producer-3" {
		t.Errorf("expected 'producer-3', got %q", w)
	}
}

func TestWorkerName(t *testing.T) {
	if got := WorkerName("consumer", 12); got != "consumer-12" {
		t.Errorf("WorkerName = %q, want 'consumer-12'", got)
	}
}

func TestLogWithWorker(t *testing.T) {
	ctx := context.Background()

	// No worker identity
	attrs := LogWithWorker(ctx)
	if attrs != nil {
		t.Errorf("expected nil attrs when no worker set, got %v", attrs)
	}

	// With worker identity — returns [slog.Attr] which is a single element
	ctx = WithWorker(ctx, "consumer", 1)
	attrs = LogWithWorker(ctx)
	if len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with worker set")
	}
}
