// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and propagates
// worker identity through context.Context.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

type ctxKey string

const workerKey ctxKey = "worker"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// WithWorker stores a worker identity in the context for downstream logging.
func WithWorker(ctx context.Context, role string, id int) context.Context {
	return context.WithValue(ctx, workerKey, WorkerName(role, id))
}

// Worker extracts the worker identity from context. Returns "" if not set.
func Worker(ctx context.Context) string {
	if v, ok := ctx.Value(workerKey).(string); ok {
		return v
	}
	return ""
}

// WorkerName formats a worker identity from its role and numeric ID.
// Format: "{role}-{id}".
func WorkerName(role string, id int) string {
	return fmt.Sprintf("%s-%d", role, id)
}

// LogWithWorker returns slog attributes including the worker identity from
// context. Usage: slog.Info("msg", logger.LogWithWorker(ctx)...)
func LogWithWorker(ctx context.Context) []any {
	w := Worker(ctx)
	if w == "" {
		return nil
	}
	return []any{slog.String("worker", w)}
}
