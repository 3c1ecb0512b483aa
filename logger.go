package hnswbench

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/hnswbench/model"
)

// Logger wraps slog.Logger with index-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithIndexID tags every record with the index instance id.
func (l *Logger) WithIndexID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("index_id", id),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, id model.NodeID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "insert completed",
		"id", uint32(id),
	)
}

// LogBatchInsert logs a batch insert operation.
func (l *Logger) LogBatchInsert(ctx context.Context, count int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch insert failed",
			"count", count,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "batch insert completed",
		"count", count,
		"elapsed", elapsed,
	)
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, ef, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"ef", ef,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"k", k,
		"ef", ef,
		"results", resultsFound,
	)
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, id model.NodeID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"id", uint32(id),
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "delete completed",
		"id", uint32(id),
	)
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(ctx context.Context, oldID, newID model.NodeID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed",
			"id", uint32(oldID),
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "update completed",
		"id", uint32(oldID),
		"new_id", uint32(newID),
	)
}
