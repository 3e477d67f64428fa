package tuplex

import (
	"context"
	"log/slog"
	"os"

	"github.com/soumenms2015/tuplex/types"
)

// Logger wraps slog.Logger with tuplex-specific context.
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

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogInference logs the outcome of schema inference.
func (l *Logger) LogInference(ctx context.Context, typ types.Type, sampled int) {
	l.InfoContext(ctx, "inferred default type",
		"type", typ.String(),
		"sampled", sampled,
	)
}

// LogParallelize logs a completed conversion.
func (l *Logger) LogParallelize(ctx context.Context, typ types.Type, rows uint64, exceptions int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "parallelize failed",
			"type", typ.String(),
			"error", err,
		)
		return
	}
	if exceptions > 0 {
		l.WarnContext(ctx, "found rows not complying with inferred type, ignoring for now",
			"type", typ.String(),
			"rows", rows,
			"exceptions", exceptions,
		)
		return
	}
	l.DebugContext(ctx, "parallelize completed",
		"type", typ.String(),
		"rows", rows,
	)
}
