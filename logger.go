package fallen8

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with engine-specific context.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithTransaction adds a transaction id field to the logger.
func (l *Logger) WithTransaction(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("transaction_id", id),
	}
}

// WithIndex adds an index name field to the logger.
func (l *Logger) WithIndex(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("index", name),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogTransaction logs a transaction that reached a terminal state.
func (l *Logger) LogTransaction(ctx context.Context, id, kind string, elapsed time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "transaction rolled back",
			"transaction_id", id,
			"kind", kind,
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "transaction finished",
			"transaction_id", id,
			"kind", kind,
			"elapsed", elapsed,
		)
	}
}

// LogScan logs a graph or index scan.
func (l *Logger) LogScan(ctx context.Context, kind string, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "scan failed",
			"scan", kind,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "scan completed",
			"scan", kind,
			"results", results,
		)
	}
}

// LogShortestPath logs a path search.
func (l *Logger) LogShortestPath(ctx context.Context, algorithm string, paths int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "shortest path failed",
			"algorithm", algorithm,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "shortest path completed",
			"algorithm", algorithm,
			"paths", paths,
		)
	}
}

// LogTrim logs a trim.
func (l *Logger) LogTrim(ctx context.Context, removed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "trim failed",
			"removed", removed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "trim completed",
			"removed", removed,
		)
	}
}

// LogSave logs a savegame write.
func (l *Logger) LogSave(ctx context.Context, name string, elements int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "savegame written",
			"name", name,
			"elements", elements,
		)
	}
}

// LogLoad logs a savegame read.
func (l *Logger) LogLoad(ctx context.Context, name string, elements int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "savegame loaded",
			"name", name,
			"elements", elements,
		)
	}
}
