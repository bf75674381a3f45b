package common

import "context"

// Log levels used across the engine.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// RunLogger provides logging functionality for simulation runs
type RunLogger interface {
	Log(level, message string, metadata map[string]any)
}

// Context keys for passing logger through context
type contextKey int

const (
	loggerKey contextKey = iota
)

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger RunLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext extracts the logger from context, or returns a no-op logger if not found
func LoggerFromContext(ctx context.Context) RunLogger {
	if logger, ok := ctx.Value(loggerKey).(RunLogger); ok {
		return logger
	}
	return &noOpLogger{}
}

// NoOpLogger returns a logger that discards everything.
func NoOpLogger() RunLogger {
	return &noOpLogger{}
}

// noOpLogger is a logger that does nothing (fallback when no logger in context)
type noOpLogger struct{}

func (l *noOpLogger) Log(level, message string, metadata map[string]any) {
	// Do nothing
}
