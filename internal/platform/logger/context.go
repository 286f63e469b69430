package logger

import (
	"context"
	"log/slog"
)

// contextKey is an unexported type so context values set here cannot
// collide with keys from other packages.
type contextKey struct{}

var loggerKey contextKey

// WithLogger returns a new context carrying the given logger. Handlers and
// middleware attach request-scoped loggers (e.g. with a trace ID) so lower
// layers log with the same correlation attributes.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext retrieves the logger carried by the context, or the process
// default logger if the context has none.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger carried by the context, or the
// provided fallback if the context has none. Components pass their own
// component-scoped logger as the fallback.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
