// Package logger configures the process-wide slog JSON logger and carries
// request-scoped loggers through context, so trace attributes attached by
// middleware follow the request into the services.
package logger
