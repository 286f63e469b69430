package middleware

import (
	"log/slog"
	"net/http"

	"github.com/recallhq/engram-api/internal/api/shared"
	"github.com/recallhq/engram-api/internal/platform/logger"
)

// TraceMiddleware assigns each request a trace ID and stores a logger
// scoped to that ID in the context. It runs before auth so even rejected
// requests log with a trace ID. Handlers pick the logger up through
// logger.FromContextOrDefault.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())

		log := logger.FromContextOrDefault(ctx, slog.Default()).
			With(slog.String("trace_id", shared.GetTraceID(ctx)))
		ctx = logger.WithLogger(ctx, log)

		log.Debug("request started",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
