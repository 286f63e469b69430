package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/recallhq/engram-api/internal/api/shared"
	"github.com/recallhq/engram-api/internal/platform/logger"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	var seenTraceID string
	var seenLogger *slog.Logger
	handler := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTraceID = shared.GetTraceID(r.Context())
		seenLogger = logger.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/queue", nil))

	assert.Len(t, seenTraceID, 32, "handler must see a trace ID")
	assert.NotSame(t, slog.Default(), seenLogger,
		"handler must see the trace-scoped logger, not the process default")

	// A second request gets its own ID.
	first := seenTraceID
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/queue", nil))
	assert.NotEqual(t, first, seenTraceID)
}
