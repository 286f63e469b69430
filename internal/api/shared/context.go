package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// ContextKey is the type for values this package stores in a request context.
// A named type keeps our keys from colliding with other packages'.
type ContextKey string

const (
	// LearnerIDContextKey holds the authenticated learner's uuid.UUID.
	LearnerIDContextKey ContextKey = "learnerID"

	// TraceIDKey holds the per-request trace ID string.
	TraceIDKey ContextKey = "traceID"

	// traceIDBytes is the amount of randomness in a trace ID (32 hex chars).
	traceIDBytes = 16
)

// SetTraceID stamps a fresh trace ID onto the context. Error responses and
// log lines carry it so a failure can be matched to its request.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, newTraceID())
}

// GetTraceID returns the trace ID from the context, or "" if none was set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

func newTraceID() string {
	b := make([]byte, traceIDBytes)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; a UUID keeps
		// trace IDs unique enough to stay useful.
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}
