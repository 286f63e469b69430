package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWithLoggerAndFromContext(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		log := testLogger()
		ctx := WithLogger(context.Background(), log)
		assert.Same(t, log, FromContext(ctx))
	})

	t.Run("empty context yields the default logger", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("nil context yields the default logger", func(t *testing.T) {
		t.Parallel()
		//nolint:staticcheck // deliberately exercising the nil-context guard
		assert.Equal(t, slog.Default(), FromContext(nil))
	})
}

func TestFromContextOrDefault(t *testing.T) {
	t.Parallel()

	t.Run("context logger wins over the fallback", func(t *testing.T) {
		t.Parallel()
		carried := testLogger()
		fallback := testLogger()
		ctx := WithLogger(context.Background(), carried)
		assert.Same(t, carried, FromContextOrDefault(ctx, fallback))
	})

	t.Run("fallback used when context carries none", func(t *testing.T) {
		t.Parallel()
		fallback := testLogger()
		assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))
	})

	t.Run("nil fallback and empty context yield the default", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Default(), FromContextOrDefault(context.Background(), nil))
	})
}
