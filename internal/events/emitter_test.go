package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmitter() *InMemoryEventEmitter {
	return NewInMemoryEventEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEmitEvent_NoHandlers(t *testing.T) {
	t.Parallel()

	emitter := newTestEmitter()
	event, err := NewTaskRequestEvent("cache_rebuild", map[string]string{"learner_id": "x"})
	require.NoError(t, err)

	// Nothing to deliver to, but not a failure.
	assert.NoError(t, emitter.EmitEvent(context.Background(), event))
}

func TestEmitEvent_DeliversToAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := newTestEmitter()
	first := &recordingHandler{}
	second := &recordingHandler{}
	emitter.RegisterHandler(first)
	emitter.RegisterHandler(second)

	event, err := NewTaskRequestEvent("parameter_optimization", map[string]string{"learner_id": "x"})
	require.NoError(t, err)
	require.NoError(t, emitter.EmitEvent(context.Background(), event))

	require.Len(t, first.received, 1)
	require.Len(t, second.received, 1)
	assert.Equal(t, event.ID, first.received[0].ID)
	assert.Equal(t, event.ID, second.received[0].ID)
}

func TestEmitEvent_FailingHandlerDoesNotStopDelivery(t *testing.T) {
	t.Parallel()

	emitter := newTestEmitter()
	failed := errors.New("queue full")
	failing := &recordingHandler{err: failed}
	healthy := &recordingHandler{}
	emitter.RegisterHandler(failing)
	emitter.RegisterHandler(healthy)

	event, err := NewTaskRequestEvent("cache_rebuild", map[string]string{"learner_id": "x"})
	require.NoError(t, err)

	err = emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, failed)

	// The healthy handler still got the event.
	assert.Len(t, healthy.received, 1)
	assert.Len(t, failing.received, 1)
}
