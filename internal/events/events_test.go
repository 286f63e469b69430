package events

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures delivered events for assertions.
type recordingHandler struct {
	received []*TaskRequestEvent
	err      error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	h.received = append(h.received, event)
	return h.err
}

func TestNewTaskRequestEvent(t *testing.T) {
	t.Parallel()

	type rebuildPayload struct {
		LearnerID uuid.UUID `json:"learner_id"`
	}
	payload := rebuildPayload{LearnerID: uuid.New()}

	event, err := NewTaskRequestEvent("cache_rebuild", payload)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "cache_rebuild", event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded rebuildPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload.LearnerID, decoded.LearnerID)
}

func TestNewTaskRequestEvent_UnserializablePayload(t *testing.T) {
	t.Parallel()

	event, err := NewTaskRequestEvent("cache_rebuild", math.Inf(1))
	assert.Error(t, err)
	assert.Nil(t, event)
}

func TestUnmarshalPayload_TypeMismatch(t *testing.T) {
	t.Parallel()

	event, err := NewTaskRequestEvent("parameter_optimization", map[string]string{"learner_id": "abc"})
	require.NoError(t, err)

	var wrong []int
	assert.Error(t, event.UnmarshalPayload(&wrong))
}
