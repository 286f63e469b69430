package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskRequestEvent asks for a background task to be created without naming
// the package that will build it. The scheduler emits these when follow-up
// maintenance is needed (for example a cache rebuild after new model
// parameters are activated); the task layer registers a handler that turns
// them into persisted tasks.
type TaskRequestEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewTaskRequestEvent builds an event of the given type with the payload
// serialized to JSON.
func NewTaskRequestEvent(eventType string, payload interface{}) (*TaskRequestEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *TaskRequestEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler consumes task request events.
type EventHandler interface {
	// HandleEvent processes one event. An error means the request was not
	// accepted; emitters decide whether that is fatal.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter publishes task request events to whoever is registered to
// receive them. Services depend on this interface rather than on the task
// package, which keeps the dependency arrow pointing one way.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
