package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-study/internal/domain"
)

// Event types.
const (
	// TypeSessionCompleted is emitted once when a study session finishes.
	TypeSessionCompleted = "session.completed"
)

// Event is a typed message with a JSON payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the payload into v.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an event of eventType with payload encoded as JSON.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SessionCompleted is the payload of TypeSessionCompleted.
type SessionCompleted struct {
	SessionID string               `json:"session_id"`
	Record    domain.SessionRecord `json:"record"`
}

// NewSessionCompleted builds a TypeSessionCompleted event.
func NewSessionCompleted(sessionID string, record domain.SessionRecord) (*Event, error) {
	return NewEvent(TypeSessionCompleted, SessionCompleted{SessionID: sessionID, Record: record})
}

// EventHandler processes emitted events. Handlers ignore types they do not
// know.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter publishes events to the registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}
