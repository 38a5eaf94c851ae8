package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter dispatches events synchronously to the handlers
// subscribed to their type, in subscription order.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no subscriptions.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		handlers: make(map[string][]EventHandler),
		logger:   logger.With("component", "event_emitter"),
	}
}

// Subscribe registers handler for events of eventType.
func (e *InMemoryEventEmitter) Subscribe(eventType string, handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[eventType] = append(e.handlers[eventType], handler)
	e.logger.Debug("registered event handler",
		"event_type", eventType,
		"handler_count", len(e.handlers[eventType]))
}

// EmitEvent runs every handler for the event's type. A failing handler does
// not stop the others; their errors are joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	handlers := append([]EventHandler(nil), e.handlers[event.Type]...)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		e.logger.Debug("no handlers for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var errs []error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
