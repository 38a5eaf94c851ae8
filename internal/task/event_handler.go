package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-study/internal/events"
	"github.com/phrazzld/scry-study/internal/store"
)

// Submitter accepts tasks for background execution. TaskRunner implements it.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// ProgressEventHandler turns session-completed events into SaveProgressTasks.
type ProgressEventHandler struct {
	runner Submitter
	store  store.ProgressStore
	logger *slog.Logger
}

var _ events.EventHandler = (*ProgressEventHandler)(nil)

// NewProgressEventHandler creates a handler that persists records through
// progress using runner.
func NewProgressEventHandler(runner Submitter, progress store.ProgressStore, logger *slog.Logger) *ProgressEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressEventHandler{
		runner: runner,
		store:  progress,
		logger: logger.With("component", "progress_event_handler"),
	}
}

// HandleEvent implements events.EventHandler. Other event types are ignored.
func (h *ProgressEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeSessionCompleted {
		return nil
	}

	var payload events.SessionCompleted
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to decode session completed payload",
			"error", err,
			"event_id", event.ID)
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	t := NewSaveProgressTask(payload.Record, h.store, h.logger)
	if err := h.runner.Submit(ctx, t); err != nil {
		return err
	}

	h.logger.Debug("queued session record",
		"event_id", event.ID,
		"session_id", payload.SessionID,
		"task_id", t.ID())
	return nil
}
