package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskStatus is the outcome of a task run, as reported to observers.
type TaskStatus string

// Possible task status values
const (
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeSaveProgress persists a completed session record.
	TaskTypeSaveProgress = "save_progress"
)

// Task is a unit of background work.
type Task interface {
	ID() uuid.UUID
	Type() string
	Execute(ctx context.Context) error
}

// TaskQueueReader gives workers read-only access to queued tasks.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter lets producers enqueue tasks.
type TaskQueueWriter interface {
	// Enqueue adds a task without blocking. Returns ErrQueueFull or
	// ErrQueueClosed when it cannot.
	Enqueue(task Task) error
	Close()
}
