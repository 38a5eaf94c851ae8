package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	WorkerCount int
	QueueSize   int
	TaskTimeout time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
		TaskTimeout: 30 * time.Second,
	}
}

// Stats counts finished tasks.
type Stats struct {
	Completed int64
	Failed    int64
}

// TaskRunner owns a TaskQueue and the WorkerPool that drains it.
type TaskRunner struct {
	queue  *TaskQueue
	pool   *WorkerPool
	logger *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopErr   error

	completed atomic.Int64
	failed    atomic.Int64
}

// NewTaskRunner creates a runner. Call Start before submitting work.
func NewTaskRunner(config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "task_runner")

	r := &TaskRunner{
		queue:  NewTaskQueue(config.QueueSize, logger),
		logger: logger,
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{
		WorkerCount: config.WorkerCount,
		TaskTimeout: config.TaskTimeout,
	}, logger)
	r.pool.SetCompletionHandler(func(_ Task, status TaskStatus, _ error) {
		if status == TaskStatusFailed {
			r.failed.Add(1)
		} else {
			r.completed.Add(1)
		}
	})
	return r
}

// Start launches the workers. Calling it twice has no effect.
func (r *TaskRunner) Start() {
	r.startOnce.Do(r.pool.Start)
}

// Submit queues task without blocking.
func (r *TaskRunner) Submit(_ context.Context, task Task) error {
	if err := r.queue.Enqueue(task); err != nil {
		r.logger.Warn("task rejected",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
		return fmt.Errorf("submit %s task: %w", task.Type(), err)
	}
	return nil
}

// Stop closes the queue and waits for queued tasks to finish. If ctx ends
// first, running tasks are cancelled and the remaining ones are dropped.
func (r *TaskRunner) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() {
		r.queue.Close()
		r.stopErr = r.pool.Wait(ctx)
		s := r.Stats()
		r.logger.Info("task runner stopped",
			"completed", s.Completed,
			"failed", s.Failed,
			"error", r.stopErr)
	})
	return r.stopErr
}

// Stats returns counts of finished tasks.
func (r *TaskRunner) Stats() Stats {
	return Stats{Completed: r.completed.Load(), Failed: r.failed.Load()}
}
