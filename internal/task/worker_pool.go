package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WorkerPool runs tasks from a TaskQueueReader on a fixed number of
// goroutines until the queue is closed and drained.
type WorkerPool struct {
	taskQueue   TaskQueueReader
	workerCount int
	taskTimeout time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	// onDone is called after every task with its outcome.
	onDone func(task Task, status TaskStatus, err error)
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount defaults to 1 when zero or negative.
	WorkerCount int

	// TaskTimeout bounds a single Execute call. Zero means no limit.
	TaskTimeout time.Duration
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 2,
		TaskTimeout: 30 * time.Second,
	}
}

// NewWorkerPool creates a pool reading from taskQueue. Call Start to run it.
func NewWorkerPool(taskQueue TaskQueueReader, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		taskTimeout: config.TaskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetCompletionHandler sets a callback invoked after each task. It must be
// called before Start.
func (p *WorkerPool) SetCompletionHandler(handler func(task Task, status TaskStatus, err error)) {
	p.onDone = handler
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started", "workers", p.workerCount)
}

// Wait blocks until every worker has exited, or ctx ends first. When ctx
// ends the running tasks are cancelled and ctx's error is returned.
func (p *WorkerPool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return
		case task, ok := <-p.taskQueue.GetChannel():
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			p.process(task, id)
		}
	}
}

func (p *WorkerPool) process(task Task, workerID int) {
	log := p.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	ctx := p.ctx
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	err := p.execute(ctx, task)

	status := TaskStatusCompleted
	if err != nil {
		status = TaskStatusFailed
		log.Error("task execution failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
	} else {
		log.Debug("task completed", "duration_ms", time.Since(start).Milliseconds())
	}

	if p.onDone != nil {
		p.onDone(task, status, err)
	}
}

// execute converts a panic in task into an error so one bad task cannot
// take a worker down.
func (p *WorkerPool) execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Execute(ctx)
}
