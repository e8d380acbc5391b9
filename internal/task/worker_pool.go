package task

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
)

// TaskHandler processes one task taken from the queue.
type TaskHandler func(ctx context.Context, task Task)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	// taskQueue provides read access to the tasks to be processed
	taskQueue TaskQueueReader

	// workerCount is the number of concurrent workers to start
	workerCount int

	// handler runs each task a worker receives
	handler TaskHandler

	// wg tracks active worker goroutines for clean shutdown
	wg conc.WaitGroup

	// quit tells workers to stop taking new tasks
	quit     chan struct{}
	quitOnce sync.Once

	// done is closed once every worker has returned
	done      chan struct{}
	startOnce sync.Once

	// ctx is handed to running tasks; cancel interrupts them cooperatively
	ctx    context.Context
	cancel context.CancelFunc

	// logger for structured logging
	logger *slog.Logger
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 4,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(
	taskQueue TaskQueueReader,
	config WorkerPoolConfig,
	handler TaskHandler,
	logger *slog.Logger,
) *WorkerPool {
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
		handler:     handler,
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// WorkerCount returns the number of workers the pool runs.
func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// Start launches the workers. Calling it more than once has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting worker pool", "worker_count", p.workerCount)

		for i := 0; i < p.workerCount; i++ {
			id := i
			p.wg.Go(func() { p.worker(id) })
		}

		go func() {
			if r := p.wg.WaitAndRecover(); r != nil {
				p.logger.Error("worker panicked", "panic", r.String())
			}
			close(p.done)
		}()
	})
}

// Stop tells workers to finish their current task and exit. It does not wait.
func (p *WorkerPool) Stop() {
	p.quitOnce.Do(func() {
		close(p.quit)
		// A pool that never started has no workers to wait for.
		p.startOnce.Do(func() { close(p.done) })
		p.logger.Info("worker pool stopping")
	})
}

// Wait blocks until every worker has returned. Only meaningful after Stop.
func (p *WorkerPool) Wait() {
	<-p.done
}

// Shutdown stops the pool and waits for running tasks to finish. If ctx ends
// first the context handed to running tasks is cancelled and ctx.Err() is
// returned; tasks that ignore their context keep running.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.Stop()

	select {
	case <-p.done:
		p.cancel()
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("worker pool shutdown deadline reached, cancelling running tasks")
		return ctx.Err()
	}
}

// worker processes tasks from the queue until told to quit or the queue closes.
func (p *WorkerPool) worker(id int) {
	p.logger.Debug("starting worker", "worker_id", id)
	tasks := p.taskQueue.GetChannel()

	for {
		// Prefer quitting over taking another task when both are ready.
		select {
		case <-p.quit:
			p.logger.Debug("stopping worker", "worker_id", id)
			return
		default:
		}

		select {
		case <-p.quit:
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-tasks:
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			p.logger.Debug("worker picked up task", "worker_id", id, "task_id", task.ID())
			p.handler(p.ctx, task)
		}
	}
}
