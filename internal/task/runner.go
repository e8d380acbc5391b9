package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jd-tailor/internal/events"
	"github.com/sourcegraph/conc/panics"
)

// RunnerConfig holds configuration for the task runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize bounds the number of tasks waiting to run.
	// Zero means unbounded.
	QueueSize int
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 4,
		QueueSize:   0,
	}
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithStore replaces the default in-memory task table.
func WithStore(store TaskStore) RunnerOption {
	return func(r *Runner) {
		r.store = store
	}
}

// WithClock replaces the time source used for task timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// WithEventEmitter publishes a LifecycleEvent on every terminal transition.
func WithEventEmitter(emitter events.EventEmitter) RunnerOption {
	return func(r *Runner) {
		r.emitter = emitter
	}
}

// WithErrorHandler sets a function called after a task fails.
func WithErrorHandler(handler func(rec Record, err error)) RunnerOption {
	return func(r *Runner) {
		r.errHandler = handler
	}
}

// Runner accepts work, runs it on a fixed pool of workers and records the
// outcome in a task table that callers poll.
type Runner struct {
	store      TaskStore
	queue      *TaskQueue
	pool       *WorkerPool
	config     RunnerConfig
	now        func() time.Time
	emitter    events.EventEmitter
	errHandler func(rec Record, err error)
	logger     *slog.Logger
	stopped    atomic.Bool
}

// NewRunner creates a Runner. Tasks may be submitted before Start; they wait
// in the queue until workers are running.
func NewRunner(config RunnerConfig, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "task_runner")

	r := &Runner{
		store:  NewMemoryStore(),
		config: config,
		now:    time.Now,
		logger: logger,
	}
	r.errHandler = func(rec Record, err error) {
		// Default error handler just logs the error
		logger.Error("task execution failed",
			"task_id", rec.ID,
			"task_type", rec.Type,
			"error", err)
	}
	for _, opt := range opts {
		opt(r)
	}

	r.queue = NewTaskQueue(config.QueueSize, logger)
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.process, logger)
	return r
}

// Start begins processing queued tasks.
func (r *Runner) Start() {
	r.pool.Start()
}

// Submit records a new pending task and queues it. It never waits for the
// work to run and returns the new task id.
func (r *Runner) Submit(
	ctx context.Context,
	taskType string,
	fn WorkFunc,
	metadata map[string]any,
) (string, error) {
	if err := validateSubmission(taskType, fn); err != nil {
		return "", err
	}
	if r.stopped.Load() {
		return "", ErrRunnerStopped
	}

	rec := Record{
		ID:        uuid.NewString(),
		Type:      taskType,
		Status:    TaskStatusPending,
		CreatedAt: r.now(),
		Metadata:  maps.Clone(metadata),
	}
	if err := r.store.Save(rec); err != nil {
		return "", fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(&work{id: rec.ID, taskType: taskType, fn: fn}); err != nil {
		r.store.Delete(rec.ID)
		if errors.Is(err, ErrQueueClosed) {
			return "", ErrRunnerStopped
		}
		return "", err
	}

	r.logger.DebugContext(ctx, "task submitted", "task_id", rec.ID, "task_type", taskType)
	return rec.ID, nil
}

// GetStatus returns a snapshot of the task with the given id.
func (r *Runner) GetStatus(id string) (Record, bool) {
	return r.store.Get(id)
}

// Cancel moves a pending task to cancelled and reports whether it did. Tasks
// that are running or already finished are left untouched.
func (r *Runner) Cancel(id string) bool {
	rec, err := r.store.Update(id, func(rec *Record) error {
		return rec.transition(TaskStatusCancelled, r.now())
	})
	if err != nil {
		r.logger.Debug("task not cancelled", "task_id", id, "error", err)
		return false
	}

	r.logger.Info("task cancelled", "task_id", id, "task_type", rec.Type)
	r.emit(rec)
	return true
}

// CleanupOlderThan removes finished tasks created more than age ago and
// returns how many were removed. Pending and running tasks are kept.
func (r *Runner) CleanupOlderThan(age time.Duration) int {
	cutoff := r.now().Add(-age)
	removed := r.store.DeleteWhere(func(rec *Record) bool {
		return rec.Status.IsTerminal() && rec.CreatedAt.Before(cutoff)
	})

	r.logger.Info("cleaned up old tasks", "removed", removed, "max_age", age.String())
	return removed
}

// Tasks returns every task, oldest first.
func (r *Runner) Tasks() []Record {
	return r.store.List(nil)
}

// TasksByType returns the tasks with the given type tag, oldest first.
func (r *Runner) TasksByType(taskType string) []Record {
	return r.store.List(func(rec *Record) bool {
		return rec.Type == taskType
	})
}

// RecentTasks returns the tasks created within window, oldest first.
func (r *Runner) RecentTasks(window time.Duration) []Record {
	cutoff := r.now().Add(-window)
	return r.store.List(func(rec *Record) bool {
		return !rec.CreatedAt.Before(cutoff)
	})
}

// Await polls the task until it finishes or ctx ends.
func (r *Runner) Await(ctx context.Context, id string, interval time.Duration) (Record, error) {
	return Await(ctx, r, id, interval)
}

// Stop refuses further submissions and tells workers to exit after their
// current task. Pending tasks are never run. It does not wait.
func (r *Runner) Stop() {
	if r.stopped.Swap(true) {
		return
	}
	r.queue.Close()
	r.pool.Stop()
	r.logger.Info("task runner stopped")
}

// Shutdown stops the runner and waits for running tasks until ctx ends.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.Stop()
	if err := r.pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("task runner shutdown: %w", err)
	}
	return nil
}

// process handles execution of a single task taken from the queue.
func (r *Runner) process(ctx context.Context, t Task) {
	logger := r.logger.With("task_id", t.ID(), "task_type", t.Type())

	if r.stopped.Load() {
		logger.Debug("runner stopped, leaving task pending")
		return
	}

	// Claim the task. A task cancelled while queued fails the transition.
	if _, err := r.store.Update(t.ID(), func(rec *Record) error {
		return rec.transition(TaskStatusRunning, r.now())
	}); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			logger.Debug("skipping task that is no longer pending", "error", err)
		} else {
			logger.Error("failed to update task status to running", "error", err)
		}
		return
	}

	logger.Info("processing task")

	ctx = withProgress(ctx, func(pct float64) { r.setProgress(t.ID(), pct) })
	result, execErr := r.execute(ctx, t)

	final, err := r.store.Update(t.ID(), func(rec *Record) error {
		if execErr != nil {
			return rec.fail(execErr.Error(), r.now())
		}
		return rec.complete(result, r.now())
	})
	if err != nil {
		logger.Error("failed to record task outcome", "error", err)
		return
	}

	if execErr != nil {
		r.errHandler(final, execErr)
	} else {
		logger.Info("task completed successfully", "duration", final.Duration().String())
	}
	r.emit(final)
}

// execute runs the task, turning a panic into an error.
func (r *Runner) execute(ctx context.Context, t Task) (result any, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		result, err = t.Execute(ctx)
	})
	if recovered := pc.Recovered(); recovered != nil {
		r.logger.Error("task panicked",
			"task_id", t.ID(),
			"panic", fmt.Sprint(recovered.Value),
			"stack", string(recovered.Stack))
		return nil, fmt.Errorf("task panicked: %v", recovered.Value)
	}
	return result, err
}

func (r *Runner) setProgress(id string, pct float64) {
	_, _ = r.store.Update(id, func(rec *Record) error {
		if !rec.advance(pct) {
			return errProgressIgnored
		}
		return nil
	})
}

var errProgressIgnored = errors.New("progress update ignored")

func (r *Runner) emit(rec Record) {
	if r.emitter == nil {
		return
	}
	ev := events.NewLifecycleEvent(rec.ID, rec.Type, string(rec.Status), rec.Duration(), rec.Error)
	if err := r.emitter.EmitEvent(context.Background(), ev); err != nil {
		r.logger.Warn("failed to emit task lifecycle event", "task_id", rec.ID, "error", err)
	}
}
