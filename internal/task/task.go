package task

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusRunning,
	TaskStatusCompleted,
	TaskStatusFailed,
	TaskStatusCancelled,
}

// IsTerminal reports whether no further transition is possible from s.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Well-known task types. The type is a free-form tag; these are the ones the
// service itself submits.
const (
	TaskTypeSkillsExtraction = "skills_extraction"
	TaskTypeLLMProcessing    = "llm_processing"
	TaskTypePDFCompilation   = "pdf_compilation"
)

// Common errors returned by the task executor
var (
	ErrNilWork           = errors.New("task work function is nil")
	ErrEmptyTaskType     = errors.New("task type is empty")
	ErrRunnerStopped     = errors.New("task runner is stopped")
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// WorkFunc is the unit of work a task runs. Its result is stored on the task
// record when it returns a nil error.
type WorkFunc func(ctx context.Context) (any, error)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() string

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) (any, error)
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing the runner to enqueue tasks for processing
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// TaskStore holds task records. Every method must be safe for concurrent use
// and must hand out copies, never references into the table.
type TaskStore interface {
	// Save inserts a new record
	Save(rec Record) error

	// Get returns a copy of the record with the given id
	Get(id string) (Record, bool)

	// Update applies fn to the stored record under the table lock and returns
	// a copy of the result. If fn returns an error the record is left as it was.
	Update(id string, fn func(rec *Record) error) (Record, error)

	// Delete removes a record regardless of its status
	Delete(id string) bool

	// List returns copies of the records accepted by match, oldest first.
	// A nil match accepts every record.
	List(match func(rec *Record) bool) []Record

	// DeleteWhere removes every record accepted by match and returns the count
	DeleteWhere(match func(rec *Record) bool) int
}

// work adapts a WorkFunc to the Task interface.
type work struct {
	id       string
	taskType string
	fn       WorkFunc
}

func (w *work) ID() string {
	return w.id
}

func (w *work) Type() string {
	return w.taskType
}

func (w *work) Execute(ctx context.Context) (any, error) {
	return w.fn(ctx)
}

// validateSubmission rejects programmer errors before anything is recorded.
func validateSubmission(taskType string, fn WorkFunc) error {
	if fn == nil {
		return ErrNilWork
	}
	if taskType == "" {
		return ErrEmptyTaskType
	}
	return nil
}

// elapsed is the running time of a record that has reached a terminal state.
func elapsed(rec Record) time.Duration {
	if rec.StartedAt == nil || rec.CompletedAt == nil {
		return 0
	}
	return rec.CompletedAt.Sub(*rec.StartedAt)
}

func transitionError(from, to TaskStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
