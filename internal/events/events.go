package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LifecycleEvent reports that a background task reached a terminal state.
// It mirrors the fields of the task record that observers care about so the
// events package never imports the task package.
type LifecycleEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// TaskID identifies the task the event describes
	TaskID string `json:"task_id"`

	// TaskType is the free-form tag given at submission
	TaskType string `json:"task_type"`

	// Status is the terminal status: completed, failed or cancelled
	Status string `json:"status"`

	// Duration is the time spent running; zero for tasks that never started
	Duration time.Duration `json:"duration"`

	// Error is the failure message of a failed task
	Error string `json:"error,omitempty"`

	// OccurredAt is the time of the terminal transition
	OccurredAt time.Time `json:"occurred_at"`
}

// Status values carried by LifecycleEvent.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// NewLifecycleEvent creates a LifecycleEvent stamped with the current time.
func NewLifecycleEvent(taskID, taskType, status string, duration time.Duration, errMsg string) *LifecycleEvent {
	return &LifecycleEvent{
		ID:         uuid.New(),
		TaskID:     taskID,
		TaskType:   taskType,
		Status:     status,
		Duration:   duration,
		Error:      errMsg,
		OccurredAt: time.Now(),
	}
}

// Failed reports whether the event describes a failed task.
func (e *LifecycleEvent) Failed() bool {
	return e.Status == StatusFailed
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *LifecycleEvent) error
}

// EventHandlerFunc adapts an ordinary function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *LifecycleEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *LifecycleEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the executor to publish events without knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *LifecycleEvent) error
}
