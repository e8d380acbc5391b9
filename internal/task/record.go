package task

import (
	"maps"
	"math"
	"time"
)

// Record is the bookkeeping for one unit of background work.
//
// Result is set only when Status is completed and Error only when it is
// failed. StartedAt is set on the move to running and CompletedAt on the move
// to any terminal status.
type Record struct {
	ID          string         `json:"id"`
	Type        string         `json:"task_type"`
	Status      TaskStatus     `json:"status"`
	Progress    float64        `json:"progress"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Clone returns a copy that shares no mutable state with r, apart from the
// Result value, which the work function handed over and must not mutate.
func (r Record) Clone() Record {
	c := r
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.Metadata != nil {
		c.Metadata = maps.Clone(r.Metadata)
	}
	return c
}

// Duration is the time the task spent running, or zero if it has not finished.
func (r Record) Duration() time.Duration {
	return elapsed(r)
}

// transition moves r to status to at time now, enforcing the state machine:
//
//	pending -> running -> completed | failed
//	pending -> cancelled
func (r *Record) transition(to TaskStatus, now time.Time) error {
	switch {
	case r.Status == TaskStatusPending && to == TaskStatusRunning:
		r.StartedAt = &now
	case r.Status == TaskStatusPending && to == TaskStatusCancelled:
		r.CompletedAt = &now
	case r.Status == TaskStatusRunning && (to == TaskStatusCompleted || to == TaskStatusFailed):
		if r.StartedAt != nil && now.Before(*r.StartedAt) {
			now = *r.StartedAt
		}
		r.CompletedAt = &now
	default:
		return transitionError(r.Status, to)
	}

	r.Status = to
	return nil
}

// complete records a successful outcome.
func (r *Record) complete(result any, now time.Time) error {
	if err := r.transition(TaskStatusCompleted, now); err != nil {
		return err
	}
	r.Result = result
	r.Progress = 100
	return nil
}

// fail records a failed outcome. The message is never empty.
func (r *Record) fail(msg string, now time.Time) error {
	if err := r.transition(TaskStatusFailed, now); err != nil {
		return err
	}
	if msg == "" {
		msg = "task failed without an error message"
	}
	r.Error = msg
	return nil
}

// advance raises progress to pct. Lower values and updates outside the
// running state are ignored, as is NaN; running tasks never report 100 before completion.
func (r *Record) advance(pct float64) bool {
	if r.Status != TaskStatusRunning || math.IsNaN(pct) {
		return false
	}
	if pct > maxRunningProgress {
		pct = maxRunningProgress
	}
	if pct <= r.Progress {
		return false
	}
	r.Progress = pct
	return true
}

const maxRunningProgress = 99
