package api

import (
	"github.com/phrazzld/jd-tailor/internal/api/shared"
	"github.com/phrazzld/jd-tailor/internal/dashboard"
	"github.com/phrazzld/jd-tailor/internal/skills"
	"github.com/phrazzld/jd-tailor/internal/task"
)

// SkillsRequest is the body of POST /api/jobs/skills.
type SkillsRequest struct {
	JobDescription string `json:"job_description" validate:"required,max=100000"`
}

// SkillsCachedResponse is returned when the result was already cached.
type SkillsCachedResponse struct {
	Cached bool           `json:"cached"`
	Result *skills.Result `json:"result"`
}

// TaskAcceptedResponse is returned when work was queued.
type TaskAcceptedResponse struct {
	Cached bool            `json:"cached"`
	TaskID string          `json:"task_id"`
	Status task.TaskStatus `json:"status"`
}

// TaskListResponse is the body of GET /api/tasks.
type TaskListResponse struct {
	Tasks []task.Record `json:"tasks"`
	Count int           `json:"count"`
}

// CancelResponse is the body of a successful DELETE /api/tasks/{id}.
type CancelResponse struct {
	Cancelled bool   `json:"cancelled"`
	TaskID    string `json:"task_id"`
}

// ClearCacheResponse is the body of POST /api/cache/clear.
type ClearCacheResponse struct {
	Cleared int `json:"cleared"`
}

// CleanupErrorResponse is returned when a cleanup pass fails part way. The
// counts cover what was removed before and after the failure.
type CleanupErrorResponse struct {
	shared.ErrorResponse
	dashboard.CleanupResult
}
