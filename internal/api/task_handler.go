package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/jd-tailor/internal/api/shared"
	"github.com/phrazzld/jd-tailor/internal/platform/logger"
	"github.com/phrazzld/jd-tailor/internal/task"
)

// TaskService is the part of task.Runner the handler uses.
type TaskService interface {
	GetStatus(id string) (task.Record, bool)
	Cancel(id string) bool
	Tasks() []task.Record
	TasksByType(taskType string) []task.Record
	RecentTasks(window time.Duration) []task.Record
}

// TaskHandler serves task status and cancellation requests.
type TaskHandler struct {
	tasks  TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /api/tasks.
// Optional filters: type=<task type> and recent_hours=<hours>.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	taskType := q.Get("type")

	var records []task.Record
	if raw := q.Get("recent_hours"); raw != "" {
		window, err := parseHours("recent_hours", raw, false)
		if err != nil {
			HandleAPIError(w, r, err, "recent_hours must be a positive number")
			return
		}
		records = h.tasks.RecentTasks(window)
		if taskType != "" {
			records = filterByType(records, taskType)
		}
	} else if taskType != "" {
		records = h.tasks.TasksByType(taskType)
	} else {
		records = h.tasks.Tasks()
	}

	if records == nil {
		records = []task.Record{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Tasks: records, Count: len(records)})
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.tasks.GetStatus(id)
	if !ok {
		HandleAPIError(w, r, task.ErrTaskNotFound, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// CancelTask handles DELETE /api/tasks/{id}. Only pending tasks can be
// cancelled; any other known task yields 409.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	id := chi.URLParam(r, "id")

	if h.tasks.Cancel(id) {
		log.Info("task cancelled", slog.String("task_id", id))
		shared.RespondWithJSON(w, r, http.StatusOK, CancelResponse{Cancelled: true, TaskID: id})
		return
	}

	rec, ok := h.tasks.GetStatus(id)
	if !ok {
		HandleAPIError(w, r, task.ErrTaskNotFound, "")
		return
	}
	HandleAPIError(w, r,
		fmt.Errorf("%w: task %s is %s", task.ErrInvalidTransition, id, rec.Status),
		fmt.Sprintf("Task is %s and can no longer be cancelled", rec.Status))
}

func filterByType(records []task.Record, taskType string) []task.Record {
	out := records[:0:0]
	for _, rec := range records {
		if rec.Type == taskType {
			out = append(out, rec)
		}
	}
	return out
}
