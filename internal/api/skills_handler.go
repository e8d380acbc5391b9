package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/jd-tailor/internal/api/shared"
	"github.com/phrazzld/jd-tailor/internal/platform/gemini"
	"github.com/phrazzld/jd-tailor/internal/platform/logger"
	"github.com/phrazzld/jd-tailor/internal/skills"
	"github.com/phrazzld/jd-tailor/internal/task"
)

// SkillsService is the part of skills.Extractor the handler uses.
type SkillsService interface {
	Cached(jd string) (*skills.Result, bool)
	Submit(ctx context.Context, runner skills.Submitter, jd string) (string, error)
}

// SkillsHandler serves skills extraction requests.
type SkillsHandler struct {
	skills  SkillsService
	runner  skills.Submitter
	enabled bool
	logger  *slog.Logger
}

// NewSkillsHandler creates a SkillsHandler. When llmEnabled is false only
// cached results are served and everything else gets 503.
func NewSkillsHandler(svc SkillsService, runner skills.Submitter, llmEnabled bool, logger *slog.Logger) *SkillsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SkillsHandler{
		skills:  svc,
		runner:  runner,
		enabled: llmEnabled,
		logger:  logger.With(slog.String("component", "skills_handler")),
	}
}

// SubmitSkills handles POST /api/jobs/skills.
// A cached result is returned directly with 200. Otherwise an extraction task
// is queued and 202 carries its id.
func (h *SkillsHandler) SubmitSkills(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SkillsRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		if errors.Is(err, shared.ErrEmptyBody) {
			HandleAPIError(w, r, err, "")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	if res, ok := h.skills.Cached(req.JobDescription); ok {
		log.Debug("skills served from cache")
		shared.RespondWithJSON(w, r, http.StatusOK, SkillsCachedResponse{Cached: true, Result: res})
		return
	}

	if !h.enabled {
		HandleAPIError(w, r, gemini.ErrNotConfigured, "")
		return
	}

	id, err := h.skills.Submit(r.Context(), h.runner, req.JobDescription)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("skills extraction queued", slog.String("task_id", id))
	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{
		TaskID: id,
		Status: task.TaskStatusPending,
	})
}
