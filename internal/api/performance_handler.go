package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/jd-tailor/internal/api/shared"
	"github.com/phrazzld/jd-tailor/internal/dashboard"
	"github.com/phrazzld/jd-tailor/internal/platform/logger"
	"github.com/phrazzld/jd-tailor/internal/redact"
)

// PerformanceService is the part of dashboard.Aggregator the handler uses.
type PerformanceService interface {
	Stats() dashboard.Snapshot
	Dashboard() dashboard.Dashboard
	Report() dashboard.Report
	Cleanup(retention time.Duration) (dashboard.CleanupResult, error)
	ClearCache() (int, error)
}

// PerformanceHandler serves statistics and maintenance endpoints.
type PerformanceHandler struct {
	perf      PerformanceService
	retention time.Duration
	logger    *slog.Logger
}

// NewPerformanceHandler creates a PerformanceHandler. retention is the
// default task retention for cleanup requests.
func NewPerformanceHandler(perf PerformanceService, retention time.Duration, logger *slog.Logger) *PerformanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = dashboard.DefaultTaskRetention
	}
	return &PerformanceHandler{
		perf:      perf,
		retention: retention,
		logger:    logger.With(slog.String("component", "performance_handler")),
	}
}

// Stats handles GET /api/performance/stats.
func (h *PerformanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.perf.Stats())
}

// Dashboard handles GET /api/performance.
func (h *PerformanceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.perf.Dashboard())
}

// Report handles GET /api/performance/report.
func (h *PerformanceHandler) Report(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.perf.Report())
}

// Cleanup handles POST /api/performance/cleanup. An optional
// retention_hours query parameter overrides the default retention.
func (h *PerformanceHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	retention := h.retention
	if raw := r.URL.Query().Get("retention_hours"); raw != "" {
		d, err := parseHours("retention_hours", raw, true)
		if err != nil {
			HandleAPIError(w, r, err, "retention_hours must be a non-negative number")
			return
		}
		retention = d
	}

	res, err := h.perf.Cleanup(retention)
	if err != nil {
		// Part of the pass may have succeeded; report what was removed.
		traceID := shared.GetTraceID(r.Context())
		log.Error("cleanup failed",
			slog.String("trace_id", traceID),
			slog.String("error", redact.Error(err)),
			slog.Int("cache_cleaned", res.CacheCleaned),
			slog.Int("tasks_cleaned", res.TasksCleaned))
		shared.RespondWithJSON(w, r, http.StatusInternalServerError, CleanupErrorResponse{
			ErrorResponse: shared.ErrorResponse{Error: "Cleanup failed", TraceID: traceID},
			CleanupResult: res,
		})
		return
	}

	log.Info("cleanup completed",
		slog.Int("cache_cleaned", res.CacheCleaned),
		slog.Int("tasks_cleaned", res.TasksCleaned))
	shared.RespondWithJSON(w, r, http.StatusOK, res)
}

// ClearCache handles POST /api/cache/clear.
func (h *PerformanceHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	n, err := h.perf.ClearCache()
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to clear cache", err)
		return
	}

	log.Info("cache cleared", slog.Int("cleared", n))
	shared.RespondWithJSON(w, r, http.StatusOK, ClearCacheResponse{Cleared: n})
}
