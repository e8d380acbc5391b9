package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/jd-tailor/internal/api"
	apiMiddleware "github.com/phrazzld/jd-tailor/internal/api/middleware"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	api.Handlers{
		Skills:      api.NewSkillsHandler(app.extractor, app.taskRunner, app.llmEnabled, app.logger),
		Tasks:       api.NewTaskHandler(app.taskRunner, app.logger),
		Performance: api.NewPerformanceHandler(app.aggregator, app.config.Task.Retention, app.logger),
	}.Register(r)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
