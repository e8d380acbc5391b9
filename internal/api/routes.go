package api

import "github.com/go-chi/chi/v5"

// Handlers groups the API handlers mounted under /api.
type Handlers struct {
	Skills      *SkillsHandler
	Tasks       *TaskHandler
	Performance *PerformanceHandler
}

// Register mounts every endpoint on r under /api.
func (h Handlers) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs/skills", h.Skills.SubmitSkills)

		r.Get("/tasks", h.Tasks.ListTasks)
		r.Get("/tasks/{id}", h.Tasks.GetTask)
		r.Delete("/tasks/{id}", h.Tasks.CancelTask)

		r.Get("/performance", h.Performance.Dashboard)
		r.Get("/performance/stats", h.Performance.Stats)
		r.Get("/performance/report", h.Performance.Report)
		r.Post("/performance/cleanup", h.Performance.Cleanup)

		r.Post("/cache/clear", h.Performance.ClearCache)
	})
}
