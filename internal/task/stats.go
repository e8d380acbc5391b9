package task

import "time"

// RecentWindow is the window used for Stats.RecentCompletionRate.
const RecentWindow = time.Hour

// Stats is a point-in-time rollup of the task table.
type Stats struct {
	TotalTasks           int                `json:"total_tasks"`
	ByStatus             map[TaskStatus]int `json:"by_status"`
	ByType               map[string]int     `json:"by_type"`
	RecentCompletionRate float64            `json:"recent_completion_rate"`
	QueueDepth           int                `json:"queue_depth"`
	Workers              int                `json:"workers"`
}

// Stats counts tasks by status and type. RecentCompletionRate is the share of
// tasks created in the last hour that have completed, or zero when none were.
func (r *Runner) Stats() Stats {
	stats := Stats{
		ByStatus:   make(map[TaskStatus]int, len(AllStatuses)),
		ByType:     make(map[string]int),
		QueueDepth: r.queue.Len(),
		Workers:    r.pool.WorkerCount(),
	}
	for _, status := range AllStatuses {
		stats.ByStatus[status] = 0
	}

	cutoff := r.now().Add(-RecentWindow)
	recent, recentCompleted := 0, 0

	for _, rec := range r.store.List(nil) {
		stats.TotalTasks++
		stats.ByStatus[rec.Status]++
		stats.ByType[rec.Type]++

		if !rec.CreatedAt.Before(cutoff) {
			recent++
			if rec.Status == TaskStatusCompleted {
				recentCompleted++
			}
		}
	}

	if recent > 0 {
		stats.RecentCompletionRate = float64(recentCompleted) / float64(recent)
	}
	return stats
}
