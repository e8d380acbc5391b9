package dashboard

import (
	"fmt"
	"time"

	"github.com/phrazzld/jd-tailor/internal/cache"
	"github.com/phrazzld/jd-tailor/internal/task"
	"go.uber.org/multierr"
)

// Thresholds used by Report.
const (
	SlowOperationThreshold = 30 * time.Second
	LowCacheHitRate        = 0.5
	HighErrorCount         = 10
)

// DefaultTaskRetention is how long finished tasks are kept when Cleanup is
// called without an explicit retention.
const DefaultTaskRetention = 24 * time.Hour

const normalRecommendation = "System performance is within normal parameters"

// CacheSource is the part of cache.Store the dashboard reads and sweeps.
type CacheSource interface {
	Stats() cache.Stats
	ClearExpired() (int, error)
	ClearAll() (int, error)
}

// TaskSource is the part of task.Runner the dashboard reads and sweeps.
type TaskSource interface {
	Stats() task.Stats
	CleanupOlderThan(age time.Duration) int
}

// CacheStats is cache.Stats plus the derived hit rate.
type CacheStats struct {
	cache.Stats
	HitRate float64 `json:"hit_rate"`
}

// Snapshot is the combined cache, task and process statistics.
type Snapshot struct {
	Timestamp time.Time    `json:"timestamp"`
	Cache     CacheStats   `json:"cache"`
	Tasks     task.Stats   `json:"tasks"`
	Process   ProcessStats `json:"process"`
}

// PerformanceSummary is the Recorder summary plus the cache hit rate and the
// number of snapshots taken in the last hour.
type PerformanceSummary struct {
	Summary
	CacheHitRate       float64 `json:"cache_hit_rate"`
	RecentMetricsCount int     `json:"recent_metrics_count"`
}

// Dashboard is the payload of the performance dashboard.
type Dashboard struct {
	Current       Snapshot           `json:"current"`
	Summary       PerformanceSummary `json:"summary"`
	RecentHistory []Snapshot         `json:"recent_history"`
}

// Report is a performance summary with recommendations and the trends of
// the last day of snapshots.
type Report struct {
	GeneratedAt     time.Time          `json:"report_timestamp"`
	Summary         PerformanceSummary `json:"summary"`
	Trends          Trends             `json:"trends"`
	Recommendations []string           `json:"recommendations"`
}

// CleanupResult counts what Cleanup removed.
type CleanupResult struct {
	CacheCleaned int `json:"cache_cleaned"`
	TasksCleaned int `json:"tasks_cleaned"`
}

// AggregatorOption customizes an Aggregator.
type AggregatorOption func(*Aggregator)

// WithHistory replaces the snapshot history, which otherwise holds
// DefaultHistorySize snapshots.
func WithHistory(h *History) AggregatorOption {
	return func(a *Aggregator) {
		if h != nil {
			a.history = h
		}
	}
}

// WithAggregatorClock replaces the clock used to stamp snapshots.
func WithAggregatorClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
	}
}

// Aggregator combines the recorder, the cache and the task runner into the
// performance views.
type Aggregator struct {
	cache    CacheSource
	tasks    TaskSource
	recorder *Recorder
	history  *History
	now      func() time.Time
}

// NewAggregator creates an Aggregator. A nil recorder is replaced by an empty one.
func NewAggregator(c CacheSource, t TaskSource, recorder *Recorder, opts ...AggregatorOption) *Aggregator {
	if recorder == nil {
		recorder = NewRecorder()
	}
	a := &Aggregator{
		cache:    c,
		tasks:    t,
		recorder: recorder,
		history:  NewHistory(DefaultHistorySize),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recorder returns the recorder backing the summaries.
func (a *Aggregator) Recorder() *Recorder {
	return a.recorder
}

// Stats returns the current cache and task statistics.
func (a *Aggregator) Stats() Snapshot {
	cs := a.cache.Stats()
	return Snapshot{
		Timestamp: a.now(),
		Cache:     CacheStats{Stats: cs, HitRate: cs.HitRate()},
		Tasks:     a.tasks.Stats(),
		Process:   readProcessStats(),
	}
}

// Sample takes a snapshot and appends it to the history.
func (a *Aggregator) Sample() Snapshot {
	s := a.Stats()
	a.history.Add(s)
	return s
}

// RecentHistory returns the snapshots taken within window, oldest first.
func (a *Aggregator) RecentHistory(window time.Duration) []Snapshot {
	return a.history.Since(a.now().Add(-window))
}

// Summary returns the recorded operation timings with the cache hit rate.
func (a *Aggregator) Summary() PerformanceSummary {
	return a.summary(a.cache.Stats(), len(a.RecentHistory(RecentHistoryWindow)))
}

func (a *Aggregator) summary(cs cache.Stats, recent int) PerformanceSummary {
	return PerformanceSummary{
		Summary:            a.recorder.Summary(),
		CacheHitRate:       cs.HitRate(),
		RecentMetricsCount: recent,
	}
}

// Dashboard returns the current statistics, the performance summary and the
// snapshots of the last hour.
func (a *Aggregator) Dashboard() Dashboard {
	current := a.Stats()
	recent := a.RecentHistory(RecentHistoryWindow)
	return Dashboard{
		Current:       current,
		Summary:       a.summary(current.Cache.Stats, len(recent)),
		RecentHistory: recent,
	}
}

// Report returns the performance summary with recommendations.
func (a *Aggregator) Report() Report {
	cs := a.cache.Stats()
	summary := a.summary(cs, len(a.RecentHistory(RecentHistoryWindow)))
	return Report{
		GeneratedAt:     a.now(),
		Summary:         summary,
		Trends:          computeTrends(a.RecentHistory(TrendWindow)),
		Recommendations: recommendations(summary, cs.Hits+cs.Misses),
	}
}

// Cleanup removes expired cache entries and finished tasks created more than
// retention ago. A zero retention removes every finished task and a negative
// one uses DefaultTaskRetention. Counts are returned even when some removals
// fail.
func (a *Aggregator) Cleanup(retention time.Duration) (CleanupResult, error) {
	if retention < 0 {
		retention = DefaultTaskRetention
	}

	var (
		res  CleanupResult
		errs error
	)

	n, err := a.cache.ClearExpired()
	res.CacheCleaned = n
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("cache cleanup: %w", err))
	}

	res.TasksCleaned = a.tasks.CleanupOlderThan(retention)
	return res, errs
}

// ClearCache removes every cache entry.
func (a *Aggregator) ClearCache() (int, error) {
	return a.cache.ClearAll()
}

// recommendations flags slow operations, a low cache hit rate and a high
// error count. The hit rate is only judged once the cache has been consulted.
func recommendations(s PerformanceSummary, lookups int64) []string {
	var out []string

	for _, op := range sortedKeys(s.ResponseTime) {
		avg := s.ResponseTime[op].Avg
		if avg > SlowOperationThreshold.Seconds() {
			out = append(out, fmt.Sprintf("Consider optimizing %s (avg: %.1fs)", op, avg))
		}
	}

	if lookups > 0 && s.CacheHitRate < LowCacheHitRate {
		out = append(out, "Low cache hit rate - consider expanding cache coverage")
	}

	if s.TotalErrors() > HighErrorCount {
		out = append(out, "High error rate detected - review error logs")
	}

	if len(out) == 0 {
		out = append(out, normalRecommendation)
	}
	return out
}
