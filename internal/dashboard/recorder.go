package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/jd-tailor/internal/events"
)

// DefaultSampleLimit is the number of durations kept per operation.
const DefaultSampleLimit = 100

// taskOpPrefix prefixes operations recorded from task lifecycle events.
const taskOpPrefix = "task."

// OperationSummary describes the retained samples of one operation.
// Durations are in seconds.
type OperationSummary struct {
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Summary is a snapshot of everything the Recorder holds.
type Summary struct {
	UptimeHours  float64                     `json:"uptime_hours"`
	ResponseTime map[string]OperationSummary `json:"avg_response_times"`
	Errors       map[string]int              `json:"error_summary"`
}

// TotalErrors sums the error counts of all operations.
func (s Summary) TotalErrors() int {
	total := 0
	for _, n := range s.Errors {
		total += n
	}
	return total
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithSampleLimit sets how many durations are kept per operation.
func WithSampleLimit(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithRecorderClock replaces the clock used for uptime.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// Recorder keeps recent operation durations and error counts.
// It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	samples map[string][]time.Duration
	errors  map[string]int
	limit   int
	now     func() time.Time
	started time.Time
}

// NewRecorder creates an empty Recorder. Uptime is measured from this call.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		samples: make(map[string][]time.Duration),
		errors:  make(map[string]int),
		limit:   DefaultSampleLimit,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.started = r.now()
	return r
}

// Record stores one duration for operation and counts err when it is non-nil.
func (r *Recorder) Record(operation string, duration time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	samples := append(r.samples[operation], duration)
	if len(samples) > r.limit {
		samples = samples[len(samples)-r.limit:]
	}
	r.samples[operation] = samples

	if err != nil {
		r.errors[operation]++
	}
}

// HandleEvent records the run time of a finished task under "task.<type>".
// Failed tasks count as errors. Cancelled tasks are ignored.
func (r *Recorder) HandleEvent(_ context.Context, event *events.LifecycleEvent) error {
	if event == nil || event.Status == events.StatusCancelled {
		return nil
	}

	var err error
	if event.Failed() {
		err = eventError(event.Error)
	}
	r.Record(taskOpPrefix+event.TaskType, event.Duration, err)
	return nil
}

// Summary returns avg/min/max/count per operation, the error counts and the
// uptime.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		UptimeHours:  r.now().Sub(r.started).Hours(),
		ResponseTime: make(map[string]OperationSummary, len(r.samples)),
		Errors:       make(map[string]int, len(r.errors)),
	}

	for op, samples := range r.samples {
		if len(samples) == 0 {
			continue
		}
		s.ResponseTime[op] = summarize(samples)
	}
	for op, n := range r.errors {
		s.Errors[op] = n
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func summarize(samples []time.Duration) OperationSummary {
	lo, hi := samples[0], samples[0]
	var total time.Duration
	for _, d := range samples {
		total += d
		lo = min(lo, d)
		hi = max(hi, d)
	}
	return OperationSummary{
		Avg:   (total / time.Duration(len(samples))).Seconds(),
		Min:   lo.Seconds(),
		Max:   hi.Seconds(),
		Count: len(samples),
	}
}

type eventError string

func (e eventError) Error() string {
	if e == "" {
		return "task failed"
	}
	return string(e)
}
