package dashboard

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// History defaults.
const (
	DefaultHistorySize    = 1000
	DefaultSampleInterval = 5 * time.Second

	// RecentHistoryWindow bounds the history served with the dashboard.
	RecentHistoryWindow = time.Hour
	// TrendWindow bounds the history a report compares.
	TrendWindow = 24 * time.Hour
)

// ProcessStats describes the server process at snapshot time.
type ProcessStats struct {
	Goroutines     int    `json:"goroutines"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes   uint64 `json:"heap_sys_bytes"`
}

func readProcessStats() ProcessStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ProcessStats{
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: ms.HeapAlloc,
		HeapSysBytes:   ms.HeapSys,
	}
}

// History is a fixed-size ring of snapshots, oldest first. Once full, each
// Add overwrites the oldest entry. It is safe for concurrent use.
type History struct {
	mu   sync.Mutex
	buf  []Snapshot
	next int
	full bool
}

// NewHistory creates a History holding at most size snapshots. A size of zero
// or less uses DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{buf: make([]Snapshot, size)}
}

// Add appends s, evicting the oldest snapshot when the ring is full.
func (h *History) Add(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = s
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Len reports how many snapshots are held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.buf)
	}
	return h.next
}

// Since returns the snapshots taken at or after t, oldest first. The result
// is never nil.
func (h *History) Since(t time.Time) []Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Snapshot, 0)
	visit := func(s Snapshot) {
		if !s.Timestamp.Before(t) {
			out = append(out, s)
		}
	}
	if h.full {
		for _, s := range h.buf[h.next:] {
			visit(s)
		}
	}
	for _, s := range h.buf[:h.next] {
		visit(s)
	}
	return out
}

// Trends compares the oldest and newest snapshot of a window. All deltas are
// newest minus oldest and stay zero with fewer than two samples.
type Trends struct {
	Samples        int     `json:"samples"`
	Span           float64 `json:"span_hours"`
	CacheHitRate   float64 `json:"cache_hit_rate_trend"`
	CacheSizeBytes int64   `json:"cache_size_trend_bytes"`
	CacheFiles     int     `json:"cache_files_trend"`
	TotalTasks     int     `json:"total_tasks_trend"`
	QueueDepth     int     `json:"queue_depth_trend"`
	HeapAllocBytes int64   `json:"heap_alloc_trend_bytes"`
	Goroutines     int     `json:"goroutines_trend"`
}

func computeTrends(history []Snapshot) Trends {
	tr := Trends{Samples: len(history)}
	if len(history) < 2 {
		return tr
	}

	first, last := history[0], history[len(history)-1]
	tr.Span = last.Timestamp.Sub(first.Timestamp).Hours()
	tr.CacheHitRate = last.Cache.HitRate - first.Cache.HitRate
	tr.CacheSizeBytes = last.Cache.TotalSizeBytes - first.Cache.TotalSizeBytes
	tr.CacheFiles = last.Cache.TotalFiles - first.Cache.TotalFiles
	tr.TotalTasks = last.Tasks.TotalTasks - first.Tasks.TotalTasks
	tr.QueueDepth = last.Tasks.QueueDepth - first.Tasks.QueueDepth
	tr.HeapAllocBytes = int64(last.Process.HeapAllocBytes) - int64(first.Process.HeapAllocBytes)
	tr.Goroutines = last.Process.Goroutines - first.Process.Goroutines
	return tr
}

// SnapshotTaker takes and stores one snapshot. *Aggregator satisfies it.
type SnapshotTaker interface {
	Sample() Snapshot
}

// Collector feeds the snapshot history on a fixed interval.
type Collector struct {
	source   SnapshotTaker
	interval time.Duration
	logger   *slog.Logger
}

// NewCollector creates a Collector sampling source every interval. A
// non-positive interval uses DefaultSampleInterval.
func NewCollector(source SnapshotTaker, interval time.Duration, logger *slog.Logger) *Collector {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		source:   source,
		interval: interval,
		logger:   logger.With("component", "metrics_collector"),
	}
}

// Run takes a snapshot immediately and then on every tick until ctx is
// cancelled. It always returns nil so it can run inside an errgroup.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("metrics collector started", "interval", c.interval)
	c.source.Sample()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("metrics collector stopped")
			return nil
		case <-ticker.C:
			s := c.source.Sample()
			c.logger.Debug("metrics snapshot taken",
				"cache_files", s.Cache.TotalFiles,
				"total_tasks", s.Tasks.TotalTasks,
				"goroutines", s.Process.Goroutines)
		}
	}
}
