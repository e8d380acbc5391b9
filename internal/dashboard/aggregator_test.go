package dashboard

import (
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/jd-tailor/internal/cache"
	"github.com/phrazzld/jd-tailor/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	stats      cache.Stats
	expired    int
	cleared    int
	err        error
	sweeps     int
	clearCalls int
}

func (f *fakeCache) Stats() cache.Stats { return f.stats }

func (f *fakeCache) ClearExpired() (int, error) {
	f.sweeps++
	return f.expired, f.err
}

func (f *fakeCache) ClearAll() (int, error) {
	f.clearCalls++
	return f.cleared, f.err
}

type fakeTasks struct {
	stats   task.Stats
	cleaned int
	ages    []time.Duration
}

func (f *fakeTasks) Stats() task.Stats { return f.stats }

func (f *fakeTasks) CleanupOlderThan(age time.Duration) int {
	f.ages = append(f.ages, age)
	return f.cleaned
}

func TestAggregator_Stats(t *testing.T) {
	fc := &fakeCache{stats: cache.Stats{TotalFiles: 4, Hits: 3, Misses: 1}}
	ft := &fakeTasks{stats: task.Stats{TotalTasks: 2, Workers: 4}}
	a := NewAggregator(fc, ft, nil)

	snap := a.Stats()
	assert.Equal(t, 4, snap.Cache.TotalFiles)
	assert.Equal(t, 0.75, snap.Cache.HitRate)
	assert.Equal(t, 2, snap.Tasks.TotalTasks)
	assert.False(t, snap.Timestamp.IsZero())
	assert.NotNil(t, a.Recorder())
}

func TestAggregator_Dashboard(t *testing.T) {
	fc := &fakeCache{stats: cache.Stats{Hits: 1, Misses: 1}}
	rec := NewRecorder()
	rec.Record("llm_call", time.Second, nil)
	a := NewAggregator(fc, &fakeTasks{}, rec)

	d := a.Dashboard()
	assert.Equal(t, 0.5, d.Current.Cache.HitRate)
	assert.Equal(t, 0.5, d.Summary.CacheHitRate)
	assert.Contains(t, d.Summary.ResponseTime, "llm_call")
}

func TestAggregator_Report(t *testing.T) {
	tests := []struct {
		name  string
		stats cache.Stats
		setup func(r *Recorder)
		want  []string
	}{
		{
			name:  "healthy",
			stats: cache.Stats{Hits: 9, Misses: 1},
			setup: func(r *Recorder) { r.Record("llm_call", 2*time.Second, nil) },
			want:  []string{normalRecommendation},
		},
		{
			name:  "no lookups yet",
			stats: cache.Stats{},
			setup: func(*Recorder) {},
			want:  []string{normalRecommendation},
		},
		{
			name:  "slow operation",
			stats: cache.Stats{Hits: 1},
			setup: func(r *Recorder) {
				r.Record("pdf_compilation", 40*time.Second, nil)
				r.Record("pdf_compilation", 50*time.Second, nil)
			},
			want: []string{"Consider optimizing pdf_compilation (avg: 45.0s)"},
		},
		{
			name:  "low hit rate",
			stats: cache.Stats{Hits: 1, Misses: 3},
			setup: func(*Recorder) {},
			want:  []string{"Low cache hit rate - consider expanding cache coverage"},
		},
		{
			name:  "many errors",
			stats: cache.Stats{Hits: 1},
			setup: func(r *Recorder) {
				for i := 0; i < HighErrorCount+1; i++ {
					r.Record("llm_call", time.Second, errors.New("x"))
				}
			},
			want: []string{"High error rate detected - review error logs"},
		},
		{
			name:  "everything at once",
			stats: cache.Stats{Misses: 5},
			setup: func(r *Recorder) {
				r.Record("b", time.Minute, nil)
				r.Record("a", time.Minute, nil)
				for i := 0; i < HighErrorCount+1; i++ {
					r.Record("c", 0, errors.New("x"))
				}
			},
			want: []string{
				"Consider optimizing a (avg: 60.0s)",
				"Consider optimizing b (avg: 60.0s)",
				"Low cache hit rate - consider expanding cache coverage",
				"High error rate detected - review error logs",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecorder()
			tt.setup(rec)
			a := NewAggregator(&fakeCache{stats: tt.stats}, &fakeTasks{}, rec)

			report := a.Report()
			assert.Equal(t, tt.want, report.Recommendations)
			assert.False(t, report.GeneratedAt.IsZero())
		})
	}
}

func TestAggregator_Cleanup(t *testing.T) {
	t.Run("counts", func(t *testing.T) {
		fc := &fakeCache{expired: 3}
		ft := &fakeTasks{cleaned: 2}
		a := NewAggregator(fc, ft, nil)

		res, err := a.Cleanup(time.Hour)
		require.NoError(t, err)
		assert.Equal(t, CleanupResult{CacheCleaned: 3, TasksCleaned: 2}, res)
		assert.Equal(t, []time.Duration{time.Hour}, ft.ages)
	})

	t.Run("default retention", func(t *testing.T) {
		ft := &fakeTasks{}
		a := NewAggregator(&fakeCache{}, ft, nil)

		_, err := a.Cleanup(-1)
		require.NoError(t, err)
		_, err = a.Cleanup(0)
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{DefaultTaskRetention, 0}, ft.ages)
	})

	t.Run("cache error still cleans tasks", func(t *testing.T) {
		boom := errors.New("disk gone")
		fc := &fakeCache{expired: 1, err: boom}
		ft := &fakeTasks{cleaned: 5}
		a := NewAggregator(fc, ft, nil)

		res, err := a.Cleanup(time.Hour)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, CleanupResult{CacheCleaned: 1, TasksCleaned: 5}, res)
	})
}

func TestAggregator_ClearCache(t *testing.T) {
	fc := &fakeCache{cleared: 7}
	a := NewAggregator(fc, &fakeTasks{}, nil)

	n, err := a.ClearCache()
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 1, fc.clearCalls)
}
