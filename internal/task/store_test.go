package task

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveGet(t *testing.T) {
	store := NewMemoryStore()
	rec := Record{ID: "a", Type: "t", Status: TaskStatusPending, Metadata: map[string]any{"k": "v"}}

	require.NoError(t, store.Save(rec))
	assert.Error(t, store.Save(rec), "duplicate ids are rejected")

	got, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, rec, got)

	got.Metadata["k"] = "mutated"
	again, _ := store.Get("a")
	assert.Equal(t, "v", again.Metadata["k"], "readers receive copies")

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(Record{ID: "a", Status: TaskStatusPending}))

	t.Run("applies successful changes", func(t *testing.T) {
		rec, err := store.Update("a", func(rec *Record) error {
			return rec.transition(TaskStatusRunning, time.Now())
		})
		require.NoError(t, err)
		assert.Equal(t, TaskStatusRunning, rec.Status)
	})

	t.Run("discards changes when fn fails", func(t *testing.T) {
		_, err := store.Update("a", func(rec *Record) error {
			rec.Progress = 50
			return errors.New("nope")
		})
		require.Error(t, err)

		rec, _ := store.Get("a")
		assert.Equal(t, 0.0, rec.Progress)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.Update("missing", func(rec *Record) error { return nil })
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestMemoryStore_ListAndDelete(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 4; i >= 0; i-- {
		require.NoError(t, store.Save(Record{
			ID:        fmt.Sprintf("task-%d", i),
			Type:      []string{"even", "odd"}[i%2],
			Status:    TaskStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all := store.List(nil)
	require.Len(t, all, 5)
	for i, rec := range all {
		assert.Equal(t, fmt.Sprintf("task-%d", i), rec.ID, "oldest first")
	}

	odd := store.List(func(rec *Record) bool { return rec.Type == "odd" })
	assert.Len(t, odd, 2)

	assert.True(t, store.Delete("task-0"))
	assert.False(t, store.Delete("task-0"))

	removed := store.DeleteWhere(func(rec *Record) bool { return rec.Type == "even" })
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStore_ConcurrentClaims(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(Record{ID: "contested", Status: TaskStatusPending}))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []TaskStatus
	)
	for i := 0; i < 20; i++ {
		target := TaskStatusRunning
		if i%2 == 1 {
			target = TaskStatusCancelled
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Update("contested", func(rec *Record) error {
				return rec.transition(target, time.Now())
			}); err == nil {
				mu.Lock()
				wins = append(wins, target)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, wins, 1, "exactly one claim or cancel may win")
	rec, _ := store.Get("contested")
	assert.Equal(t, wins[0], rec.Status)
}
