package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/jd-tailor/internal/platform/logger"
	"github.com/stretchr/testify/require"
)

// mockTask implements the Task interface for testing
type mockTask struct {
	id       string
	taskType string
	execFn   func(ctx context.Context) (any, error)
}

func (m *mockTask) ID() string {
	return m.id
}

func (m *mockTask) Type() string {
	return m.taskType
}

func (m *mockTask) Execute(ctx context.Context) (any, error) {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil, nil
}

func newMockTask(id string) *mockTask {
	return &mockTask{id: id, taskType: "mock"}
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestRunner builds a started runner and stops it when the test ends.
func newTestRunner(t *testing.T, workers int, opts ...RunnerOption) *Runner {
	t.Helper()
	l, _ := logger.NewTestLogger()
	r := NewRunner(RunnerConfig{WorkerCount: workers}, l, opts...)
	r.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.Shutdown(ctx)
	})
	return r
}

// awaitTask polls the runner until the task is terminal.
func awaitTask(t *testing.T, r *Runner, id string) Record {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec, err := r.Await(ctx, id, 5*time.Millisecond)
	require.NoError(t, err, "task %s did not finish", id)
	return rec
}

// blocker is a work function that signals when it starts and waits to be released.
type blocker struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlocker() *blocker {
	return &blocker{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blocker) work(ctx context.Context) (any, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return "released", nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *blocker) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-b.started:
	case <-time.After(5 * time.Second):
		t.Fatal("work did not start")
	}
}
