package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/jd-tailor/internal/api/middleware"
	"github.com/phrazzld/jd-tailor/internal/cache"
	"github.com/phrazzld/jd-tailor/internal/dashboard"
	"github.com/phrazzld/jd-tailor/internal/events"
	"github.com/phrazzld/jd-tailor/internal/platform/logger"
	"github.com/phrazzld/jd-tailor/internal/skills"
	"github.com/phrazzld/jd-tailor/internal/task"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const sampleJD = `Backend Engineer
Build REST APIs in Go and deploy them to Kubernetes.
Experience with PostgreSQL is required.`

const sampleAnswer = `{
  "key_responsibilities": ["Build REST APIs"],
  "job_skills_ranked": [
    {"token": "go", "canonical": "Go", "section": "Programming Languages", "confidence": 0.9, "evidence": ["APIs in Go"]},
    {"token": "k8s", "canonical": "Kubernetes", "section": "Cloud & DevOps", "confidence": 0.8, "evidence": ["Kubernetes"]}
  ],
  "by_section_top3": {"Programming Languages": ["Go"]}
}`

// gateCompleter blocks every call until release is closed.
type gateCompleter struct {
	release chan struct{}
	once    sync.Once
}

func newGateCompleter() *gateCompleter {
	return &gateCompleter{release: make(chan struct{})}
}

func (g *gateCompleter) Complete(ctx context.Context, _, _ string) (string, error) {
	select {
	case <-g.release:
		return sampleAnswer, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gateCompleter) Model() string { return "test-model" }

func (g *gateCompleter) Open() {
	g.once.Do(func() { close(g.release) })
}

type testEnv struct {
	router    http.Handler
	runner    *task.Runner
	store     *cache.Store
	extractor *skills.Extractor
	llm       *gateCompleter
	recorder  *dashboard.Recorder
}

func newTestEnv(t *testing.T, llmEnabled bool, workers int) *testEnv {
	t.Helper()
	l, _ := logger.NewTestLogger()

	store, err := cache.NewStore(cache.Config{Dir: "/cache", TTL: time.Hour}, l, cache.WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	recorder := dashboard.NewRecorder()
	emitter := events.NewInMemoryEventEmitter(l)
	emitter.RegisterHandler(recorder)

	runner := task.NewRunner(task.RunnerConfig{WorkerCount: workers}, l, task.WithEventEmitter(emitter))
	runner.Start()

	llm := newGateCompleter()
	extractor := skills.NewExtractor(llm, store, skills.Config{}, l, skills.WithObserver(recorder))

	t.Cleanup(func() {
		llm.Open()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Shutdown(ctx)
	})

	agg := dashboard.NewAggregator(store, runner, recorder)
	handlers := Handlers{
		Skills:      NewSkillsHandler(extractor, runner, llmEnabled, l),
		Tasks:       NewTaskHandler(runner, l),
		Performance: NewPerformanceHandler(agg, 24*time.Hour, l),
	}

	r := chi.NewRouter()
	r.Use(middleware.NewTraceMiddleware(l))
	handlers.Register(r)

	return &testEnv{
		router:    r,
		runner:    runner,
		store:     store,
		extractor: extractor,
		llm:       llm,
		recorder:  recorder,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return serve(t, e.router, method, path, body)
}

func serve(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// submit posts a job description and returns the queued task id.
func (e *testEnv) submit(t *testing.T, jd string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/jobs/skills", SkillsRequest{JobDescription: jd})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	id, ok := decode(t, w)["task_id"].(string)
	require.True(t, ok)
	return id
}

func (e *testEnv) waitForStatus(t *testing.T, id string, status task.TaskStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec, ok := e.runner.GetStatus(id)
		return ok && rec.Status == status
	}, 5*time.Second, 5*time.Millisecond)
}
