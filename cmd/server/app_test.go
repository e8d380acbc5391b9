package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/jd-tailor/internal/config"
	"github.com/phrazzld/jd-tailor/internal/platform/gemini"
	"github.com/phrazzld/jd-tailor/internal/platform/logger"
	"github.com/phrazzld/jd-tailor/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

const testJD = `Platform Engineer
Operate Kubernetes clusters and write tooling in Go.`

const testAnswer = `{"job_skills_ranked": [
  {"token": "go", "canonical": "Go", "confidence": 0.9, "evidence": ["tooling in Go"]},
  {"token": "k8s", "canonical": "Kubernetes", "confidence": 0.7, "evidence": ["Kubernetes clusters"]}
]}`

type stubGenerator struct {
	calls atomic.Int32
}

func (g *stubGenerator) GenerateContent(
	context.Context, string, []*genai.Content, *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	g.calls.Add(1)
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: testAnswer}}},
		}},
	}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:            freePort(t),
			Host:            "127.0.0.1",
			LogLevel:        "debug",
			ShutdownTimeout: 5 * time.Second,
		},
		Cache: config.CacheConfig{
			Dir:      t.TempDir(),
			TTL:      time.Hour,
			Compress: true,
		},
		Task: config.TaskConfig{
			WorkerCount:     2,
			Retention:       time.Hour,
			CleanupInterval: time.Minute,
		},
		LLM: config.LLMConfig{
			ModelName:         "gemini-test",
			MaxRetries:        1,
			RetryDelay:        time.Millisecond,
			RequestsPerMinute: 600,
			RequestTimeout:    time.Second,
			SkillCap:          5,
		},
		Metrics: config.MetricsConfig{
			SampleInterval: 20 * time.Millisecond,
			HistorySize:    50,
		},
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...appOption) *application {
	t.Helper()
	l, _ := logger.NewTestLogger()
	app, err := newApplication(context.Background(), cfg, l, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.taskRunner.Shutdown(ctx)
	})
	return app
}

func stubLLM(t *testing.T, cfg *config.Config, gen gemini.ContentGenerator) appOption {
	t.Helper()
	l, _ := logger.NewTestLogger()
	client, err := gemini.NewClientWithGenerator(gen, l, cfg.LLM)
	require.NoError(t, err)
	return withLLM(client)
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewApplication_WithoutAPIKey(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	assert.False(t, app.llmEnabled)
	assert.Equal(t, "gemini-test", app.llm.Model())

	router := app.setupRouter()
	w := doRequest(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = doRequest(t, router, http.MethodPost, "/api/jobs/skills", `{"job_description": "Go developer"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestNewApplication_InvalidCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.TTL = 0

	l, _ := logger.NewTestLogger()
	_, err := newApplication(context.Background(), cfg, l)
	assert.ErrorContains(t, err, "failed to initialize cache")
}

func TestSkillsFlow(t *testing.T) {
	cfg := testConfig(t)
	gen := &stubGenerator{}
	app := newTestApp(t, cfg, stubLLM(t, cfg, gen))
	router := app.setupRouter()

	body := fmt.Sprintf(`{"job_description": %q}`, testJD)
	w := doRequest(t, router, http.MethodPost, "/api/jobs/skills", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))

	var rec struct {
		Status string `json:"status"`
		Result struct {
			SkillsFlat []string `json:"skills_flat"`
		} `json:"result"`
	}
	require.Eventually(t, func() bool {
		w := doRequest(t, router, http.MethodGet, "/api/tasks/"+accepted.TaskID, "")
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &rec) != nil {
			return false
		}
		return rec.Status == string(task.TaskStatusCompleted)
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"Go", "Kubernetes"}, rec.Result.SkillsFlat)

	w = doRequest(t, router, http.MethodPost, "/api/jobs/skills", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cached":true`)
	assert.Equal(t, int32(1), gen.calls.Load())

	w = doRequest(t, router, http.MethodGet, "/api/performance/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Cache struct {
			TotalFiles int     `json:"total_files"`
			HitRate    float64 `json:"hit_rate"`
		} `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Cache.TotalFiles)
	assert.Greater(t, stats.Cache.HitRate, 0.0)
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	l, _ := logger.NewTestLogger()
	app, err := newApplication(context.Background(), cfg, l)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(b) == "OK"
	}, 5*time.Second, 20*time.Millisecond)

	// The collector feeds the dashboard history while the server runs.
	require.Eventually(t, func() bool {
		return len(app.aggregator.RecentHistory(time.Hour)) >= 2
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/performance", cfg.Server.Port))
	require.NoError(t, err)
	var dash struct {
		RecentHistory []map[string]any `json:"recent_history"`
		Summary       struct {
			RecentMetricsCount int `json:"recent_metrics_count"`
		} `json:"summary"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dash))
	resp.Body.Close()
	assert.NotEmpty(t, dash.RecentHistory)
	assert.Equal(t, len(dash.RecentHistory), dash.Summary.RecentMetricsCount)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	_, err = app.taskRunner.Submit(context.Background(), "noop", func(context.Context) (any, error) { return nil, nil }, nil)
	assert.ErrorIs(t, err, task.ErrRunnerStopped)
}

func TestLoadAppConfig(t *testing.T) {
	t.Setenv("TAILOR_SERVER_PORT", "9191")
	cfg, err := loadAppConfig("")
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)

	_, err = loadAppConfig("/does/not/exist.yaml")
	assert.ErrorContains(t, err, "failed to load configuration")
}
