package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/phrazzld/jd-tailor/internal/api/shared"
	"github.com/phrazzld/jd-tailor/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitSkills_BadRequests(t *testing.T) {
	env := newTestEnv(t, true, 1)

	tests := []struct {
		name    string
		body    any
		wantMsg string
	}{
		{name: "empty body", body: nil, wantMsg: "Request body is required"},
		{name: "malformed JSON", body: `{"job_description": `, wantMsg: "Invalid request format"},
		{name: "unknown field", body: `{"jd": "text"}`, wantMsg: "Invalid request format"},
		{name: "missing description", body: SkillsRequest{}, wantMsg: "Invalid job_description: required field"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/jobs/skills", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			body := decode(t, w)
			assert.Equal(t, tc.wantMsg, body["error"])
			assert.Equal(t, w.Header().Get(shared.TraceIDHeader), body["trace_id"])
		})
	}
}

func TestSubmitSkills_WhitespaceOnly(t *testing.T) {
	env := newTestEnv(t, true, 1)

	w := env.do(t, http.MethodPost, "/api/jobs/skills", SkillsRequest{JobDescription: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Job description is required", decode(t, w)["error"])
}

func TestSubmitSkills_QueuesThenServesFromCache(t *testing.T) {
	env := newTestEnv(t, true, 1)

	w := env.do(t, http.MethodPost, "/api/jobs/skills", SkillsRequest{JobDescription: sampleJD})
	require.Equal(t, http.StatusAccepted, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["cached"])
	assert.Equal(t, "pending", body["status"])
	id := body["task_id"].(string)
	require.NotEmpty(t, id)

	env.llm.Open()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec, err := env.runner.Await(ctx, id, 10*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, task.TaskStatusCompleted, rec.Status)

	w = env.do(t, http.MethodPost, "/api/jobs/skills", SkillsRequest{JobDescription: sampleJD})
	require.Equal(t, http.StatusOK, w.Code)

	body = decode(t, w)
	assert.Equal(t, true, body["cached"])
	result := body["result"].(map[string]any)
	assert.Equal(t, []any{"Go", "Kubernetes"}, result["skills_flat"])
}

func TestSubmitSkills_LLMDisabled(t *testing.T) {
	env := newTestEnv(t, false, 1)

	w := env.do(t, http.MethodPost, "/api/jobs/skills", SkillsRequest{JobDescription: sampleJD})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "LLM is not configured", decode(t, w)["error"])
	assert.Empty(t, env.runner.Tasks())

	// A result cached earlier is still served.
	env.llm.Open()
	_, err := env.extractor.Extract(context.Background(), sampleJD)
	require.NoError(t, err)

	w = env.do(t, http.MethodPost, "/api/jobs/skills", SkillsRequest{JobDescription: sampleJD})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["cached"])
}

func TestSubmitSkills_RunnerStopped(t *testing.T) {
	env := newTestEnv(t, true, 1)
	env.runner.Stop()

	w := env.do(t, http.MethodPost, "/api/jobs/skills", SkillsRequest{JobDescription: sampleJD})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Server is shutting down", decode(t, w)["error"])
}
