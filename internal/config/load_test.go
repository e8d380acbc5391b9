package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets environment variables for the duration of the test.
func setupEnv(t *testing.T, envVars map[string]string) {
	t.Helper()
	for name, value := range envVars {
		t.Setenv(name, value)
	}
}

// TestLoadDefaults verifies that Load sets the expected default values
// when no environment variables are set.
func TestLoadDefaults(t *testing.T) {
	setupEnv(t, map[string]string{
		"TAILOR_SERVER_PORT":       "",
		"TAILOR_SERVER_LOG_LEVEL":  "",
		"TAILOR_CACHE_TTL":         "",
		"TAILOR_TASK_WORKER_COUNT": "",
	})

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "cache", cfg.Cache.Dir)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.True(t, cfg.Cache.Compress)
	assert.Equal(t, 4, cfg.Task.WorkerCount)
	assert.Equal(t, 0, cfg.Task.QueueSize, "queue should be unbounded by default")
	assert.Equal(t, 24*time.Hour, cfg.Task.Retention)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelName)
	assert.Empty(t, cfg.LLM.GeminiAPIKey)
	assert.Equal(t, 5*time.Second, cfg.Metrics.SampleInterval)
	assert.Equal(t, 1000, cfg.Metrics.HistorySize)
}

// TestLoadFromEnv verifies that Load reads values from environment variables.
func TestLoadFromEnv(t *testing.T) {
	setupEnv(t, map[string]string{
		"TAILOR_SERVER_PORT":        "9090",
		"TAILOR_SERVER_LOG_LEVEL":   "debug",
		"TAILOR_CACHE_DIR":          "/tmp/tailor-cache",
		"TAILOR_CACHE_TTL":          "48h",
		"TAILOR_TASK_WORKER_COUNT":  "2",
		"TAILOR_TASK_QUEUE_SIZE":    "50",
		"TAILOR_LLM_GEMINI_API_KEY": "test-api-key",
	})

	cfg, err := Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "/tmp/tailor-cache", cfg.Cache.Dir)
	assert.Equal(t, 48*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 2, cfg.Task.WorkerCount)
	assert.Equal(t, 50, cfg.Task.QueueSize)
	assert.Equal(t, "test-api-key", cfg.LLM.GeminiAPIKey)
}

// TestLoadFile verifies that values from a YAML file are applied and that
// environment variables still take precedence.
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tailor.yaml")
	content := `
server:
  port: 7000
cache:
  ttl: 12h
  namespace_ttls:
    pdfs: 168h
task:
  worker_count: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	setupEnv(t, map[string]string{"TAILOR_TASK_WORKER_COUNT": "5"})

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 12*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 168*time.Hour, cfg.Cache.NamespaceTTLs["pdfs"])
	assert.Equal(t, 5, cfg.Task.WorkerCount, "environment should override the file")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// TestLoadValidationErrors verifies that Load rejects invalid values.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "Invalid port number",
			envVars: map[string]string{"TAILOR_SERVER_PORT": "999999"},
		},
		{
			name:    "Invalid log level",
			envVars: map[string]string{"TAILOR_SERVER_LOG_LEVEL": "invalid-level"},
		},
		{
			name:    "Zero workers",
			envVars: map[string]string{"TAILOR_TASK_WORKER_COUNT": "0"},
		},
		{
			name:    "Negative queue size",
			envVars: map[string]string{"TAILOR_TASK_QUEUE_SIZE": "-1"},
		},
		{
			name:    "Zero history size",
			envVars: map[string]string{"TAILOR_METRICS_HISTORY_SIZE": "0"},
		},
		{
			name:    "Skill cap out of range",
			envVars: map[string]string{"TAILOR_LLM_SKILL_CAP": "500"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setupEnv(t, tc.envVars)

			cfg, err := Load()

			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}
