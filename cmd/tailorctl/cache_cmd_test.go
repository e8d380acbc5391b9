package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/jd-tailor/internal/cache"
	"github.com/phrazzld/jd-tailor/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCache(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	log, _ := logger.NewTestLogger()
	store, err := cache.NewStore(cache.Config{Dir: dir, TTL: time.Hour}, log)
	require.NoError(t, err)

	require.True(t, store.Set("llm", "first", map[string]string{"a": "b"}, false))
	require.True(t, store.Set("llm", "second", map[string]string{"c": "d"}, true))
	require.True(t, store.Set("skills", "third", []string{"go"}, false))
	return dir
}

func TestCacheStatsCommand(t *testing.T) {
	dir := seedCache(t)

	out, err := execute(t, "cache", "stats", "--cache-dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Cache: "+dir)
	assert.Contains(t, out, "NAMESPACE")

	lines := strings.Split(out, "\n")
	var llm, total string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "llm "):
			llm = line
		case strings.HasPrefix(line, "TOTAL "):
			total = line
		}
	}
	require.NotEmpty(t, llm)
	require.NotEmpty(t, total)
	assert.Equal(t, "2", strings.Fields(llm)[1])
	assert.Equal(t, "3", strings.Fields(total)[1])
}

func TestCacheClearAndPurgeCommands(t *testing.T) {
	dir := seedCache(t)

	out, err := execute(t, "cache", "purge", "--cache-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "Removed 0 expired entries\n", out)

	out, err = execute(t, "cache", "clear", "--cache-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "Removed 3 entries\n", out)

	out, err = execute(t, "cache", "stats", "--cache-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "TOTAL ") {
			assert.Equal(t, "0", strings.Fields(line)[1])
		}
	}
}

func TestCacheCommandMissingDir(t *testing.T) {
	_, err := execute(t, "cache", "stats", "--cache-dir", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache directory")
}

func TestCacheKeyCommand(t *testing.T) {
	out, err := execute(t, "cache", "key", "  Senior Go engineer  ")
	require.NoError(t, err)
	assert.Equal(t, cache.ComputeKey("Senior Go engineer")+"\n", out)

	file := filepath.Join(t.TempDir(), "jd.txt")
	require.NoError(t, os.WriteFile(file, []byte("Senior Go engineer\n"), 0o600))

	out, err = execute(t, "cache", "key", "--file", file)
	require.NoError(t, err)
	assert.Equal(t, cache.ComputeKey("Senior Go engineer")+"\n", out)

	_, err = execute(t, "cache", "key")
	require.Error(t, err)
}
