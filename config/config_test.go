package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"GEMINI_MODEL", "SEARCH_RESULTS", "RERANK_ENABLED", "AGENT_TIMEOUT", "LOG_LEVEL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg := FromEnv()
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.GeminiModel)
	assert.Equal(t, 5, cfg.Search.Results)
	assert.True(t, cfg.Retrieval.Rerank)
	assert.Equal(t, 60*time.Second, cfg.Engine.AgentTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", " gsk-test ")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("SEARCH_TIMEOUT", "5s")
	t.Setenv("AGENT_TIMEOUT", "90")
	t.Setenv("RETRIEVAL_TOP_K", "not-a-number")
	t.Setenv("RERANK_ENABLED", "false")

	cfg := FromEnv()
	assert.Equal(t, "gsk-test", cfg.LLM.GroqAPIKey)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Engine.AgentTimeout)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.False(t, cfg.Retrieval.Rerank)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FINMESH_TEST_TAVILY=tvly-123\nLOG_FORMAT=json\n"), 0o600))

	t.Setenv("LOG_FORMAT", "console")
	t.Cleanup(func() { _ = os.Unsetenv("FINMESH_TEST_TAVILY") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tvly-123", os.Getenv("FINMESH_TEST_TAVILY"))
	assert.Equal(t, "console", cfg.Log.Format, "existing environment wins over the file")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}
