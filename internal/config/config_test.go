package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 5, cfg.RAG.MaxResults)
	assert.InDelta(t, 0.3, cfg.RAG.ScoreThreshold, 1e-9)
	assert.True(t, cfg.RAG.RewriteQuery)
	assert.Equal(t, 50000, cfg.Limits.MaxMessageChars)
	assert.Equal(t, 10000, cfg.Limits.MaxSystemPromptChars)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.NotEmpty(t, cfg.RAG.SystemPrompt)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: 127.0.0.1
  port: 9999
search:
  base_url: https://search.example.com
  index: handbook
rag:
  max_results: 8
rate_limit:
  enabled: true
  requests_per_minute: 30
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Address())
	assert.Equal(t, "https://search.example.com", cfg.Search.BaseURL)
	assert.Equal(t, "handbook", cfg.Search.Index)
	assert.Equal(t, 8, cfg.RAG.MaxResults)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)

	// Unset keys keep their defaults.
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
}
