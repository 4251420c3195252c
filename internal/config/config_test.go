package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helperbot/internal/domain"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "memory", cfg.DocStore.Type)
	assert.Equal(t, 3, cfg.DocStore.NResults)
	assert.Equal(t, 10, cfg.History.MaxHistory)
	assert.Equal(t, "greeting", cfg.Assistant.GreetingLabel)
	assert.Equal(t, "get_data_from_db", cfg.Assistant.RetrievalFunction)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Completion.Model)
	assert.InDelta(t, 0.1, cfg.Completion.Temperature, 1e-6)
	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helperbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
manual:
  dataset: kakaotalk
embedder:
  type: openai
doc_store:
  type: qdrant
  n_results: 5
  qdrant:
    url: http://localhost:6334
history:
  type: sqlite
  dir: /tmp/hb
assistant:
  strategy: function_call
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 5, cfg.DocStore.NResults)
	assert.Equal(t, "helperbot_manual", cfg.DocStore.Qdrant.Collection)
	assert.Equal(t, filepath.Join("/tmp/hb", "history.db"), cfg.History.SQLitePath)
	assert.Equal(t, []string{filepath.Join("data", "project_data_kakaotalk.txt")}, cfg.ManualPaths())
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("manual: [unterminated"), 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Type = "bert" }},
		{"unknown store", func(c *AppConfig) { c.DocStore.Type = "pinecone" }},
		{"unknown history", func(c *AppConfig) { c.History.Type = "s3" }},
		{"unknown strategy", func(c *AppConfig) { c.Assistant.Strategy = "react" }},
		{"non-positive results", func(c *AppConfig) { c.DocStore.NResults = -1 }},
		{"non-positive window", func(c *AppConfig) { c.History.MaxHistory = -2 }},
		{"qdrant without url", func(c *AppConfig) { c.DocStore.Type = "qdrant" }},
		{"redis without addr", func(c *AppConfig) { c.History.Type = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidConfig)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Manual.Files = []string{"manuals/*.txt"}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestManualPathsPreferFiles(t *testing.T) {
	cfg := defaultConfig()
	assert.Empty(t, cfg.ManualPaths())
	cfg.Manual.Dataset = "x"
	cfg.Manual.Files = []string{"a.txt"}
	assert.Equal(t, []string{"a.txt"}, cfg.ManualPaths())
}
