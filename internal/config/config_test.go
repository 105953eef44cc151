package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "template", cfg.Generator.Type)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, 0.7, cfg.Pipeline.SimilarityThreshold)
	assert.Equal(t, 2, cfg.Pipeline.EdgeCasesPerComponent)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, 3600, cfg.Search.CacheTTLSecs)
}

func TestLoadAppliesProviderDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uitestgen.yaml")
	data := []byte(`
embedder:
  type: openai
generator:
  type: openai
  openai:
    base_url: https://api.mistral.ai/v1
    api_key_env: MISTRAL_API_KEY
    model: mistral-small-latest
vector_store:
  type: qdrant
pipeline:
  similarity_threshold: 0.85
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)

	require.NotNil(t, cfg.Generator.OpenAI)
	assert.Equal(t, "https://api.mistral.ai/v1", cfg.Generator.OpenAI.BaseURL)
	assert.Equal(t, "mistral-small-latest", cfg.Generator.OpenAI.Model)
	assert.Equal(t, 3, cfg.Generator.OpenAI.MaxRetries)

	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "ui_test_patterns", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, 0.85, cfg.Pipeline.SimilarityThreshold)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Pipeline.OutputDir = "out"

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "out", loaded.Pipeline.OutputDir)
	assert.Equal(t, cfg.Embedder.Cache.LRUSize, loaded.Embedder.Cache.LRUSize)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
