package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embedding.Model)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)

	assert.Equal(t, 800, cfg.Chunking.DocChunkTokens)
	assert.Equal(t, int64(5*1024*1024), cfg.Indexing.MaxFileSizeBytes)
	assert.Equal(t, int64(2*1024*1024), cfg.Indexing.WarnFileSizeBytes)
	assert.Equal(t, 64, cfg.Indexing.EmbeddingBatchSize)

	assert.Equal(t, 60, cfg.Hybrid.K)
	assert.Equal(t, "skip", cfg.Hybrid.FailureStrategy)

	assert.NotEmpty(t, cfg.Paths.Code)
	assert.NotEmpty(t, cfg.Paths.Docs)
	assert.NotEmpty(t, cfg.Paths.SensitiveExclude)

	require.NoError(t, Validate(cfg))
}

func setupHomeWithNoGlobalConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	setupHomeWithNoGlobalConfig(t)
	tempDir := t.TempDir()

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, expected.Embedding.Provider, cfg.Embedding.Provider)
	assert.Equal(t, expected.Embedding.Model, cfg.Embedding.Model)
	assert.Equal(t, expected.Embedding.Dimensions, cfg.Embedding.Dimensions)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	setupHomeWithNoGlobalConfig(t)
	tempDir := t.TempDir()
	contextdDir := filepath.Join(tempDir, ".contextd")
	require.NoError(t, os.MkdirAll(contextdDir, 0755))

	configContent := `
embedding:
  provider: openai
  model: text-embedding-3-small
  dimensions: 1536
  endpoint: https://api.openai.com/v1/embeddings

paths:
  code:
    - "**/*.go"
    - "**/*.py"
  docs:
    - "**/*.md"
  ignore:
    - "vendor/**"

chunking:
  doc_chunk_tokens: 1000
`
	require.NoError(t, os.WriteFile(filepath.Join(contextdDir, "config.yml"), []byte(configContent), 0644))

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, []string{"**/*.go", "**/*.py"}, cfg.Paths.Code)
	assert.Equal(t, 1000, cfg.Chunking.DocChunkTokens)
}

func TestLoadConfig_MergesConfigWithDefaults(t *testing.T) {
	setupHomeWithNoGlobalConfig(t)
	tempDir := t.TempDir()
	contextdDir := filepath.Join(tempDir, ".contextd")
	require.NoError(t, os.MkdirAll(contextdDir, 0755))

	configContent := `
embedding:
  provider: openai
  model: custom-model
  dimensions: 1536
  endpoint: https://api.openai.com/v1
`
	require.NoError(t, os.WriteFile(filepath.Join(contextdDir, "config.yml"), []byte(configContent), 0644))

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 800, cfg.Chunking.DocChunkTokens) // default
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv().
	setupHomeWithNoGlobalConfig(t)
	tempDir := t.TempDir()
	contextdDir := filepath.Join(tempDir, ".contextd")
	require.NoError(t, os.MkdirAll(contextdDir, 0755))

	configContent := `
embedding:
  provider: local
  model: file-model
  dimensions: 384
  endpoint: http://localhost:8121
`
	require.NoError(t, os.WriteFile(filepath.Join(contextdDir, "config.yml"), []byte(configContent), 0644))

	t.Setenv("CONTEXTD_EMBED_MODEL", "env-model")
	t.Setenv("CONTEXTD_EMBEDDING_DIMENSIONS", "1536")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "env-model", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, "local", cfg.Embedding.Provider) // not overridden
}

func TestLoadConfig_MaxFileSizeAndParallelismEnvOverrides(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv().
	setupHomeWithNoGlobalConfig(t)
	tempDir := t.TempDir()

	t.Setenv("CONTEXTD_MAX_FILE_SIZE", "1048576")
	t.Setenv("CONTEXTD_PARALLELISM", "4")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, int64(1048576), cfg.Indexing.MaxFileSizeBytes)
	assert.Equal(t, 4, cfg.Indexing.Parallelism)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	setupHomeWithNoGlobalConfig(t)
	tempDir := t.TempDir()
	contextdDir := filepath.Join(tempDir, ".contextd")
	require.NoError(t, os.MkdirAll(contextdDir, 0755))

	malformed := "embedding:\n  provider: local\n  model: \"unclosed\n"
	require.NoError(t, os.WriteFile(filepath.Join(contextdDir, "config.yml"), []byte(malformed), 0644))

	_, err := NewLoader(tempDir).Load()
	assert.Error(t, err)
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	setupHomeWithNoGlobalConfig(t)
	tempDir := t.TempDir()
	contextdDir := filepath.Join(tempDir, ".contextd")
	require.NoError(t, os.MkdirAll(contextdDir, 0755))

	invalid := `
embedding:
  provider: invalid-provider
  model: test-model
  dimensions: -10
  endpoint: http://localhost:8121
`
	require.NoError(t, os.WriteFile(filepath.Join(contextdDir, "config.yml"), []byte(invalid), 0644))

	_, err := NewLoader(tempDir).Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestValidate_AcceptsValidConfiguration(t *testing.T) {
	cfg := Default()
	assert.NoError(t, Validate(cfg))
}

func TestValidate_RejectsInvalidProvider(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "unsupported"
	assert.ErrorIs(t, Validate(cfg), ErrInvalidProvider)
}

func TestValidate_RejectsZeroDimensions(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Dimensions = 0
	assert.ErrorIs(t, Validate(cfg), ErrInvalidDimensions)
}

func TestValidate_RejectsEmptyModel(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Model = ""
	assert.ErrorIs(t, Validate(cfg), ErrEmptyModel)
}

func TestValidate_RejectsEmptyEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Endpoint = ""
	assert.ErrorIs(t, Validate(cfg), ErrEmptyEndpoint)
}

func TestValidate_RejectsWarnSizeAboveMaxSize(t *testing.T) {
	cfg := Default()
	cfg.Indexing.WarnFileSizeBytes = cfg.Indexing.MaxFileSizeBytes + 1
	assert.ErrorIs(t, Validate(cfg), ErrInvalidIndexing)
}

func TestValidate_RejectsNonPositiveK(t *testing.T) {
	cfg := Default()
	cfg.Hybrid.K = 0
	assert.ErrorIs(t, Validate(cfg), ErrInvalidHybrid)
}

func TestValidate_RejectsNonPositiveWeight(t *testing.T) {
	cfg := Default()
	cfg.Hybrid.Weights["semantic"] = -1
	assert.ErrorIs(t, Validate(cfg), ErrInvalidHybrid)
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	cfg := &Config{
		Embedding: EmbeddingConfig{Provider: "invalid", Model: "", Dimensions: -1, Endpoint: ""},
		Chunking:  ChunkingConfig{DocChunkTokens: -100},
		Indexing:  IndexingConfig{MaxFileSizeBytes: -1, EmbeddingBatchSize: 0, Parallelism: -1},
		Hybrid:    HybridConfig{K: 0, FailureStrategy: "bogus", GitCoChangeMin: 0, QueryCacheSize: 0},
	}

	err := Validate(cfg)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "provider")
	assert.Contains(t, msg, "model")
	assert.Contains(t, msg, "dimensions")
	assert.Contains(t, msg, "endpoint")
}
