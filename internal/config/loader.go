package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader loads project configuration.
type Loader interface {
	// Load loads configuration with precedence env > project config file >
	// global config > built-in defaults.
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader rooted at rootDir.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".contextd")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CONTEXTD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)
	setDefaults(v)

	global, err := LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}
	applyGlobalOverrides(v, global)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("embedding.provider")
	v.BindEnv("embedding.model", "CONTEXTD_EMBED_MODEL")
	v.BindEnv("embedding.dimensions")
	v.BindEnv("embedding.endpoint")

	v.BindEnv("chunking.doc_chunk_tokens")

	v.BindEnv("indexing.max_file_size_bytes", "CONTEXTD_MAX_FILE_SIZE")
	v.BindEnv("indexing.warn_file_size_bytes")
	v.BindEnv("indexing.embedding_batch_size")
	v.BindEnv("indexing.parallelism", "CONTEXTD_PARALLELISM")

	v.BindEnv("hybrid.k")
	v.BindEnv("hybrid.failure_strategy")
	v.BindEnv("hybrid.git_co_change_min")
	v.BindEnv("hybrid.query_cache_size")
}

// setDefaults seeds viper with the built-in defaults; applyGlobalOverrides
// layers the global config's defaults on top (still below project file and
// env, both of which viper resolves ahead of SetDefault values).
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.endpoint", d.Embedding.Endpoint)

	v.SetDefault("paths.roots", d.Paths.Roots)
	v.SetDefault("paths.code", d.Paths.Code)
	v.SetDefault("paths.docs", d.Paths.Docs)
	v.SetDefault("paths.ignore", d.Paths.Ignore)
	v.SetDefault("paths.sensitive_exclude", d.Paths.SensitiveExclude)

	v.SetDefault("chunking.doc_chunk_tokens", d.Chunking.DocChunkTokens)

	v.SetDefault("indexing.max_file_size_bytes", d.Indexing.MaxFileSizeBytes)
	v.SetDefault("indexing.warn_file_size_bytes", d.Indexing.WarnFileSizeBytes)
	v.SetDefault("indexing.embedding_batch_size", d.Indexing.EmbeddingBatchSize)
	v.SetDefault("indexing.parallelism", d.Indexing.Parallelism)

	v.SetDefault("hybrid.k", d.Hybrid.K)
	v.SetDefault("hybrid.weights", d.Hybrid.Weights)
	v.SetDefault("hybrid.failure_strategy", d.Hybrid.FailureStrategy)
	v.SetDefault("hybrid.git_co_change_min", d.Hybrid.GitCoChangeMin)
	v.SetDefault("hybrid.query_cache_size", d.Hybrid.QueryCacheSize)
	v.SetDefault("hybrid.query_cache_ttl_secs", d.Hybrid.QueryCacheTTLSecs)
	v.SetDefault("hybrid.min_score_threshold", d.Hybrid.MinScoreThreshold)
	v.SetDefault("hybrid.default_k", d.Hybrid.DefaultK)
	v.SetDefault("hybrid.mmr_lambda", d.Hybrid.MMRLambda)
}

// applyGlobalOverrides raises the embedding/indexing defaults to whatever
// the machine-wide global config specifies, so a global config file can
// change a project's effective defaults without that project setting
// anything itself.
func applyGlobalOverrides(v *viper.Viper, global *GlobalConfig) {
	v.SetDefault("embedding.provider", global.Embedding.Provider)
	v.SetDefault("embedding.model", global.Embedding.Model)
	v.SetDefault("embedding.dimensions", global.Embedding.Dimensions)
	v.SetDefault("embedding.endpoint", global.Embedding.Endpoint)

	v.SetDefault("indexing.max_file_size_bytes", global.Indexing.MaxFileSizeBytes)
	v.SetDefault("indexing.warn_file_size_bytes", global.Indexing.WarnFileSizeBytes)
	v.SetDefault("indexing.embedding_batch_size", global.Indexing.EmbeddingBatchSize)
	v.SetDefault("indexing.parallelism", global.Indexing.Parallelism)
}

// LoadConfig loads configuration rooted at the current working directory.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration rooted at rootDir.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
