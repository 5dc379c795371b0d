package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadGlobalConfig loads machine-wide defaults from ~/.contextd/config.yml.
// A missing file is not an error; built-in defaults are returned instead.
func LoadGlobalConfig() (*GlobalConfig, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	contextdDir := filepath.Join(home, ".contextd")

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(contextdDir)

	v.SetEnvPrefix("CONTEXTD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaults := Default()
	v.SetDefault("data_dir", filepath.Join(contextdDir, "data"))
	v.SetDefault("embedding.provider", defaults.Embedding.Provider)
	v.SetDefault("embedding.model", defaults.Embedding.Model)
	v.SetDefault("embedding.dimensions", defaults.Embedding.Dimensions)
	v.SetDefault("embedding.endpoint", defaults.Embedding.Endpoint)
	v.SetDefault("indexing.max_file_size_bytes", defaults.Indexing.MaxFileSizeBytes)
	v.SetDefault("indexing.warn_file_size_bytes", defaults.Indexing.WarnFileSizeBytes)
	v.SetDefault("indexing.embedding_batch_size", defaults.Indexing.EmbeddingBatchSize)
	v.SetDefault("indexing.parallelism", defaults.Indexing.Parallelism)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config file: %w", err)
		}
	}

	cfg := &GlobalConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal global config: %w", err)
	}
	return cfg, nil
}
