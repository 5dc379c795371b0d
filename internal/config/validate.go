package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidProvider indicates an unsupported embedding provider.
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrInvalidDimensions indicates invalid embedding dimensions.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidChunkSize indicates invalid chunk size configuration.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrEmptyEndpoint indicates a missing embedding endpoint.
	ErrEmptyEndpoint = errors.New("empty embedding endpoint")

	// ErrEmptyModel indicates a missing embedding model.
	ErrEmptyModel = errors.New("empty embedding model")

	// ErrInvalidIndexing indicates invalid indexing resource limits.
	ErrInvalidIndexing = errors.New("invalid indexing configuration")

	// ErrInvalidHybrid indicates invalid hybrid fusion configuration.
	ErrInvalidHybrid = errors.New("invalid hybrid configuration")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}
	if err := validateChunking(&cfg.Chunking); err != nil {
		errs = append(errs, err)
	}
	if err := validateIndexing(&cfg.Indexing); err != nil {
		errs = append(errs, err)
	}
	if err := validateHybrid(&cfg.Hybrid); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	var errs []error

	provider := strings.ToLower(cfg.Provider)
	if provider != "local" && provider != "openai" {
		errs = append(errs, fmt.Errorf("%w: must be 'local' or 'openai', got '%s'", ErrInvalidProvider, cfg.Provider))
	}
	if strings.TrimSpace(cfg.Model) == "" {
		errs = append(errs, fmt.Errorf("%w: model is required", ErrEmptyModel))
	}
	if cfg.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("%w: dimensions must be positive, got %d", ErrInvalidDimensions, cfg.Dimensions))
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		errs = append(errs, fmt.Errorf("%w: endpoint is required", ErrEmptyEndpoint))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateChunking(cfg *ChunkingConfig) error {
	if cfg.DocChunkTokens <= 0 {
		return fmt.Errorf("%w: doc_chunk_tokens must be positive, got %d", ErrInvalidChunkSize, cfg.DocChunkTokens)
	}
	return nil
}

func validateIndexing(cfg *IndexingConfig) error {
	var errs []error

	if cfg.MaxFileSizeBytes <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_file_size_bytes must be positive, got %d", ErrInvalidIndexing, cfg.MaxFileSizeBytes))
	}
	if cfg.WarnFileSizeBytes < 0 {
		errs = append(errs, fmt.Errorf("%w: warn_file_size_bytes cannot be negative, got %d", ErrInvalidIndexing, cfg.WarnFileSizeBytes))
	}
	if cfg.MaxFileSizeBytes > 0 && cfg.WarnFileSizeBytes > cfg.MaxFileSizeBytes {
		errs = append(errs, fmt.Errorf("%w: warn_file_size_bytes (%d) must not exceed max_file_size_bytes (%d)", ErrInvalidIndexing, cfg.WarnFileSizeBytes, cfg.MaxFileSizeBytes))
	}
	if cfg.EmbeddingBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: embedding_batch_size must be positive, got %d", ErrInvalidIndexing, cfg.EmbeddingBatchSize))
	}
	if cfg.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("%w: parallelism cannot be negative, got %d", ErrInvalidIndexing, cfg.Parallelism))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateHybrid(cfg *HybridConfig) error {
	var errs []error

	if cfg.K <= 0 {
		errs = append(errs, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidHybrid, cfg.K))
	}
	for provider, w := range cfg.Weights {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("%w: weight for %q must be positive, got %f", ErrInvalidHybrid, provider, w))
		}
	}
	strategy := strings.ToLower(cfg.FailureStrategy)
	if strategy != "skip" && strategy != "fail" {
		errs = append(errs, fmt.Errorf("%w: failure_strategy must be 'skip' or 'fail', got %q", ErrInvalidHybrid, cfg.FailureStrategy))
	}
	if cfg.GitCoChangeMin < 1 {
		errs = append(errs, fmt.Errorf("%w: git_co_change_min must be at least 1, got %d", ErrInvalidHybrid, cfg.GitCoChangeMin))
	}
	if cfg.QueryCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: query_cache_size must be positive, got %d", ErrInvalidHybrid, cfg.QueryCacheSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
