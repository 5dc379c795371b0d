// Package config loads contextd's project configuration from
// .contextd/config.yml with environment variable overrides, following the
// precedence env > project config file > global config > built-in defaults.
package config

// Config is the complete project configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Chunking  ChunkingConfig  `yaml:"chunking" mapstructure:"chunking"`
	Indexing  IndexingConfig  `yaml:"indexing" mapstructure:"indexing"`
	Hybrid    HybridConfig    `yaml:"hybrid" mapstructure:"hybrid"`
}

// EmbeddingConfig configures the embedding provider (C5 Embedder).
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`     // "local" or "openai"
	Model      string `yaml:"model" mapstructure:"model"`           // e.g., "BAAI/bge-small-en-v1.5"
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"` // embedding vector dimensions
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`     // e.g., "http://localhost:8121"
}

// PathsConfig defines which files to index and which to ignore, and the
// watch roots ChangeDetector resolves paths against.
type PathsConfig struct {
	Roots            []string `yaml:"roots" mapstructure:"roots"`                           // watch roots, longest-prefix matched
	Code             []string `yaml:"code" mapstructure:"code"`                             // glob patterns for code files
	Docs             []string `yaml:"docs" mapstructure:"docs"`                             // glob patterns for documentation
	Ignore           []string `yaml:"ignore" mapstructure:"ignore"`                         // glob patterns to ignore
	SensitiveExclude []string `yaml:"sensitive_exclude" mapstructure:"sensitive_exclude"` // patterns never indexed regardless of Code/Docs
}

// ChunkingConfig defines how content is chunked for indexing.
type ChunkingConfig struct {
	DocChunkTokens int `yaml:"doc_chunk_tokens" mapstructure:"doc_chunk_tokens"` // target tokens per doc chunk
}

// IndexingConfig governs FileIndexer/BatchIndexer resource limits (spec §4.8/§4.9).
type IndexingConfig struct {
	MaxFileSizeBytes    int64 `yaml:"max_file_size_bytes" mapstructure:"max_file_size_bytes"`
	WarnFileSizeBytes   int64 `yaml:"warn_file_size_bytes" mapstructure:"warn_file_size_bytes"`
	EmbeddingBatchSize  int   `yaml:"embedding_batch_size" mapstructure:"embedding_batch_size"`
	Parallelism         int   `yaml:"parallelism" mapstructure:"parallelism"` // 0 = max(1, cpus-1)
}

// HybridConfig governs HybridProvider's RRF fusion and QueryOptimizer's
// post-processing (spec §4.12).
type HybridConfig struct {
	K                 int                `yaml:"k" mapstructure:"k"`
	Weights           map[string]float64 `yaml:"weights" mapstructure:"weights"`
	FailureStrategy   string             `yaml:"failure_strategy" mapstructure:"failure_strategy"` // "skip" or "fail"
	GitCoChangeMin    int                `yaml:"git_co_change_min" mapstructure:"git_co_change_min"`
	QueryCacheSize    int                `yaml:"query_cache_size" mapstructure:"query_cache_size"`
	QueryCacheTTLSecs int                `yaml:"query_cache_ttl_secs" mapstructure:"query_cache_ttl_secs"`
	MinScoreThreshold float64            `yaml:"min_score_threshold" mapstructure:"min_score_threshold"`
	DefaultK          int                `yaml:"default_k" mapstructure:"default_k"`
	MMRLambda         float64            `yaml:"mmr_lambda" mapstructure:"mmr_lambda"`
}

// DefaultSensitivePatterns mirrors the exclusion list scanners use so
// secrets-shaped files never become searchable context (SPEC_FULL.md
// "Sensitive-file exclusion list").
var DefaultSensitivePatterns = []string{
	"**/.env", "**/.env.*",
	"**/*.pem", "**/*.key",
	"**/*credentials*", "**/*secret*",
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Model:      "BAAI/bge-small-en-v1.5",
			Dimensions: 384,
			Endpoint:   "http://localhost:8121",
		},
		Paths: PathsConfig{
			Roots: []string{"."},
			Code: []string{
				"**/*.go", "**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx", "**/*.mjs",
				"**/*.py", "**/*.rs", "**/*.c", "**/*.cpp", "**/*.cc", "**/*.h", "**/*.hpp",
				"**/*.php", "**/*.rb", "**/*.java", "**/*.kt", "**/*.cs", "**/*.swift",
			},
			Docs: []string{
				"**/*.md", "**/*.rst", "**/*.txt",
			},
			Ignore: []string{
				"node_modules/**", "vendor/**", ".git/**", "dist/**", "build/**",
				"target/**", "__pycache__/**", "*.pyc",
			},
			SensitiveExclude: append([]string(nil), DefaultSensitivePatterns...),
		},
		Chunking: ChunkingConfig{
			DocChunkTokens: 800,
		},
		Indexing: IndexingConfig{
			MaxFileSizeBytes:   5 * 1024 * 1024,
			WarnFileSizeBytes:  2 * 1024 * 1024,
			EmbeddingBatchSize: 64,
			Parallelism:        0,
		},
		Hybrid: HybridConfig{
			K:                 60,
			Weights:           map[string]float64{"semantic": 1.0, "symbol": 1.0, "fulltext": 1.0, "git_history": 1.0},
			FailureStrategy:   "skip",
			GitCoChangeMin:    2,
			QueryCacheSize:    64,
			QueryCacheTTLSecs: 600,
			MinScoreThreshold: 0,
			DefaultK:          20,
			MMRLambda:         0.5,
		},
	}
}
