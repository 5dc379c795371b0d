// Package config supports two configuration scopes:
//
// 1. Global configuration (~/.contextd/config.yml): machine-wide defaults —
//    default embedding settings and indexing limits — that apply across
//    every project unless a project overrides them.
// 2. Project configuration (.contextd/config.yml): per-project settings
//    (paths, chunking, indexing limits, hybrid fusion weights).
//
// Precedence (highest to lowest): environment variables (CONTEXTD_*) >
// project config file > global config file > built-in defaults.
package config

// GlobalConfig holds machine-wide defaults loaded from
// ~/.contextd/config.yml.
type GlobalConfig struct {
	DataDir   string          `yaml:"data_dir" mapstructure:"data_dir"` // loaded (default ~/.contextd/data) but not used to place the catalog, which lives at <root>/.contextd/catalog.db
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Indexing  IndexingConfig  `yaml:"indexing" mapstructure:"indexing"`
}
