package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// CurrentSchemaVersion is bumped whenever the DDL below changes shape.
const CurrentSchemaVersion = "1"

// CreateSchema creates all tables, indexes, the FTS5 virtual table and its
// sync triggers. Table creation runs inside a transaction; the virtual table
// and its triggers are created outside one, mirroring sqlite's requirement
// that CREATE VIRTUAL TABLE not be wrapped together with ordinary DDL when
// the module itself opens nested statements.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	stmts := []struct {
		name string
		ddl  string
	}{
		{"file_state", createFileStateTable},
		{"chunks", createChunksTable},
		{"embeddings", createEmbeddingsTable},
		{"symbols", createSymbolsTable},
		{"links", createLinksTable},
		{"usage_metrics", createUsageMetricsTable},
		{"cache_metadata", createCacheMetadataTable},
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", s.name, err)
		}
	}

	for i, idx := range allIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("create index %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}

	if _, err := db.Exec(createChunksFTSTable); err != nil {
		return fmt.Errorf("create fts table: %w", err)
	}
	if err := createFTSTriggers(db); err != nil {
		return fmt.Errorf("create fts triggers: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = db.Exec(`
		INSERT INTO cache_metadata (key, value, updated_at) VALUES
			('schema_version', ?, ?),
			('last_indexed', '', ?)
	`, CurrentSchemaVersion, now, now)
	if err != nil {
		return fmt.Errorf("bootstrap cache_metadata: %w", err)
	}
	return nil
}

// GetSchemaVersion returns "0" for a database that hasn't been bootstrapped.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='cache_metadata'`).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("check cache_metadata: %w", err)
	}
	if exists == 0 {
		return "0", nil
	}
	var version string
	err = db.QueryRow(`SELECT value FROM cache_metadata WHERE key = 'schema_version'`).Scan(&version)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("query schema version: %w", err)
	}
	return version, nil
}

const createFileStateTable = `
CREATE TABLE file_state (
    file_id       TEXT PRIMARY KEY,
    root          TEXT NOT NULL,
    rel_path      TEXT NOT NULL,
    abs_path      TEXT NOT NULL,
    content_hash  TEXT NOT NULL,
    size_bytes    INTEGER NOT NULL DEFAULT 0,
    mtime_ns      INTEGER NOT NULL DEFAULT 0,
    language      TEXT NOT NULL DEFAULT '',
    kind          TEXT NOT NULL DEFAULT '',
    fingerprint   TEXT NOT NULL DEFAULT '',
    indexed_at    TEXT NOT NULL,
    is_deleted    INTEGER NOT NULL DEFAULT 0,
    generated     INTEGER NOT NULL DEFAULT 0
)
`

// Partial unique index: only one active row per absolute path. Deleted rows
// are retained for audit/history and do not participate in the constraint.
const idxFileStateAbsPathActive = `
CREATE UNIQUE INDEX idx_file_state_abs_path_active ON file_state(abs_path) WHERE is_deleted = 0
`

const createChunksTable = `
CREATE TABLE chunks (
    chunk_id    TEXT PRIMARY KEY,
    file_id     TEXT NOT NULL,
    ordinal     INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    start_line  INTEGER NOT NULL,
    end_line    INTEGER NOT NULL,
    token_count INTEGER NOT NULL DEFAULT 1,
    content     TEXT NOT NULL,
    summary     TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL,
    FOREIGN KEY (file_id) REFERENCES file_state(file_id) ON DELETE CASCADE
)
`

const createChunksFTSTable = `
CREATE VIRTUAL TABLE chunks_fts USING fts5(
    chunk_id UNINDEXED,
    content,
    summary,
    tokenize = "unicode61 separators '._'"
)
`

const createEmbeddingsTable = `
CREATE TABLE embeddings (
    id         TEXT PRIMARY KEY,
    chunk_id   TEXT NOT NULL,
    model      TEXT NOT NULL,
    dimensions INTEGER NOT NULL,
    vector     BLOB NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (chunk_id) REFERENCES chunks(chunk_id) ON DELETE CASCADE,
    UNIQUE(chunk_id, model)
)
`

const createSymbolsTable = `
CREATE TABLE symbols (
    symbol_id      TEXT PRIMARY KEY,
    file_id        TEXT NOT NULL,
    symbol_type    TEXT NOT NULL,
    name           TEXT NOT NULL,
    qualified_name TEXT NOT NULL DEFAULT '',
    signature      TEXT NOT NULL DEFAULT '',
    language       TEXT NOT NULL DEFAULT '',
    start_line     INTEGER NOT NULL,
    end_line       INTEGER NOT NULL,
    FOREIGN KEY (file_id) REFERENCES file_state(file_id) ON DELETE CASCADE
)
`

const createLinksTable = `
CREATE TABLE links (
    link_id      TEXT PRIMARY KEY,
    from_id      TEXT NOT NULL,
    to_id        TEXT NOT NULL DEFAULT '',
    to_file_id   TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL,
    label        TEXT NOT NULL DEFAULT '',
    score        REAL NOT NULL DEFAULT 0
)
`

const createUsageMetricsTable = `
CREATE TABLE usage_metrics (
    metric_id            TEXT PRIMARY KEY,
    task_id              TEXT NOT NULL DEFAULT '',
    snippets_returned    INTEGER NOT NULL DEFAULT 0,
    total_tokens         INTEGER NOT NULL DEFAULT 0,
    retrieval_latency_ms INTEGER NOT NULL DEFAULT 0,
    created_at           TEXT NOT NULL
)
`

const createCacheMetadataTable = `
CREATE TABLE cache_metadata (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

func allIndexes() []string {
	return []string{
		idxFileStateAbsPathActive,
		"CREATE INDEX idx_file_state_root_rel ON file_state(root, rel_path)",
		"CREATE INDEX idx_file_state_is_deleted ON file_state(is_deleted)",
		"CREATE INDEX idx_chunks_file_id ON chunks(file_id)",
		"CREATE INDEX idx_chunks_ordinal ON chunks(file_id, ordinal)",
		"CREATE INDEX idx_embeddings_chunk_id ON embeddings(chunk_id)",
		"CREATE INDEX idx_embeddings_model ON embeddings(model)",
		"CREATE INDEX idx_symbols_file_id ON symbols(file_id)",
		"CREATE INDEX idx_symbols_name ON symbols(name)",
		"CREATE INDEX idx_links_from_id ON links(from_id)",
		"CREATE INDEX idx_links_to_id ON links(to_id)",
	}
}

// createFTSTriggers keeps chunks_fts synchronized with chunks. Mirrors the
// files/files_fts trigger trio used for whole-file full-text search, applied
// here at chunk granularity since providers search chunk content + summary.
func createFTSTriggers(db *sql.DB) error {
	triggers := []string{
		`CREATE TRIGGER chunks_fts_insert AFTER INSERT ON chunks BEGIN
			INSERT INTO chunks_fts(chunk_id, content, summary) VALUES (new.chunk_id, new.content, new.summary);
		END`,
		`CREATE TRIGGER chunks_fts_update AFTER UPDATE OF content, summary ON chunks BEGIN
			DELETE FROM chunks_fts WHERE chunk_id = old.chunk_id;
			INSERT INTO chunks_fts(chunk_id, content, summary) VALUES (new.chunk_id, new.content, new.summary);
		END`,
		`CREATE TRIGGER chunks_fts_delete AFTER DELETE ON chunks BEGIN
			DELETE FROM chunks_fts WHERE chunk_id = old.chunk_id;
		END`,
	}
	for i, t := range triggers {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("create trigger %d: %w", i+1, err)
		}
	}
	return nil
}
