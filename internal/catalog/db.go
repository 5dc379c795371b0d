// Package catalog is the ACID storage layer for indexed artifacts:
// file_state, chunks, embeddings, symbols, links and usage_metrics. It is
// backed by SQLite and is the single source of truth the indexer commits to
// and the context providers read from.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog wraps a *sql.DB with the bootstrapped schema described in schema.go.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and ensures
// its schema is present. Pass ":memory:" for an ephemeral, process-local
// catalog.
func Open(path string) (*Catalog, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path)
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// go-sqlite3 serializes writers itself; a single connection avoids
	// "database is locked" errors under our own transaction discipline.
	db.SetMaxOpenConns(1)

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if version == "0" {
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Catalog{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DB exposes the underlying connection for callers (providers, CLI status)
// that need read-only ad-hoc queries beyond this package's API.
func (c *Catalog) DB() *sql.DB {
	return c.db
}
