package catalog

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// newTestCatalog creates a fully schema'd, file-backed catalog in t.TempDir().
// File-backed (not :memory:) so that SetMaxOpenConns(1) doesn't starve
// parallel subtests sharing one in-process cache.
func newTestCatalog(t testing.TB) *Catalog {
	t.Helper()
	path := t.TempDir() + "/catalog.db"
	cat, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat
}

func newTestDBMinimal(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", t.TempDir()+"/minimal.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
