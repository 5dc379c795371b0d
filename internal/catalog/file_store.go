package catalog

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/contextd/internal/ctxerr"
)

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanFileState(row interface {
	Scan(dest ...any) error
}) (FileState, error) {
	var f FileState
	var indexedAt string
	var isDeleted, generated int
	err := row.Scan(
		&f.FileID, &f.Root, &f.RelPath, &f.AbsPath, &f.ContentHash,
		&f.SizeBytes, &f.ModTimeNanos, &f.Language, &f.Kind, &f.Fingerprint,
		&indexedAt, &isDeleted, &generated,
	)
	if err != nil {
		return FileState{}, err
	}
	f.IsDeleted = isDeleted != 0
	f.Generated = generated != 0
	f.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return f, nil
}

var fileStateColumns = []string{
	"file_id", "root", "rel_path", "abs_path", "content_hash",
	"size_bytes", "mtime_ns", "language", "kind", "fingerprint",
	"indexed_at", "is_deleted", "generated",
}

// ListAllFiles returns every active (non-deleted) file_state row.
func (c *Catalog) ListAllFiles() ([]FileState, error) {
	rows, err := sq.Select(fileStateColumns...).
		From("file_state").
		Where(sq.Eq{"is_deleted": 0}).
		RunWith(c.db).
		Query()
	if err != nil {
		return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "list all files", err)
	}
	defer rows.Close()

	var out []FileState
	for rows.Next() {
		f, err := scanFileState(rows)
		if err != nil {
			return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "scan file_state row", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FindFileByAbsPath returns the active row for an absolute path, or
// (FileState{}, false, nil) if none exists.
func (c *Catalog) FindFileByAbsPath(absPath string) (FileState, bool, error) {
	row := sq.Select(fileStateColumns...).
		From("file_state").
		Where(sq.Eq{"abs_path": absPath, "is_deleted": 0}).
		RunWith(c.db).
		QueryRow()
	f, err := scanFileState(row)
	if err == sql.ErrNoRows {
		return FileState{}, false, nil
	}
	if err != nil {
		return FileState{}, false, ctxerr.Wrap(ctxerr.ErrCatalog, "find file by abs path", err)
	}
	return f, true, nil
}

// FindFileByRelPath returns the active row for (root, relPath), or
// (FileState{}, false, nil) if none exists.
func (c *Catalog) FindFileByRelPath(root, relPath string) (FileState, bool, error) {
	row := sq.Select(fileStateColumns...).
		From("file_state").
		Where(sq.Eq{"root": root, "rel_path": relPath, "is_deleted": 0}).
		RunWith(c.db).
		QueryRow()
	f, err := scanFileState(row)
	if err == sql.ErrNoRows {
		return FileState{}, false, nil
	}
	if err != nil {
		return FileState{}, false, ctxerr.Wrap(ctxerr.ErrCatalog, "find file by rel path", err)
	}
	return f, true, nil
}

// ListActiveByRoot returns all active rows under a given watch root, keyed
// by relative path, for the ChangeDetector's catalog scan.
func (c *Catalog) ListActiveByRoot(root string) (map[string]FileState, error) {
	rows, err := sq.Select(fileStateColumns...).
		From("file_state").
		Where(sq.Eq{"root": root, "is_deleted": 0}).
		RunWith(c.db).
		Query()
	if err != nil {
		return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "list active by root", err)
	}
	defer rows.Close()

	out := make(map[string]FileState)
	for rows.Next() {
		f, err := scanFileState(rows)
		if err != nil {
			return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "scan file_state row", err)
		}
		out[f.RelPath] = f
	}
	return out, rows.Err()
}

// upsertFileState is the write half of sync_file_artifacts; it must run
// inside the caller's transaction.
func upsertFileState(tx *sql.Tx, f FileState) error {
	_, err := sq.Insert("file_state").
		Columns(fileStateColumns...).
		Values(
			f.FileID, f.Root, f.RelPath, f.AbsPath, f.ContentHash,
			f.SizeBytes, f.ModTimeNanos, f.Language, f.Kind, f.Fingerprint,
			f.IndexedAt.UTC().Format(time.RFC3339), boolToInt(f.IsDeleted), boolToInt(f.Generated),
		).
		Options("OR REPLACE").
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("upsert file_state %s: %w", f.AbsPath, err)
	}
	return nil
}

// UpdateFileMTime corrects the stored mtime for a file whose content hash
// still matches the catalog but whose on-disk mtime has drifted (e.g. a
// touch, a checkout that doesn't preserve timestamps). It does not reclassify
// the file or touch its chunks/embeddings/symbols.
func (c *Catalog) UpdateFileMTime(fileID string, modTimeNanos int64) error {
	_, err := sq.Update("file_state").
		Set("mtime_ns", modTimeNanos).
		Where(sq.Eq{"file_id": fileID}).
		RunWith(c.db).
		Exec()
	if err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "update file mtime", err)
	}
	return nil
}

// DeleteFile marks the file identified by absPath as deleted and removes its
// dependent chunks/embeddings/symbols/links. Absolute-path
// deletion is required so that relative-path collisions across watch roots
// cannot remove the wrong file.
func (c *Catalog) DeleteFile(absPath string) (bool, error) {
	f, found, err := c.FindFileByAbsPath(absPath)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return false, ctxerr.Wrap(ctxerr.ErrCatalog, "begin delete transaction", err)
	}
	defer tx.Rollback()

	// The file row is only marked deleted, so no FK cascade fires from it:
	// chunks and symbols are deleted explicitly below, and embeddings follow
	// their chunks by cascade. Links are not FK-bound (they may reference
	// chunks across files) so clean them explicitly too.
	// from_id references a chunk, so links rooted at this file are found
	// through its chunk ids; to_file_id references a file directly.
	chunkIDs, err := chunkIDsForFile(tx, f.FileID)
	if err != nil {
		return false, ctxerr.Wrap(ctxerr.ErrCatalog, "list chunk ids for file", err)
	}
	linksWhere := sq.Or{sq.Eq{"to_file_id": f.FileID}}
	if len(chunkIDs) > 0 {
		linksWhere = append(linksWhere, sq.Eq{"from_id": chunkIDs})
	}
	if _, err := sq.Delete("links").Where(linksWhere).RunWith(tx).Exec(); err != nil {
		return false, ctxerr.Wrap(ctxerr.ErrCatalog, "delete links for file", err)
	}

	_, err = sq.Update("file_state").
		Set("is_deleted", 1).
		Where(sq.Eq{"file_id": f.FileID}).
		RunWith(tx).
		Exec()
	if err != nil {
		return false, ctxerr.Wrap(ctxerr.ErrCatalog, "mark file deleted", err)
	}

	if _, err := sq.Delete("chunks").Where(sq.Eq{"file_id": f.FileID}).RunWith(tx).Exec(); err != nil {
		return false, ctxerr.Wrap(ctxerr.ErrCatalog, "delete chunks for file", err)
	}
	if _, err := sq.Delete("symbols").Where(sq.Eq{"file_id": f.FileID}).RunWith(tx).Exec(); err != nil {
		return false, ctxerr.Wrap(ctxerr.ErrCatalog, "delete symbols for file", err)
	}

	if err := tx.Commit(); err != nil {
		return false, ctxerr.Wrap(ctxerr.ErrCatalog, "commit delete", err)
	}
	return true, nil
}
