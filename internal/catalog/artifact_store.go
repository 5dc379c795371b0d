package catalog

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/contextd/internal/ctxerr"
)

// SyncFileArtifacts is the Catalog's single write path for a freshly indexed
// file. In one transaction it upserts the FileState row, deletes any prior
// chunks/embeddings/links owned by that file, and inserts the replacement
// set in ordinal order. Concurrent syncs for the same file serialize on
// SQLite's own single-writer lock; syncs for different files do not block
// each other beyond that.
func (c *Catalog) SyncFileArtifacts(a FileArtifacts) error {
	tx, err := c.db.Begin()
	if err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "begin sync transaction", err)
	}
	defer tx.Rollback()

	if err := upsertFileState(tx, a.File); err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "upsert file state", err)
	}

	priorChunkIDs, err := chunkIDsForFile(tx, a.File.FileID)
	if err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "list prior chunk ids", err)
	}
	// links.from_id references a chunk, not a file, so prior links for this
	// file are found through its prior chunks, not a.File.FileID directly.
	if len(priorChunkIDs) > 0 {
		if _, err := sq.Delete("links").Where(sq.Eq{"from_id": priorChunkIDs}).RunWith(tx).Exec(); err != nil {
			return ctxerr.Wrap(ctxerr.ErrCatalog, "delete prior links", err)
		}
	}

	if _, err := sq.Delete("chunks").Where(sq.Eq{"file_id": a.File.FileID}).RunWith(tx).Exec(); err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "delete prior chunks", err)
	}
	if _, err := sq.Delete("symbols").Where(sq.Eq{"file_id": a.File.FileID}).RunWith(tx).Exec(); err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "delete prior symbols", err)
	}

	for i, ch := range a.Chunks {
		if ch.Ordinal != i {
			ch.Ordinal = i // enforce dense ordinals per spec invariant
		}
		if _, err := insertChunk(tx, ch); err != nil {
			return ctxerr.Wrap(ctxerr.ErrCatalog, fmt.Sprintf("insert chunk %d", i), err)
		}
	}
	for _, e := range a.Embeddings {
		if _, err := insertEmbedding(tx, e); err != nil {
			return ctxerr.Wrap(ctxerr.ErrCatalog, "insert embedding", err)
		}
	}
	for _, s := range a.Symbols {
		if _, err := insertSymbol(tx, s); err != nil {
			return ctxerr.Wrap(ctxerr.ErrCatalog, "insert symbol", err)
		}
	}
	for _, l := range a.Links {
		if _, err := insertLink(tx, l); err != nil {
			return ctxerr.Wrap(ctxerr.ErrCatalog, "insert link", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "commit sync", err)
	}
	return nil
}

// chunkIDsForFile returns the chunk ids currently owned by a file, so callers
// can clean up rows (e.g. links) that reference a chunk rather than a file.
func chunkIDsForFile(tx *sql.Tx, fileID string) ([]string, error) {
	rows, err := sq.Select("chunk_id").From("chunks").Where(sq.Eq{"file_id": fileID}).RunWith(tx).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertChunk(tx *sql.Tx, ch Chunk) (sql.Result, error) {
	return sq.Insert("chunks").
		Columns("chunk_id", "file_id", "ordinal", "kind", "start_line", "end_line", "token_count", "content", "summary", "created_at").
		Values(ch.ChunkID, ch.FileID, ch.Ordinal, string(ch.Kind), ch.StartLine, ch.EndLine, ch.TokenCount, ch.Content, ch.Summary, ch.CreatedAt.UTC().Format(time.RFC3339)).
		Options("OR REPLACE").
		RunWith(tx).
		Exec()
}

func insertEmbedding(tx *sql.Tx, e Embedding) (sql.Result, error) {
	return sq.Insert("embeddings").
		Columns("id", "chunk_id", "model", "dimensions", "vector", "created_at").
		Values(e.ID, e.ChunkID, e.Model, e.Dimensions, serializeVector(e.Vector), e.CreatedAt.UTC().Format(time.RFC3339)).
		Options("OR REPLACE").
		RunWith(tx).
		Exec()
}

func insertSymbol(tx *sql.Tx, s Symbol) (sql.Result, error) {
	return sq.Insert("symbols").
		Columns("symbol_id", "file_id", "symbol_type", "name", "qualified_name", "signature", "language", "start_line", "end_line").
		Values(s.SymbolID, s.FileID, s.SymbolType, s.Name, s.QualifiedName, s.Signature, s.Language, s.StartLine, s.EndLine).
		Options("OR REPLACE").
		RunWith(tx).
		Exec()
}

func insertLink(tx *sql.Tx, l Link) (sql.Result, error) {
	return sq.Insert("links").
		Columns("link_id", "from_id", "to_id", "to_file_id", "type", "label", "score").
		Values(l.LinkID, l.FromID, l.ToID, l.ToFileID, l.Type, l.Label, l.Score).
		Options("OR REPLACE").
		RunWith(tx).
		Exec()
}

// ReplaceSymbolsForFile deletes and reinserts the symbol set for a file
// outside of a full artifact sync (used when only re-extracting symbols).
func (c *Catalog) ReplaceSymbolsForFile(fileID string, symbols []Symbol) error {
	tx, err := c.db.Begin()
	if err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "begin replace symbols transaction", err)
	}
	defer tx.Rollback()

	if _, err := sq.Delete("symbols").Where(sq.Eq{"file_id": fileID}).RunWith(tx).Exec(); err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "delete prior symbols", err)
	}
	for _, s := range symbols {
		if _, err := insertSymbol(tx, s); err != nil {
			return ctxerr.Wrap(ctxerr.ErrCatalog, "insert symbol", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "commit replace symbols", err)
	}
	return nil
}

// serializeVector packs a float32 slice into a little-endian byte blob for
// storage; deserializeVector is its inverse.
func serializeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeVector(buf []byte) []float32 {
	n := len(buf) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
