package catalog

import (
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/contextd/internal/ctxerr"
)

var chunkColumns = []string{"chunk_id", "file_id", "ordinal", "kind", "start_line", "end_line", "token_count", "content", "summary", "created_at"}

func scanChunk(row interface{ Scan(dest ...any) error }) (Chunk, error) {
	var ch Chunk
	var kind, createdAt string
	err := row.Scan(&ch.ChunkID, &ch.FileID, &ch.Ordinal, &kind, &ch.StartLine, &ch.EndLine, &ch.TokenCount, &ch.Content, &ch.Summary, &createdAt)
	if err != nil {
		return Chunk{}, err
	}
	ch.Kind = ChunkKind(kind)
	ch.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return ch, nil
}

// ChunksForFile returns all chunks for a file, ordered by ordinal.
func (c *Catalog) ChunksForFile(fileID string) ([]Chunk, error) {
	rows, err := sq.Select(chunkColumns...).
		From("chunks").
		Where(sq.Eq{"file_id": fileID}).
		OrderBy("ordinal ASC").
		RunWith(c.db).
		Query()
	if err != nil {
		return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "query chunks for file", err)
	}
	defer rows.Close()
	var out []Chunk
	for rows.Next() {
		ch, err := scanChunk(rows)
		if err != nil {
			return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "scan chunk", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// ChunkByID fetches a single chunk.
func (c *Catalog) ChunkByID(chunkID string) (Chunk, bool, error) {
	row := sq.Select(chunkColumns...).From("chunks").Where(sq.Eq{"chunk_id": chunkID}).RunWith(c.db).QueryRow()
	ch, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return Chunk{}, false, nil
	}
	if err != nil {
		return Chunk{}, false, ctxerr.Wrap(ctxerr.ErrCatalog, "scan chunk by id", err)
	}
	return ch, true, nil
}

// EmbeddingsForModel returns every embedding for a given model, joined with
// the chunk's owning file_id, for brute-force nearest-neighbor search.
func (c *Catalog) EmbeddingsForModel(model string) ([]Embedding, error) {
	rows, err := sq.Select("id", "chunk_id", "model", "dimensions", "vector", "created_at").
		From("embeddings").
		Where(sq.Eq{"model": model}).
		RunWith(c.db).
		Query()
	if err != nil {
		return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "query embeddings for model", err)
	}
	defer rows.Close()

	var out []Embedding
	for rows.Next() {
		var e Embedding
		var blob []byte
		var createdAt string
		if err := rows.Scan(&e.ID, &e.ChunkID, &e.Model, &e.Dimensions, &blob, &createdAt); err != nil {
			return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "scan embedding", err)
		}
		e.Vector = deserializeVector(blob)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SymbolsMatching returns symbols whose name contains the given substring
// (matched with SQLite LIKE, which ignores ASCII letter case), optionally
// restricted to a set of languages.
func (c *Catalog) SymbolsMatching(nameSubstr string, languages []string) ([]Symbol, error) {
	q := sq.Select("symbol_id", "file_id", "symbol_type", "name", "qualified_name", "signature", "language", "start_line", "end_line").
		From("symbols").
		Where(sq.Like{"name": "%" + nameSubstr + "%"})
	if len(languages) > 0 {
		q = q.Where(sq.Eq{"language": languages})
	}
	rows, err := q.RunWith(c.db).Query()
	if err != nil {
		return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "query symbols", err)
	}
	defer rows.Close()

	var out []Symbol
	for rows.Next() {
		var s Symbol
		if err := rows.Scan(&s.SymbolID, &s.FileID, &s.SymbolType, &s.Name, &s.QualifiedName, &s.Signature, &s.Language, &s.StartLine, &s.EndLine); err != nil {
			return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "scan symbol", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FileByID looks up a file_state row by its id, including deleted rows.
func (c *Catalog) FileByID(fileID string) (FileState, bool, error) {
	row := sq.Select(fileStateColumns...).From("file_state").Where(sq.Eq{"file_id": fileID}).RunWith(c.db).QueryRow()
	f, err := scanFileState(row)
	if err == sql.ErrNoRows {
		return FileState{}, false, nil
	}
	if err != nil {
		return FileState{}, false, ctxerr.Wrap(ctxerr.ErrCatalog, "scan file by id", err)
	}
	return f, true, nil
}
