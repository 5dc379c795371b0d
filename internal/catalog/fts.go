package catalog

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/contextd/internal/ctxerr"
)

// FTSHit is one ranked result from a full-text query against chunks_fts.
type FTSHit struct {
	ChunkID string
	Rank    float64 // sqlite's bm25() rank: lower is more relevant
}

// SearchFullText runs a FTS5 MATCH query against chunk content + summary and
// returns up to limit hits ordered by bm25 rank (most relevant first). The
// caller is expected to have already tokenized/sanitized terms; this simply
// joins them with FTS5's implicit AND operator.
func (c *Catalog) SearchFullText(terms []string, limit int) ([]FTSHit, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	match := strings.Join(quoteFTSTerms(terms), " ")
	rows, err := c.db.Query(
		`SELECT chunk_id, bm25(chunks_fts) AS rank FROM chunks_fts WHERE chunks_fts MATCH ? ORDER BY rank LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "fts5 match query", err)
	}
	defer rows.Close()

	var out []FTSHit
	for rows.Next() {
		var h FTSHit
		if err := rows.Scan(&h.ChunkID, &h.Rank); err != nil {
			return nil, ctxerr.Wrap(ctxerr.ErrCatalog, "scan fts hit", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// quoteFTSTerms wraps each term in double quotes so punctuation inside a
// token (e.g. "foo.bar") cannot be misread as FTS5 query syntax.
func quoteFTSTerms(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = fmt.Sprintf("%q", t)
	}
	return out
}
