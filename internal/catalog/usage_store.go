package catalog

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/contextd/internal/ctxerr"
)

// RecordUsage persists one retrieval call's telemetry.
func (c *Catalog) RecordUsage(m UsageMetric) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := sq.Insert("usage_metrics").
		Columns("metric_id", "task_id", "snippets_returned", "total_tokens", "retrieval_latency_ms", "created_at").
		Values(m.MetricID, m.TaskID, m.SnippetsReturned, m.TotalTokens, m.RetrievalLatencyMs, m.CreatedAt.Format(time.RFC3339)).
		RunWith(c.db).
		Exec()
	if err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "record usage metric", err)
	}
	return nil
}

// Totals summarizes catalog contents for the status CLI command.
type Totals struct {
	TotalFiles   int
	TotalChunks  int
	TotalSymbols int
	LastIndexed  string
}

// Totals reports aggregate counts used by `contextd status`.
func (c *Catalog) Totals() (Totals, error) {
	var t Totals
	row := c.db.QueryRow(`SELECT COUNT(*) FROM file_state WHERE is_deleted = 0`)
	if err := row.Scan(&t.TotalFiles); err != nil {
		return Totals{}, ctxerr.Wrap(ctxerr.ErrCatalog, "count files", err)
	}
	row = c.db.QueryRow(`SELECT COUNT(*) FROM chunks`)
	if err := row.Scan(&t.TotalChunks); err != nil {
		return Totals{}, ctxerr.Wrap(ctxerr.ErrCatalog, "count chunks", err)
	}
	row = c.db.QueryRow(`SELECT COUNT(*) FROM symbols`)
	if err := row.Scan(&t.TotalSymbols); err != nil {
		return Totals{}, ctxerr.Wrap(ctxerr.ErrCatalog, "count symbols", err)
	}
	row = c.db.QueryRow(`SELECT value FROM cache_metadata WHERE key = 'last_indexed'`)
	_ = row.Scan(&t.LastIndexed)
	return t, nil
}

// SetLastIndexed stamps the most recent successful indexing pass.
func (c *Catalog) SetLastIndexed(ts time.Time) error {
	_, err := c.db.Exec(
		`INSERT INTO cache_metadata (key, value, updated_at) VALUES ('last_indexed', ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		ts.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return ctxerr.Wrap(ctxerr.ErrCatalog, "set last indexed", err)
	}
	return nil
}
