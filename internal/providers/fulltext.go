package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mvp-joe/contextd/internal/catalog"
)

// FullTextProvider performs BM25-style keyword search over chunk content
// and summaries, grounded on the teacher's bleve-based exact_searcher.go
// (internal/mcp/exact_searcher.go): an in-memory index with a custom field
// mapping, batched loading, and QueryStringQuery-driven search.
type FullTextProvider struct {
	catalog *catalog.Catalog
	mu      sync.RWMutex
	index   bleve.Index
	limit   int
}

// NewFullTextProvider builds a FullTextProvider and indexes every active
// chunk currently in the catalog. Call RefreshIndex after an indexing run
// to keep the in-memory index current.
func NewFullTextProvider(ctx context.Context, cat *catalog.Catalog, limit int) (*FullTextProvider, error) {
	if limit <= 0 {
		limit = 25
	}
	p := &FullTextProvider{catalog: cat, limit: limit}
	index, err := bleve.NewMemOnly(buildFullTextMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	p.index = index
	if err := p.RefreshIndex(ctx); err != nil {
		index.Close()
		return nil, err
	}
	return p, nil
}

func buildFullTextMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	content := bleve.NewTextFieldMapping()
	content.Analyzer = "standard"
	content.Store = true
	content.Index = true
	content.IncludeTermVectors = true

	summary := bleve.NewTextFieldMapping()
	summary.Analyzer = "standard"
	summary.Store = true
	summary.Index = true

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.Index = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", content)
	doc.AddFieldMappingsAt("summary", summary)
	doc.AddFieldMappingsAt("file_path", keyword)
	doc.AddFieldMappingsAt("language", keyword)
	doc.AddFieldMappingsAt("kind", keyword)

	indexMapping.DefaultMapping = doc
	return indexMapping
}

type fullTextDoc struct {
	Content  string `json:"content"`
	Summary  string `json:"summary"`
	FilePath string `json:"file_path"`
	Language string `json:"language"`
	Kind     string `json:"kind"`
	Start    int    `json:"start_line"`
	End      int    `json:"end_line"`
}

// RefreshIndex rebuilds the in-memory index from the catalog's current
// active files and chunks. Cheap enough to call after every indexing run
// for a single-project catalog; batched the way the teacher batches bleve
// writes (1000 docs per Batch()).
func (p *FullTextProvider) RefreshIndex(ctx context.Context) error {
	files, err := p.catalog.ListAllFiles()
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	fresh, err := bleve.NewMemOnly(buildFullTextMapping())
	if err != nil {
		return fmt.Errorf("create bleve index: %w", err)
	}

	const batchSize = 1000
	batch := fresh.NewBatch()
	count := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			fresh.Close()
			return err
		}
		if !f.IsActive() {
			continue
		}
		chunks, err := p.catalog.ChunksForFile(f.FileID)
		if err != nil {
			fresh.Close()
			return fmt.Errorf("chunks for %s: %w", f.RelPath, err)
		}
		for _, ch := range chunks {
			doc := fullTextDoc{
				Content:  ch.Content,
				Summary:  ch.Summary,
				FilePath: f.RelPath,
				Language: f.Language,
				Kind:     string(ch.Kind),
				Start:    ch.StartLine,
				End:      ch.EndLine,
			}
			if err := batch.Index(ch.ChunkID, doc); err != nil {
				fresh.Close()
				return fmt.Errorf("index chunk %s: %w", ch.ChunkID, err)
			}
			count++
			if batch.Size() >= batchSize {
				if err := fresh.Batch(batch); err != nil {
					fresh.Close()
					return fmt.Errorf("execute batch: %w", err)
				}
				batch = fresh.NewBatch()
			}
		}
	}
	if batch.Size() > 0 {
		if err := fresh.Batch(batch); err != nil {
			fresh.Close()
			return fmt.Errorf("execute final batch: %w", err)
		}
	}

	p.mu.Lock()
	old := p.index
	p.index = fresh
	p.mu.Unlock()
	if old != nil {
		return old.Close()
	}
	return nil
}

func (p *FullTextProvider) ID() string { return "fulltext" }

func (p *FullTextProvider) GetContext(ctx context.Context, rawQuery string, scope ContextScope, budget TokenBudget) ([]ContextSnippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keywords := extractKeywords(rawQuery)
	if len(keywords) == 0 {
		return nil, nil
	}

	var queries []query.Query
	queries = append(queries, bleve.NewQueryStringQuery(strings.Join(keywords, " ")))
	for _, lang := range scope.Languages {
		q := bleve.NewMatchQuery(lang)
		q.SetField("language")
		queries = append(queries, q)
	}
	for _, kind := range scope.Kinds {
		q := bleve.NewMatchQuery(kind)
		q.SetField("kind")
		queries = append(queries, q)
	}

	var finalQuery query.Query = queries[0]
	if len(queries) > 1 {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(finalQuery, p.limit, 0, false)
	req.Fields = []string{"content", "summary", "file_path", "language", "kind", "start_line", "end_line"}

	p.mu.RLock()
	result, err := p.index.SearchInContext(ctx, req)
	p.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	var snippets []ContextSnippet
	usedTokens := 0
	available := budget.AvailableForSnippets()
	for _, hit := range result.Hits {
		filePath, _ := hit.Fields["file_path"].(string)
		if !scope.matchesPath(filePath) {
			continue
		}
		content, _ := hit.Fields["content"].(string)
		summary, _ := hit.Fields["summary"].(string)
		language, _ := hit.Fields["language"].(string)
		kind, _ := hit.Fields["kind"].(string)
		startLine := fieldInt(hit.Fields["start_line"])
		endLine := fieldInt(hit.Fields["end_line"])

		tokens := estimateTokens(content)
		if available > 0 && usedTokens+tokens > available {
			break
		}
		usedTokens += tokens
		snippets = append(snippets, ContextSnippet{
			ChunkID:   hit.ID,
			Score:     clampScore(hit.Score*2 - 1),
			FilePath:  filePath,
			Kind:      kind,
			Text:      content,
			Language:  language,
			StartLine: startLine,
			EndLine:   endLine,
			Metadata:  map[string]string{"summary": summary},
			Provider:  p.ID(),
			Sources:   []string{p.ID()},
		})
	}
	for i := range snippets {
		snippets[i].SourceCount = len(snippets[i].Sources)
	}
	return snippets, nil
}

// Close releases the underlying bleve index.
func (p *FullTextProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index == nil {
		return nil
	}
	return p.index.Close()
}

func fieldInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "is": true, "for": true, "on": true, "with": true,
	"that": true, "this": true, "it": true, "as": true, "are": true, "be": true,
	"how": true, "what": true, "does": true, "do": true,
}

// extractKeywords lowercases the query, drops stopwords and tokens shorter
// than two characters.
func extractKeywords(q string) []string {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		lower := strings.ToLower(f)
		if len(lower) < 2 || stopwords[lower] {
			continue
		}
		out = append(out, lower)
	}
	return out
}
