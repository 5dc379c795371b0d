package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/mvp-joe/contextd/internal/catalog"
	"github.com/mvp-joe/contextd/internal/embed"
)

// SemanticProvider performs nearest-neighbor search over the catalog's
// embeddings for the configured model, grounded on
// internal/catalog/chunk_reader.go's EmbeddingsForModel brute-force query
// (no ANN index — a local single-project catalog is small enough that a
// linear scan is the simplest correct approach, the same tradeoff the
// teacher's graph searcher makes for its in-memory adjacency scans).
type SemanticProvider struct {
	catalog   *catalog.Catalog
	embedder  embed.Provider
	topK      int
	mmrLambda float64
}

// NewSemanticProvider builds a SemanticProvider. topK bounds the initial
// nearest-neighbor candidate set before MMR rerank and budget truncation.
func NewSemanticProvider(cat *catalog.Catalog, embedder embed.Provider, topK int) *SemanticProvider {
	if topK <= 0 {
		topK = 50
	}
	return &SemanticProvider{catalog: cat, embedder: embedder, topK: topK, mmrLambda: 0.5}
}

func (p *SemanticProvider) ID() string { return "semantic" }

func (p *SemanticProvider) GetContext(ctx context.Context, query string, scope ContextScope, budget TokenBudget) ([]ContextSnippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors, err := p.embedder.Embed(ctx, []string{query}, embed.EmbedModeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := vectors[0]

	embeddings, err := p.catalog.EmbeddingsForModel(p.embedder.Model())
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	var results []SearchResult
	for _, e := range embeddings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, ok, err := p.catalog.ChunkByID(e.ChunkID)
		if err != nil || !ok {
			continue
		}
		file, ok, err := p.catalog.FileByID(chunk.FileID)
		if err != nil || !ok || !file.IsActive() {
			continue
		}
		if !scope.Matches(file.RelPath, file.Language, string(chunk.Kind)) {
			continue
		}
		results = append(results, SearchResult{
			ChunkID:     chunk.ChunkID,
			Score:       cosineSimilarity(queryVec, e.Vector),
			EmbeddingID: e.ID,
			Path:        file.RelPath,
			Language:    file.Language,
			Vector:      e.Vector,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > p.topK {
		results = results[:p.topK]
	}
	results = mmrRerank(results, p.mmrLambda, p.topK)

	var snippets []ContextSnippet
	usedTokens := 0
	available := budget.AvailableForSnippets()
	for _, r := range results {
		chunk, ok, err := p.catalog.ChunkByID(r.ChunkID)
		if err != nil || !ok {
			continue
		}
		tokens := estimateTokens(chunk.Content)
		if available > 0 && usedTokens+tokens > available {
			break
		}
		usedTokens += tokens
		snippets = append(snippets, ContextSnippet{
			ChunkID:   chunk.ChunkID,
			Score:     clampScore(r.Score),
			FilePath:  r.Path,
			Kind:      string(chunk.Kind),
			Text:      chunk.Content,
			Language:  r.Language,
			StartLine: chunk.StartLine,
			EndLine:   chunk.EndLine,
			Provider:  p.ID(),
			Sources:   []string{p.ID()},
		})
	}
	for i := range snippets {
		snippets[i].SourceCount = len(snippets[i].Sources)
	}
	return snippets, nil
}

// clampScore maps cosine similarity (-1..1) into the spec's [0,1] score range.
func clampScore(cosine float64) float64 {
	s := (cosine + 1) / 2
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
