package providers

import (
	"context"
	"sort"
	"strings"

	"github.com/mvp-joe/contextd/internal/catalog"
)

// symbolTypePriority ranks declaration kinds so that, e.g., a function
// definition outranks a bare reference when names tie. Higher is better.
var symbolTypePriority = map[string]int{
	"class":     5,
	"interface": 5,
	"struct":    5,
	"function":  4,
	"method":    4,
	"const":     2,
	"variable":  1,
}

// SymbolProvider token-matches a query against the catalog's heuristically
// extracted symbol index, grounded on internal/catalog/chunk_reader.go's
// SymbolsMatching query and internal/symbols' Symbol.SymbolType taxonomy.
type SymbolProvider struct {
	catalog *catalog.Catalog
	limit   int
}

// NewSymbolProvider builds a SymbolProvider. limit bounds the number of
// symbols returned before token-budget truncation.
func NewSymbolProvider(cat *catalog.Catalog, limit int) *SymbolProvider {
	if limit <= 0 {
		limit = 25
	}
	return &SymbolProvider{catalog: cat, limit: limit}
}

func (p *SymbolProvider) ID() string { return "symbol" }

func (p *SymbolProvider) GetContext(ctx context.Context, query string, scope ContextScope, budget TokenBudget) ([]ContextSnippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenizeQuery(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	symbols, err := p.catalog.SymbolsMatching(tokens[0], scope.Languages)
	if err != nil {
		return nil, err
	}
	for _, tok := range tokens[1:] {
		more, err := p.catalog.SymbolsMatching(tok, scope.Languages)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, more...)
	}
	symbols = dedupSymbols(symbols)

	type scored struct {
		sym   catalog.Symbol
		score float64
	}
	lowerQuery := strings.ToLower(query)
	var ranked []scored
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, ok, err := p.catalog.FileByID(sym.FileID)
		if err != nil || !ok || !file.IsActive() {
			continue
		}
		if !scope.Matches(file.RelPath, sym.Language, "symbol") {
			continue
		}
		score := float64(symbolTypePriority[strings.ToLower(sym.SymbolType)])
		lowerName := strings.ToLower(sym.Name)
		if lowerName == lowerQuery {
			score += 10
		} else if strings.Contains(lowerName, lowerQuery) {
			score += 5
		}
		ranked = append(ranked, scored{sym: sym, score: score})
		_ = file
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > p.limit {
		ranked = ranked[:p.limit]
	}

	var snippets []ContextSnippet
	usedTokens := 0
	available := budget.AvailableForSnippets()
	for _, r := range ranked {
		file, ok, err := p.catalog.FileByID(r.sym.FileID)
		if err != nil || !ok {
			continue
		}
		text := r.sym.Signature
		if text == "" {
			text = r.sym.QualifiedName
		}
		tokensUsed := estimateTokens(text)
		if available > 0 && usedTokens+tokensUsed > available {
			break
		}
		usedTokens += tokensUsed
		snippets = append(snippets, ContextSnippet{
			ChunkID:   r.sym.SymbolID,
			Score:     normalizeSymbolScore(r.score),
			FilePath:  file.RelPath,
			Label:     r.sym.Name,
			Kind:      strings.ToLower(r.sym.SymbolType),
			Text:      text,
			Language:  r.sym.Language,
			StartLine: r.sym.StartLine,
			EndLine:   r.sym.EndLine,
			Provider:  p.ID(),
			Sources:   []string{p.ID()},
		})
	}
	for i := range snippets {
		snippets[i].SourceCount = len(snippets[i].Sources)
	}
	return snippets, nil
}

func normalizeSymbolScore(raw float64) float64 {
	const max = 15.0
	s := raw / max
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}

func dedupSymbols(symbols []catalog.Symbol) []catalog.Symbol {
	seen := make(map[string]bool, len(symbols))
	out := make([]catalog.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if seen[s.SymbolID] {
			continue
		}
		seen[s.SymbolID] = true
		out = append(out, s)
	}
	return out
}

func tokenizeQuery(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		out = append(out, f)
	}
	return out
}
