package hybrid

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mvp-joe/contextd/internal/providers"
)

// ProviderStats reports how a single provider performed during one
// Retrieve call.
type ProviderStats struct {
	ProviderID     string
	SnippetCount   int
	DurationMillis int64
	Failed         bool
	Error          string
}

// Diagnostics accompanies every TaskContext so a caller can see why it
// got what it got without the retrieval ever raising an exception.
type Diagnostics struct {
	ProviderStats  []ProviderStats
	TotalDuration  time.Duration
	Warnings       []string
	TokensRequested int
	TokensUsed      int
	FallbackUsed    bool
}

// TaskContext is what ContextRetrievalModule.Retrieve returns: the fitted
// snippets plus enough diagnostics to explain the result.
type TaskContext struct {
	Snippets    []providers.ContextSnippet
	Diagnostics Diagnostics
}

// ContextRetrievalModule is the conceptual top-level glue from spec.md
// §4.12: it invokes the enabled providers, applies the optimizer to each,
// deduplicates and fits the union to budget in one global sort, and falls
// back to a single configured provider if every enabled provider came back
// empty.
type ContextRetrievalModule struct {
	providers []*QueryOptimizer
	fallback  providers.Provider
}

// NewContextRetrievalModule wires the enabled (optimizer-wrapped) providers
// plus an optional fallback provider, tried once if everything else is
// empty — typically the semantic provider, per spec.
func NewContextRetrievalModule(enabled []*QueryOptimizer, fallback providers.Provider) *ContextRetrievalModule {
	return &ContextRetrievalModule{providers: enabled, fallback: fallback}
}

// Retrieve runs every enabled provider, merges their optimized snippets,
// deduplicates by chunk id keeping the best score, and truncates to budget
// in the spec's global sort order (score desc, then path, then chunk id).
func (m *ContextRetrievalModule) Retrieve(ctx context.Context, query string, scope providers.ContextScope, budget providers.TokenBudget) (TaskContext, error) {
	start := time.Now()
	diag := Diagnostics{TokensRequested: budget.AvailableForSnippets()}

	byChunk := make(map[string]providers.ContextSnippet)
	var order []string

	for _, p := range m.providers {
		if err := ctx.Err(); err != nil {
			return TaskContext{}, err
		}
		pStart := time.Now()
		snippets, err := p.GetContext(ctx, query, scope, budget)
		stats := ProviderStats{
			ProviderID:     p.ID(),
			DurationMillis: time.Since(pStart).Milliseconds(),
		}
		if err != nil {
			stats.Failed = true
			stats.Error = err.Error()
			diag.ProviderStats = append(diag.ProviderStats, stats)
			continue
		}
		stats.SnippetCount = len(snippets)
		diag.ProviderStats = append(diag.ProviderStats, stats)
		for _, s := range snippets {
			if existing, ok := byChunk[s.ChunkID]; !ok || s.Score > existing.Score {
				byChunk[s.ChunkID] = s
				if !ok {
					order = append(order, s.ChunkID)
				}
			}
		}
	}

	if len(order) == 0 && m.fallback != nil {
		snippets, err := m.fallback.GetContext(ctx, query, scope, budget)
		diag.FallbackUsed = true
		if err != nil {
			diag.ProviderStats = append(diag.ProviderStats, ProviderStats{
				ProviderID: m.fallback.ID(),
				Failed:     true,
				Error:      err.Error(),
			})
		} else {
			diag.ProviderStats = append(diag.ProviderStats, ProviderStats{
				ProviderID:   m.fallback.ID(),
				SnippetCount: len(snippets),
			})
			for _, s := range snippets {
				byChunk[s.ChunkID] = s
				order = append(order, s.ChunkID)
			}
		}
	}

	if len(order) == 0 {
		diag.Warnings = append(diag.Warnings, "No providers returned context")
		diag.TotalDuration = time.Since(start)
		return TaskContext{Snippets: nil, Diagnostics: diag}, nil
	}

	merged := make([]providers.ContextSnippet, 0, len(order))
	for _, id := range order {
		merged = append(merged, byChunk[id])
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if merged[i].FilePath != merged[j].FilePath {
			return merged[i].FilePath < merged[j].FilePath
		}
		return merged[i].ChunkID < merged[j].ChunkID
	})

	fitted := truncateToBudget(merged, budget)
	used := 0
	for _, s := range fitted {
		tokens := len(s.Text) / 4
		if tokens < 1 {
			tokens = 1
		}
		used += tokens
	}
	diag.TokensUsed = used
	diag.TotalDuration = time.Since(start)

	return TaskContext{Snippets: fitted, Diagnostics: diag}, nil
}

// String renders a ProviderStats line for logs.
func (s ProviderStats) String() string {
	if s.Failed {
		return fmt.Sprintf("%s: failed (%s)", s.ProviderID, s.Error)
	}
	return fmt.Sprintf("%s: %d snippets in %dms", s.ProviderID, s.SnippetCount, s.DurationMillis)
}
