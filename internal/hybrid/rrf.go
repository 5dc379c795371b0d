// Package hybrid implements C12: HybridProvider's parallel provider fan-out
// with Reciprocal Rank Fusion, and QueryOptimizer's post-processing and
// memoization layered on top of any single provider's results.
package hybrid

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/contextd/internal/providers"
)

// FailureStrategy controls how HybridProvider reacts to a failing provider.
type FailureStrategy string

const (
	// FailureStrategySkip drops a failing provider's contribution and
	// continues fusing the rest.
	FailureStrategySkip FailureStrategy = "skip"
	// FailureStrategyFail surfaces the first provider error and aborts.
	FailureStrategyFail FailureStrategy = "fail"
)

// Config governs RRF fusion. Weight defaults to 1.0 for any provider not
// present in Weights; K defaults to 60.
type Config struct {
	K               int
	Weights         map[string]float64
	FailureStrategy FailureStrategy
}

func (c Config) k() int {
	if c.K <= 0 {
		return 60
	}
	return c.K
}

func (c Config) weight(providerID string) float64 {
	if c.Weights == nil {
		return 1.0
	}
	if w, ok := c.Weights[providerID]; ok && w > 0 {
		return w
	}
	return 1.0
}

// HybridProvider fans out to N configured providers in parallel and fuses
// their ranked results with Reciprocal Rank Fusion, grounded on
// Aman-CERP-amanmcp's pkg/searcher.FusionSearcher (parallel provider
// dispatch via errgroup, fan-in merge) and spec.md §4.12's RRF formula.
type HybridProvider struct {
	providers []providers.Provider
	cfg       Config
}

// NewHybridProvider builds a HybridProvider over the given providers in the
// order supplied; order only affects tie-break stability, not scoring.
func NewHybridProvider(provs []providers.Provider, cfg Config) *HybridProvider {
	return &HybridProvider{providers: provs, cfg: cfg}
}

func (h *HybridProvider) ID() string { return "HYBRID" }

type providerOutcome struct {
	id        string
	snippets  []providers.ContextSnippet
	err       error
	attempted bool
}

// GetContext runs every configured provider concurrently, fuses their
// outputs via RRF, and truncates to the token budget.
func (h *HybridProvider) GetContext(ctx context.Context, query string, scope providers.ContextScope, budget providers.TokenBudget) ([]providers.ContextSnippet, error) {
	outcomes := make([]providerOutcome, len(h.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range h.providers {
		i, p := i, p
		g.Go(func() error {
			snippets, err := p.GetContext(gctx, query, scope, budget)
			outcomes[i] = providerOutcome{id: p.ID(), snippets: snippets, err: err, attempted: true}
			if err != nil && h.cfg.FailureStrategy == FailureStrategyFail {
				return fmt.Errorf("provider %s: %w", p.ID(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type fused struct {
		snippet       providers.ContextSnippet
		score         float64
		providerCount int
		sources       []string
	}
	byChunk := make(map[string]*fused)
	var order []string
	totalProviders := 0

	for _, outcome := range outcomes {
		if outcome.err != nil || !outcome.attempted {
			continue
		}
		totalProviders++
		for rank, snip := range outcome.snippets {
			contribution := h.cfg.weight(outcome.id) / float64(h.cfg.k()+rank+1)
			f, ok := byChunk[snip.ChunkID]
			if !ok {
				f = &fused{snippet: snip}
				byChunk[snip.ChunkID] = f
				order = append(order, snip.ChunkID)
			}
			f.score += contribution
			f.providerCount++
			f.sources = append(f.sources, outcome.id)
		}
	}

	results := make([]*fused, 0, len(order))
	for _, id := range order {
		results = append(results, byChunk[id])
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].snippet.ChunkID < results[j].snippet.ChunkID
	})

	var snippets []providers.ContextSnippet
	usedTokens := 0
	available := budget.AvailableForSnippets()
	for _, f := range results {
		tokens := len(f.snippet.Text) / 4
		if tokens < 1 {
			tokens = 1
		}
		if available > 0 && usedTokens+tokens > available {
			break
		}
		usedTokens += tokens

		snip := f.snippet
		snip.Provider = h.ID()
		snip.Sources = f.sources
		snip.SourceCount = len(uniqueStrings(f.sources))
		if snip.Metadata == nil {
			snip.Metadata = map[string]string{}
		}
		snip.Metadata["rrf_provider_count"] = fmt.Sprintf("%d", f.providerCount)
		if totalProviders > 0 {
			snip.Metadata["rrf_agreement"] = fmt.Sprintf("%.4f", float64(f.providerCount)/float64(totalProviders))
		}
		snippets = append(snippets, snip)
	}
	return snippets, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
