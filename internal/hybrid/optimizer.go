package hybrid

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mvp-joe/contextd/internal/providers"
)

const (
	defaultCacheEntries = 64
	defaultCacheTTL     = 10 * time.Minute
	defaultDefaultK     = 20
	defaultMMRLambda    = 0.5
)

// OptimizerConfig governs QueryOptimizer's post-processing of a single
// provider's raw results.
type OptimizerConfig struct {
	MinScoreThreshold float64
	DefaultK          int
	MMRLambda         float64
	ApplyMMR          bool
	CacheSize         int
	CacheTTL          time.Duration
}

func (c OptimizerConfig) defaultK() int {
	if c.DefaultK <= 0 {
		return defaultDefaultK
	}
	return c.DefaultK
}

func (c OptimizerConfig) mmrLambda() float64 {
	if c.MMRLambda <= 0 {
		return defaultMMRLambda
	}
	return c.MMRLambda
}

type cacheEntry struct {
	snippets []providers.ContextSnippet
	storedAt time.Time
}

// QueryOptimizer wraps a Provider with score filtering, top-k truncation,
// optional MMR rerank and TTL-bounded LRU memoization keyed by the
// normalized query, per spec.md §4.12.
type QueryOptimizer struct {
	inner providers.Provider
	cfg   OptimizerConfig
	cache *lru.Cache[string, cacheEntry]
	mu    sync.Mutex
}

// NewQueryOptimizer wraps inner with the given OptimizerConfig.
func NewQueryOptimizer(inner providers.Provider, cfg OptimizerConfig) (*QueryOptimizer, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheEntries
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cfg.CacheTTL = ttl
	return &QueryOptimizer{inner: inner, cfg: cfg, cache: cache}, nil
}

func (o *QueryOptimizer) ID() string { return o.inner.ID() }

// ClearCache drops all memoized results, regardless of TTL.
func (o *QueryOptimizer) ClearCache() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cache.Purge()
}

func (o *QueryOptimizer) GetContext(ctx context.Context, query string, scope providers.ContextScope, budget providers.TokenBudget) ([]providers.ContextSnippet, error) {
	key := strings.ToLower(strings.TrimSpace(query))

	o.mu.Lock()
	if entry, ok := o.cache.Get(key); ok {
		if time.Since(entry.storedAt) <= o.cfg.CacheTTL {
			o.mu.Unlock()
			return entry.snippets, nil
		}
		o.cache.Remove(key)
	}
	o.mu.Unlock()

	raw, err := o.inner.GetContext(ctx, query, scope, budget)
	if err != nil {
		return nil, err
	}

	filtered := make([]providers.ContextSnippet, 0, len(raw))
	for _, s := range raw {
		if s.Score >= o.cfg.MinScoreThreshold {
			filtered = append(filtered, s)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })
	if len(filtered) > o.cfg.defaultK() {
		filtered = filtered[:o.cfg.defaultK()]
	}

	if o.cfg.ApplyMMR {
		filtered = applyMMRToSnippets(filtered, o.cfg.mmrLambda())
	}

	result := truncateToBudget(filtered, budget)

	o.mu.Lock()
	o.cache.Add(key, cacheEntry{snippets: result, storedAt: time.Now()})
	o.mu.Unlock()

	return result, nil
}

func truncateToBudget(snippets []providers.ContextSnippet, budget providers.TokenBudget) []providers.ContextSnippet {
	available := budget.AvailableForSnippets()
	if available <= 0 {
		return snippets
	}
	used := 0
	out := make([]providers.ContextSnippet, 0, len(snippets))
	for _, s := range snippets {
		tokens := len(s.Text) / 4
		if tokens < 1 {
			tokens = 1
		}
		if used+tokens > available {
			break
		}
		used += tokens
		out = append(out, s)
	}
	return out
}

// applyMMRToSnippets reranks snippets by Maximal Marginal Relevance using a
// token-overlap (Jaccard) diversity proxy, since post-fusion snippets no
// longer carry the embedding vectors semantic.go reranked against — the
// same lambda*relevance - (1-lambda)*maxSimilarity tradeoff as
// internal/providers/mmr.go, generalized to any text snippet.
func applyMMRToSnippets(snippets []providers.ContextSnippet, lambda float64) []providers.ContextSnippet {
	if len(snippets) == 0 {
		return snippets
	}
	tokenSets := make([]map[string]bool, len(snippets))
	for i, s := range snippets {
		tokenSets[i] = tokenSet(s.Text)
	}

	selected := make([]int, 0, len(snippets))
	remaining := make([]int, len(snippets))
	for i := range snippets {
		remaining[i] = i
	}

	for len(remaining) > 0 {
		bestPos := 0
		bestScore := -1e18
		for pos, idx := range remaining {
			maxSim := 0.0
			for _, selIdx := range selected {
				if sim := jaccard(tokenSets[idx], tokenSets[selIdx]); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*snippets[idx].Score - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}
		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	out := make([]providers.ContextSnippet, len(selected))
	for i, idx := range selected {
		out[i] = snippets[idx]
	}
	return out
}

func tokenSet(text string) map[string]bool {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
