package hybrid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/contextd/internal/providers"
)

type countingProvider struct {
	id       string
	calls    int
	snippets []providers.ContextSnippet
}

func (c *countingProvider) ID() string { return c.id }

func (c *countingProvider) GetContext(ctx context.Context, query string, scope providers.ContextScope, budget providers.TokenBudget) ([]providers.ContextSnippet, error) {
	c.calls++
	return c.snippets, nil
}

func TestQueryOptimizer_FiltersBelowMinScoreThreshold(t *testing.T) {
	inner := &countingProvider{id: "inner", snippets: []providers.ContextSnippet{
		{ChunkID: "1", Score: 0.9, Text: "good"},
		{ChunkID: "2", Score: 0.1, Text: "weak"},
	}}
	o, err := NewQueryOptimizer(inner, OptimizerConfig{MinScoreThreshold: 0.5})
	require.NoError(t, err)

	result, err := o.GetContext(context.Background(), "q", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 10000})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "1", result[0].ChunkID)
}

func TestQueryOptimizer_TruncatesToDefaultK(t *testing.T) {
	snippets := make([]providers.ContextSnippet, 5)
	for i := range snippets {
		snippets[i] = providers.ContextSnippet{ChunkID: string(rune('a' + i)), Score: 1.0 - float64(i)*0.01, Text: "x"}
	}
	inner := &countingProvider{id: "inner", snippets: snippets}
	o, err := NewQueryOptimizer(inner, OptimizerConfig{DefaultK: 2})
	require.NoError(t, err)

	result, err := o.GetContext(context.Background(), "q", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 10000})
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestQueryOptimizer_MemoizesWithinTTL(t *testing.T) {
	inner := &countingProvider{id: "inner", snippets: []providers.ContextSnippet{{ChunkID: "1", Score: 1, Text: "x"}}}
	o, err := NewQueryOptimizer(inner, OptimizerConfig{CacheTTL: time.Minute})
	require.NoError(t, err)

	_, err = o.GetContext(context.Background(), "Some Query", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 10000})
	require.NoError(t, err)
	_, err = o.GetContext(context.Background(), "some query", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 10000})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "normalized-lowercase query should hit the cache on the second call")
}

func TestQueryOptimizer_ClearCacheForcesRecompute(t *testing.T) {
	inner := &countingProvider{id: "inner", snippets: []providers.ContextSnippet{{ChunkID: "1", Score: 1, Text: "x"}}}
	o, err := NewQueryOptimizer(inner, OptimizerConfig{})
	require.NoError(t, err)

	_, err = o.GetContext(context.Background(), "q", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 10000})
	require.NoError(t, err)
	o.ClearCache()
	_, err = o.GetContext(context.Background(), "q", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 10000})
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestApplyMMRToSnippets_PrefersDiverseText(t *testing.T) {
	snippets := []providers.ContextSnippet{
		{ChunkID: "1", Score: 1.0, Text: "alpha beta gamma"},
		{ChunkID: "2", Score: 0.95, Text: "alpha beta gamma delta"}, // near-duplicate
		{ChunkID: "3", Score: 0.5, Text: "completely unrelated words here"},
	}
	reranked := applyMMRToSnippets(snippets, 0.5)
	require.Len(t, reranked, 3)
	assert.Equal(t, "1", reranked[0].ChunkID)
	assert.Equal(t, "3", reranked[1].ChunkID, "diverse snippet should be preferred over the near-duplicate")
}
