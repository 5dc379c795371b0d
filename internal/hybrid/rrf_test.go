package hybrid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/contextd/internal/providers"
)

type fakeProvider struct {
	id       string
	snippets []providers.ContextSnippet
	err      error
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) GetContext(ctx context.Context, query string, scope providers.ContextScope, budget providers.TokenBudget) ([]providers.ContextSnippet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snippets, nil
}

func snippetsFor(ids ...string) []providers.ContextSnippet {
	out := make([]providers.ContextSnippet, len(ids))
	for i, id := range ids {
		out[i] = providers.ContextSnippet{ChunkID: id, Text: "chunk " + id, Score: 1.0}
	}
	return out
}

func TestHybridProvider_RRFDeterminismFromSpecScenario(t *testing.T) {
	// Provider A returns [1,2,3], provider B returns [2,1,4]; k=60, equal
	// weights. {1,2} must fuse ahead of {3,4}; 3 and 4 tie at 1/63 and
	// break by ascending chunk id — matches spec.md §8 scenario 6.
	a := &fakeProvider{id: "a", snippets: snippetsFor("1", "2", "3")}
	b := &fakeProvider{id: "b", snippets: snippetsFor("2", "1", "4")}

	h := NewHybridProvider([]providers.Provider{a, b}, Config{K: 60, FailureStrategy: FailureStrategySkip})
	result, err := h.GetContext(context.Background(), "q", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 100000})
	require.NoError(t, err)
	require.Len(t, result, 4)

	ids := make([]string, len(result))
	for i, s := range result {
		ids[i] = s.ChunkID
	}

	pos := map[string]int{}
	for i, id := range ids {
		pos[id] = i
	}
	assert.Less(t, pos["1"], pos["3"])
	assert.Less(t, pos["2"], pos["3"])
	assert.Less(t, pos["1"], pos["4"])
	assert.Less(t, pos["2"], pos["4"])
	assert.Equal(t, pos["3"]+1, pos["4"], "3 and 4 tie; 3 sorts first by ascending chunk id")
}

func TestHybridProvider_SkipStrategyDropsFailingProvider(t *testing.T) {
	ok := &fakeProvider{id: "ok", snippets: snippetsFor("1")}
	bad := &fakeProvider{id: "bad", err: errors.New("boom")}

	h := NewHybridProvider([]providers.Provider{ok, bad}, Config{FailureStrategy: FailureStrategySkip})
	result, err := h.GetContext(context.Background(), "q", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 100000})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "1", result[0].ChunkID)
}

func TestHybridProvider_FailStrategySurfacesFirstError(t *testing.T) {
	bad := &fakeProvider{id: "bad", err: errors.New("boom")}
	h := NewHybridProvider([]providers.Provider{bad}, Config{FailureStrategy: FailureStrategyFail})
	_, err := h.GetContext(context.Background(), "q", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 100000})
	assert.Error(t, err)
}

func TestHybridProvider_DuplicateSnippetsRecordProviderAgreement(t *testing.T) {
	a := &fakeProvider{id: "a", snippets: snippetsFor("1")}
	b := &fakeProvider{id: "b", snippets: snippetsFor("1")}
	h := NewHybridProvider([]providers.Provider{a, b}, Config{FailureStrategy: FailureStrategySkip})
	result, err := h.GetContext(context.Background(), "q", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 100000})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "2", result[0].Metadata["rrf_provider_count"])
	assert.Equal(t, "1.0000", result[0].Metadata["rrf_agreement"])
	assert.Equal(t, "HYBRID", result[0].Provider)
}

func TestHybridProvider_TruncatesToTokenBudget(t *testing.T) {
	longText := make([]byte, 400)
	for i := range longText {
		longText[i] = 'x'
	}
	a := &fakeProvider{id: "a", snippets: []providers.ContextSnippet{
		{ChunkID: "1", Text: string(longText), Score: 1.0},
		{ChunkID: "2", Text: string(longText), Score: 0.9},
	}}
	h := NewHybridProvider([]providers.Provider{a}, Config{FailureStrategy: FailureStrategySkip})
	result, err := h.GetContext(context.Background(), "q", providers.ContextScope{}, providers.TokenBudget{MaxTokens: 150})
	require.NoError(t, err)
	assert.Len(t, result, 1)
}
