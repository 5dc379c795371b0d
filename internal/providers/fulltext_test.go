package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullTextProvider_FindsKeywordMatch(t *testing.T) {
	cat := newTestCatalog(t)
	root := t.TempDir()
	seedCatalog(t, cat, root, []fixtureFile{
		{relPath: "auth.go", language: "go", content: "func ValidatePassword(pw string) bool { return len(pw) > 8 }"},
		{relPath: "math.go", language: "go", content: "func Add(a, b int) int { return a + b }"},
	})

	ctx := context.Background()
	p, err := NewFullTextProvider(ctx, cat, 10)
	require.NoError(t, err)
	defer p.Close()

	snippets, err := p.GetContext(ctx, "ValidatePassword", ContextScope{}, TokenBudget{MaxTokens: 10000})
	require.NoError(t, err)
	require.NotEmpty(t, snippets)
	assert.Equal(t, "auth.go", snippets[0].FilePath)
	assert.Equal(t, "fulltext", snippets[0].Provider)
}

func TestFullTextProvider_StopwordOnlyQueryReturnsNothing(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()
	p, err := NewFullTextProvider(ctx, cat, 10)
	require.NoError(t, err)
	defer p.Close()

	snippets, err := p.GetContext(ctx, "the a of", ContextScope{}, TokenBudget{MaxTokens: 10000})
	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestFullTextProvider_RefreshIndexPicksUpNewChunks(t *testing.T) {
	cat := newTestCatalog(t)
	root := t.TempDir()
	ctx := context.Background()
	p, err := NewFullTextProvider(ctx, cat, 10)
	require.NoError(t, err)
	defer p.Close()

	snippets, err := p.GetContext(ctx, "teleport", ContextScope{}, TokenBudget{MaxTokens: 10000})
	require.NoError(t, err)
	assert.Empty(t, snippets)

	seedCatalog(t, cat, root, []fixtureFile{
		{relPath: "beam.go", language: "go", content: "func Teleport() {}"},
	})
	require.NoError(t, p.RefreshIndex(ctx))

	snippets, err = p.GetContext(ctx, "teleport", ContextScope{}, TokenBudget{MaxTokens: 10000})
	require.NoError(t, err)
	assert.NotEmpty(t, snippets)
}

func TestExtractKeywords_DropsStopwordsAndShortTokens(t *testing.T) {
	got := extractKeywords("How do I validate a password?")
	assert.Contains(t, got, "validate")
	assert.Contains(t, got, "password")
	assert.NotContains(t, got, "how")
	assert.NotContains(t, got, "do")
	assert.NotContains(t, got, "a")
}
