// Package providers implements the C11 ContextProviders: backend-specific
// retrieval over the catalog, each returning ranked ContextSnippets under a
// scope and token budget.
package providers

import "context"

// TokenBudget bounds how much context a caller can afford to receive.
type TokenBudget struct {
	MaxTokens        int
	ReserveForPrompt int
	DiversityWeight  float64
}

// AvailableForSnippets is the token budget left over after reserving room
// for the prompt itself.
func (b TokenBudget) AvailableForSnippets() int {
	avail := b.MaxTokens - b.ReserveForPrompt
	if avail < 0 {
		return 0
	}
	return avail
}

// ContextScope filters which files/chunks a provider may consider. A scope
// with every field empty is unbounded.
type ContextScope struct {
	Paths     []string
	Languages []string
	Kinds     []string
}

func (s ContextScope) matchesPath(path string) bool {
	if len(s.Paths) == 0 {
		return true
	}
	for _, p := range s.Paths {
		if p == path {
			return true
		}
	}
	return false
}

func (s ContextScope) matchesLanguage(language string) bool {
	if len(s.Languages) == 0 {
		return true
	}
	for _, l := range s.Languages {
		if l == language {
			return true
		}
	}
	return false
}

func (s ContextScope) matchesKind(kind string) bool {
	if len(s.Kinds) == 0 {
		return true
	}
	for _, k := range s.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Matches reports whether a chunk's path/language/kind passes this scope.
func (s ContextScope) Matches(path, language, kind string) bool {
	return s.matchesPath(path) && s.matchesLanguage(language) && s.matchesKind(kind)
}

// ContextSnippet is one unit of retrieved context, annotated with which
// provider(s) contributed it.
type ContextSnippet struct {
	ChunkID     string
	Score       float64
	FilePath    string
	Label       string
	Kind        string
	Text        string
	Language    string
	StartLine   int
	EndLine     int
	Metadata    map[string]string
	Provider    string
	Sources     []string
	SourceCount int
}

// SearchResult is the internal representation a reranker (MMR) operates on.
type SearchResult struct {
	ChunkID     string
	Score       float64
	EmbeddingID string
	Path        string
	Language    string
	Vector      []float32
}

// Provider is implemented by every C11 context-retrieval backend.
type Provider interface {
	// ID identifies the provider for snippet annotation (e.g. "semantic").
	ID() string
	GetContext(ctx context.Context, query string, scope ContextScope, budget TokenBudget) ([]ContextSnippet, error)
}

// estimateTokens mirrors the indexer's fallback token estimator
// (max(1, len/4)), used by providers and the hybrid layer alike to respect
// TokenBudget without re-tokenizing.
func estimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	est := len(text) / 4
	if est < 1 {
		est = 1
	}
	return est
}
