package embed

import "context"

// EmbedMode distinguishes a query embedding (one search string) from a
// passage embedding (a chunk being indexed); some models score the pair
// differently depending on which side asked.
type EmbedMode string

const (
	EmbedModeQuery   EmbedMode = "query"
	EmbedModePassage EmbedMode = "passage"
)

// Provider is C5's Embedder contract (spec §4.5): a synchronous, opaque
// text-to-vector transform that FileIndexer and SemanticProvider call
// without knowing whether a request crosses into a subprocess, a remote
// HTTP call, or (in tests) a deterministic hash.
type Provider interface {
	// Embed returns one vector per input text, in order. len(result) must
	// equal len(texts) and every vector's length must equal Dimensions().
	Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error)

	// Dimensions reports the fixed vector length this provider produces.
	Dimensions() int

	// Model identifies the embedding model. It is stored on each Embedding
	// row, and SemanticProvider searches only embeddings of its own model.
	Model() string

	// Close releases any resources the provider holds open.
	Close() error
}
