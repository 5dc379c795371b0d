package embed

import (
	"context"
	"encoding/binary"
	"sync"

	"lukechampine.com/blake3"
)

// MockProvider is a test double for Provider. It derives vectors from
// blake3(text) the same way internal/hasher content-addresses file bytes, so
// two chunks with identical content always embed identically without a real
// model running — useful for exercising FileIndexer's dimension/cardinality
// checks and SemanticProvider's nearest-neighbor ranking deterministically.
type MockProvider struct {
	mu          sync.Mutex
	dimensions  int
	closeCalled bool
	closeErr    error
	embedErr    error
}

// NewMockProvider returns a MockProvider with the pack's default embedding
// dimension (384, matching bge-small).
func NewMockProvider() *MockProvider {
	return &MockProvider{dimensions: 384}
}

// SetCloseError makes a subsequent Close() call return err.
func (p *MockProvider) SetCloseError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeErr = err
}

// SetEmbedError makes a subsequent Embed() call return err, for exercising
// FileIndexer/BatchIndexer failure-isolation paths.
func (p *MockProvider) SetEmbedError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.embedErr = err
}

// Embed hashes each text with blake3 and expands the digest into dimensions
// float32 components in [-1, 1), cycling the digest bytes once it runs out.
func (p *MockProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.embedErr != nil {
		return nil, p.embedErr
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		h := blake3.New(32, nil)
		h.Write([]byte(text))
		digest := h.Sum(nil)

		vec := make([]float32, p.dimensions)
		for j := range vec {
			offset := (j * 4) % (len(digest) - 3)
			raw := binary.BigEndian.Uint32(digest[offset : offset+4])
			vec[j] = (float32(raw)/float32(1<<32))*2.0 - 1.0
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the configured mock vector length.
func (p *MockProvider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dimensions
}

// Model identifies the mock provider so Embedding.Model assertions in tests
// can tell it apart from a real embedder.
func (p *MockProvider) Model() string {
	return "mock"
}

// Close records that it was called and returns the configured error, if any.
func (p *MockProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCalled = true
	return p.closeErr
}

// IsClosed reports whether Close() has been called.
func (p *MockProvider) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCalled
}
