// Package chunker selects and runs a chunking strategy per file kind,
// producing bounded, self-contained text regions suitable for embedding and
// retrieval. It never touches the catalog directly: FileIndexer assigns
// ids/ordinals once a chunk set is produced.
package chunker

import (
	"path/filepath"
	"strings"

	"github.com/mvp-joe/contextd/internal/catalog"
)

// Chunk is a candidate chunk before catalog ids are assigned.
type Chunk struct {
	Kind          catalog.ChunkKind
	StartLine     int
	EndLine       int
	TokenEstimate int
	Content       string
	Summary       string
}

// Chunker produces chunks from a file's text content.
type Chunker interface {
	// Chunk splits text into chunks. path and language are hints only; a
	// chunker must not read the filesystem itself.
	Chunk(text, path, language string) ([]Chunk, error)
}

// fallbackCharsPerToken matches spec's fallback estimator: max(1, len/4).
const fallbackCharsPerToken = 4

// EstimateTokens derives a token estimate when a chunker didn't supply one.
func EstimateTokens(text string) int {
	n := len(text) / fallbackCharsPerToken
	if n < 1 {
		return 1
	}
	return n
}

// codeExtensions maps file extensions to the heuristic code chunker. Kept in
// sync with filemeta's language table so "kind" and "language" agree.
var codeExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true,
	".py": true, ".rs": true, ".c": true, ".h": true, ".cpp": true, ".cc": true,
	".hpp": true, ".php": true, ".rb": true, ".java": true, ".kt": true, ".kts": true,
	".cs": true, ".swift": true,
}

var docExtensions = map[string]bool{
	".md": true, ".rst": true, ".txt": true,
}

// Registry chooses a Chunker for a given path and reports the strategy id
// (stored as FileState.kind) that produced it.
type Registry struct {
	code Chunker
	doc  Chunker
	flat Chunker
}

// NewRegistry builds the default registry: a brace/indent heuristic chunker
// for source code, a header/paragraph chunker for markdown-like docs, and a
// single-chunk fallback for everything else.
func NewRegistry() *Registry {
	return &Registry{
		code: NewCodeChunker(),
		doc:  NewDocChunker(800),
		flat: NewFlatChunker(),
	}
}

// ChunkerFor returns the chunker and strategy id for path.
func (r *Registry) ChunkerFor(path string) (Chunker, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if codeExtensions[ext] {
		return r.code, "code"
	}
	if docExtensions[ext] {
		return r.doc, "doc"
	}
	return r.flat, "flat"
}

// normalize fills in a missing token estimate and drops empty/blank chunks,
// matching the registry contract that every emitted chunk carries
// non-blank content and a token estimate >= 1.
func normalize(chunks []Chunk) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		if c.TokenEstimate < 1 {
			c.TokenEstimate = EstimateTokens(c.Content)
		}
		if c.StartLine > c.EndLine {
			c.EndLine = c.StartLine
		}
		out = append(out, c)
	}
	return out
}
