package chunker

import (
	"strings"

	"github.com/mvp-joe/contextd/internal/catalog"
)

// flatChunker is the fallback strategy for files with no recognized code or
// documentation extension: the whole file becomes a single chunk. Large
// plain-text files still get a coarse paragraph split so no single chunk
// grows unbounded.
type flatChunker struct {
	maxTokens int
}

// NewFlatChunker returns the single-chunk (with oversized-file paragraph
// fallback) strategy used for unrecognized file kinds.
func NewFlatChunker() Chunker {
	return &flatChunker{maxTokens: 2000}
}

func (f *flatChunker) Chunk(text, path, language string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	tokens := EstimateTokens(text)
	if tokens <= f.maxTokens {
		return normalize([]Chunk{{
			Kind:      catalog.ChunkKindFile,
			StartLine: 1,
			EndLine:   len(lines),
			Content:   text,
		}}), nil
	}

	paragraphs := extractParagraphs(lines, 1)
	var chunks []Chunk
	var current []docParagraph
	size := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		texts := make([]string, len(current))
		for i, p := range current {
			texts[i] = p.text
		}
		chunks = append(chunks, Chunk{
			Kind:      catalog.ChunkKindFile,
			StartLine: current[0].startLine,
			EndLine:   current[len(current)-1].endLine,
			Content:   strings.Join(texts, "\n\n"),
		})
		current = nil
		size = 0
	}

	for _, p := range paragraphs {
		pSize := EstimateTokens(p.text)
		if size > 0 && size+pSize > f.maxTokens {
			flush()
		}
		current = append(current, p)
		size += pSize
	}
	flush()
	return normalize(chunks), nil
}
