package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocChunkerSplitsByHeader(t *testing.T) {
	src := `# Title

intro paragraph

## Section One

content one

## Section Two

content two
`
	d := NewDocChunker(800)
	chunks, err := d.Chunk(src, "README.md", "markdown")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.Contains(t, chunks[0].Content, "Title")
	require.Contains(t, chunks[1].Content, "Section One")
	require.Contains(t, chunks[2].Content, "Section Two")
}

func TestDocChunkerSplitsOversizedSectionByParagraph(t *testing.T) {
	var b strings.Builder
	b.WriteString("## Big Section\n\n")
	for i := 0; i < 50; i++ {
		b.WriteString(strings.Repeat("word ", 40))
		b.WriteString("\n\n")
	}
	d := NewDocChunker(100)
	chunks, err := d.Chunk(b.String(), "doc.md", "markdown")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
}

func TestDocChunkerPreservesCodeFence(t *testing.T) {
	src := "## Example\n\n```go\nfunc f() {\n\n\treturn\n}\n```\n"
	d := NewDocChunker(800)
	chunks, err := d.Chunk(src, "doc.md", "markdown")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].Content, "```go")
	require.Contains(t, chunks[0].Content, "func f()")
}

func TestDocChunkerEmptyTextReturnsNoChunks(t *testing.T) {
	d := NewDocChunker(800)
	chunks, err := d.Chunk("   ", "doc.md", "markdown")
	require.NoError(t, err)
	require.Empty(t, chunks)
}
