package chunker

import (
	"strings"
	"testing"

	"github.com/mvp-joe/contextd/internal/catalog"
	"github.com/stretchr/testify/require"
)

func TestFlatChunkerWholeFileForSmallInput(t *testing.T) {
	f := NewFlatChunker()
	chunks, err := f.Chunk("line one\nline two\n", "notes.csv", "")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, catalog.ChunkKindFile, chunks[0].Kind)
}

func TestFlatChunkerSplitsOversizedInput(t *testing.T) {
	f := NewFlatChunker()
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString(strings.Repeat("x", 200))
		b.WriteString("\n\n")
	}
	chunks, err := f.Chunk(b.String(), "data.log", "")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
}

func TestFlatChunkerEmptyTextReturnsNoChunks(t *testing.T) {
	f := NewFlatChunker()
	chunks, err := f.Chunk("", "empty.bin", "")
	require.NoError(t, err)
	require.Empty(t, chunks)
}
