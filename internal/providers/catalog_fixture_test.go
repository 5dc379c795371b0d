package providers

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/contextd/internal/catalog"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	cat, err := catalog.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat
}

// fixtureFile describes one file that seedCatalog syncs into the catalog
// with a single chunk, plus an optional embedding and symbols.
type fixtureFile struct {
	relPath  string
	language string
	content  string
	vector   []float32
	symbols  []catalog.Symbol
}

func seedCatalog(t *testing.T, cat *catalog.Catalog, root string, files []fixtureFile) {
	t.Helper()
	for _, f := range files {
		fileID := uuid.NewString()
		chunkID := uuid.NewString()
		artifacts := catalog.FileArtifacts{
			File: catalog.FileState{
				FileID:      fileID,
				Root:        root,
				RelPath:     f.relPath,
				AbsPath:     filepath.Join(root, f.relPath),
				ContentHash: "deadbeef",
				SizeBytes:   int64(len(f.content)),
				Language:    f.language,
				IndexedAt:   time.Now(),
			},
			Chunks: []catalog.Chunk{
				{
					ChunkID:   chunkID,
					FileID:    fileID,
					Ordinal:   0,
					Kind:      catalog.ChunkKindCodeFunction,
					StartLine: 1,
					EndLine:   10,
					Content:   f.content,
					Summary:   "",
					CreatedAt: time.Now(),
				},
			},
		}
		for i := range f.symbols {
			f.symbols[i].FileID = fileID
			if f.symbols[i].SymbolID == "" {
				f.symbols[i].SymbolID = uuid.NewString()
			}
		}
		artifacts.Symbols = f.symbols
		if f.vector != nil {
			artifacts.Embeddings = []catalog.Embedding{
				{
					ID:         uuid.NewString(),
					ChunkID:    chunkID,
					Model:      "mock",
					Dimensions: len(f.vector),
					Vector:     f.vector,
					CreatedAt:  time.Now(),
				},
			}
		}
		require.NoError(t, cat.SyncFileArtifacts(artifacts))
	}
}
