package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/contextd/internal/catalog"
	"github.com/mvp-joe/contextd/internal/chunker"
	"github.com/mvp-joe/contextd/internal/embed"
	"github.com/mvp-joe/contextd/internal/filemeta"
	"github.com/mvp-joe/contextd/internal/symbols"
)

func newTestFileIndexer(t *testing.T, cat *catalog.Catalog, cfg FileIndexerConfig) *FileIndexer {
	t.Helper()
	return NewFileIndexer(filemeta.New(nil), chunker.NewRegistry(), symbols.New(), embed.NewMockProvider(), cat, cfg)
}

func TestFileIndexer_IndexFile_Success(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"), 0o644))

	cat := newTestCatalog(t)
	fi := newTestFileIndexer(t, cat, FileIndexerConfig{MaxFileSizeBytes: 1 << 20, WarnFileSizeBytes: 1 << 19})

	result := fi.IndexFile(context.Background(), root, path)
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, "main.go", result.RelPath)
	assert.Greater(t, result.ChunkCount, 0)
	assert.Equal(t, result.ChunkCount, result.EmbeddingCount)

	files, err := cat.ListAllFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "go", files[0].Language)
}

func TestFileIndexer_IndexFile_SizeLimitExceeded(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "big.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	cat := newTestCatalog(t)
	fi := newTestFileIndexer(t, cat, FileIndexerConfig{MaxFileSizeBytes: 1, WarnFileSizeBytes: 1})

	result := fi.IndexFile(context.Background(), root, path)
	require.Error(t, result.Error)
	assert.False(t, result.Success)
}

func TestFileIndexer_IndexFile_RespectsCancellation(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	cat := newTestCatalog(t)
	fi := newTestFileIndexer(t, cat, FileIndexerConfig{MaxFileSizeBytes: 1 << 20, WarnFileSizeBytes: 1 << 20})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := fi.IndexFile(ctx, root, path)
	require.Error(t, result.Error)
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestFileIndexer_IndexFile_MissingFileReturnsError(t *testing.T) {
	root := t.TempDir()
	cat := newTestCatalog(t)
	fi := newTestFileIndexer(t, cat, FileIndexerConfig{MaxFileSizeBytes: 1 << 20, WarnFileSizeBytes: 1 << 20})

	result := fi.IndexFile(context.Background(), root, filepath.Join(root, "nope.go"))
	require.Error(t, result.Error)
	assert.False(t, result.Success)
}

func TestFileIndexer_IndexFile_EmbedderErrorFails(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o644))

	cat := newTestCatalog(t)
	mock := embed.NewMockProvider()
	mock.SetEmbedError(errors.New("mock embed failure"))
	fi := NewFileIndexer(filemeta.New(nil), chunker.NewRegistry(), symbols.New(), mock, cat, FileIndexerConfig{MaxFileSizeBytes: 1 << 20, WarnFileSizeBytes: 1 << 20})

	result := fi.IndexFile(context.Background(), root, path)
	require.Error(t, result.Error)
	assert.False(t, result.Success)
}
