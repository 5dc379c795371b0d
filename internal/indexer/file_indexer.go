package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mvp-joe/contextd/internal/catalog"
	"github.com/mvp-joe/contextd/internal/chunker"
	"github.com/mvp-joe/contextd/internal/ctxerr"
	"github.com/mvp-joe/contextd/internal/embed"
	"github.com/mvp-joe/contextd/internal/filemeta"
	"github.com/mvp-joe/contextd/internal/symbols"
)

// IndexResult is the outcome of indexing a single file. It deliberately
// carries only counts, not chunk content or embeddings, so a BatchIndexer
// run over many large files doesn't retain their bodies in memory.
type IndexResult struct {
	Success        bool
	AbsPath        string
	RelPath        string
	ChunkCount     int
	EmbeddingCount int
	Error          error
}

// FileIndexer indexes one file end-to-end: metadata extraction, chunking,
// symbol extraction, batched embedding, and a single catalog commit.
type FileIndexer struct {
	meta     *filemeta.Extractor
	chunkers *chunker.Registry
	symbols  *symbols.Extractor
	embedder embed.Provider
	catalog  *catalog.Catalog

	maxFileSizeBytes   int64
	warnFileSizeBytes  int64
	embeddingBatchSize int
}

// FileIndexerConfig holds FileIndexer's resource limits (spec §4.8 step 2/6).
type FileIndexerConfig struct {
	MaxFileSizeBytes   int64
	WarnFileSizeBytes  int64
	EmbeddingBatchSize int
}

// NewFileIndexer builds a FileIndexer from its collaborators.
func NewFileIndexer(meta *filemeta.Extractor, chunkers *chunker.Registry, syms *symbols.Extractor, embedder embed.Provider, cat *catalog.Catalog, cfg FileIndexerConfig) *FileIndexer {
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = 64
	}
	return &FileIndexer{
		meta:               meta,
		chunkers:           chunkers,
		symbols:            syms,
		embedder:           embedder,
		catalog:            cat,
		maxFileSizeBytes:   cfg.MaxFileSizeBytes,
		warnFileSizeBytes:  cfg.WarnFileSizeBytes,
		embeddingBatchSize: cfg.EmbeddingBatchSize,
	}
}

// IndexFile indexes a single absolute path relative to root, committing its
// artifacts to the catalog. Cancellation is checked before metadata
// extraction, before content read, between chunking and embedding, and
// between embedding batches, and always propagates unwrapped.
func (fi *FileIndexer) IndexFile(ctx context.Context, root, absPath string) IndexResult {
	relPath, relErr := filepath.Rel(root, absPath)
	if relErr != nil {
		relPath = absPath
	}
	relPath = filepath.ToSlash(relPath)

	if err := ctx.Err(); err != nil {
		return IndexResult{AbsPath: absPath, RelPath: relPath, Error: err}
	}

	m, err := fi.meta.Extract(absPath)
	if err != nil {
		return IndexResult{AbsPath: absPath, RelPath: relPath, Error: err}
	}
	if m.SizeBytes > fi.maxFileSizeBytes {
		return IndexResult{
			AbsPath: absPath, RelPath: relPath,
			Error: ctxerr.Wrap(ctxerr.ErrSizeLimitExceeded, fmt.Sprintf("%s exceeds max_file_size (%d > %d)", relPath, m.SizeBytes, fi.maxFileSizeBytes), nil),
		}
	}
	if m.SizeBytes > fi.warnFileSizeBytes {
		log.Printf("Warning: %s is %d bytes, above warn_file_size (%d)", relPath, m.SizeBytes, fi.warnFileSizeBytes)
	}

	if err := ctx.Err(); err != nil {
		return IndexResult{AbsPath: absPath, RelPath: relPath, Error: err}
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return IndexResult{AbsPath: absPath, RelPath: relPath, Error: ctxerr.Wrap(ctxerr.ErrIO, "read file content", err)}
	}
	text := string(content)

	chk, strategyID := fi.chunkers.ChunkerFor(absPath)
	language := m.Language
	chunks, err := chk.Chunk(text, absPath, language)
	if err != nil {
		return IndexResult{AbsPath: absPath, RelPath: relPath, Error: ctxerr.Wrap(ctxerr.ErrDecode, "chunk file content", err)}
	}

	extractedSymbols, err := fi.symbols.Extract(text, absPath, language)
	if err != nil {
		log.Printf("Warning: symbol extraction failed for %s: %v", relPath, err)
		extractedSymbols = nil
	}

	if err := ctx.Err(); err != nil {
		return IndexResult{AbsPath: absPath, RelPath: relPath, Error: err}
	}

	fileID := uuid.NewString()
	now := time.Now().UTC()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := fi.embedBatched(ctx, texts)
	if err != nil {
		if ctxerr.IsCancelled(err) {
			return IndexResult{AbsPath: absPath, RelPath: relPath, Error: err}
		}
		return IndexResult{AbsPath: absPath, RelPath: relPath, Error: ctxerr.Wrap(ctxerr.ErrEmbedder, "embed chunks", err)}
	}
	if len(embeddings) != len(chunks) {
		return IndexResult{AbsPath: absPath, RelPath: relPath, Error: ctxerr.Wrap(ctxerr.ErrEmbedder, fmt.Sprintf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks)), nil)}
	}

	catalogChunks := make([]catalog.Chunk, len(chunks))
	catalogEmbeddings := make([]catalog.Embedding, len(chunks))
	for i, c := range chunks {
		chunkID := uuid.NewString()
		catalogChunks[i] = catalog.Chunk{
			ChunkID:    chunkID,
			FileID:     fileID,
			Ordinal:    i,
			Kind:       c.Kind,
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
			TokenCount: c.TokenEstimate,
			Content:    c.Content,
			Summary:    c.Summary,
			CreatedAt:  now,
		}
		if len(embeddings[i]) != fi.embedder.Dimensions() {
			return IndexResult{AbsPath: absPath, RelPath: relPath, Error: ctxerr.Wrap(ctxerr.ErrEmbedder, fmt.Sprintf("vector %d has dimension %d, want %d", i, len(embeddings[i]), fi.embedder.Dimensions()), nil)}
		}
		catalogEmbeddings[i] = catalog.Embedding{
			ID:         uuid.NewString(),
			ChunkID:    chunkID,
			Model:      fi.embedder.Model(),
			Dimensions: fi.embedder.Dimensions(),
			Vector:     embeddings[i],
			CreatedAt:  now,
		}
	}

	catalogSymbols := make([]catalog.Symbol, len(extractedSymbols))
	for i, s := range extractedSymbols {
		catalogSymbols[i] = catalog.Symbol{
			SymbolID:      uuid.NewString(),
			FileID:        fileID,
			SymbolType:    s.Type,
			Name:          s.Name,
			QualifiedName: s.QualifiedName,
			Signature:     s.Signature,
			Language:      language,
			StartLine:     s.StartLine,
			EndLine:       s.EndLine,
		}
	}

	fileState := catalog.FileState{
		FileID:       fileID,
		Root:         root,
		RelPath:      relPath,
		AbsPath:      absPath,
		ContentHash:  m.ContentHash,
		SizeBytes:    m.SizeBytes,
		ModTimeNanos: m.ModTimeNanos,
		Language:     language,
		Kind:         strategyID,
		IndexedAt:    now,
		Generated:    m.Generated,
	}

	artifacts := catalog.FileArtifacts{
		File:       fileState,
		Chunks:     catalogChunks,
		Embeddings: catalogEmbeddings,
		Symbols:    catalogSymbols,
	}

	if err := fi.catalog.SyncFileArtifacts(artifacts); err != nil {
		log.Printf("Warning: artifact sync failed for %s, retrying metadata-only: %v", relPath, err)
		fallback := catalog.FileArtifacts{File: fileState}
		if retryErr := fi.catalog.SyncFileArtifacts(fallback); retryErr != nil {
			return IndexResult{AbsPath: absPath, RelPath: relPath, Error: ctxerr.Wrap(ctxerr.ErrCatalog, "sync file artifacts (metadata-only retry)", retryErr)}
		}
		return IndexResult{Success: true, AbsPath: absPath, RelPath: relPath}
	}

	return IndexResult{
		Success:        true,
		AbsPath:        absPath,
		RelPath:        relPath,
		ChunkCount:     len(catalogChunks),
		EmbeddingCount: len(catalogEmbeddings),
	}
}

// embedBatched splits texts into embeddingBatchSize groups and checks for
// cancellation between each batch, per spec §4.8's suspension points ("between
// each embedding batch"). Batches run sequentially because the embedder is a
// single shared resource (spec §5's shared-resource policy) and FileIndexer
// already runs under BatchIndexer's own cross-file concurrency.
func (fi *FileIndexer) embedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += fi.embeddingBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + fi.embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := fi.embedder.Embed(ctx, texts[start:end], embed.EmbedModePassage)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d): %w", start, end, err)
		}
		copy(results[start:end], batch)
	}
	return results, nil
}

