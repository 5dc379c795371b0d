package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/contextd/internal/catalog"
	"github.com/mvp-joe/contextd/internal/chunker"
	"github.com/mvp-joe/contextd/internal/config"
	"github.com/mvp-joe/contextd/internal/embed"
	"github.com/mvp-joe/contextd/internal/filemeta"
	"github.com/mvp-joe/contextd/internal/hasher"
	"github.com/mvp-joe/contextd/internal/indexer"
	"github.com/mvp-joe/contextd/internal/symbols"
)

var (
	indexRoot        string
	indexWatchRoots  []string
	indexRebuild     bool
	indexParallelism int
	indexQuiet       bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the context catalog for a project",
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexRoot, "root", ".", "project root to index")
	indexCmd.Flags().StringSliceVar(&indexWatchRoots, "watch-root", nil, "watch roots relative to --root (repeatable); replaces paths.roots from config")
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "force a full re-scan, ignoring prior catalog state")
	indexCmd.Flags().IntVar(&indexParallelism, "parallelism", 0, "max concurrent file indexers (0 = config default)")
	indexCmd.Flags().BoolVarP(&indexQuiet, "quiet", "q", false, "suppress the progress bar")
}

// openProjectCatalog opens (creating if necessary) the catalog database
// under <root>/.contextd/catalog.db.
func openProjectCatalog(root string) (*catalog.Catalog, error) {
	dbPath := filepath.Join(root, ".contextd", "catalog.db")
	return catalog.Open(dbPath)
}

// fileIndexerHandle bundles a FileIndexer with the embedding provider
// backing it so callers can close the provider's connections on exit.
type fileIndexerHandle struct {
	indexer  *indexer.FileIndexer
	provider embed.Provider
}

func (h *fileIndexerHandle) Close() error { return h.provider.Close() }

// newFileIndexerFromConfig builds a FileIndexer wired to cfg's embedding
// provider and resource limits.
func newFileIndexerFromConfig(cfg *config.Config, cat *catalog.Catalog) (*fileIndexerHandle, error) {
	provider, err := embed.New(cfg.Embedding.Provider, cfg.Embedding.Endpoint, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, err
	}

	fi := indexer.NewFileIndexer(
		filemeta.New(hasher.NewWithFallback()),
		chunker.NewRegistry(),
		symbols.New(),
		provider,
		cat,
		indexer.FileIndexerConfig{
			MaxFileSizeBytes:   cfg.Indexing.MaxFileSizeBytes,
			WarnFileSizeBytes:  cfg.Indexing.WarnFileSizeBytes,
			EmbeddingBatchSize: cfg.Indexing.EmbeddingBatchSize,
		},
	)
	return &fileIndexerHandle{indexer: fi, provider: provider}, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(indexRoot)
	if err != nil {
		return ConfigError(fmt.Errorf("resolve root: %w", err))
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return ConfigError(err)
	}

	cat, err := openProjectCatalog(root)
	if err != nil {
		return ConfigError(fmt.Errorf("open catalog: %w", err))
	}
	defer cat.Close()

	fi, err := newFileIndexerFromConfig(cfg, cat)
	if err != nil {
		return ConfigError(err)
	}
	defer fi.Close()

	parallelism := indexParallelism
	if parallelism <= 0 {
		parallelism = cfg.Indexing.Parallelism
	}
	batch := indexer.NewBatchIndexer(fi.indexer, root, parallelism)

	roots := cfg.Paths.Roots
	if len(indexWatchRoots) > 0 {
		roots = indexWatchRoots
	}
	absRoots := make([]string, len(roots))
	for i, r := range roots {
		absRoots[i], err = filepath.Abs(filepath.Join(root, r))
		if err != nil {
			return ConfigError(fmt.Errorf("resolve watch root %q: %w", r, err))
		}
	}

	discovery, err := indexer.NewFileDiscovery(root, cfg.Paths.Code, cfg.Paths.Docs, cfg.Paths.Ignore, cfg.Paths.SensitiveExclude)
	if err != nil {
		return ConfigError(fmt.Errorf("compile discovery patterns: %w", err))
	}
	codeFiles, docFiles, err := discovery.DiscoverFiles()
	if err != nil {
		return IndexError(fmt.Errorf("discover files: %w", err))
	}
	paths := append(codeFiles, docFiles...)
	started := time.Now()

	// --rebuild skips change detection entirely and re-indexes every
	// discovered file, rather than only what ChangeDetector sees as
	// new/modified against prior catalog state.
	if indexRebuild {
		fmt.Printf("Rebuilding %d files under %s\n", len(paths), root)
		listener := newProgressListener(len(paths), indexQuiet)
		batchResult, err := batch.IndexFiles(context.Background(), paths, listener)
		if err != nil {
			return IndexError(fmt.Errorf("rebuild: %w", err))
		}
		if err := cat.SetLastIndexed(time.Now().UTC()); err != nil {
			return IndexError(fmt.Errorf("record last indexed: %w", err))
		}
		if batchResult.Stats.Failed > 0 {
			fmt.Printf("Indexed with %d failures out of %d files (%.1fs)\n",
				batchResult.Stats.Failed, batchResult.Stats.Total, time.Since(started).Seconds())
			return IndexError(fmt.Errorf("%d files failed to index", batchResult.Stats.Failed))
		}
		fmt.Printf("Indexed %d files in %.1fs\n", batchResult.Stats.Succeeded, time.Since(started).Seconds())
		return nil
	}

	detector := indexer.NewChangeDetector(absRoots, cat, filemeta.New(hasher.NewWithFallback()))
	incremental := indexer.NewIncrementalIndexer(detector, batch, cat)

	fmt.Printf("Indexing %d files under %s\n", len(paths), root)

	listener := newProgressListener(len(paths), indexQuiet)
	result, err := incremental.Update(context.Background(), paths, true, listener)
	if err != nil {
		return IndexError(fmt.Errorf("incremental update: %w", err))
	}

	if result.BatchResult != nil && result.BatchResult.Stats.Failed > 0 {
		fmt.Printf("Indexed with %d failures out of %d files (%.1fs)\n",
			result.BatchResult.Stats.Failed, result.BatchResult.Stats.Total, time.Since(started).Seconds())
		return IndexError(fmt.Errorf("%d files failed to index", result.BatchResult.Stats.Failed))
	}

	succeeded := 0
	if result.BatchResult != nil {
		succeeded = result.BatchResult.Stats.Succeeded
	}
	fmt.Printf("Indexed %d files, removed %d, in %.1fs\n", succeeded, len(result.Deletions), time.Since(started).Seconds())
	return nil
}
