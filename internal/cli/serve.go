package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/contextd/internal/config"
	"github.com/mvp-joe/contextd/internal/filemeta"
	"github.com/mvp-joe/contextd/internal/hasher"
	"github.com/mvp-joe/contextd/internal/indexer"
	"github.com/mvp-joe/contextd/internal/watcher"
)

var serveRoot string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch a project and keep its catalog up to date",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveRoot, "root", ".", "project root to watch")
}

func runServe(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(serveRoot)
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

	absRoots := make([]string, len(cfg.Paths.Roots))
	for i, r := range cfg.Paths.Roots {
		absRoots[i], err = filepath.Abs(filepath.Join(root, r))
		if err != nil {
			return ConfigError(fmt.Errorf("resolve root %q: %w", r, err))
		}
	}

	batch := indexer.NewBatchIndexer(fi.indexer, root, cfg.Indexing.Parallelism)
	detector := indexer.NewChangeDetector(absRoots, cat, filemeta.New(hasher.NewWithFallback()))
	incremental := indexer.NewIncrementalIndexer(detector, batch, cat)

	discovery, err := indexer.NewFileDiscovery(root, cfg.Paths.Code, cfg.Paths.Docs, cfg.Paths.Ignore, cfg.Paths.SensitiveExclude)
	if err != nil {
		return ConfigError(fmt.Errorf("compile discovery patterns: %w", err))
	}

	extensions := collectExtensions(cfg)
	fw, err := watcher.NewFileWatcher(absRoots, extensions, ignoreDirUnder(root, discovery))
	if err != nil {
		return IndexError(fmt.Errorf("start file watcher: %w", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = fw.Start(ctx, func(files []string) {
		result, err := incremental.Update(ctx, files, false, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "incremental update failed: %v\n", err)
			return
		}
		succeeded := 0
		if result.BatchResult != nil {
			succeeded = result.BatchResult.Stats.Succeeded
		}
		fmt.Printf("updated %d files, removed %d\n", succeeded, len(result.Deletions))
	})
	if err != nil {
		return IndexError(fmt.Errorf("watch: %w", err))
	}

	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", root)
	<-ctx.Done()
	return fw.Stop()
}

// collectExtensions derives fsnotify-watched extensions from the configured
// code/docs glob patterns (e.g. "**/*.go" -> ".go").
func collectExtensions(cfg *config.Config) []string {
	seen := map[string]bool{}
	var exts []string
	for _, pattern := range append(append([]string{}, cfg.Paths.Code...), cfg.Paths.Docs...) {
		ext := filepath.Ext(pattern)
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	return exts
}

// ignoreDirUnder adapts a FileDiscovery's configured ignore/sensitive
// patterns into the predicate FileWatcher needs to skip a directory during
// its recursive watch setup, so the watcher's skip-list matches exactly
// what IncrementalIndexer would have skipped anyway.
func ignoreDirUnder(root string, discovery *indexer.FileDiscovery) watcher.IgnoreDirFunc {
	return func(absPath string) bool {
		rel, err := filepath.Rel(root, absPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			return false
		}
		if rel == "." {
			return false
		}
		return discovery.ShouldIgnoreRelPath(filepath.ToSlash(rel))
	}
}
