package indexer

import (
	"context"
	"time"

	"github.com/mvp-joe/contextd/internal/catalog"
)

// DeletionResult is the outcome of removing one catalog row.
type DeletionResult struct {
	AbsPath string
	Success bool
	Error   error
}

// UpdateResult aggregates a full incremental-update pass: change detection,
// batch (re)indexing of new/modified files, and deletions.
type UpdateResult struct {
	Changes     ChangeSet
	BatchResult *BatchResult // nil if there was nothing to (re)index
	Deletions   []DeletionResult
	StartedAt   time.Time
	CompletedAt time.Time
	DurationMs  int64
}

// IncrementalIndexer runs the detect-changes -> index -> delete pipeline
// (spec §4.10).
type IncrementalIndexer struct {
	detector *ChangeDetector
	batch    *BatchIndexer
	catalog  *catalog.Catalog
}

// NewIncrementalIndexer builds an IncrementalIndexer from its collaborators.
func NewIncrementalIndexer(detector *ChangeDetector, batch *BatchIndexer, cat *catalog.Catalog) *IncrementalIndexer {
	return &IncrementalIndexer{detector: detector, batch: batch, catalog: cat}
}

// Update runs one incremental pass over paths. detectImplicitDeletions=false
// is "watcher incremental" mode (only paths are examined); true is "full
// rescan" mode (every catalog row is also verified against disk).
func (ix *IncrementalIndexer) Update(ctx context.Context, paths []string, detectImplicitDeletions bool, listener ProgressListener) (UpdateResult, error) {
	started := time.Now().UTC()

	changes, err := ix.detector.DetectChanges(ctx, paths, detectImplicitDeletions)
	if err != nil {
		return UpdateResult{}, err
	}

	result := UpdateResult{Changes: changes, StartedAt: started}

	toIndex := make([]string, 0, len(changes.New)+len(changes.Modified))
	toIndex = append(toIndex, changes.New...)
	toIndex = append(toIndex, changes.Modified...)

	if len(toIndex) > 0 {
		batchResult, err := ix.batch.IndexFiles(ctx, toIndex, listener)
		if err != nil {
			return UpdateResult{}, err
		}
		result.BatchResult = &batchResult
	}

	for _, absPath := range changes.Deleted {
		if err := ctx.Err(); err != nil {
			return UpdateResult{}, err
		}
		deleted, err := ix.catalog.DeleteFile(absPath)
		result.Deletions = append(result.Deletions, DeletionResult{
			AbsPath: absPath,
			Success: err == nil && deleted,
			Error:   err,
		})
	}

	if err := ix.catalog.SetLastIndexed(time.Now().UTC()); err != nil {
		return UpdateResult{}, err
	}

	result.CompletedAt = time.Now().UTC()
	result.DurationMs = result.CompletedAt.Sub(result.StartedAt).Milliseconds()
	return result, nil
}
