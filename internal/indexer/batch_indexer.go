package indexer

import (
	"context"
	"log"
	"runtime"
	"sync"
	"time"
)

// throughputReportInterval is how often, at minimum, the embeddings/second
// rate is logged during a batch run (spec §4.9: "every >=10s").
const throughputReportInterval = 10 * time.Second

// lowThroughputWarningEPS is the final-rate threshold below which a warning
// is emitted, provided at least one embedding was produced.
const lowThroughputWarningEPS = 100.0

// BatchProgress reports progress for one file's completion within a batch.
type BatchProgress struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	LastPath  string
	LastError error
}

// BatchFailure records one file's indexing failure, isolated from its peers.
type BatchFailure struct {
	AbsPath string
	RelPath string
	Error   error
}

// BatchStats summarizes a completed (or cancelled) batch run.
type BatchStats struct {
	Total       int
	Processed   int
	Succeeded   int
	Failed      int
	StartedAt   time.Time
	CompletedAt time.Time
	DurationMs  int64
}

// BatchResult is the outcome of indexing a set of files concurrently.
type BatchResult struct {
	Successes []IndexResult
	Failures  []BatchFailure
	Stats     BatchStats
}

// ProgressListener receives BatchProgress updates; implementations must be
// safe for concurrent calls since BatchIndexer invokes it from worker
// goroutines.
type ProgressListener func(BatchProgress)

// BatchIndexer runs FileIndexer over many paths with a bounded worker pool,
// implemented as a buffered-channel counting semaphore per SPEC_FULL.md §5.
type BatchIndexer struct {
	fileIndexer *FileIndexer
	root        string
	parallelism int
}

// NewBatchIndexer builds a BatchIndexer. requestedParallelism <= 0 selects
// max(1, runtime.NumCPU()-1), per spec's default.
func NewBatchIndexer(fi *FileIndexer, root string, requestedParallelism int) *BatchIndexer {
	if requestedParallelism <= 0 {
		requestedParallelism = runtime.NumCPU() - 1
		if requestedParallelism < 1 {
			requestedParallelism = 1
		}
	}
	return &BatchIndexer{fileIndexer: fi, root: root, parallelism: requestedParallelism}
}

// IndexFiles indexes every path in paths, with at most
// max(1, min(parallelism, len(paths))) tasks running concurrently. An error
// is returned only for context cancellation; individual file failures are
// reported in BatchResult.Failures.
func (b *BatchIndexer) IndexFiles(ctx context.Context, paths []string, listener ProgressListener) (BatchResult, error) {
	total := len(paths)
	stats := BatchStats{Total: total, StartedAt: time.Now().UTC()}
	if total == 0 {
		stats.CompletedAt = stats.StartedAt
		return BatchResult{Stats: stats}, nil
	}

	workers := b.parallelism
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var mu sync.Mutex
	var wg sync.WaitGroup

	var successes []IndexResult
	var failures []BatchFailure
	processed, succeeded, failed := 0, 0, 0
	totalEmbeddings := 0
	lastReport := time.Now()

	var cancelled bool

	for _, p := range paths {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			cancelled = true
		}
		if cancelled {
			break
		}

		wg.Add(1)
		go func(absPath string) {
			defer wg.Done()
			defer func() { <-sem }()

			result := b.fileIndexer.IndexFile(ctx, b.root, absPath)

			mu.Lock()
			defer mu.Unlock()
			processed++
			if result.Success {
				succeeded++
				totalEmbeddings += result.EmbeddingCount
				successes = append(successes, result)
			} else {
				failed++
				failures = append(failures, BatchFailure{AbsPath: result.AbsPath, RelPath: result.RelPath, Error: result.Error})
			}

			if listener != nil {
				listener(BatchProgress{
					Total: total, Processed: processed, Succeeded: succeeded, Failed: failed,
					LastPath: result.RelPath, LastError: result.Error,
				})
			}

			if elapsed := time.Since(lastReport); elapsed >= throughputReportInterval && totalEmbeddings > 0 {
				eps := float64(totalEmbeddings) / elapsed.Seconds()
				log.Printf("[TIMING] embeddings/second: %.1f (%d embeddings over %s)", eps, totalEmbeddings, elapsed.Round(time.Second))
				lastReport = time.Now()
			}
		}(p)
	}

	wg.Wait()

	stats.CompletedAt = time.Now().UTC()
	stats.DurationMs = stats.CompletedAt.Sub(stats.StartedAt).Milliseconds()
	stats.Processed = processed
	stats.Succeeded = succeeded
	stats.Failed = failed

	if elapsed := stats.CompletedAt.Sub(stats.StartedAt); elapsed > 0 && totalEmbeddings > 0 {
		finalEPS := float64(totalEmbeddings) / elapsed.Seconds()
		log.Printf("[TIMING] indexing complete: %.1f embeddings/second (%d embeddings, %s)", finalEPS, totalEmbeddings, elapsed.Round(time.Millisecond))
		if finalEPS < lowThroughputWarningEPS {
			log.Printf("Warning: embedding throughput %.1f eps is below the %.0f eps target", finalEPS, lowThroughputWarningEPS)
		}
	}

	result := BatchResult{Successes: successes, Failures: failures, Stats: stats}
	if cancelled && ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}
