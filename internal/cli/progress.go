package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/contextd/internal/indexer"
)

// newProgressListener renders a terminal progress bar driven by
// indexer.BatchProgress updates from BatchIndexer.IndexFiles.
func newProgressListener(total int, quiet bool) indexer.ProgressListener {
	if quiet || total == 0 {
		return func(indexer.BatchProgress) {}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Indexing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)

	return func(p indexer.BatchProgress) {
		_ = bar.Set(p.Processed)
		if p.LastError != nil {
			fmt.Printf("\n  failed: %s: %v\n", p.LastPath, p.LastError)
		}
	}
}
