package indexer

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mvp-joe/contextd/internal/catalog"
	"github.com/mvp-joe/contextd/internal/filemeta"
)

// ChangeSet classifies a batch of candidate paths against the catalog's
// last-known state.
type ChangeSet struct {
	New          []string
	Modified     []string
	Unchanged    []string
	Deleted      []string
	ScannedAt    time.Time
	TotalScanned int
}

// HasChanges reports whether anything besides Unchanged was produced.
func (cs ChangeSet) HasChanges() bool {
	return len(cs.New) > 0 || len(cs.Modified) > 0 || len(cs.Deleted) > 0
}

// ChangeDetector classifies candidate paths as new/modified/unchanged/deleted
// by comparing filesystem state against the catalog, per spec §4.7.
type ChangeDetector struct {
	roots   []string // sorted by descending length, longest-prefix-first
	catalog *catalog.Catalog
	meta    *filemeta.Extractor
}

// NewChangeDetector builds a detector over the given watch roots.
func NewChangeDetector(roots []string, cat *catalog.Catalog, meta *filemeta.Extractor) *ChangeDetector {
	sorted := append([]string(nil), roots...)
	for i := range sorted {
		sorted[i] = filepath.Clean(sorted[i])
	}
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	return &ChangeDetector{roots: sorted, catalog: cat, meta: meta}
}

// resolveRoot returns the longest configured root that is a prefix of
// absPath. Ties on length are broken by the order roots were supplied (first
// match wins), per spec's tie-break rule.
func (d *ChangeDetector) resolveRoot(absPath string) (root, relPath string, ok bool) {
	for _, r := range d.roots {
		rel, err := filepath.Rel(r, absPath)
		if err != nil || hasDotDotPrefix(rel) {
			continue
		}
		return r, filepath.ToSlash(rel), true
	}
	return "", "", false
}

func hasDotDotPrefix(rel string) bool {
	return rel == ".." || (len(rel) >= 3 && rel[0] == '.' && rel[1] == '.' && rel[2] == filepath.Separator)
}

// DetectChanges classifies paths against the catalog. When
// detectImplicitDeletions is true, every active catalog row not already
// accounted for by paths is additionally checked against disk and marked
// deleted if absent — the "full rescan" mode; otherwise only the supplied
// paths are examined ("watcher incremental" mode).
func (d *ChangeDetector) DetectChanges(ctx context.Context, paths []string, detectImplicitDeletions bool) (ChangeSet, error) {
	cs := ChangeSet{ScannedAt: time.Now().UTC()}
	seen := make(map[string]bool) // absolute paths already classified

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return ChangeSet{}, err
		}

		absPath, err := filepath.Abs(p)
		if err != nil {
			log.Printf("change detector: cannot resolve %q: %v", p, err)
			continue
		}
		if _, _, ok := d.resolveRoot(absPath); !ok {
			log.Printf("change detector: %q is outside all configured watch roots, skipping", absPath)
			continue
		}
		if seen[absPath] {
			continue
		}
		seen[absPath] = true

		prev, found, err := d.catalog.FindFileByAbsPath(absPath)
		if err != nil {
			return ChangeSet{}, err
		}

		info, statErr := os.Lstat(absPath)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				if found && prev.IsActive() {
					cs.Deleted = append(cs.Deleted, absPath)
				}
				continue
			}
			log.Printf("change detector: stat failed for %q: %v", absPath, statErr)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		// Fast path: a file whose size and mtime both match the catalog's
		// last-seen values is assumed unchanged without paying for a hash.
		// Anything else — including a bare mtime drift with no size change —
		// falls through to a real hash comparison, since mtime alone is not
		// trustworthy (many checkouts and container builds don't preserve it).
		if found && !prev.IsDeleted && info.Size() == prev.SizeBytes && info.ModTime().UnixNano() == prev.ModTimeNanos {
			cs.Unchanged = append(cs.Unchanged, absPath)
			continue
		}

		m, err := d.meta.Extract(absPath)
		if err != nil {
			log.Printf("change detector: metadata extraction failed for %q: %v", absPath, err)
			continue
		}

		switch classify(prev, found, m) {
		case statusNew:
			cs.New = append(cs.New, absPath)
		case statusModified:
			cs.Modified = append(cs.Modified, absPath)
		case statusUnchanged:
			cs.Unchanged = append(cs.Unchanged, absPath)
			if found && m.ModTimeNanos != prev.ModTimeNanos {
				// Content is identical but the timestamp drifted; correct the
				// stored mtime so a future scan can hit the fast path above
				// instead of re-hashing this file every time.
				if err := d.catalog.UpdateFileMTime(prev.FileID, m.ModTimeNanos); err != nil {
					log.Printf("change detector: mtime correction failed for %q: %v", absPath, err)
				}
			}
		}
	}

	if detectImplicitDeletions {
		if err := d.scanForImplicitDeletions(ctx, &cs, seen); err != nil {
			return ChangeSet{}, err
		}
	}

	cs.TotalScanned = len(cs.New) + len(cs.Modified) + len(cs.Unchanged) + len(cs.Deleted)
	return cs, nil
}

type changeStatus int

const (
	statusUnchanged changeStatus = iota
	statusNew
	statusModified
)

// classify compares a freshly hashed Metadata against the catalog's prior
// row. Mtime is deliberately not part of this comparison: the caller's fast
// path already disposes of the common case where mtime and size both match,
// and a file that reaches classify has either a new/missing prior row or a
// disk state the fast path didn't short-circuit, so only content identity
// decides New vs. Modified vs. Unchanged here. A mtime-only drift (same hash
// and size) still lands on Unchanged; the caller corrects the stored mtime
// for it separately.
func classify(prev catalog.FileState, found bool, m filemeta.Metadata) changeStatus {
	if !found || prev.IsDeleted {
		return statusNew
	}
	if m.ContentHash != prev.ContentHash || m.SizeBytes != prev.SizeBytes {
		return statusModified
	}
	return statusUnchanged
}

// scanForImplicitDeletions walks every active catalog row across all watch
// roots and marks any whose absolute path is absent on disk and not already
// seen as deleted.
func (d *ChangeDetector) scanForImplicitDeletions(ctx context.Context, cs *ChangeSet, seen map[string]bool) error {
	for _, root := range d.roots {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := d.catalog.ListActiveByRoot(root)
		if err != nil {
			return err
		}
		for _, f := range rows {
			if seen[f.AbsPath] {
				continue
			}
			seen[f.AbsPath] = true
			if _, err := os.Lstat(f.AbsPath); err != nil && os.IsNotExist(err) {
				cs.Deleted = append(cs.Deleted, f.AbsPath)
			}
		}
	}
	return nil
}
