package indexer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// FileDiscovery handles file discovery with glob patterns and ignore rules.
type FileDiscovery struct {
	rootDir          string
	codePatterns     []glob.Glob
	docsPatterns     []glob.Glob
	ignorePatterns   []glob.Glob
	sensitivePatterns []glob.Glob
}

// NewFileDiscovery creates a new file discovery instance. sensitivePatterns
// are excluded unconditionally, even when a file also matches code/docs
// (spec's "Sensitive-file exclusion list").
func NewFileDiscovery(rootDir string, codePatterns, docsPatterns, ignorePatterns, sensitivePatterns []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		rootDir: rootDir,
	}

	compile := func(patterns []string) ([]glob.Glob, error) {
		var out []glob.Glob
		for _, pattern := range patterns {
			g, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, err
			}
			out = append(out, g)
			// gobwas/glob matches the '/' after "**" literally, so "**/x"
			// alone would miss a root-level "x"; match that case too.
			if rest := strings.TrimPrefix(pattern, "**/"); rest != pattern {
				rootGlob, err := glob.Compile(rest, '/')
				if err != nil {
					return nil, err
				}
				out = append(out, rootGlob)
			}
		}
		return out, nil
	}

	var err error
	if fd.codePatterns, err = compile(codePatterns); err != nil {
		return nil, err
	}
	if fd.docsPatterns, err = compile(docsPatterns); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compile(ignorePatterns); err != nil {
		return nil, err
	}
	if fd.sensitivePatterns, err = compile(sensitivePatterns); err != nil {
		return nil, err
	}

	return fd, nil
}

// DiscoverFiles walks the directory tree and returns code and doc files.
func (fd *FileDiscovery) DiscoverFiles() (codeFiles []string, docFiles []string, err error) {
	codeFiles = []string{}
	docFiles = []string{}

	err = filepath.Walk(fd.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip directories
		if info.IsDir() {
			return nil
		}

		// Get relative path for pattern matching
		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}

		// Normalize path separators for glob matching
		relPath = filepath.ToSlash(relPath)

		// Check ignore patterns
		if fd.ShouldIgnoreRelPath(relPath) {
			return nil
		}

		// Check code patterns
		if fd.matchesAnyPattern(relPath, fd.codePatterns) {
			codeFiles = append(codeFiles, path)
			return nil
		}

		// Check docs patterns
		if fd.matchesAnyPattern(relPath, fd.docsPatterns) {
			docFiles = append(docFiles, path)
			return nil
		}

		return nil
	})

	return codeFiles, docFiles, err
}

// ShouldIgnoreRelPath reports whether a root-relative path matches any
// ignore or sensitive pattern. Exported so other components that need to
// skip the same paths (e.g. the file watcher's directory walk) can share
// this decision instead of keeping their own copy of the exclusion list.
func (fd *FileDiscovery) ShouldIgnoreRelPath(relPath string) bool {
	// Always ignore the catalog's own directory.
	if strings.HasPrefix(relPath, ".contextd/") || relPath == ".contextd" {
		return true
	}

	if fd.matchesAnyPattern(relPath, fd.sensitivePatterns) {
		return true
	}

	// Check if the path matches any ignore pattern
	if fd.matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix
	// For example, "node_modules" should match pattern "node_modules/**"
	pathWithSuffix := relPath + "/**"
	return fd.matchesAnyPattern(pathWithSuffix, fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (fd *FileDiscovery) matchesAnyPattern(path string, patterns []glob.Glob) bool {
	for _, pattern := range patterns {
		if pattern.Match(path) {
			return true
		}
	}
	return false
}
