// Package filemeta extracts per-file metadata — size, mtime, content hash,
// MIME type and a best-effort language hint — ahead of chunking.
package filemeta

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mvp-joe/contextd/internal/ctxerr"
	"github.com/mvp-joe/contextd/internal/hasher"
)

// Metadata is the result of extracting a single file's attributes.
type Metadata struct {
	SizeBytes      int64
	ModTimeNanos   int64
	ContentHash    string
	Language       string // empty when undetected
	MimeType       string
	Generated      bool
}

// Extractor produces Metadata for a path, hashing content via the supplied
// Hasher.
type Extractor struct {
	hasher *hasher.Hasher
}

// New builds an Extractor around h. A nil h uses hasher.New()'s default.
func New(h *hasher.Hasher) *Extractor {
	if h == nil {
		h = hasher.New()
	}
	return &Extractor{hasher: h}
}

// Extract reads path's stat info, computes its content hash, detects MIME
// type and a language hint. It fails with ErrInvalidPath if path is not a
// regular file.
func (e *Extractor) Extract(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, ctxerr.Wrap(ctxerr.ErrInvalidPath, "stat file", err)
	}
	if !info.Mode().IsRegular() {
		return Metadata{}, ctxerr.Wrap(ctxerr.ErrInvalidPath, "not a regular file: "+path, nil)
	}

	hash, err := e.hasher.HashHex(path)
	if err != nil {
		return Metadata{}, err
	}

	mtype, err := mimetype.DetectFile(path)
	mimeType := ""
	if err == nil && mtype != nil {
		mimeType = mtype.String()
	}

	lang := DetectLanguage(path, mimeType)
	generated, _ := isGeneratedFile(path, info.Size())

	return Metadata{
		SizeBytes:    info.Size(),
		ModTimeNanos: info.ModTime().UnixNano(),
		ContentHash:  hash,
		Language:     lang,
		MimeType:     mimeType,
		Generated:    generated,
	}, nil
}

// extensionLanguages is the exact-extension precedence table (precedence
// rule 1 in the language detection contract).
var extensionLanguages = map[string]string{
	".go":     "go",
	".ts":     "typescript",
	".tsx":    "typescript",
	".js":     "javascript",
	".jsx":    "javascript",
	".mjs":    "javascript",
	".py":     "python",
	".rs":     "rust",
	".c":      "c",
	".h":      "c",
	".cpp":    "cpp",
	".cc":     "cpp",
	".hpp":    "cpp",
	".php":    "php",
	".rb":     "ruby",
	".java":   "java",
	".kt":     "kotlin",
	".kts":    "kotlin",
	".cs":     "csharp",
	".swift":  "swift",
	".md":     "markdown",
	".rst":    "restructuredtext",
	".txt":    "text",
	".json":   "json",
	".yaml":   "yaml",
	".yml":    "yaml",
	".toml":   "toml",
	".sh":     "shell",
	".bash":   "shell",
	".sql":    "sql",
	".html":   "html",
	".css":    "css",
	".proto":  "protobuf",
}

// wellKnownFilenames is precedence rule 2: exact, extension-less filenames.
var wellKnownFilenames = map[string]string{
	"dockerfile": "dockerfile",
	"makefile":   "makefile",
	"gemfile":    "ruby",
	"rakefile":   "ruby",
}

// DetectLanguage applies the three-tier precedence: extension table, then
// well-known filenames, then MIME-subtype mapping. Returns "" when nothing
// matches.
func DetectLanguage(path, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}

	base := strings.ToLower(filepath.Base(path))
	if lang, ok := wellKnownFilenames[base]; ok {
		return lang
	}

	if mimeType != "" {
		if lang, ok := languageFromMimeSubtype(mimeType); ok {
			return lang
		}
	}
	return ""
}

func languageFromMimeSubtype(mimeType string) (string, bool) {
	mt, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(mt) {
	case "text/x-python":
		return "python", true
	case "text/x-go":
		return "go", true
	case "application/javascript", "text/javascript":
		return "javascript", true
	case "application/json":
		return "json", true
	case "text/x-shellscript":
		return "shell", true
	case "text/markdown":
		return "markdown", true
	case "text/html":
		return "html", true
	case "text/css":
		return "css", true
	}
	return "", false
}

// generatedMarkerScanBytes bounds how much of a file is scanned for a
// "Code generated ... DO NOT EDIT" marker, which by convention appears on
// one of the first few lines.
const generatedMarkerScanBytes = 4096

// isGeneratedFile reports whether path carries a generated-file marker.
// Mirrors the convention scanners use to down-rank machine-written files
// without excluding them from the index.
func isGeneratedFile(path string, size int64) (bool, error) {
	if size == 0 {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, generatedMarkerScanBytes)
	n, _ := f.Read(buf)
	head := string(buf[:n])
	lower := strings.ToLower(head)
	return strings.Contains(lower, "code generated") && strings.Contains(lower, "do not edit"), nil
}
