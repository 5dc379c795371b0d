package catalog

import "time"

// FileState is the catalog's record of the last-known state of an indexed
// file. No two active (non-deleted) rows may share the same absolute path.
type FileState struct {
	FileID       string
	Root         string
	RelPath      string
	AbsPath      string
	ContentHash  string
	SizeBytes    int64
	ModTimeNanos int64
	Language     string // empty when undetected
	Kind         string // chunking strategy id
	Fingerprint  string // optional, strategy-specific
	IndexedAt    time.Time
	IsDeleted    bool
	Generated    bool
}

// IsActive reports whether this row represents a live, non-deleted file.
func (f *FileState) IsActive() bool { return !f.IsDeleted }

// ChunkKind enumerates the recognized chunk categories.
type ChunkKind string

const (
	ChunkKindCodeFunction ChunkKind = "CODE_FUNCTION"
	ChunkKindCodeClass    ChunkKind = "CODE_CLASS"
	ChunkKindParagraph    ChunkKind = "PARAGRAPH"
	ChunkKindFile         ChunkKind = "FILE"
)

// Chunk is a bounded, self-contained text region produced from a file.
type Chunk struct {
	ChunkID      string
	FileID       string
	Ordinal      int
	Kind         ChunkKind
	StartLine    int
	EndLine      int
	TokenCount   int
	Content      string
	Summary      string
	CreatedAt    time.Time
}

// Embedding is a fixed-dimension vector owned by exactly one (chunk, model) pair.
type Embedding struct {
	ID         string
	ChunkID    string
	Model      string
	Dimensions int
	Vector     []float32
	CreatedAt  time.Time
}

// Symbol is a heuristically-extracted declaration owned by a FileState.
type Symbol struct {
	SymbolID      string
	FileID        string
	SymbolType    string
	Name          string
	QualifiedName string
	Signature     string
	Language      string
	StartLine     int
	EndLine       int
}

// Link is a directed edge between two chunks, or from a chunk to a file.
type Link struct {
	LinkID   string
	FromID   string
	ToID     string
	ToFileID string
	Type     string
	Label    string
	Score    float64
}

// UsageMetric records one retrieval call for telemetry/observability.
type UsageMetric struct {
	MetricID            string
	TaskID              string
	SnippetsReturned    int
	TotalTokens         int
	RetrievalLatencyMs  int64
	CreatedAt           time.Time
}

// FileArtifacts bundles everything sync_file_artifacts commits atomically
// for a single file: the file's own state plus its derived chunks,
// embeddings, symbols and links.
type FileArtifacts struct {
	File      FileState
	Chunks    []Chunk
	Embeddings []Embedding
	Symbols   []Symbol
	Links     []Link
}
