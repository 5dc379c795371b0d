package chunker

import (
	"regexp"
	"strings"

	"github.com/mvp-joe/contextd/internal/catalog"
)

// codeChunker splits source text into function- and class-level chunks using
// a brace/indent heuristic scanner, the same style of line-oriented
// detection SymbolExtractor uses (regexp boundary patterns plus brace-depth
// tracking) rather than a real per-language parser, per the heuristic
// contract in spec.md §4.3/§4.4.
type codeChunker struct{}

// NewCodeChunker returns the default heuristic code chunker.
func NewCodeChunker() Chunker {
	return &codeChunker{}
}

// classPattern recognizes lines opening a class-like construct across the
// languages in codeExtensions (class/struct/interface/trait/enum/object).
var classPattern = regexp.MustCompile(`^\s*(?:export\s+|public\s+|private\s+|protected\s+|abstract\s+|final\s+)*(?:class|struct|interface|trait|enum|object|impl)\b`)

// funcPattern recognizes lines opening a function/method that start with one
// of the keywords `func`, `def`, `fn` or `function` (after optional
// modifiers). C-family signatures without such a keyword are not recognized.
var funcPattern = regexp.MustCompile(`^\s*(?:export\s+|public\s+|private\s+|protected\s+|static\s+|async\s+|override\s+)*(?:func|def|fn|function)\b`)

func (c *codeChunker) Chunk(text, path, language string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")

	blocks := findBlocks(lines, language)
	if len(blocks) == 0 {
		return normalize([]Chunk{{
			Kind:      catalog.ChunkKindFile,
			StartLine: 1,
			EndLine:   len(lines),
			Content:   text,
		}}), nil
	}

	var chunks []Chunk
	if blocks[0].start > 1 {
		header := strings.Join(lines[0:blocks[0].start-1], "\n")
		if strings.TrimSpace(header) != "" {
			chunks = append(chunks, Chunk{
				Kind:      catalog.ChunkKindFile,
				StartLine: 1,
				EndLine:   blocks[0].start - 1,
				Content:   header,
			})
		}
	}
	for _, b := range blocks {
		chunks = append(chunks, Chunk{
			Kind:      b.kind,
			StartLine: b.start,
			EndLine:   b.end,
			Content:   strings.Join(lines[b.start-1:b.end], "\n"),
		})
	}
	return normalize(chunks), nil
}

type block struct {
	kind  catalog.ChunkKind
	start int // 1-indexed, inclusive
	end   int // 1-indexed, inclusive
}

// findBlocks scans line by line for a class/function opener, then tracks
// brace depth (or, for brace-less languages like Python, indentation) to
// find where that block ends. Nested declarations are absorbed into their
// enclosing block rather than split out, favoring coarse-but-correct chunks
// over exact per-member boundaries.
func findBlocks(lines []string, language string) []block {
	indentBased := language == "python"

	var blocks []block
	i := 0
	for i < len(lines) {
		line := lines[i]
		var kind catalog.ChunkKind
		switch {
		case classPattern.MatchString(line):
			kind = catalog.ChunkKindCodeClass
		case funcPattern.MatchString(line):
			kind = catalog.ChunkKindCodeFunction
		default:
			i++
			continue
		}

		start := i + 1 // 1-indexed
		var end int
		if indentBased {
			end = scanByIndent(lines, i)
		} else {
			end = scanByBrace(lines, i)
		}
		blocks = append(blocks, block{kind: kind, start: start, end: end})
		i = end // end is 1-indexed inclusive, so lines[end] is the next line (0-indexed)
	}
	return blocks
}

// scanByBrace returns the 1-indexed end line of the block opened at the
// 0-indexed line i, found by counting '{' / '}' until depth returns to zero.
// The first '{' on or after the opening line opens the block, even when it
// sits on a later line. If no '{' appears anywhere from the opening line to
// the end of the file, the block is just that single line.
func scanByBrace(lines []string, i int) int {
	depth := 0
	seenOpen := false
	for j := i; j < len(lines); j++ {
		for _, r := range lines[j] {
			switch r {
			case '{':
				depth++
				seenOpen = true
			case '}':
				depth--
			}
		}
		if seenOpen && depth <= 0 {
			return j + 1
		}
	}
	if !seenOpen {
		return i + 1
	}
	return len(lines)
}

// scanByIndent returns the 1-indexed end line for an indent-delimited block
// (Python): the block continues while subsequent non-blank lines are
// indented deeper than the opener.
func scanByIndent(lines []string, i int) int {
	baseIndent := leadingWhitespace(lines[i])
	end := i + 1
	for j := i + 1; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			end = j + 1
			continue
		}
		if leadingWhitespace(lines[j]) <= baseIndent {
			break
		}
		end = j + 1
	}
	return end
}

func leadingWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if r == ' ' || r == '\t' {
			n++
			continue
		}
		break
	}
	return n
}
