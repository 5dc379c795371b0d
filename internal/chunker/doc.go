package chunker

import (
	"regexp"
	"strings"

	"github.com/mvp-joe/contextd/internal/catalog"
)

// docChunker splits markdown-like documentation into semantic chunks:
// first by "##" headers, then, for sections larger than targetTokens, by
// paragraph (blank-line-delimited), never splitting inside a fenced code
// block. Adapted from the teacher's documentation chunker, generalized to
// emit chunker.Chunk instead of a bespoke DocumentationChunk type.
type docChunker struct {
	targetTokens int
}

// NewDocChunker returns a header/paragraph chunker targeting roughly
// targetTokens tokens per chunk.
func NewDocChunker(targetTokens int) Chunker {
	if targetTokens <= 0 {
		targetTokens = 800
	}
	return &docChunker{targetTokens: targetTokens}
}

var headerPattern = regexp.MustCompile(`^##\s+`)
var codeFencePattern = regexp.MustCompile("^```")

func (d *docChunker) Chunk(text, path, language string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")

	var chunks []Chunk
	for _, sec := range splitByHeaders(lines) {
		chunks = append(chunks, d.processSection(sec)...)
	}
	return normalize(chunks), nil
}

type docSection struct {
	startLine int // 1-indexed
	lines     []string
}

func splitByHeaders(lines []string) []docSection {
	var sections []docSection
	current := docSection{startLine: 1}

	for i, line := range lines {
		if headerPattern.MatchString(line) && i > 0 {
			if len(current.lines) > 0 {
				sections = append(sections, current)
			}
			current = docSection{startLine: i + 1, lines: []string{line}}
			continue
		}
		current.lines = append(current.lines, line)
	}
	if len(current.lines) > 0 {
		sections = append(sections, current)
	}
	return sections
}

func (d *docChunker) processSection(sec docSection) []Chunk {
	text := strings.Join(sec.lines, "\n")
	tokens := EstimateTokens(text)
	if tokens <= d.targetTokens {
		return []Chunk{{
			Kind:          catalog.ChunkKindParagraph,
			StartLine:     sec.startLine,
			EndLine:       sec.startLine + len(sec.lines) - 1,
			Content:       strings.TrimSpace(text),
			TokenEstimate: tokens,
		}}
	}
	return d.splitByParagraphs(sec)
}

type docParagraph struct {
	text      string
	startLine int
	endLine   int
}

func (d *docChunker) splitByParagraphs(sec docSection) []Chunk {
	paragraphs := extractParagraphs(sec.lines, sec.startLine)

	var chunks []Chunk
	var current []docParagraph
	size := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		texts := make([]string, len(current))
		for i, p := range current {
			texts[i] = p.text
		}
		chunks = append(chunks, Chunk{
			Kind:      catalog.ChunkKindParagraph,
			StartLine: current[0].startLine,
			EndLine:   current[len(current)-1].endLine,
			Content:   strings.Join(texts, "\n\n"),
		})
		current = nil
		size = 0
	}

	for _, p := range paragraphs {
		pSize := EstimateTokens(p.text)
		if size > 0 && size+pSize > d.targetTokens {
			flush()
		}
		if pSize > d.targetTokens {
			// Oversized single paragraph: emit standalone rather than
			// further splitting by sentence — code blocks and long
			// prose both survive intact this way.
			chunks = append(chunks, Chunk{
				Kind:      catalog.ChunkKindParagraph,
				StartLine: p.startLine,
				EndLine:   p.endLine,
				Content:   p.text,
			})
			continue
		}
		current = append(current, p)
		size += pSize
	}
	flush()
	return chunks
}

// extractParagraphs splits lines into blank-line-delimited paragraphs,
// keeping any fenced code block as a single paragraph regardless of blank
// lines inside it.
func extractParagraphs(lines []string, startLine int) []docParagraph {
	var paragraphs []docParagraph
	var current []string
	currentStart := startLine
	inCode := false

	flush := func(endLine int) {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" {
			paragraphs = append(paragraphs, docParagraph{text: text, startLine: currentStart, endLine: endLine})
		}
		current = nil
	}

	for i, line := range lines {
		lineNum := startLine + i

		if codeFencePattern.MatchString(line) {
			if !inCode {
				flush(lineNum - 1)
				inCode = true
				currentStart = lineNum
				current = append(current, line)
			} else {
				current = append(current, line)
				flush(lineNum)
				inCode = false
				currentStart = lineNum + 1
			}
			continue
		}

		if inCode {
			current = append(current, line)
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush(lineNum - 1)
			currentStart = lineNum + 1
			continue
		}
		current = append(current, line)
	}
	flush(startLine + len(lines) - 1)
	return paragraphs
}
