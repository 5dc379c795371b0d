// Package symbols implements the heuristic, per-language declaration scanner
// described in spec.md §4.4: a line-oriented regexp scan favoring recall
// over precision, the same tradeoff internal/chunker makes for block
// boundaries. It never touches the catalog; FileIndexer assigns FileID and
// SymbolID before passing the symbols to catalog.SyncFileArtifacts.
package symbols

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Symbol is a heuristically-extracted declaration, prior to catalog ids
// being assigned.
type Symbol struct {
	Type          string // package, import, class, interface, enum, object, function, method, field, variable, identifier
	Name          string
	QualifiedName string
	Signature     string
	StartLine     int
	EndLine       int
}

// Extractor scans source text for declarations.
type Extractor struct{}

// New builds the default heuristic Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract scans text and returns the declarations found. language selects
// the pattern table; an empty or unrecognized language falls back to the
// bounded distinct-identifier scan.
func (e *Extractor) Extract(text, path, language string) ([]Symbol, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")

	rules, ok := languageRules[language]
	if !ok {
		return extractUnknownLanguage(lines, path), nil
	}
	return scan(lines, rules), nil
}

// rule pairs a declaration pattern with the symbol type it produces. The
// capture group, if present, is the declared name; otherwise the whole
// match (trimmed) is used.
type rule struct {
	kind    string
	pattern *regexp.Regexp
}

type langRules struct {
	packageRule *rule
	importRule  *rule
	classRules  []rule
	funcRules   []rule
	fieldRules  []rule
	indentBased bool // scope tracked by indentation rather than braces
}

// scopeFrame tracks one open class/interface/enum/object scope.
type scopeFrame struct {
	name     string
	depth    int // brace depth, or indent column, at which this scope was opened
	symIndex int // index into scan's out slice, to backfill EndLine on close
}

// scan walks lines top to bottom, tracking nested class scope via brace
// depth (or indentation for indentBased languages) and emitting a Symbol
// for every declaration a rule matches.
func scan(lines []string, r langRules) []Symbol {
	var out []Symbol
	var pkg string
	var stack []scopeFrame
	depth := 0

	qualify := func(name string) string {
		parts := make([]string, 0, len(stack)+2)
		if pkg != "" {
			parts = append(parts, pkg)
		}
		for _, f := range stack {
			parts = append(parts, f.name)
		}
		parts = append(parts, name)
		return strings.Join(parts, ".")
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if r.indentBased {
			col := leadingWhitespace(line)
			for len(stack) > 0 && col <= stack[len(stack)-1].depth {
				out[stack[len(stack)-1].symIndex].EndLine = lineNum - 1
				stack = stack[:len(stack)-1]
			}
		} else {
			// Pop any scopes this line's closing braces exit, before
			// scanning it for new declarations opened on the same line.
			// Opening braces on this line are accounted for once, at the
			// bottom of the loop, after rules have matched against it.
			for i := 0; i < strings.Count(line, "}"); i++ {
				depth--
				if len(stack) > 0 && depth <= stack[len(stack)-1].depth {
					out[stack[len(stack)-1].symIndex].EndLine = lineNum
					stack = stack[:len(stack)-1]
				}
			}
		}

		if r.packageRule != nil && pkg == "" {
			if m := r.packageRule.pattern.FindStringSubmatch(line); m != nil {
				if len(m) > 1 {
					pkg = m[1]
				}
				if !r.indentBased {
					depth += strings.Count(line, "{")
				}
				continue
			}
		}

		if r.importRule != nil && r.importRule.pattern.MatchString(line) {
			name := strings.TrimSpace(r.importRule.pattern.FindString(line))
			out = append(out, Symbol{
				Type:          "import",
				Name:          name,
				QualifiedName: name,
				Signature:     trimmed,
				StartLine:     lineNum,
				EndLine:       lineNum,
			})
			if !r.indentBased {
				depth += strings.Count(line, "{")
			}
			continue
		}

		if kind, name, ok := matchRules(r.classRules, line); ok {
			out = append(out, Symbol{
				Type:          kind,
				Name:          name,
				QualifiedName: qualify(name),
				Signature:     trimmed,
				StartLine:     lineNum,
				EndLine:       lineNum, // backfilled to the close line when the scope pops
			})
			openDepth := depth
			if r.indentBased {
				openDepth = leadingWhitespace(line)
			}
			stack = append(stack, scopeFrame{name: name, depth: openDepth, symIndex: len(out) - 1})
		} else if kind, name, ok := matchRules(r.funcRules, line); ok {
			out = append(out, Symbol{
				Type:          kind,
				Name:          name,
				QualifiedName: qualify(name),
				Signature:     trimmed,
				StartLine:     lineNum,
				EndLine:       lineNum,
			})
		} else if kind, name, ok := matchRules(r.fieldRules, line); ok {
			out = append(out, Symbol{
				Type:          kind,
				Name:          name,
				QualifiedName: qualify(name),
				Signature:     trimmed,
				StartLine:     lineNum,
				EndLine:       lineNum,
			})
		}

		if !r.indentBased {
			depth += strings.Count(line, "{")
		}
	}
	return out
}

func matchRules(rules []rule, line string) (kind, name string, ok bool) {
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if len(m) > 1 && m[1] != "" {
			return r.kind, m[1], true
		}
		return r.kind, strings.TrimSpace(m[0]), true
	}
	return "", "", false
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

// identifierPattern is the unknown-language fallback scan per spec §4.4.
var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]{2,}`)

const maxUnknownIdentifiers = 20

// extractUnknownLanguage emits up to maxUnknownIdentifiers distinct
// identifiers, excluding the file's base name (without extension), in
// first-seen order.
func extractUnknownLanguage(lines []string, path string) []Symbol {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	seen := make(map[string]bool)
	var out []Symbol

	for i, line := range lines {
		for _, m := range identifierPattern.FindAllStringIndex(line, -1) {
			name := line[m[0]:m[1]]
			if name == base || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, Symbol{
				Type:          "identifier",
				Name:          name,
				QualifiedName: name,
				StartLine:     i + 1,
				EndLine:       i + 1,
			})
			if len(out) >= maxUnknownIdentifiers {
				return out
			}
		}
	}
	return out
}
