package symbols

import "regexp"

// modifierPrefix matches the common access/linkage modifiers that precede a
// declaration keyword across the brace-family languages.
const modifierPrefix = `(?:export\s+|public\s+|private\s+|protected\s+|internal\s+|abstract\s+|final\s+|static\s+|sealed\s+|open\s+|async\s+|override\s+|readonly\s+|const\s+)*`

var languageRules = map[string]langRules{
	"go": {
		packageRule: &rule{pattern: regexp.MustCompile(`^package\s+(\w+)`)},
		importRule:  &rule{pattern: regexp.MustCompile(`^\s*"[^"]+"$|^import\s+"([^"]+)"`)},
		classRules: []rule{
			{kind: "class", pattern: regexp.MustCompile(`^type\s+(\w+)\s+struct\b`)},
			{kind: "interface", pattern: regexp.MustCompile(`^type\s+(\w+)\s+interface\b`)},
		},
		funcRules: []rule{
			{kind: "method", pattern: regexp.MustCompile(`^func\s+\([^)]*\)\s*(\w+)\s*\(`)},
			{kind: "function", pattern: regexp.MustCompile(`^func\s+(\w+)\s*\(`)},
		},
		fieldRules: []rule{
			{kind: "variable", pattern: regexp.MustCompile(`^var\s+(\w+)\b`)},
			{kind: "variable", pattern: regexp.MustCompile(`^const\s+(\w+)\b`)},
		},
	},
	"typescript": tsLikeRules(),
	"javascript": tsLikeRules(),
	"python": {
		importRule: &rule{pattern: regexp.MustCompile(`^(?:import|from)\s+`)},
		classRules: []rule{
			{kind: "class", pattern: regexp.MustCompile(`^class\s+(\w+)`)},
		},
		funcRules: []rule{
			{kind: "function", pattern: regexp.MustCompile(`^\s*def\s+(\w+)\s*\(`)},
		},
		fieldRules: []rule{
			{kind: "field", pattern: regexp.MustCompile(`^\s*self\.(\w+)\s*=`)},
			{kind: "variable", pattern: regexp.MustCompile(`^(\w+)\s*=\s*`)},
		},
		indentBased: true,
	},
	"rust": {
		classRules: []rule{
			{kind: "class", pattern: regexp.MustCompile(`^` + modifierPrefix + `struct\s+(\w+)`)},
			{kind: "interface", pattern: regexp.MustCompile(`^` + modifierPrefix + `trait\s+(\w+)`)},
			{kind: "class", pattern: regexp.MustCompile(`^` + modifierPrefix + `enum\s+(\w+)`)},
			{kind: "class", pattern: regexp.MustCompile(`^impl(?:<[^>]*>)?\s+(?:\w+\s+for\s+)?(\w+)`)},
		},
		funcRules: []rule{
			{kind: "function", pattern: regexp.MustCompile(`^` + modifierPrefix + `fn\s+(\w+)\s*\(`)},
		},
		fieldRules: []rule{
			{kind: "variable", pattern: regexp.MustCompile(`^` + modifierPrefix + `let\s+(?:mut\s+)?(\w+)`)},
			{kind: "variable", pattern: regexp.MustCompile(`^` + modifierPrefix + `const\s+(\w+)`)},
		},
	},
	"java":   curlyBraceOopRules("package"),
	"kotlin": curlyBraceOopRules("package"),
	"csharp": curlyBraceOopRules("namespace"),
	"php": {
		packageRule: &rule{pattern: regexp.MustCompile(`^namespace\s+([\w\\]+)`)},
		importRule:  &rule{pattern: regexp.MustCompile(`^use\s+`)},
		classRules: []rule{
			{kind: "class", pattern: regexp.MustCompile(`^` + modifierPrefix + `class\s+(\w+)`)},
			{kind: "interface", pattern: regexp.MustCompile(`^` + modifierPrefix + `interface\s+(\w+)`)},
		},
		funcRules: []rule{
			{kind: "method", pattern: regexp.MustCompile(`^` + modifierPrefix + `function\s+(\w+)\s*\(`)},
		},
		fieldRules: []rule{
			{kind: "field", pattern: regexp.MustCompile(`^\s*\$this->(\w+)\s*=`)},
		},
	},
	"ruby": {
		classRules: []rule{
			{kind: "class", pattern: regexp.MustCompile(`^class\s+(\w+)`)},
			{kind: "interface", pattern: regexp.MustCompile(`^module\s+(\w+)`)},
		},
		funcRules: []rule{
			{kind: "method", pattern: regexp.MustCompile(`^def\s+(?:self\.)?(\w+)`)},
		},
		fieldRules: []rule{
			{kind: "field", pattern: regexp.MustCompile(`^\s*@(\w+)\s*=`)},
		},
	},
	"c":      curlyBraceCFamilyRules(),
	"cpp":    curlyBraceOopRules("namespace"),
	"swift":  curlyBraceOopRules(""),
}

// tsLikeRules covers TypeScript and JavaScript, which share declaration
// syntax closely enough to use one table.
func tsLikeRules() langRules {
	return langRules{
		importRule: &rule{pattern: regexp.MustCompile(`^import\s+|^const\s+.*=\s*require\(`)},
		classRules: []rule{
			{kind: "class", pattern: regexp.MustCompile(`^` + modifierPrefix + `class\s+(\w+)`)},
			{kind: "interface", pattern: regexp.MustCompile(`^` + modifierPrefix + `interface\s+(\w+)`)},
			{kind: "enum", pattern: regexp.MustCompile(`^` + modifierPrefix + `enum\s+(\w+)`)},
		},
		funcRules: []rule{
			{kind: "function", pattern: regexp.MustCompile(`^` + modifierPrefix + `function\s+(\w+)\s*\(`)},
			{kind: "function", pattern: regexp.MustCompile(`^(?:export\s+)?const\s+(\w+)\s*=\s*(?:async\s+)?\([^)]*\)\s*=>`)},
			{kind: "method", pattern: regexp.MustCompile(`^\s*(?:async\s+)?(\w+)\s*\([^)]*\)\s*\{`)},
		},
		fieldRules: []rule{
			{kind: "variable", pattern: regexp.MustCompile(`^` + modifierPrefix + `(?:let|const|var)\s+(\w+)`)},
			{kind: "field", pattern: regexp.MustCompile(`^\s*this\.(\w+)\s*=`)},
		},
	}
}

// curlyBraceOopRules covers the mainstream class/interface/enum OOP
// languages (Java, Kotlin, C#, C++, Swift) whose declaration syntax differs
// mostly in the keyword that opens a namespace.
func curlyBraceOopRules(namespaceKeyword string) langRules {
	r := langRules{
		classRules: []rule{
			{kind: "class", pattern: regexp.MustCompile(`^` + modifierPrefix + `class\s+(\w+)`)},
			{kind: "interface", pattern: regexp.MustCompile(`^` + modifierPrefix + `interface\s+(\w+)`)},
			{kind: "enum", pattern: regexp.MustCompile(`^` + modifierPrefix + `enum\s+(?:class\s+)?(\w+)`)},
			{kind: "class", pattern: regexp.MustCompile(`^` + modifierPrefix + `struct\s+(\w+)`)},
			{kind: "class", pattern: regexp.MustCompile(`^` + modifierPrefix + `object\s+(\w+)`)},
		},
		funcRules: []rule{
			{kind: "method", pattern: regexp.MustCompile(`^` + modifierPrefix + `(?:[\w<>\[\],\s]+?\s+)?(\w+)\s*\([^;]*\)\s*\{`)},
			{kind: "function", pattern: regexp.MustCompile(`^` + modifierPrefix + `fun\s+(\w+)\s*\(`)},
		},
		fieldRules: []rule{
			{kind: "field", pattern: regexp.MustCompile(`^` + modifierPrefix + `(?:val|var)\s+(\w+)\s*:`)},
			{kind: "variable", pattern: regexp.MustCompile(`^` + modifierPrefix + `(?:[\w<>\[\],\s]+?)\s+(\w+)\s*=[^=]`)},
		},
	}
	if namespaceKeyword != "" {
		r.packageRule = &rule{pattern: regexp.MustCompile(`^` + namespaceKeyword + `\s+([\w.:]+)`)}
	}
	return r
}

// curlyBraceCFamilyRules covers plain C, which has no class keyword.
func curlyBraceCFamilyRules() langRules {
	return langRules{
		importRule: &rule{pattern: regexp.MustCompile(`^#include\s+`)},
		classRules: []rule{
			{kind: "class", pattern: regexp.MustCompile(`^(?:typedef\s+)?struct\s+(\w+)`)},
			{kind: "enum", pattern: regexp.MustCompile(`^(?:typedef\s+)?enum\s+(\w+)`)},
		},
		funcRules: []rule{
			{kind: "function", pattern: regexp.MustCompile(`^(?:static\s+|inline\s+)*[\w\*\s]+?\s+(\w+)\s*\([^;]*\)\s*\{`)},
		},
		fieldRules: []rule{
			{kind: "variable", pattern: regexp.MustCompile(`^(?:static\s+|const\s+)*[\w\*\s]+?\s+(\w+)\s*=[^=]`)},
		},
	}
}
