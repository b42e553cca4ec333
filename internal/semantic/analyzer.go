package semantic

import (
	"context"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Analyzer classifies the semantic changes between two versions of a file.
// Implementations: TreeSitterAnalyzer (production), stub analyzers (testing).
type Analyzer interface {
	// Supported reports whether the file's extension maps to a known
	// language family.
	Supported(path string) bool

	// Analyze diffs before against after and returns the ordered semantic
	// changes. An empty before means the after text is a fresh baseline.
	// Unsupported files and unparseable input yield an analysis with zero
	// changes rather than an error.
	Analyze(ctx context.Context, path, before, after string) (*FileAnalysis, error)
}

// extToLanguage maps file extensions to languages. TSX and JSX share the
// TypeScript grammar.
var extToLanguage = map[string]Language{
	".go":  LangGo,
	".ts":  LangTypeScript,
	".tsx": LangTypeScript,
	".js":  LangTypeScript,
	".jsx": LangTypeScript,
	".py":  LangPython,
	".rs":  LangRust,
}

// LanguageForPath returns the language for a file path and whether the
// extension is supported.
func LanguageForPath(path string) (Language, bool) {
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// extractor builds a structural outline from a parsed tree-sitter AST.
type extractor interface {
	Extract(root *tree_sitter.Node, source []byte) outline
}

// TreeSitterAnalyzer implements Analyzer using tree-sitter grammars. A new
// tree-sitter parser is created per parse, so the type is safe for
// sequential use; individual Analyze calls are not thread-safe.
type TreeSitterAnalyzer struct {
	languages  map[Language]*tree_sitter.Language
	extractors map[Language]extractor
}

// Compile-time assertion: *TreeSitterAnalyzer satisfies Analyzer.
var _ Analyzer = (*TreeSitterAnalyzer)(nil)

// NewTreeSitterAnalyzer creates a TreeSitterAnalyzer with Go, TypeScript,
// Python, and Rust grammars registered.
func NewTreeSitterAnalyzer() *TreeSitterAnalyzer {
	return NewTreeSitterAnalyzerFor(SupportedLanguages...)
}

// NewTreeSitterAnalyzerFor creates a TreeSitterAnalyzer restricted to the
// given languages. Files in other languages report as unsupported and
// analyze to zero changes. Unknown language names are ignored.
func NewTreeSitterAnalyzerFor(languages ...Language) *TreeSitterAnalyzer {
	allLangs := map[Language]func() *tree_sitter.Language{
		LangGo:         func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_go.Language()) },
		LangTypeScript: func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) },
		LangPython:     func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_python.Language()) },
		LangRust:       func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_rust.Language()) },
	}
	allExtractors := map[Language]extractor{
		LangGo:         &goExtractor{},
		LangTypeScript: &tsExtractor{},
		LangPython:     &pyExtractor{},
		LangRust:       &rsExtractor{},
	}

	langs := make(map[Language]*tree_sitter.Language, len(languages))
	extractors := make(map[Language]extractor, len(languages))
	for _, lang := range languages {
		load, ok := allLangs[lang]
		if !ok {
			continue
		}
		langs[lang] = load()
		extractors[lang] = allExtractors[lang]
	}

	return &TreeSitterAnalyzer{
		languages:  langs,
		extractors: extractors,
	}
}

// Supported reports whether the file's extension maps to a registered
// grammar.
func (a *TreeSitterAnalyzer) Supported(path string) bool {
	lang, ok := LanguageForPath(path)
	if !ok {
		return false
	}
	_, ok = a.languages[lang]
	return ok
}

// Analyze parses both versions and diffs their outlines. Parse failures
// degrade to a partial or empty analysis; the error return is reserved for
// context cancellation.
func (a *TreeSitterAnalyzer) Analyze(ctx context.Context, path, before, after string) (*FileAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis := &FileAnalysis{FilePath: path}

	lang, ok := LanguageForPath(path)
	if !ok {
		return analysis, nil
	}
	tsLang, ok := a.languages[lang]
	if !ok {
		return analysis, nil
	}
	ext := a.extractors[lang]

	var beforeOutline outline
	if before != "" {
		beforeOutline = a.parseOutline(tsLang, ext, before)
	}
	afterOutline := a.parseOutline(tsLang, ext, after)

	analysis.Changes = diffOutlines(beforeOutline, afterOutline)
	return analysis, nil
}

// parseOutline parses one version of a file into an outline. Tree-sitter is
// error-tolerant: syntactically invalid input still produces a tree, and any
// unrecognized regions simply contribute nothing to the outline.
func (a *TreeSitterAnalyzer) parseOutline(tsLang *tree_sitter.Language, ext extractor, source string) outline {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tsLang); err != nil {
		return outline{}
	}

	tree := parser.Parse([]byte(source), nil)
	if tree == nil {
		return outline{}
	}
	defer tree.Close()

	return ext.Extract(tree.RootNode(), []byte(source))
}
