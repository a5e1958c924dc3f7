package graph

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/dusk-indust/funcctx/internal/source"
)

// Outline is the symbol table of one file.
type Outline struct {
	File    FileNode     `json:"file"`
	Symbols []SymbolNode `json:"symbols"`
	Imports []string     `json:"imports,omitempty"`
}

// extractor fills an Outline from a parsed tree-sitter AST.
type extractor interface {
	Extract(root *tree_sitter.Node, source []byte, out *Outline)
}

// Outliner lists the symbols of source files using tree-sitter grammars.
// A new tree-sitter parser is created per Outline call, so an Outliner is
// safe for concurrent use.
type Outliner struct {
	languages  map[source.Language]*tree_sitter.Language
	extractors map[source.Language]extractor
}

// NewOutliner creates an Outliner with Go, Python and Java grammars
// registered.
func NewOutliner() *Outliner {
	return &Outliner{
		languages: map[source.Language]*tree_sitter.Language{
			source.LangGo:     tree_sitter.NewLanguage(tree_sitter_go.Language()),
			source.LangPython: tree_sitter.NewLanguage(tree_sitter_python.Language()),
			source.LangJava:   tree_sitter.NewLanguage(tree_sitter_java.Language()),
		},
		extractors: map[source.Language]extractor{
			source.LangGo:     &goExtractor{},
			source.LangPython: &pyExtractor{},
			source.LangJava:   &javaExtractor{},
		},
	}
}

// Outline parses src and returns its symbols in source order.
func (o *Outliner) Outline(_ context.Context, path string, src []byte, lang source.Language) (*Outline, error) {
	tsLang, ok := o.languages[lang]
	if !ok {
		return nil, fmt.Errorf("outline %s: unsupported language %q", path, lang)
	}
	ext := o.extractors[lang]

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tsLang); err != nil {
		return nil, fmt.Errorf("set language %s: %w", lang, err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", path)
	}
	defer tree.Close()

	out := &Outline{File: FileNode{Path: path, Language: lang, LOC: countLines(src)}}
	ext.Extract(tree.RootNode(), src, out)
	for i := range out.Symbols {
		out.Symbols[i].FilePath = path
	}
	return out, nil
}

// SupportedLanguages returns the languages this outliner can handle, sorted.
func (o *Outliner) SupportedLanguages() []source.Language {
	langs := make([]source.Language, 0, len(o.languages))
	for l := range o.languages {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Close is a no-op because parsers are created per Outline call.
func (o *Outliner) Close() error {
	return nil
}

// countLines counts newline bytes, plus one for a final unterminated line.
func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	n := bytes.Count(src, []byte{'\n'})
	if src[len(src)-1] != '\n' {
		n++
	}
	return n
}

// ---------------------------------------------------------------------------
// Tree walking
// ---------------------------------------------------------------------------

// scope is the symbol enclosing a node.
type scope struct {
	name  string // qualified name, empty at file level
	class bool
}

func (s scope) qualify(name string) string {
	if s.name == "" {
		return name
	}
	return s.name + "." + name
}

// walk visits root and its named descendants in pre-order using an explicit
// stack. visit returns the scope for the node's children and whether to
// descend into them.
func walk(root *tree_sitter.Node, visit func(n *tree_sitter.Node, sc scope) (scope, bool)) {
	type frame struct {
		node *tree_sitter.Node
		sc   scope
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		next, descend := visit(f.node, f.sc)
		if !descend {
			continue
		}
		for i := int(f.node.NamedChildCount()) - 1; i >= 0; i-- {
			if c := f.node.NamedChild(uint(i)); c != nil {
				stack = append(stack, frame{node: c, sc: next})
			}
		}
	}
}

// fieldText returns the text of n's child at field, or "".
func fieldText(n *tree_sitter.Node, field string, src []byte) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return c.Utf8Text(src)
}

// symbolFor builds a SymbolNode spanning n.
func symbolFor(n *tree_sitter.Node, name string, kind SymbolKind, container string, exported bool) SymbolNode {
	return SymbolNode{
		Name:      name,
		Kind:      kind,
		Container: container,
		Exported:  exported,
		StartLine: int(n.StartPosition().Row) + 1,
		EndLine:   int(n.EndPosition().Row) + 1,
	}
}
