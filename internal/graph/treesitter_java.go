package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// javaExtractor extracts symbols from Java source files. Members of local
// and anonymous classes are not listed.
type javaExtractor struct{}

var javaTypeKinds = map[string]SymbolKind{
	"class_declaration":     SymbolKindClass,
	"record_declaration":    SymbolKindClass,
	"interface_declaration": SymbolKindInterface,
	"enum_declaration":      SymbolKindEnum,
}

func (e *javaExtractor) Extract(root *tree_sitter.Node, src []byte, out *Outline) {
	walk(root, func(n *tree_sitter.Node, sc scope) (scope, bool) {
		kind := n.Kind()
		if symKind, ok := javaTypeKinds[kind]; ok {
			name := fieldText(n, "name", src)
			if name == "" {
				return sc, false
			}
			out.Symbols = append(out.Symbols, symbolFor(n, name, symKind, sc.name, hasJavaModifier(n, "public", src)))
			return scope{name: sc.qualify(name), class: true}, true
		}

		switch kind {
		case "package_declaration":
			text := strings.TrimSpace(n.Utf8Text(src))
			text = strings.TrimSuffix(strings.TrimPrefix(text, "package"), ";")
			out.File.Package = strings.TrimSpace(text)
			return sc, false

		case "object_creation_expression":
			return sc, false

		case "import_declaration":
			out.Imports = append(out.Imports, strings.TrimSpace(n.Utf8Text(src)))
			return sc, false

		case "method_declaration", "constructor_declaration":
			name := fieldText(n, "name", src)
			if name == "" {
				return sc, false
			}
			symKind := SymbolKindMethod
			if kind == "constructor_declaration" {
				symKind = SymbolKindConstructor
			}
			out.Symbols = append(out.Symbols, symbolFor(n, name, symKind, sc.name, hasJavaModifier(n, "public", src)))
			return sc, false
		}
		return sc, true
	})
}

// hasJavaModifier reports whether the modifiers of n include word.
func hasJavaModifier(n *tree_sitter.Node, word string, src []byte) bool {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Kind() != "modifiers" {
			continue
		}
		for _, f := range strings.Fields(c.Utf8Text(src)) {
			if f == word {
				return true
			}
		}
	}
	return false
}
