package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// pyExtractor extracts symbols from Python source files. Nested functions
// and classes are listed with their enclosing definition as container.
type pyExtractor struct{}

func (e *pyExtractor) Extract(root *tree_sitter.Node, src []byte, out *Outline) {
	walk(root, func(n *tree_sitter.Node, sc scope) (scope, bool) {
		switch n.Kind() {
		case "class_definition":
			name := fieldText(n, "name", src)
			if name == "" {
				return sc, false
			}
			out.Symbols = append(out.Symbols, symbolFor(n, name, SymbolKindClass, sc.name, isPyPublic(name)))
			return scope{name: sc.qualify(name), class: true}, true

		case "function_definition":
			name := fieldText(n, "name", src)
			if name == "" {
				return sc, false
			}
			kind := SymbolKindFunction
			if sc.class {
				kind = SymbolKindMethod
				if name == "__init__" {
					kind = SymbolKindConstructor
				}
			}
			out.Symbols = append(out.Symbols, symbolFor(n, name, kind, sc.name, isPyPublic(name)))
			return scope{name: sc.qualify(name)}, true

		case "import_statement", "import_from_statement":
			out.Imports = append(out.Imports, strings.TrimSpace(n.Utf8Text(src)))
			return sc, false
		}
		return sc, true
	})
}

// isPyPublic treats names without a leading underscore, and dunders, as
// public.
func isPyPublic(name string) bool {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return true
	}
	return !strings.HasPrefix(name, "_")
}
