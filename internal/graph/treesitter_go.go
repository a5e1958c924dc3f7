package graph

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// goExtractor extracts symbols from Go source files.
type goExtractor struct{}

func (e *goExtractor) Extract(root *tree_sitter.Node, src []byte, out *Outline) {
	walk(root, func(n *tree_sitter.Node, sc scope) (scope, bool) {
		switch n.Kind() {
		case "package_clause":
			for i := uint(0); i < n.NamedChildCount(); i++ {
				if c := n.NamedChild(i); c != nil && c.Kind() == "package_identifier" {
					out.File.Package = c.Utf8Text(src)
				}
			}
			return sc, false

		case "function_declaration":
			if name := fieldText(n, "name", src); name != "" {
				out.Symbols = append(out.Symbols, symbolFor(n, name, SymbolKindFunction, "", isGoExported(name)))
			}
			return sc, false

		case "method_declaration":
			if name := fieldText(n, "name", src); name != "" {
				recv := goReceiverType(fieldText(n, "receiver", src))
				out.Symbols = append(out.Symbols, symbolFor(n, name, SymbolKindMethod, recv, isGoExported(name)))
			}
			return sc, false

		case "type_spec":
			name := fieldText(n, "name", src)
			if name == "" {
				return sc, false
			}
			kind := SymbolKindType
			if t := n.ChildByFieldName("type"); t != nil {
				switch t.Kind() {
				case "interface_type":
					kind = SymbolKindInterface
				case "struct_type":
					kind = SymbolKindClass
				}
			}
			out.Symbols = append(out.Symbols, symbolFor(n, name, kind, "", isGoExported(name)))
			return sc, false

		case "import_spec":
			if p := strings.Trim(fieldText(n, "path", src), "\"`"); p != "" {
				out.Imports = append(out.Imports, p)
			}
			return sc, false
		}
		return sc, true
	})
}

// goReceiverType reduces a receiver list such as "(s *Cache[K, V])" to the
// type name.
func goReceiverType(recv string) string {
	recv = strings.Trim(strings.TrimSpace(recv), "()")
	if i := strings.IndexByte(recv, '['); i >= 0 {
		recv = recv[:i]
	}
	fields := strings.Fields(recv)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimLeft(fields[len(fields)-1], "*")
}

// isGoExported returns true if the first rune of name is an uppercase letter.
func isGoExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
