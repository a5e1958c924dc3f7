package lang

import (
	"fmt"
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/source"
)

var (
	javaDefHeader      = regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final|abstract|synchronized|native|default|strictfp)\s+)*(?:<[^>]*>\s*)?(?:([\w.<>\[\],?]+)\s+)?(\w+)\s*\(`)
	javaAnnotationLine = regexp.MustCompile(`^\s*@\w+(?:\([^)]*\))?\s*`)
	javaImport         = regexp.MustCompile(`(?m)^[ \t]*import\s+(static\s+)?([\w.]+?)(\.\*)?\s*;`)
	javaPackage        = regexp.MustCompile(`(?m)^[ \t]*package\s+([\w.]+)\s*;`)
	javaControlWords   = setOf("if", "for", "while", "switch", "catch", "synchronized", "return", "new", "throw")
	javaTrivialMethods = setOf("toString", "equals", "hashCode", "clone")
)

var javaLanguage = tree_sitter.NewLanguage(tree_sitter_java.Language())

var javaTypeKinds = map[string]source.Kind{
	"class_declaration":     source.KindClass,
	"enum_declaration":      source.KindClass,
	"record_declaration":    source.KindClass,
	"interface_declaration": source.KindInterface,
}

// Compile-time assertion: *JavaAdapter satisfies Adapter.
var _ Adapter = (*JavaAdapter)(nil)

// JavaAdapter parses Java with tree-sitter. Everything the resolver needs,
// call sites included, is copied out of the syntax tree before it is closed.
type JavaAdapter struct{}

// NewJavaAdapter returns the Java adapter.
func NewJavaAdapter() *JavaAdapter { return &JavaAdapter{} }

func (a *JavaAdapter) Language() source.Language { return source.LangJava }

func (a *JavaAdapter) Traits() Traits {
	return Traits{ImplicitReceiver: true, PackageSiblings: true}
}

// Definitions parses u and returns its top-level types with their methods,
// constructors and nested types as children.
func (a *JavaAdapter) Definitions(u *source.Unit) ([]*source.Definition, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(javaLanguage); err != nil {
		return nil, fmt.Errorf("set language java: %w", err)
	}
	src := []byte(u.Content)
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", u.Path)
	}
	defer tree.Close()

	b := &javaBuilder{unit: u, src: src}
	return b.build(tree.RootNode()), nil
}

type javaFrame struct {
	node   *tree_sitter.Node
	parent *source.Definition
}

// javaBuilder turns a syntax tree into definitions.
type javaBuilder struct {
	unit *source.Unit
	src  []byte
}

func (b *javaBuilder) build(root *tree_sitter.Node) []*source.Definition {
	var top []*source.Definition
	stack := []javaFrame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.node
		if n.Kind() == "object_creation_expression" {
			continue // anonymous class bodies in initializers
		}

		var d *source.Definition
		if kind, ok := javaTypeKinds[n.Kind()]; ok {
			d = b.typeDef(n, kind, f.parent)
		} else if n.Kind() == "method_declaration" || n.Kind() == "constructor_declaration" {
			d = b.methodDef(n, f.parent)
		}

		parent := f.parent
		if d != nil {
			if f.parent == nil {
				top = append(top, d)
			} else {
				f.parent.Children = append(f.parent.Children, d)
			}
			if d.IsCallable() {
				continue // bodies are read by methodDef
			}
			parent = d
		}
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, javaFrame{node: n.NamedChild(uint(i)), parent: parent})
		}
	}
	return top
}

func (b *javaBuilder) text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(b.src)
}

func (b *javaBuilder) newDef(n *tree_sitter.Node, parent *source.Definition) *source.Definition {
	start, end := int(n.StartByte()), int(n.EndByte())
	d := &source.Definition{
		Unit:      b.unit,
		Name:      b.text(n.ChildByFieldName("name")),
		Start:     start,
		End:       end,
		BodyStart: end,
		StartLine: int(n.StartPosition().Row) + 1,
		EndLine:   int(n.EndPosition().Row) + 1,
		Text:      b.unit.Content[start:end],
		Parent:    parent,
		Vars:      make(map[string]string),
	}
	if body := n.ChildByFieldName("body"); body != nil {
		d.BodyStart = int(body.StartByte())
	}
	d.Qualified = d.Name
	if parent != nil {
		d.Qualified = parent.Qualified + "." + d.Name
	}
	d.Decorators = b.annotations(n)
	return d
}

func (b *javaBuilder) typeDef(n *tree_sitter.Node, kind source.Kind, parent *source.Definition) *source.Definition {
	d := b.newDef(n, parent)
	d.Kind = kind
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "superclass", "super_interfaces", "extends_interfaces":
			d.Bases = append(d.Bases, javaTypeList(b.text(c))...)
		}
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return d
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		c := body.NamedChild(i)
		if c.Kind() != "field_declaration" && c.Kind() != "constant_declaration" {
			continue
		}
		typ := normalizeType(b.text(c.ChildByFieldName("type")))
		for j := uint(0); j < c.NamedChildCount(); j++ {
			decl := c.NamedChild(j)
			if decl.Kind() != "variable_declarator" {
				continue
			}
			name := b.text(decl.ChildByFieldName("name"))
			d.Vars[name] = typ
			d.Vars["this."+name] = typ
		}
	}
	if n.Kind() == "record_declaration" {
		b.params(n.ChildByFieldName("parameters"), d.Vars)
	}
	return d
}

// javaTypeList reads the type names of an extends or implements clause.
func javaTypeList(clause string) []string {
	clause = strings.TrimSpace(clause)
	for _, kw := range []string{"extends", "implements"} {
		clause = strings.TrimSpace(strings.TrimPrefix(clause, kw))
	}
	var out []string
	for _, t := range splitTopLevelAngle(clause) {
		if t = normalizeType(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitTopLevelAngle splits a comma list outside angle brackets.
func splitTopLevelAngle(s string) []string {
	var out []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[last:i])
				last = i + 1
			}
		}
	}
	return append(out, s[last:])
}

// annotations returns the annotation names in the modifiers of n.
func (b *javaBuilder) annotations(n *tree_sitter.Node) []string {
	var out []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.Kind() != "modifiers" {
			continue
		}
		for j := uint(0); j < c.NamedChildCount(); j++ {
			m := c.NamedChild(j)
			if m.Kind() == "annotation" || m.Kind() == "marker_annotation" {
				out = append(out, b.text(m.ChildByFieldName("name")))
			}
		}
	}
	return out
}

func (b *javaBuilder) methodDef(n *tree_sitter.Node, parent *source.Definition) *source.Definition {
	d := b.newDef(n, parent)
	d.Kind = source.KindMethod
	if n.Kind() == "constructor_declaration" {
		d.Kind = source.KindConstructor
	}
	if parent != nil {
		d.Owner = parent.Name
	}
	b.params(n.ChildByFieldName("parameters"), d.Vars)

	body := n.ChildByFieldName("body")
	if body == nil {
		d.Abstract = true
		return d
	}

	// Walk the body, skipping anonymous and local classes.
	stack := []*tree_sitter.Node{body}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch c.Kind() {
		case "class_body", "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			continue
		case "local_variable_declaration":
			b.declarators(c, d.Vars)
		case "enhanced_for_statement":
			d.Vars[b.text(c.ChildByFieldName("name"))] = normalizeType(b.text(c.ChildByFieldName("type")))
		case "catch_formal_parameter":
			for i := uint(0); i < c.NamedChildCount(); i++ {
				if t := c.NamedChild(i); t.Kind() == "catch_type" {
					types := strings.Split(b.text(t), "|")
					d.Vars[b.text(c.ChildByFieldName("name"))] = normalizeType(types[0])
				}
			}
		case "method_invocation":
			d.Calls = append(d.Calls, b.invocation(c))
		case "object_creation_expression":
			d.Calls = append(d.Calls, b.creation(c))
		}
		for i := int(c.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, c.NamedChild(uint(i)))
		}
	}

	// Receiver types are known once every declaration has been seen.
	for i := range d.Calls {
		cs := &d.Calls[i]
		if cs.Receiver == source.ReceiverQualified {
			cs.TypeHint, _ = d.Lookup(cs.Qualifier)
		}
	}
	return d
}

func (b *javaBuilder) params(list *tree_sitter.Node, vars map[string]string) {
	if list == nil {
		return
	}
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		switch p.Kind() {
		case "formal_parameter":
			vars[b.text(p.ChildByFieldName("name"))] = normalizeType(b.text(p.ChildByFieldName("type")))
		case "spread_parameter":
			var typ, name string
			for j := uint(0); j < p.NamedChildCount(); j++ {
				c := p.NamedChild(j)
				switch {
				case c.Kind() == "variable_declarator":
					name = b.text(c.ChildByFieldName("name"))
				case c.Kind() != "modifiers" && typ == "":
					typ = b.text(c)
				}
			}
			if name != "" {
				vars[name] = normalizeType(typ)
			}
		}
	}
}

func (b *javaBuilder) declarators(n *tree_sitter.Node, vars map[string]string) {
	typ := normalizeType(b.text(n.ChildByFieldName("type")))
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.Kind() != "variable_declarator" {
			continue
		}
		name := b.text(c.ChildByFieldName("name"))
		if typ == "var" {
			// var x = new T(...) still names its type.
			if v := c.ChildByFieldName("value"); v != nil && v.Kind() == "object_creation_expression" {
				vars[name] = javaSimpleType(b.text(v.ChildByFieldName("type")))
			}
			continue
		}
		vars[name] = typ
	}
}

func (b *javaBuilder) site(n *tree_sitter.Node) source.CallSite {
	return source.CallSite{
		Text:   b.text(n),
		Offset: int(n.StartByte()),
		Line:   int(n.StartPosition().Row) + 1,
	}
}

func (b *javaBuilder) invocation(n *tree_sitter.Node) source.CallSite {
	cs := b.site(n)
	cs.Name = b.text(n.ChildByFieldName("name"))
	obj := n.ChildByFieldName("object")
	if obj == nil {
		return cs
	}
	switch obj.Kind() {
	case "this":
		cs.Receiver, cs.Qualifier = source.ReceiverSelf, "this"
	case "super":
		cs.Receiver, cs.Qualifier = source.ReceiverSuper, "super"
	case "identifier":
		cs.Receiver, cs.Qualifier = source.ReceiverQualified, b.text(obj)
	case "field_access":
		if inner := obj.ChildByFieldName("object"); inner != nil && inner.Kind() == "this" {
			cs.Receiver = source.ReceiverQualified
			cs.Qualifier = "this." + b.text(obj.ChildByFieldName("field"))
			break
		}
		cs.Receiver = source.ReceiverChained
	default:
		cs.Receiver = source.ReceiverChained
	}
	return cs
}

func (b *javaBuilder) creation(n *tree_sitter.Node) source.CallSite {
	cs := b.site(n)
	cs.Name = javaSimpleType(b.text(n.ChildByFieldName("type")))
	cs.Constructor = true
	return cs
}

// javaSimpleType strips type arguments and package qualification.
func javaSimpleType(t string) string {
	t = normalizeType(t)
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}
	return t
}

func (a *JavaAdapter) IsFunctionDefinition(d *source.Definition) bool {
	return d != nil && (d.Kind == source.KindMethod || d.Kind == source.KindConstructor)
}

func (a *JavaAdapter) IsDefinitionText(text string) bool {
	return a.ExtractName(text) != ""
}

// stripAnnotations drops leading annotation lines and prefixes.
func stripAnnotations(text string) string {
	for {
		loc := javaAnnotationLine.FindStringIndex(text)
		if loc == nil || loc[1] == 0 {
			return text
		}
		text = text[loc[1]:]
	}
}

func (a *JavaAdapter) ExtractName(text string) string {
	m := javaDefHeader.FindStringSubmatch(stripAnnotations(text))
	if m == nil || javaControlWords[m[1]] || javaControlWords[m[2]] {
		return ""
	}
	return m[2]
}

func (a *JavaAdapter) ExtractSignature(text string) string {
	masked := mask(text, javaStyle)
	_, bodyStart, _ := braceBodyEnd(masked, 0)
	if bodyStart < 0 {
		return strings.TrimSuffix(strings.TrimSpace(text), ";")
	}
	return strings.TrimSpace(text[:bodyStart])
}

func (a *JavaAdapter) ExtractBody(content string, start int) string {
	if start < 0 || start >= len(content) {
		return ""
	}
	end, _, _ := braceBodyEnd(mask(content, javaStyle), start)
	return content[start:end]
}

func (a *JavaAdapter) StripComments(text string) string {
	return stripComments(text, javaStyle, false)
}

// CallSites returns the calls collected while parsing.
func (a *JavaAdapter) CallSites(d *source.Definition) []source.CallSite {
	if d == nil || d.Abstract {
		return nil
	}
	return d.Calls
}

func (a *JavaAdapter) ExtractCallName(callText string) string {
	text := strings.TrimSpace(callText)
	if rest, ok := strings.CutPrefix(text, "new "); ok {
		return javaSimpleType(strings.TrimSpace(strings.SplitN(rest, "(", 2)[0]))
	}
	return callName(text, func(q string) bool { return q == "this" || q == "super" })
}

func (a *JavaAdapter) IsBuiltin(name string) bool {
	return javaBuiltins[name]
}

// IsRelevant drops tests, abstract methods, Object overrides and one-line
// accessors.
func (a *JavaAdapter) IsRelevant(d *source.Definition, cfg model.ExtractionConfig) bool {
	if !a.IsFunctionDefinition(d) || d.Abstract {
		return false
	}
	if !cfg.IncludeTests() && a.isTest(d) {
		return false
	}
	if javaTrivialMethods[d.Name] {
		return false
	}
	if isAccessorName(d.Name) && countStatements(mask(d.Body(), javaStyle)) <= 1 {
		return false
	}
	return true
}

func (a *JavaAdapter) isTest(d *source.Definition) bool {
	for _, ann := range d.Decorators {
		if strings.Contains(ann, "Test") || strings.HasPrefix(ann, "Before") || strings.HasPrefix(ann, "After") {
			return true
		}
	}
	return false
}

func (a *JavaAdapter) Imports(u *source.Unit) []source.Import {
	masked := mask(u.Content, javaStyle)
	var out []source.Import
	for _, m := range javaImport.FindAllStringSubmatchIndex(masked, -1) {
		imp := source.Import{
			Static:   m[2] >= 0,
			Wildcard: m[6] >= 0,
			Line:     u.LineAt(m[0]),
			Text:     strings.TrimSpace(u.Content[m[0]:m[1]]),
		}
		name := masked[m[4]:m[5]]
		if imp.Wildcard {
			imp.From = name
		} else {
			imp.From, imp.Name = splitPath(name)
		}
		out = append(out, imp)
	}
	return out
}

func (a *JavaAdapter) PackageName(u *source.Unit) string {
	if m := javaPackage.FindStringSubmatch(mask(u.Content, javaStyle)); m != nil {
		return m[1]
	}
	return ""
}

// ImportCandidates maps a class import to its source file and a wildcard
// import to its package directory. JDK imports have no candidates.
func (a *JavaAdapter) ImportCandidates(imp source.Import, _ *source.Unit) []Candidate {
	full := imp.From
	if imp.Name != "" && !imp.Static {
		full += "." + imp.Name
	}
	for _, p := range javaLibraryPrefixes {
		if strings.HasPrefix(full+".", p) {
			return nil
		}
	}
	rel := strings.ReplaceAll(full, ".", "/")
	if imp.Wildcard && !imp.Static {
		return []Candidate{{Path: rel, Dir: true}}
	}
	return []Candidate{{Path: rel + ".java"}}
}
