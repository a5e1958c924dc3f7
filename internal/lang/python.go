package lang

import (
	"path"
	"regexp"
	"strings"

	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/source"
)

var (
	pyDefPattern    = regexp.MustCompile(`^([ \t]*)(?:async[ \t]+)?def[ \t]+(\w+)\s*\(`)
	pyClassPattern  = regexp.MustCompile(`^([ \t]*)class[ \t]+(\w+)\s*(\()?`)
	pyDecorator     = regexp.MustCompile(`^[ \t]*@[ \t]*([\w.]+)`)
	pyDefHeader     = regexp.MustCompile(`(?s)^\s*(?:@[^\n]*\n\s*)*(?:async\s+)?def\s+(\w+)\s*\(`)
	pyClassHeader   = regexp.MustCompile(`(?s)^\s*(?:@[^\n]*\n\s*)*class\s+(\w+)`)
	pyImport        = regexp.MustCompile(`^[ \t]*import[ \t]+(.+)$`)
	pyFromImport    = regexp.MustCompile(`^[ \t]*from[ \t]+(\.*)([\w.]*)[ \t]+import[ \t]+(.+)$`)
	pyLocalInstance = regexp.MustCompile(`(?m)^[ \t]*(\w+)\s*(?::\s*[\w.\[\], ]+)?=\s*((?:\w+\.)*[A-Z]\w*)\s*\(`)
	pyLocalAnnot    = regexp.MustCompile(`(?m)^[ \t]*(\w+)\s*:\s*((?:\w+\.)*[A-Z]\w*)\s*=`)
	pySelfInstance  = regexp.MustCompile(`(?m)^[ \t]*self\.(\w+)\s*(?::\s*[\w.\[\], ]+)?=\s*((?:\w+\.)*[A-Z]\w*)\s*\(`)
	pySelfAnnot     = regexp.MustCompile(`(?m)^[ \t]*self\.(\w+)\s*:\s*((?:\w+\.)*\w+)`)
	pySelfAssign    = regexp.MustCompile(`(?m)^[ \t]*self\.(\w+)\s*=\s*(\w+)[ \t]*$`)
	pyTestPrefix    = regexp.MustCompile(`^test(_|$)`)
)

var pyTrivialDunders = setOf("__str__", "__repr__", "__eq__", "__hash__")

// Compile-time assertion: *PythonAdapter satisfies Adapter.
var _ Adapter = (*PythonAdapter)(nil)

// PythonAdapter reads Python structure from indentation. Strings and
// comments are masked before any bracket or indentation is counted, but the
// scan is still heuristic: code generated inside exec strings or unusual
// continuation styles may be misread.
type PythonAdapter struct{}

// NewPythonAdapter returns the Python adapter.
func NewPythonAdapter() *PythonAdapter { return &PythonAdapter{} }

func (a *PythonAdapter) Language() source.Language { return source.LangPython }

func (a *PythonAdapter) Traits() Traits {
	return Traits{GuessReceivers: true, NestedFunctions: true, ConstructorName: "__init__"}
}

// Definitions finds def and class statements and nests them by containment.
func (a *PythonAdapter) Definitions(u *source.Unit) ([]*source.Definition, error) {
	content := u.Content
	masked := mask(content, pythonStyle)

	var flat []*source.Definition
	decoStart := -1
	var decos []string
	depth := 0
	for _, ln := range splitLines(masked, 0) {
		line := masked[ln.start:ln.end]
		def := pyDefPattern.FindStringSubmatchIndex(line)
		class := pyClassPattern.FindStringSubmatchIndex(line)
		if depth > 0 && def == nil && class == nil {
			depth += bracketDelta(line)
			continue
		}
		depth = 0

		switch {
		case def == nil && class == nil:
			if m := pyDecorator.FindStringSubmatch(line); m != nil {
				if decoStart < 0 {
					decoStart = ln.start
				}
				decos = append(decos, m[1])
			} else if strings.TrimSpace(line) != "" {
				decoStart, decos = -1, nil
			}
			depth = bracketDelta(line)
			if depth < 0 {
				depth = 0
			}
			continue
		}

		start := ln.start
		if decoStart >= 0 {
			start = decoStart
		}
		end, _ := indentBodyEnd(content, masked, start)
		d := &source.Definition{
			Unit:       u,
			Start:      start,
			End:        end,
			Text:       content[start:end],
			Decorators: decos,
			StartLine:  u.LineAt(start),
			EndLine:    u.LineAt(end),
			Vars:       make(map[string]string),
		}
		if def != nil {
			d.Name = line[def[4]:def[5]]
			d.Kind = source.KindFunction
		} else {
			d.Name = line[class[4]:class[5]]
			d.Kind = source.KindClass
			if class[6] >= 0 {
				open := ln.start + class[6]
				if closeIdx := matchClose(masked, open); closeIdx > open {
					d.Bases = pyBases(masked[open+1 : closeIdx])
				}
			}
		}
		d.BodyStart = pyHeaderColon(masked, ln.start, end)
		if d.BodyStart < 0 {
			d.BodyStart = end
		}
		flat = append(flat, d)
		decoStart, decos = -1, nil
	}

	top := nestByContainment(flat)
	source.Walk(top, func(d *source.Definition) bool {
		a.qualify(d)
		if d.IsCallable() {
			a.collectVars(d, masked)
		}
		return true
	})
	return top, nil
}

// nestByContainment attaches each definition to the nearest preceding one
// that contains it. defs must be sorted by Start.
func nestByContainment(defs []*source.Definition) []*source.Definition {
	var top, stack []*source.Definition
	for _, d := range defs {
		for len(stack) > 0 && stack[len(stack)-1].End < d.Start {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			p := stack[len(stack)-1]
			d.Parent = p
			p.Children = append(p.Children, d)
		} else {
			top = append(top, d)
		}
		stack = append(stack, d)
	}
	return top
}

func (a *PythonAdapter) qualify(d *source.Definition) {
	if d.Parent == nil {
		d.Qualified = d.Name
	} else {
		d.Qualified = d.Parent.Qualified + "." + d.Name
	}
	if d.Kind == source.KindFunction && d.Parent != nil && d.Parent.IsType() {
		d.Owner = d.Parent.Name
		d.Kind = source.KindMethod
		if d.Name == "__init__" {
			d.Kind = source.KindConstructor
		}
	}
	for _, deco := range d.Decorators {
		if deco == "abstractmethod" || strings.HasSuffix(deco, ".abstractmethod") {
			d.Abstract = true
		}
	}
}

// collectVars records annotated parameters and instantiated locals on d, and
// instance attributes assigned through self on the enclosing class.
func (a *PythonAdapter) collectVars(d *source.Definition, masked string) {
	header := masked[d.Start:d.BodyStart]
	if m := pyDefPattern.FindStringIndex(lastDefLine(header)); m != nil {
		open := strings.LastIndex(header[:len(header)-len(lastDefLine(header))+m[1]], "(")
		if closeIdx := matchClose(header, open); closeIdx > open {
			raw := d.Unit.Content[d.Start+open+1 : d.Start+closeIdx]
			for _, p := range splitTopLevel(raw, ',') {
				name, typ := pyParam(p)
				if name != "" && typ != "" && name != "self" && name != "cls" {
					d.Vars[name] = typ
				}
			}
		}
	}

	body := masked[d.BodyStart:d.End]
	for _, m := range pyLocalInstance.FindAllStringSubmatch(body, -1) {
		d.Vars[m[1]] = m[2]
	}
	for _, m := range pyLocalAnnot.FindAllStringSubmatch(body, -1) {
		d.Vars[m[1]] = m[2]
	}

	class := d.Parent
	if class == nil || !class.IsType() {
		return
	}
	for _, m := range pySelfAnnot.FindAllStringSubmatch(body, -1) {
		class.Vars["self."+m[1]] = pyUnwrapType(m[2])
	}
	for _, m := range pySelfInstance.FindAllStringSubmatch(body, -1) {
		class.Vars["self."+m[1]] = m[2]
	}
	for _, m := range pySelfAssign.FindAllStringSubmatch(body, -1) {
		if typ, ok := d.Vars[m[2]]; ok {
			class.Vars["self."+m[1]] = typ
		}
	}
}

// lastDefLine returns the last line of a header, the one holding def.
func lastDefLine(header string) string {
	for _, ln := range splitLines(header, 0) {
		if pyDefPattern.MatchString(header[ln.start:ln.end]) {
			return header[ln.start:]
		}
	}
	return header
}

// pyParam splits "name: Type = default" into name and a resolvable type.
func pyParam(p string) (name, typ string) {
	p = strings.TrimSpace(p)
	if eq := strings.IndexByte(p, '='); eq >= 0 {
		p = p[:eq]
	}
	p = strings.TrimLeft(p, "*")
	colon := strings.IndexByte(p, ':')
	if colon < 0 {
		return strings.TrimSpace(p), ""
	}
	return strings.TrimSpace(p[:colon]), pyUnwrapType(p[colon+1:])
}

// pyUnwrapType reduces an annotation to a class name: quotes and Optional
// are removed.
func pyUnwrapType(t string) string {
	t = strings.Trim(strings.TrimSpace(t), `"'`)
	if inner, ok := strings.CutPrefix(t, "Optional["); ok {
		t = strings.TrimSuffix(inner, "]")
	}
	if i := strings.IndexByte(t, '|'); i > 0 {
		t = t[:i]
	}
	return normalizeType(t)
}

// pyBases parses a class argument list, skipping keyword arguments.
func pyBases(args string) []string {
	var out []string
	for _, b := range splitTopLevel(args, ',') {
		b = strings.TrimSpace(b)
		if b == "" || b == "object" || strings.Contains(b, "=") {
			continue
		}
		out = append(out, normalizeType(b))
	}
	return out
}

// pyHeaderColon returns the offset of the colon ending the header that
// starts at from, or -1.
func pyHeaderColon(masked string, from, limit int) int {
	depth := 0
	for i := from; i < limit && i < len(masked); i++ {
		switch masked[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (a *PythonAdapter) IsFunctionDefinition(d *source.Definition) bool {
	if d == nil || !d.IsCallable() {
		return false
	}
	return a.IsDefinitionText(d.Text)
}

func (a *PythonAdapter) IsDefinitionText(text string) bool {
	return pyDefHeader.MatchString(text)
}

func (a *PythonAdapter) ExtractName(text string) string {
	if m := pyDefHeader.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := pyClassHeader.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func (a *PythonAdapter) ExtractSignature(text string) string {
	masked := mask(text, pythonStyle)
	from := 0
	if m := pyDefHeader.FindStringIndex(masked); m != nil {
		from = m[1] - 1
	}
	colon := pyHeaderColon(masked, from, len(masked))
	if colon < 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:colon])
}

func (a *PythonAdapter) ExtractBody(content string, start int) string {
	if start < 0 || start >= len(content) {
		return ""
	}
	end, _ := indentBodyEnd(content, mask(content, pythonStyle), start)
	return content[start:end]
}

func (a *PythonAdapter) StripComments(text string) string {
	return stripComments(text, pythonStyle, true)
}

func (a *PythonAdapter) CallSites(d *source.Definition) []source.CallSite {
	if d == nil || !d.IsCallable() {
		return nil
	}
	masked := mask(d.Text, pythonStyle)
	raws := scanCalls(d.Text, masked, d.BodyStart-d.Start+1, len(d.Text), childRanges(d))

	var out []source.CallSite
	for _, rc := range raws {
		qual, name := splitPath(rc.path)
		if qual == "" && pythonKeywords[name] {
			continue
		}
		if rc.prevWord == "def" || rc.prevWord == "class" {
			continue
		}
		recv := source.ReceiverNone
		switch {
		case rc.superArg:
			recv, qual = source.ReceiverSuper, "super()"
		case rc.chained:
			recv, qual = source.ReceiverChained, ""
		case qual == "":
		case qual == "self" || qual == "cls":
			recv = source.ReceiverSelf
		default:
			recv = source.ReceiverQualified
		}
		cs := makeCallSite(d, rc, qual, name, recv)
		if recv == source.ReceiverQualified {
			cs.TypeHint, _ = d.Lookup(qual)
		}
		out = append(out, cs)
	}
	return out
}

func (a *PythonAdapter) ExtractCallName(callText string) string {
	return callName(callText, func(q string) bool {
		return q == "self" || q == "cls" || q == "super()"
	})
}

func (a *PythonAdapter) IsBuiltin(name string) bool {
	return pythonBuiltins[name]
}

// IsRelevant drops tests, abstract methods, trivial dunders and one-line
// accessors.
func (a *PythonAdapter) IsRelevant(d *source.Definition, cfg model.ExtractionConfig) bool {
	if d == nil || !d.IsCallable() || d.Abstract {
		return false
	}
	if !cfg.IncludeTests() && a.isTest(d) {
		return false
	}
	if pyTrivialDunders[d.Name] {
		return false
	}
	if isAccessorName(d.Name) {
		body := strings.TrimPrefix(mask(d.Body(), pythonStyle), ":")
		if countStatements(body) <= 1 {
			return false
		}
	}
	return true
}

func (a *PythonAdapter) isTest(d *source.Definition) bool {
	if pyTestPrefix.MatchString(d.Name) {
		return true
	}
	for _, deco := range d.Decorators {
		if deco == "pytest" || strings.HasPrefix(deco, "pytest.") {
			return true
		}
	}
	if t := d.EnclosingType(); t != nil && strings.HasPrefix(t.Name, "Test") {
		return true
	}
	return false
}

// Imports reads import and from-import statements, including parenthesized
// and backslash-continued name lists.
func (a *PythonAdapter) Imports(u *source.Unit) []source.Import {
	content := u.Content
	masked := mask(content, pythonStyle)
	lines := splitLines(masked, 0)

	var out []source.Import
	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		line := masked[ln.start:ln.end]
		lineNo := u.LineAt(ln.start)

		// Join continuation lines so the statement parses as one.
		stmtEnd := ln.end
		full := line
		for j := i; j+1 < len(lines); j++ {
			trimmed := strings.TrimRight(masked[lines[j].start:lines[j].end], " \t\r")
			if strings.HasSuffix(trimmed, "\\") || bracketDelta(masked[ln.start:lines[j].end]) > 0 {
				i = j + 1
				stmtEnd = lines[j+1].end
				continue
			}
			break
		}
		if stmtEnd != ln.end {
			full = strings.NewReplacer("\\\n", " ", "\n", " ").Replace(masked[ln.start:stmtEnd])
		}
		text := strings.TrimSpace(content[ln.start:stmtEnd])

		if m := pyFromImport.FindStringSubmatch(full); m != nil {
			names := strings.Trim(strings.TrimSpace(m[3]), "()")
			for _, item := range strings.Split(names, ",") {
				name, alias := pyImportItem(item)
				if name == "" {
					continue
				}
				imp := source.Import{From: m[2], Level: len(m[1]), Line: lineNo, Text: text}
				if name == "*" {
					imp.Wildcard = true
				} else {
					imp.Name, imp.Alias = name, alias
				}
				out = append(out, imp)
			}
			continue
		}
		if m := pyImport.FindStringSubmatch(full); m != nil {
			for _, item := range strings.Split(m[1], ",") {
				name, alias := pyImportItem(item)
				if name == "" {
					continue
				}
				out = append(out, source.Import{From: name, Alias: alias, Line: lineNo, Text: text})
			}
		}
	}
	return out
}

func pyImportItem(item string) (name, alias string) {
	fields := strings.Fields(item)
	switch {
	case len(fields) == 1:
		return fields[0], ""
	case len(fields) == 3 && fields[1] == "as":
		return fields[0], fields[2]
	}
	return "", ""
}

// PackageName returns the dotted module path of u.
func (a *PythonAdapter) PackageName(u *source.Unit) string {
	p := strings.TrimSuffix(strings.TrimSuffix(u.Path, ".py"), ".pyw")
	p = strings.TrimSuffix(p, "/__init__")
	return strings.ReplaceAll(p, "/", ".")
}

// ImportCandidates maps a module path to module files and packages. For
// from-imports the imported name may itself be a submodule.
func (a *PythonAdapter) ImportCandidates(imp source.Import, from *source.Unit) []Candidate {
	base := ""
	if imp.Level > 0 && from != nil {
		base = path.Dir(from.Path)
		for i := 1; i < imp.Level; i++ {
			base = path.Dir(base)
		}
		if base == "." {
			base = ""
		}
	}
	mod := path.Join(base, strings.ReplaceAll(imp.From, ".", "/"))

	var out []Candidate
	if imp.From != "" {
		out = append(out,
			Candidate{Path: mod + ".py"},
			Candidate{Path: path.Join(mod, "__init__.py")},
		)
	}
	if imp.Name != "" {
		out = append(out,
			Candidate{Path: path.Join(mod, imp.Name) + ".py"},
			Candidate{Path: path.Join(mod, imp.Name, "__init__.py")},
		)
	}
	if imp.From == "" && imp.Name == "" && imp.Level > 0 {
		out = append(out, Candidate{Path: path.Join(mod, "__init__.py")})
	}
	return out
}
