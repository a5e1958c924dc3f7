package lang

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/source"
)

var (
	goFuncPattern    = regexp.MustCompile(`(?m)^[ \t]*func\s+(?:\(\s*(?:(\w+)\s+)?\*?\s*(\w+)(?:\[[^\]]*\])?\s*\)\s*)?(\w+)\s*(?:\[[^\]]*\])?\s*\(`)
	goFuncHeader     = regexp.MustCompile(`^\s*func\s+(?:\(\s*(?:(\w+)\s+)?\*?\s*(\w+)(?:\[[^\]]*\])?\s*\)\s*)?(\w+)\s*(?:\[[^\]]*\])?\s*\(`)
	goClosurePattern = regexp.MustCompile(`(?m)^[ \t]*(\w+)\s*:?=\s*func\s*\(`)
	goClosureHeader  = regexp.MustCompile(`^\s*(\w+)\s*:?=\s*func\s*\(`)
	goTypePattern    = regexp.MustCompile(`(?m)^type\s+(\w+)(?:\[[^\]]*\])?\s+(struct|interface)\s*\{`)
	goTypeBlock      = regexp.MustCompile(`(?m)^type\s*\(`)
	goGroupedType    = regexp.MustCompile(`(?m)^[ \t]+(\w+)(?:\[[^\]]*\])?\s+(struct|interface)\s*\{`)
	goPackagePattern = regexp.MustCompile(`(?m)^package\s+(\w+)`)
	goImportKeyword  = regexp.MustCompile(`(?m)^import\b`)
	goImportSpec     = regexp.MustCompile(`^\s*(\w+|\.|_)?\s*"([^"]+)"`)
	goVersionSegment = regexp.MustCompile(`^v\d+$`)
	goDotVersion     = regexp.MustCompile(`\.v\d+$`)
	goEmbeddedField  = regexp.MustCompile(`^\s*\*?((?:\w+\.)?\w+)\s*$`)
	goNamedField     = regexp.MustCompile(`^\s*(\w+(?:\s*,\s*\w+)*)\s+([\w.*\[\]]+)`)
	goCompositeVar   = regexp.MustCompile(`(\w+)\s*:=\s*&?((?:\w+\.)?[A-Z]\w*)\s*\{`)
	goConstructorVar = regexp.MustCompile(`(\w+)(?:\s*,\s*\w+)?\s*:=\s*(?:(\w+)\.)?New([A-Z]\w*)\s*\(`)
	goDeclaredVar    = regexp.MustCompile(`\bvar\s+(\w+)\s+([\w.*\[\]]+)`)
	goTestName       = regexp.MustCompile(`^(Test|Benchmark|Fuzz|Example)([A-Z_]|$)`)
)

// Compile-time assertion: *GoAdapter satisfies Adapter.
var _ Adapter = (*GoAdapter)(nil)

// GoAdapter recognizes Go definitions heuristically: func headers by pattern
// and bodies by brace counting over text with literals and comments masked.
type GoAdapter struct{}

// NewGoAdapter returns the Go adapter.
func NewGoAdapter() *GoAdapter { return &GoAdapter{} }

func (a *GoAdapter) Language() source.Language { return source.LangGo }

func (a *GoAdapter) Traits() Traits {
	return Traits{PackageSiblings: true, GuessReceivers: true, NestedFunctions: true, DetachedMethods: true}
}

// Definitions finds funcs, methods, named closures and struct or interface
// types.
func (a *GoAdapter) Definitions(u *source.Unit) ([]*source.Definition, error) {
	content := u.Content
	masked := mask(content, goStyle)

	var defs []*source.Definition
	for _, m := range goFuncPattern.FindAllStringSubmatchIndex(masked, -1) {
		start := m[0]
		end, bodyStart, _ := braceBodyEnd(masked, start)
		d := &source.Definition{
			Unit:  u,
			Name:  masked[m[6]:m[7]],
			Kind:  source.KindFunction,
			Start: start,
			End:   end,
			Text:  content[start:end],
		}
		if m[4] >= 0 {
			d.Kind = source.KindMethod
			d.Owner = masked[m[4]:m[5]]
			if m[2] >= 0 {
				d.ReceiverVar = masked[m[2]:m[3]]
			}
		}
		d.Qualified = qualify(d.Owner, d.Name)
		a.finish(d, bodyStart, masked)
		a.addClosures(d, masked)
		defs = append(defs, d)
	}

	defs = append(defs, a.typeDefinitions(u, masked)...)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Start < defs[j].Start })
	return defs, nil
}

// finish fills the fields derived from the extracted text.
func (a *GoAdapter) finish(d *source.Definition, bodyStart int, masked string) {
	if bodyStart < 0 {
		d.Abstract = true
		d.BodyStart = d.End
	} else {
		d.BodyStart = bodyStart
	}
	d.StartLine = d.Unit.LineAt(d.Start)
	d.EndLine = d.Unit.LineAt(d.End)
	d.Vars = goVars(d, masked[d.Start:d.End])
}

// addClosures attaches closures bound to a name inside the body of d.
func (a *GoAdapter) addClosures(d *source.Definition, masked string) {
	if d.Abstract {
		return
	}
	body := masked[d.BodyStart:d.End]
	for _, m := range goClosurePattern.FindAllStringSubmatchIndex(body, -1) {
		start := d.BodyStart + m[0]
		if len(d.Children) > 0 && start < d.Children[len(d.Children)-1].End {
			continue // nested in a closure already attached
		}
		end, bodyStart, _ := braceBodyEnd(masked, start)
		if end > d.End {
			end = d.End
		}
		c := &source.Definition{
			Unit:        d.Unit,
			Name:        body[m[2]:m[3]],
			Kind:        source.KindFunction,
			Start:       start,
			End:         end,
			Text:        d.Unit.Content[start:end],
			Parent:      d,
			ReceiverVar: d.ReceiverVar,
		}
		c.Qualified = d.Qualified + "." + c.Name
		a.finish(c, bodyStart, masked)
		d.Children = append(d.Children, c)
	}
}

// typeDefinitions returns struct and interface types, including those in
// grouped type declarations.
func (a *GoAdapter) typeDefinitions(u *source.Unit, masked string) []*source.Definition {
	type hit struct{ nameStart, nameEnd, kindStart, kindEnd, start int }
	var hits []hit
	for _, m := range goTypePattern.FindAllStringSubmatchIndex(masked, -1) {
		hits = append(hits, hit{m[2], m[3], m[4], m[5], m[0]})
	}
	for _, b := range goTypeBlock.FindAllStringIndex(masked, -1) {
		open := b[1] - 1
		closeIdx := matchClose(masked, open)
		if closeIdx < 0 {
			continue
		}
		block := masked[open+1 : closeIdx]
		depth := 0
		lineStart := 0
		for _, line := range strings.SplitAfter(block, "\n") {
			if depth == 0 {
				if m := goGroupedType.FindStringSubmatchIndex(line); m != nil {
					base := open + 1 + lineStart
					hits = append(hits, hit{base + m[2], base + m[3], base + m[4], base + m[5], base + m[0]})
				}
			}
			depth += bracketDelta(line)
			lineStart += len(line)
		}
	}

	var defs []*source.Definition
	for _, h := range hits {
		open := strings.IndexByte(masked[h.kindEnd:], '{') + h.kindEnd
		end := len(masked)
		if closeIdx := matchClose(masked, open); closeIdx >= 0 {
			end = closeIdx + 1
		}
		d := &source.Definition{
			Unit:      u,
			Name:      masked[h.nameStart:h.nameEnd],
			Kind:      source.KindClass,
			Start:     h.start,
			End:       end,
			BodyStart: open,
			Text:      u.Content[h.start:end],
			StartLine: u.LineAt(h.start),
			EndLine:   u.LineAt(end),
		}
		if masked[h.kindStart:h.kindEnd] == "interface" {
			d.Kind = source.KindInterface
		}
		d.Qualified = d.Name
		d.Bases, d.Vars = goFields(masked[open:end])
		defs = append(defs, d)
	}
	return defs
}

// goFields reads the embedded types and named fields of a struct or
// interface body.
func goFields(body string) (embedded []string, fields map[string]string) {
	fields = make(map[string]string)
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "{")
	body = strings.TrimSuffix(body, "}")
	depth := 0
	for _, line := range strings.Split(body, "\n") {
		if depth == 0 {
			if m := goEmbeddedField.FindStringSubmatch(line); m != nil {
				embedded = append(embedded, m[1])
			} else if m := goNamedField.FindStringSubmatch(line); m != nil {
				typ := normalizeType(m[2])
				for _, name := range strings.Split(m[1], ",") {
					fields[strings.TrimSpace(name)] = typ
				}
			}
		}
		depth += bracketDelta(line)
	}
	return embedded, fields
}

// goVars infers declared types of the receiver, parameters and locals of a
// function, best effort.
func goVars(d *source.Definition, masked string) map[string]string {
	vars := make(map[string]string)
	if d.ReceiverVar != "" && d.Owner != "" {
		vars[d.ReceiverVar] = d.Owner
	}

	header := masked
	if rel := d.BodyStart - d.Start; rel >= 0 && rel <= len(masked) {
		header = masked[:rel]
	}
	if params := goParamList(header); params != "" {
		var pending []string
		for _, piece := range splitTopLevel(params, ',') {
			fields := strings.Fields(piece)
			switch {
			case len(fields) == 1:
				pending = append(pending, fields[0])
			case len(fields) >= 2:
				typ := normalizeType(strings.Join(fields[1:], ""))
				vars[fields[0]] = typ
				for _, p := range pending {
					vars[p] = typ
				}
				pending = nil
			}
		}
	}

	body := masked[len(header):]
	for _, m := range goCompositeVar.FindAllStringSubmatch(body, -1) {
		vars[m[1]] = m[2]
	}
	for _, m := range goConstructorVar.FindAllStringSubmatch(body, -1) {
		typ := m[3]
		if m[2] != "" {
			typ = m[2] + "." + typ
		}
		vars[m[1]] = typ
	}
	for _, m := range goDeclaredVar.FindAllStringSubmatch(body, -1) {
		vars[m[1]] = normalizeType(m[2])
	}
	return vars
}

// goParamList returns the parameter list of a func header, without the
// receiver.
func goParamList(header string) string {
	m := goFuncHeader.FindStringIndex(header)
	if m == nil {
		m = goClosureHeader.FindStringIndex(header)
	}
	if m == nil {
		return ""
	}
	open := m[1] - 1
	closeIdx := matchClose(header, open)
	if closeIdx < 0 {
		return ""
	}
	return header[open+1 : closeIdx]
}

// splitTopLevel splits s on sep outside brackets.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, s[last:i])
				last = i + 1
			}
		}
	}
	if strings.TrimSpace(s[last:]) != "" {
		out = append(out, s[last:])
	}
	return out
}

func qualify(owner, name string) string {
	if owner == "" {
		return name
	}
	return owner + "." + name
}

func (a *GoAdapter) IsFunctionDefinition(d *source.Definition) bool {
	if d == nil || !d.IsCallable() {
		return false
	}
	return a.IsDefinitionText(d.Text)
}

func (a *GoAdapter) IsDefinitionText(text string) bool {
	return goFuncHeader.MatchString(text) || goClosureHeader.MatchString(text)
}

func (a *GoAdapter) ExtractName(text string) string {
	if m := goFuncHeader.FindStringSubmatch(text); m != nil {
		return m[3]
	}
	if m := goClosureHeader.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func (a *GoAdapter) ExtractSignature(text string) string {
	masked := mask(text, goStyle)
	_, bodyStart, _ := braceBodyEnd(masked, 0)
	if bodyStart < 0 {
		_, end := lineBounds(text, 0)
		return strings.TrimSpace(text[:end])
	}
	return strings.TrimSpace(text[:bodyStart])
}

func (a *GoAdapter) ExtractBody(content string, start int) string {
	if start < 0 || start >= len(content) {
		return ""
	}
	masked := mask(content, goStyle)
	end, _, _ := braceBodyEnd(masked, start)
	return content[start:end]
}

func (a *GoAdapter) StripComments(text string) string {
	return stripComments(text, goStyle, false)
}

func (a *GoAdapter) CallSites(d *source.Definition) []source.CallSite {
	if d == nil || d.Abstract {
		return nil
	}
	masked := mask(d.Text, goStyle)
	raws := scanCalls(d.Text, masked, d.BodyStart-d.Start+1, len(d.Text), childRanges(d))

	var out []source.CallSite
	for _, rc := range raws {
		qual, name := splitPath(rc.path)
		if qual == "" && goKeywords[name] {
			continue
		}
		if rc.prevWord == "func" {
			continue
		}
		recv := source.ReceiverNone
		switch {
		case rc.chained:
			recv, qual = source.ReceiverChained, ""
		case qual == "":
		case d.ReceiverVar != "" && qual == d.ReceiverVar:
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

func (a *GoAdapter) ExtractCallName(callText string) string {
	return callName(callText, nil)
}

func (a *GoAdapter) IsBuiltin(name string) bool {
	return goBuiltins[name]
}

// IsRelevant drops tests, body-less declarations and trivial accessors.
func (a *GoAdapter) IsRelevant(d *source.Definition, cfg model.ExtractionConfig) bool {
	if d == nil || !d.IsCallable() || d.Abstract {
		return false
	}
	if !cfg.IncludeTests() && a.isTest(d) {
		return false
	}
	if isAccessorName(d.Name) && countStatements(mask(d.Body(), goStyle)) <= 1 {
		return false
	}
	return true
}

func (a *GoAdapter) isTest(d *source.Definition) bool {
	if d.Unit != nil && strings.HasSuffix(d.Unit.Path, "_test.go") {
		return true
	}
	return d.Parent == nil && d.Owner == "" && goTestName.MatchString(d.Name)
}

func (a *GoAdapter) Imports(u *source.Unit) []source.Import {
	content := u.Content
	masked := mask(content, goStyle)

	var out []source.Import
	add := func(line string, offset int) {
		m := goImportSpec.FindStringSubmatch(line)
		if m == nil || m[1] == "_" {
			return
		}
		alias := m[1]
		if alias == "" {
			alias = goDefaultAlias(m[2])
		}
		out = append(out, source.Import{
			From:  m[2],
			Alias: alias,
			Line:  u.LineAt(offset),
			Text:  strings.TrimSpace(line),
		})
	}

	for _, k := range goImportKeyword.FindAllStringIndex(masked, -1) {
		// Skip blanks on the raw text: the mask has blanked the quoted path.
		pos := k[1]
		for pos < len(content) && (content[pos] == ' ' || content[pos] == '\t') {
			pos++
		}
		if pos < len(content) && content[pos] == '(' {
			closeIdx := matchClose(masked, pos)
			if closeIdx < 0 {
				continue
			}
			offset := pos + 1
			for _, line := range strings.SplitAfter(content[pos+1:closeIdx], "\n") {
				add(line, offset)
				offset += len(line)
			}
			continue
		}
		_, end := lineBounds(content, pos)
		add(content[pos:end], pos)
	}
	return out
}

// goDefaultAlias is the package name Go assumes for an import path: its last
// segment, skipping major version suffixes.
func goDefaultAlias(importPath string) string {
	segs := strings.Split(importPath, "/")
	last := segs[len(segs)-1]
	if goVersionSegment.MatchString(last) && len(segs) > 1 {
		last = segs[len(segs)-2]
	}
	last = goDotVersion.ReplaceAllString(last, "")
	last = strings.TrimPrefix(last, "go-")
	return strings.ReplaceAll(last, "-", "_")
}

func (a *GoAdapter) PackageName(u *source.Unit) string {
	if m := goPackagePattern.FindStringSubmatch(mask(u.Content, goStyle)); m != nil {
		return m[1]
	}
	return ""
}

// ImportCandidates returns the import path and its shorter suffixes as
// package directories, so a module-qualified path still finds the
// directory inside the index. A path whose first segment has no dot is
// standard library style: it never shrinks to its last segment alone, so
// "errors" or "encoding/json" do not bind to a project directory that
// happens to share the name.
func (a *GoAdapter) ImportCandidates(imp source.Import, _ *source.Unit) []Candidate {
	segs := strings.Split(strings.Trim(imp.From, "/"), "/")
	minSegs := 1
	if !strings.Contains(segs[0], ".") {
		minSegs = 2
	}
	var out []Candidate
	for i := 0; len(segs)-i >= minSegs; i++ {
		out = append(out, Candidate{Path: strings.Join(segs[i:], "/"), Dir: true})
	}
	return out
}
