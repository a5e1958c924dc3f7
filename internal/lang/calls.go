package lang

import (
	"regexp"
	"strings"

	"github.com/dusk-indust/funcctx/internal/source"
)

// callPattern matches a possibly dotted identifier followed by an opening
// parenthesis.
var callPattern = regexp.MustCompile(`((?:[A-Za-z_]\w*\.)*[A-Za-z_]\w*)\s*\(`)

// rawCall is a call expression found by the lexical scanners.
type rawCall struct {
	path     string // dotted callee, e.g. "self.repo.save"
	offset   int    // relative to the scanned text
	text     string
	prevByte byte   // first non-space byte before path, 0 at start
	prevWord string // identifier immediately before path
	chained  bool   // receiver is the result of another expression
	superArg bool   // receiver is super()
}

// scanCalls lists the calls in masked[lo:hi], skipping the ranges in
// exclude. Text is cut from src so literals survive in CallSite.Text.
func scanCalls(src, masked string, lo, hi int, exclude [][2]int) []rawCall {
	if lo < 0 {
		lo = 0
	}
	if hi > len(masked) {
		hi = len(masked)
	}
	if lo >= hi {
		return nil
	}
	body := []byte(masked[lo:hi])
	for _, r := range exclude {
		for k := r[0] - lo; k < r[1]-lo; k++ {
			if k >= 0 && k < len(body) && body[k] != '\n' {
				body[k] = ' '
			}
		}
	}
	text := string(body)

	var out []rawCall
	for _, m := range callPattern.FindAllStringSubmatchIndex(text, -1) {
		start := m[2]
		open := m[1] - 1
		call := rawCall{path: text[m[2]:m[3]], offset: lo + start}

		j := start - 1
		for j >= 0 && (text[j] == ' ' || text[j] == '\t') {
			j--
		}
		if j >= 0 {
			call.prevByte = text[j]
			k := j
			for k >= 0 && isIdentByte(text[k]) {
				k--
			}
			call.prevWord = text[k+1 : j+1]
		}
		if start > 0 && text[start-1] == '.' {
			call.chained = true
			if closeIdx := start - 2; closeIdx >= 0 && text[closeIdx] == ')' {
				if openIdx := matchOpen(text, closeIdx); openIdx > 0 {
					w := openIdx
					for w > 0 && isIdentByte(text[w-1]) {
						w--
					}
					if text[w:openIdx] == "super" {
						call.chained = false
						call.superArg = true
					}
				}
			}
		}

		closeIdx := matchClose(text, open)
		textEnd := open + 1
		if closeIdx >= 0 {
			textEnd = closeIdx + 1
		}
		call.text = src[lo+start : lo+textEnd]
		out = append(out, call)
	}
	return out
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// splitPath splits a dotted callee into qualifier and name.
func splitPath(p string) (qualifier, name string) {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[:i], p[i+1:]
	}
	return "", p
}

// callName extracts the called identifier from call text: the identifier
// before the parenthesis that opens the argument list. The qualifier is
// stripped to its last segment unless keep accepts it.
func callName(callText string, keep func(qualifier string) bool) string {
	text := strings.TrimSpace(callText)
	open := -1
	if strings.HasSuffix(text, ")") {
		open = matchOpen(text, len(text)-1)
	}
	if open < 0 {
		open = strings.IndexByte(text, '(')
	}
	head := text
	if open >= 0 {
		head = strings.TrimSpace(text[:open])
	}
	// Drop anything before the callee expression, e.g. "defer ", "new ".
	if sp := strings.LastIndexAny(head, " \t"); sp >= 0 {
		head = head[sp+1:]
	}
	qual, name := splitPath(head)
	if qual != "" && keep != nil && keep(qual) {
		return qual + "." + name
	}
	return name
}

// makeCallSite fills the location fields of a CallSite.
func makeCallSite(d *source.Definition, rc rawCall, qualifier, name string, recv source.ReceiverKind) source.CallSite {
	off := d.Start + rc.offset
	cs := source.CallSite{
		Text:      rc.text,
		Name:      name,
		Qualifier: qualifier,
		Receiver:  recv,
		Offset:    off,
	}
	if d.Unit != nil {
		cs.Line = d.Unit.LineAt(off)
	}
	return cs
}

// childRanges returns the text-relative ranges of the children of d.
func childRanges(d *source.Definition) [][2]int {
	out := make([][2]int, 0, len(d.Children))
	for _, c := range d.Children {
		out = append(out, [2]int{c.Start - d.Start, c.End - d.Start})
	}
	return out
}

// normalizeType reduces a declared type to the name the resolver can look
// up: pointers, slices, variadics and type arguments are dropped.
func normalizeType(t string) string {
	t = strings.TrimSpace(t)
	for {
		switch {
		case strings.HasPrefix(t, "*"), strings.HasPrefix(t, "&"):
			t = t[1:]
		case strings.HasPrefix(t, "[]"):
			t = t[2:]
		case strings.HasPrefix(t, "..."):
			t = t[3:]
		default:
			if i := strings.IndexAny(t, "[<"); i > 0 {
				t = t[:i]
			}
			return strings.TrimSpace(t)
		}
	}
}

// isAccessorName reports getter and setter names: getX, GetX, set_x.
func isAccessorName(name string) bool {
	for _, prefix := range []string{"get", "set", "Get", "Set"} {
		if len(name) > len(prefix) && strings.HasPrefix(name, prefix) {
			c := name[len(prefix)]
			if c == '_' || c >= 'A' && c <= 'Z' {
				return true
			}
		}
	}
	return false
}

// countStatements counts statements in a masked brace body, separators being
// newlines and semicolons at any depth.
func countStatements(maskedBody string) int {
	inner := strings.TrimSpace(maskedBody)
	inner = strings.TrimPrefix(inner, "{")
	inner = strings.TrimSuffix(inner, "}")
	n := 0
	for _, line := range strings.Split(inner, "\n") {
		for _, stmt := range strings.Split(line, ";") {
			if strings.TrimSpace(stmt) != "" {
				n++
			}
		}
	}
	return n
}
