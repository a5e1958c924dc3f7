package lang

import (
	"strings"
)

// commentStyle describes the lexical conventions of a language, enough to
// tell code apart from string literals and comments.
type commentStyle struct {
	lineComment  string
	blockComment bool // /* ... */
	rawQuote     byte // Go backtick strings
	tripleQuotes bool // Python """/''' and Java text blocks
}

var (
	goStyle     = commentStyle{lineComment: "//", blockComment: true, rawQuote: '`'}
	javaStyle   = commentStyle{lineComment: "//", blockComment: true, tripleQuotes: true}
	pythonStyle = commentStyle{lineComment: "#", tripleQuotes: true}
)

type spanKind int

const (
	spanCode spanKind = iota
	spanString
	spanComment
)

// span is a half-open byte range [start, end) of one lexical class.
type span struct {
	kind       spanKind
	start, end int
	triple     bool
}

// scan splits src into code, string and comment spans. Unterminated strings
// end at the line break; unterminated block comments and triple-quoted
// strings run to the end of the input.
func scan(src string, st commentStyle) []span {
	var spans []span
	codeStart := 0
	flush := func(at int) {
		if at > codeStart {
			spans = append(spans, span{kind: spanCode, start: codeStart, end: at})
		}
	}

	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case st.lineComment != "" && strings.HasPrefix(src[i:], st.lineComment):
			flush(i)
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src)
			} else {
				end += i
			}
			spans = append(spans, span{kind: spanComment, start: i, end: end})
			i = end
			codeStart = i

		case st.blockComment && strings.HasPrefix(src[i:], "/*"):
			flush(i)
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				end = len(src)
			} else {
				end += i + 4
			}
			spans = append(spans, span{kind: spanComment, start: i, end: end})
			i = end
			codeStart = i

		case st.tripleQuotes && (strings.HasPrefix(src[i:], `"""`) || strings.HasPrefix(src[i:], `'''`)):
			flush(i)
			end := scanTriple(src, i)
			spans = append(spans, span{kind: spanString, start: i, end: end, triple: true})
			i = end
			codeStart = i

		case st.rawQuote != 0 && c == st.rawQuote:
			flush(i)
			end := strings.IndexByte(src[i+1:], st.rawQuote)
			if end < 0 {
				end = len(src)
			} else {
				end += i + 2
			}
			spans = append(spans, span{kind: spanString, start: i, end: end})
			i = end
			codeStart = i

		case c == '"' || c == '\'':
			flush(i)
			end := scanQuoted(src, i)
			spans = append(spans, span{kind: spanString, start: i, end: end})
			i = end
			codeStart = i

		default:
			i++
		}
	}
	flush(len(src))
	return spans
}

// scanQuoted returns the end of the single-line string starting at i.
func scanQuoted(src string, i int) int {
	q := src[i]
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case q:
			return j + 1
		case '\n':
			return j
		}
		j++
	}
	return len(src)
}

// scanTriple returns the end of the triple-quoted string starting at i.
func scanTriple(src string, i int) int {
	delim := src[i : i+3]
	j := i + 3
	for j < len(src) {
		if src[j] == '\\' {
			j += 2
			continue
		}
		if strings.HasPrefix(src[j:], delim) {
			return j + 3
		}
		j++
	}
	return len(src)
}

// mask blanks string contents and comments while keeping byte offsets and
// line breaks, so structural scanning never sees brackets or keywords that
// live inside literals.
func mask(src string, st commentStyle) string {
	b := []byte(src)
	for _, sp := range scan(src, st) {
		if sp.kind == spanCode {
			continue
		}
		for k := sp.start; k < sp.end; k++ {
			if b[k] != '\n' {
				b[k] = ' '
			}
		}
	}
	return string(b)
}

// stripComments removes comments and keeps string literals verbatim. When
// docstrings is set, a triple-quoted string standing alone as a statement is
// removed as well. Lines emptied by the removal are dropped and trailing
// whitespace left behind is trimmed.
func stripComments(src string, st commentStyle, docstrings bool) string {
	spans := scan(src, st)
	var sb strings.Builder
	sb.Grow(len(src))
	for _, sp := range spans {
		text := src[sp.start:sp.end]
		remove := sp.kind == spanComment ||
			(docstrings && sp.kind == spanString && sp.triple && standalone(src, sp))
		if !remove {
			sb.WriteString(text)
			continue
		}
		// Keep line structure so the cleanup below can compare line by line.
		sb.WriteString(strings.Repeat("\n", strings.Count(text, "\n")))
	}

	orig := strings.Split(src, "\n")
	stripped := strings.Split(sb.String(), "\n")
	if len(orig) != len(stripped) {
		return sb.String()
	}
	out := make([]string, 0, len(stripped))
	for i, line := range stripped {
		if line == orig[i] {
			out = append(out, line)
			continue
		}
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(trimmed) == "" && strings.TrimSpace(orig[i]) != "" {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

// standalone reports whether sp is the only thing on its lines apart from
// whitespace and comments.
func standalone(src string, sp span) bool {
	lineStart := strings.LastIndexByte(src[:sp.start], '\n') + 1
	if strings.TrimSpace(src[lineStart:sp.start]) != "" {
		return false
	}
	rest := src[sp.end:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.TrimSpace(rest)
	return rest == "" || strings.HasPrefix(rest, "#")
}

// lineBounds returns the start and end (exclusive of the newline) of the line
// containing offset.
func lineBounds(s string, offset int) (int, int) {
	if offset > len(s) {
		offset = len(s)
	}
	start := strings.LastIndexByte(s[:offset], '\n') + 1
	end := strings.IndexByte(s[offset:], '\n')
	if end < 0 {
		return start, len(s)
	}
	return start, offset + end
}

// indentWidth measures leading whitespace with tabs expanded to multiples
// of eight.
func indentWidth(line string) int {
	w := 0
	for _, c := range line {
		switch c {
		case ' ':
			w++
		case '\t':
			w += 8 - w%8
		default:
			return w
		}
	}
	return w
}

// braceBodyEnd finds the end of a brace-delimited definition starting at
// start in masked text. The body ends at the close of the first line on
// which the brace counter returns to zero after opening. Braces that follow
// the struct or interface keywords belong to types in the signature. A
// header line that ends with no brace and balanced parentheses is a
// body-less declaration. ok is false when the input ends with unbalanced
// braces.
func braceBodyEnd(masked string, start int) (end int, bodyStart int, ok bool) {
	parens, braces := 0, 0
	opened := false
	bodyStart = -1
	for i := start; i < len(masked); i++ {
		switch masked[i] {
		case '(', '[':
			parens++
		case ')', ']':
			parens--
		case '{':
			braces++
			if !opened && parens <= 0 && !precededByTypeKeyword(masked, i) {
				bodyStart = i
				opened = true
			}
		case '}':
			if braces > 0 {
				braces--
			}
		case '\n':
			if opened && braces == 0 {
				return trimRightSpace(masked, start, i), bodyStart, true
			}
			if !opened && parens <= 0 && braces == 0 {
				line := masked[lineStartOf(masked, i):i]
				if strings.TrimSpace(line) != "" && !continues(line) {
					return trimRightSpace(masked, start, i), -1, true
				}
			}
		}
	}
	end = trimRightSpace(masked, start, len(masked))
	if opened {
		return end, bodyStart, braces == 0
	}
	return end, -1, parens <= 0
}

// precededByTypeKeyword reports whether the brace at i opens a struct or
// interface type literal.
func precededByTypeKeyword(masked string, i int) bool {
	head := strings.TrimRight(masked[:i], " \t")
	return strings.HasSuffix(head, "struct") || strings.HasSuffix(head, "interface")
}

// continues reports whether a header line visibly continues on the next line.
func continues(line string) bool {
	line = strings.TrimRight(line, " \t\r")
	if line == "" {
		return true
	}
	switch line[len(line)-1] {
	case ',', '(', '[', '.', '|', '&', '+', '-', '*', '/':
		return true
	}
	return false
}

func lineStartOf(s string, i int) int {
	return strings.LastIndexByte(s[:i], '\n') + 1
}

func trimRightSpace(s string, start, end int) int {
	for end > start {
		switch s[end-1] {
		case ' ', '\t', '\r', '\n':
			end--
			continue
		}
		break
	}
	return end
}

// indentBodyEnd finds the end of an indentation-delimited definition that
// starts at start (the first decorator line or the def line). Structure is
// read from masked text; src decides which trailing lines carry content.
// Blank lines, backslash continuations and lines inside open brackets belong
// to the body; the first other code line indented at or left of the
// definition ends it. Comment lines at or left of the definition indent are
// only kept when code follows them.
func indentBodyEnd(src, masked string, start int) (end int, ok bool) {
	lines := splitLines(masked, start)
	if len(lines) == 0 {
		return start, false
	}

	// Skip decorator lines to find the definition line and its indent.
	depth := 0
	defLine := -1
	for i, ln := range lines {
		text := masked[ln.start:ln.end]
		trimmed := strings.TrimSpace(text)
		if depth == 0 && trimmed != "" && !strings.HasPrefix(trimmed, "@") {
			defLine = i
			break
		}
		depth += bracketDelta(text)
	}
	if defLine < 0 {
		return lines[len(lines)-1].end, false
	}
	defIndent := indentWidth(masked[lines[defLine].start:lines[defLine].end])

	depth = 0
	continued := false
	last := lines[defLine].start + len(strings.TrimRight(src[lines[defLine].start:lines[defLine].end], " \t\r"))
	for i := defLine; i < len(lines); i++ {
		text := masked[lines[i].start:lines[i].end]
		raw := src[lines[i].start:lines[i].end]
		code := strings.TrimSpace(text) != ""
		if i > defLine && depth <= 0 && !continued && code && indentWidth(text) <= defIndent {
			return last, true
		}
		depth += bracketDelta(text)
		continued = strings.HasSuffix(strings.TrimRight(text, " \t\r"), "\\")

		rawTrimmed := strings.TrimSpace(raw)
		switch {
		case rawTrimmed == "":
		case !code && strings.HasPrefix(rawTrimmed, "#") && indentWidth(raw) <= defIndent:
		default:
			last = lines[i].start + len(strings.TrimRight(raw, " \t\r"))
		}
	}
	return last, depth <= 0
}

type lineRange struct{ start, end int }

// splitLines returns the line ranges of s from start onwards.
func splitLines(s string, start int) []lineRange {
	var out []lineRange
	i := start
	for i <= len(s) {
		nl := strings.IndexByte(s[i:], '\n')
		if nl < 0 {
			if i < len(s) {
				out = append(out, lineRange{i, len(s)})
			}
			break
		}
		out = append(out, lineRange{i, i + nl})
		i += nl + 1
	}
	return out
}

func bracketDelta(text string) int {
	d := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			d++
		case ')', ']', '}':
			d--
		}
	}
	return d
}

// matchClose returns the index of the bracket closing the one at open in
// masked text, or -1.
func matchClose(masked string, open int) int {
	depth := 0
	for i := open; i < len(masked); i++ {
		switch masked[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchOpen returns the index of the bracket opening the one at close in
// masked text, or -1.
func matchOpen(masked string, close int) int {
	depth := 0
	for i := close; i >= 0; i-- {
		switch masked[i] {
		case ')', ']', '}':
			depth++
		case '(', '[', '{':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
