package source

import (
	"path"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Unit is one source file as seen by the analyzer. Content is read-only.
type Unit struct {
	Path     string // index-relative, slash separated
	AbsPath  string
	Language Language
	Content  string
	Hash     uint64

	lineStarts []int
}

// NewUnit builds a Unit for path with the given content. The language is
// derived from the file extension.
func NewUnit(p string, content []byte) *Unit {
	text := string(content)
	u := &Unit{
		Path:     p,
		Language: LanguageForPath(p),
		Content:  text,
		Hash:     xxhash.Sum64String(text),
	}
	u.lineStarts = append(u.lineStarts, 0)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			u.lineStarts = append(u.lineStarts, i+1)
		}
	}
	return u
}

// Read returns the file content.
func (u *Unit) Read() string { return u.Content }

// Dir returns the slash-separated directory of the unit.
func (u *Unit) Dir() string { return path.Dir(u.Path) }

// Name returns the base file name.
func (u *Unit) Name() string { return path.Base(u.Path) }

// Key identifies a specific revision of the unit.
func (u *Unit) Key() string {
	return u.Path + "@" + strconv.FormatUint(u.Hash, 16)
}

// LineCount returns the number of lines.
func (u *Unit) LineCount() int { return len(u.lineStarts) }

// LineAt returns the 1-based line containing offset.
func (u *Unit) LineAt(offset int) int {
	if offset < 0 {
		return 1
	}
	return sort.Search(len(u.lineStarts), func(i int) bool {
		return u.lineStarts[i] > offset
	})
}

// OffsetOf converts a 1-based line and column into a byte offset, clamped to
// the content bounds.
func (u *Unit) OffsetOf(line, col int) int {
	if line < 1 {
		line = 1
	}
	if line > len(u.lineStarts) {
		return len(u.Content)
	}
	if col < 1 {
		col = 1
	}
	off := u.lineStarts[line-1] + col - 1
	end := len(u.Content)
	if line < len(u.lineStarts) {
		end = u.lineStarts[line] - 1
	}
	if off > end {
		off = end
	}
	return off
}
