package source

import (
	"path"
	"strings"
)

// Ownership classifies where a file comes from.
type Ownership int

const (
	OwnershipProject Ownership = iota
	OwnershipLibrary
	OwnershipGenerated
	OwnershipFixture
)

func (o Ownership) String() string {
	switch o {
	case OwnershipLibrary:
		return "library"
	case OwnershipGenerated:
		return "generated"
	case OwnershipFixture:
		return "fixture"
	}
	return "project"
}

var libraryDirs = []string{"vendor", "site-packages", "dist-packages", "node_modules", "third_party"}

var fixtureDirs = []string{"testdata", "fixtures", "test-fixtures"}

var generatedSuffixes = []string{".pb.go", "_gen.go", "_generated.go", "_pb2.py", "_generated.py", "_generated.java"}

const generatedMarker = "Code generated"

// Classify inspects a path and, when content is non-empty, its first lines.
func Classify(p, content string) Ownership {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	segments := strings.Split(p, "/")
	for _, seg := range segments {
		for _, lib := range libraryDirs {
			if seg == lib {
				return OwnershipLibrary
			}
		}
	}
	if strings.Contains(p, "/pkg/mod/") {
		return OwnershipLibrary
	}
	base := path.Base(p)
	for _, suf := range generatedSuffixes {
		if strings.HasSuffix(base, suf) {
			return OwnershipGenerated
		}
	}
	if isGeneratedContent(content) {
		return OwnershipGenerated
	}
	for _, seg := range segments {
		for _, fx := range fixtureDirs {
			if seg == fx {
				return OwnershipFixture
			}
		}
	}
	return OwnershipProject
}

// isGeneratedContent looks for a "Code generated ... DO NOT EDIT." marker in
// the leading comment lines.
func isGeneratedContent(content string) bool {
	for i, line := range strings.SplitN(content, "\n", 6) {
		if i == 5 {
			break
		}
		line = strings.TrimSpace(line)
		if strings.Contains(line, generatedMarker) && strings.Contains(line, "DO NOT EDIT") {
			return true
		}
	}
	return false
}

// Rejected reports whether definitions under this ownership are never
// analyzed.
func (o Ownership) Rejected() bool {
	return o == OwnershipLibrary || o == OwnershipGenerated
}
