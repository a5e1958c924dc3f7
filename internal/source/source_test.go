package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeFile creates dir/name with content, creating parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// ---------------------------------------------------------------------------
// Unit
// ---------------------------------------------------------------------------

func TestUnit_Lines(t *testing.T) {
	u := NewUnit("pkg/a.go", []byte("package a\n\nfunc A() {}\n"))

	assert.Equal(t, LangGo, u.Language)
	assert.Equal(t, "pkg", u.Dir())
	assert.Equal(t, "a.go", u.Name())
	assert.Equal(t, 4, u.LineCount())

	assert.Equal(t, 1, u.LineAt(0))
	assert.Equal(t, 1, u.LineAt(9))
	assert.Equal(t, 2, u.LineAt(10))
	assert.Equal(t, 3, u.LineAt(11))

	assert.Equal(t, 11, u.OffsetOf(3, 1))
	assert.Equal(t, 16, u.OffsetOf(3, 6))
	assert.Equal(t, 22, u.OffsetOf(3, 500), "column clamps to the end of the line")
	assert.Equal(t, len(u.Content), u.OffsetOf(99, 1))
}

func TestUnit_KeyChangesWithContent(t *testing.T) {
	a := NewUnit("a.py", []byte("def a(): pass\n"))
	b := NewUnit("a.py", []byte("def a(): return 1\n"))
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), NewUnit("a.py", []byte("def a(): pass\n")).Key())
}

func TestLanguageForPath(t *testing.T) {
	assert.Equal(t, LangGo, LanguageForPath("x/y.go"))
	assert.Equal(t, LangPython, LanguageForPath("x/y.py"))
	assert.Equal(t, LangJava, LanguageForPath("x/Y.JAVA"))
	assert.Equal(t, LangUnknown, LanguageForPath("x/y.rs"))

	l, ok := ParseLanguage("Golang")
	assert.True(t, ok)
	assert.Equal(t, LangGo, l)
	_, ok = ParseLanguage("cobol")
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Ownership
// ---------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	tests := []struct {
		path    string
		content string
		want    Ownership
	}{
		{"internal/app/app.go", "", OwnershipProject},
		{"vendor/github.com/x/y.go", "", OwnershipLibrary},
		{"venv/lib/python3.12/site-packages/req/api.py", "", OwnershipLibrary},
		{"home/u/go/pkg/mod/x@v1/y.go", "", OwnershipLibrary},
		{"api/v1/api.pb.go", "", OwnershipGenerated},
		{"gen/model.go", "// Code generated by mockgen. DO NOT EDIT.\npackage gen\n", OwnershipGenerated},
		{"testdata/fixtures/a.py", "", OwnershipFixture},
		{"vendored_helpers.go", "", OwnershipProject},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := Classify(tt.path, tt.content)
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
	assert.True(t, OwnershipLibrary.Rejected())
	assert.True(t, OwnershipGenerated.Rejected())
	assert.False(t, OwnershipFixture.Rejected())
}

// ---------------------------------------------------------------------------
// Definition tree
// ---------------------------------------------------------------------------

func TestWalkAndInnermost(t *testing.T) {
	inner := &Definition{Name: "inner", Kind: KindFunction, Start: 20, End: 40}
	outer := &Definition{Name: "outer", Kind: KindFunction, Start: 10, End: 60, Children: []*Definition{inner}}
	inner.Parent = outer
	other := &Definition{Name: "other", Kind: KindClass, Start: 70, End: 90}

	var visited []string
	Walk([]*Definition{outer, other}, func(d *Definition) bool {
		visited = append(visited, d.Name)
		return true
	})
	assert.Equal(t, []string{"outer", "inner", "other"}, visited)

	visited = nil
	Walk([]*Definition{outer, other}, func(d *Definition) bool {
		visited = append(visited, d.Name)
		return false
	})
	assert.Equal(t, []string{"outer", "other"}, visited)

	assert.Equal(t, inner, Innermost([]*Definition{outer, other}, 25))
	assert.Equal(t, outer, Innermost([]*Definition{outer, other}, 50))
	assert.Equal(t, other, Innermost([]*Definition{outer, other}, 80))
	assert.Nil(t, Innermost([]*Definition{outer, other}, 65))
}

func TestDefinition_Lookup(t *testing.T) {
	class := &Definition{Name: "Svc", Kind: KindClass, Vars: map[string]string{"self.repo": "Repo"}}
	method := &Definition{Name: "run", Kind: KindMethod, Parent: class, Vars: map[string]string{"x": "Foo"}}

	typ, ok := method.Lookup("self.repo")
	assert.True(t, ok)
	assert.Equal(t, "Repo", typ)
	typ, ok = method.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, "Foo", typ)
	_, ok = method.Lookup("y")
	assert.False(t, ok)
	assert.Equal(t, class, method.EnclosingType())
}

func TestImport_Binding(t *testing.T) {
	assert.Equal(t, "np", Import{From: "numpy", Alias: "np"}.Binding())
	assert.Equal(t, "helper", Import{From: "pkg.util", Name: "helper"}.Binding())
	assert.Equal(t, "os", Import{From: "os"}.Binding())
}

// ---------------------------------------------------------------------------
// MemIndex
// ---------------------------------------------------------------------------

func TestMemIndex(t *testing.T) {
	ctx := context.Background()
	idx := NewMemIndex(map[string]string{
		"b.py":      "def b(): pass\n",
		"./a.py":    "def a(): pass\n",
		"pkg/c.go":  "package pkg\n",
		"notes.txt": "hello",
	})

	py, err := idx.ListFiles(ctx, LangPython)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.py"}, py)

	all, err := idx.ListFiles(ctx, LangUnknown)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.py", "pkg/c.go"}, all)

	_, err = idx.Unit(ctx, "missing.py")
	assert.True(t, errors.Is(err, ErrNotFound))

	gen := idx.Generation()
	u := idx.Put("a.py", "def a(): return 2\n")
	assert.Greater(t, idx.Generation(), gen)
	got, err := idx.Unit(ctx, "a.py")
	require.NoError(t, err)
	assert.Same(t, u, got)
}

// ---------------------------------------------------------------------------
// FileIndex
// ---------------------------------------------------------------------------

func TestFileIndex_ListFilesHonoursExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "pkg/util.go", "package pkg\n")
	writeFile(t, dir, "pkg/util.pb.go", "package pkg\n")
	writeFile(t, dir, "scripts/run.py", "def run(): pass\n")
	writeFile(t, dir, "node_modules/x/y.go", "package y\n")
	writeFile(t, dir, ".git/hooks/h.py", "")
	writeFile(t, dir, "README.md", "# readme\n")

	idx, err := NewFileIndex(dir, FileIndexOptions{
		Excludes:    []string{"**/*.pb.go"},
		ExcludeDirs: []string{"node_modules"},
	})
	require.NoError(t, err)

	ctx := context.Background()
	all, err := idx.ListFiles(ctx, LangUnknown)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "pkg/util.go", "scripts/run.py"}, all)

	goFiles, err := idx.ListFiles(ctx, LangGo)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "pkg/util.go"}, goFiles)
}

func TestFileIndex_InvalidPattern(t *testing.T) {
	_, err := NewFileIndex(t.TempDir(), FileIndexOptions{Excludes: []string{"[unclosed"}})
	assert.True(t, errors.Is(err, ErrInvalidPattern))
}

func TestFileIndex_UnitRereadsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.py", "def a(): pass\n")

	idx, err := NewFileIndex(dir, FileIndexOptions{})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := idx.Unit(ctx, "a.py")
	require.NoError(t, err)
	again, err := idx.Unit(ctx, p)
	require.NoError(t, err)
	assert.Same(t, first, again, "unchanged file is served from cache")
	assert.Equal(t, p, first.AbsPath)

	require.NoError(t, os.WriteFile(p, []byte("def a():\n    return 42\n"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(p, future, future))

	changed, err := idx.Unit(ctx, "a.py")
	require.NoError(t, err)
	assert.NotEqual(t, first.Hash, changed.Hash)

	_, err = idx.Unit(ctx, "nope.py")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileIndex_InvalidateAndWarm(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")

	idx, err := NewFileIndex(dir, FileIndexOptions{Concurrency: 2})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, idx.Warm(ctx))

	files, err := idx.ListFiles(ctx, LangGo)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, files)

	writeFile(t, dir, "b.go", "package a\n")
	gen := idx.Generation()
	idx.Invalidate(filepath.Join(dir, "b.go"))
	assert.Greater(t, idx.Generation(), gen)

	files, err = idx.ListFiles(ctx, LangGo)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go"}, files)

	idx.Refresh()
	files, err = idx.ListFiles(ctx, LangGo)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
