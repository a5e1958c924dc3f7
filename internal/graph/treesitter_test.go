package graph

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/funcctx/internal/source"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// findSymbol returns the first SymbolNode whose qualified name matches, or nil.
func findSymbol(symbols []SymbolNode, qualified string) *SymbolNode {
	for i := range symbols {
		if symbols[i].QualifiedName() == qualified {
			return &symbols[i]
		}
	}
	return nil
}

// readFixture reads a test fixture file relative to the project root.
// Tests run from internal/graph/, so the relative path is ../../testdata/...
func readFixture(t *testing.T, relPath string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../" + relPath)
	require.NoError(t, err, "reading fixture %s", relPath)
	return data
}

// outlineFixture outlines a fixture file.
func outlineFixture(t *testing.T, relPath string, lang source.Language) *Outline {
	t.Helper()
	o := NewOutliner()
	defer o.Close()
	out, err := o.Outline(context.Background(), relPath, readFixture(t, relPath), lang)
	require.NoError(t, err)
	return out
}

// assertSymbol checks kind and a valid line range for a named symbol.
func assertSymbol(t *testing.T, out *Outline, qualified string, kind SymbolKind) *SymbolNode {
	t.Helper()
	sym := findSymbol(out.Symbols, qualified)
	require.NotNil(t, sym, "symbol %s not found", qualified)
	assert.Equal(t, kind, sym.Kind, "kind of %s", qualified)
	assert.Greater(t, sym.StartLine, 0, "StartLine should be > 0 for %s", qualified)
	assert.LessOrEqual(t, sym.StartLine, sym.EndLine, "StartLine <= EndLine for %s", qualified)
	assert.Equal(t, out.File.Path, sym.FilePath)
	return sym
}

// ---------------------------------------------------------------------------
// TestOutliner_SupportedLanguages
// ---------------------------------------------------------------------------

func TestOutliner_SupportedLanguages(t *testing.T) {
	o := NewOutliner()
	defer o.Close()

	assert.Equal(t,
		[]source.Language{source.LangGo, source.LangJava, source.LangPython},
		o.SupportedLanguages())
}

func TestOutliner_UnsupportedLanguage(t *testing.T) {
	o := NewOutliner()
	_, err := o.Outline(context.Background(), "main.rs", []byte("fn main() {}"), source.Language("rust"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

// ---------------------------------------------------------------------------
// TestOutliner_Go
// ---------------------------------------------------------------------------

func TestOutliner_Go(t *testing.T) {
	model := outlineFixture(t, "testdata/fixtures/go_project/model.go", source.LangGo)
	assert.Equal(t, "project", model.File.Package)
	assert.Equal(t, source.LangGo, model.File.Language)
	assert.Greater(t, model.File.LOC, 0)

	user := assertSymbol(t, model, "User", SymbolKindClass)
	assert.True(t, user.Exported)
	assert.Equal(t, 4, user.StartLine)
	assert.Equal(t, 8, user.EndLine)

	assertSymbol(t, model, "Repository", SymbolKindInterface)
	newUser := assertSymbol(t, model, "newUser", SymbolKindFunction)
	assert.False(t, newUser.Exported)

	svc := outlineFixture(t, "testdata/fixtures/go_project/service.go", source.LangGo)
	assert.Equal(t, []string{"fmt"}, svc.Imports)
	assertSymbol(t, svc, "UserService", SymbolKindClass)
	assertSymbol(t, svc, "NewUserService", SymbolKindFunction)

	get := assertSymbol(t, svc, "UserService.GetUser", SymbolKindMethod)
	assert.Equal(t, "UserService", get.Container)
	assertSymbol(t, svc, "UserService.CreateUser", SymbolKindMethod)

	store := outlineFixture(t, "testdata/fixtures/go_project/store.go", source.LangGo)
	repo := assertSymbol(t, store, "memRepository.Save", SymbolKindMethod)
	assert.True(t, repo.Exported)
	assert.Nil(t, findSymbol(store.Symbols, "errNotFound"), "variables are not listed")
}

func TestOutliner_GoReceiverForms(t *testing.T) {
	src := []byte(`package cache

type Cache[K comparable, V any] struct{}

type Handler func()

func (c *Cache[K, V]) Get(k K) {}

func (Handler) Serve() {}

type (
	ID   string
	Name = string
)
`)
	o := NewOutliner()
	out, err := o.Outline(context.Background(), "cache.go", src, source.LangGo)
	require.NoError(t, err)

	assertSymbol(t, out, "Cache", SymbolKindClass)
	assertSymbol(t, out, "Handler", SymbolKindType)
	assertSymbol(t, out, "Cache.Get", SymbolKindMethod)
	assertSymbol(t, out, "Handler.Serve", SymbolKindMethod)
	assertSymbol(t, out, "ID", SymbolKindType)
	assert.Equal(t, 14, out.File.LOC)
}

func TestGoReceiverType(t *testing.T) {
	tests := map[string]string{
		"(s *Service)":       "Service",
		"(Service)":          "Service",
		"(c *Cache[K, V])":   "Cache",
		"( h  HandlerFunc )": "HandlerFunc",
		"()":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, goReceiverType(in), "receiver %q", in)
	}
}

// ---------------------------------------------------------------------------
// TestOutliner_Python
// ---------------------------------------------------------------------------

func TestOutliner_Python(t *testing.T) {
	models := outlineFixture(t, "testdata/fixtures/python_project/app/models.py", source.LangPython)
	assertSymbol(t, models, "Entity", SymbolKindClass)
	assertSymbol(t, models, "Entity.describe", SymbolKindMethod)
	user := assertSymbol(t, models, "User", SymbolKindClass)
	assert.Empty(t, user.Container)
	ctor := assertSymbol(t, models, "User.__init__", SymbolKindConstructor)
	assert.True(t, ctor.Exported, "dunders are public")
	assertSymbol(t, models, "User.validate", SymbolKindMethod)

	svc := outlineFixture(t, "testdata/fixtures/python_project/app/service.py", source.LangPython)
	assert.Equal(t, []string{"from .models import User", "from . import storage"}, svc.Imports)
	assertSymbol(t, svc, "UserService.create_user", SymbolKindMethod)

	storage := outlineFixture(t, "testdata/fixtures/python_project/app/storage.py", source.LangPython)
	assertSymbol(t, storage, "log_write", SymbolKindFunction)
}

func TestOutliner_PythonNested(t *testing.T) {
	src := []byte(`def outer():
    def _inner():
        pass
    return _inner


class Shape:
    class Meta:
        pass

    @property
    def area(self):
        return 0
`)
	o := NewOutliner()
	out, err := o.Outline(context.Background(), "shapes.py", src, source.LangPython)
	require.NoError(t, err)

	inner := assertSymbol(t, out, "outer._inner", SymbolKindFunction)
	assert.False(t, inner.Exported)
	meta := assertSymbol(t, out, "Shape.Meta", SymbolKindClass)
	assert.Equal(t, "Shape", meta.Container)
	assertSymbol(t, out, "Shape.area", SymbolKindMethod)
}

// ---------------------------------------------------------------------------
// TestOutliner_Java
// ---------------------------------------------------------------------------

func TestOutliner_Java(t *testing.T) {
	user := outlineFixture(t, "testdata/fixtures/java_project/src/com/acme/model/User.java", source.LangJava)
	assert.Equal(t, "com.acme.model", user.File.Package)
	cls := assertSymbol(t, user, "User", SymbolKindClass)
	assert.True(t, cls.Exported)
	assertSymbol(t, user, "User.User", SymbolKindConstructor)
	assertSymbol(t, user, "User.validate", SymbolKindMethod)

	svc := outlineFixture(t, "testdata/fixtures/java_project/src/com/acme/service/UserService.java", source.LangJava)
	assert.Equal(t, "com.acme.service", svc.File.Package)
	assert.Equal(t, []string{"import com.acme.model.User;"}, svc.Imports)
	create := assertSymbol(t, svc, "UserService.createUser", SymbolKindMethod)
	assert.True(t, create.Exported)
}

func TestOutliner_JavaNestedTypes(t *testing.T) {
	src := []byte(`package demo;

class Outer {
    interface Listener {
        void fire();
    }

    enum Mode { ON, OFF }

    private void run() {
        Runnable r = new Runnable() {
            public void run() {}
        };
    }
}
`)
	o := NewOutliner()
	out, err := o.Outline(context.Background(), "Outer.java", src, source.LangJava)
	require.NoError(t, err)

	outer := assertSymbol(t, out, "Outer", SymbolKindClass)
	assert.False(t, outer.Exported)
	assertSymbol(t, out, "Outer.Listener", SymbolKindInterface)
	assertSymbol(t, out, "Outer.Listener.fire", SymbolKindMethod)
	assertSymbol(t, out, "Outer.Mode", SymbolKindEnum)

	run := assertSymbol(t, out, "Outer.run", SymbolKindMethod)
	assert.False(t, run.Exported)

	var runs int
	for _, s := range out.Symbols {
		if s.Name == "run" {
			runs++
		}
	}
	assert.Equal(t, 1, runs, "anonymous class members are not listed")
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(nil))
	assert.Equal(t, 1, countLines([]byte("a")))
	assert.Equal(t, 1, countLines([]byte("a\n")))
	assert.Equal(t, 2, countLines([]byte("a\nb")))
}
