package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/funcctx/internal/resolve"
	"github.com/dusk-indust/funcctx/internal/source"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

// startWatcher indexes dir and starts a watcher with a short debounce.
func startWatcher(t *testing.T, dir string, opts source.FileIndexOptions, extra ...Option) (*source.FileIndex, <-chan Event) {
	t.Helper()
	idx, err := source.NewFileIndex(dir, opts)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := New(idx, append([]Option{WithDebounce(20 * time.Millisecond), WithLogger(logger)}, extra...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	events, err := w.Start(ctx)
	require.NoError(t, err)
	return idx, events
}

// waitFor returns the first event for path or fails after a timeout.
func waitFor(t *testing.T, events <-chan Event, path string) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event channel closed")
			if ev.Path == path {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for event on %s", path)
			return Event{}
		}
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestWatcher_ModifyInvalidatesIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg/a.go", "package pkg\n\nfunc A() {}\n")

	idx, events := startWatcher(t, dir, source.FileIndexOptions{})
	before, err := idx.Unit(context.Background(), "pkg/a.go")
	require.NoError(t, err)
	gen := idx.Generation()

	writeFile(t, dir, "pkg/a.go", "package pkg\n\nfunc A() { B() }\n\nfunc B() {}\n")
	ev := waitFor(t, events, "pkg/a.go")
	assert.Contains(t, []Op{OpModify, OpCreate}, ev.Op)
	assert.Greater(t, idx.Generation(), gen)

	after, err := idx.Unit(context.Background(), "pkg/a.go")
	require.NoError(t, err)
	assert.NotEqual(t, before.Hash, after.Hash)
	assert.Contains(t, after.Content, "func B()")
}

func TestWatcher_CreateInNewDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.py", "def main():\n    pass\n")

	cache, err := resolve.NewCache(8)
	require.NoError(t, err)
	idx, events := startWatcher(t, dir, source.FileIndexOptions{}, WithCache(cache))

	files, err := idx.ListFiles(context.Background(), source.LangPython)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py"}, files)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	time.Sleep(100 * time.Millisecond) // let the new directory be added
	writeFile(t, dir, "pkg/util.py", "def helper():\n    pass\n")

	ev := waitFor(t, events, "pkg/util.py")
	assert.Equal(t, OpCreate, ev.Op)

	files, err = idx.ListFiles(context.Background(), source.LangPython)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py", "pkg/util.py"}, files)
}

func TestWatcher_IgnoresUnsupportedAndExcluded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")

	_, events := startWatcher(t, dir, source.FileIndexOptions{Excludes: []string{"**/*_gen.go"}})

	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "z_gen.go", "package a\n")
	writeFile(t, dir, "b.go", "package a\n")

	ev := waitFor(t, events, "b.go")
	assert.Equal(t, "b.go", ev.Path)

	select {
	case ev := <-events:
		assert.Failf(t, "unexpected event", "%+v", ev)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_RemoveIsReported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Main.java", "class Main {}\n")

	idx, events := startWatcher(t, dir, source.FileIndexOptions{})
	_, err := idx.Unit(context.Background(), "Main.java")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "Main.java")))
	ev := waitFor(t, events, "Main.java")
	assert.Equal(t, OpRemove, ev.Op)

	_, err = idx.Unit(context.Background(), "Main.java")
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestWatcher_StopClosesChannel(t *testing.T) {
	dir := t.TempDir()
	idx, err := source.NewFileIndex(dir, source.FileIndexOptions{})
	require.NoError(t, err)
	w, err := New(idx)
	require.NoError(t, err)

	events, err := w.Start(context.Background())
	require.NoError(t, err)
	_, err = w.Start(context.Background())
	assert.ErrorIs(t, err, ErrStarted)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("event channel not closed")
	}
}

func TestOpFor(t *testing.T) {
	assert.Equal(t, OpCreate, opFor(fsnotify.Create))
	assert.Equal(t, OpCreate, opFor(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, OpModify, opFor(fsnotify.Write))
	assert.Equal(t, OpModify, opFor(fsnotify.Chmod))
	assert.Equal(t, OpRemove, opFor(fsnotify.Remove))
	assert.Equal(t, OpRemove, opFor(fsnotify.Rename))
}
