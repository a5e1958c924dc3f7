package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidPattern is returned for an exclude glob that does not compile.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// defaultSkipDirs are never descended into.
var defaultSkipDirs = []string{".git", ".hg", ".svn", ".idea", "__pycache__"}

// FileIndexOptions configures a FileIndex.
type FileIndexOptions struct {
	// Excludes are doublestar globs matched against index-relative paths.
	Excludes []string
	// ExcludeDirs are directory base names skipped while walking.
	ExcludeDirs []string
	// Languages restricts the indexed files. Empty means all supported.
	Languages []Language
	// Concurrency bounds parallel reads in Warm. Zero uses GOMAXPROCS.
	Concurrency int
}

type cachedUnit struct {
	unit    *Unit
	modTime time.Time
	size    int64
}

// Compile-time assertion: *FileIndex satisfies Index.
var _ Index = (*FileIndex)(nil)

// FileIndex indexes a directory tree on disk. Files are read lazily and
// re-read when their modification time or size changes.
type FileIndex struct {
	root     string
	opts     FileIndexOptions
	skipDirs map[string]bool
	langs    map[Language]bool

	mu    sync.RWMutex
	files []string // nil until walked
	units map[string]cachedUnit
	gen   atomic.Uint64
}

// NewFileIndex creates an index rooted at root.
func NewFileIndex(root string, opts FileIndexOptions) (*FileIndex, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", abs)
	}
	for _, pattern := range opts.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
	}

	skip := make(map[string]bool, len(defaultSkipDirs)+len(opts.ExcludeDirs))
	for _, d := range defaultSkipDirs {
		skip[d] = true
	}
	for _, d := range opts.ExcludeDirs {
		skip[d] = true
	}
	langs := make(map[Language]bool)
	if len(opts.Languages) == 0 {
		for _, l := range SupportedLanguages {
			langs[l] = true
		}
	} else {
		for _, l := range opts.Languages {
			langs[l] = true
		}
	}

	return &FileIndex{
		root:     abs,
		opts:     opts,
		skipDirs: skip,
		langs:    langs,
		units:    make(map[string]cachedUnit),
	}, nil
}

// Root returns the absolute index root.
func (x *FileIndex) Root() string { return x.root }

// Generation changes on every Invalidate and Refresh.
func (x *FileIndex) Generation() uint64 { return x.gen.Load() }

// Rel converts an absolute or root-relative path into an index path.
func (x *FileIndex) Rel(p string) (string, error) {
	if !filepath.IsAbs(p) {
		return CleanPath(p), nil
	}
	rel, err := filepath.Rel(x.root, p)
	if err != nil {
		return "", err
	}
	return CleanPath(filepath.ToSlash(rel)), nil
}

// Excluded reports whether the index-relative path matches an exclude glob.
func (x *FileIndex) Excluded(rel string) bool {
	for _, pattern := range x.opts.Excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory base name is never walked.
func (x *FileIndex) SkipDir(name string) bool {
	return x.skipDirs[name]
}

// ListFiles returns the sorted paths of lang, walking the tree on first use.
func (x *FileIndex) ListFiles(ctx context.Context, lang Language) ([]string, error) {
	files, err := x.walk(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for _, p := range files {
		if lang == LangUnknown || LanguageForPath(p) == lang {
			out = append(out, p)
		}
	}
	return out, nil
}

func (x *FileIndex) walk(ctx context.Context) ([]string, error) {
	x.mu.RLock()
	files := x.files
	x.mu.RUnlock()
	if files != nil {
		return files, nil
	}

	files = []string{}
	err := filepath.WalkDir(x.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := x.Rel(p)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if p != x.root && (x.skipDirs[d.Name()] || x.Excluded(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !x.langs[LanguageForPath(p)] || x.Excluded(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", x.root, err)
	}
	sort.Strings(files)

	x.mu.Lock()
	x.files = files
	x.mu.Unlock()
	return files, nil
}

// Unit reads path, reusing the cached unit when the file is unchanged.
func (x *FileIndex) Unit(_ context.Context, p string) (*Unit, error) {
	rel, err := x.Rel(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	abs := filepath.Join(x.root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", rel, ErrNotFound)
	}

	x.mu.RLock()
	cached, ok := x.units[rel]
	x.mu.RUnlock()
	if ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.unit, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	u := NewUnit(rel, data)
	u.AbsPath = abs

	x.mu.Lock()
	x.units[rel] = cachedUnit{unit: u, modTime: info.ModTime(), size: info.Size()}
	x.mu.Unlock()
	return u, nil
}

// Warm reads every indexed file concurrently.
func (x *FileIndex) Warm(ctx context.Context) error {
	files, err := x.walk(ctx)
	if err != nil {
		return err
	}
	limit := x.opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, p := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := x.Unit(gctx, p)
			if errors.Is(err, ErrNotFound) {
				return nil // removed since the walk
			}
			return err
		})
	}
	return g.Wait()
}

// Invalidate drops the cached state of one path. Creations and removals
// also reset the file list.
func (x *FileIndex) Invalidate(p string) {
	rel, err := x.Rel(p)
	if err != nil {
		return
	}
	x.mu.Lock()
	_, known := x.units[rel]
	delete(x.units, rel)
	if !known || !x.exists(rel) {
		x.files = nil
	}
	x.mu.Unlock()
	x.gen.Add(1)
}

// Refresh drops all cached state.
func (x *FileIndex) Refresh() {
	x.mu.Lock()
	x.files = nil
	x.units = make(map[string]cachedUnit)
	x.mu.Unlock()
	x.gen.Add(1)
}

func (x *FileIndex) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(x.root, filepath.FromSlash(rel)))
	return err == nil
}
