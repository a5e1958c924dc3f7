package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrNotFound is returned when a path is not part of an index.
var ErrNotFound = errors.New("source not found")

// Index gives the analyzer access to the files of a project.
type Index interface {
	// Root is the directory the index paths are relative to.
	Root() string

	// ListFiles returns the sorted paths of all files of lang. LangUnknown
	// lists every supported file.
	ListFiles(ctx context.Context, lang Language) ([]string, error)

	// Unit returns the current content of path. It wraps ErrNotFound when the
	// path does not exist.
	Unit(ctx context.Context, path string) (*Unit, error)

	// Generation changes whenever indexed content may have changed.
	Generation() uint64
}

// CleanPath normalizes an index-relative path.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	return strings.TrimPrefix(p, "./")
}

// Compile-time assertion: *MemIndex satisfies Index.
var _ Index = (*MemIndex)(nil)

// MemIndex is an in-memory Index, used for tests and unsaved editor buffers.
type MemIndex struct {
	mu    sync.RWMutex
	units map[string]*Unit
	gen   atomic.Uint64
}

// NewMemIndex builds an index from path -> content pairs.
func NewMemIndex(files map[string]string) *MemIndex {
	idx := &MemIndex{units: make(map[string]*Unit, len(files))}
	for p, content := range files {
		p = CleanPath(p)
		idx.units[p] = NewUnit(p, []byte(content))
	}
	return idx
}

// Put adds or replaces a file and returns its unit.
func (m *MemIndex) Put(p, content string) *Unit {
	p = CleanPath(p)
	u := NewUnit(p, []byte(content))
	m.mu.Lock()
	m.units[p] = u
	m.mu.Unlock()
	m.gen.Add(1)
	return u
}

// Remove deletes a file.
func (m *MemIndex) Remove(p string) {
	m.mu.Lock()
	delete(m.units, CleanPath(p))
	m.mu.Unlock()
	m.gen.Add(1)
}

// Root returns an empty root; MemIndex paths are virtual.
func (m *MemIndex) Root() string { return "" }

// ListFiles returns the sorted paths of lang.
func (m *MemIndex) ListFiles(_ context.Context, lang Language) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.units))
	for p, u := range m.units {
		if lang == LangUnknown && u.Language == LangUnknown {
			continue
		}
		if lang != LangUnknown && u.Language != lang {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// Unit returns the unit stored at path.
func (m *MemIndex) Unit(_ context.Context, p string) (*Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[CleanPath(p)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return u, nil
}

// Generation increments on every Put and Remove.
func (m *MemIndex) Generation() uint64 { return m.gen.Load() }
