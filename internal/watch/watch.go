// Package watch keeps a FileIndex current by listening for file system
// changes under its root.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dusk-indust/funcctx/internal/resolve"
	"github.com/dusk-indust/funcctx/internal/source"
)

// DefaultDebounce is the default debounce interval for file events.
const DefaultDebounce = 100 * time.Millisecond

// ErrStarted is returned by a second call to Start.
var ErrStarted = errors.New("watcher already started")

// Op is the kind of change reported for a path.
type Op string

const (
	OpCreate Op = "create"
	OpModify Op = "modify"
	OpRemove Op = "remove"
)

// Event is one debounced change, emitted after the index was invalidated.
type Event struct {
	Path string // index-relative
	Op   Op
	Time time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the interval to wait before handling further events for
// the same path.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithCache purges c whenever files appear or disappear.
func WithCache(c *resolve.Cache) Option {
	return func(w *Watcher) { w.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// Watcher invalidates index entries of changed source files.
type Watcher struct {
	index    *source.FileIndex
	cache    *resolve.Cache
	logger   *slog.Logger
	debounce time.Duration
	fsw      *fsnotify.Watcher

	mu       sync.Mutex
	pending  map[string]*pendingEvent
	events   chan Event
	started  bool
	stopped  bool
	stopOnce sync.Once
}

// New creates a watcher for the root of index.
func New(index *source.FileIndex, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		index:    index,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		fsw:      fsw,
		pending:  make(map[string]*pendingEvent),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start adds the index root and its subdirectories to the watch list and
// processes events until ctx is done or Stop is called. The returned channel
// is closed when processing stops; events are dropped when it is full.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil, ErrStarted
	}
	w.started = true
	w.events = make(chan Event, 64)
	w.mu.Unlock()

	if err := w.addRecursive(w.index.Root()); err != nil {
		w.Stop()
		close(w.events)
		return nil, err
	}
	w.logger.Info("watching for changes", "root", w.index.Root(), "debounce", w.debounce)

	go w.loop(ctx)
	return w.events, nil
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		for _, p := range w.pending {
			p.timer.Stop()
		}
		w.pending = make(map[string]*pendingEvent)
		w.mu.Unlock()
		err = w.fsw.Close()
	})
	return err
}

// addRecursive adds root and every subdirectory that is not skipped.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.skipDir(p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) skipDir(abs string) bool {
	if w.index.SkipDir(filepath.Base(abs)) {
		return true
	}
	rel, err := w.index.Rel(abs)
	return err == nil && w.index.Excluded(rel)
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.cleanup()
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// handle filters one fsnotify event and schedules it.
func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.skipDir(ev.Name) {
				if err := w.addRecursive(ev.Name); err != nil {
					w.logger.Warn("watch new directory", "path", ev.Name, "error", err)
				}
			}
			return
		}
	}

	rel, err := w.index.Rel(ev.Name)
	if err != nil || source.LanguageForPath(rel) == source.LangUnknown || w.index.Excluded(rel) {
		return
	}
	w.schedule(rel, opFor(ev.Op))
}

// opFor maps fsnotify operations; renames look like removals of the old
// name.
func opFor(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpRemove
	}
	return OpModify
}

// schedule debounces events per path. A create followed by writes is still
// reported as a create.
func (w *Watcher) schedule(rel string, op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	event := Event{Path: rel, Op: op, Time: time.Now()}
	if existing, ok := w.pending[rel]; ok {
		existing.timer.Stop()
		if existing.event.Op == OpCreate && op == OpModify {
			event.Op = OpCreate
		}
	}
	w.pending[rel] = &pendingEvent{
		event: event,
		timer: time.AfterFunc(w.debounce, func() { w.fire(rel) }),
	}
}

// fire invalidates the index for a settled path and emits the event.
func (w *Watcher) fire(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[rel]
	if w.stopped || !ok {
		return
	}
	delete(w.pending, rel)

	w.index.Invalidate(rel)
	// Keys carry the content hash and index generation; modify needs no purge.
	if w.cache != nil && p.event.Op != OpModify {
		w.cache.Purge()
	}
	w.logger.Debug("source changed", "path", rel, "op", p.event.Op)

	select {
	case w.events <- p.event:
	default:
		w.logger.Debug("dropping change event", "path", rel)
	}
}

// cleanup closes the event channel when processing stops.
func (w *Watcher) cleanup() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = make(map[string]*pendingEvent)
	close(w.events)
}
