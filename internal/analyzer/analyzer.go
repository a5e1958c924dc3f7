// Package analyzer walks the call graph of a function breadth first and
// collects the reachable project functions as model.FunctionContext values.
//
// Traversal state lives in a run value created per call, so an Analyzer may
// be reused and shared across goroutines. The only state carried between runs
// is the resolve.Cache handed in with WithCache.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/dusk-indust/funcctx/internal/lang"
	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/resolve"
	"github.com/dusk-indust/funcctx/internal/source"
)

// ErrNoDefinition is returned when no function encloses the requested
// location or carries the requested name.
var ErrNoDefinition = errors.New("no enclosing function definition")

// Analyzer extracts function call contexts from an index.
type Analyzer struct {
	index    source.Index
	registry *lang.Registry
	cache    *resolve.Cache
	logger   *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCache shares a definition cache across analyzers and runs.
func WithCache(c *resolve.Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithLogger sets the logger. Unresolved calls are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithRegistry selects the language adapters.
func WithRegistry(r *lang.Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// New returns an analyzer over index.
func New(index source.Index, opts ...Option) (*Analyzer, error) {
	a := &Analyzer{index: index}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = lang.Default()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.cache == nil {
		c, err := resolve.NewCache(resolve.DefaultCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		a.cache = c
	}
	return a, nil
}

// Cache returns the definition cache used by the analyzer.
func (a *Analyzer) Cache() *resolve.Cache { return a.cache }

func (a *Analyzer) resolver(cfg model.ExtractionConfig) *resolve.Resolver {
	return resolve.New(a.index,
		resolve.WithCache(a.cache),
		resolve.WithRegistry(a.registry),
		resolve.WithLogger(a.logger),
		resolve.WithTests(cfg.IncludeTests()),
	)
}

// AnalyzeAtCursor analyzes the innermost function of unit that contains
// offset.
func (a *Analyzer) AnalyzeAtCursor(ctx context.Context, unit *source.Unit, offset int, cfg model.ExtractionConfig) (*model.ContextSet, error) {
	root, err := a.FunctionAt(unit, offset)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, root, cfg)
}

// FunctionAt returns the innermost function definition of unit containing
// offset, walking up from nested types and blocks.
func (a *Analyzer) FunctionAt(unit *source.Unit, offset int) (*source.Definition, error) {
	adapter, err := a.registry.For(unit.Language)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", unit.Path, err)
	}
	defs, err := a.resolver(model.DefaultExtractionConfig()).UnitDefinitions(unit)
	if err != nil {
		return nil, err
	}
	for d := source.Innermost(defs, offset); d != nil; d = d.Parent {
		if adapter.IsFunctionDefinition(d) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s:%d: %w", unit.Path, unit.LineAt(offset), ErrNoDefinition)
}

// AnalyzeFunction analyzes the function of unit named name. Qualified names
// such as Service.Run take precedence over bare names.
func (a *Analyzer) AnalyzeFunction(ctx context.Context, unit *source.Unit, name string, cfg model.ExtractionConfig) (*model.ContextSet, error) {
	root, err := a.FunctionNamed(unit, name)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, root, cfg)
}

// FunctionNamed returns the function of unit with the given qualified or
// bare name.
func (a *Analyzer) FunctionNamed(unit *source.Unit, name string) (*source.Definition, error) {
	adapter, err := a.registry.For(unit.Language)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", unit.Path, err)
	}
	defs, err := a.resolver(model.DefaultExtractionConfig()).UnitDefinitions(unit)
	if err != nil {
		return nil, err
	}
	var qualified, bare *source.Definition
	source.Walk(defs, func(d *source.Definition) bool {
		if !adapter.IsFunctionDefinition(d) {
			return true
		}
		if d.Qualified == name && qualified == nil {
			qualified = d
		}
		if d.Name == name && bare == nil {
			bare = d
		}
		return true
	})
	if qualified != nil {
		return qualified, nil
	}
	if bare != nil {
		return bare, nil
	}
	return nil, fmt.Errorf("%s: function %q: %w", unit.Path, name, ErrNoDefinition)
}

// Analyze collects root and the functions it reaches within cfg.MaxDepth
// call edges. On failure the contexts collected so far are returned along
// with the error.
func (a *Analyzer) Analyze(ctx context.Context, root *source.Definition, cfg model.ExtractionConfig) (set *model.ContextSet, err error) {
	r := &run{
		Analyzer:  a,
		ctx:       ctx,
		cfg:       cfg,
		resolver:  a.resolver(cfg),
		processed: make(map[string]bool),
		set:       model.NewContextSet(),
	}
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("analysis panicked", "panic", p, "stack", string(debug.Stack()))
			set, err = r.set, fmt.Errorf("analyze %s: panic: %v", name(root), p)
		}
	}()

	if err := r.walk(root); err != nil {
		a.logger.Error("analysis failed", "root", name(root), "error", err)
		return r.set, fmt.Errorf("analyze %s: %w", name(root), err)
	}
	return r.set, nil
}

func name(d *source.Definition) string {
	if d == nil {
		return "<nil>"
	}
	return d.Qualified
}
