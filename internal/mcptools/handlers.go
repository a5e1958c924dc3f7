package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/funcctx/internal/analyzer"
	"github.com/dusk-indust/funcctx/internal/export"
	"github.com/dusk-indust/funcctx/internal/graph"
	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/source"
)

// CodeIntelService holds the index, analyzer and graph store used by MCP
// tool handlers. The store always holds the call graph of the last
// extraction.
type CodeIntelService struct {
	index    source.Index
	analyzer *analyzer.Analyzer
	store    graph.Store
	outliner *graph.Outliner
	defaults model.ExtractionConfig
	logger   *slog.Logger

	mu sync.Mutex // serializes store reloads
}

// Option configures a CodeIntelService.
type Option func(*CodeIntelService)

// WithDefaults sets the extraction config that tool arguments override.
func WithDefaults(cfg model.ExtractionConfig) Option {
	return func(s *CodeIntelService) { s.defaults = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *CodeIntelService) { s.logger = l }
}

// NewCodeIntelService creates a CodeIntelService. The store schema is
// initialized here.
func NewCodeIntelService(ctx context.Context, index source.Index, an *analyzer.Analyzer, store graph.Store, opts ...Option) (*CodeIntelService, error) {
	s := &CodeIntelService{
		index:    index,
		analyzer: an,
		store:    store,
		outliner: graph.NewOutliner(),
		defaults: model.DefaultExtractionConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Store returns the graph store.
func (s *CodeIntelService) Store() graph.Store { return s.store }

// ExtractContext analyzes the selected function, loads its call graph into
// the store and renders the requested document.
func (s *CodeIntelService) ExtractContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExtractContextInput,
) (*mcp.CallToolResult, ExtractContextOutput, error) {
	out, err := s.Extract(ctx, input)
	if err != nil {
		return nil, ExtractContextOutput{}, err
	}
	return nil, *out, nil
}

// Extract is the transport-independent body of ExtractContext.
func (s *CodeIntelService) Extract(ctx context.Context, input ExtractContextInput) (*ExtractContextOutput, error) {
	unit, err := s.unit(ctx, input.Path)
	if err != nil {
		return nil, err
	}
	cfg, err := s.config(input)
	if err != nil {
		return nil, err
	}
	formatter, err := export.ForName(input.Format)
	if err != nil {
		return nil, err
	}

	var set *model.ContextSet
	switch {
	case input.Function != "":
		set, err = s.analyzer.AnalyzeFunction(ctx, unit, input.Function, cfg)
	case input.Offset != nil:
		set, err = s.analyzer.AnalyzeAtCursor(ctx, unit, *input.Offset, cfg)
	case input.Line > 0:
		set, err = s.analyzer.AnalyzeAtCursor(ctx, unit, unit.OffsetOf(input.Line, input.Column), cfg)
	default:
		return nil, errors.New("one of function, offset or line is required")
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := graph.Load(ctx, s.store, set); err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	functions, err := s.store.Functions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list functions: %w", err)
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	var doc string
	if _, ok := formatter.(export.Mermaid); ok {
		doc, err = export.GenerateMermaid(ctx, s.store)
	} else {
		doc, err = formatter.Format(set)
	}
	if err != nil {
		return nil, fmt.Errorf("format: %w", err)
	}

	out := &ExtractContextOutput{Functions: functions, Stats: *stats, Document: doc}
	if root := set.Root(); root != nil {
		out.Root = root.Signature()
	}
	s.logger.Info("extracted context",
		"path", unit.Path, "root", out.Root, "functions", stats.FunctionCount, "config", cfg.String())
	return out, nil
}

// config applies the tool arguments to the service defaults.
func (s *CodeIntelService) config(input ExtractContextInput) (model.ExtractionConfig, error) {
	var opts []model.Option
	if input.MaxDepth != nil {
		if *input.MaxDepth < 0 {
			return model.ExtractionConfig{}, fmt.Errorf("maxDepth must not be negative: %d", *input.MaxDepth)
		}
		opts = append(opts, model.WithMaxDepth(uint(*input.MaxDepth)))
	}
	if input.IncludeComments != nil {
		opts = append(opts, model.WithComments(*input.IncludeComments))
	}
	if input.IncludeImports != nil {
		opts = append(opts, model.WithImports(*input.IncludeImports))
	}
	if input.IncludeTests != nil {
		opts = append(opts, model.WithTests(*input.IncludeTests))
	}
	return s.defaults.With(opts...), nil
}

// ListSymbols returns the tree-sitter outline of one file.
func (s *CodeIntelService) ListSymbols(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListSymbolsInput,
) (*mcp.CallToolResult, ListSymbolsOutput, error) {
	unit, err := s.unit(ctx, input.Path)
	if err != nil {
		return nil, ListSymbolsOutput{}, err
	}
	outline, err := s.outliner.Outline(ctx, unit.Path, []byte(unit.Content), source.LanguageForPath(unit.Path))
	if err != nil {
		return nil, ListSymbolsOutput{}, err
	}

	symbols := outline.Symbols
	if input.Kind != "" {
		kind := graph.SymbolKind(strings.ToLower(input.Kind))
		filtered := symbols[:0]
		for _, sym := range symbols {
			if sym.Kind == kind {
				filtered = append(filtered, sym)
			}
		}
		symbols = filtered
	}

	return nil, ListSymbolsOutput{
		File:    outline.File,
		Symbols: symbols,
		Imports: outline.Imports,
		Total:   len(symbols),
	}, nil
}

// QueryFunctions searches the last extraction by name substring.
func (s *CodeIntelService) QueryFunctions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryFunctionsInput,
) (*mcp.CallToolResult, QueryFunctionsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	functions, err := s.store.QueryFunctions(ctx, input.Query, limit)
	if err != nil {
		return nil, QueryFunctionsOutput{}, fmt.Errorf("query functions: %w", err)
	}
	return nil, QueryFunctionsOutput{Functions: functions, Total: len(functions)}, nil
}

// GetDependencies traverses the stored call graph from a given function.
func (s *CodeIntelService) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.Signature == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("signature is required")
	}

	direction, err := graph.ParseDirection(input.Direction)
	if err != nil {
		return nil, GetDependenciesOutput{}, err
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	fn, err := s.store.GetFunction(ctx, input.Signature)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get function: %w", err)
	}
	if fn == nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("unknown function %q; run extract_context first", input.Signature)
	}

	chains, err := s.store.GetDependencies(ctx, input.Signature, direction, maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}
	if chains == nil {
		chains = []graph.DependencyChain{}
	}
	return nil, GetDependenciesOutput{Chains: chains}, nil
}

// unit loads a file given relative to the index root or as an absolute
// path inside it.
func (s *CodeIntelService) unit(ctx context.Context, p string) (*source.Unit, error) {
	if p == "" {
		return nil, errors.New("path is required")
	}
	if filepath.IsAbs(p) && s.index.Root() != "" {
		rel, err := filepath.Rel(s.index.Root(), p)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("%s is outside the project root %s", p, s.index.Root())
		}
		p = filepath.ToSlash(rel)
	}
	return s.index.Unit(ctx, p)
}
