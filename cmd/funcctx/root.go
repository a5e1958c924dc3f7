package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/funcctx/internal/analyzer"
	"github.com/dusk-indust/funcctx/internal/config"
	"github.com/dusk-indust/funcctx/internal/graph"
	"github.com/dusk-indust/funcctx/internal/mcptools"
	"github.com/dusk-indust/funcctx/internal/resolve"
	"github.com/dusk-indust/funcctx/internal/source"
)

// app holds the state shared by all subcommands.
type app struct {
	rootDir string
	cfgFile string
	verbose bool

	cfg    *config.ProjectConfig
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "funcctx",
		Short: "Extract a function and the project code it calls",
		Long: `funcctx extracts a function together with every project function it
transitively calls, up to a depth limit, and renders them as one document.

Example usage:
  funcctx extract svc/service.go --line 42       # Function under the cursor
  funcctx extract app/models.py --func User.save  # Function by name
  funcctx symbols svc/service.go                 # Outline of a file
  funcctx serve --stdio --watch                  # MCP server for editors`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.init() },
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&a.rootDir, "dir", "d", "", "project root (default is current directory)")
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is <dir>/funcctx.yml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newExtractCmd(a),
		newSymbolsCmd(a),
		newDepsCmd(a),
		newServeCmd(a),
	)
	return root
}

// init resolves the project root, loads the config and builds the logger.
func (a *app) init() error {
	var err error
	if a.rootDir == "" {
		a.rootDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	if a.cfgFile != "" {
		a.cfg, err = config.LoadFile(a.cfgFile)
	} else {
		a.cfg, err = config.Load(a.rootDir)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// services wires index, cache, analyzer and tool service over store.
type services struct {
	index    *source.FileIndex
	cache    *resolve.Cache
	analyzer *analyzer.Analyzer
	tools    *mcptools.CodeIntelService
}

func (a *app) services(ctx context.Context, store graph.Store) (*services, error) {
	opts, err := a.cfg.IndexOptions()
	if err != nil {
		return nil, err
	}
	idx, err := source.NewFileIndex(a.rootDir, opts)
	if err != nil {
		return nil, err
	}
	cache, err := resolve.NewCache(a.cfg.ResolverCacheSize())
	if err != nil {
		return nil, err
	}
	an, err := analyzer.New(idx, analyzer.WithCache(cache), analyzer.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	tools, err := mcptools.NewCodeIntelService(ctx, idx, an, store,
		mcptools.WithDefaults(a.cfg.Extraction()),
		mcptools.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return &services{index: idx, cache: cache, analyzer: an, tools: tools}, nil
}

// openStore opens the graph store named by kind, falling back to the
// config value and then to memory.
func (a *app) openStore(kind string) (graph.Store, error) {
	if kind == "" {
		kind = a.cfg.Store
	}
	switch kind {
	case "", "memory":
		return graph.NewMemStore(), nil
	case "kuzu":
		return openKuzuStore(a.cfg.GraphStorePath(a.rootDir))
	}
	return nil, fmt.Errorf("unknown store %q (want memory or kuzu)", kind)
}
