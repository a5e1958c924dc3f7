package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/funcctx/internal/graph"
)

func newDepsCmd(a *app) *cobra.Command {
	var (
		direction string
		depth     int
	)
	cmd := &cobra.Command{
		Use:   "deps PATTERN",
		Short: "Query the call graph persisted by 'extract --store kuzu'",
		Long: `deps searches the persisted call graph of the last extraction for functions
whose name contains PATTERN and prints their call chains. It prints nothing
when no graph has been persisted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			dir, err := graph.ParseDirection(direction)
			if err != nil {
				return err
			}
			return a.runDeps(ctx, args[0], dir, depth)
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "callees", "callees or callers")
	cmd.Flags().IntVar(&depth, "depth", 2, "maximum traversal depth")
	return cmd
}

// runDeps prints the functions matching pattern and the call chains of the
// first match.
func (a *app) runDeps(ctx context.Context, pattern string, dir graph.Direction, depth int) error {
	graphPath := a.cfg.GraphStorePath(a.rootDir)
	if _, err := os.Stat(graphPath); err != nil {
		a.logger.Debug("no persisted graph", "path", graphPath)
		return nil
	}

	store, err := openKuzuStore(graphPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.InitSchema(ctx); err != nil {
		return err
	}

	functions, err := store.QueryFunctions(ctx, pattern, 10)
	if err != nil || len(functions) == 0 {
		return err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Call graph for %q\n\n", pattern))

	sb.WriteString("**Functions found:**\n")
	for _, fn := range functions {
		sb.WriteString(fmt.Sprintf("- `%s` in `%s:%d`", fn.Name, fn.FilePath, fn.StartLine))
		if !fn.ProjectOwned {
			sb.WriteString(" (not project code)")
		}
		sb.WriteString("\n")
	}

	primary := functions[0].ID
	chains, err := store.GetDependencies(ctx, primary, dir, depth)
	if err != nil {
		return err
	}
	if len(chains) > 0 {
		sb.WriteString(fmt.Sprintf("\n**%s of `%s`:**\n", strings.ToUpper(string(dir[:1]))+string(dir[1:]), primary))
		for _, chain := range chains {
			sb.WriteString(fmt.Sprintf("- %s\n", strings.Join(chain.Nodes, " -> ")))
		}
	}

	_, err = fmt.Fprint(a.stdout, sb.String())
	return err
}
