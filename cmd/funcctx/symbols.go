package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/funcctx/internal/graph"
	"github.com/dusk-indust/funcctx/internal/mcptools"
)

func newSymbolsCmd(a *app) *cobra.Command {
	var (
		kind   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "symbols FILE",
		Short: "List the functions and types declared in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			svc, err := a.services(ctx, graph.NewMemStore())
			if err != nil {
				return err
			}
			_, out, err := svc.tools.ListSymbols(ctx, nil, mcptools.ListSymbolsInput{Path: args[0], Kind: kind})
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal JSON: %w", err)
				}
				_, err = a.stdout.Write(append(data, '\n'))
				return err
			}

			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, sym := range out.Symbols {
				fmt.Fprintf(w, "%d-%d\t%s\t%s\n", sym.StartLine, sym.EndLine, sym.Kind, sym.QualifiedName())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list symbols of this kind")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
