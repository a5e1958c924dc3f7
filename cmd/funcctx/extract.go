package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/funcctx/internal/mcptools"
)

type extractFlags struct {
	line     int
	col      int
	offset   int
	function string
	depth    int
	comments bool
	imports  bool
	tests    bool
	format   string
	store    string
}

func newExtractCmd(a *app) *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print a function and the functions it calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.line, "line", 0, "1-based cursor line")
	fl.IntVar(&f.col, "col", 1, "1-based cursor column")
	fl.IntVar(&f.offset, "offset", 0, "0-based byte offset of the cursor")
	fl.StringVar(&f.function, "func", "", "function to extract by bare or qualified name")
	fl.IntVar(&f.depth, "depth", 0, "call edges to follow from the root (default from config, else 3)")
	fl.BoolVar(&f.comments, "comments", true, "keep comments in the emitted source")
	fl.BoolVar(&f.imports, "imports", true, "attach the imports each function uses")
	fl.BoolVar(&f.tests, "tests", false, "follow calls into test functions")
	fl.StringVarP(&f.format, "format", "f", "markdown", "output format: markdown, json or mermaid")
	fl.StringVar(&f.store, "store", "", "graph store for the result: memory or kuzu (kuzu persists for 'funcctx deps')")
	cmd.MarkFlagsMutuallyExclusive("line", "offset", "func")
	return cmd
}

func (a *app) runExtract(cmd *cobra.Command, file string, f extractFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := a.openStore(f.store)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := a.services(ctx, store)
	if err != nil {
		return err
	}

	in := mcptools.ExtractContextInput{
		Path:     file,
		Line:     f.line,
		Column:   f.col,
		Function: f.function,
		Format:   f.format,
	}
	fl := cmd.Flags()
	if fl.Changed("offset") {
		in.Offset = &f.offset
	}
	if fl.Changed("depth") {
		in.MaxDepth = &f.depth
	}
	if fl.Changed("comments") {
		in.IncludeComments = &f.comments
	}
	if fl.Changed("imports") {
		in.IncludeImports = &f.imports
	}
	if fl.Changed("tests") {
		in.IncludeTests = &f.tests
	}

	out, err := svc.tools.Extract(ctx, in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.stdout, out.Document)
	return err
}
