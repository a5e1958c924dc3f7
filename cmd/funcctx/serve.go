package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/funcctx/internal/mcptools"
	"github.com/dusk-indust/funcctx/internal/watch"
)

type serveFlags struct {
	addr  string
	stdio bool
	watch bool
	store string
}

func newServeCmd(a *app) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction tools over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx, f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().BoolVar(&f.stdio, "stdio", false, "serve on stdin/stdout instead of HTTP")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "invalidate cached sources when files change")
	cmd.Flags().StringVar(&f.store, "store", "", "graph store: memory or kuzu")
	return cmd
}

func (a *app) runServe(ctx context.Context, f serveFlags) error {
	store, err := a.openStore(f.store)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := a.services(ctx, store)
	if err != nil {
		return err
	}

	if err := svc.index.Warm(ctx); err != nil {
		return err
	}

	if f.watch {
		w, err := watch.New(svc.index, watch.WithCache(svc.cache), watch.WithLogger(a.logger))
		if err != nil {
			return err
		}
		defer w.Stop()
		events, err := w.Start(ctx)
		if err != nil {
			return err
		}
		go func() {
			for ev := range events {
				a.logger.Info("source changed", "path", ev.Path, "op", ev.Op)
			}
		}()
	}

	server := mcptools.NewCodeIntelMCPServer(svc.tools)
	if f.stdio {
		a.logger.Info("serving MCP on stdio", "root", a.rootDir)
		return mcptools.RunMCPServerStdio(ctx, server)
	}
	a.logger.Info("serving MCP over HTTP", "addr", f.addr, "root", a.rootDir)
	return mcptools.RunMCPServer(ctx, server, f.addr)
}
