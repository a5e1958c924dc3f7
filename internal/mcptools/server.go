package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewCodeIntelMCPServer creates an MCP server with the function context tools
// registered.
func NewCodeIntelMCPServer(svc *CodeIntelService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "funcctx",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "extract_context",
		Description: "Extract a function and the project functions it transitively calls, up to maxDepth call edges, as a Markdown, JSON or Mermaid document. Select the function by cursor (line/column or offset) or by name. The resulting call graph is kept for query_functions and get_dependencies.",
	}, svc.ExtractContext)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_symbols",
		Description: "List the functions, methods and types declared in a source file, with line ranges. Optionally filter by symbol kind.",
	}, svc.ListSymbols)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_functions",
		Description: "Search the functions of the last extraction by name substring.",
	}, svc.QueryFunctions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse the call graph of the last extraction from a function signature, towards callees or callers. Returns call chains up to the specified depth.",
	}, svc.GetDependencies)

	return server
}

// RunMCPServer starts an HTTP server exposing the MCP tools over the
// streamable HTTP transport.
func RunMCPServer(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
