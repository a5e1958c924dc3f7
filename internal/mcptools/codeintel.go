package mcptools

import "github.com/dusk-indust/funcctx/internal/graph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// ExtractContextInput is the input for the extract_context MCP tool.
type ExtractContextInput struct {
	Path            string `json:"path" jsonschema:"source file, relative to the project root or absolute"`
	Line            int    `json:"line,omitempty" jsonschema:"1-based cursor line"`
	Column          int    `json:"column,omitempty" jsonschema:"1-based cursor column (default: 1)"`
	Offset          *int   `json:"offset,omitempty" jsonschema:"0-based byte offset of the cursor, instead of line and column"`
	Function        string `json:"function,omitempty" jsonschema:"function to extract by bare or qualified name, e.g. Service.Run"`
	MaxDepth        *int   `json:"maxDepth,omitempty" jsonschema:"number of call edges to follow from the root (default: 3)"`
	IncludeComments *bool  `json:"includeComments,omitempty" jsonschema:"keep comments in the emitted source (default: true)"`
	IncludeImports  *bool  `json:"includeImports,omitempty" jsonschema:"attach the imports each function uses (default: true)"`
	IncludeTests    *bool  `json:"includeTests,omitempty" jsonschema:"follow calls into test functions (default: false)"`
	Format          string `json:"format,omitempty" jsonschema:"document format: markdown, json or mermaid (default: markdown)"`
}

// ExtractContextOutput is the result of the extract_context MCP tool.
type ExtractContextOutput struct {
	Root      string               `json:"root"`
	Functions []graph.FunctionNode `json:"functions"`
	Stats     graph.GraphStats     `json:"stats"`
	Document  string               `json:"document"`
}

// ListSymbolsInput is the input for the list_symbols MCP tool.
type ListSymbolsInput struct {
	Path string `json:"path" jsonschema:"source file, relative to the project root or absolute"`
	Kind string `json:"kind,omitempty" jsonschema:"filter by symbol kind: function, method, constructor, class, interface, type, enum"`
}

// ListSymbolsOutput is the result of the list_symbols MCP tool.
type ListSymbolsOutput struct {
	File    graph.FileNode     `json:"file"`
	Symbols []graph.SymbolNode `json:"symbols"`
	Imports []string           `json:"imports,omitempty"`
	Total   int                `json:"total"`
}

// QueryFunctionsInput is the input for the query_functions MCP tool.
type QueryFunctionsInput struct {
	Query string `json:"query" jsonschema:"substring of the function name, case-insensitive"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QueryFunctionsOutput is the result of the query_functions MCP tool.
type QueryFunctionsOutput struct {
	Functions []graph.FunctionNode `json:"functions"`
	Total     int                  `json:"total"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	Signature string `json:"signature" jsonschema:"function signature from extract_context, filePath::qualifiedName"`
	Direction string `json:"direction,omitempty" jsonschema:"callees (what it calls) or callers (what calls it). Default: callees"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}
