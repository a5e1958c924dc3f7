package graph

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Store holds the call graph of the last extraction.
// Implementations: KuzuStore (cgo builds), MemStore.
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Reset drops every node and edge, keeping the schema.
	Reset(ctx context.Context) error

	// Write operations.
	AddFile(ctx context.Context, node FileNode) error
	AddFunction(ctx context.Context, node FunctionNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations. Missing nodes are returned as nil without error.
	GetFile(ctx context.Context, path string) (*FileNode, error)
	GetFunction(ctx context.Context, id string) (*FunctionNode, error)
	QueryFunctions(ctx context.Context, query string, limit int) ([]FunctionNode, error)
	Functions(ctx context.Context) ([]FunctionNode, error) // by discovery order
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// Graph traversal over CALLS edges.
	GetDependencies(ctx context.Context, id string, direction Direction, maxDepth int) ([]DependencyChain, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionCallees Direction = "callees" // what does this call?
	DirectionCallers Direction = "callers" // what calls this?
)

// ParseDirection accepts callees/callers and the downstream/upstream
// aliases.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "callees", "downstream":
		return DirectionCallees, nil
	case "callers", "upstream":
		return DirectionCallers, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}
