package graph

import "github.com/dusk-indust/funcctx/internal/source"

// --- Enums ---

// SymbolKind classifies symbols in a file outline.
type SymbolKind string

const (
	SymbolKindFunction    SymbolKind = "function"
	SymbolKindMethod      SymbolKind = "method"
	SymbolKindConstructor SymbolKind = "constructor"
	SymbolKindClass       SymbolKind = "class"
	SymbolKindInterface   SymbolKind = "interface"
	SymbolKindType        SymbolKind = "type"
	SymbolKindEnum        SymbolKind = "enum"
)

// EdgeKind classifies relationships between nodes.
type EdgeKind string

const (
	EdgeKindDefines EdgeKind = "DEFINES" // file path -> function ID
	EdgeKindCalls   EdgeKind = "CALLS"   // function ID -> function ID
)

// --- Models ---

// FileNode represents a source file holding extracted functions.
type FileNode struct {
	Path     string          `json:"path"`
	Language source.Language `json:"language"`
	Package  string          `json:"package"`
	LOC      int             `json:"loc"`
}

// FunctionNode is one extracted function. ID is its signature,
// "filePath::qualifiedName".
type FunctionNode struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	FilePath     string          `json:"filePath"`
	Language     source.Language `json:"language"`
	Package      string          `json:"package"`
	StartLine    int             `json:"startLine"`
	EndLine      int             `json:"endLine"`
	ProjectOwned bool            `json:"projectOwned"`
	Order        int             `json:"order"` // discovery order, root is 0
}

// SymbolNode is one entry of a file outline.
type SymbolNode struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Container string     `json:"container,omitempty"` // enclosing class or receiver type
	Exported  bool       `json:"exported"`
	FilePath  string     `json:"filePath"`
	StartLine int        `json:"startLine"`
	EndLine   int        `json:"endLine"`
}

// QualifiedName joins Container and Name the way FunctionNode names do.
func (s SymbolNode) QualifiedName() string {
	if s.Container == "" {
		return s.Name
	}
	return s.Container + "." + s.Name
}

// Edge represents a relationship between two nodes.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// GraphStats summarizes a stored call graph.
type GraphStats struct {
	FileCount     int `json:"fileCount"`
	FunctionCount int `json:"functionCount"`
	EdgeCount     int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of function IDs forming a call path.
type DependencyChain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}
