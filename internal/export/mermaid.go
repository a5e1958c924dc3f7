package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/funcctx/internal/graph"
	"github.com/dusk-indust/funcctx/internal/model"
)

// Mermaid renders the call graph of a context set as a Mermaid diagram.
type Mermaid struct{}

func (Mermaid) Format(set *model.ContextSet) (string, error) {
	ctx := context.Background()
	store := graph.NewMemStore()
	defer store.Close()
	if err := graph.Load(ctx, store, set); err != nil {
		return "", err
	}
	return GenerateMermaid(ctx, store)
}

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Functions are grouped by file; CALLS edges become arrows.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	functions, err := store.Functions(ctx)
	if err != nil {
		return "", fmt.Errorf("get functions: %w", err)
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	// Group functions by file, files in order of their first function.
	var files []string
	byFile := make(map[string][]graph.FunctionNode)
	for _, fn := range functions {
		if _, ok := byFile[fn.FilePath]; !ok {
			files = append(files, fn.FilePath)
		}
		byFile[fn.FilePath] = append(byFile[fn.FilePath], fn)
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, file := range files {
		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID(file+"_file"), label(shortPath(file))))
		for _, fn := range byFile[file] {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(fn.ID), label(fn.Name)))
		}
		sb.WriteString("  end\n")
	}

	for _, e := range edges {
		if e.Kind != graph.EdgeKindCalls {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(e.SourceID), getID(e.TargetID)))
	}

	return sb.String(), nil
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// label escapes quotes for use inside a Mermaid node label.
func label(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
