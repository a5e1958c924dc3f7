package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/source"
)

// Load replaces the contents of store with the call graph of set: one
// FileNode per file, one FunctionNode per context, DEFINES edges from files
// to their functions and CALLS edges for every dependency. A file's LOC
// counts the lines of its extracted functions.
func Load(ctx context.Context, store Store, set *model.ContextSet) error {
	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}

	contexts := set.All()
	var files []FileNode
	byPath := make(map[string]int)
	for _, fc := range contexts {
		i, ok := byPath[fc.FilePath]
		if !ok {
			i = len(files)
			byPath[fc.FilePath] = i
			files = append(files, FileNode{
				Path:     fc.FilePath,
				Language: source.Language(fc.Language),
				Package:  fc.PackageName,
			})
		}
		files[i].LOC += countLOC(fc.SourceText)
	}
	for _, f := range files {
		if err := store.AddFile(ctx, f); err != nil {
			return fmt.Errorf("add file %s: %w", f.Path, err)
		}
	}

	for i, fc := range contexts {
		if err := store.AddFunction(ctx, FunctionFor(fc, i)); err != nil {
			return fmt.Errorf("add function %s: %w", fc.Signature(), err)
		}
		if err := store.AddEdge(ctx, Edge{SourceID: fc.FilePath, TargetID: fc.Signature(), Kind: EdgeKindDefines}); err != nil {
			return fmt.Errorf("add defines edge: %w", err)
		}
	}

	for _, fc := range contexts {
		for _, dep := range fc.Dependencies() {
			edge := Edge{SourceID: fc.Signature(), TargetID: dep.Signature(), Kind: EdgeKindCalls}
			if err := store.AddEdge(ctx, edge); err != nil {
				return fmt.Errorf("add calls edge %s -> %s: %w", edge.SourceID, edge.TargetID, err)
			}
		}
	}
	return nil
}

// FunctionFor converts a context discovered at position order.
func FunctionFor(fc *model.FunctionContext, order int) FunctionNode {
	return FunctionNode{
		ID:           fc.Signature(),
		Name:         fc.Name,
		FilePath:     fc.FilePath,
		Language:     source.Language(fc.Language),
		Package:      fc.PackageName,
		StartLine:    fc.StartLine,
		EndLine:      fc.EndLine,
		ProjectOwned: fc.ProjectOwned,
		Order:        order,
	}
}

// countLOC counts lines, including a final line without a newline.
func countLOC(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(text, "\n"), "\n") + 1
}
