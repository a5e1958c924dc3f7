package export

import (
	"encoding/json"
	"fmt"

	"github.com/dusk-indust/funcctx/internal/model"
)

// ContextExport is the top-level JSON export structure.
type ContextExport struct {
	Root      string           `json:"root,omitempty"`
	Functions []FunctionExport `json:"functions"`
}

// FunctionExport describes one extracted function. Dependencies are
// signatures of other entries.
type FunctionExport struct {
	Signature    string   `json:"signature"`
	Name         string   `json:"name"`
	FilePath     string   `json:"filePath"`
	Language     string   `json:"language"`
	Package      string   `json:"package,omitempty"`
	StartLine    int      `json:"startLine"`
	EndLine      int      `json:"endLine"`
	ProjectOwned bool     `json:"projectOwned"`
	Imports      []string `json:"imports,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Source       string   `json:"source"`
}

// ExportContexts builds a ContextExport in discovery order.
func ExportContexts(set *model.ContextSet) *ContextExport {
	out := &ContextExport{Functions: []FunctionExport{}}
	if root := set.Root(); root != nil {
		out.Root = root.Signature()
	}
	for _, fc := range set.All() {
		fe := FunctionExport{
			Signature:    fc.Signature(),
			Name:         fc.Name,
			FilePath:     fc.FilePath,
			Language:     fc.Language,
			Package:      fc.PackageName,
			StartLine:    fc.StartLine,
			EndLine:      fc.EndLine,
			ProjectOwned: fc.ProjectOwned,
			Imports:      fc.Imports,
			Source:       fc.SourceText,
		}
		for _, dep := range fc.Dependencies() {
			fe.Dependencies = append(fe.Dependencies, dep.Signature())
		}
		out.Functions = append(out.Functions, fe)
	}
	return out
}

// JSON renders ExportContexts output.
type JSON struct {
	Indent bool
}

func (j JSON) Format(set *model.ContextSet) (string, error) {
	var (
		data []byte
		err  error
	)
	if j.Indent {
		data, err = json.MarshalIndent(ExportContexts(set), "", "  ")
	} else {
		data, err = json.Marshal(ExportContexts(set))
	}
	if err != nil {
		return "", fmt.Errorf("marshal contexts: %w", err)
	}
	return string(data) + "\n", nil
}
