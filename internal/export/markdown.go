package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/source"
)

// Markdown renders one section per context in discovery order: a heading
// with the qualified name, file and package, the functions it calls, the
// imports it uses and its source in a fenced block.
type Markdown struct{}

func (Markdown) Format(set *model.ContextSet) (string, error) {
	var sb strings.Builder
	sb.WriteString("# Function Call Context\n\n")

	for _, fc := range set.All() {
		fmt.Fprintf(&sb, "## %s\n\n", fc.Name)
		fmt.Fprintf(&sb, "File: %s\n", fc.FilePath)
		fmt.Fprintf(&sb, "Package: %s\n\n", fc.PackageName)

		if deps := fc.DependencyNames(); len(deps) > 0 {
			sb.WriteString("Calls:\n")
			for _, d := range deps {
				fmt.Fprintf(&sb, "- `%s`\n", d)
			}
			sb.WriteString("\n")
		}

		if len(fc.Imports) > 0 {
			sb.WriteString("Imports:\n")
			for _, imp := range fc.Imports {
				fmt.Fprintf(&sb, "- `%s`\n", imp)
			}
			sb.WriteString("\n")
		}

		fence := fenceFor(fc.SourceText)
		fmt.Fprintf(&sb, "%s%s\n", fence, source.Language(fc.Language).FenceTag())
		sb.WriteString(fc.SourceText)
		if !strings.HasSuffix(fc.SourceText, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString(fence + "\n\n")
	}
	return sb.String(), nil
}

// fenceFor returns a backtick fence longer than any run inside text.
func fenceFor(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}
