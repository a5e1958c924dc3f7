// Package export renders extracted function contexts as documents.
package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/funcctx/internal/model"
)

// Formatter renders a context set into a document.
type Formatter interface {
	Format(set *model.ContextSet) (string, error)
}

// Formats lists the names accepted by ForName.
var Formats = []string{"markdown", "json", "mermaid"}

// ForName returns the formatter registered under name. An empty name
// selects Markdown.
func ForName(name string) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "markdown", "md":
		return Markdown{}, nil
	case "json":
		return JSON{Indent: true}, nil
	case "mermaid":
		return Mermaid{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want one of %s)", name, strings.Join(Formats, ", "))
}
