package lang

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/funcctx/internal/source"
)

// ErrUnsupportedLanguage is returned for a language without an adapter.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Registry maps languages to their adapters.
type Registry struct {
	adapters map[source.Language]Adapter
}

// NewRegistry returns a registry with the Go, Python and Java adapters.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[source.Language]Adapter{
			source.LangGo:     NewGoAdapter(),
			source.LangPython: NewPythonAdapter(),
			source.LangJava:   NewJavaAdapter(),
		},
	}
}

// For returns the adapter of l.
func (r *Registry) For(l source.Language) (Adapter, error) {
	a, ok := r.adapters[l]
	if !ok {
		if l == source.LangUnknown {
			return nil, ErrUnsupportedLanguage
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, l)
	}
	return a, nil
}

// ForPath returns the adapter for the file extension of p.
func (r *Registry) ForPath(p string) (Adapter, error) {
	a, err := r.For(source.LanguageForPath(p))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return a, nil
}

// Languages lists the registered languages in a stable order.
func (r *Registry) Languages() []source.Language {
	out := make([]source.Language, 0, len(r.adapters))
	for _, l := range source.SupportedLanguages {
		if _, ok := r.adapters[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

var defaultRegistry = NewRegistry()

// For returns the adapter of l from the default registry.
func For(l source.Language) (Adapter, error) {
	return defaultRegistry.For(l)
}

// Default returns the shared default registry.
func Default() *Registry {
	return defaultRegistry
}
