package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/funcctx/internal/lang"
	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/resolve"
	"github.com/dusk-indust/funcctx/internal/source"
)

// run is the state of one Analyze call.
type run struct {
	*Analyzer
	ctx       context.Context
	cfg       model.ExtractionConfig
	resolver  *resolve.Resolver
	processed map[string]bool
	set       *model.ContextSet
}

// item is a queued function awaiting expansion.
type item struct {
	def   *source.Definition
	fc    *model.FunctionContext
	depth uint
}

// walk expands the graph breadth first, so every function is expanded at
// its minimal depth from the root.
func (r *run) walk(root *source.Definition) error {
	fc, err := r.visit(root)
	if err != nil || fc == nil {
		return err
	}
	queue := []item{{def: root, fc: fc}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if it.depth >= r.cfg.MaxDepth() {
			continue
		}
		if err := r.ctx.Err(); err != nil {
			return err
		}

		adapter, err := r.registry.For(it.def.Unit.Language)
		if err != nil {
			return err
		}
		for _, cs := range adapter.CallSites(it.def) {
			if cs.Receiver == source.ReceiverNone && !cs.Constructor && adapter.IsBuiltin(cs.Name) {
				continue
			}
			target, err := r.resolver.Resolve(r.ctx, it.def, cs)
			if err != nil {
				return err
			}
			if target == nil {
				r.logger.Debug("unresolved call",
					"call", cs.Text, "caller", it.def.Qualified, "path", it.def.Unit.Path, "line", cs.Line)
				continue
			}

			sig := model.Signature(target.Unit.Path, target.Qualified)
			if r.processed[sig] {
				// Known target: record the edge only.
				if dep := r.set.Get(sig); dep != nil {
					it.fc.AddDependency(dep)
				}
				continue
			}
			dep, err := r.visit(target)
			if err != nil {
				return err
			}
			if dep == nil {
				continue
			}
			it.fc.AddDependency(dep)
			queue = append(queue, item{def: target, fc: dep, depth: it.depth + 1})
		}
	}
	return nil
}

// visit marks d as processed and returns its context, or nil when d is
// rejected or not relevant.
func (r *run) visit(d *source.Definition) (*model.FunctionContext, error) {
	if d == nil || d.Unit == nil {
		return nil, nil
	}
	adapter, err := r.registry.For(d.Unit.Language)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Unit.Path, err)
	}
	sig := model.Signature(d.Unit.Path, d.Qualified)
	if r.processed[sig] {
		return nil, nil
	}
	r.processed[sig] = true

	if !adapter.IsFunctionDefinition(d) {
		return nil, nil
	}
	if d.Owner == "" && adapter.IsBuiltin(d.Name) {
		return nil, nil
	}
	owner := source.Classify(d.Unit.Path, d.Unit.Content)
	if owner.Rejected() {
		r.logger.Debug("skipping non-project function", "function", d.Qualified, "path", d.Unit.Path, "ownership", owner)
		return nil, nil
	}
	if !adapter.IsRelevant(d, r.cfg) {
		return nil, nil
	}

	fc := r.newContext(adapter, d, owner)
	r.set.Add(fc)
	return fc, nil
}

func (r *run) newContext(adapter lang.Adapter, d *source.Definition, owner source.Ownership) *model.FunctionContext {
	text := d.Text
	if !r.cfg.IncludeComments() {
		text = adapter.StripComments(text)
	}
	fc := &model.FunctionContext{
		Name:         d.Qualified,
		FileName:     d.Unit.Name(),
		FilePath:     d.Unit.Path,
		Language:     string(d.Unit.Language),
		SourceText:   text,
		PackageName:  adapter.PackageName(d.Unit),
		ProjectOwned: owner == source.OwnershipProject,
		StartLine:    d.StartLine,
		EndLine:      d.EndLine,
	}
	if r.cfg.IncludeImports() {
		fc.Imports = relevantImports(adapter.Imports(d.Unit), d.Text)
	}
	return fc
}

// relevantImports returns the import lines whose binding the function text
// mentions.
// Wildcard and dot imports are always kept since any name may come from
// them.
func relevantImports(imps []source.Import, text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, imp := range imps {
		if imp.Text == "" || seen[imp.Text] {
			continue
		}
		if imp.Wildcard || imp.Alias == "." || mentions(text, imp.Binding()) {
			seen[imp.Text] = true
			out = append(out, imp.Text)
		}
	}
	return out
}

// mentions reports whether word occurs in text as a whole identifier.
func mentions(text, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if (start == 0 || !isIdent(text[start-1])) && (end == len(text) || !isIdent(text[end])) {
			return true
		}
		from = start + 1
	}
}

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
