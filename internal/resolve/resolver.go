// Package resolve maps call sites to the definitions they invoke. Lookups run
// through four stages: local scope, current file, package siblings and
// imported modules. Method calls additionally search the receiver's class
// hierarchy.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/dusk-indust/funcctx/internal/lang"
	"github.com/dusk-indust/funcctx/internal/source"
)

// ErrParse marks a file the adapter could not parse. Such files are
// skipped by lookups.
var ErrParse = errors.New("parse failed")

// Resolver resolves call sites against an index. It holds no per-request
// state; all memoization lives in its Cache.
type Resolver struct {
	index        source.Index
	registry     *lang.Registry
	cache        *Cache
	logger       *slog.Logger
	includeTests bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache shares c with the resolver instead of a private cache.
func WithCache(c *Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithRegistry selects the adapters used to parse files.
func WithRegistry(reg *lang.Registry) Option {
	return func(r *Resolver) { r.registry = reg }
}

// WithLogger sets the logger used for skipped files.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithTests lets sibling and import lookups see Go test files.
func WithTests(include bool) Option {
	return func(r *Resolver) { r.includeTests = include }
}

// New returns a resolver over index.
func New(index source.Index, opts ...Option) *Resolver {
	r := &Resolver{index: index}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = lang.Default()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.cache == nil {
		// NewCache only fails for a non-positive size.
		r.cache, _ = NewCache(DefaultCacheSize)
	}
	return r
}

// Index returns the index the resolver reads from.
func (r *Resolver) Index() source.Index { return r.index }

// Registry returns the adapter registry.
func (r *Resolver) Registry() *lang.Registry { return r.registry }

// Definitions returns the unit at p and its definitions, parsed once per
// content version.
func (r *Resolver) Definitions(ctx context.Context, p string) (*source.Unit, []*source.Definition, error) {
	u, err := r.index.Unit(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	defs, err := r.UnitDefinitions(u)
	return u, defs, err
}

// UnitDefinitions returns the definitions of u, parsed once per content
// version.
func (r *Resolver) UnitDefinitions(u *source.Unit) ([]*source.Definition, error) {
	key := u.Key()
	if defs, ok := r.cache.definitions(key); ok {
		return defs, nil
	}
	a, err := r.registry.For(u.Language)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u.Path, err)
	}
	defs, err := a.Definitions(u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", u.Path, ErrParse, err)
	}
	r.cache.storeDefinitions(key, defs)
	return defs, nil
}

// Resolve returns the definition called by cs from caller, or nil when the
// call cannot be resolved. Errors are reserved for index failures.
func (r *Resolver) Resolve(ctx context.Context, caller *source.Definition, cs source.CallSite) (*source.Definition, error) {
	if caller == nil || caller.Unit == nil {
		return nil, nil
	}
	key := r.lookupKey(caller, cs)
	if d, ok := r.cache.lookup(key); ok {
		return d, nil
	}

	a, err := r.registry.For(caller.Unit.Language)
	if err != nil {
		return nil, err
	}
	s := &scope{Resolver: r, ctx: ctx, adapter: a, traits: a.Traits()}
	d := s.resolve(caller, cs)
	if s.err != nil {
		return nil, s.err
	}
	r.cache.storeLookup(key, d)
	return d, nil
}

func (r *Resolver) lookupKey(caller *source.Definition, cs source.CallSite) string {
	return fmt.Sprintf("%d|%s|%s@%d|%d|%s|%s|%s|%t|%t",
		r.index.Generation(), caller.Unit.Key(), caller.Qualified, caller.Start,
		cs.Receiver, cs.Qualifier, cs.TypeHint, cs.Name, cs.Constructor, r.includeTests)
}

// scope carries one Resolve call. The first index error is kept in err and
// stops further lookups.
type scope struct {
	*Resolver
	ctx     context.Context
	adapter lang.Adapter
	traits  lang.Traits
	err     error
}

func (s *scope) resolve(caller *source.Definition, cs source.CallSite) *source.Definition {
	switch cs.Receiver {
	case source.ReceiverSelf:
		return s.resolveSelf(caller, cs.Name, false)
	case source.ReceiverSuper:
		return s.resolveSelf(caller, cs.Name, true)
	case source.ReceiverQualified:
		return s.resolveQualified(caller, cs)
	case source.ReceiverChained:
		return s.guessMethod(caller.Unit, cs.Name)
	}
	if cs.Constructor {
		return s.constructorOf(s.lookupClass(caller.Unit, cs.Name))
	}
	return s.resolveName(caller, cs.Name)
}

// ---------------------------------------------------------------------------
// Unqualified calls
// ---------------------------------------------------------------------------

// resolveName runs the four lookup stages for a bare name.
func (s *scope) resolveName(caller *source.Definition, name string) *source.Definition {
	// Local scope: nested functions of enclosing definitions, and for
	// languages with an implicit receiver, the enclosing class hierarchy.
	for sc := caller; sc != nil; sc = sc.Parent {
		if sc.IsType() {
			if s.traits.ImplicitReceiver {
				if m := s.findMethod(sc, name, false); m != nil {
					return m
				}
			}
			continue
		}
		if c := callableChild(sc, name); c != nil {
			return c
		}
	}

	// Current file.
	defs, err := s.UnitDefinitions(caller.Unit)
	if err != nil {
		s.skip(caller.Unit.Path, err)
		return nil
	}
	if d := s.topLevel(defs, name); d != nil {
		return d
	}

	// Package siblings.
	if s.traits.PackageSiblings {
		for _, p := range s.siblings(caller.Unit) {
			if d := s.topLevelIn(p, name); d != nil {
				return d
			}
			if s.err != nil {
				return nil
			}
		}
	}

	// Imported modules.
	for _, imp := range s.adapter.Imports(caller.Unit) {
		symbol, ok := importedSymbol(imp, name)
		if !ok {
			continue
		}
		for _, p := range s.importFiles(imp, caller.Unit) {
			if imp.Static {
				// Java static imports name a class; the symbol is its member.
				_, cls := splitDotted(imp.From)
				if d := s.findMethod(s.typeIn(p, cls), symbol, false); d != nil {
					return d
				}
				continue
			}
			if d := s.topLevelIn(p, symbol); d != nil {
				return d
			}
		}
		if s.err != nil {
			return nil
		}
	}
	return nil
}

// importedSymbol reports whether imp brings name into scope and under which
// name the target module declares it.
func importedSymbol(imp source.Import, name string) (string, bool) {
	switch {
	case imp.Wildcard, imp.Alias == ".":
		return name, true
	case imp.Name != "" && imp.Binding() == name:
		return imp.Name, true
	}
	return "", false
}

// topLevel returns a free function named name, or the constructor of a
// class named name.
func (s *scope) topLevel(defs []*source.Definition, name string) *source.Definition {
	for _, d := range defs {
		if d.IsCallable() && d.Owner == "" && d.Name == name {
			return d
		}
	}
	for _, d := range defs {
		if d.IsType() && d.Name == name {
			if c := s.constructorOf(d); c != nil {
				return c
			}
		}
	}
	return nil
}

func (s *scope) topLevelIn(p, name string) *source.Definition {
	_, defs := s.load(p)
	return s.topLevel(defs, name)
}

func callableChild(d *source.Definition, name string) *source.Definition {
	for _, c := range d.Children {
		if c.IsCallable() && c.Name == name {
			return c
		}
	}
	return nil
}

// constructorOf returns the constructor declared by class, if any.
func (s *scope) constructorOf(class *source.Definition) *source.Definition {
	if class == nil {
		return nil
	}
	for _, c := range class.Children {
		if c.Kind == source.KindConstructor {
			return c
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Method calls
// ---------------------------------------------------------------------------

// resolveSelf resolves a call on self, this or a Go receiver. With super
// set the class itself is skipped and only its bases are searched.
func (s *scope) resolveSelf(caller *source.Definition, name string, super bool) *source.Definition {
	if t := caller.EnclosingType(); t != nil {
		return s.findMethod(t, name, super)
	}
	// Detached methods: the receiver names the type.
	for d := caller; d != nil; d = d.Parent {
		if d.Owner == "" {
			continue
		}
		if class := s.lookupClass(d.Unit, d.Owner); class != nil {
			return s.findMethod(class, name, super)
		}
		if !super && s.traits.DetachedMethods {
			// Named non-struct types such as func or slice types.
			return s.detachedMethod(d.Unit, d.Owner, name)
		}
		return nil
	}
	return nil
}

// findMethod searches class and its bases breadth first.
func (s *scope) findMethod(class *source.Definition, name string, skipSelf bool) *source.Definition {
	if class == nil {
		return nil
	}
	queue := []*source.Definition{class}
	seen := make(map[*source.Definition]bool)
	for len(queue) > 0 && s.err == nil {
		c := queue[0]
		queue = queue[1:]
		if seen[c] {
			continue
		}
		seen[c] = true
		if !skipSelf || c != class {
			if m := s.methodOf(c, name); m != nil {
				return m
			}
		}
		for _, b := range c.Bases {
			if bd := s.lookupClass(c.Unit, b); bd != nil {
				queue = append(queue, bd)
			}
		}
	}
	return nil
}

// methodOf returns the method name declared directly by class.
func (s *scope) methodOf(class *source.Definition, name string) *source.Definition {
	if m := callableChild(class, name); m != nil {
		return m
	}
	if !s.traits.DetachedMethods {
		return nil
	}
	return s.detachedMethod(class.Unit, class.Name, name)
}

// detachedMethod finds a method bound to owner anywhere in the package of
// unit.
func (s *scope) detachedMethod(unit *source.Unit, owner, name string) *source.Definition {
	paths := append([]string{unit.Path}, s.siblings(unit)...)
	for _, p := range paths {
		_, defs := s.load(p)
		for _, d := range defs {
			if d.IsCallable() && d.Owner == owner && d.Name == name {
				return d
			}
		}
	}
	return nil
}

// resolveQualified resolves obj.m(), pkg.f() and Class.m() calls.
func (s *scope) resolveQualified(caller *source.Definition, cs source.CallSite) *source.Definition {
	qual := cs.Qualifier

	// Receiver with a known declared type.
	unit, hint := caller.Unit, cs.TypeHint
	if hint == "" {
		unit, hint = s.chainType(caller, qual)
	}
	guess := hint == ""
	if hint != "" {
		if class := s.lookupClass(unit, hint); class != nil {
			if m := s.findMethod(class, cs.Name, false); m != nil {
				return m
			}
			// Interface receivers dispatch to an implementation.
			guess = class.Kind == source.KindInterface
		}
	}

	// Imported package, module or class.
	imported := false
	for _, imp := range s.adapter.Imports(caller.Unit) {
		if imp.Binding() != qual || imp.Wildcard {
			continue
		}
		imported = true
		for _, p := range s.importFiles(imp, caller.Unit) {
			if d := s.memberIn(p, imp, cs.Name); d != nil {
				return d
			}
		}
		if s.err != nil {
			return nil
		}
	}
	if imported {
		// Calls into packages outside the index stay unresolved.
		return nil
	}

	// Class name used as a qualifier: static methods, Cls.method(self).
	if class := s.lookupClass(caller.Unit, qual); class != nil {
		return s.findMethod(class, cs.Name, false)
	}

	if !guess {
		return nil
	}
	return s.guessMethod(caller.Unit, cs.Name)
}

// memberIn finds name in a file reached through imp: a free function of the
// module or a method of the imported class.
func (s *scope) memberIn(p string, imp source.Import, name string) *source.Definition {
	_, defs := s.load(p)
	if imp.Name != "" {
		for _, d := range defs {
			if d.IsType() && d.Name == imp.Name {
				return s.findMethod(d, name, false)
			}
		}
	}
	for _, d := range defs {
		if d.IsCallable() && d.Owner == "" && d.Name == name {
			return d
		}
	}
	return nil
}

// chainType infers the type of a dotted receiver such as s.repo by walking
// declared field types. It returns the unit the type name is relative to.
func (s *scope) chainType(caller *source.Definition, qual string) (*source.Unit, string) {
	parts := strings.Split(qual, ".")
	typ, ok := caller.Lookup(parts[0])
	if !ok {
		return caller.Unit, ""
	}
	unit := caller.Unit
	for _, field := range parts[1:] {
		class := s.lookupClass(unit, typ)
		if class == nil {
			return caller.Unit, ""
		}
		if typ, ok = class.Vars[field]; !ok {
			return caller.Unit, ""
		}
		unit = class.Unit
	}
	return unit, typ
}

// guessMethod resolves a method call on a receiver of unknown type when the
// project declares exactly one method of that name. Languages without
// GuessReceivers never guess.
func (s *scope) guessMethod(from *source.Unit, name string) *source.Definition {
	if !s.traits.GuessReceivers {
		return nil
	}
	paths, err := s.index.ListFiles(s.ctx, from.Language)
	if err != nil {
		s.fail(err)
		return nil
	}
	var found *source.Definition
	for _, p := range paths {
		if !s.visibleTest(p, from) {
			continue
		}
		_, defs := s.load(p)
		var dup bool
		source.Walk(defs, func(d *source.Definition) bool {
			if d.IsCallable() && d.Owner != "" && d.Name == name {
				if found != nil && found != d {
					dup = true
				}
				found = d
			}
			return !dup
		})
		if dup || s.err != nil {
			return nil
		}
	}
	return found
}

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

// lookupClass finds the type named name as seen from unit: the unit itself,
// its package siblings, then its imports. Dotted names are looked up through
// the import bound to their prefix.
func (s *scope) lookupClass(from *source.Unit, name string) *source.Definition {
	if from == nil || name == "" {
		return nil
	}
	if prefix, last := splitDotted(name); prefix != "" {
		for _, imp := range s.adapter.Imports(from) {
			if imp.Binding() != prefix {
				continue
			}
			for _, p := range s.importFiles(imp, from) {
				if d := s.typeIn(p, last); d != nil {
					return d
				}
			}
		}
		name = last
	}

	if d := s.typeIn(from.Path, name); d != nil {
		return d
	}
	if s.traits.PackageSiblings {
		for _, p := range s.siblings(from) {
			if d := s.typeIn(p, name); d != nil {
				return d
			}
		}
	}
	for _, imp := range s.adapter.Imports(from) {
		symbol, ok := importedSymbol(imp, name)
		if !ok {
			continue
		}
		for _, p := range s.importFiles(imp, from) {
			if d := s.typeIn(p, symbol); d != nil {
				return d
			}
		}
	}
	return nil
}

// typeIn returns the first type named name in the file at p, nested types
// included.
func (s *scope) typeIn(p, name string) *source.Definition {
	_, defs := s.load(p)
	var found *source.Definition
	source.Walk(defs, func(d *source.Definition) bool {
		if found != nil {
			return false
		}
		if d.IsType() && d.Name == name {
			found = d
		}
		return d.IsType()
	})
	return found
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// load parses p, logging and skipping files that cannot be read or parsed.
// Only index failures other than a missing file are kept as errors.
func (s *scope) load(p string) (*source.Unit, []*source.Definition) {
	if s.err != nil {
		return nil, nil
	}
	if err := s.ctx.Err(); err != nil {
		s.fail(err)
		return nil, nil
	}
	u, defs, err := s.Definitions(s.ctx, p)
	if err != nil {
		s.skip(p, err)
		return nil, nil
	}
	return u, defs
}

func (s *scope) skip(p string, err error) {
	if errors.Is(err, source.ErrNotFound) || errors.Is(err, lang.ErrUnsupportedLanguage) {
		s.logger.Debug("skipping file", "path", p, "error", err)
		return
	}
	if errors.Is(err, ErrParse) {
		s.logger.Warn("skipping unparsable file", "path", p, "error", err)
		return
	}
	s.fail(err)
}

func (s *scope) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// siblings lists the other files of from's package: same directory, same
// language and package name.
func (s *scope) siblings(from *source.Unit) []string {
	paths, err := s.index.ListFiles(s.ctx, from.Language)
	if err != nil {
		s.fail(err)
		return nil
	}
	pkg := s.adapter.PackageName(from)
	dir := from.Dir()
	var out []string
	for _, p := range paths {
		if p == from.Path || path.Dir(p) != dir || !s.visibleTest(p, from) {
			continue
		}
		u, _ := s.load(p)
		if u == nil || s.adapter.PackageName(u) != pkg {
			continue
		}
		out = append(out, p)
	}
	return out
}

// visibleTest reports whether p may be searched from a caller in from: Go
// test files are only visible to other test files or when tests are
// included.
func (s *scope) visibleTest(p string, from *source.Unit) bool {
	if !strings.HasSuffix(p, "_test.go") {
		return true
	}
	return s.includeTests || strings.HasSuffix(from.Path, "_test.go")
}

// importFiles maps imp to index files. File candidates are all kept in
// order; a directory candidate is used only if no more specific directory
// matched.
func (s *scope) importFiles(imp source.Import, from *source.Unit) []string {
	cands := s.adapter.ImportCandidates(imp, from)
	if len(cands) == 0 {
		return nil
	}
	all, err := s.index.ListFiles(s.ctx, from.Language)
	if err != nil {
		s.fail(err)
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	dirMatched := false
	for _, c := range cands {
		if c.Dir {
			if dirMatched {
				continue
			}
			for _, p := range all {
				if matchesSuffix(path.Dir(p), c.Path) && s.visibleTest(p, from) {
					add(p)
					dirMatched = true
				}
			}
			continue
		}
		for _, p := range all {
			if matchesSuffix(p, c.Path) {
				add(p)
			}
		}
	}
	return out
}

// matchesSuffix reports whether p equals want or ends with "/"+want.
func matchesSuffix(p, want string) bool {
	return p == want || strings.HasSuffix(p, "/"+want)
}

// splitDotted splits "a.b.C" into "a.b" and "C".
func splitDotted(name string) (prefix, last string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
