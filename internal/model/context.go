package model

// FunctionContext is one node of the extracted dependency graph.
type FunctionContext struct {
	Name         string   `json:"name"` // qualified: Class.method, Recv.Method, outer.inner
	FileName     string   `json:"fileName"`
	FilePath     string   `json:"filePath"`
	Language     string   `json:"language"`
	SourceText   string   `json:"sourceText"`
	PackageName  string   `json:"packageName"`
	ProjectOwned bool     `json:"projectOwned"`
	StartLine    int      `json:"startLine"`
	EndLine      int      `json:"endLine"`
	Imports      []string `json:"imports,omitempty"`

	deps    []*FunctionContext
	depSigs map[string]struct{}
}

// Signature returns the dedup key of a function: filePath::qualifiedName.
func Signature(filePath, name string) string {
	return filePath + "::" + name
}

// Signature returns the dedup key of fc.
func (fc *FunctionContext) Signature() string {
	return Signature(fc.FilePath, fc.Name)
}

// AddDependency records that fc calls dep. Self references and duplicates
// are ignored. It reports whether dep was added.
func (fc *FunctionContext) AddDependency(dep *FunctionContext) bool {
	if dep == nil || dep == fc {
		return false
	}
	sig := dep.Signature()
	if sig == fc.Signature() {
		return false
	}
	if fc.depSigs == nil {
		fc.depSigs = make(map[string]struct{})
	}
	if _, ok := fc.depSigs[sig]; ok {
		return false
	}
	fc.depSigs[sig] = struct{}{}
	fc.deps = append(fc.deps, dep)
	return true
}

// Dependencies returns the callees of fc in discovery order.
func (fc *FunctionContext) Dependencies() []*FunctionContext {
	out := make([]*FunctionContext, len(fc.deps))
	copy(out, fc.deps)
	return out
}

// DependencyNames returns the qualified names of the callees of fc.
func (fc *FunctionContext) DependencyNames() []string {
	names := make([]string, 0, len(fc.deps))
	for _, d := range fc.deps {
		names = append(names, d.Name)
	}
	return names
}

// ContextSet is an insertion-ordered set of function contexts keyed by
// signature.
type ContextSet struct {
	order []*FunctionContext
	index map[string]*FunctionContext
}

// NewContextSet returns an empty set.
func NewContextSet() *ContextSet {
	return &ContextSet{index: make(map[string]*FunctionContext)}
}

// Add appends fc unless a context with the same signature is present.
func (s *ContextSet) Add(fc *FunctionContext) bool {
	sig := fc.Signature()
	if _, ok := s.index[sig]; ok {
		return false
	}
	s.index[sig] = fc
	s.order = append(s.order, fc)
	return true
}

// Get returns the context for sig, or nil.
func (s *ContextSet) Get(sig string) *FunctionContext {
	return s.index[sig]
}

// Contains reports whether sig is in the set.
func (s *ContextSet) Contains(sig string) bool {
	_, ok := s.index[sig]
	return ok
}

// Len returns the number of contexts.
func (s *ContextSet) Len() int {
	return len(s.order)
}

// All returns the contexts in first-discovery order.
func (s *ContextSet) All() []*FunctionContext {
	out := make([]*FunctionContext, len(s.order))
	copy(out, s.order)
	return out
}

// Names returns the qualified names in first-discovery order.
func (s *ContextSet) Names() []string {
	names := make([]string, 0, len(s.order))
	for _, fc := range s.order {
		names = append(names, fc.Name)
	}
	return names
}

// Root returns the first context, which is the analysis root, or nil.
func (s *ContextSet) Root() *FunctionContext {
	if len(s.order) == 0 {
		return nil
	}
	return s.order[0]
}
