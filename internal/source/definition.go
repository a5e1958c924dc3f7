package source

// Kind classifies a Definition.
type Kind string

const (
	KindFunction    Kind = "function"
	KindMethod      Kind = "method"
	KindConstructor Kind = "constructor"
	KindClass       Kind = "class"
	KindInterface   Kind = "interface"
)

// Definition is a function, method or type found in a Unit. Definitions form
// a tree through Parent and Children; the tree is immutable after the
// adapter builds it.
type Definition struct {
	Unit      *Unit
	Name      string
	Qualified string
	Owner     string // enclosing class or receiver type
	Kind      Kind

	Start     int // includes decorators and annotations
	End       int
	BodyStart int
	StartLine int
	EndLine   int
	Text      string

	Decorators  []string
	Bases       []string          // superclasses, interfaces, embedded types
	Vars        map[string]string // variable or field name -> declared type
	Calls       []CallSite        // pre-collected by structured adapters
	Abstract    bool              // declared without a body
	ReceiverVar string            // Go method receiver name

	Parent   *Definition
	Children []*Definition
}

// IsCallable reports whether d is a function, method or constructor.
func (d *Definition) IsCallable() bool {
	switch d.Kind {
	case KindFunction, KindMethod, KindConstructor:
		return true
	}
	return false
}

// IsType reports whether d is a class or interface.
func (d *Definition) IsType() bool {
	return d.Kind == KindClass || d.Kind == KindInterface
}

// Contains reports whether offset falls inside d.
func (d *Definition) Contains(offset int) bool {
	return offset >= d.Start && offset <= d.End
}

// Header returns the text before the body.
func (d *Definition) Header() string {
	if d.BodyStart <= d.Start || d.BodyStart > d.End {
		return d.Text
	}
	return d.Text[:d.BodyStart-d.Start]
}

// Body returns the text from the body delimiter to the end.
func (d *Definition) Body() string {
	if d.BodyStart <= d.Start || d.BodyStart > d.End {
		return ""
	}
	return d.Text[d.BodyStart-d.Start:]
}

// Child returns the first direct child named name.
func (d *Definition) Child(name string) *Definition {
	for _, c := range d.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// EnclosingType returns the nearest ancestor class or interface.
func (d *Definition) EnclosingType() *Definition {
	for p := d.Parent; p != nil; p = p.Parent {
		if p.IsType() {
			return p
		}
	}
	return nil
}

// Lookup returns the value of a declared variable, searching d and then its
// enclosing definitions.
func (d *Definition) Lookup(name string) (string, bool) {
	for s := d; s != nil; s = s.Parent {
		if t, ok := s.Vars[name]; ok {
			return t, true
		}
	}
	return "", false
}

// Walk visits defs and their descendants in pre-order. Returning false from
// fn skips the children of that definition.
func Walk(defs []*Definition, fn func(*Definition) bool) {
	stack := make([]*Definition, 0, len(defs))
	for i := len(defs) - 1; i >= 0; i-- {
		stack = append(stack, defs[i])
	}
	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(d) {
			continue
		}
		for i := len(d.Children) - 1; i >= 0; i-- {
			stack = append(stack, d.Children[i])
		}
	}
}

// Innermost returns the deepest definition containing offset, or nil.
func Innermost(defs []*Definition, offset int) *Definition {
	var found *Definition
	level := defs
	for {
		var next *Definition
		for _, d := range level {
			if d.Contains(offset) {
				next = d
				break
			}
		}
		if next == nil {
			return found
		}
		found = next
		level = next.Children
	}
}

// ReceiverKind describes the receiver expression of a call.
type ReceiverKind int

const (
	ReceiverNone      ReceiverKind = iota // bare call
	ReceiverSelf                          // self., this., cls., Go receiver variable
	ReceiverSuper                         // super(). / super.
	ReceiverQualified                     // pkg.f, obj.m, Class.m
	ReceiverChained                       // call on an expression result
)

func (k ReceiverKind) String() string {
	switch k {
	case ReceiverSelf:
		return "self"
	case ReceiverSuper:
		return "super"
	case ReceiverQualified:
		return "qualified"
	case ReceiverChained:
		return "chained"
	}
	return "none"
}

// CallSite is one call expression inside a definition body.
type CallSite struct {
	Text        string
	Name        string
	Qualifier   string
	Receiver    ReceiverKind
	TypeHint    string // declared type of the receiver, when known
	Constructor bool
	Offset      int
	Line        int
}

// Import is one imported binding: From is the module, package or class path,
// Name the imported symbol (empty for whole-module imports) and Alias the
// local name when one is given.
type Import struct {
	From     string
	Name     string
	Alias    string
	Static   bool
	Wildcard bool
	Level    int // leading dots of a relative import
	Line     int
	Text     string
}

// Binding returns the identifier the import introduces in the file.
func (i Import) Binding() string {
	if i.Alias != "" {
		return i.Alias
	}
	if i.Name != "" {
		return i.Name
	}
	return i.From
}
