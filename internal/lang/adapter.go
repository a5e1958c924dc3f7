// Package lang holds the per-language adapters that locate definitions,
// extract bodies and enumerate call sites. Adapters are selected through a
// closed Registry keyed by source.Language.
package lang

import (
	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/source"
)

// Adapter is the language contract used by the resolver and the analyzer.
// Implementations are stateless and safe for concurrent use.
type Adapter interface {
	Language() source.Language

	// Traits describes how calls are scoped in the language.
	Traits() Traits

	// Definitions returns the top-level definitions of u in source order with
	// nested definitions attached as children.
	Definitions(u *source.Unit) ([]*source.Definition, error)

	// IsFunctionDefinition reports whether d is a function or method.
	IsFunctionDefinition(d *source.Definition) bool

	// IsDefinitionText reports whether text starts a function definition.
	IsDefinitionText(text string) bool

	// ExtractName returns the name declared by a definition header.
	ExtractName(text string) string

	// ExtractSignature returns the definition text up to the body delimiter.
	ExtractSignature(text string) string

	// ExtractBody returns the full definition starting at offset start of
	// content. Malformed input yields the best-effort text to the end.
	ExtractBody(content string, start int) string

	// StripComments removes comments, keeping string literals intact.
	StripComments(text string) string

	// CallSites lists the calls made directly in the body of d, in source
	// order. Calls inside nested definitions belong to those definitions.
	CallSites(d *source.Definition) []source.CallSite

	// ExtractCallName returns the called identifier of a call expression,
	// qualifier stripped to its last segment except for self and super.
	ExtractCallName(callText string) string

	// IsBuiltin reports whether name is a language builtin that is never
	// resolved.
	IsBuiltin(name string) bool

	// IsRelevant reports whether d is worth emitting under cfg.
	IsRelevant(d *source.Definition, cfg model.ExtractionConfig) bool

	// Imports lists the import bindings of u.
	Imports(u *source.Unit) []source.Import

	// PackageName returns the package or module name of u.
	PackageName(u *source.Unit) string

	// ImportCandidates maps an import to index paths that may define it,
	// most specific first.
	ImportCandidates(imp source.Import, from *source.Unit) []Candidate
}

// Traits captures the scoping rules the resolver needs per language.
type Traits struct {
	// ImplicitReceiver: a bare call may target a method of the enclosing
	// class hierarchy.
	ImplicitReceiver bool
	// PackageSiblings: files in the same directory and package see each
	// other's top-level functions without an import.
	PackageSiblings bool
	// GuessReceivers: a method call on a receiver of unknown type resolves
	// when exactly one candidate method exists.
	GuessReceivers bool
	// NestedFunctions: functions may be declared inside other functions.
	NestedFunctions bool
	// DetachedMethods: methods are declared outside the type body and bound
	// to it by receiver, anywhere in the package.
	DetachedMethods bool
	// ConstructorName names the constructor method of a class, if any.
	ConstructorName string
}

// Candidate is a path an import may resolve to. Dir marks package
// directories (Go packages, Java wildcard imports).
type Candidate struct {
	Path string
	Dir  bool
}
