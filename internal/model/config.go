package model

import "fmt"

// Default extraction settings.
const (
	DefaultMaxDepth        uint = 3
	DefaultIncludeComments      = true
	DefaultIncludeImports       = true
	DefaultIncludeTests         = false
)

// ExtractionConfig controls a single extraction request. It is immutable once
// built; use NewExtractionConfig with options to derive a new value.
type ExtractionConfig struct {
	includeComments bool
	includeImports  bool
	includeTests    bool
	maxDepth        uint
}

// Option mutates an ExtractionConfig while it is being built.
type Option func(*ExtractionConfig)

// WithMaxDepth bounds the number of call edges followed from the root.
func WithMaxDepth(depth uint) Option {
	return func(c *ExtractionConfig) { c.maxDepth = depth }
}

// WithComments keeps comments in emitted source text when include is true.
func WithComments(include bool) Option {
	return func(c *ExtractionConfig) { c.includeComments = include }
}

// WithImports attaches the referenced import declarations to each context.
func WithImports(include bool) Option {
	return func(c *ExtractionConfig) { c.includeImports = include }
}

// WithTests allows test functions to be emitted.
func WithTests(include bool) Option {
	return func(c *ExtractionConfig) { c.includeTests = include }
}

// DefaultExtractionConfig returns the default configuration.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		includeComments: DefaultIncludeComments,
		includeImports:  DefaultIncludeImports,
		includeTests:    DefaultIncludeTests,
		maxDepth:        DefaultMaxDepth,
	}
}

// NewExtractionConfig applies opts on top of the defaults.
func NewExtractionConfig(opts ...Option) ExtractionConfig {
	cfg := DefaultExtractionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// With returns a copy of c with opts applied.
func (c ExtractionConfig) With(opts ...Option) ExtractionConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c ExtractionConfig) IncludeComments() bool { return c.includeComments }
func (c ExtractionConfig) IncludeImports() bool  { return c.includeImports }
func (c ExtractionConfig) IncludeTests() bool    { return c.includeTests }
func (c ExtractionConfig) MaxDepth() uint        { return c.maxDepth }

func (c ExtractionConfig) String() string {
	return fmt.Sprintf("maxDepth=%d comments=%t imports=%t tests=%t",
		c.maxDepth, c.includeComments, c.includeImports, c.includeTests)
}
