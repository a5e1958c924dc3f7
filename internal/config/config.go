// Package config loads project settings from funcctx.yml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/resolve"
	"github.com/dusk-indust/funcctx/internal/source"
)

// FileNames are tried in order by Load.
var FileNames = []string{"funcctx.yml", "funcctx.yaml"}

// DefaultStorePath is where the kuzu graph store lives, relative to the
// project root.
const DefaultStorePath = ".funcctx/graph.kuzu"

// ProjectConfig holds project-level settings loaded from funcctx.yml.
// Unset extraction fields keep the model defaults.
type ProjectConfig struct {
	MaxDepth        *uint    `yaml:"maxDepth,omitempty"`
	IncludeComments *bool    `yaml:"includeComments,omitempty"`
	IncludeImports  *bool    `yaml:"includeImports,omitempty"`
	IncludeTests    *bool    `yaml:"includeTests,omitempty"`
	Languages       []string `yaml:"languages,omitempty"`
	ExcludeDirs     []string `yaml:"excludeDirs,omitempty"`
	Exclude         []string `yaml:"exclude,omitempty"`
	CacheSize       int      `yaml:"cacheSize,omitempty"`
	Store           string   `yaml:"store,omitempty"` // memory or kuzu
	StorePath       string   `yaml:"storePath,omitempty"`
}

// Load attempts to read funcctx.yml or funcctx.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range FileNames {
		cfg, err := LoadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return &ProjectConfig{}, nil
}

// LoadFile reads one config file.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("parse %s: cacheSize must not be negative", path)
	}
	return &cfg, nil
}

// Extraction returns the model defaults overridden by the file values and
// then by opts.
func (c *ProjectConfig) Extraction(opts ...model.Option) model.ExtractionConfig {
	var base []model.Option
	if c.MaxDepth != nil {
		base = append(base, model.WithMaxDepth(*c.MaxDepth))
	}
	if c.IncludeComments != nil {
		base = append(base, model.WithComments(*c.IncludeComments))
	}
	if c.IncludeImports != nil {
		base = append(base, model.WithImports(*c.IncludeImports))
	}
	if c.IncludeTests != nil {
		base = append(base, model.WithTests(*c.IncludeTests))
	}
	return model.NewExtractionConfig(append(base, opts...)...)
}

// IndexOptions converts the file filters into FileIndex options.
func (c *ProjectConfig) IndexOptions() (source.FileIndexOptions, error) {
	opts := source.FileIndexOptions{
		Excludes:    c.Exclude,
		ExcludeDirs: c.ExcludeDirs,
	}
	for _, name := range c.Languages {
		lang, ok := source.ParseLanguage(name)
		if !ok {
			return opts, fmt.Errorf("unknown language %q in config", name)
		}
		opts.Languages = append(opts.Languages, lang)
	}
	return opts, nil
}

// ResolverCacheSize returns CacheSize or the resolver default.
func (c *ProjectConfig) ResolverCacheSize() int {
	if c.CacheSize > 0 {
		return c.CacheSize
	}
	return resolve.DefaultCacheSize
}

// GraphStorePath returns the kuzu store location under root.
func (c *ProjectConfig) GraphStorePath(root string) string {
	p := c.StorePath
	if p == "" {
		p = DefaultStorePath
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
