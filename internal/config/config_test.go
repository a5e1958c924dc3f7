package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/resolve"
	"github.com/dusk-indust/funcctx/internal/source"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &ProjectConfig{}, cfg)
	assert.Equal(t, model.DefaultExtractionConfig(), cfg.Extraction())
	assert.Equal(t, resolve.DefaultCacheSize, cfg.ResolverCacheSize())
}

func TestLoad_YML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "funcctx.yml", `
maxDepth: 5
includeComments: false
languages: [go, py]
excludeDirs: [build]
exclude: ["**/*_mock.go"]
cacheSize: 128
store: kuzu
`)
	cfg, err := Load(dir)
	require.NoError(t, err)

	ext := cfg.Extraction()
	assert.Equal(t, uint(5), ext.MaxDepth())
	assert.False(t, ext.IncludeComments())
	assert.True(t, ext.IncludeImports(), "unset fields keep defaults")
	assert.False(t, ext.IncludeTests())
	assert.Equal(t, 128, cfg.ResolverCacheSize())
	assert.Equal(t, "kuzu", cfg.Store)

	opts, err := cfg.IndexOptions()
	require.NoError(t, err)
	assert.Equal(t, []source.Language{source.LangGo, source.LangPython}, opts.Languages)
	assert.Equal(t, []string{"build"}, opts.ExcludeDirs)
	assert.Equal(t, []string{"**/*_mock.go"}, opts.Excludes)
}

func TestLoad_YAMLFallback(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "funcctx.yaml", "includeTests: true\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, cfg.Extraction().IncludeTests())
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "funcctx.yml", "maxDepth: [1, 2\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "funcctx.yml")
}

func TestLoad_NegativeCacheSize(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "funcctx.yml", "cacheSize: -1\n")

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestExtraction_OptionsOverrideFile(t *testing.T) {
	depth := uint(7)
	cfg := &ProjectConfig{MaxDepth: &depth}

	ext := cfg.Extraction(model.WithMaxDepth(1), model.WithTests(true))
	assert.Equal(t, uint(1), ext.MaxDepth())
	assert.True(t, ext.IncludeTests())
}

func TestIndexOptions_UnknownLanguage(t *testing.T) {
	cfg := &ProjectConfig{Languages: []string{"go", "cobol"}}
	_, err := cfg.IndexOptions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cobol")
}

func TestGraphStorePath(t *testing.T) {
	root := filepath.Join("srv", "project")
	assert.Equal(t, filepath.Join(root, ".funcctx", "graph.kuzu"), (&ProjectConfig{}).GraphStorePath(root))
	assert.Equal(t, filepath.Join(root, "db"), (&ProjectConfig{StorePath: "db"}).GraphStorePath(root))

	abs := filepath.Join(t.TempDir(), "g")
	assert.Equal(t, abs, (&ProjectConfig{StorePath: abs}).GraphStorePath(root))
}
