//go:build cgo

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureDir returns the go_project fixture. Tests run from cmd/funcctx/.
func fixtureDir(t *testing.T) string {
	t.Helper()
	abs, err := filepath.Abs("../../testdata/fixtures/go_project")
	require.NoError(t, err)
	return abs
}

// execute runs the root command and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// tempConfig writes a config that keeps the kuzu store out of the fixture.
func tempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "funcctx.yml")
	body := "storePath: " + filepath.Join(dir, "graph.kuzu") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestExtract_Markdown(t *testing.T) {
	out, err := execute(t, "extract", "service.go", "--func", "CreateUser", "--dir", fixtureDir(t))
	require.NoError(t, err)

	assert.Contains(t, out, "# Function Call Context\n")
	assert.Contains(t, out, "## UserService.CreateUser\n")
	assert.Contains(t, out, "## newUser\n")
	assert.Contains(t, out, "## memRepository.Save\n")
	assert.Contains(t, out, "```go\n")
}

func TestExtract_DepthAndFormat(t *testing.T) {
	out, err := execute(t, "extract", "service.go", "--line", "27", "--depth", "0",
		"--format", "mermaid", "--dir", fixtureDir(t))
	require.NoError(t, err)
	assert.Equal(t, "graph TD\n  subgraph N0[\"service.go\"]\n    N1[\"UserService.CreateUser\"]\n  end\n", out)
}

func TestExtract_Errors(t *testing.T) {
	_, err := execute(t, "extract", "service.go", "--dir", fixtureDir(t))
	assert.ErrorContains(t, err, "one of function, offset or line is required")

	_, err = execute(t, "extract", "service.go", "--func", "CreateUser", "--store", "redis", "--dir", fixtureDir(t))
	assert.ErrorContains(t, err, "unknown store")

	_, err = execute(t, "extract", "service.go", "--func", "x", "--line", "3", "--dir", fixtureDir(t))
	assert.Error(t, err, "--func and --line are mutually exclusive")

	_, err = execute(t, "extract")
	assert.Error(t, err)
}

func TestSymbols(t *testing.T) {
	out, err := execute(t, "symbols", "service.go", "--kind", "method", "--dir", fixtureDir(t))
	require.NoError(t, err)
	assert.Contains(t, out, "UserService.GetUser")
	assert.Contains(t, out, "UserService.CreateUser")
	assert.NotContains(t, out, "NewUserService")

	out, err = execute(t, "symbols", "model.go", "--json", "--dir", fixtureDir(t))
	require.NoError(t, err)
	assert.Contains(t, out, `"package": "project"`)
}

func TestDeps_PersistedGraph(t *testing.T) {
	cfg := tempConfig(t)

	out, err := execute(t, "deps", "Save", "--dir", fixtureDir(t), "--config", cfg)
	require.NoError(t, err)
	assert.Empty(t, out, "no graph persisted yet")

	_, err = execute(t, "extract", "service.go", "--func", "CreateUser", "--store", "kuzu",
		"--dir", fixtureDir(t), "--config", cfg)
	require.NoError(t, err)

	out, err = execute(t, "deps", "CreateUser", "--dir", fixtureDir(t), "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "`UserService.CreateUser` in `service.go:")
	assert.Contains(t, out, "service.go::UserService.CreateUser -> store.go::memRepository.Save")

	out, err = execute(t, "deps", "Save", "--direction", "callers", "--dir", fixtureDir(t), "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "**Callers of `store.go::memRepository.Save`:**")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}
