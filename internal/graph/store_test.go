package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/funcctx/internal/model"
)

// sampleSet builds main -> helper, main -> util, helper -> util across two
// files.
func sampleSet() *model.ContextSet {
	main := &model.FunctionContext{
		Name: "main", FileName: "a.go", FilePath: "a.go", Language: "go",
		SourceText:  "func main() {\n\thelper()\n\tutil()\n}",
		PackageName: "main", ProjectOwned: true, StartLine: 3, EndLine: 6,
	}
	helper := &model.FunctionContext{
		Name: "helper", FileName: "b.go", FilePath: "b.go", Language: "go",
		SourceText:  "func helper() {\n\tutil()\n}\n",
		PackageName: "main", ProjectOwned: true, StartLine: 1, EndLine: 3,
	}
	util := &model.FunctionContext{
		Name: "util", FileName: "b.go", FilePath: "b.go", Language: "go",
		SourceText:  "func util() {}",
		PackageName: "main", StartLine: 5, EndLine: 5,
	}
	main.AddDependency(helper)
	main.AddDependency(util)
	helper.AddDependency(util)

	set := model.NewContextSet()
	set.Add(main)
	set.Add(helper)
	set.Add(util)
	return set
}

// chainTips returns the last node of each chain.
func chainTips(chains []DependencyChain) []string {
	var out []string
	for _, c := range chains {
		out = append(out, c.Nodes[len(c.Nodes)-1])
	}
	return out
}

// testStoreContract runs the behavior every Store implementation shares.
func testStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	loaded := func(t *testing.T) Store {
		t.Helper()
		s := open(t)
		require.NoError(t, Load(ctx, s, sampleSet()))
		return s
	}

	t.Run("Stats", func(t *testing.T) {
		s := loaded(t)
		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, &GraphStats{FileCount: 2, FunctionCount: 3, EdgeCount: 6}, stats)
	})

	t.Run("GetFile", func(t *testing.T) {
		s := loaded(t)
		f, err := s.GetFile(ctx, "b.go")
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, FileNode{Path: "b.go", Language: "go", Package: "main", LOC: 4}, *f)

		missing, err := s.GetFile(ctx, "nope.go")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("GetFunction", func(t *testing.T) {
		s := loaded(t)
		fn, err := s.GetFunction(ctx, "a.go::main")
		require.NoError(t, err)
		require.NotNil(t, fn)
		assert.Equal(t, FunctionNode{
			ID: "a.go::main", Name: "main", FilePath: "a.go", Language: "go",
			Package: "main", StartLine: 3, EndLine: 6, ProjectOwned: true, Order: 0,
		}, *fn)

		util, err := s.GetFunction(ctx, "b.go::util")
		require.NoError(t, err)
		require.NotNil(t, util)
		assert.False(t, util.ProjectOwned)
		assert.Equal(t, 2, util.Order)

		missing, err := s.GetFunction(ctx, "b.go::nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("FunctionsInDiscoveryOrder", func(t *testing.T) {
		s := loaded(t)
		fns, err := s.Functions(ctx)
		require.NoError(t, err)
		var ids []string
		for _, fn := range fns {
			ids = append(ids, fn.ID)
		}
		assert.Equal(t, []string{"a.go::main", "b.go::helper", "b.go::util"}, ids)
	})

	t.Run("QueryFunctions", func(t *testing.T) {
		s := loaded(t)
		got, err := s.QueryFunctions(ctx, "EL", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "helper", got[0].Name)

		limited, err := s.QueryFunctions(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, limited, 2)
		assert.Equal(t, "main", limited[0].Name)
		assert.Equal(t, "helper", limited[1].Name)

		all, err := s.QueryFunctions(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, all, 3, "an empty query matches every function")

		none, err := s.QueryFunctions(ctx, "zzz", 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("GetAllEdges", func(t *testing.T) {
		s := loaded(t)
		edges, err := s.GetAllEdges(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []Edge{
			{SourceID: "a.go", TargetID: "a.go::main", Kind: EdgeKindDefines},
			{SourceID: "b.go", TargetID: "b.go::helper", Kind: EdgeKindDefines},
			{SourceID: "b.go", TargetID: "b.go::util", Kind: EdgeKindDefines},
			{SourceID: "a.go::main", TargetID: "b.go::helper", Kind: EdgeKindCalls},
			{SourceID: "a.go::main", TargetID: "b.go::util", Kind: EdgeKindCalls},
			{SourceID: "b.go::helper", TargetID: "b.go::util", Kind: EdgeKindCalls},
		}, edges)
	})

	t.Run("GetDependencies", func(t *testing.T) {
		s := loaded(t)

		callees, err := s.GetDependencies(ctx, "a.go::main", DirectionCallees, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"b.go::helper", "b.go::util"}, chainTips(callees))
		for _, c := range callees {
			assert.Equal(t, 1, c.Depth, "util is reached directly before via helper")
		}

		callers, err := s.GetDependencies(ctx, "b.go::util", DirectionCallers, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.go::main", "b.go::helper"}, chainTips(callers))

		chain, err := s.GetDependencies(ctx, "b.go::helper", DirectionCallers, 1)
		require.NoError(t, err)
		require.Len(t, chain, 1)
		assert.Equal(t, []string{"b.go::helper", "a.go::main"}, chain[0].Nodes)

		none, err := s.GetDependencies(ctx, "a.go::main", DirectionCallers, 3)
		require.NoError(t, err)
		assert.Empty(t, none)

		zero, err := s.GetDependencies(ctx, "a.go::main", DirectionCallees, 0)
		require.NoError(t, err)
		assert.Nil(t, zero)
	})

	t.Run("ResetAndReload", func(t *testing.T) {
		s := loaded(t)
		require.NoError(t, s.Reset(ctx))
		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, &GraphStats{}, stats)

		require.NoError(t, Load(ctx, s, sampleSet()))
		require.NoError(t, Load(ctx, s, sampleSet()), "Load replaces earlier contents")
		stats, err = s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.FunctionCount)
	})
}

// ---------------------------------------------------------------------------
// ParseDirection
// ---------------------------------------------------------------------------

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"", DirectionCallees},
		{"callees", DirectionCallees},
		{"Downstream", DirectionCallees},
		{"callers", DirectionCallers},
		{" upstream ", DirectionCallers},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}
