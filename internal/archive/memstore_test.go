package archive

import (
	"context"
	"sort"
	"testing"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/graph"
	"github.com/incgraph/incgraph/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkResult builds a realistic directory analysis through the actual
// builder.
func mkResult(dir string, files map[string]string, subdirs ...string) *crawl.DirectoryResult {
	sources := make([]graph.SourceFile, 0, len(files))
	for _, name := range sortedKeys(files) {
		sources = append(sources, graph.SourceFile{
			Name:    name,
			Path:    dir + "/" + name,
			Content: []byte(files[name]),
		})
	}
	if subdirs == nil {
		subdirs = []string{}
	}
	return &crawl.DirectoryResult{
		Path:           dir,
		Graph:          graph.NewBuilder().Build(sources),
		Subdirectories: subdirs,
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func seedStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.InitSchema(ctx))

	require.NoError(t, st.PutDirectory(ctx, mkResult("src", map[string]string{
		"main.cc": "#include \"util.h\"\n#include <vector>\n",
		"util.h":  "#include <vector>\n",
	}, "src/detail")))
	require.NoError(t, st.PutDirectory(ctx, mkResult("src/detail", map[string]string{
		"impl.h": "",
	})))
}

func TestMemStore_PutGetRoundTrip(t *testing.T) {
	st := NewMemStore()
	seedStore(t, st)
	ctx := context.Background()

	res, err := st.GetDirectory(ctx, "src")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "src", res.Path)
	assert.Equal(t, []string{"src/detail"}, res.Subdirectories)
	assert.Equal(t, 3, len(res.Graph.Nodes), "main.cc, util.h, vector")
	assert.Equal(t, []string{"main.cc"}, res.Graph.LeafNodeIDs)
	assert.Equal(t, 2, res.Graph.NodeByID("vector").InDegree)
}

func TestMemStore_GetReturnsCopies(t *testing.T) {
	st := NewMemStore()
	seedStore(t, st)
	ctx := context.Background()

	first, err := st.GetDirectory(ctx, "src")
	require.NoError(t, err)
	first.Graph.Nodes[0].ID = "mutated"
	first.Subdirectories[0] = "mutated"

	second, err := st.GetDirectory(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, "main.cc", second.Graph.Nodes[0].ID, "stored state must not alias returned values")
	assert.Equal(t, "src/detail", second.Subdirectories[0])
}

func TestMemStore_GetMissing(t *testing.T) {
	st := NewMemStore()
	res, err := st.GetDirectory(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestMemStore_RePutReplaces(t *testing.T) {
	st := NewMemStore()
	seedStore(t, st)
	ctx := context.Background()

	require.NoError(t, st.PutDirectory(ctx, mkResult("src", map[string]string{
		"only.h": "",
	})))

	res, err := st.GetDirectory(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, 1, len(res.Graph.Nodes))
	assert.Empty(t, res.Subdirectories)

	dirs, err := st.Directories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "src/detail"}, dirs)
}

func TestMemStore_LeafFiles(t *testing.T) {
	st := NewMemStore()
	seedStore(t, st)
	ctx := context.Background()

	all, err := st.LeafFiles(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, LeafFile{Directory: "src", ID: "main.cc", FullPath: "src/main.cc"}, all[0])
	assert.Equal(t, LeafFile{Directory: "src/detail", ID: "impl.h", FullPath: "src/detail/impl.h"}, all[1])

	scoped, err := st.LeafFiles(ctx, "src")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "main.cc", scoped[0].ID)

	missing, err := st.LeafFiles(ctx, "elsewhere")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestMemStore_MostIncluded(t *testing.T) {
	st := NewMemStore()
	seedStore(t, st)
	ctx := context.Background()

	ranked, err := st.MostIncluded(ctx, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 2, "only nodes with non-zero in-degree rank")
	assert.Equal(t, Ranked{Directory: "src", ID: "vector", InDegree: 2}, ranked[0])
	assert.Equal(t, Ranked{Directory: "src", ID: "util.h", InDegree: 1}, ranked[1])

	top, err := st.MostIncluded(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "vector", top[0].ID)
}

func TestMemStore_Stats(t *testing.T) {
	st := NewMemStore()
	seedStore(t, st)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Stats{
		Directories:   2,
		InternalFiles: 3,
		ExternalNodes: 1,
		Edges:         3,
		LeafFiles:     2,
	}, stats)
}

func TestImportSnapshot(t *testing.T) {
	files := []graph.SourceFile{
		{Name: "a.cc", Path: "src/a.cc", Content: []byte(`#include "b.h"`)},
		{Name: "b.h", Path: "src/b.h", Content: []byte{}},
	}
	snap := snapshot.Assemble([]string{"src"}, map[string]*crawl.DirectoryResult{
		"src": {
			Path:           "src",
			Graph:          graph.NewBuilder().Build(files),
			Subdirectories: []string{},
		},
	})

	st := NewMemStore()
	ctx := context.Background()
	require.NoError(t, st.InitSchema(ctx))
	require.NoError(t, Import(ctx, st, snap))

	res, err := st.GetDirectory(ctx, "src")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{"a.cc"}, res.Graph.LeafNodeIDs)
}
