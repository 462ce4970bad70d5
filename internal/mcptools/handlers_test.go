package mcptools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incgraph/incgraph/internal/archive"
	"github.com/incgraph/incgraph/internal/repoapi"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type fakeClient struct {
	listings map[string][]repoapi.Entry
	contents map[string][]byte
}

func (f *fakeClient) List(_ context.Context, dir string) ([]repoapi.Entry, error) {
	entries, ok := f.listings[dir]
	if !ok {
		return nil, &repoapi.NotFoundError{Path: dir}
	}
	return entries, nil
}

func (f *fakeClient) GetContent(_ context.Context, path string) ([]byte, error) {
	content, ok := f.contents[path]
	if !ok {
		return nil, &repoapi.NotFoundError{Path: path}
	}
	return content, nil
}

// fixtureClient serves a two-level tree: src/{main.cc,util.h,detail/} and
// src/detail/impl.h.
func fixtureClient() *fakeClient {
	return &fakeClient{
		listings: map[string][]repoapi.Entry{
			"src": {
				{Name: "main.cc", Path: "src/main.cc", Type: repoapi.EntryFile},
				{Name: "util.h", Path: "src/util.h", Type: repoapi.EntryFile},
				{Name: "detail", Path: "src/detail", Type: repoapi.EntryDir},
			},
			"src/detail": {
				{Name: "impl.h", Path: "src/detail/impl.h", Type: repoapi.EntryFile},
			},
		},
		contents: map[string][]byte{
			"src/main.cc":       []byte("#include \"util.h\"\n#include <vector>\n"),
			"src/util.h":        []byte("#include <vector>\n"),
			"src/detail/impl.h": []byte("#include <cstring>\n"),
		},
	}
}

func newTestService(t *testing.T) *GraphService {
	t.Helper()

	store := archive.NewMemStore()
	t.Cleanup(func() { store.Close() })
	return NewGraphService(fixtureClient(), store)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestAnalyzeDirectoryReturnsGraphAndArchives(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, out, err := svc.AnalyzeDirectory(ctx, nil, AnalyzeDirectoryInput{Path: "/src/"})
	require.NoError(t, err)

	assert.Equal(t, "src", out.Path)
	require.NotNil(t, out.Graph)
	assert.Len(t, out.Graph.Nodes, 3)
	assert.Equal(t, []string{"main.cc"}, out.Graph.LeafNodeIDs)
	assert.Equal(t, []string{"src/detail"}, out.Subdirectories)

	archived, err := svc.store.GetDirectory(ctx, "src")
	require.NoError(t, err)
	require.NotNil(t, archived, "analysis must land in the archive")
	assert.Len(t, archived.Graph.Nodes, 3)
}

func TestAnalyzeDirectoryNotFound(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.AnalyzeDirectory(context.Background(), nil, AnalyzeDirectoryInput{Path: "nope"})
	require.Error(t, err)
	assert.True(t, repoapi.IsNotFound(err))
}

func TestCrawlTreeArchivesEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, out, err := svc.CrawlTree(ctx, nil, CrawlTreeInput{Roots: []string{"src"}})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Stats.Directories)
	assert.Equal(t, 3, out.Stats.InternalFiles)
	assert.Equal(t, 4, out.Stats.Edges)
	assert.Empty(t, out.Failed)

	dirs, err := svc.store.Directories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "src/detail"}, dirs)
}

func TestCrawlTreeMaxDirs(t *testing.T) {
	svc := newTestService(t)

	_, out, err := svc.CrawlTree(context.Background(), nil, CrawlTreeInput{
		Roots:   []string{"src"},
		MaxDirs: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Stats.Directories)
}

func TestCrawlTreeRecordsFailures(t *testing.T) {
	client := fixtureClient()
	delete(client.listings, "src/detail")
	store := archive.NewMemStore()
	t.Cleanup(func() { store.Close() })
	svc := NewGraphService(client, store)

	_, out, err := svc.CrawlTree(context.Background(), nil, CrawlTreeInput{Roots: []string{"src"}})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Stats.Directories)
	require.Contains(t, out.Failed, "src/detail")
	assert.Contains(t, out.Failed["src/detail"], "src/detail")
}

func TestGetGraph(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.AnalyzeDirectory(ctx, nil, AnalyzeDirectoryInput{Path: "src"})
	require.NoError(t, err)

	_, out, err := svc.GetGraph(ctx, nil, GetGraphInput{Path: "src"})
	require.NoError(t, err)
	assert.Equal(t, "src", out.Path)
	assert.Len(t, out.Graph.Nodes, 3)
	assert.Equal(t, []string{"src/detail"}, out.Subdirectories)

	_, _, err = svc.GetGraph(ctx, nil, GetGraphInput{Path: "never/crawled"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not analyzed")
}

func TestListLeafFiles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.CrawlTree(ctx, nil, CrawlTreeInput{Roots: []string{"src"}})
	require.NoError(t, err)

	_, all, err := svc.ListLeafFiles(ctx, nil, ListLeafFilesInput{})
	require.NoError(t, err)
	require.Equal(t, 2, all.Total)
	assert.Equal(t, "main.cc", all.Leaves[0].ID)
	assert.Equal(t, "impl.h", all.Leaves[1].ID)

	_, scoped, err := svc.ListLeafFiles(ctx, nil, ListLeafFilesInput{Path: "src/detail"})
	require.NoError(t, err)
	require.Equal(t, 1, scoped.Total)
	assert.Equal(t, "impl.h", scoped.Leaves[0].ID)
}

func TestMostIncluded(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.CrawlTree(ctx, nil, CrawlTreeInput{Roots: []string{"src"}})
	require.NoError(t, err)

	_, out, err := svc.MostIncluded(ctx, nil, MostIncludedInput{})
	require.NoError(t, err)
	require.Equal(t, 3, out.Total)
	assert.Equal(t, "vector", out.Nodes[0].ID)
	assert.Equal(t, 2, out.Nodes[0].InDegree)

	_, limited, err := svc.MostIncluded(ctx, nil, MostIncludedInput{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, limited.Total)
}

func TestStoreBackedToolsWithoutStore(t *testing.T) {
	svc := NewGraphService(fixtureClient(), nil)
	ctx := context.Background()

	_, _, err := svc.GetGraph(ctx, nil, GetGraphInput{Path: "src"})
	assert.ErrorContains(t, err, "no archive store")

	_, _, err = svc.ListLeafFiles(ctx, nil, ListLeafFilesInput{})
	assert.ErrorContains(t, err, "no archive store")

	_, _, err = svc.MostIncluded(ctx, nil, MostIncludedInput{})
	assert.ErrorContains(t, err, "no archive store")
}
