package crawl

import (
	"context"
	"path"
	"sync"
	"testing"

	"github.com/incgraph/incgraph/internal/repoapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI implements repoapi.Client with pluggable behavior and records
// every call for assertions.
type fakeAPI struct {
	mu        sync.Mutex
	listed    []string
	fetched   []string
	listFn    func(dir string) ([]repoapi.Entry, error)
	contentFn func(path string) ([]byte, error)
}

func (f *fakeAPI) List(ctx context.Context, dir string) ([]repoapi.Entry, error) {
	f.mu.Lock()
	f.listed = append(f.listed, dir)
	f.mu.Unlock()
	return f.listFn(dir)
}

func (f *fakeAPI) GetContent(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, path)
	f.mu.Unlock()
	return f.contentFn(path)
}

func (f *fakeAPI) fetchedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func fileEntry(p string) repoapi.Entry {
	return repoapi.Entry{Name: path.Base(p), Path: p, Type: repoapi.EntryFile}
}

func dirEntry(p string) repoapi.Entry {
	return repoapi.Entry{Name: path.Base(p), Path: p, Type: repoapi.EntryDir}
}

// treeAPI serves a static repository tree: listings keyed by directory,
// contents keyed by file path. Anything else is a 404.
func treeAPI(listings map[string][]repoapi.Entry, contents map[string]string) *fakeAPI {
	return &fakeAPI{
		listFn: func(dir string) ([]repoapi.Entry, error) {
			l, ok := listings[dir]
			if !ok {
				return nil, &repoapi.NotFoundError{Path: dir}
			}
			return l, nil
		},
		contentFn: func(p string) ([]byte, error) {
			c, ok := contents[p]
			if !ok {
				return nil, &repoapi.NotFoundError{Path: p}
			}
			return []byte(c), nil
		},
	}
}

func drain(r *Reporter) []Event {
	r.Close()
	var events []Event
	for ev := range r.Subscribe() {
		events = append(events, ev)
	}
	return events
}

func TestAnalyze_PartitionsListing(t *testing.T) {
	api := treeAPI(
		map[string][]repoapi.Entry{
			"src": {
				dirEntry("src/zeta"),
				fileEntry("src/main.cc"),
				dirEntry("src/alpha"),
				{Name: "link", Path: "src/link", Type: repoapi.EntryOther},
				fileEntry("src/util.h"),
				dirEntry("src/alpha"), // defensive: duplicates collapse
			},
		},
		map[string]string{
			"src/main.cc": "#include \"util.h\"\n#include <vector>\n",
			"src/util.h":  "",
		},
	)

	res, err := NewCrawler(api).Analyze(context.Background(), "/src/")
	require.NoError(t, err)

	assert.Equal(t, "src", res.Path, "paths are normalized")
	assert.Equal(t, []string{"src/alpha", "src/zeta"}, res.Subdirectories, "sorted and deduplicated")

	require.NotNil(t, res.Graph)
	assert.Equal(t, 3, len(res.Graph.Nodes), "main.cc, util.h, vector")
	assert.Equal(t, []string{"main.cc"}, res.Graph.LeafNodeIDs)
}

func TestAnalyze_FiltersBeforeFetching(t *testing.T) {
	api := treeAPI(
		map[string][]repoapi.Entry{
			"src": {
				fileEntry("src/README.md"),
				fileEntry("src/build.sh"),
				fileEntry("src/a.cpp"),
			},
		},
		map[string]string{"src/a.cpp": ""},
	)

	_, err := NewCrawler(api).Analyze(context.Background(), "src")
	require.NoError(t, err)

	assert.Equal(t, []string{"src/a.cpp"}, api.fetchedPaths(), "filtered files must not cost a request")
}

func TestAnalyze_FetchFailureKeepsBareNode(t *testing.T) {
	api := treeAPI(
		map[string][]repoapi.Entry{
			"src": {
				fileEntry("src/gone.h"),
				fileEntry("src/a.cc"),
			},
		},
		map[string]string{"src/a.cc": `#include "gone.h"`},
	)

	reporter := NewReporter()
	res, err := NewCrawler(api, WithReporter(reporter)).Analyze(context.Background(), "src")
	require.NoError(t, err, "one unfetchable file must not fail the directory")

	gone := res.Graph.NodeByID("gone.h")
	require.NotNil(t, gone)
	assert.False(t, gone.IsExternal)
	assert.Equal(t, 1, gone.InDegree)

	var skipped []Event
	for _, ev := range drain(reporter) {
		if ev.Kind == EventSkipped {
			skipped = append(skipped, ev)
		}
	}
	require.Len(t, skipped, 1)
	assert.Equal(t, "src/gone.h", skipped[0].Path)
}

func TestAnalyze_RateLimitPropagates(t *testing.T) {
	api := treeAPI(
		map[string][]repoapi.Entry{
			"src": {fileEntry("src/a.cc")},
		},
		nil,
	)
	api.contentFn = func(p string) ([]byte, error) {
		return nil, &repoapi.RateLimitError{Path: p}
	}

	_, err := NewCrawler(api).Analyze(context.Background(), "src")
	require.Error(t, err)
	assert.True(t, repoapi.IsRateLimit(err), "rate limits must surface, not degrade to bare nodes")
}

func TestAnalyze_ListingFailureFailsDirectory(t *testing.T) {
	api := treeAPI(nil, nil)

	_, err := NewCrawler(api).Analyze(context.Background(), "src/missing")
	require.Error(t, err)
	assert.True(t, repoapi.IsNotFound(err))
}

func TestAnalyze_Root(t *testing.T) {
	api := treeAPI(
		map[string][]repoapi.Entry{
			"": {fileEntry("main.cc"), dirEntry("src")},
		},
		map[string]string{"main.cc": ""},
	)

	res, err := NewCrawler(api).Analyze(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", res.Path)
	assert.Equal(t, []string{"src"}, res.Subdirectories)
}

func TestReporter_DropsWhenFull(t *testing.T) {
	r := NewReporter()
	for i := 0; i < 200; i++ {
		r.Emit(Event{Kind: EventQueued, Path: "dir"}) // must never block
	}
	events := drain(r)
	assert.Len(t, events, 64, "buffer size bounds retained events")
}
