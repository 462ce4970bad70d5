//go:build e2e

package e2e

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/export"
	"github.com/incgraph/incgraph/internal/snapshot"
)

var update = flag.Bool("update", false, "update golden files")

// goldenDir returns the path to the testdata/golden directory.
func goldenDir() string {
	return filepath.Join("..", "..", "testdata", "golden")
}

var goldenFiles = []string{"snapshot.json", "src_diagram.mmd"}

// goldenOutputs crawls the fixture tree and renders everything the golden
// files pin: the snapshot document as written to disk and the src directory
// diagram. Identical input must yield byte-identical output, so any diff is
// a real change.
func goldenOutputs(t *testing.T) map[string]string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	crawler := crawl.NewCrawler(fixtureClient())
	tree, err := crawler.CrawlTree(ctx, []string{""})
	require.NoError(t, err)
	require.Empty(t, tree.Failed)

	snap := snapshot.Assemble([]string{""}, tree.Results)

	outPath := filepath.Join(t.TempDir(), "incgraph.json")
	require.NoError(t, snapshot.Write(outPath, snap))
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	return map[string]string{
		"snapshot.json":   string(data),
		"src_diagram.mmd": export.Mermaid(snap.Graphs["src"].Graph, "src"),
	}
}

// TestGolden compares crawl output against golden files. If golden files do
// not exist, the test is skipped with a message to run with -update.
func TestGolden(t *testing.T) {
	outputs := goldenOutputs(t)

	for _, name := range goldenFiles {
		t.Run(name, func(t *testing.T) {
			goldenPath := filepath.Join(goldenDir(), name)
			golden, err := os.ReadFile(goldenPath)
			if os.IsNotExist(err) {
				t.Skipf("golden file %s not found; run with -update to generate", name)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, string(golden), outputs[name],
				"output for %s does not match golden file", name)
		})
	}
}

// TestUpdateGolden regenerates golden files from the current crawl output.
// Run with: go test -tags e2e -run TestUpdateGolden ./internal/e2e/ -update
func TestUpdateGolden(t *testing.T) {
	if !*update {
		t.Skip("skipping golden file update; run with -update flag")
	}

	outputs := goldenOutputs(t)

	err := os.MkdirAll(goldenDir(), 0o755)
	require.NoError(t, err)

	for _, name := range goldenFiles {
		err := os.WriteFile(filepath.Join(goldenDir(), name), []byte(outputs[name]), 0o644)
		require.NoError(t, err)

		t.Logf("updated %s", name)
	}
}
