package archive

import (
	"context"
	"fmt"
	"sort"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/snapshot"
)

// Import stores every graph of a snapshot, in sorted key order so repeated
// imports touch the backend deterministically.
func Import(ctx context.Context, st Store, snap *snapshot.Snapshot) error {
	dirs := make([]string, 0, len(snap.Graphs))
	for d := range snap.Graphs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	for _, d := range dirs {
		dg := snap.Graphs[d]
		res := &crawl.DirectoryResult{
			Path:           d,
			Graph:          dg.Graph,
			Subdirectories: dg.Subdirectories,
		}
		if err := st.PutDirectory(ctx, res); err != nil {
			return fmt.Errorf("archive: import %s: %w", d, err)
		}
	}
	return nil
}
