//go:build cgo

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/incgraph/incgraph/internal/archive"
	"github.com/incgraph/incgraph/internal/snapshot"
)

// importArchive writes snap into a file-based Kuzu database at dbPath,
// replacing any archive already there.
func importArchive(ctx context.Context, dbPath string, snap *snapshot.Snapshot) error {
	// Remove the old archive to avoid stale data.
	os.RemoveAll(dbPath)

	st, err := archive.NewKuzuFileStore(dbPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer st.Close()

	if err := st.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return archive.Import(ctx, st, snap)
}
