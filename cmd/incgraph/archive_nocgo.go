//go:build !cgo

package main

import (
	"context"
	"fmt"

	"github.com/incgraph/incgraph/internal/snapshot"
)

func importArchive(_ context.Context, _ string, _ *snapshot.Snapshot) error {
	return fmt.Errorf("--archive requires a cgo-enabled build")
}
