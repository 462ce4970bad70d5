// Package archive persists crawl results across runs so directory graphs
// can be served and queried without re-crawling the repository. All access
// goes through the Store interface; MemStore is the default backend and
// the test double, KuzuStore the embedded graph database for cgo builds.
package archive

import (
	"context"
	"io"

	"github.com/incgraph/incgraph/internal/crawl"
)

// LeafFile is one internal file nothing else in its directory includes.
type LeafFile struct {
	Directory string `json:"directory"`
	ID        string `json:"id"`
	FullPath  string `json:"fullPath,omitempty"`
}

// Ranked is one node with its in-degree, for most-included rankings.
type Ranked struct {
	Directory string `json:"directory"`
	ID        string `json:"id"`
	InDegree  int    `json:"inDegree"`
}

// Stats summarizes an archive.
type Stats struct {
	Directories   int `json:"directories"`
	InternalFiles int `json:"internalFiles"`
	ExternalNodes int `json:"externalNodes"`
	Edges         int `json:"edges"`
	LeafFiles     int `json:"leafFiles"`
}

// Store is the persistence backend for directory analyses.
type Store interface {
	io.Closer

	// InitSchema is called once before any data is written.
	InitSchema(ctx context.Context) error

	// PutDirectory stores one directory's analysis, replacing any earlier
	// analysis of the same path.
	PutDirectory(ctx context.Context, res *crawl.DirectoryResult) error

	// GetDirectory returns one directory's analysis, or nil when the
	// archive holds no analysis for the path.
	GetDirectory(ctx context.Context, path string) (*crawl.DirectoryResult, error)

	// Directories lists every archived directory path, sorted.
	Directories(ctx context.Context) ([]string, error)

	// LeafFiles returns leaf files ordered by directory then node order,
	// scoped to one directory when dir is non-empty.
	LeafFiles(ctx context.Context, dir string) ([]LeafFile, error)

	// MostIncluded ranks nodes by in-degree, highest first, ties broken by
	// directory then id. A limit <= 0 returns all ranked nodes.
	MostIncluded(ctx context.Context, limit int) ([]Ranked, error)

	// Stats returns archive-wide counts.
	Stats(ctx context.Context) (*Stats, error)
}
