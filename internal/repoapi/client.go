// Package repoapi fetches directory listings and file contents from a
// repository hosted behind a GitHub-style contents API. The Client
// interface is the seam the crawler depends on; GitHubClient is the
// production implementation and CachingClient a read-through decorator.
package repoapi

import "context"

// EntryType classifies one listing entry.
type EntryType string

const (
	EntryFile  EntryType = "file"
	EntryDir   EntryType = "dir"
	EntryOther EntryType = "other" // symlinks, submodules; never traversed
)

// Entry is one item of a directory listing.
type Entry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Type EntryType `json:"type"`
	Size int64     `json:"size"`
}

// Client reads a remote repository tree. An empty dir or path means the
// repository root. Implementations classify failures with the package
// error types so callers can tell a missing path from an exhausted rate
// limit.
type Client interface {
	// List returns the entries of one directory, in API order.
	List(ctx context.Context, dir string) ([]Entry, error)

	// GetContent returns the raw bytes of one file.
	GetContent(ctx context.Context, path string) ([]byte, error)
}
