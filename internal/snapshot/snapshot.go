// Package snapshot aggregates per-directory crawl results into the JSON
// document the visualization front end and offline consumers load.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/export"
	"github.com/incgraph/incgraph/internal/graph"
)

// DirectoryGraph is one directory's entry in a snapshot.
type DirectoryGraph struct {
	Graph          *graph.DependencyGraph `json:"graph"`
	Subdirectories []string               `json:"subdirectories"`
}

// Snapshot is the aggregate result of one crawl: the configured roots in
// order, and one graph per analyzed directory keyed by normalized
// repository-relative path.
type Snapshot struct {
	RootDirectories []string                  `json:"rootDirectories"`
	Graphs          map[string]DirectoryGraph `json:"graphs"`
}

// Stats summarizes a snapshot.
type Stats struct {
	Directories   int `json:"directories"`
	InternalFiles int `json:"internalFiles"`
	ExternalNodes int `json:"externalNodes"`
	Edges         int `json:"edges"`
	LeafFiles     int `json:"leafFiles"`
}

// Assemble builds a snapshot from crawl results. Roots keep their
// configured order, normalized and deduplicated; failed directories are
// simply absent from results and therefore from the snapshot.
func Assemble(roots []string, results map[string]*crawl.DirectoryResult) *Snapshot {
	snap := &Snapshot{
		RootDirectories: []string{},
		Graphs:          make(map[string]DirectoryGraph, len(results)),
	}

	seen := make(map[string]struct{}, len(roots))
	for _, r := range roots {
		r = crawl.NormalizePath(r)
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		snap.RootDirectories = append(snap.RootDirectories, r)
	}

	for dir, res := range results {
		subdirs := res.Subdirectories
		if subdirs == nil {
			subdirs = []string{}
		}
		snap.Graphs[crawl.NormalizePath(dir)] = DirectoryGraph{
			Graph:          res.Graph,
			Subdirectories: subdirs,
		}
	}
	return snap
}

// Stats tallies the snapshot's contents.
func (s *Snapshot) Stats() Stats {
	st := Stats{Directories: len(s.Graphs)}
	for _, dg := range s.Graphs {
		if dg.Graph == nil {
			continue
		}
		st.Edges += len(dg.Graph.Edges)
		st.LeafFiles += len(dg.Graph.LeafNodeIDs)
		for i := range dg.Graph.Nodes {
			if dg.Graph.Nodes[i].IsExternal {
				st.ExternalNodes++
			} else {
				st.InternalFiles++
			}
		}
	}
	return st
}

// PartitionByRoot splits a snapshot into one independent snapshot per root
// directory. When roots nest, a directory belongs to the longest matching
// root. Directories outside every root are dropped.
func PartitionByRoot(snap *Snapshot) map[string]*Snapshot {
	parts := make(map[string]*Snapshot, len(snap.RootDirectories))
	for _, root := range snap.RootDirectories {
		parts[root] = &Snapshot{
			RootDirectories: []string{root},
			Graphs:          make(map[string]DirectoryGraph),
		}
	}
	for dir, dg := range snap.Graphs {
		root, ok := owningRoot(snap.RootDirectories, dir)
		if !ok {
			continue
		}
		parts[root].Graphs[dir] = dg
	}
	return parts
}

// owningRoot picks the longest root that is dir itself or an ancestor.
func owningRoot(roots []string, dir string) (string, bool) {
	best, found := "", false
	for _, r := range roots {
		if !underRoot(r, dir) {
			continue
		}
		if !found || len(r) > len(best) {
			best, found = r, true
		}
	}
	return best, found
}

// underRoot reports whether dir is root itself or inside it. The empty
// root is the repository root and owns everything.
func underRoot(root, dir string) bool {
	if root == "" {
		return true
	}
	return dir == root || strings.HasPrefix(dir, root+"/")
}

// Write marshals snap as indented JSON at path, creating parent
// directories as needed.
func Write(path string, snap *Snapshot) error {
	return export.WriteJSON(path, snap)
}

// Load reads a snapshot written by Write.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	if snap.Graphs == nil {
		snap.Graphs = make(map[string]DirectoryGraph)
	}
	if snap.RootDirectories == nil {
		snap.RootDirectories = []string{}
	}
	return &snap, nil
}
