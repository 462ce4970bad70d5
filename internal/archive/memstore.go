package archive

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/graph"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex;
// both writes and reads deep-copy so callers never alias stored state.
type MemStore struct {
	mu   sync.RWMutex
	dirs map[string]*crawl.DirectoryResult
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		dirs: make(map[string]*crawl.DirectoryResult),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// PutDirectory stores a deep copy of res keyed by its normalized path.
func (m *MemStore) PutDirectory(_ context.Context, res *crawl.DirectoryResult) error {
	if res == nil || res.Graph == nil {
		return fmt.Errorf("archive: put directory: nil result")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[crawl.NormalizePath(res.Path)] = copyResult(res)
	return nil
}

// GetDirectory returns a deep copy of the stored analysis, or nil when the
// path was never archived.
func (m *MemStore) GetDirectory(_ context.Context, path string) (*crawl.DirectoryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.dirs[crawl.NormalizePath(path)]
	if !ok {
		return nil, nil
	}
	return copyResult(res), nil
}

// Directories lists every archived path, sorted.
func (m *MemStore) Directories(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.dirs))
	for d := range m.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

// LeafFiles returns leaf files ordered by directory then node order.
func (m *MemStore) LeafFiles(_ context.Context, dir string) ([]LeafFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dirs, err := m.scopedDirs(dir)
	if err != nil {
		return nil, err
	}

	var out []LeafFile
	for _, d := range dirs {
		res := m.dirs[d]
		for _, id := range res.Graph.LeafNodeIDs {
			lf := LeafFile{Directory: d, ID: id}
			if n := res.Graph.NodeByID(id); n != nil {
				lf.FullPath = n.FullPath
			}
			out = append(out, lf)
		}
	}
	return out, nil
}

// MostIncluded ranks nodes with non-zero in-degree, highest first.
func (m *MemStore) MostIncluded(_ context.Context, limit int) ([]Ranked, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Ranked
	for d, res := range m.dirs {
		for i := range res.Graph.Nodes {
			n := &res.Graph.Nodes[i]
			if n.InDegree == 0 {
				continue
			}
			out = append(out, Ranked{Directory: d, ID: n.ID, InDegree: n.InDegree})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InDegree != out[j].InDegree {
			return out[i].InDegree > out[j].InDegree
		}
		if out[i].Directory != out[j].Directory {
			return out[i].Directory < out[j].Directory
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats tallies everything in the store.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := &Stats{Directories: len(m.dirs)}
	for _, res := range m.dirs {
		st.Edges += len(res.Graph.Edges)
		st.LeafFiles += len(res.Graph.LeafNodeIDs)
		for i := range res.Graph.Nodes {
			if res.Graph.Nodes[i].IsExternal {
				st.ExternalNodes++
			} else {
				st.InternalFiles++
			}
		}
	}
	return st, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// scopedDirs returns either all archived paths sorted, or just dir.
func (m *MemStore) scopedDirs(dir string) ([]string, error) {
	if dir == "" {
		out := make([]string, 0, len(m.dirs))
		for d := range m.dirs {
			out = append(out, d)
		}
		sort.Strings(out)
		return out, nil
	}
	dir = crawl.NormalizePath(dir)
	if _, ok := m.dirs[dir]; !ok {
		return nil, nil
	}
	return []string{dir}, nil
}

// copyResult deep-copies one directory analysis.
func copyResult(res *crawl.DirectoryResult) *crawl.DirectoryResult {
	out := &crawl.DirectoryResult{
		Path:           crawl.NormalizePath(res.Path),
		Subdirectories: append([]string{}, res.Subdirectories...),
		Graph: &graph.DependencyGraph{
			Nodes:       append([]graph.Node{}, res.Graph.Nodes...),
			Edges:       append([]graph.Edge{}, res.Graph.Edges...),
			LeafNodeIDs: append([]string{}, res.Graph.LeafNodeIDs...),
		},
	}
	return out
}
