package graph

// --- Inputs ---

// SourceFile is one repository file handed to the builder. Path is
// repository-relative, Name is the basename. Content is nil when the fetch
// failed upstream; the file still becomes a node, just without outgoing
// edges.
type SourceFile struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content []byte `json:"-"`
}

// IncludeDirective is a single #include occurrence, in source order.
type IncludeDirective struct {
	Target   string `json:"target"`        // written include path: "vector", "util/helpers.h"
	IsSystem bool   `json:"isSystem"`      // true for <...>, false for "..."
	Raw      string `json:"raw,omitempty"` // matched directive text, kept for diagnostics
}

// --- Graph model ---

// Node groups, consumed by the force-graph front end as color hints.
const (
	GroupInternal = 1 // file present in the analyzed directory
	GroupExternal = 2 // quoted include with no matching file
	GroupSystem   = 3 // angle-bracket include with no matching file
)

// Node is one vertex of a directory dependency graph. Internal nodes are
// files from the directory listing, keyed by basename; a listing cannot
// repeat a name, so internal ids are unique per graph. External nodes are
// include targets that matched no listed file, keyed by the written target.
// Val is a sizing hint (1 + final in-degree), not semantic.
type Node struct {
	ID         string `json:"id"`
	Group      int    `json:"group"`
	Val        int    `json:"val"`
	IsExternal bool   `json:"isExternal"`
	IsSystem   bool   `json:"isSystem"`
	FullPath   string `json:"fullPath,omitempty"`
	InDegree   int    `json:"inDegree"`
}

// Edge records one include occurrence: Source includes Target. Values are
// node ids. Duplicate directives yield parallel edges and self-includes
// yield self-loops; neither is collapsed.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// DependencyGraph is the analysis result for a single directory.
// LeafNodeIDs lists internal nodes nothing else in the directory includes,
// in node order. Slices are always non-nil so the graph marshals to arrays.
type DependencyGraph struct {
	Nodes       []Node   `json:"nodes"`
	Edges       []Edge   `json:"edges"`
	LeafNodeIDs []string `json:"leafNodeIds"`
}

// NodeByID returns the node with the given id, or nil.
func (g *DependencyGraph) NodeByID(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// InternalCount returns how many nodes are files from the directory itself.
func (g *DependencyGraph) InternalCount() int {
	n := 0
	for i := range g.Nodes {
		if !g.Nodes[i].IsExternal {
			n++
		}
	}
	return n
}
