package graph

import (
	"path"
	"strings"
)

// DefaultExtensions is the allow-list applied when a Builder is not
// configured otherwise. Matching is case-insensitive.
var DefaultExtensions = []string{".c", ".cc", ".cpp", ".cxx", ".h", ".hh", ".hpp", ".hxx"}

// Diagnostic reports a non-fatal per-file problem during a build. A bad
// file never fails the directory; it stays in the graph without outgoing
// edges.
type Diagnostic struct {
	Path string
	Err  error
}

// inDegrees counts incoming edges per node id. bump inserts missing keys at
// zero before adding, so a first edge to a node never reads an
// uninitialized count.
type inDegrees map[string]int

func (m inDegrees) bump(id string) { m[id]++ }

// Builder assembles per-directory include graphs. It holds no state between
// builds; configuration is fixed at construction.
type Builder struct {
	exts   map[string]struct{}
	onDiag func(Diagnostic)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithExtensions replaces the extension allow-list. Entries are matched
// case-insensitively and must carry the leading dot.
func WithExtensions(exts []string) BuilderOption {
	return func(b *Builder) {
		b.exts = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			b.exts[strings.ToLower(e)] = struct{}{}
		}
	}
}

// WithDiagnostics registers a callback invoked once per file the builder
// keeps as a node but could not parse.
func WithDiagnostics(fn func(Diagnostic)) BuilderOption {
	return func(b *Builder) { b.onDiag = fn }
}

// NewBuilder returns a Builder with the default extension allow-list.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{}
	WithExtensions(DefaultExtensions)(b)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allowed reports whether name passes the extension filter.
func (b *Builder) Allowed(name string) bool {
	_, ok := b.exts[strings.ToLower(path.Ext(name))]
	return ok
}

// Build assembles the dependency graph for one directory listing.
//
// Internal nodes are created first, one per allowed file in input order,
// with in-degree zero. Then each file's directives are walked in source
// order: a directive whose basename matches an internal node records an
// edge to it; anything else records an edge to a created-or-reused external
// node keyed by the written target. Every occurrence counts, so duplicate
// includes double in-degree and a self-include disqualifies its file as a
// leaf. Identical input yields an identical graph.
func (b *Builder) Build(files []SourceFile) *DependencyGraph {
	g := &DependencyGraph{
		Nodes:       []Node{},
		Edges:       []Edge{},
		LeafNodeIDs: []string{},
	}

	internal := make(map[string]int) // basename -> index into g.Nodes
	external := make(map[string]int) // written target -> index into g.Nodes
	degrees := make(inDegrees)

	kept := make([]SourceFile, 0, len(files))
	for _, f := range files {
		if !b.Allowed(f.Name) {
			continue
		}
		if _, dup := internal[f.Name]; dup {
			continue // a listing never repeats a name; keep the first if input does
		}
		internal[f.Name] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{
			ID:       f.Name,
			Group:    GroupInternal,
			FullPath: f.Path,
		})
		kept = append(kept, f)
	}

	for _, f := range kept {
		if f.Content == nil {
			continue // fetch failed upstream; the node stays with no outgoing edges
		}
		directives, err := ParseIncludes(f.Content)
		if err != nil {
			if pe, ok := err.(*ParseError); ok && pe.Path == "" {
				pe.Path = f.Path
			}
			if b.onDiag != nil {
				b.onDiag(Diagnostic{Path: f.Path, Err: err})
			}
			continue
		}
		for _, d := range directives {
			targetID := b.resolve(g, internal, external, d)
			g.Edges = append(g.Edges, Edge{Source: f.Name, Target: targetID})
			degrees.bump(targetID)
		}
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		n.InDegree = degrees[n.ID]
		n.Val = 1 + n.InDegree
		if !n.IsExternal && n.InDegree == 0 {
			g.LeafNodeIDs = append(g.LeafNodeIDs, n.ID)
		}
	}
	return g
}

// resolve maps a directive to a node id, creating the external node on
// first mention. Matching internal files by basename is a heuristic: a
// directive like "util/helpers.h" matches a listed helpers.h even though
// the real compiler target may live elsewhere. FullPath on the node is the
// consumer's disambiguator.
func (b *Builder) resolve(g *DependencyGraph, internal, external map[string]int, d IncludeDirective) string {
	if idx, ok := internal[path.Base(d.Target)]; ok {
		return g.Nodes[idx].ID
	}
	if idx, ok := external[d.Target]; ok {
		return g.Nodes[idx].ID
	}
	n := Node{
		ID:         d.Target,
		Group:      GroupExternal,
		IsExternal: true,
		IsSystem:   d.IsSystem,
	}
	if d.IsSystem {
		n.Group = GroupSystem
	}
	if strings.Contains(d.Target, "/") {
		n.FullPath = d.Target
	}
	external[d.Target] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	return n.ID
}
