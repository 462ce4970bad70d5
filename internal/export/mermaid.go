package export

import (
	"fmt"
	"strings"

	"github.com/incgraph/incgraph/internal/graph"
)

// Mermaid renders a directory dependency graph as a Mermaid "graph LR"
// diagram. Internal files draw as rectangles, external headers as rounded
// boxes, system headers as subroutine shapes. Leaf files (in-degree zero)
// carry a "leaf" class so they stand out as entry points.
func Mermaid(g *graph.DependencyGraph, title string) string {
	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(node string) string {
		if id, ok := nodeIDs[node]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[node] = id
		return id
	}

	leaf := make(map[string]bool, len(g.LeafNodeIDs))
	for _, id := range g.LeafNodeIDs {
		leaf[id] = true
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(fmt.Sprintf("---\ntitle: %.60s\n---\n", title))
	}
	sb.WriteString("graph LR\n")

	for _, n := range g.Nodes {
		id := getID(n.ID)
		label := fmt.Sprintf("%.40s", n.ID)
		switch {
		case n.IsSystem:
			sb.WriteString(fmt.Sprintf("  %s[[\"%s\"]]\n", id, label))
		case n.IsExternal:
			sb.WriteString(fmt.Sprintf("  %s(\"%s\")\n", id, label))
		default:
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", id, label))
		}
	}

	for _, e := range g.Edges {
		sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(e.Source), getID(e.Target)))
	}

	var leafIDs []string
	for _, n := range g.Nodes {
		if leaf[n.ID] {
			leafIDs = append(leafIDs, getID(n.ID))
		}
	}
	if len(leafIDs) > 0 {
		sb.WriteString("  classDef leaf stroke-width:3px\n")
		sb.WriteString(fmt.Sprintf("  class %s leaf\n", strings.Join(leafIDs, ",")))
	}

	return sb.String()
}
