package mcptools

import (
	"github.com/incgraph/incgraph/internal/archive"
	"github.com/incgraph/incgraph/internal/graph"
	"github.com/incgraph/incgraph/internal/snapshot"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// AnalyzeDirectoryInput is the input for the analyze_directory MCP tool.
type AnalyzeDirectoryInput struct {
	Path string `json:"path,omitempty" jsonschema:"repository-relative directory to analyze; empty means the repository root"`
}

// AnalyzeDirectoryOutput is the result of the analyze_directory MCP tool.
type AnalyzeDirectoryOutput struct {
	Path           string                 `json:"path"`
	Graph          *graph.DependencyGraph `json:"graph"`
	Subdirectories []string               `json:"subdirectories"`
}

// CrawlTreeInput is the input for the crawl_tree MCP tool.
type CrawlTreeInput struct {
	Roots   []string `json:"roots,omitempty" jsonschema:"directories to crawl recursively (default: the configured roots)"`
	MaxDirs int      `json:"maxDirs,omitempty" jsonschema:"cap on the number of directories analyzed (default: unlimited)"`
}

// CrawlTreeOutput is the result of the crawl_tree MCP tool.
type CrawlTreeOutput struct {
	Stats  snapshot.Stats    `json:"stats"`
	Failed map[string]string `json:"failed,omitempty"`
}

// GetGraphInput is the input for the get_graph MCP tool.
type GetGraphInput struct {
	Path string `json:"path,omitempty" jsonschema:"repository-relative directory; empty means the repository root"`
}

// GetGraphOutput is the result of the get_graph MCP tool.
type GetGraphOutput struct {
	Path           string                 `json:"path"`
	Graph          *graph.DependencyGraph `json:"graph"`
	Subdirectories []string               `json:"subdirectories"`
}

// ListLeafFilesInput is the input for the list_leaf_files MCP tool.
type ListLeafFilesInput struct {
	Path string `json:"path,omitempty" jsonschema:"scope to one analyzed directory; empty means every analyzed directory"`
}

// ListLeafFilesOutput is the result of the list_leaf_files MCP tool.
type ListLeafFilesOutput struct {
	Leaves []archive.LeafFile `json:"leaves"`
	Total  int                `json:"total"`
}

// MostIncludedInput is the input for the most_included MCP tool.
type MostIncludedInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// MostIncludedOutput is the result of the most_included MCP tool.
type MostIncludedOutput struct {
	Nodes []archive.Ranked `json:"nodes"`
	Total int              `json:"total"`
}
