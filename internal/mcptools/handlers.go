package mcptools

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/incgraph/incgraph/internal/archive"
	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/repoapi"
	"github.com/incgraph/incgraph/internal/snapshot"
)

// GraphService holds the repository client and archive store the MCP tool
// handlers work with.
type GraphService struct {
	client      repoapi.Client
	store       archive.Store
	roots       []string
	concurrency int
}

// NewGraphService creates a GraphService reading through client and
// archiving analyses in store. A nil store disables the archive-backed
// tools.
func NewGraphService(client repoapi.Client, store archive.Store) *GraphService {
	return &GraphService{client: client, store: store, concurrency: 1}
}

// SetRoots sets the default roots a crawl_tree call starts from.
func (s *GraphService) SetRoots(roots []string) {
	s.roots = roots
}

// SetConcurrency bounds parallel directory analyses during crawls.
func (s *GraphService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// AnalyzeDirectory analyzes one directory live and archives the result.
func (s *GraphService) AnalyzeDirectory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeDirectoryInput,
) (*mcp.CallToolResult, AnalyzeDirectoryOutput, error) {
	c := crawl.NewCrawler(s.client, crawl.WithConcurrency(s.concurrency))

	res, err := c.Analyze(ctx, input.Path)
	if err != nil {
		return nil, AnalyzeDirectoryOutput{}, err
	}
	s.archiveResult(ctx, res)

	return nil, AnalyzeDirectoryOutput{
		Path:           res.Path,
		Graph:          res.Graph,
		Subdirectories: res.Subdirectories,
	}, nil
}

// CrawlTree walks whole subtrees, archives every analysis, and returns the
// assembled snapshot's statistics.
func (s *GraphService) CrawlTree(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CrawlTreeInput,
) (*mcp.CallToolResult, CrawlTreeOutput, error) {
	roots := input.Roots
	if len(roots) == 0 {
		roots = s.roots
	}
	if len(roots) == 0 {
		roots = []string{""}
	}

	c := crawl.NewCrawler(s.client,
		crawl.WithConcurrency(s.concurrency),
		crawl.WithMaxDirs(input.MaxDirs))

	res, err := c.CrawlTree(ctx, roots)
	if err != nil {
		return nil, CrawlTreeOutput{}, err
	}

	snap := snapshot.Assemble(roots, res.Results)
	if s.store != nil {
		if err := archive.Import(ctx, s.store, snap); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to archive crawl: %v\n", err)
		}
	}

	out := CrawlTreeOutput{Stats: snap.Stats()}
	if len(res.Failed) > 0 {
		out.Failed = make(map[string]string, len(res.Failed))
		for dir, ferr := range res.Failed {
			out.Failed[dir] = ferr.Error()
		}
	}
	return nil, out, nil
}

// GetGraph returns one directory's archived graph.
func (s *GraphService) GetGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetGraphInput,
) (*mcp.CallToolResult, GetGraphOutput, error) {
	if s.store == nil {
		return nil, GetGraphOutput{}, fmt.Errorf("no archive store configured")
	}

	dir := crawl.NormalizePath(input.Path)
	res, err := s.store.GetDirectory(ctx, dir)
	if err != nil {
		return nil, GetGraphOutput{}, fmt.Errorf("get graph: %w", err)
	}
	if res == nil {
		return nil, GetGraphOutput{}, fmt.Errorf("directory not analyzed: %q; run analyze_directory or crawl_tree first", input.Path)
	}

	return nil, GetGraphOutput{
		Path:           res.Path,
		Graph:          res.Graph,
		Subdirectories: res.Subdirectories,
	}, nil
}

// ListLeafFiles lists archived leaf files, optionally scoped to one
// directory.
func (s *GraphService) ListLeafFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListLeafFilesInput,
) (*mcp.CallToolResult, ListLeafFilesOutput, error) {
	if s.store == nil {
		return nil, ListLeafFilesOutput{}, fmt.Errorf("no archive store configured")
	}

	leaves, err := s.store.LeafFiles(ctx, crawl.NormalizePath(input.Path))
	if err != nil {
		return nil, ListLeafFilesOutput{}, fmt.Errorf("list leaf files: %w", err)
	}
	if leaves == nil {
		leaves = []archive.LeafFile{}
	}

	return nil, ListLeafFilesOutput{Leaves: leaves, Total: len(leaves)}, nil
}

// MostIncluded ranks archived nodes by in-degree.
func (s *GraphService) MostIncluded(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MostIncludedInput,
) (*mcp.CallToolResult, MostIncludedOutput, error) {
	if s.store == nil {
		return nil, MostIncludedOutput{}, fmt.Errorf("no archive store configured")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	ranked, err := s.store.MostIncluded(ctx, limit)
	if err != nil {
		return nil, MostIncludedOutput{}, fmt.Errorf("most included: %w", err)
	}
	if ranked == nil {
		ranked = []archive.Ranked{}
	}

	return nil, MostIncludedOutput{Nodes: ranked, Total: len(ranked)}, nil
}

// archiveResult persists one analysis. Failures only warn; the tool result
// itself is still good.
func (s *GraphService) archiveResult(ctx context.Context, res *crawl.DirectoryResult) {
	if s.store == nil {
		return
	}
	if err := s.store.PutDirectory(ctx, res); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to archive %s: %v\n", res.Path, err)
	}
}
