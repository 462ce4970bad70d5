package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewGraphMCPServer creates an MCP server with all 5 include-graph tools
// registered.
func NewGraphMCPServer(svc *GraphService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "incgraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_directory",
		Description: "Analyze one repository directory: fetch its C/C++ files, extract #include directives, and return the directory's dependency graph plus its subdirectories.",
	}, svc.AnalyzeDirectory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "crawl_tree",
		Description: "Recursively crawl directories, build an include graph per directory, and archive every analysis. Returns snapshot statistics and the directories that failed.",
	}, svc.CrawlTree)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_graph",
		Description: "Return the archived include graph for one directory, as built by a previous analyze_directory or crawl_tree call.",
	}, svc.GetGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_leaf_files",
		Description: "List leaf files: internal files no other file in their directory includes. Optionally scoped to one directory.",
	}, svc.ListLeafFiles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "most_included",
		Description: "Rank archived nodes by how often they are included, highest in-degree first.",
	}, svc.MostIncluded)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// StreamableHTTPHandler wraps server for mounting on an HTTP mux.
func StreamableHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)
}

// RunHTTP starts a standalone HTTP server exposing the MCP tools.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: StreamableHTTPHandler(server),
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
