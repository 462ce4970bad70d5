package main

import (
	"github.com/spf13/cobra"

	"github.com/incgraph/incgraph/internal/archive"
	"github.com/incgraph/incgraph/internal/mcptools"
)

var mcpHTTP string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Mcp exposes graph analysis as MCP tools: analyze_directory, crawl_tree,
get_graph, list_leaf_files, and most_included. By default the server
speaks the stdio transport for editor and agent integrations; --http
serves the streamable HTTP transport instead.

Examples:
  incgraph mcp --repo nlohmann/json
  incgraph mcp --http :8090`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTP, "http", "", "serve MCP over streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	svc := mcptools.NewGraphService(client, archive.NewMemStore())
	svc.SetRoots(cfg.Roots)
	svc.SetConcurrency(cfg.Concurrency)

	srv := mcptools.NewGraphMCPServer(svc)
	if mcpHTTP != "" {
		return mcptools.RunHTTP(cmd.Context(), srv, mcpHTTP)
	}
	return mcptools.RunStdio(cmd.Context(), srv)
}
