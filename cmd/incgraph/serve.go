package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/incgraph/incgraph/internal/archive"
	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/mcptools"
	"github.com/incgraph/incgraph/internal/server"
	"github.com/incgraph/incgraph/internal/snapshot"
)

var (
	serveAddr     string
	serveSnapshot string
	serveMCP      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve graphs over HTTP for the visualization front end",
	Long: `Serve starts an HTTP server exposing directory graphs, tree navigation,
crawl triggers, and websocket progress events.

Examples:
  incgraph serve --repo nlohmann/json
  incgraph serve --snapshot graphs.json --addr :9000
  incgraph serve --mcp`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveSnapshot, "snapshot", "", "preload a snapshot file")
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also mount the MCP streamable HTTP endpoint at /mcp")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	rep := crawl.NewReporter()
	defer rep.Close()

	crawler := crawl.NewCrawler(client, crawlOptions(cfg, rep)...)

	opts := []server.Option{
		server.WithRoots(cfg.Roots),
		server.WithReporter(rep),
	}
	if serveSnapshot != "" {
		snap, err := snapshot.Load(serveSnapshot)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithSnapshot(snap))
		fmt.Fprintf(os.Stderr, "loaded snapshot %s (%d directories)\n", serveSnapshot, len(snap.Graphs))
	}
	if serveMCP {
		svc := mcptools.NewGraphService(client, archive.NewMemStore())
		svc.SetRoots(cfg.Roots)
		svc.SetConcurrency(cfg.Concurrency)
		opts = append(opts, server.WithHandler("/mcp", mcptools.StreamableHTTPHandler(mcptools.NewGraphMCPServer(svc))))
	}

	srv := server.New(crawler, opts...)
	if err := srv.Start(cmd.Context(), addr); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "listening on %s\n", addr)

	<-cmd.Context().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
