package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/export"
	"github.com/incgraph/incgraph/internal/graph"
	"github.com/incgraph/incgraph/internal/snapshot"
)

var (
	diagramOut      string
	diagramSnapshot string
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [dir]",
	Short: "Render a directory's include graph as a Mermaid diagram",
	Long: `Diagram renders one directory's include graph as Mermaid flowchart text,
reading either a snapshot file or the live repository.

Examples:
  incgraph diagram src --repo nlohmann/json
  incgraph diagram src/core --snapshot graphs.json -o core.mmd`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiagram,
}

func init() {
	diagramCmd.Flags().StringVarP(&diagramOut, "out", "o", "", "write the diagram here instead of stdout")
	diagramCmd.Flags().StringVar(&diagramSnapshot, "snapshot", "", "read the graph from this snapshot file instead of crawling")
	rootCmd.AddCommand(diagramCmd)
}

func runDiagram(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = crawl.NormalizePath(args[0])
	}

	var g *graph.DependencyGraph
	if diagramSnapshot != "" {
		snap, err := snapshot.Load(diagramSnapshot)
		if err != nil {
			return err
		}
		dg, ok := snap.Graphs[dir]
		if !ok {
			return fmt.Errorf("directory %q is not in %s", dir, diagramSnapshot)
		}
		g = dg.Graph
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		crawler := crawl.NewCrawler(client, crawlOptions(cfg, nil)...)
		res, err := crawler.Analyze(cmd.Context(), dir)
		if err != nil {
			return err
		}
		g = res.Graph
	}

	title := dir
	if title == "" {
		title = "/"
	}
	text := export.Mermaid(g, title)

	if diagramOut == "" || diagramOut == "-" {
		fmt.Print(text)
		return nil
	}
	if err := os.WriteFile(diagramOut, []byte(text), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "diagram written to %s\n", diagramOut)
	return nil
}
