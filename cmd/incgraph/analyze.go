package main

import (
	"github.com/spf13/cobra"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/snapshot"
)

var analyzeOut string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [dir]",
	Short: "Build the include graph for a single directory",
	Long: `Analyze lists one repository directory, fetches its C/C++ sources, and
prints the directory's include dependency graph as JSON. Without an
argument it analyzes the repository root.

Examples:
  incgraph analyze src --repo nlohmann/json
  incgraph analyze src/core -o core.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "write JSON here instead of stdout")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	dir := ""
	if len(args) == 1 {
		dir = args[0]
	}

	var rep *crawl.Reporter
	var stopProgress func()
	if flagVerbose {
		rep, stopProgress = startProgress()
	}

	crawler := crawl.NewCrawler(client, crawlOptions(cfg, rep)...)
	res, err := crawler.Analyze(cmd.Context(), dir)
	if stopProgress != nil {
		stopProgress()
	}
	if err != nil {
		return err
	}

	return writeResult(analyzeOut, snapshot.DirectoryGraph{
		Graph:          res.Graph,
		Subdirectories: res.Subdirectories,
	})
}
