package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/incgraph/incgraph/internal/config"
	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/export"
	"github.com/incgraph/incgraph/internal/graph"
	"github.com/incgraph/incgraph/internal/repoapi"
)

var (
	flagConfig  string
	flagRepo    string
	flagRef     string
	flagToken   string
	flagDelay   int
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "incgraph",
	Short: "Include-dependency graphs for C/C++ repositories",
	Long: `incgraph crawls a repository through the GitHub contents API, extracts
#include directives from C/C++ sources, and builds one dependency graph
per directory: files and included headers as nodes, include directives as
edges, with in-degrees and leaf files computed per directory.

Results can be written as a JSON snapshot, served over HTTP for the
visualization front end, rendered as Mermaid diagrams, archived in an
embedded Kuzu graph database, or exposed as MCP tools.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", ".", "directory containing incgraph.yml")
	rootCmd.PersistentFlags().StringVar(&flagRepo, "repo", "", "repository as owner/name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagRef, "ref", "", "branch, tag, or commit to read (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "API token (default: INCGRAPH_TOKEN or GITHUB_TOKEN)")
	rootCmd.PersistentFlags().IntVar(&flagDelay, "delay", 0, "milliseconds to wait before each API request (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "print crawl progress to stderr")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads incgraph.yml and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagRepo != "" {
		cfg.Repo = flagRepo
	}
	if flagRef != "" {
		cfg.Ref = flagRef
	}
	if cmd.Flags().Changed("delay") {
		cfg.RequestDelayMs = flagDelay
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newClient builds the repository API client from config and flags.
func newClient(cfg *config.Config) (repoapi.Client, error) {
	if cfg.Repo == "" {
		return nil, fmt.Errorf("no repository configured; set repo in incgraph.yml or pass --repo")
	}
	owner, name, err := cfg.SplitRepo()
	if err != nil {
		return nil, err
	}

	token := flagToken
	if token == "" {
		token = config.Token()
	}

	opts := []repoapi.GitHubOption{
		repoapi.WithRequestDelay(cfg.Delay()),
	}
	if token != "" {
		opts = append(opts, repoapi.WithToken(token))
	}
	if cfg.Ref != "" {
		opts = append(opts, repoapi.WithRef(cfg.Ref))
	}

	var client repoapi.Client = repoapi.NewGitHubClient(owner, name, opts...)
	if cfg.Cache.Entries > 0 {
		cached, err := repoapi.NewCachingClient(client, cfg.Cache.Entries)
		if err != nil {
			return nil, err
		}
		client = cached
	}
	return client, nil
}

// crawlOptions builds crawler options from config. A configured extension
// list replaces the default builder, so diagnostics are rewired here.
func crawlOptions(cfg *config.Config, rep *crawl.Reporter) []crawl.Option {
	opts := []crawl.Option{
		crawl.WithConcurrency(cfg.Concurrency),
		crawl.WithMaxDirs(cfg.MaxDirs),
	}
	if rep != nil {
		opts = append(opts, crawl.WithReporter(rep))
	}
	if len(cfg.Extensions) > 0 {
		opts = append(opts, crawl.WithBuilder(graph.NewBuilder(
			graph.WithExtensions(cfg.Extensions),
			graph.WithDiagnostics(func(d graph.Diagnostic) {
				log.Printf("WARNING: crawl: parse %s: %v", d.Path, d.Err)
				if rep != nil {
					rep.Emit(crawl.Event{Kind: crawl.EventSkipped, Path: d.Path, Detail: d.Err.Error()})
				}
			}),
		)))
	}
	return opts
}

// startProgress prints crawl progress to stderr until the reporter closes.
// The returned stop function closes the reporter and waits for the printer
// to drain.
func startProgress() (*crawl.Reporter, func()) {
	rep := crawl.NewReporter()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range rep.Subscribe() {
			fmt.Fprintln(os.Stderr, crawl.FormatEvent(ev))
		}
	}()
	return rep, func() {
		rep.Close()
		<-done
	}
}

// writeResult writes v as indented JSON to path, or to stdout when path is
// empty or "-".
func writeResult(path string, v any) error {
	if path == "" || path == "-" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	if err := export.WriteJSON(path, v); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "written to %s\n", path)
	return nil
}
