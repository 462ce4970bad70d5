// Package crawl walks a remote repository tree directory by directory and
// turns each directory listing into an include dependency graph.
package crawl

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/incgraph/incgraph/internal/graph"
	"github.com/incgraph/incgraph/internal/repoapi"
)

// DirectoryResult is the analysis of one directory: its include graph plus
// its immediate subdirectories as sorted, deduplicated repository-relative
// paths.
type DirectoryResult struct {
	Path           string                 `json:"path"`
	Graph          *graph.DependencyGraph `json:"graph"`
	Subdirectories []string               `json:"subdirectories"`
}

// Crawler analyzes repository directories through a repoapi.Client. It is
// safe for concurrent use; all mutable state lives in per-call values.
type Crawler struct {
	client      repoapi.Client
	builder     *graph.Builder
	reporter    *Reporter
	concurrency int
	maxDirs     int
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithBuilder replaces the graph builder. Callers supplying their own
// builder also own its diagnostics wiring.
func WithBuilder(b *graph.Builder) Option {
	return func(c *Crawler) { c.builder = b }
}

// WithReporter attaches a progress reporter. Nil disables events.
func WithReporter(r *Reporter) Option {
	return func(c *Crawler) { c.reporter = r }
}

// WithConcurrency bounds how many directories of one tree level are
// analyzed in parallel. Values below 1 mean sequential.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMaxDirs caps how many directories a tree crawl analyzes in total.
// Zero means unlimited.
func WithMaxDirs(n int) Option {
	return func(c *Crawler) { c.maxDirs = n }
}

// NewCrawler creates a Crawler reading through client. Without WithBuilder
// it uses the default extension allow-list and routes parse diagnostics to
// the log and the reporter.
func NewCrawler(client repoapi.Client, opts ...Option) *Crawler {
	c := &Crawler{
		client:      client,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.builder == nil {
		c.builder = graph.NewBuilder(graph.WithDiagnostics(func(d graph.Diagnostic) {
			log.Printf("WARNING: crawl: parse %s: %v", d.Path, d.Err)
			c.emit(Event{Kind: EventSkipped, Path: d.Path, Detail: d.Err.Error()})
		}))
	}
	return c
}

// Analyze lists one directory, fetches every file that passes the
// extension filter, and builds the directory's include graph.
//
// A file whose fetch fails stays in the graph as a node without outgoing
// edges; only rate-limit errors and cancellation abort the analysis. A
// failed listing fails the whole directory.
func (c *Crawler) Analyze(ctx context.Context, dir string) (*DirectoryResult, error) {
	dir = NormalizePath(dir)

	entries, err := c.client.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("crawl: list %s: %w", displayPath(dir), err)
	}

	subdirs := []string{}
	files := make([]repoapi.Entry, 0, len(entries))
	for _, e := range entries {
		switch e.Type {
		case repoapi.EntryDir:
			subdirs = append(subdirs, NormalizePath(e.Path))
		case repoapi.EntryFile:
			files = append(files, e)
		}
	}
	slices.Sort(subdirs)
	subdirs = slices.Compact(subdirs)

	sources := make([]graph.SourceFile, 0, len(files))
	for _, f := range files {
		if !c.builder.Allowed(f.Name) {
			continue
		}
		content, err := c.client.GetContent(ctx, f.Path)
		if err != nil {
			if repoapi.IsRateLimit(err) || ctx.Err() != nil {
				return nil, fmt.Errorf("crawl: fetch %s: %w", f.Path, err)
			}
			log.Printf("WARNING: crawl: fetch %s failed, keeping bare node: %v", f.Path, err)
			c.emit(Event{Kind: EventSkipped, Path: f.Path, Detail: err.Error()})
			content = nil
		}
		sources = append(sources, graph.SourceFile{Name: f.Name, Path: f.Path, Content: content})
	}

	g := c.builder.Build(sources)
	c.emit(Event{Kind: EventAnalyzed, Path: displayPath(dir), Files: g.InternalCount(), Subdirs: len(subdirs)})

	return &DirectoryResult{
		Path:           dir,
		Graph:          g,
		Subdirectories: subdirs,
	}, nil
}

// emit sends a progress event if a reporter is attached.
func (c *Crawler) emit(event Event) {
	if c.reporter != nil {
		c.reporter.Emit(event)
	}
}

// NormalizePath strips leading and trailing separators so every directory
// is keyed the same way everywhere. The repository root is the empty
// string.
func NormalizePath(p string) string {
	return strings.Trim(p, "/")
}

// displayPath keeps the repository root readable in logs and events.
func displayPath(dir string) string {
	if dir == "" {
		return "/"
	}
	return dir
}
