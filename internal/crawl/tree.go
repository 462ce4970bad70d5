package crawl

import (
	"context"
	"fmt"
	"log"

	"github.com/incgraph/incgraph/internal/repoapi"
	"golang.org/x/sync/errgroup"
)

// TreeResult aggregates a recursive crawl. Results holds one entry per
// analyzed directory, keyed by normalized path; Failed records directories
// whose analysis failed, whose subtrees were therefore never reached.
type TreeResult struct {
	Results map[string]*DirectoryResult
	Failed  map[string]error
}

// CrawlTree walks every directory reachable from roots, breadth first, and
// analyzes each one. Directories of the same depth are analyzed with
// bounded parallelism (WithConcurrency). Per-directory failures are logged
// and recorded, not fatal; a rate-limit rejection aborts the whole crawl
// and propagates, since every further request would bounce too.
func (c *Crawler) CrawlTree(ctx context.Context, roots []string) (*TreeResult, error) {
	tree := &TreeResult{
		Results: make(map[string]*DirectoryResult),
		Failed:  make(map[string]error),
	}

	visited := make(map[string]struct{})
	level := make([]string, 0, len(roots))
	for _, r := range roots {
		r = NormalizePath(r)
		if _, seen := visited[r]; seen {
			continue
		}
		visited[r] = struct{}{}
		level = append(level, r)
		c.emit(Event{Kind: EventQueued, Path: displayPath(r)})
	}

	capped := false
	for len(level) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("crawl: aborted: %w", err)
		}

		type slot struct {
			res *DirectoryResult
			err error
		}
		slots := make([]slot, len(level))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for i, dir := range level {
			g.Go(func() error {
				res, err := c.Analyze(gctx, dir)
				if err != nil {
					if repoapi.IsRateLimit(err) || gctx.Err() != nil {
						return err // cancels the remaining in-flight analyses
					}
					slots[i] = slot{err: err}
					return nil
				}
				slots[i] = slot{res: res}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("crawl: aborted: %w", err)
		}

		var next []string
		for i, dir := range level {
			s := slots[i]
			if s.err != nil {
				log.Printf("WARNING: crawl: %s failed, skipping subtree: %v", displayPath(dir), s.err)
				c.emit(Event{Kind: EventFailed, Path: displayPath(dir), Detail: s.err.Error()})
				tree.Failed[dir] = s.err
				continue
			}
			tree.Results[dir] = s.res

			for _, sub := range s.res.Subdirectories {
				if _, seen := visited[sub]; seen {
					continue
				}
				if c.maxDirs > 0 && len(visited) >= c.maxDirs {
					if !capped {
						capped = true
						log.Printf("WARNING: crawl: directory cap %d reached, deeper levels skipped", c.maxDirs)
					}
					continue
				}
				visited[sub] = struct{}{}
				next = append(next, sub)
				c.emit(Event{Kind: EventQueued, Path: sub})
			}
		}
		level = next
	}

	return tree, nil
}
