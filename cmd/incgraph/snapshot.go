package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/snapshot"
)

var (
	snapshotOut     string
	snapshotSplit   bool
	snapshotArchive string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [root ...]",
	Short: "Crawl the repository tree and write a snapshot",
	Long: `Snapshot crawls every directory reachable from the configured roots
(or the roots given as arguments), builds one include graph per
directory, and writes the aggregate as a JSON snapshot.

Examples:
  incgraph snapshot --repo nlohmann/json
  incgraph snapshot src tools -o graphs.json
  incgraph snapshot --split-roots
  incgraph snapshot --archive graphs.kuzu`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "", "snapshot path (default from config)")
	snapshotCmd.Flags().BoolVar(&snapshotSplit, "split-roots", false, "write one snapshot file per root")
	snapshotCmd.Flags().StringVar(&snapshotArchive, "archive", "", "also import the snapshot into a Kuzu database at this path")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	roots := cfg.Roots
	if len(args) > 0 {
		roots = args
	}

	var rep *crawl.Reporter
	var stopProgress func()
	if flagVerbose {
		rep, stopProgress = startProgress()
	}

	crawler := crawl.NewCrawler(client, crawlOptions(cfg, rep)...)
	tree, err := crawler.CrawlTree(cmd.Context(), roots)
	if stopProgress != nil {
		stopProgress()
	}
	if err != nil {
		return err
	}

	snap := snapshot.Assemble(roots, tree.Results)

	outPath := snapshotOut
	if outPath == "" {
		outPath = cfg.Output
	}

	if snapshotSplit {
		parts := snapshot.PartitionByRoot(snap)
		names := make([]string, 0, len(parts))
		for root := range parts {
			names = append(names, root)
		}
		sort.Strings(names)
		for _, root := range names {
			p := splitRootPath(outPath, root)
			if err := snapshot.Write(p, parts[root]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "snapshot written to %s\n", p)
		}
	} else {
		if err := snapshot.Write(outPath, snap); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "snapshot written to %s\n", outPath)
	}

	if snapshotArchive != "" {
		if err := importArchive(cmd.Context(), snapshotArchive, snap); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "archive written to %s\n", snapshotArchive)
	}

	if len(tree.Failed) > 0 {
		dirs := make([]string, 0, len(tree.Failed))
		for dir := range tree.Failed {
			dirs = append(dirs, dir)
		}
		sort.Strings(dirs)
		for _, dir := range dirs {
			fmt.Fprintf(os.Stderr, "  ✗ %s: %v\n", dir, tree.Failed[dir])
		}
	}

	st := snap.Stats()
	fmt.Fprintf(os.Stderr, "%d directories, %d files, %d edges, %d leaf files\n",
		st.Directories, st.InternalFiles, st.Edges, st.LeafFiles)
	return nil
}

// splitRootPath derives a per-root snapshot path from the base output path:
// graphs.json + "src/core" becomes graphs.src_core.json.
func splitRootPath(base, root string) string {
	name := strings.ReplaceAll(crawl.NormalizePath(root), "/", "_")
	if name == "" {
		name = "root"
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "." + name + ext
}
