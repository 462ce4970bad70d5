//go:build cgo

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/graph"
)

// KuzuStore implements Store using KuzuDB as the graph backend. It requires
// CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path, so archives survive across runs. KuzuDB creates the leaf
// directory itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open file database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables. Directory
// rows exist for subdirectories before they are analyzed; the analyzed
// flag separates stubs from stored results.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Directory(
		path STRING,
		analyzed BOOLEAN,
		PRIMARY KEY(path)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS IncludeNode(
		key STRING,
		dir STRING,
		id STRING,
		ordinal INT64,
		grp INT64,
		val INT64,
		is_external BOOLEAN,
		is_system BOOLEAN,
		full_path STRING,
		in_degree INT64,
		is_leaf BOOLEAN,
		PRIMARY KEY(key)
	)`,
	`CREATE REL TABLE IF NOT EXISTS CONTAINS(FROM Directory TO IncludeNode)`,
	`CREATE REL TABLE IF NOT EXISTS INCLUDES(FROM IncludeNode TO IncludeNode, ordinal INT64)`,
	`CREATE REL TABLE IF NOT EXISTS HAS_SUBDIR(FROM Directory TO Directory)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// PutDirectory stores one directory analysis, replacing any previous one
// for the same path. Node and edge ordinals preserve builder order, and
// parallel edges keep one INCLUDES row each.
func (s *KuzuStore) PutDirectory(_ context.Context, res *crawl.DirectoryResult) error {
	if res == nil || res.Graph == nil {
		return fmt.Errorf("kuzu: put directory: nil result")
	}
	dir := crawl.NormalizePath(res.Path)

	if err := s.exec(
		"MERGE (d:Directory {path: $path}) SET d.analyzed = true",
		map[string]any{"path": dir},
	); err != nil {
		return err
	}
	if err := s.exec(
		"MATCH (d:Directory {path: $path})-[:CONTAINS]->(n:IncludeNode) DETACH DELETE n",
		map[string]any{"path": dir},
	); err != nil {
		return err
	}
	if err := s.exec(
		"MATCH (d:Directory {path: $path})-[r:HAS_SUBDIR]->() DELETE r",
		map[string]any{"path": dir},
	); err != nil {
		return err
	}

	leaves := make(map[string]bool, len(res.Graph.LeafNodeIDs))
	for _, id := range res.Graph.LeafNodeIDs {
		leaves[id] = true
	}

	for i := range res.Graph.Nodes {
		n := &res.Graph.Nodes[i]
		if err := s.exec(
			`CREATE (n:IncludeNode {
				key: $key,
				dir: $dir,
				id: $id,
				ordinal: $ord,
				grp: $grp,
				val: $val,
				is_external: $ext,
				is_system: $sys,
				full_path: $fp,
				in_degree: $deg,
				is_leaf: $leaf
			})`,
			map[string]any{
				"key":  nodeKey(dir, n.ID),
				"dir":  dir,
				"id":   n.ID,
				"ord":  int64(i),
				"grp":  int64(n.Group),
				"val":  int64(n.Val),
				"ext":  n.IsExternal,
				"sys":  n.IsSystem,
				"fp":   n.FullPath,
				"deg":  int64(n.InDegree),
				"leaf": leaves[n.ID],
			},
		); err != nil {
			return err
		}
		if err := s.exec(
			`MATCH (d:Directory {path: $path}), (n:IncludeNode {key: $key})
			 CREATE (d)-[:CONTAINS]->(n)`,
			map[string]any{"path": dir, "key": nodeKey(dir, n.ID)},
		); err != nil {
			return err
		}
	}

	for i, e := range res.Graph.Edges {
		if err := s.exec(
			`MATCH (a:IncludeNode {key: $src}), (b:IncludeNode {key: $dst})
			 CREATE (a)-[:INCLUDES {ordinal: $ord}]->(b)`,
			map[string]any{
				"src": nodeKey(dir, e.Source),
				"dst": nodeKey(dir, e.Target),
				"ord": int64(i),
			},
		); err != nil {
			return err
		}
	}

	for _, sub := range res.Subdirectories {
		sub = crawl.NormalizePath(sub)
		if err := s.exec(
			"MERGE (s:Directory {path: $sub})",
			map[string]any{"sub": sub},
		); err != nil {
			return err
		}
		if err := s.exec(
			`MATCH (d:Directory {path: $path}), (s:Directory {path: $sub})
			 CREATE (d)-[:HAS_SUBDIR]->(s)`,
			map[string]any{"path": dir, "sub": sub},
		); err != nil {
			return err
		}
	}
	return nil
}

// ---------- Read operations ----------

// GetDirectory reconstructs one stored analysis, or returns nil when the
// path was never analyzed (subdirectory stubs do not count).
func (s *KuzuStore) GetDirectory(_ context.Context, path string) (*crawl.DirectoryResult, error) {
	dir := crawl.NormalizePath(path)

	rows, err := s.query(
		"MATCH (d:Directory {path: $path}) RETURN d.analyzed",
		map[string]any{"path": dir},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || !toBool(rows[0][0]) {
		return nil, nil
	}

	res := &crawl.DirectoryResult{
		Path: dir,
		Graph: &graph.DependencyGraph{
			Nodes:       []graph.Node{},
			Edges:       []graph.Edge{},
			LeafNodeIDs: []string{},
		},
		Subdirectories: []string{},
	}

	nodeRows, err := s.query(
		`MATCH (d:Directory {path: $path})-[:CONTAINS]->(n:IncludeNode)
		 RETURN n.id, n.grp, n.val, n.is_external, n.is_system, n.full_path, n.in_degree, n.is_leaf
		 ORDER BY n.ordinal`,
		map[string]any{"path": dir},
	)
	if err != nil {
		return nil, err
	}
	for _, r := range nodeRows {
		n := graph.Node{
			ID:         toString(r[0]),
			Group:      toInt(r[1]),
			Val:        toInt(r[2]),
			IsExternal: toBool(r[3]),
			IsSystem:   toBool(r[4]),
			FullPath:   toString(r[5]),
			InDegree:   toInt(r[6]),
		}
		res.Graph.Nodes = append(res.Graph.Nodes, n)
		if toBool(r[7]) {
			res.Graph.LeafNodeIDs = append(res.Graph.LeafNodeIDs, n.ID)
		}
	}

	edgeRows, err := s.query(
		`MATCH (d:Directory {path: $path})-[:CONTAINS]->(a:IncludeNode)-[r:INCLUDES]->(b:IncludeNode)
		 RETURN a.id, b.id
		 ORDER BY r.ordinal`,
		map[string]any{"path": dir},
	)
	if err != nil {
		return nil, err
	}
	for _, r := range edgeRows {
		res.Graph.Edges = append(res.Graph.Edges, graph.Edge{
			Source: toString(r[0]),
			Target: toString(r[1]),
		})
	}

	subRows, err := s.query(
		`MATCH (d:Directory {path: $path})-[:HAS_SUBDIR]->(s:Directory)
		 RETURN s.path ORDER BY s.path`,
		map[string]any{"path": dir},
	)
	if err != nil {
		return nil, err
	}
	for _, r := range subRows {
		res.Subdirectories = append(res.Subdirectories, toString(r[0]))
	}
	return res, nil
}

// Directories lists analyzed paths, sorted.
func (s *KuzuStore) Directories(_ context.Context) ([]string, error) {
	rows, err := s.query(
		"MATCH (d:Directory) WHERE d.analyzed = true RETURN d.path ORDER BY d.path",
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// LeafFiles returns leaf files ordered by directory then node order.
func (s *KuzuStore) LeafFiles(_ context.Context, dir string) ([]LeafFile, error) {
	cypher := `MATCH (n:IncludeNode) WHERE n.is_leaf = true
		 RETURN n.dir, n.id, n.full_path ORDER BY n.dir, n.ordinal`
	params := map[string]any{}
	if dir != "" {
		cypher = `MATCH (n:IncludeNode {dir: $dir}) WHERE n.is_leaf = true
		 RETURN n.dir, n.id, n.full_path ORDER BY n.ordinal`
		params["dir"] = crawl.NormalizePath(dir)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]LeafFile, 0, len(rows))
	for _, r := range rows {
		out = append(out, LeafFile{
			Directory: toString(r[0]),
			ID:        toString(r[1]),
			FullPath:  toString(r[2]),
		})
	}
	return out, nil
}

// MostIncluded ranks nodes with non-zero in-degree, highest first.
func (s *KuzuStore) MostIncluded(_ context.Context, limit int) ([]Ranked, error) {
	cypher := `MATCH (n:IncludeNode) WHERE n.in_degree > 0
		 RETURN n.dir, n.id, n.in_degree
		 ORDER BY n.in_degree DESC, n.dir, n.id`
	params := map[string]any{}
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]Ranked, 0, len(rows))
	for _, r := range rows {
		out = append(out, Ranked{
			Directory: toString(r[0]),
			ID:        toString(r[1]),
			InDegree:  toInt(r[2]),
		})
	}
	return out, nil
}

// Stats returns archive-wide counts.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	st := &Stats{}
	counts := []struct {
		cypher string
		dst    *int
	}{
		{"MATCH (d:Directory) WHERE d.analyzed = true RETURN count(d)", &st.Directories},
		{"MATCH (n:IncludeNode) WHERE n.is_external = false RETURN count(n)", &st.InternalFiles},
		{"MATCH (n:IncludeNode) WHERE n.is_external = true RETURN count(n)", &st.ExternalNodes},
		{"MATCH ()-[r:INCLUDES]->() RETURN count(r)", &st.Edges},
		{"MATCH (n:IncludeNode) WHERE n.is_leaf = true RETURN count(n)", &st.LeafFiles},
	}
	for _, c := range counts {
		rows, err := s.query(c.cypher, nil)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			*c.dst = toInt(rows[0][0])
		}
	}
	return st, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// nodeKey produces the archive-wide identifier for a node: "dir:id".
func nodeKey(dir, id string) string {
	return dir + ":" + id
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, bool, string). These helpers
// safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
