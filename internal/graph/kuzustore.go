//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/funcctx/internal/source"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path, so the graph of the last extraction survives a
// restart. KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(dbPath string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database %s: %w", dbPath, err)
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
// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS File(
		path STRING,
		language STRING,
		package STRING,
		loc INT64,
		PRIMARY KEY(path)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Function(
		id STRING,
		name STRING,
		file_path STRING,
		language STRING,
		package STRING,
		start_line INT64,
		end_line INT64,
		project_owned BOOLEAN,
		ord INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEFINES(FROM File TO Function)`,
	`CREATE REL TABLE IF NOT EXISTS CALLS(FROM Function TO Function)`,
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

// Reset deletes every node together with its relationships.
func (s *KuzuStore) Reset(_ context.Context) error {
	for _, table := range []string{"Function", "File"} {
		// Table name is a fixed internal constant, not user input.
		if _, err := s.query(fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", table), nil); err != nil {
			return fmt.Errorf("kuzu: reset %s: %w", table, err)
		}
	}
	return nil
}

// ---------- Write operations ----------

// AddFile inserts a File node.
func (s *KuzuStore) AddFile(_ context.Context, node FileNode) error {
	return s.exec(
		"CREATE (f:File {path: $path, language: $lang, package: $pkg, loc: $loc})",
		map[string]any{
			"path": node.Path,
			"lang": string(node.Language),
			"pkg":  node.Package,
			"loc":  int64(node.LOC),
		},
	)
}

// AddFunction inserts a Function node.
func (s *KuzuStore) AddFunction(_ context.Context, node FunctionNode) error {
	return s.exec(
		`CREATE (f:Function {
			id: $id,
			name: $name,
			file_path: $fp,
			language: $lang,
			package: $pkg,
			start_line: $sl,
			end_line: $el,
			project_owned: $owned,
			ord: $ord
		})`,
		map[string]any{
			"id":    node.ID,
			"name":  node.Name,
			"fp":    node.FilePath,
			"lang":  string(node.Language),
			"pkg":   node.Package,
			"sl":    int64(node.StartLine),
			"el":    int64(node.EndLine),
			"owned": node.ProjectOwned,
			"ord":   int64(node.Order),
		},
	)
}

// AddEdge inserts a relationship edge between two nodes.
// The Cypher statement is chosen based on the EdgeKind.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	cypher, err := edgeCypher(edge.Kind)
	if err != nil {
		return err
	}
	return s.exec(cypher, map[string]any{
		"src": edge.SourceID,
		"dst": edge.TargetID,
	})
}

// edgeCypher returns the MATCH-CREATE Cypher for the given edge kind.
func edgeCypher(kind EdgeKind) (string, error) {
	switch kind {
	case EdgeKindDefines:
		return `MATCH (a:File {path: $src}), (b:Function {id: $dst})
				CREATE (a)-[:DEFINES]->(b)`, nil
	case EdgeKindCalls:
		return `MATCH (a:Function {id: $src}), (b:Function {id: $dst})
				CREATE (a)-[:CALLS]->(b)`, nil
	default:
		return "", fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
	}
}

// ---------- Read operations ----------

const functionColumns = `f.id, f.name, f.file_path, f.language, f.package,
	f.start_line, f.end_line, f.project_owned, f.ord`

// GetFile retrieves a single File node by path, or returns nil if not found.
func (s *KuzuStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	rows, err := s.query(
		"MATCH (f:File {path: $path}) RETURN f.path, f.language, f.package, f.loc",
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &FileNode{
		Path:     toString(r[0]),
		Language: source.Language(toString(r[1])),
		Package:  toString(r[2]),
		LOC:      toInt(r[3]),
	}, nil
}

// GetFunction retrieves a single Function node by ID, or nil if not found.
func (s *KuzuStore) GetFunction(_ context.Context, id string) (*FunctionNode, error) {
	rows, err := s.query(
		"MATCH (f:Function {id: $id}) RETURN "+functionColumns,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToFunction(rows[0]), nil
}

// QueryFunctions returns functions whose name contains the query string,
// ignoring case. A limit <= 0 returns all matches.
func (s *KuzuStore) QueryFunctions(_ context.Context, queryStr string, limit int) ([]FunctionNode, error) {
	cypher := `MATCH (f:Function)`
	var params map[string]any
	if queryStr != "" {
		cypher += ` WHERE lower(f.name) CONTAINS lower($q)`
		params = map[string]any{"q": queryStr}
	}
	cypher += ` RETURN ` + functionColumns + ` ORDER BY f.ord, f.id`
	if limit > 0 {
		cypher += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	return rowsToFunctions(rows), nil
}

// Functions returns all functions in discovery order.
func (s *KuzuStore) Functions(_ context.Context) ([]FunctionNode, error) {
	rows, err := s.query("MATCH (f:Function) RETURN "+functionColumns+" ORDER BY f.ord, f.id", nil)
	if err != nil {
		return nil, err
	}
	return rowsToFunctions(rows), nil
}

// ---------- Graph traversal ----------

// GetDependencies performs a BFS over CALLS edges starting from the given
// function. It returns one DependencyChain per reachable function.
func (s *KuzuStore) GetDependencies(_ context.Context, id string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{id: true}
	queue := []bfsEntry{{path: []string{id}, depth: 0}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.callNeighbors(tip, dir)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, DependencyChain{
				Nodes: newPath,
				Depth: cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// callNeighbors returns immediate neighbors along CALLS edges, in discovery
// order.
func (s *KuzuStore) callNeighbors(id string, dir Direction) ([]string, error) {
	var cypher string
	switch dir {
	case DirectionCallees:
		cypher = "MATCH (a:Function {id: $id})-[:CALLS]->(b:Function) RETURN b.id ORDER BY b.ord"
	case DirectionCallers:
		cypher = "MATCH (a:Function)-[:CALLS]->(b:Function {id: $id}) RETURN a.id ORDER BY a.ord"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	rows, err := s.query(cypher, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// ---------- Edge enumeration ----------

// GetAllEdges returns DEFINES edges followed by CALLS edges, each ordered by
// the discovery order of their endpoints.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	type relQuery struct {
		cypher string
		kind   EdgeKind
	}

	queries := []relQuery{
		{"MATCH (a:File)-[:DEFINES]->(b:Function) RETURN a.path, b.id ORDER BY b.ord", EdgeKindDefines},
		{"MATCH (a:Function)-[:CALLS]->(b:Function) RETURN a.id, b.id ORDER BY a.ord, b.ord", EdgeKindCalls},
	}

	var edges []Edge
	for _, q := range queries {
		rows, err := s.query(q.cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, Edge{
				SourceID: toString(r[0]),
				TargetID: toString(r[1]),
				Kind:     q.kind,
			})
		}
	}
	return edges, nil
}

// ---------- Stats ----------

// Stats returns node and edge counts.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	files, err := s.count("MATCH (n:File) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	functions, err := s.count("MATCH (n:Function) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	defines, err := s.count("MATCH ()-[r:DEFINES]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	calls, err := s.count("MATCH ()-[r:CALLS]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	return &GraphStats{
		FileCount:     files,
		FunctionCount: functions,
		EdgeCount:     defines + calls,
	}, nil
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

// count runs a single-value count query.
func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToFunction converts a functionColumns row into a FunctionNode.
func rowToFunction(r []any) *FunctionNode {
	return &FunctionNode{
		ID:           toString(r[0]),
		Name:         toString(r[1]),
		FilePath:     toString(r[2]),
		Language:     source.Language(toString(r[3])),
		Package:      toString(r[4]),
		StartLine:    toInt(r[5]),
		EndLine:      toInt(r[6]),
		ProjectOwned: toBool(r[7]),
		Order:        toInt(r[8]),
	}
}

func rowsToFunctions(rows [][]any) []FunctionNode {
	out := make([]FunctionNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToFunction(r))
	}
	return out
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
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
