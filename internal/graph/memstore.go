package graph

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu        sync.RWMutex
	files     map[string]FileNode
	functions map[string]FunctionNode
	edges     []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		files:     make(map[string]FileNode),
		functions: make(map[string]FunctionNode),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// Reset drops all nodes and edges.
func (m *MemStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string]FileNode)
	m.functions = make(map[string]FunctionNode)
	m.edges = nil
	return nil
}

// AddFile stores a file node keyed by its path.
func (m *MemStore) AddFile(_ context.Context, node FileNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[node.Path] = node
	return nil
}

// AddFunction stores a function node keyed by its ID.
func (m *MemStore) AddFunction(_ context.Context, node FunctionNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.functions[node.ID] = node
	return nil
}

// AddEdge appends an edge to the internal slice.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	return nil
}

// GetFile returns the file node for the given path, or nil if not found.
func (m *MemStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// GetFunction returns the function with the given ID, or nil if not found.
func (m *MemStore) GetFunction(_ context.Context, id string) (*FunctionNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.functions[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// QueryFunctions returns functions whose name contains query
// (case-insensitive) in discovery order, up to limit results. A limit <= 0
// returns all matches.
func (m *MemStore) QueryFunctions(ctx context.Context, query string, limit int) ([]FunctionNode, error) {
	all, err := m.Functions(ctx)
	if err != nil {
		return nil, err
	}
	lowerQuery := strings.ToLower(query)
	var results []FunctionNode
	for _, fn := range all {
		if strings.Contains(strings.ToLower(fn.Name), lowerQuery) {
			results = append(results, fn)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// Functions returns all functions in discovery order.
func (m *MemStore) Functions(_ context.Context) ([]FunctionNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FunctionNode, 0, len(m.functions))
	for _, fn := range m.functions {
		out = append(out, fn)
	}
	sortFunctions(out)
	return out, nil
}

// GetDependencies performs a BFS on CALLS edges from id in the given
// direction, up to maxDepth hops. It returns one DependencyChain per
// reachable function.
func (m *MemStore) GetDependencies(_ context.Context, id string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		return nil, nil
	}

	// BFS state: each entry tracks the path from id to the current node.
	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{id: true}
	queue := []bfsEntry{{id: id, path: []string{id}}}
	var chains []DependencyChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range m.neighbors(entry.id, direction) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]string, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				chains = append(chains, DependencyChain{
					Nodes: newPath,
					Depth: len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return chains, nil
}

// neighbors returns IDs reachable from id over one CALLS edge.
func (m *MemStore) neighbors(id string, direction Direction) []string {
	var result []string
	for _, e := range m.edges {
		if e.Kind != EdgeKindCalls {
			continue
		}
		switch direction {
		case DirectionCallees:
			if e.SourceID == id {
				result = append(result, e.TargetID)
			}
		case DirectionCallers:
			if e.TargetID == id {
				result = append(result, e.SourceID)
			}
		}
	}
	return result
}

// GetAllEdges returns a copy of all edges in insertion order.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// Stats returns node and edge counts.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		FileCount:     len(m.files),
		FunctionCount: len(m.functions),
		EdgeCount:     len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// sortFunctions orders by discovery order, then ID.
func sortFunctions(fns []FunctionNode) {
	sort.Slice(fns, func(i, j int) bool {
		if fns[i].Order != fns[j].Order {
			return fns[i].Order < fns[j].Order
		}
		return fns[i].ID < fns[j].ID
	})
}
