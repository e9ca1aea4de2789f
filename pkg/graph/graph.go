// Package graph provides the directed multigraph primitive the dispatcher
// is built on: nodes identified by string id, attributed edges, and the
// traversal helpers the dispatch engine and graph transformations need
// (predecessor/successor lookup, induced subgraphs, cycle enumeration).
//
// A Graph is not safe for concurrent mutation; readers may run concurrently
// with each other but not with a writer.
package graph

import (
	"sort"

	"github.com/arcidispatch/dispatch/pkg/types"
)

// Graph is a directed multigraph keyed by string node id. At most one edge
// is stored per (from, to) pair; the dispatcher's bipartite convention
// means a data node never has an edge directly to another data node, but
// Graph itself does not enforce that — it is a plain graph primitive.
type Graph struct {
	nodes   map[string]any // node attrs: *types.DataAttrs or *types.FunctionAttrs
	forward map[string]map[string]types.EdgeAttrs
	reverse map[string]map[string]types.EdgeAttrs
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]any),
		forward: make(map[string]map[string]types.EdgeAttrs),
		reverse: make(map[string]map[string]types.EdgeAttrs),
	}
}

// AddNode inserts or overwrites a node's attribute bag.
func (g *Graph) AddNode(id string, attrs any) {
	if _, ok := g.nodes[id]; !ok {
		g.forward[id] = make(map[string]types.EdgeAttrs)
		g.reverse[id] = make(map[string]types.EdgeAttrs)
	}
	g.nodes[id] = attrs
}

// HasNode reports whether id has been added.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the attribute bag for id, or nil if absent.
func (g *Graph) Node(id string) any {
	return g.nodes[id]
}

// RemoveNode deletes id and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	if !g.HasNode(id) {
		return
	}
	for to := range g.forward[id] {
		delete(g.reverse[to], id)
	}
	for from := range g.reverse[id] {
		delete(g.forward[from], id)
	}
	delete(g.forward, id)
	delete(g.reverse, id)
	delete(g.nodes, id)
}

// AddEdge inserts or overwrites the edge from -> to. Both endpoints must
// already exist.
func (g *Graph) AddEdge(from, to string, attrs types.EdgeAttrs) {
	g.forward[from][to] = attrs
	g.reverse[to][from] = attrs
}

// RemoveEdge deletes the edge from -> to, if present.
func (g *Graph) RemoveEdge(from, to string) {
	delete(g.forward[from], to)
	delete(g.reverse[to], from)
}

// HasEdge reports whether an edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.forward[from][to]
	return ok
}

// Predecessors returns the nodes with an edge into id.
func (g *Graph) Predecessors(id string) map[string]types.EdgeAttrs {
	return g.reverse[id]
}

// Successors returns the nodes id has an edge into.
func (g *Graph) Successors(id string) map[string]types.EdgeAttrs {
	return g.forward[id]
}

// NodeIDs returns every node id in sorted order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InDegree returns the number of edges into id.
func (g *Graph) InDegree(id string) int { return len(g.reverse[id]) }

// OutDegree returns the number of edges out of id.
func (g *Graph) OutDegree(id string) int { return len(g.forward[id]) }

// IsolatedNodes returns, in sorted order, every node with no edges at all.
func (g *Graph) IsolatedNodes() []string {
	var out []string
	for _, id := range g.NodeIDs() {
		if g.InDegree(id) == 0 && g.OutDegree(id) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Subgraph returns a new graph containing exactly the nodes in keep and
// every edge of g whose endpoints are both in keep. Node and edge attrs are
// shared by reference, not copied.
func (g *Graph) Subgraph(keep map[string]bool) *Graph {
	out := New()
	for _, id := range g.NodeIDs() {
		if keep[id] {
			out.AddNode(id, g.nodes[id])
		}
	}
	for _, from := range g.NodeIDs() {
		if !keep[from] {
			continue
		}
		for to, attrs := range g.forward[from] {
			if keep[to] {
				out.AddEdge(from, to, attrs)
			}
		}
	}
	return out
}

// Clone returns a deep-enough copy: a new adjacency structure sharing the
// same node/edge attribute values.
func (g *Graph) Clone() *Graph {
	return g.Subgraph(allTrue(g.nodes))
}

func allTrue(m map[string]any) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// SimpleCycles enumerates every simple cycle reachable from each node,
// returned as the ordered list of node ids that make up the cycle (the
// first id is not repeated at the end). Cycles are deduplicated and sorted
// by their lexicographically smallest rotation, giving deterministic
// output for a deterministic graph.
func (g *Graph) SimpleCycles() [][]string {
	seen := make(map[string]bool)
	var cycles [][]string
	for _, start := range g.NodeIDs() {
		g.findCyclesFrom(start, start, []string{start}, map[string]bool{start: true}, &cycles, seen)
	}
	sort.Slice(cycles, func(i, j int) bool {
		return joinIDs(cycles[i]) < joinIDs(cycles[j])
	})
	return cycles
}

func (g *Graph) findCyclesFrom(start, cur string, path []string, onPath map[string]bool, cycles *[][]string, seen map[string]bool) {
	nexts := make([]string, 0, len(g.forward[cur]))
	for to := range g.forward[cur] {
		nexts = append(nexts, to)
	}
	sort.Strings(nexts)
	for _, next := range nexts {
		if next == start {
			key := joinIDs(normalizeCycle(path))
			if !seen[key] {
				seen[key] = true
				cyc := make([]string, len(path))
				copy(cyc, path)
				*cycles = append(*cycles, cyc)
			}
			continue
		}
		if onPath[next] {
			continue
		}
		onPath[next] = true
		g.findCyclesFrom(start, next, append(path, next), onPath, cycles, seen)
		delete(onPath, next)
	}
}

func normalizeCycle(path []string) []string {
	minIdx := 0
	for i, id := range path {
		if id < path[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, len(path))
	copy(out, path[minIdx:])
	copy(out[len(path)-minIdx:], path[:minIdx])
	return out
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ">"
		}
		out += id
	}
	return out
}
