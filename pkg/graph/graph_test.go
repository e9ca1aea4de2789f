package graph

import (
	"reflect"
	"testing"

	"github.com/arcidispatch/dispatch/pkg/types"
)

func buildTriangle() *Graph {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id, nil)
	}
	g.AddEdge("a", "b", types.EdgeAttrs{})
	g.AddEdge("b", "c", types.EdgeAttrs{})
	g.AddEdge("c", "a", types.EdgeAttrs{})
	return g
}

func TestPredecessorsSuccessors(t *testing.T) {
	g := buildTriangle()
	if _, ok := g.Successors("a")["b"]; !ok {
		t.Fatalf("expected edge a->b")
	}
	if _, ok := g.Predecessors("a")["c"]; !ok {
		t.Fatalf("expected edge c->a recorded as predecessor of a")
	}
}

func TestRemoveNodeDropsEdges(t *testing.T) {
	g := buildTriangle()
	g.RemoveNode("b")
	if g.HasEdge("a", "b") || g.HasEdge("b", "c") {
		t.Fatalf("edges touching removed node should be gone")
	}
	if g.HasNode("b") {
		t.Fatalf("node should be gone")
	}
}

func TestSubgraph(t *testing.T) {
	g := buildTriangle()
	sub := g.Subgraph(map[string]bool{"a": true, "b": true})
	if sub.HasEdge("b", "c") {
		t.Fatalf("edge to excluded node should not survive")
	}
	if !sub.HasEdge("a", "b") {
		t.Fatalf("edge between kept nodes should survive")
	}
}

func TestIsolatedNodes(t *testing.T) {
	g := New()
	g.AddNode("lonely", nil)
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddEdge("a", "b", types.EdgeAttrs{})
	if got := g.IsolatedNodes(); !reflect.DeepEqual(got, []string{"lonely"}) {
		t.Fatalf("got %v", got)
	}
}

func TestSimpleCyclesTriangle(t *testing.T) {
	g := buildTriangle()
	cycles := g.SimpleCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected exactly one cycle, got %v", cycles)
	}
	if !reflect.DeepEqual(cycles[0], []string{"a", "b", "c"}) {
		t.Fatalf("unexpected cycle %v", cycles[0])
	}
}

func TestSimpleCyclesAcyclic(t *testing.T) {
	g := New()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddEdge("a", "b", types.EdgeAttrs{})
	if cycles := g.SimpleCycles(); len(cycles) != 0 {
		t.Fatalf("expected no cycles, got %v", cycles)
	}
}
