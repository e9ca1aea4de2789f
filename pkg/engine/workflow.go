package engine

import "sort"

// wfEdge is a single workflow edge: the value the producer handed to the
// consumer, if any (no_call runs never carry a value).
type wfEdge struct {
	Value    any
	HasValue bool
}

// WorkflowGraph is the directed graph of edges that actually fired during
// a dispatch run: a strict subset of the dispatcher's static graph, with
// values attached. It is intentionally simpler than pkg/graph.Graph since
// it only ever needs predecessor lookup and node presence.
type WorkflowGraph struct {
	nodes   map[string]bool
	forward map[string]map[string]wfEdge
	reverse map[string]map[string]wfEdge
}

// NewWorkflowGraph returns an empty workflow graph. pkg/transform's
// ShrinkDsp uses it to assemble a synthetic workflow from several Dispatch
// runs, outside of any single live run.
func NewWorkflowGraph() *WorkflowGraph {
	return newWorkflowGraph()
}

func newWorkflowGraph() *WorkflowGraph {
	return &WorkflowGraph{
		nodes:   make(map[string]bool),
		forward: make(map[string]map[string]wfEdge),
		reverse: make(map[string]map[string]wfEdge),
	}
}

func (w *WorkflowGraph) AddNode(id string) {
	if w.nodes[id] {
		return
	}
	w.nodes[id] = true
	w.forward[id] = make(map[string]wfEdge)
	w.reverse[id] = make(map[string]wfEdge)
}

func (w *WorkflowGraph) HasNode(id string) bool { return w.nodes[id] }

func (w *WorkflowGraph) AddEdge(from, to string, value any, hasValue bool) {
	w.AddNode(from)
	w.AddNode(to)
	e := wfEdge{Value: value, HasValue: hasValue}
	w.forward[from][to] = e
	w.reverse[to][from] = e
}

func (w *WorkflowGraph) RemoveEdge(from, to string) {
	delete(w.forward[from], to)
	delete(w.reverse[to], from)
}

func (w *WorkflowGraph) RemoveNode(id string) {
	if !w.nodes[id] {
		return
	}
	for to := range w.forward[id] {
		delete(w.reverse[to], id)
	}
	for from := range w.reverse[id] {
		delete(w.forward[from], id)
	}
	delete(w.forward, id)
	delete(w.reverse, id)
	delete(w.nodes, id)
}

func (w *WorkflowGraph) Predecessors(id string) map[string]wfEdge { return w.reverse[id] }
func (w *WorkflowGraph) Successors(id string) map[string]wfEdge   { return w.forward[id] }
func (w *WorkflowGraph) InDegree(id string) int                  { return len(w.reverse[id]) }

// NodeIDs returns every node in sorted order.
func (w *WorkflowGraph) NodeIDs() []string {
	ids := make([]string, 0, len(w.nodes))
	for id := range w.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
