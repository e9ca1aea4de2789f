// Package transform derives new dispatchers from an existing one: induced
// sub-dispatchers over a node/edge selection, sub-dispatchers induced by a
// past run's workflow, a reduced dispatcher spanning only what a given
// input/output pair can reach, and a copy with its unresolvable cycles cut.
package transform

import (
	"sort"

	"github.com/arcidispatch/dispatch/pkg/config"
	"github.com/arcidispatch/dispatch/pkg/dispatcher"
	"github.com/arcidispatch/dispatch/pkg/engine"
	"github.com/arcidispatch/dispatch/pkg/graph"
	"github.com/arcidispatch/dispatch/pkg/types"
)

const startNodeID = "START"

// GetSubDsp returns the sub-dispatcher induced by nodeKeys, with the edges
// named in edgeKeys removed. A function node survives only if every one of
// its declared inputs is also in nodeKeys; a function node left with no
// outputs, and any node left with no edges at all, is then dropped too.
//
// The returned dispatcher's node and edge attributes point at the same
// values as d: mutating them is visible in both, but the graph shape is
// independent.
func GetSubDsp(d *dispatcher.Dispatcher, nodeKeys []string, edgeKeys [][2]string) *dispatcher.Dispatcher {
	bunch := make(map[string]bool, len(nodeKeys))
	for _, id := range nodeKeys {
		bunch[id] = true
	}

	sub := d.Graph.Subgraph(bunch)

	for _, u := range nodeKeys {
		fa, ok := sub.Node(u).(*types.FunctionAttrs)
		if !ok {
			continue
		}
		for _, in := range fa.Inputs {
			if !bunch[in] {
				sub.RemoveNode(u)
				break
			}
		}
	}

	for _, e := range edgeKeys {
		sub.RemoveEdge(e[0], e[1])
	}

	for _, u := range sub.NodeIDs() {
		if _, ok := sub.Node(u).(*types.FunctionAttrs); ok && sub.OutDegree(u) == 0 {
			sub.RemoveNode(u)
		}
	}

	for _, id := range sub.IsolatedNodes() {
		sub.RemoveNode(id)
	}

	out := dispatcher.New(d.Name)
	out.Graph = sub
	out.DefaultValues = defaultValuesFor(d, sub)
	return out
}

func defaultValuesFor(d *dispatcher.Dispatcher, sub *graph.Graph) map[string]any {
	defaults := make(map[string]any)
	for k, v := range d.DefaultValues {
		if sub.HasNode(k) {
			defaults[k] = v
		}
	}
	return defaults
}

// GetSubDspFromWorkflow returns the sub-dispatcher induced by a
// breadth-first search over wf starting from sources: the reachable nodes
// and, for each, the static edge that carried it in the search direction.
//
// With reverse false, wf is walked forward from sources (as a workflow
// graph produced by engine.Dispatch normally is) and a function node is
// only pulled in, together with all of its input edges at once, the first
// time every one of its static inputs has been reached. With reverse true,
// wf is walked backward from sources (predecessors instead of successors)
// and every reached node is wired in as soon as it is seen, since a
// function's inputs are exactly what a reverse search discovers one at a
// time.
func GetSubDspFromWorkflow(d *dispatcher.Dispatcher, wf *engine.WorkflowGraph, sources []string, reverse bool) *dispatcher.Dispatcher {
	sub := graph.New()
	family := make(map[string]bool)
	var queue []string

	addNode := func(id string) {
		if family[id] {
			return
		}
		family[id] = true
		sub.AddNode(id, d.Graph.Node(id))
		queue = append(queue, id)
	}

	tryAddFunction := func(id string) (handled bool) {
		fa, ok := d.Graph.Node(id).(*types.FunctionAttrs)
		if !ok {
			return false
		}
		for _, in := range fa.Inputs {
			if !family[in] {
				return true
			}
		}
		addNode(id)
		for _, in := range fa.Inputs {
			sub.AddEdge(in, id, d.Graph.Successors(in)[id])
		}
		return true
	}

	for _, s := range sources {
		if d.Graph.HasNode(s) && wf.HasNode(s) {
			addNode(s)
		}
	}

	for i := 0; i < len(queue); i++ {
		parent := queue[i]
		for _, child := range neighborIDs(wf, reverse, parent) {
			if child == startNodeID {
				continue
			}
			if !reverse && tryAddFunction(child) {
				continue
			}
			if !family[child] {
				addNode(child)
			}
			from, to := parent, child
			if reverse {
				from, to = child, parent
			}
			sub.AddEdge(from, to, d.Graph.Successors(from)[to])
		}
	}

	out := dispatcher.New(d.Name)
	out.Graph = sub
	out.DefaultValues = defaultValuesFor(d, sub)
	return out
}

func neighborIDs(wf *engine.WorkflowGraph, reverse bool, id string) []string {
	var ids []string
	if reverse {
		for p := range wf.Predecessors(id) {
			ids = append(ids, p)
		}
	} else {
		for s := range wf.Successors(id) {
			ids = append(ids, s)
		}
	}
	sort.Strings(ids)
	return ids
}

// ShrinkDsp returns the smallest sub-dispatcher spanning the given inputs
// and outputs: it repeatedly dry-runs the dispatcher (no function is ever
// called) from a growing input set, accumulating every workflow edge seen,
// until a pass reaches no node it had not already reached. The loop is
// capped at cfg.MaxShrinkIterations, or at the dispatcher's current number
// of data nodes when that is zero.
//
// With no inputs, the dispatcher's whole static graph stands in for the
// accumulated workflow and no dry run is needed. With no outputs (and no
// inputs to derive them from), ShrinkDsp returns an empty dispatcher,
// mirroring a shrink that was asked to reach nowhere.
func ShrinkDsp(d *dispatcher.Dispatcher, inputs, outputs []string, cutoff *float64, cfg config.Config) (*dispatcher.Dispatcher, error) {
	finalOutputs := outputs
	var bfsGraph *engine.WorkflowGraph

	if len(inputs) == 0 {
		bfsGraph = engine.NewWorkflowGraph()
		for _, from := range d.Graph.NodeIDs() {
			bfsGraph.AddNode(from)
			for to := range d.Graph.Successors(from) {
				bfsGraph.AddEdge(from, to, nil, false)
			}
		}
	} else {
		waitOverride := engine.ComputeWaitInOverride(d)
		inputSet := make(map[string]bool, len(inputs))
		for _, id := range inputs {
			inputSet[id] = true
		}
		curInputs := append([]string{}, inputs...)

		maxIter := cfg.MaxShrinkIterations
		if maxIter <= 0 {
			maxIter = len(d.DataNodeIDs())
		}
		if maxIter <= 0 {
			maxIter = 1
		}

		edgeSet := make(map[[2]string]bool)
		var lastOutputs map[string]any

		dispatchOpts := []engine.DispatchOption{
			engine.Outputs(outputs...),
			engine.Wildcard(true),
			engine.NoCall(),
		}
		if cutoff != nil {
			dispatchOpts = append(dispatchOpts, engine.Cutoff(*cutoff))
		}

		for iter := 0; iter < maxIter; iter++ {
			for k, v := range waitOverride {
				if v && inputSet[k] {
					waitOverride[k] = false
				}
			}

			vals := make(map[string]any, len(curInputs))
			for _, k := range curInputs {
				vals[k] = nil
			}

			opts := append(append([]engine.DispatchOption{}, dispatchOpts...), engine.WithWaitOverride(waitOverride))
			run, err := engine.Dispatch(d, vals, opts...)
			if err != nil {
				return nil, err
			}
			lastOutputs = run.DataOutput

			for _, from := range run.Workflow.NodeIDs() {
				for to := range run.Workflow.Successors(from) {
					edgeSet[[2]string{from, to}] = true
				}
			}

			var fresh []string
			for _, id := range run.Workflow.NodeIDs() {
				if !run.Visited[id] && !inputSet[id] {
					fresh = append(fresh, id)
					inputSet[id] = true
				}
			}
			if len(fresh) == 0 {
				break
			}
			curInputs = append(curInputs, fresh...)
		}

		bfsGraph = engine.NewWorkflowGraph()
		for e := range edgeSet {
			bfsGraph.AddEdge(e[0], e[1], nil, false)
		}

		if len(finalOutputs) == 0 {
			for k := range lastOutputs {
				finalOutputs = append(finalOutputs, k)
			}
			sort.Strings(finalOutputs)
		}
	}

	if len(finalOutputs) == 0 {
		return dispatcher.New(d.Name), nil
	}

	return GetSubDspFromWorkflow(d, bfsGraph, finalOutputs, true), nil
}

// RemoveCycles returns a copy of d with every unresolved cycle reachable
// from sources broken. A node is unresolved if a no_call dry run from
// sources can reach it but never visits it; when the nodes a dry run
// cannot get past form a cycle among themselves, that cycle is the reason
// they are stuck, and one edge into the cycle's lexicographically smallest
// node is cut to break the deadlock.
func RemoveCycles(d *dispatcher.Dispatcher, sources []string) (*dispatcher.Dispatcher, error) {
	reached := reachableFrom(d, sources)
	reachedIDs := make([]string, 0, len(reached))
	for id := range reached {
		reachedIDs = append(reachedIDs, id)
	}
	sort.Strings(reachedIDs)

	vals := make(map[string]any, len(sources))
	for _, s := range sources {
		vals[s] = nil
	}
	run, err := engine.Dispatch(d, vals, engine.NoCall(), engine.Wildcard(true))
	if err != nil {
		return nil, err
	}

	unresolved := make(map[string]bool)
	for id := range reached {
		if !run.Visited[id] {
			unresolved[id] = true
		}
	}

	induced := d.Graph.Subgraph(unresolved)

	var edgesToRemove [][2]string
	for _, cycle := range induced.SimpleCycles() {
		minIdx := 0
		for i, id := range cycle {
			if id < cycle[minIdx] {
				minIdx = i
			}
		}
		from := cycle[(minIdx-1+len(cycle))%len(cycle)]
		to := cycle[minIdx]
		edgesToRemove = append(edgesToRemove, [2]string{from, to})
	}

	return GetSubDsp(d, reachedIDs, edgesToRemove), nil
}

func reachableFrom(d *dispatcher.Dispatcher, sources []string) map[string]bool {
	reached := make(map[string]bool)
	var queue []string
	for _, s := range sources {
		if d.Graph.HasNode(s) && !reached[s] {
			reached[s] = true
			queue = append(queue, s)
		}
	}
	for i := 0; i < len(queue); i++ {
		for to := range d.Graph.Successors(queue[i]) {
			if !reached[to] {
				reached[to] = true
				queue = append(queue, to)
			}
		}
	}
	return reached
}
