// Package engine implements the ArciDispatch traversal: a modified
// Dijkstra's algorithm that walks a dispatcher.Dispatcher from a set of
// input values to a workflow graph and a map of estimated data outputs.
package engine

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/arcidispatch/dispatch/pkg/config"
	"github.com/arcidispatch/dispatch/pkg/dispatcher"
	"github.com/arcidispatch/dispatch/pkg/logging"
	"github.com/arcidispatch/dispatch/pkg/observer"
	"github.com/arcidispatch/dispatch/pkg/types"
)

const startID = "START"

// Dispatch walks d from inputs, producing the workflow graph and data
// output map of spec §4.3. A nil error with a non-nil *Run means the run
// completed (naturally or because every target was reached); a non-nil
// error means either a hard failure (contradictory distances, or a soft
// failure promoted by Config.Raises) or the step budget was exhausted.
func Dispatch(d *dispatcher.Dispatcher, inputs map[string]any, opts ...DispatchOption) (*Run, error) {
	settings := dispatchSettings{cfg: config.Default()}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.cutoff == nil {
		settings.cutoff = settings.cfg.DefaultCutoff
	}
	if settings.logger == nil {
		settings.logger = logging.New()
	}
	if settings.observers == nil {
		settings.observers = &observer.Manager{}
	}
	runID := settings.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := settings.logger.WithRunID(runID)
	ctx := context.Background()

	start := time.Now()
	settings.observers.Notify(ctx, observer.Event{Type: observer.DispatchStart, RunID: runID})

	run, err := dispatchRun(d, inputs, settings, runID)

	outcome := OutcomeCompleted
	if err != nil {
		outcome = OutcomeError
	} else if len(settings.outputs) > 0 && len(run.targets) == 0 {
		outcome = OutcomeTargetsReached
	}
	settings.telemetry.RecordDispatchRun(ctx, time.Since(start).Seconds(), string(outcome))
	settings.observers.Notify(ctx, observer.Event{
		Type:  observer.DispatchEnd,
		RunID: runID,
		Err:   err,
		Metadata: map[string]any{
			"outcome":  string(outcome),
			"duration": time.Since(start).String(),
		},
	})
	if err != nil {
		log.Warn("dispatch run ended with an error", map[string]any{"error": err.Error()})
	}
	return run, err
}

func dispatchRun(d *dispatcher.Dispatcher, inputs map[string]any, s dispatchSettings, runID string) (*Run, error) {
	run := &Run{
		RunID:          runID,
		DataOutput:     make(map[string]any),
		Dist:           make(map[string]float64),
		Visited:        make(map[string]bool),
		targets:        make(map[string]bool),
		wildcards:      make(map[string]bool),
		waitInOverride: s.waitOverride,
		cutoff:         s.cutoff,
	}
	if run.waitInOverride == nil {
		run.waitInOverride = computeWaitInOverride(d)
	}
	for _, id := range s.outputs {
		run.targets[id] = true
	}
	if s.wildcard && len(run.targets) > 0 {
		for id := range inputs {
			if !run.targets[id] {
				continue
			}
			if attrs, ok := d.Graph.Node(id).(*types.DataAttrs); ok && attrs.Wildcard {
				run.wildcards[id] = true
			}
		}
	}

	initial := initialValues(d, inputs, s.noCall)
	fringe, seen := initWorkflow(d, run, initial, s)

	steps := 0
	maxSteps := s.cfg.MaxDispatchSteps
	for fringe.Len() > 0 {
		if maxSteps > 0 {
			steps++
			if steps > maxSteps {
				return run, fmt.Errorf("dispatcher: exceeded max dispatch steps (%d)", maxSteps)
			}
		}
		item := heap.Pop(fringe).(fringeItem)
		v := item.id
		run.Dist[v] = item.dist
		run.Visited[v] = true

		ok, err := setNodeOutput(d, run, v, s)
		if err != nil {
			return run, err
		}
		if !ok {
			continue
		}
		if checkTargets(run, v) {
			break
		}

		for w, edgeAttrs := range d.Graph.Successors(v) {
			wNode := d.Graph.Node(w)
			vwDist := run.Dist[v] + edgeLength(edgeAttrs, nodeWeight(wNode))
			waitIn := waitInputsOf(wNode)
			if checkCutoff(s, run, w, vwDist) || checkWaitInputFlag(d, run, waitIn, w) {
				continue
			}
			if _, already := run.Dist[w]; already {
				if vwDist < run.Dist[w] {
					return run, types.ErrContradictoryPaths
				}
				continue
			}
			if prev, ok := seen[w]; !ok || vwDist < prev {
				seen[w] = vwDist
				heap.Push(fringe, fringeItem{dist: vwDist, wait: waitIn, id: w})
			}
		}
	}

	pruneUnvisitedFunctions(d, run)
	return run, nil
}

// ComputeWaitInOverride exposes the per-dispatcher wait-inputs override this
// package would otherwise compute fresh for every call, so pkg/transform's
// ShrinkDsp can hold and mutate its own copy across several Dispatch calls.
func ComputeWaitInOverride(d *dispatcher.Dispatcher) map[string]bool {
	return computeWaitInOverride(d)
}

func computeWaitInOverride(d *dispatcher.Dispatcher) map[string]bool {
	override := make(map[string]bool)
	for _, id := range d.FunctionNodeIDs() {
		fa := d.Graph.Node(id).(*types.FunctionAttrs)
		if fa.InputDomain != nil {
			for _, out := range fa.Outputs {
				override[out] = true
			}
		}
	}
	for _, id := range d.DataNodeIDs() {
		da := d.Graph.Node(id).(*types.DataAttrs)
		if da.WaitInputs {
			override[id] = true
		}
	}
	return override
}

func initialValues(d *dispatcher.Dispatcher, inputs map[string]any, noCall bool) map[string]any {
	vals := make(map[string]any, len(d.DefaultValues)+len(inputs))
	if noCall {
		for k := range d.DefaultValues {
			vals[k] = types.None
		}
		for k := range inputs {
			vals[k] = types.None
		}
		return vals
	}
	for k, v := range d.DefaultValues {
		vals[k] = v
	}
	for k, v := range inputs {
		vals[k] = v
	}
	return vals
}

func initWorkflow(d *dispatcher.Dispatcher, run *Run, initial map[string]any, s dispatchSettings) (*fringeHeap, map[string]float64) {
	noCall := s.noCall
	run.Workflow = newWorkflowGraph()
	run.Workflow.AddNode(startID)
	run.Visited[startID] = true
	run.Dist[startID] = -1
	seen := map[string]float64{startID: -1}
	fringe := &fringeHeap{}
	heap.Init(fringe)

	keys := make([]string, 0, len(initial))
	for k := range initial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, v := range keys {
		if !d.Graph.HasNode(v) {
			continue
		}
		attrs, ok := d.Graph.Node(v).(*types.DataAttrs)
		if !ok {
			continue
		}
		waitIn := attrs.WaitInputs
		value := initial[v]
		run.Workflow.AddNode(v)
		run.Workflow.AddEdge(startID, v, value, !noCall)

		if run.wildcards[v] {
			run.Visited[v] = true
			for w, edgeAttrs := range d.Graph.Successors(v) {
				run.Workflow.AddEdge(v, w, value, !noCall)
				vwDist := edgeLength(edgeAttrs, nodeWeight(d.Graph.Node(w)))
				if checkCutoff(s, run, w, vwDist) || checkWaitInputFlag(d, run, true, w) {
					continue
				}
				seen[w] = vwDist
				heap.Push(fringe, fringeItem{dist: vwDist, wait: true, id: w})
			}
			continue
		}

		if !checkWaitInputFlag(d, run, waitIn, v) {
			seen[v] = 0
			heap.Push(fringe, fringeItem{dist: 0, wait: waitIn, id: v})
		}
	}
	return fringe, seen
}

func checkTargets(run *Run, nodeID string) bool {
	if len(run.targets) == 0 {
		return false
	}
	if _, ok := run.targets[nodeID]; ok {
		delete(run.targets, nodeID)
		return len(run.targets) == 0
	}
	return false
}

func checkCutoff(s dispatchSettings, run *Run, nodeID string, distance float64) bool {
	if run.cutoff == nil {
		return false
	}
	if distance > *run.cutoff {
		s.telemetry.RecordCutoffRejection(context.Background(), nodeID)
		return true
	}
	return false
}

func checkWaitInputFlag(d *dispatcher.Dispatcher, run *Run, waitIn bool, nodeID string) bool {
	effective := waitIn
	if ov, ok := run.waitInOverride[nodeID]; ok {
		effective = ov
	}
	if !effective {
		return false
	}
	for pred := range d.Graph.Predecessors(nodeID) {
		if !run.Visited[pred] {
			return true
		}
	}
	return false
}

func edgeLength(edge types.EdgeAttrs, destWeight *float64) float64 {
	w := 1.0
	if edge.Weight != nil {
		w = *edge.Weight
	}
	dw := 0.0
	if destWeight != nil {
		dw = *destWeight
	}
	return w + dw
}

func nodeWeight(node any) *float64 {
	if fa, ok := node.(*types.FunctionAttrs); ok {
		return fa.Weight
	}
	return nil
}

func waitInputsOf(node any) bool {
	switch n := node.(type) {
	case *types.DataAttrs:
		return n.WaitInputs
	case *types.FunctionAttrs:
		return n.WaitInputs
	default:
		return false
	}
}

func pruneUnvisitedFunctions(d *dispatcher.Dispatcher, run *Run) {
	for _, n := range run.Workflow.NodeIDs() {
		if run.Workflow.InDegree(n) == 0 || run.Visited[n] {
			continue
		}
		if _, ok := d.Graph.Node(n).(*types.FunctionAttrs); ok {
			run.Workflow.RemoveNode(n)
		}
	}
}
