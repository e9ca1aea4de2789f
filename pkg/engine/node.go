package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/arcidispatch/dispatch/pkg/dispatcher"
	"github.com/arcidispatch/dispatch/pkg/observer"
	"github.com/arcidispatch/dispatch/pkg/types"
)

// setNodeOutput estimates nodeID's output and records it into the
// workflow graph. ok is false when the node produced no usable output
// (a soft failure, a filtered domain, or a function with nothing left to
// estimate) and the traversal should simply move on; a non-nil error is a
// hard failure that aborts the whole run.
func setNodeOutput(d *dispatcher.Dispatcher, run *Run, nodeID string, s dispatchSettings) (ok bool, err error) {
	start := time.Now()
	node := d.Graph.Node(nodeID)
	var nodeType string
	switch n := node.(type) {
	case *types.DataAttrs:
		nodeType = "data"
		ok, err = setDataNodeOutput(d, run, nodeID, n, s)
	case *types.FunctionAttrs:
		nodeType = "function"
		ok, err = setFunctionNodeOutput(d, run, nodeID, n, s)
	default:
		return false, nil
	}
	s.telemetry.RecordNodeEstimation(context.Background(), time.Since(start).Seconds(), nodeType)
	if !ok && err == nil {
		s.observers.Notify(context.Background(), observer.Event{
			Type: observer.NodeSkipped, RunID: run.RunID, NodeID: nodeID,
		})
	} else if ok {
		s.observers.Notify(context.Background(), observer.Event{
			Type: observer.NodeEstimated, RunID: run.RunID, NodeID: nodeID,
		})
	}
	return ok, err
}

func getNodeEstimations(d *dispatcher.Dispatcher, run *Run, nodeID string, attrs *types.DataAttrs) (map[string]any, bool) {
	preds := run.Workflow.Predecessors(nodeID)
	waitIn := attrs.WaitInputs

	effective := waitIn
	if ov, has := run.waitInOverride[nodeID]; has {
		effective = ov
	}

	if len(preds) > 1 && !effective {
		ids := make([]string, 0, len(preds))
		for k := range preds {
			if k == startID {
				continue
			}
			ids = append(ids, k)
		}
		sort.Strings(ids)

		var best string
		bestDist := 0.0
		first := true
		for _, k := range ids {
			staticEdge := d.Graph.Predecessors(nodeID)[k]
			length := edgeLength(staticEdge, nodeWeight(d.Graph.Node(nodeID)))
			dist := run.Dist[k] + length
			if first || dist < bestDist {
				best, bestDist, first = k, dist, false
			}
		}
		estimations := map[string]any{}
		for _, k := range ids {
			if k == best {
				estimations[k] = preds[k].Value
			} else {
				run.Workflow.RemoveEdge(k, nodeID)
			}
		}
		return estimations, waitIn
	}

	estimations := make(map[string]any, len(preds))
	for k, e := range preds {
		estimations[k] = e.Value
	}
	return estimations, waitIn
}

func setDataNodeOutput(d *dispatcher.Dispatcher, run *Run, nodeID string, attrs *types.DataAttrs, s dispatchSettings) (bool, error) {
	est, waitIn := getNodeEstimations(d, run, nodeID, attrs)

	var value any
	hasValue := !s.noCall

	if !s.noCall {
		var err error
		if !waitIn {
			if attrs.Function != nil {
				value, err = callFunction(attrs.Function, est)
			} else {
				for _, v := range est {
					value = v
					break
				}
			}
		} else {
			if attrs.Function == nil {
				return softFail(d, run, nodeID, s, fmt.Errorf("data node %q waits on inputs but has no estimation function", nodeID))
			}
			value, err = callFunction(attrs.Function, est)
		}
		if err != nil {
			return softFail(d, run, nodeID, s, fmt.Errorf("estimation error at data node %q: %w", nodeID, err))
		}

		if attrs.Callback != nil {
			safeCallback(run, nodeID, s, attrs.Callback, value)
		}

		if !types.IsNone(value) {
			run.DataOutput[nodeID] = value
		}
	} else {
		run.DataOutput[nodeID] = types.None
	}

	for succ := range d.Graph.Successors(nodeID) {
		if run.Visited[succ] {
			continue
		}
		run.Workflow.AddEdge(nodeID, succ, value, hasValue)
	}
	return true, nil
}

// safeCallback runs cb, recovering a panic rather than letting it abort the
// whole dispatch; a recovered panic is logged as a warning the same way a
// soft failure is, since the callback's side effect was lost either way.
func safeCallback(run *Run, nodeID string, s dispatchSettings, cb func(value any), value any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithRunID(run.RunID).WithNodeID(nodeID).Warn(fmt.Sprintf("data node callback panicked: %v", r), nil)
		}
	}()
	cb(value)
}

func setFunctionNodeOutput(d *dispatcher.Dispatcher, run *Run, nodeID string, attrs *types.FunctionAttrs, s dispatchSettings) (bool, error) {
	outputNodes := make(map[string]bool, len(attrs.Outputs))
	hasOutputs := false
	for _, u := range attrs.Outputs {
		if _, done := run.Dist[u]; !done && d.Graph.HasNode(u) {
			outputNodes[u] = true
			hasOutputs = true
		}
	}
	if !hasOutputs {
		run.Workflow.RemoveNode(nodeID)
		return false, nil
	}

	if s.noCall {
		for u := range outputNodes {
			run.Workflow.AddEdge(nodeID, u, nil, false)
		}
		return true, nil
	}

	preds := run.Workflow.Predecessors(nodeID)
	args := make([]any, 0, len(attrs.Inputs))
	for _, in := range attrs.Inputs {
		e, ok := preds[in]
		if !ok || !e.HasValue || types.IsNone(e.Value) {
			continue
		}
		args = append(args, e.Value)
	}

	if attrs.InputDomain != nil && !attrs.InputDomain(args...) {
		return false, nil
	}

	if attrs.Function == nil {
		return softFail(d, run, nodeID, s, fmt.Errorf("function node %q has no function", nodeID))
	}

	res, err := callFunction(attrs.Function, args...)
	if err != nil {
		return softFail(d, run, nodeID, s, fmt.Errorf("estimation error at function node %q: %w", nodeID, err))
	}

	var results []any
	if len(attrs.Outputs) > 1 {
		tuple, ok := res.([]any)
		if !ok {
			return softFail(d, run, nodeID, s, fmt.Errorf("function node %q declared %d outputs but did not return a []any tuple", nodeID, len(attrs.Outputs)))
		}
		results = tuple
	} else {
		results = []any{res}
	}

	for i, k := range attrs.Outputs {
		if i >= len(results) || !outputNodes[k] {
			continue
		}
		run.Workflow.AddEdge(nodeID, k, results[i], true)
	}
	return true, nil
}

func callFunction(fn types.Function, args ...any) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(args...)
}

func softFail(d *dispatcher.Dispatcher, run *Run, nodeID string, s dispatchSettings, cause error) (bool, error) {
	s.logger.WithRunID(run.RunID).WithNodeID(nodeID).Warn(cause.Error(), nil)
	s.telemetry.RecordSoftFailure(context.Background(), nodeID)
	if s.cfg.Raises {
		return false, cause
	}
	return false, nil
}
