// Package dispatcher builds the bipartite data/function graph that the
// engine package dispatches over. A Dispatcher is the long-lived, mostly
// immutable model; engine.Run holds the mutable per-run state produced by
// walking it.
package dispatcher

import (
	"fmt"
	"sort"

	"github.com/arcidispatch/dispatch/pkg/combinators"
	"github.com/arcidispatch/dispatch/pkg/graph"
	"github.com/arcidispatch/dispatch/pkg/types"
)

// Dispatcher is a bipartite directed multigraph of data nodes and function
// nodes. It is not safe for concurrent mutation, nor for concurrent
// dispatch against the same instance; Clone a copy per goroutine.
type Dispatcher struct {
	Name          string
	Graph         *graph.Graph
	DefaultValues map[string]any

	dataCounter int
	funcCounter map[string]int
}

// New returns an empty dispatcher.
func New(name string) *Dispatcher {
	return &Dispatcher{
		Name:          name,
		Graph:         graph.New(),
		DefaultValues: make(map[string]any),
		funcCounter:   make(map[string]int),
	}
}

// AddData adds a single data node and returns its id. With an empty id, the
// id is auto-generated as unknown<N> for the lowest unused N.
func (d *Dispatcher) AddData(id string, opts ...DataOption) (string, error) {
	attrs := &types.DataAttrs{DefaultValue: types.Empty, Wildcard: true}
	for _, opt := range opts {
		opt(attrs)
	}

	if id == "" {
		for {
			candidate := fmt.Sprintf("unknown<%d>", d.dataCounter)
			d.dataCounter++
			if !d.Graph.HasNode(candidate) {
				id = candidate
				break
			}
		}
	} else if d.Graph.HasNode(id) {
		if _, ok := d.Graph.Node(id).(*types.DataAttrs); !ok {
			return "", fmt.Errorf("%w: %s", types.ErrDuplicateID, id)
		}
	}
	attrs.ID = id

	if !types.IsEmpty(attrs.DefaultValue) {
		d.DefaultValues[id] = attrs.DefaultValue
	} else {
		delete(d.DefaultValues, id)
	}

	d.Graph.AddNode(id, attrs)
	return id, nil
}

// AddFunction adds a single function node and returns its id. A nil/empty
// inputs list is replaced with [Start]; a nil/empty outputs list is
// replaced with [Sink], auto-creating the Start/Sink data nodes the first
// time they are referenced, exactly as the data-node side of the bipartite
// invariant requires.
func (d *Dispatcher) AddFunction(id string, fn types.Function, opts ...FunctionOption) (string, error) {
	attrs := &types.FunctionAttrs{Function: fn, WaitInputs: true}
	for _, opt := range opts {
		opt(attrs)
	}
	if fn == nil {
		return "", types.ErrMissingFunction
	}

	if len(attrs.Inputs) == 0 {
		if !d.Graph.HasNode(startID) {
			if _, err := d.AddData(startID, WithDefaultValue(types.None)); err != nil {
				return "", err
			}
		}
		attrs.Inputs = []string{startID}
	}
	if len(attrs.Outputs) == 0 {
		if !d.Graph.HasNode(sinkID) {
			if _, err := d.AddData(sinkID, WithWaitInputs(true), WithDataFunction(combinators.Bypass)); err != nil {
				return "", err
			}
		}
		attrs.Outputs = []string{sinkID}
	}

	if id == "" {
		id = "function"
	}
	fnID := id
	for d.Graph.HasNode(fnID) {
		d.funcCounter[id]++
		fnID = fmt.Sprintf("%s<%d>", id, d.funcCounter[id])
	}
	attrs.ID = fnID

	d.Graph.AddNode(fnID, attrs)

	for _, in := range attrs.Inputs {
		if err := d.ensureDataNode(in, fnID); err != nil {
			d.Graph.RemoveNode(fnID)
			return "", err
		}
		ea := types.EdgeAttrs{Index: indexOf(attrs.Inputs, in)}
		if w, ok := attrs.InWeights[in]; ok {
			ea.Weight = &w
		}
		d.Graph.AddEdge(in, fnID, ea)
	}
	for _, out := range attrs.Outputs {
		if err := d.ensureDataNode(out, fnID); err != nil {
			d.Graph.RemoveNode(fnID)
			return "", err
		}
		ea := types.EdgeAttrs{Index: indexOf(attrs.Outputs, out)}
		if w, ok := attrs.OutWeights[out]; ok {
			ea.Weight = &w
		}
		d.Graph.AddEdge(fnID, out, ea)
	}

	return fnID, nil
}

func (d *Dispatcher) ensureDataNode(id, fnID string) error {
	if d.Graph.HasNode(id) {
		if _, ok := d.Graph.Node(id).(*types.DataAttrs); !ok {
			return fmt.Errorf("%w: %s referenced by %s", types.ErrNotADataNode, id, fnID)
		}
		return nil
	}
	_, err := d.AddData(id)
	return err
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

const (
	startID = "START"
	sinkID  = "SINK"
)

// DataSpec/FunctionSpec let AddFromLists accept a declarative batch, as the
// original's data_list/fun_list keyword-dict batches do.
type DataSpec struct {
	ID   string
	Opts []DataOption
}

type FunctionSpec struct {
	ID   string
	Fn   types.Function
	Opts []FunctionOption
}

// AddFromLists adds multiple data and function nodes in one call, returning
// the ids assigned to each in order.
func (d *Dispatcher) AddFromLists(dataList []DataSpec, funList []FunctionSpec) ([]string, []string, error) {
	dataIDs := make([]string, 0, len(dataList))
	for _, spec := range dataList {
		id, err := d.AddData(spec.ID, spec.Opts...)
		if err != nil {
			return nil, nil, err
		}
		dataIDs = append(dataIDs, id)
	}

	funIDs := make([]string, 0, len(funList))
	for _, spec := range funList {
		id, err := d.AddFunction(spec.ID, spec.Fn, spec.Opts...)
		if err != nil {
			return dataIDs, nil, err
		}
		funIDs = append(funIDs, id)
	}

	return dataIDs, funIDs, nil
}

// SetDefaultValue sets or, with value == types.Empty, removes a data node's
// default value.
func (d *Dispatcher) SetDefaultValue(id string, value any) error {
	attrs, ok := d.Graph.Node(id).(*types.DataAttrs)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNotADataNode, id)
	}
	if types.IsEmpty(value) {
		delete(d.DefaultValues, id)
		attrs.DefaultValue = types.Empty
		return nil
	}
	d.DefaultValues[id] = value
	attrs.DefaultValue = value
	return nil
}

// AddDispatcher embeds child as a single function node of d. run is the
// adapter that actually executes child: it receives the child-input dict
// assembled from inputsMap's child-side keys and must return child data
// outputs keyed the same way (subdispatch.SubDispatch.Call with OutputAll
// has exactly this shape). inputsMap maps child data-node ids to d's
// data-node ids supplying them; outputsMap maps child data-node ids to d's
// data-node ids receiving them. Both maps are walked in sorted child-id
// order, so the embedded node's declared Inputs/Outputs line up
// deterministically with the positional values run's caller (the dispatch
// engine) hands it and with the dict run itself builds and reads.
func (d *Dispatcher) AddDispatcher(child *Dispatcher, id string, inputsMap, outputsMap map[string]string, run func(childInputs map[string]any) (map[string]any, error), opts ...FunctionOption) (string, error) {
	if child == nil {
		return "", fmt.Errorf("%w: nil child dispatcher", types.ErrUnknownNode)
	}
	for childID := range inputsMap {
		if !child.Graph.HasNode(childID) {
			return "", fmt.Errorf("%w: %s is not a data node of the child dispatcher", types.ErrUnknownNode, childID)
		}
	}
	for childID := range outputsMap {
		if !child.Graph.HasNode(childID) {
			return "", fmt.Errorf("%w: %s is not a data node of the child dispatcher", types.ErrUnknownNode, childID)
		}
	}

	childInputs := sortedKeys(inputsMap)
	parentInputs := make([]string, len(childInputs))
	for i, c := range childInputs {
		parentInputs[i] = inputsMap[c]
	}
	childOutputs := sortedKeys(outputsMap)
	parentOutputs := make([]string, len(childOutputs))
	for i, c := range childOutputs {
		parentOutputs[i] = outputsMap[c]
	}

	fn := func(args ...any) (any, error) {
		if len(args) != len(childInputs) {
			return nil, fmt.Errorf("dispatcher: embedded dispatcher %q expects %d inputs, got %d", id, len(childInputs), len(args))
		}
		in := make(map[string]any, len(childInputs))
		for i, c := range childInputs {
			in[c] = args[i]
		}
		out, err := run(in)
		if err != nil {
			return nil, err
		}
		if len(childOutputs) == 0 {
			return nil, nil
		}
		if len(childOutputs) == 1 {
			return out[childOutputs[0]], nil
		}
		tuple := make([]any, len(childOutputs))
		for i, c := range childOutputs {
			tuple[i] = out[c]
		}
		return tuple, nil
	}

	opts = append([]FunctionOption{WithInputs(parentInputs...), WithOutputs(parentOutputs...)}, opts...)
	return d.AddFunction(id, fn, opts...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep-enough copy: a new graph with the same node/edge
// attribute values and an independent DefaultValues map, safe to dispatch
// against from another goroutine while the original is also in use.
func (d *Dispatcher) Clone() *Dispatcher {
	clone := &Dispatcher{
		Name:          d.Name,
		Graph:         d.Graph.Clone(),
		DefaultValues: make(map[string]any, len(d.DefaultValues)),
		dataCounter:   d.dataCounter,
		funcCounter:   make(map[string]int, len(d.funcCounter)),
	}
	for k, v := range d.DefaultValues {
		clone.DefaultValues[k] = v
	}
	for k, v := range d.funcCounter {
		clone.funcCounter[k] = v
	}
	return clone
}

// DataNodeIDs returns the ids of every data node, sorted.
func (d *Dispatcher) DataNodeIDs() []string {
	var out []string
	for _, id := range d.Graph.NodeIDs() {
		if _, ok := d.Graph.Node(id).(*types.DataAttrs); ok {
			out = append(out, id)
		}
	}
	return out
}

// FunctionNodeIDs returns the ids of every function node, sorted.
func (d *Dispatcher) FunctionNodeIDs() []string {
	var out []string
	for _, id := range d.Graph.NodeIDs() {
		if _, ok := d.Graph.Node(id).(*types.FunctionAttrs); ok {
			out = append(out, id)
		}
	}
	return out
}
