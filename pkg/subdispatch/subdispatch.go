// Package subdispatch adapts a *dispatcher.Dispatcher into a callable: a
// plain types.Function that other function nodes, or a top-level caller,
// can invoke the same way they would invoke any ordinary function, with
// the work delegated to a full engine.Dispatch run underneath.
package subdispatch

import (
	"fmt"

	"github.com/arcidispatch/dispatch/pkg/combinators"
	"github.com/arcidispatch/dispatch/pkg/config"
	"github.com/arcidispatch/dispatch/pkg/dispatcher"
	"github.com/arcidispatch/dispatch/pkg/engine"
	"github.com/arcidispatch/dispatch/pkg/transform"
	"github.com/arcidispatch/dispatch/pkg/types"
)

// OutputType selects the shape SubDispatch.Call returns.
type OutputType int

const (
	// OutputAll returns the full data-output map.
	OutputAll OutputType = iota
	// OutputList returns a single value, or a []any tuple in declared
	// order when more than one output is declared.
	OutputList
	// OutputDict returns the data-output map narrowed to the declared
	// outputs.
	OutputDict
)

// SubDispatch adapts a Dispatcher into a callable: each call combines its
// input dicts, dispatches Dsp, and keeps the resulting workflow and data
// output around for a caller to inspect afterward.
type SubDispatch struct {
	Dsp        *dispatcher.Dispatcher
	Outputs    []string
	Cutoff     *float64
	Wildcard   bool
	NoCall     bool
	Shrink     bool
	OutputType OutputType
	Config     config.Config

	DataOutput map[string]any
	Dist       map[string]float64
	Workflow   *engine.WorkflowGraph
}

// Option configures a SubDispatch at construction.
type Option func(*SubDispatch)

func WithCutoff(v float64) Option       { return func(s *SubDispatch) { c := v; s.Cutoff = &c } }
func WithWildcard(enabled bool) Option  { return func(s *SubDispatch) { s.Wildcard = enabled } }
func WithNoCall(enabled bool) Option    { return func(s *SubDispatch) { s.NoCall = enabled } }
func WithShrink(enabled bool) Option    { return func(s *SubDispatch) { s.Shrink = enabled } }
func WithOutputType(t OutputType) Option { return func(s *SubDispatch) { s.OutputType = t } }
func WithConfig(cfg config.Config) Option { return func(s *SubDispatch) { s.Config = cfg } }

// New returns a SubDispatch over dsp. Shrink defaults to enabled, so each
// Call first reduces dsp with transform.ShrinkDsp (engine.Dispatch alone
// never shrinks); with no outputs every reachable data node ends up in the
// result.
func New(dsp *dispatcher.Dispatcher, outputs []string, opts ...Option) *SubDispatch {
	s := &SubDispatch{
		Dsp:     dsp,
		Outputs: outputs,
		Shrink:  true,
		Config:  config.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Call combines inputDicts (later dicts override earlier ones on key
// collision) and dispatches Dsp, returning a value shaped by OutputType.
func (s *SubDispatch) Call(inputDicts ...map[string]any) (any, error) {
	inputs := combinators.CombineDicts(inputDicts...)

	dsp := s.Dsp
	if !s.NoCall && s.Shrink {
		keys := make([]string, 0, len(inputs))
		for k := range inputs {
			keys = append(keys, k)
		}
		shrunk, err := transform.ShrinkDsp(dsp, keys, s.Outputs, s.Cutoff, s.Config)
		if err != nil {
			return nil, err
		}
		dsp = shrunk
	}

	opts := []engine.DispatchOption{
		engine.WithConfig(s.Config),
		engine.Wildcard(s.Wildcard),
	}
	if len(s.Outputs) > 0 {
		opts = append(opts, engine.Outputs(s.Outputs...))
	}
	if s.Cutoff != nil {
		opts = append(opts, engine.Cutoff(*s.Cutoff))
	}
	if s.NoCall {
		opts = append(opts, engine.NoCall())
	}

	run, err := engine.Dispatch(dsp, inputs, opts...)
	if err != nil {
		return nil, err
	}

	s.DataOutput = run.DataOutput
	s.Dist = run.Dist
	s.Workflow = run.Workflow

	switch s.OutputType {
	case OutputList:
		return selectList(s.Outputs, run.DataOutput)
	case OutputDict:
		return combinators.Selector(s.Outputs, run.DataOutput), nil
	default:
		return run.DataOutput, nil
	}
}

// AsFunction adapts Call to types.Function: every positional argument must
// be a map[string]any, passed through to Call unchanged.
func (s *SubDispatch) AsFunction() types.Function {
	return func(inputs ...any) (any, error) {
		dicts := make([]map[string]any, 0, len(inputs))
		for _, in := range inputs {
			m, ok := in.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("subdispatch: expected map[string]any input, got %T", in)
			}
			dicts = append(dicts, m)
		}
		return s.Call(dicts...)
	}
}

// selectList narrows data to outputs, in declared order: a single value
// when outputs has one entry, a []any tuple when it has more, the full map
// when outputs is empty. A declared output missing from data (one the
// dispatch could not reach) is reported as ErrUnreachableOutputs rather
// than silently dropped.
func selectList(outputs []string, data map[string]any) (any, error) {
	if len(outputs) == 0 {
		return data, nil
	}
	if len(outputs) == 1 {
		v, ok := data[outputs[0]]
		if !ok {
			return nil, fmt.Errorf("%w: %v", types.ErrUnreachableOutputs, outputs)
		}
		return v, nil
	}
	out := make([]any, len(outputs))
	var missing []string
	for i, k := range outputs {
		v, ok := data[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		out[i] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", types.ErrUnreachableOutputs, missing)
	}
	return out, nil
}

// SubDispatchFunction wraps a dispatcher pre-shrunk to a declared set of
// inputs and outputs as a positional-argument callable: construction fails
// if any declared output is unreachable, so every later call is cheap and
// never needs to re-derive the sub-dispatcher.
type SubDispatchFunction struct {
	Dsp        *dispatcher.Dispatcher
	FunctionID string
	Inputs     []string
	Outputs    []string
	Cutoff     *float64
	Config     config.Config

	defaults map[string]any

	DataOutput map[string]any
	Dist       map[string]float64
	Workflow   *engine.WorkflowGraph
}

// NewFunction shrinks dsp to the sub-dispatcher spanning inputs and
// outputs, and fails if any declared output did not survive the shrink.
func NewFunction(dsp *dispatcher.Dispatcher, functionID string, inputs, outputs []string, cutoff *float64, cfg config.Config) (*SubDispatchFunction, error) {
	shrunk, err := transform.ShrinkDsp(dsp, inputs, outputs, cutoff, cfg)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, o := range outputs {
		if !shrunk.Graph.HasNode(o) {
			missing = append(missing, o)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", types.ErrUnreachableOutputs, missing)
	}
	shrunk.Name = functionID

	defaults := make(map[string]any, len(shrunk.DefaultValues))
	for k, v := range shrunk.DefaultValues {
		defaults[k] = v
	}

	return &SubDispatchFunction{
		Dsp:        shrunk,
		FunctionID: functionID,
		Inputs:     inputs,
		Outputs:    outputs,
		Cutoff:     cutoff,
		Config:     cfg,
		defaults:   defaults,
	}, nil
}

// Call dispatches the pre-shrunk dispatcher with args bound positionally
// to Inputs, over and above the dispatcher's own default values.
func (f *SubDispatchFunction) Call(args ...any) (any, error) {
	if len(args) != len(f.Inputs) {
		return nil, fmt.Errorf("subdispatch: %s expects %d inputs, got %d", f.FunctionID, len(f.Inputs), len(args))
	}

	values := make(map[string]any, len(f.defaults)+len(args))
	for k, v := range f.defaults {
		values[k] = v
	}
	for i, id := range f.Inputs {
		values[id] = args[i]
	}

	opts := []engine.DispatchOption{
		engine.WithConfig(f.Config),
		engine.Wildcard(true),
	}
	if len(f.Outputs) > 0 {
		opts = append(opts, engine.Outputs(f.Outputs...))
	}
	if f.Cutoff != nil {
		opts = append(opts, engine.Cutoff(*f.Cutoff))
	}

	run, err := engine.Dispatch(f.Dsp, values, opts...)
	if err != nil {
		return nil, err
	}

	f.DataOutput = run.DataOutput
	f.Dist = run.Dist
	f.Workflow = run.Workflow

	if len(f.Outputs) == 0 {
		return run.DataOutput, nil
	}
	return selectList(f.Outputs, run.DataOutput)
}

// AsFunction returns Call as a types.Function; the method value already
// has the right shape.
func (f *SubDispatchFunction) AsFunction() types.Function {
	return f.Call
}

// AddDispatcherAdapter builds a SubDispatch over child and wraps it as the
// run callback dispatcher.Dispatcher.AddDispatcher expects: called with the
// child-input dict, it dispatches child and returns the full child-keyed
// data output map.
func AddDispatcherAdapter(child *dispatcher.Dispatcher, opts ...Option) func(map[string]any) (map[string]any, error) {
	sd := New(child, nil, append([]Option{WithOutputType(OutputAll)}, opts...)...)
	return func(in map[string]any) (map[string]any, error) {
		res, err := sd.Call(in)
		if err != nil {
			return nil, err
		}
		out, _ := res.(map[string]any)
		return out, nil
	}
}

// Replicate returns a function that applies fn independently to each
// positional input, collecting the results in call order.
func Replicate(fn types.Function) types.Function {
	return func(inputs ...any) (any, error) {
		out := make([]any, len(inputs))
		for i, in := range inputs {
			v, err := fn(in)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
}
