// Package dispatch re-exports the common surface of the dispatcher
// packages under one import, for call sites that want the everyday path
// without naming pkg/dispatcher, pkg/engine, pkg/transform and
// pkg/subdispatch separately.
//
// New code building anything beyond a small script should still prefer
// importing the pkg/* packages it actually needs directly — this package
// exists for ergonomics, not as a second API surface.
//
// # Example
//
//	d := dispatch.New("pythagorean")
//	d.AddFunction("square-sum", squareSum, dispatch.WithInputs("a", "b"), dispatch.WithOutputs("s"))
//	d.AddFunction("sqrt", sqrtFn, dispatch.WithInputs("s"), dispatch.WithOutputs("c"))
//
//	run, err := dispatch.Dispatch(d, map[string]any{"a": 3.0, "b": 4.0})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(run.DataOutput["c"]) // 5
package dispatch

import (
	"github.com/arcidispatch/dispatch/pkg/combinators"
	"github.com/arcidispatch/dispatch/pkg/config"
	"github.com/arcidispatch/dispatch/pkg/dispatcher"
	"github.com/arcidispatch/dispatch/pkg/engine"
	"github.com/arcidispatch/dispatch/pkg/subdispatch"
	"github.com/arcidispatch/dispatch/pkg/transform"
	"github.com/arcidispatch/dispatch/pkg/types"
)

// ============================================================================
// Type re-exports
// ============================================================================

type (
	// Dispatcher is the bipartite data/function graph. See pkg/dispatcher.
	Dispatcher = dispatcher.Dispatcher
	// DataOption configures AddData. See pkg/dispatcher.
	DataOption = dispatcher.DataOption
	// FunctionOption configures AddFunction. See pkg/dispatcher.
	FunctionOption = dispatcher.FunctionOption
	// DataSpec and FunctionSpec describe nodes for AddFromLists.
	DataSpec     = dispatcher.DataSpec
	FunctionSpec = dispatcher.FunctionSpec
)

type (
	// Run is the per-call result of Dispatch. See pkg/engine.
	Run = engine.Run
	// WorkflowGraph is the graph of edges that actually fired during a run.
	WorkflowGraph = engine.WorkflowGraph
	// DispatchOption configures a single Dispatch call. See pkg/engine.
	DispatchOption = engine.DispatchOption
	// Outcome reports how a run ended, for observers and telemetry.
	Outcome = engine.Outcome
)

// Config holds the run-level knobs bounding a dispatcher's behaviour
// (failure policy, cutoff, defensive limits). See pkg/config.
type Config = config.Config

// Function is the shape every function node, and every data node
// aggregator, wraps. See pkg/types.
type Function = types.Function

// Sentinels re-exported from pkg/types.
var (
	Start = types.Start
	Sink  = types.Sink
	Empty = types.Empty
	None  = types.None
)

// Sentinel errors re-exported from pkg/types.
var (
	ErrDuplicateID        = types.ErrDuplicateID
	ErrWrongNodeType      = types.ErrWrongNodeType
	ErrMissingFunction    = types.ErrMissingFunction
	ErrNotADataNode       = types.ErrNotADataNode
	ErrNotAFunctionNode   = types.ErrNotAFunctionNode
	ErrUnknownNode        = types.ErrUnknownNode
	ErrContradictoryPaths = types.ErrContradictoryPaths
	ErrUnreachableOutputs = types.ErrUnreachableOutputs
)

// ============================================================================
// Constructors and functions
// ============================================================================

// New returns an empty Dispatcher. See pkg/dispatcher.New.
var New = dispatcher.New

// Dispatch walks a Dispatcher from a set of input values, producing its
// workflow graph and estimated data outputs. See pkg/engine.Dispatch.
var Dispatch = engine.Dispatch

// Data and function options re-exported from pkg/dispatcher.
var (
	WithDefaultValue    = dispatcher.WithDefaultValue
	WithWildcard        = dispatcher.WithWildcard
	WithWaitInputs      = dispatcher.WithWaitInputs
	WithDataFunction    = dispatcher.WithDataFunction
	WithCallback        = dispatcher.WithCallback
	WithDataDescription = dispatcher.WithDataDescription

	WithInputs              = dispatcher.WithInputs
	WithOutputs             = dispatcher.WithOutputs
	WithInputDomain         = dispatcher.WithInputDomain
	WithWeight              = dispatcher.WithWeight
	WithWeightTo            = dispatcher.WithWeightTo
	WithWeightFrom          = dispatcher.WithWeightFrom
	WithFunctionDescription = dispatcher.WithFunctionDescription
)

// Dispatch options re-exported from pkg/engine.
var (
	Outputs          = engine.Outputs
	Cutoff           = engine.Cutoff
	Wildcard         = engine.Wildcard
	NoCall           = engine.NoCall
	WithConfig       = engine.WithConfig
	WithLogger       = engine.WithLogger
	WithObservers    = engine.WithObservers
	WithTelemetry    = engine.WithTelemetry
	WithRunID        = engine.WithRunID
	WithWaitOverride = engine.WithWaitOverride
)

// Graph transformations re-exported from pkg/transform.
var (
	GetSubDsp             = transform.GetSubDsp
	GetSubDspFromWorkflow = transform.GetSubDspFromWorkflow
	ShrinkDsp             = transform.ShrinkDsp
	RemoveCycles          = transform.RemoveCycles
)

// Sub-dispatch constructors re-exported from pkg/subdispatch.
type (
	SubDispatch         = subdispatch.SubDispatch
	SubDispatchFunction = subdispatch.SubDispatchFunction
	SubDispatchOption   = subdispatch.Option
)

var (
	NewSubDispatch     = subdispatch.New
	NewSubDispatchFunc = subdispatch.NewFunction
	Replicate          = subdispatch.Replicate
)

// Data-shaping helpers re-exported from pkg/combinators: the defaults
// wired onto auto-created SINK nodes (Bypass) and the small stateless
// functions client graphs commonly reach for between function nodes.
var (
	Bypass         = combinators.Bypass
	Summation      = combinators.Summation
	CombineDicts   = combinators.CombineDicts
	MapDict        = combinators.MapDict
	MapList        = combinators.MapList
	Selector       = combinators.Selector
	ReplicateValue = combinators.ReplicateValue
)

// Configuration presets re-exported from pkg/config.
var (
	DefaultConfig     = config.Default
	DevelopmentConfig = config.Development
	ProductionConfig  = config.Production
)
