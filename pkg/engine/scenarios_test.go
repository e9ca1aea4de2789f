package engine

import (
	"testing"

	"github.com/arcidispatch/dispatch/pkg/dispatcher"
	"github.com/arcidispatch/dispatch/pkg/types"
)

// canonical example: diff(a,b)->c, then a function node named "log" that
// returns 2*c as d, with domain c>0; d aggregated
// by mean over its one contributing edge and wait_inputs=true; b defaults
// to 1. The domain accepts (c=1>0), so log fires and the aggregator's
// callback observes the final value.
func TestCanonicalDiffLogMeanDispatch(t *testing.T) {
	d := dispatcher.New("diff-log-mean")
	d.AddData("a")
	d.AddData("b", dispatcher.WithDefaultValue(1.0))
	d.AddData("c")
	fired := []any{}
	d.AddData("d",
		dispatcher.WithWaitInputs(true),
		dispatcher.WithDataFunction(func(est ...any) (any, error) {
			m := est[0].(map[string]any)
			sum := 0.0
			for _, v := range m {
				sum += v.(float64)
			}
			return sum / float64(len(m)), nil
		}),
		dispatcher.WithCallback(func(v any) { fired = append(fired, v) }),
	)

	d.AddFunction("diff", func(inputs ...any) (any, error) {
		return inputs[1].(float64) - inputs[0].(float64), nil
	}, dispatcher.WithInputs("a", "b"), dispatcher.WithOutputs("c"))

	d.AddFunction("log", func(inputs ...any) (any, error) {
		return inputs[0].(float64) * 2, nil
	}, dispatcher.WithInputs("c"), dispatcher.WithOutputs("d"),
		dispatcher.WithInputDomain(func(inputs ...any) bool { return inputs[0].(float64) > 0 }))

	run, err := Dispatch(d, map[string]any{"a": 0.0}, Outputs("d"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.DataOutput["a"] != 0.0 || run.DataOutput["b"] != 1.0 || run.DataOutput["c"] != 1.0 {
		t.Fatalf("unexpected intermediate values: %+v", run.DataOutput)
	}
	if run.DataOutput["d"] != 2.0 {
		t.Fatalf("expected d=2.0, got %v", run.DataOutput["d"])
	}
	if len(fired) != 1 || fired[0] != 2.0 {
		t.Fatalf("expected the aggregator callback to fire once with 2.0, got %v", fired)
	}
}

func TestWeightedAlternativesOnlyCheapestFires(t *testing.T) {
	d := dispatcher.New("alternatives")
	d.AddData("a")
	d.AddData("c")

	cheapCalled, costlyCalled := false, false
	d.AddFunction("cheap", func(inputs ...any) (any, error) {
		cheapCalled = true
		return inputs[0], nil
	}, dispatcher.WithInputs("a"), dispatcher.WithOutputs("c"), dispatcher.WithWeight(1))

	d.AddFunction("costly", func(inputs ...any) (any, error) {
		costlyCalled = true
		return inputs[0], nil
	}, dispatcher.WithInputs("a"), dispatcher.WithOutputs("c"), dispatcher.WithWeight(100))

	run, err := Dispatch(d, map[string]any{"a": 3.0}, Outputs("c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.DataOutput["c"] != 3.0 {
		t.Fatalf("expected c=3.0, got %v", run.DataOutput["c"])
	}
	if !cheapCalled || costlyCalled {
		t.Fatalf("expected only the cheap alternative to fire, cheap=%v costly=%v", cheapCalled, costlyCalled)
	}

	if n := len(run.Workflow.Predecessors("c")); n != 1 {
		t.Fatalf("expected exactly one workflow edge into c, got %d", n)
	}
}

func TestAddingHeavierAlternativeDoesNotChangeOutput(t *testing.T) {
	base := dispatcher.New("base")
	base.AddData("a")
	base.AddData("c")
	base.AddFunction("f1", func(inputs ...any) (any, error) { return inputs[0], nil },
		dispatcher.WithInputs("a"), dispatcher.WithOutputs("c"), dispatcher.WithWeight(1))

	baseline, err := Dispatch(base, map[string]any{"a": 7.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	withAlt := dispatcher.New("with-alternative")
	withAlt.AddData("a")
	withAlt.AddData("c")
	withAlt.AddFunction("f1", func(inputs ...any) (any, error) { return inputs[0], nil },
		dispatcher.WithInputs("a"), dispatcher.WithOutputs("c"), dispatcher.WithWeight(1))
	withAlt.AddFunction("f2", func(inputs ...any) (any, error) { return inputs[0].(float64) + 1000, nil },
		dispatcher.WithInputs("a"), dispatcher.WithOutputs("c"), dispatcher.WithWeight(50))

	withRun, err := Dispatch(withAlt, map[string]any{"a": 7.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if withRun.DataOutput["c"] != baseline.DataOutput["c"] {
		t.Fatalf("adding a heavier alternative changed the output: %v vs %v", withRun.DataOutput["c"], baseline.DataOutput["c"])
	}
}

func TestDispatchIsIdempotentOnSameGraphAndInputs(t *testing.T) {
	d := dispatcher.New("idempotent")
	d.AddData("a")
	d.AddData("b")
	d.AddFunction("double", func(inputs ...any) (any, error) { return inputs[0].(float64) * 2, nil },
		dispatcher.WithInputs("a"), dispatcher.WithOutputs("b"))

	first, err := Dispatch(d, map[string]any{"a": 5.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Dispatch(d, map[string]any{"a": 5.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.DataOutput["b"] != second.DataOutput["b"] {
		t.Fatalf("expected equal data_output across repeated dispatches, got %v and %v", first.DataOutput, second.DataOutput)
	}
	if len(first.Workflow.Successors("a")) != len(second.Workflow.Successors("a")) {
		t.Fatalf("expected isomorphic workflows across repeated dispatches")
	}
}

func TestDistReflectsSummedPathWeight(t *testing.T) {
	d := dispatcher.New("dist-path")
	d.AddData("a")
	d.AddData("b")
	d.AddData("c")
	d.AddFunction("f1", func(inputs ...any) (any, error) { return inputs[0], nil },
		dispatcher.WithInputs("a"), dispatcher.WithOutputs("b"), dispatcher.WithWeight(2))
	d.AddFunction("f2", func(inputs ...any) (any, error) { return inputs[0], nil },
		dispatcher.WithInputs("b"), dispatcher.WithOutputs("c"), dispatcher.WithWeight(3))

	run, err := Dispatch(d, map[string]any{"a": 1.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// each workflow edge costs (static edge weight, default 1) + (destination
	// weight: a function's own Weight, 0 for a data node): a->f1 costs
	// 1+2=3, f1->b costs 1+0=1, so dist[b]=4; b->f2 costs 1+3=4, f2->c
	// costs 1+0=1, so dist[c]=dist[b]+4+1=9.
	if run.Dist["b"] != 4 {
		t.Fatalf("expected dist[b]=4, got %v", run.Dist["b"])
	}
	if run.Dist["c"] != 9 {
		t.Fatalf("expected dist[c]=9, got %v", run.Dist["c"])
	}
}

func TestNoCallPlaceholdersMatchSubsequentRealDispatch(t *testing.T) {
	d := dispatcher.New("no-call-then-real")
	d.AddData("a")
	d.AddData("b")
	d.AddFunction("double", func(inputs ...any) (any, error) { return inputs[0].(float64) * 2, nil },
		dispatcher.WithInputs("a"), dispatcher.WithOutputs("b"))

	dry, err := Dispatch(d, map[string]any{"a": 6.0}, NoCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !types.IsNone(dry.DataOutput["b"]) {
		t.Fatalf("expected a NONE placeholder for b under no_call, got %v", dry.DataOutput["b"])
	}

	real, err := Dispatch(d, map[string]any{"a": 6.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if real.DataOutput["b"] != 12.0 {
		t.Fatalf("expected b=12.0 on the real dispatch, got %v", real.DataOutput["b"])
	}
	if len(dry.Workflow.Successors("a")) != len(real.Workflow.Successors("a")) {
		t.Fatalf("expected the same workflow edges between the dry run and the real run")
	}
}
