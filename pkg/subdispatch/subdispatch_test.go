package subdispatch

import (
	"errors"
	"testing"

	"github.com/arcidispatch/dispatch/pkg/config"
	"github.com/arcidispatch/dispatch/pkg/dispatcher"
	"github.com/arcidispatch/dispatch/pkg/types"
)

func add(inputs ...any) (any, error) {
	return inputs[0].(int) + inputs[1].(int), nil
}

func childDispatcher() *dispatcher.Dispatcher {
	d := dispatcher.New("child")
	d.AddFunction("add", add, dispatcher.WithInputs("a", "b"), dispatcher.WithOutputs("c"))
	return d
}

func TestSubDispatchCallReturnsFullDataOutput(t *testing.T) {
	sd := New(childDispatcher(), nil)

	out, err := sd.Call(map[string]any{"a": 2, "b": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := out.(map[string]any)
	if data["c"] != 5 {
		t.Fatalf("expected c=5, got %v", data["c"])
	}
	if sd.DataOutput["c"] != 5 {
		t.Fatalf("expected recorded DataOutput[c]=5, got %v", sd.DataOutput["c"])
	}
}

func TestSubDispatchCallCombinesMultipleInputDicts(t *testing.T) {
	sd := New(childDispatcher(), []string{"c"}, WithOutputType(OutputList))

	out, err := sd.Call(map[string]any{"a": 2}, map[string]any{"b": 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 6 {
		t.Fatalf("expected single output 6, got %v", out)
	}
}

func TestSubDispatchCallOutputListTupleForMultipleOutputs(t *testing.T) {
	d := dispatcher.New("two-outputs")
	d.AddFunction("split", func(inputs ...any) (any, error) {
		return []any{inputs[0].(int) + 1, inputs[0].(int) * 2}, nil
	}, dispatcher.WithInputs("a"), dispatcher.WithOutputs("plus1", "double"))

	sd := New(d, []string{"plus1", "double"}, WithOutputType(OutputList))
	out, err := sd.Call(map[string]any{"a": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tuple, ok := out.([]any)
	if !ok || len(tuple) != 2 {
		t.Fatalf("expected a 2-element tuple, got %v", out)
	}
	if tuple[0] != 4 || tuple[1] != 6 {
		t.Fatalf("expected [4 6], got %v", tuple)
	}
}

func TestSubDispatchAsFunctionWorksAsDeclaredFunctionNode(t *testing.T) {
	sd := New(childDispatcher(), []string{"c"}, WithOutputType(OutputList))

	parent := dispatcher.New("parent")
	parent.AddFunction("child-sum", sd.AsFunction(), dispatcher.WithInputs("inputs"), dispatcher.WithOutputs("sum"))
	parent.AddData("inputs")
	parent.AddData("sum")

	fn := sd.AsFunction()
	out, err := fn(map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 3 {
		t.Fatalf("expected 3, got %v", out)
	}
}

func TestSubDispatchAsFunctionRejectsNonMapArguments(t *testing.T) {
	sd := New(childDispatcher(), nil)
	fn := sd.AsFunction()

	if _, err := fn(42); err == nil {
		t.Fatalf("expected an error for a non-map argument")
	}
}

func TestNewFunctionFailsOnUnreachableOutput(t *testing.T) {
	d := dispatcher.New("partial")
	d.AddFunction("add", add, dispatcher.WithInputs("a", "b"), dispatcher.WithOutputs("c"))

	_, err := NewFunction(d, "addFn", []string{"a", "b"}, []string{"c", "nowhere"}, nil, config.Default())
	if err == nil {
		t.Fatalf("expected an error for an unreachable output")
	}
	if !errors.Is(err, types.ErrUnreachableOutputs) {
		t.Fatalf("expected ErrUnreachableOutputs, got %v", err)
	}
}

func TestSubDispatchFunctionSingleOutputReturnsBareValue(t *testing.T) {
	d := childDispatcher()
	fn, err := NewFunction(d, "addFn", []string{"a", "b"}, []string{"c"}, nil, config.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := fn.Call(2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 5 {
		t.Fatalf("expected 5, got %v", out)
	}
}

func TestSubDispatchFunctionMultiOutputReturnsSlice(t *testing.T) {
	d := dispatcher.New("two-outputs")
	d.AddFunction("split", func(inputs ...any) (any, error) {
		return []any{inputs[0].(int) + 1, inputs[0].(int) * 2}, nil
	}, dispatcher.WithInputs("a"), dispatcher.WithOutputs("plus1", "double"))

	fn, err := NewFunction(d, "splitFn", []string{"a"}, []string{"plus1", "double"}, nil, config.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := fn.Call(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tuple, ok := out.([]any)
	if !ok || len(tuple) != 2 || tuple[0] != 4 || tuple[1] != 6 {
		t.Fatalf("expected [4 6], got %v", out)
	}
}

func TestSubDispatchFunctionWrongArgCountErrors(t *testing.T) {
	d := childDispatcher()
	fn, err := NewFunction(d, "addFn", []string{"a", "b"}, []string{"c"}, nil, config.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := fn.Call(1); err == nil {
		t.Fatalf("expected an error for a wrong argument count")
	}
}

func TestReplicateAppliesFunctionToEachInputIndependently(t *testing.T) {
	double := func(inputs ...any) (any, error) { return inputs[0].(int) * 2, nil }
	rep := Replicate(double)

	out, err := rep(1, 2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := out.([]any)
	if !ok || len(got) != 3 {
		t.Fatalf("expected a 3-element slice, got %v", out)
	}
	if got[0] != 2 || got[1] != 4 || got[2] != 6 {
		t.Fatalf("expected [2 4 6], got %v", got)
	}
}

func TestReplicatePropagatesUnderlyingError(t *testing.T) {
	boom := errors.New("boom")
	failing := func(inputs ...any) (any, error) { return nil, boom }
	rep := Replicate(failing)

	if _, err := rep(1); !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
}
