package dispatcher

import (
	"testing"

	"github.com/arcidispatch/dispatch/pkg/engine"
	"github.com/arcidispatch/dispatch/pkg/subdispatch"
	"github.com/arcidispatch/dispatch/pkg/types"
)

func TestAddDataAutoID(t *testing.T) {
	d := New("test")
	id, err := d.AddData("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "unknown<0>" {
		t.Fatalf("expected unknown<0>, got %s", id)
	}
	id2, _ := d.AddData("")
	if id2 != "unknown<1>" {
		t.Fatalf("expected unknown<1>, got %s", id2)
	}
}

func TestAddDataDefaultValue(t *testing.T) {
	d := New("test")
	d.AddData("a", WithDefaultValue(1))
	if d.DefaultValues["a"] != 1 {
		t.Fatalf("expected default value 1")
	}
}

func TestAddDataRejectsTypeCollision(t *testing.T) {
	d := New("test")
	d.AddFunction("f", func(inputs ...any) (any, error) { return nil, nil }, WithInputs("a"), WithOutputs("b"))
	if _, err := d.AddData("f"); err == nil {
		t.Fatalf("expected error overriding a function node with a data node")
	}
}

func TestAddFunctionAutoCreatesDataNodes(t *testing.T) {
	d := New("test")
	fn := func(inputs ...any) (any, error) { return inputs[0], nil }
	id, err := d.AddFunction("f", fn, WithInputs("a", "b"), WithOutputs("c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "f" {
		t.Fatalf("expected id f, got %s", id)
	}
	for _, dataID := range []string{"a", "b", "c"} {
		if !d.Graph.HasNode(dataID) {
			t.Fatalf("expected auto-created data node %s", dataID)
		}
	}
	if !d.Graph.HasEdge("a", "f") || !d.Graph.HasEdge("f", "c") {
		t.Fatalf("expected edges a->f and f->c")
	}
}

func TestAddFunctionDefaultsToStartSink(t *testing.T) {
	d := New("test")
	fn := func(inputs ...any) (any, error) { return nil, nil }
	id, err := d.AddFunction("f", fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Graph.HasEdge("START", id) || !d.Graph.HasEdge(id, "SINK") {
		t.Fatalf("expected implicit START->f->SINK edges")
	}
}

func TestAddFunctionDuplicateIDGetsSuffix(t *testing.T) {
	d := New("test")
	fn := func(inputs ...any) (any, error) { return nil, nil }
	id1, _ := d.AddFunction("f", fn, WithInputs("a"), WithOutputs("b"))
	id2, _ := d.AddFunction("f", fn, WithInputs("a"), WithOutputs("c"))
	if id1 != "f" || id2 != "f<1>" {
		t.Fatalf("expected f and f<1>, got %s and %s", id1, id2)
	}
}

func TestAddFunctionRejectsNonDataInput(t *testing.T) {
	d := New("test")
	fn := func(inputs ...any) (any, error) { return nil, nil }
	d.AddFunction("f1", fn, WithInputs("a"), WithOutputs("b"))
	if _, err := d.AddFunction("f2", fn, WithInputs("f1"), WithOutputs("c")); err == nil {
		t.Fatalf("expected error using a function node as an input")
	}
}

func TestSetDefaultValueClearsWithEmpty(t *testing.T) {
	d := New("test")
	d.AddData("a", WithDefaultValue(1))
	if err := d.SetDefaultValue("a", types.Empty); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := d.DefaultValues["a"]; ok {
		t.Fatalf("expected default value removed")
	}
}

func TestAddDispatcherEmbedsChildAndDispatchesThroughIt(t *testing.T) {
	child := New("child")
	child.AddFunction("double", func(inputs ...any) (any, error) { return inputs[0].(float64) * 2, nil },
		WithInputs("x"), WithOutputs("y"))

	parent := New("parent")
	parent.AddData("a")
	parent.AddData("b")

	run := subdispatch.AddDispatcherAdapter(child)
	_, err := parent.AddDispatcher(child, "embedded", map[string]string{"x": "a"}, map[string]string{"y": "b"}, run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := engine.Dispatch(parent, map[string]any{"a": 3.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DataOutput["b"] != 6.0 {
		t.Fatalf("expected b=6.0 from the embedded child dispatch, got %v", result.DataOutput["b"])
	}
}

func TestAddDispatcherRejectsUnknownChildNode(t *testing.T) {
	child := New("child")
	child.AddData("x")

	parent := New("parent")
	parent.AddData("a")

	run := subdispatch.AddDispatcherAdapter(child)
	if _, err := parent.AddDispatcher(child, "embedded", map[string]string{"missing": "a"}, nil, run); err == nil {
		t.Fatalf("expected error embedding a dispatcher over a nonexistent child data node")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	d := New("test")
	d.AddData("a", WithDefaultValue(1))
	clone := d.Clone()
	clone.SetDefaultValue("a", 2)
	if d.DefaultValues["a"] != 1 {
		t.Fatalf("mutating clone affected original")
	}
}
