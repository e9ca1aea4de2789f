// Package schema loads a dispatcher graph from a JSON payload: node and
// edge shape declared as data, function ids resolved against a caller-
// supplied Registry, and optional expr-lang predicates/aggregators
// compiled through pkg/expression. The payload is validated against a
// bundled JSON Schema before any graph is built from it.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/arcidispatch/dispatch/pkg/dispatcher"
	"github.com/arcidispatch/dispatch/pkg/expression"
	"github.com/arcidispatch/dispatch/pkg/types"
)

//go:embed schema.json
var schemaDoc []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaDoc)

// DataPayload describes one data node.
type DataPayload struct {
	ID           string `json:"id"`
	DefaultValue any    `json:"default_value,omitempty"`
	WaitInputs   bool   `json:"wait_inputs,omitempty"`
	Wildcard     *bool  `json:"wildcard,omitempty"`
	Description  string `json:"description,omitempty"`
}

// FunctionPayload describes one function node. FunctionRef names an entry
// in the Registry passed to Load; JSON cannot carry an executable
// callable, so the callable itself is always supplied by the caller.
type FunctionPayload struct {
	ID          string   `json:"id"`
	FunctionRef string   `json:"function"`
	Inputs      []string `json:"inputs"`
	Outputs     []string `json:"outputs"`
	InputDomain string   `json:"input_domain,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Description string   `json:"description,omitempty"`
}

// GraphPayload is the wire format Load expects.
type GraphPayload struct {
	Name          string            `json:"name"`
	Data          []DataPayload     `json:"data"`
	Functions     []FunctionPayload `json:"functions"`
	DefaultValues map[string]any    `json:"default_values,omitempty"`
}

// Registry resolves a FunctionPayload's FunctionRef to the Go callable
// that actually runs, and names the pool of expr-lang compiled callables
// a payload's InputDomain expressions draw from.
type Registry struct {
	Functions map[string]types.Function
	Expr      *expression.Engine
}

// NewRegistry returns an empty Registry with its own expression.Engine.
func NewRegistry() *Registry {
	return &Registry{
		Functions: make(map[string]types.Function),
		Expr:      expression.NewEngine(),
	}
}

// Register adds fn under name, for FunctionPayload.FunctionRef to resolve.
func (r *Registry) Register(name string, fn types.Function) {
	r.Functions[name] = fn
}

// Graph is the result of a successful Load: the built dispatcher and a
// uuid stamped at load time, distinguishing one JSON load of a graph
// description from another independent load of the same bytes.
type Graph struct {
	ID         string
	Dispatcher *dispatcher.Dispatcher
}

// Validate checks payload against the bundled JSON Schema and returns
// every violation found, nil if payload is valid.
func Validate(payload []byte) ([]gojsonschema.ResultError, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("schema: validation failed: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	return result.Errors(), nil
}

// Load validates payload, then builds a dispatcher.Dispatcher from it: one
// AddData call per data entry, one AddFunction call per function entry
// with its FunctionRef resolved through registry, and one SetDefaultValue
// call per default_values entry.
func Load(payload []byte, registry *Registry) (*Graph, error) {
	violations, err := Validate(payload)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, fmt.Errorf("schema: payload failed validation: %s", violations[0].String())
	}

	var g GraphPayload
	if err := json.Unmarshal(payload, &g); err != nil {
		return nil, fmt.Errorf("schema: malformed payload: %w", err)
	}

	d := dispatcher.New(g.Name)

	for _, dp := range g.Data {
		opts := []dispatcher.DataOption{}
		if dp.DefaultValue != nil {
			opts = append(opts, dispatcher.WithDefaultValue(dp.DefaultValue))
		}
		if dp.WaitInputs {
			opts = append(opts, dispatcher.WithWaitInputs(true))
		}
		if dp.Wildcard != nil {
			opts = append(opts, dispatcher.WithWildcard(*dp.Wildcard))
		}
		if dp.Description != "" {
			opts = append(opts, dispatcher.WithDataDescription(dp.Description))
		}
		if _, err := d.AddData(dp.ID, opts...); err != nil {
			return nil, fmt.Errorf("schema: data node %q: %w", dp.ID, err)
		}
	}

	for _, fp := range g.Functions {
		fn, ok := registry.Functions[fp.FunctionRef]
		if !ok {
			return nil, fmt.Errorf("schema: function node %q references unregistered function %q", fp.ID, fp.FunctionRef)
		}

		opts := []dispatcher.FunctionOption{
			dispatcher.WithInputs(fp.Inputs...),
			dispatcher.WithOutputs(fp.Outputs...),
		}
		if fp.Weight != nil {
			opts = append(opts, dispatcher.WithWeight(*fp.Weight))
		}
		if fp.Description != "" {
			opts = append(opts, dispatcher.WithFunctionDescription(fp.Description))
		}
		if fp.InputDomain != "" {
			if registry.Expr == nil {
				return nil, fmt.Errorf("schema: function node %q declares input_domain but registry has no expression engine", fp.ID)
			}
			domain, err := registry.Expr.CompileInputDomain(fp.InputDomain, fp.Inputs)
			if err != nil {
				return nil, fmt.Errorf("schema: function node %q: %w", fp.ID, err)
			}
			opts = append(opts, dispatcher.WithInputDomain(domain))
		}

		if _, err := d.AddFunction(fp.ID, fn, opts...); err != nil {
			return nil, fmt.Errorf("schema: function node %q: %w", fp.ID, err)
		}
	}

	for id, v := range g.DefaultValues {
		if err := d.SetDefaultValue(id, v); err != nil {
			return nil, fmt.Errorf("schema: default value %q: %w", id, err)
		}
	}

	return &Graph{ID: uuid.NewString(), Dispatcher: d}, nil
}
