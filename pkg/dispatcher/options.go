package dispatcher

import "github.com/arcidispatch/dispatch/pkg/types"

// DataOption configures AddData.
type DataOption func(*types.DataAttrs)

func WithDefaultValue(v any) DataOption {
	return func(a *types.DataAttrs) { a.DefaultValue = v }
}

func WithWildcard(w bool) DataOption {
	return func(a *types.DataAttrs) { a.Wildcard = w }
}

func WithWaitInputs(w bool) DataOption {
	return func(a *types.DataAttrs) { a.WaitInputs = w }
}

func WithDataFunction(fn types.Function) DataOption {
	return func(a *types.DataAttrs) { a.Function = fn }
}

func WithCallback(cb func(value any)) DataOption {
	return func(a *types.DataAttrs) { a.Callback = cb }
}

func WithDataDescription(desc string) DataOption {
	return func(a *types.DataAttrs) { a.Description = desc }
}

// FunctionOption configures AddFunction.
type FunctionOption func(*types.FunctionAttrs)

func WithInputs(ids ...string) FunctionOption {
	return func(a *types.FunctionAttrs) { a.Inputs = ids }
}

func WithOutputs(ids ...string) FunctionOption {
	return func(a *types.FunctionAttrs) { a.Outputs = ids }
}

func WithInputDomain(fn func(inputs ...any) bool) FunctionOption {
	return func(a *types.FunctionAttrs) { a.InputDomain = fn }
}

func WithWeight(w float64) FunctionOption {
	return func(a *types.FunctionAttrs) { a.Weight = &w }
}

// WithWeightTo sets the edge weight from the function node to a specific
// declared output.
func WithWeightTo(id string, w float64) FunctionOption {
	return func(a *types.FunctionAttrs) {
		if a.OutWeights == nil {
			a.OutWeights = make(map[string]float64)
		}
		a.OutWeights[id] = w
	}
}

// WithWeightFrom sets the edge weight from a specific declared input to the
// function node.
func WithWeightFrom(id string, w float64) FunctionOption {
	return func(a *types.FunctionAttrs) {
		if a.InWeights == nil {
			a.InWeights = make(map[string]float64)
		}
		a.InWeights[id] = w
	}
}

func WithFunctionDescription(desc string) FunctionOption {
	return func(a *types.FunctionAttrs) { a.Description = desc }
}
