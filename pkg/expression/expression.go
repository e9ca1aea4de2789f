// Package expression compiles string expressions into the two kinds of
// callable a dispatcher graph declares in code: a function node's
// input_domain predicate and a data node's estimation (aggregator)
// function. It is a declarative on-ramp alongside hand-written Go
// callables, not a replacement for them.
package expression

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/arcidispatch/dispatch/pkg/types"
)

// Engine wraps expr-lang/expr, caching each expression's compiled program
// by its source text.
type Engine struct {
	programCache map[string]*vm.Program
}

// NewEngine returns an Engine with an empty program cache.
func NewEngine() *Engine {
	return &Engine{programCache: make(map[string]*vm.Program)}
}

// CompileInputDomain compiles expression into a function node's
// InputDomain predicate. argNames binds each positional argument the
// predicate is later called with, in declared-input order, to its name
// inside expression.
func (e *Engine) CompileInputDomain(expression string, argNames []string) (func(inputs ...any) bool, error) {
	program, err := e.compile(expression, expr.AsBool())
	if err != nil {
		return nil, err
	}
	return func(inputs ...any) bool {
		env := e.baseEnvironment()
		for i, name := range argNames {
			if i < len(inputs) {
				env[name] = inputs[i]
			}
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return false
		}
		result, ok := out.(bool)
		return ok && result
	}, nil
}

// CompileAggregator compiles expression into a data node's estimation
// function: called with the single map[string]any of predecessor-id to
// value pkg/engine feeds a data node's Function, with every predecessor
// id bound as a variable and also collected into "values" for
// order-independent reductions (sum, avg, min, max).
func (e *Engine) CompileAggregator(expression string) (types.Function, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return func(inputs ...any) (any, error) {
		if len(inputs) != 1 {
			return nil, fmt.Errorf("expression: aggregator expects a single map argument, got %d", len(inputs))
		}
		estimations, ok := inputs[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expression: aggregator expects map[string]any, got %T", inputs[0])
		}
		env := e.baseEnvironment()
		values := make([]any, 0, len(estimations))
		for k, v := range estimations {
			env[k] = v
			values = append(values, v)
		}
		env["values"] = values
		out, err := expr.Run(program, env)
		if err != nil {
			return nil, fmt.Errorf("expression: aggregator evaluation failed: %w", err)
		}
		return out, nil
	}, nil
}

func (e *Engine) compile(expression string, opts ...expr.Option) (*vm.Program, error) {
	if program, ok := e.programCache[expression]; ok {
		return program, nil
	}
	env := e.baseEnvironment()
	program, err := expr.Compile(expression, append([]expr.Option{expr.Env(env), expr.AllowUndefinedVariables()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("expression: compilation failed: %w", err)
	}
	e.programCache[expression] = program
	return program, nil
}

// baseEnvironment returns the custom function set every compiled
// expression sees, in addition to expr-lang's own builtins (len, map,
// filter, abs, floor, ceil, round, sum, ...).
func (e *Engine) baseEnvironment() map[string]any {
	env := make(map[string]any)

	env["avg"] = func(args ...any) (float64, error) {
		vals, err := toFloatSlice(args)
		if err != nil {
			return 0, err
		}
		if len(vals) == 0 {
			return 0, nil
		}
		total := 0.0
		for _, v := range vals {
			total += v
		}
		return total / float64(len(vals)), nil
	}
	env["min"] = func(args ...any) (float64, error) {
		vals, err := toFloatSlice(args)
		if err != nil {
			return 0, err
		}
		if len(vals) == 0 {
			return 0, fmt.Errorf("min() requires at least 1 argument")
		}
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	}
	env["max"] = func(args ...any) (float64, error) {
		vals, err := toFloatSlice(args)
		if err != nil {
			return 0, err
		}
		if len(vals) == 0 {
			return 0, fmt.Errorf("max() requires at least 1 argument")
		}
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	}
	env["contains"] = func(s, substr string) bool { return strings.Contains(s, substr) }
	env["startsWith"] = func(s, prefix string) bool { return strings.HasPrefix(s, prefix) }
	env["endsWith"] = func(s, suffix string) bool { return strings.HasSuffix(s, suffix) }
	env["upper"] = strings.ToUpper
	env["lower"] = strings.ToLower
	env["trim"] = strings.TrimSpace
	env["pow"] = math.Pow
	env["sqrt"] = math.Sqrt
	env["isNull"] = func(v any) bool { return v == nil }
	env["coalesce"] = func(args ...any) any {
		for _, arg := range args {
			if arg != nil {
				return arg
			}
		}
		return nil
	}
	env["now"] = time.Now

	return env
}

func toFloatSlice(args []any) ([]float64, error) {
	if len(args) == 1 {
		if arr, ok := args[0].([]any); ok {
			args = arr
		}
	}
	out := make([]float64, len(args))
	for i, v := range args {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("expression: expected a numeric value, got %T", v)
		}
		out[i] = f
	}
	return out, nil
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	}
	return 0, false
}
