// Package combinators provides the small stateless functions the
// dispatcher wires onto auto-created nodes (Bypass onto SINK) and that
// client graphs commonly reach for when shaping data between function
// nodes: combining dicts, summing, remapping keys, selecting a subset,
// replicating a value.
package combinators

import "fmt"

// Bypass returns its arguments unchanged: a single value if called with
// exactly one argument, or the slice of arguments otherwise.
func Bypass(inputs ...any) (any, error) {
	if len(inputs) == 1 {
		return inputs[0], nil
	}
	return inputs, nil
}

// Summation adds every input, which must each be an int, float32, float64
// or a numeric combination thereof.
func Summation(inputs ...any) (any, error) {
	var total float64
	allInt := true
	for _, v := range inputs {
		f, isInt, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		total += f
		allInt = allInt && isInt
	}
	if allInt {
		return int(total), nil
	}
	return total, nil
}

func toFloat(v any) (f float64, isInt bool, err error) {
	switch n := v.(type) {
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case float32:
		return float64(n), false, nil
	case float64:
		return n, false, nil
	default:
		return 0, false, fmt.Errorf("combinators: summation: non-numeric input %T", v)
	}
}

// CombineDicts merges a sequence of maps into one, later maps overriding
// earlier ones on key collision.
func CombineDicts(dicts ...map[string]any) map[string]any {
	if len(dicts) == 1 {
		return dicts[0]
	}
	out := make(map[string]any)
	for _, d := range dicts {
		for k, v := range d {
			out[k] = v
		}
	}
	return out
}

// MapDict combines dicts and renames any key present in keyMap.
func MapDict(keyMap map[string]string, dicts ...map[string]any) map[string]any {
	combined := CombineDicts(dicts...)
	out := make(map[string]any, len(combined))
	for k, v := range combined {
		if renamed, ok := keyMap[k]; ok {
			out[renamed] = v
		} else {
			out[k] = v
		}
	}
	return out
}

// MapList pairs keyMap entries with inputs positionally: a string entry in
// keyMap renames that input's value under the new key; a map entry treats
// the corresponding input as a map and applies MapDict to it; a slice
// entry treats the corresponding input as a slice of values and recurses.
func MapList(keyMap []any, inputs ...any) map[string]any {
	out := make(map[string]any)
	for i, m := range keyMap {
		if i >= len(inputs) {
			break
		}
		v := inputs[i]
		switch key := m.(type) {
		case map[string]string:
			if asMap, ok := v.(map[string]any); ok {
				for rk, rv := range MapDict(key, asMap) {
					out[rk] = rv
				}
			}
		case []any:
			if asSlice, ok := v.([]any); ok {
				for rk, rv := range MapList(key, asSlice...) {
					out[rk] = rv
				}
			}
		case string:
			out[key] = v
		}
	}
	return out
}

// Selector returns the subset of combined dicts' entries whose key is in
// keys.
func Selector(keys []string, dicts ...map[string]any) map[string]any {
	combined := CombineDicts(dicts...)
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := make(map[string]any, len(keys))
	for k, v := range combined {
		if want[k] {
			out[k] = v
		}
	}
	return out
}

// ReplicateValue returns a slice with value repeated n times.
func ReplicateValue(value any, n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = value
	}
	return out
}
