package sweep

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dop251/goja"
)

// EvalExpr evaluates a JavaScript expression that must produce an array of
// candidate values. A range(start, end, step) helper with an inclusive end
// is predefined.
func EvalExpr(expr string) ([]string, error) {
	vm := goja.New()
	if err := vm.Set("range", jsRange); err != nil {
		return nil, fmt.Errorf("set range: %w", err)
	}

	val, err := vm.RunString(expr)
	if err != nil {
		return nil, fmt.Errorf("JavaScript error: %w", err)
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, fmt.Errorf("expression %q produced no value", expr)
	}

	items, ok := val.Export().([]any)
	if !ok {
		return nil, fmt.Errorf("expression %q must produce an array, got %T", expr, val.Export())
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := scalarString(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func jsRange(start, end, step float64) []any {
	if step <= 0 || start > end {
		return nil
	}
	var out []any
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v > end+1e-9 {
			break
		}
		out = append(out, math.Round(v*1e9)/1e9)
	}
	return out
}

func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}
