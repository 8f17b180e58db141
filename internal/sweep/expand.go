package sweep

import (
	"github.com/me/gosweep/pkg/properties"
)

// Combination is one element of the cartesian product of a Params set.
type Combination struct {
	// Config is the template with the assignment applied.
	Config *properties.Properties

	// Modified is the parameter assignment of this element.
	Modified map[string]string
}

// Expand returns the cartesian product of params applied to template, in
// odometer order: the last parameter varies fastest. The template is never
// modified. Swept keys missing from the template are appended after its own
// keys, in params order.
func Expand(template *properties.Properties, params Params) []Combination {
	total := params.Size()
	if total == 0 {
		return nil
	}

	out := make([]Combination, 0, total)
	idx := make([]int, len(params))
	for {
		cfg := template.Clone()
		mod := make(map[string]string, len(params))
		for i, param := range params {
			v := param.Values[idx[i]]
			cfg.Set(param.Name, v)
			mod[param.Name] = v
		}
		out = append(out, Combination{Config: cfg, Modified: mod})

		// Advance the odometer.
		pos := len(params) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(params[pos].Values) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return out
		}
	}
}
