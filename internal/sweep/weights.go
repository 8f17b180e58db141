package sweep

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Range is either a single value or an inclusive [start, end, step] sweep.
type Range struct {
	Start float64
	End   float64
	Step  float64
}

// Fixed returns a Range holding exactly v.
func Fixed(v float64) Range {
	return Range{Start: v, End: v}
}

// UnmarshalYAML accepts a number or a three-element sequence.
func (r *Range) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := n.Decode(&v); err != nil {
			return err
		}
		*r = Fixed(v)
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := n.Decode(&vs); err != nil {
			return err
		}
		if len(vs) != 3 {
			return fmt.Errorf("line %d: range needs [start, end, step], got %d values", n.Line, len(vs))
		}
		*r = Range{Start: vs[0], End: vs[1], Step: vs[2]}
		return nil
	default:
		return fmt.Errorf("line %d: range must be a number or [start, end, step]", n.Line)
	}
}

// values expands r, checking every value lies in [lo, hi].
func (r Range) values(lo, hi float64) ([]float64, error) {
	if r.Start < lo || r.Start > hi || r.End < lo || r.End > hi || r.Start > r.End {
		return nil, fmt.Errorf("range [%g:%g] outside [%g:%g]", r.Start, r.End, lo, hi)
	}
	if r.Start == r.End {
		return []float64{r.Start}, nil
	}
	if r.Step <= 0 {
		return nil, fmt.Errorf("range [%g:%g] needs a positive step, got %g", r.Start, r.End, r.Step)
	}
	// Index-based stepping keeps accumulated float error out of the count.
	n := int(math.Ceil((r.End-r.Start)/r.Step - 1e-9))
	out := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, math.Min(r.Start+float64(i)*r.Step, r.End))
	}
	return out, nil
}

// DefaultWeightsPrecision is used when a WeightsSpec leaves Precision unset.
const DefaultWeightsPrecision = 2

// WeightsSpec generates "alpha,beta" strings for the EPOS weightsString key.
type WeightsSpec struct {
	Alpha Range `yaml:"alpha"`
	Beta  Range `yaml:"beta"`

	// Precision is the number of decimals; zero means DefaultWeightsPrecision.
	Precision int `yaml:"precision"`

	// Strict turns an alpha+beta > 1 pair into an error instead of skipping it.
	Strict bool `yaml:"strict"`
}

// GenerateWeights expands the product of alpha and beta values, each in
// [0, 1], formatted with the configured precision.
func GenerateWeights(spec WeightsSpec) ([]string, error) {
	if spec.Precision < 0 {
		return nil, fmt.Errorf("weights: negative precision %d", spec.Precision)
	}
	if spec.Precision == 0 {
		spec.Precision = DefaultWeightsPrecision
	}
	alphas, err := spec.Alpha.values(0, 1)
	if err != nil {
		return nil, fmt.Errorf("weights alpha: %w", err)
	}
	betas, err := spec.Beta.values(0, 1)
	if err != nil {
		return nil, fmt.Errorf("weights beta: %w", err)
	}

	var out []string
	for _, a := range alphas {
		for _, b := range betas {
			s := strconv.FormatFloat(a, 'f', spec.Precision, 64) + "," + strconv.FormatFloat(b, 'f', spec.Precision, 64)
			if a+b > 1+1e-9 {
				if spec.Strict {
					return nil, fmt.Errorf("weights: alpha+beta > 1 for %q", s)
				}
				continue
			}
			out = append(out, s)
		}
	}
	return out, nil
}
