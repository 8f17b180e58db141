// Package sweep loads parameter sets and expands them into the concrete run
// configurations of a batch.
package sweep

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/me/gosweep/pkg/model"
)

// Param is one swept configuration key and its candidate values.
type Param struct {
	Name   string
	Values []string
}

// Params is an ordered list of swept keys. Order determines the expansion
// order and is the order in which keys were written in the params file.
type Params []Param

// Size returns the number of runs the params expand to.
func (p Params) Size() int {
	if len(p) == 0 {
		return 0
	}
	n := 1
	for _, param := range p {
		n *= len(param.Values)
	}
	return n
}

// Names returns the parameter names in order.
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Validate rejects empty parameter sets, unnamed or duplicate keys and keys
// without candidate values.
func (p Params) Validate() error {
	if len(p) == 0 {
		return model.NewSetupError("params", "no params available")
	}
	seen := make(map[string]bool, len(p))
	for _, param := range p {
		if strings.TrimSpace(param.Name) == "" {
			return model.NewSetupError("params", "parameter with empty name")
		}
		if seen[param.Name] {
			return model.NewSetupError("params", "duplicate parameter %q", param.Name)
		}
		seen[param.Name] = true
		if len(param.Values) == 0 {
			return model.NewSetupError("params", "parameter %q has no values", param.Name)
		}
	}
	return nil
}

// LoadParams reads a params file.
func LoadParams(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.SetupError{Field: "params", Message: "read params file", Err: err}
	}
	params, err := ParseParams(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return params, nil
}

// ParseParams decodes a YAML mapping of parameter name to candidate values.
// A value is either a list of scalars or a generator mapping:
//
//	numChildren: [2, 4]
//	weightsString:
//	  weights: {alpha: 0.3, beta: [0.20, 0.25, 0.01], precision: 2}
//	numIterations:
//	  expr: "range(10, 40, 10)"
func ParseParams(data []byte) (Params, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, model.NewSetupError("params", "no params available")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("params: expected a mapping at line %d", root.Line)
	}

	params := make(Params, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		values, err := decodeValues(root.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", name, err)
		}
		params = append(params, Param{Name: name, Values: values})
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

func decodeValues(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		values := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: values must be scalars", item.Line)
			}
			values = append(values, item.Value)
		}
		return values, nil
	case yaml.MappingNode:
		var gen generatorSpec
		if err := n.Decode(&gen); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return gen.generate()
	default:
		return nil, fmt.Errorf("line %d: unsupported value", n.Line)
	}
}

// generatorSpec selects exactly one value generator.
type generatorSpec struct {
	Weights *WeightsSpec `yaml:"weights"`
	Expr    string       `yaml:"expr"`
}

func (g generatorSpec) generate() ([]string, error) {
	switch {
	case g.Weights != nil && g.Expr != "":
		return nil, fmt.Errorf("generator must set only one of weights, expr")
	case g.Weights != nil:
		return GenerateWeights(*g.Weights)
	case g.Expr != "":
		return EvalExpr(g.Expr)
	default:
		return nil, fmt.Errorf("unknown generator; expected weights or expr")
	}
}
