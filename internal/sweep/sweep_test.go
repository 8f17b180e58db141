package sweep

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/me/gosweep/pkg/model"
	"github.com/me/gosweep/pkg/properties"
)

func TestExpand_TwoByTwo(t *testing.T) {
	template := properties.Parse("dataset = gaussian\n")
	params := Params{
		{Name: "x", Values: []string{"1", "2"}},
		{Name: "y", Values: []string{"a", "b"}},
	}

	got := Expand(template, params)

	var mods []map[string]string
	for _, c := range got {
		mods = append(mods, c.Modified)
	}
	want := []map[string]string{
		{"x": "1", "y": "a"},
		{"x": "1", "y": "b"},
		{"x": "2", "y": "a"},
		{"x": "2", "y": "b"},
	}
	if diff := cmp.Diff(want, mods); diff != "" {
		t.Errorf("Modified mismatch (-want +got):\n%s", diff)
	}

	wantKeys := []string{"dataset", "x", "y"}
	for i, c := range got {
		if diff := cmp.Diff(wantKeys, c.Config.Keys()); diff != "" {
			t.Errorf("run %d keys (-want +got):\n%s", i, diff)
		}
		if v, _ := c.Config.Get("dataset"); v != "gaussian" {
			t.Errorf("run %d dataset = %q", i, v)
		}
	}

	if template.Len() != 1 {
		t.Errorf("template modified: %v", template.Keys())
	}
}

func TestExpand_OverridesTemplateInPlace(t *testing.T) {
	template := properties.Parse("numChildren = 2\ndataset = gaussian\n")
	got := Expand(template, Params{{Name: "numChildren", Values: []string{"4"}}})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if diff := cmp.Diff([]string{"numChildren", "dataset"}, got[0].Config.Keys()); diff != "" {
		t.Errorf("key order (-want +got):\n%s", diff)
	}
	if v, _ := got[0].Config.Get("numChildren"); v != "4" {
		t.Errorf("numChildren = %q, want 4", v)
	}
}

func TestExpand_Empty(t *testing.T) {
	if got := Expand(properties.New(), nil); got != nil {
		t.Errorf("Expand(nil params) = %v, want nil", got)
	}
	if got := Expand(properties.New(), Params{{Name: "x"}}); got != nil {
		t.Errorf("Expand with empty values = %v, want nil", got)
	}
}

func TestExpand_ProductProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(t, "params")
		params := make(Params, n)
		want := 1
		for i := range params {
			c := rapid.IntRange(1, 4).Draw(t, fmt.Sprintf("card%d", i))
			values := make([]string, c)
			for j := range values {
				values[j] = fmt.Sprintf("v%d", j)
			}
			params[i] = Param{Name: fmt.Sprintf("p%d", i), Values: values}
			want *= c
		}

		got := Expand(properties.New(), params)
		require.Len(t, got, want)
		require.Equal(t, want, params.Size())

		seen := make(map[string]bool, len(got))
		for _, c := range got {
			require.Len(t, c.Modified, n)
			key := model.FormatModified(c.Modified)
			require.False(t, seen[key], "duplicate assignment %s", key)
			seen[key] = true
			for name, v := range c.Modified {
				cv, ok := c.Config.Get(name)
				require.True(t, ok)
				require.Equal(t, v, cv)
			}
		}
	})
}

func TestParseParams(t *testing.T) {
	data := `
numChildren: [2, 4]
dataset: gaussian
weightsString:
  weights:
    alpha: 0.3
    beta: [0.20, 0.25, 0.01]
    precision: 2
numIterations:
  expr: "range(10, 30, 10)"
shuffle: [true, false]
`
	params, err := ParseParams([]byte(data))
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}

	want := Params{
		{Name: "numChildren", Values: []string{"2", "4"}},
		{Name: "dataset", Values: []string{"gaussian"}},
		{Name: "weightsString", Values: []string{"0.30,0.20", "0.30,0.21", "0.30,0.22", "0.30,0.23", "0.30,0.24", "0.30,0.25"}},
		{Name: "numIterations", Values: []string{"10", "20", "30"}},
		{Name: "shuffle", Values: []string{"true", "false"}},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if params.Size() != 2*1*6*3*2 {
		t.Errorf("Size = %d", params.Size())
	}
}

func TestParseParams_Errors(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantSetup bool
		wantMsg   string
	}{
		{name: "empty document", data: "", wantSetup: true},
		{name: "empty mapping", data: "{}", wantSetup: true},
		{name: "no values", data: "x: []", wantSetup: true, wantMsg: `"x" has no values`},
		{name: "duplicate", data: "x: [1]\nx: [2]", wantMsg: "duplicate"},
		{name: "not a mapping", data: "- 1\n- 2", wantMsg: "expected a mapping"},
		{name: "nested list", data: "x: [[1, 2]]", wantMsg: "scalars"},
		{name: "unknown generator", data: "x: {foo: 1}", wantMsg: "unknown generator"},
		{name: "two generators", data: "x: {expr: '[1]', weights: {alpha: 0.1, beta: 0.1}}", wantMsg: "only one"},
		{name: "bad expr", data: "x: {expr: 'nope('}", wantMsg: "JavaScript error"},
		{name: "expr not array", data: "x: {expr: '42'}", wantMsg: "must produce an array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParams([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			var setupErr *model.SetupError
			if tt.wantSetup && !errors.As(err, &setupErr) {
				t.Errorf("error %v is not a SetupError", err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestGenerateWeights(t *testing.T) {
	tests := []struct {
		name    string
		spec    WeightsSpec
		want    []string
		wantErr bool
	}{
		{
			name: "fixed pair",
			spec: WeightsSpec{Alpha: Fixed(0.3), Beta: Fixed(0.2), Precision: 1},
			want: []string{"0.3,0.2"},
		},
		{
			name: "default precision",
			spec: WeightsSpec{Alpha: Fixed(0.5), Beta: Fixed(0.25)},
			want: []string{"0.50,0.25"},
		},
		{
			name: "overflow skipped",
			spec: WeightsSpec{Alpha: Range{Start: 0.4, End: 0.6, Step: 0.1}, Beta: Fixed(0.5)},
			want: []string{"0.40,0.50", "0.50,0.50"},
		},
		{
			name:    "overflow strict",
			spec:    WeightsSpec{Alpha: Fixed(0.9), Beta: Fixed(0.2), Strict: true},
			wantErr: true,
		},
		{
			name: "end capped",
			spec: WeightsSpec{Alpha: Range{Start: 0, End: 1, Step: 0.3}, Beta: Fixed(0), Precision: 1},
			want: []string{"0.0,0.0", "0.3,0.0", "0.6,0.0", "0.9,0.0", "1.0,0.0"},
		},
		{
			name:    "out of bounds",
			spec:    WeightsSpec{Alpha: Fixed(1.5), Beta: Fixed(0)},
			wantErr: true,
		},
		{
			name:    "reversed range",
			spec:    WeightsSpec{Alpha: Range{Start: 0.5, End: 0.2, Step: 0.1}, Beta: Fixed(0)},
			wantErr: true,
		},
		{
			name:    "zero step",
			spec:    WeightsSpec{Alpha: Range{Start: 0.1, End: 0.2}, Beta: Fixed(0)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateWeights(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvalExpr(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{expr: `[1, 2, 3]`, want: []string{"1", "2", "3"}},
		{expr: `["a", "b"]`, want: []string{"a", "b"}},
		{expr: `[0.5, true]`, want: []string{"0.5", "true"}},
		{expr: `range(0.1, 0.3, 0.1)`, want: []string{"0.1", "0.2", "0.3"}},
		{expr: `[2, 4, 8].map(function (n) { return n * 10; })`, want: []string{"20", "40", "80"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvalExpr(tt.expr)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestParams_Names(t *testing.T) {
	p := Params{{Name: "b", Values: []string{"1"}}, {Name: "a", Values: []string{"2"}}}
	if diff := cmp.Diff([]string{"b", "a"}, p.Names()); diff != "" {
		t.Error(diff)
	}
}
