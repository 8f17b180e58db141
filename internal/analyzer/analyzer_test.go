package analyzer

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/me/gosweep/pkg/model"
	"github.com/me/gosweep/pkg/properties"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCost(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, GlobalCostFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestMinGlobalCost_RequiredFields(t *testing.T) {
	cfg := properties.Parse("numAgents = 100\nlogger.GlobalCostLogger = false\n")
	got := NewMinGlobalCost().RequiredFields(cfg)
	if v, _ := got.Get("logger.GlobalCostLogger"); v != "true" {
		t.Errorf("GlobalCostLogger = %q, want true", v)
	}
	if diff := cmp.Diff([]string{"numAgents", "logger.GlobalCostLogger"}, got.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
}

func TestMinGlobalCost_Summarize(t *testing.T) {
	dir := writeCost(t, `Iteration,Mean,Stdev,Run-0,Run-1,Run-2
0,5.0,1.0,9.5,8.25,9.0
1,4.0,1.0,7.0,6.5,3.75
Iteration,Mean,Stdev,Run-0,Run-1,Run-2
2,3.0,1.0,4.0,5.0,6.0
`)
	rec, err := NewMinGlobalCost().Summarize(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := model.SummaryRecord{
		{Key: "iteration", Value: 1},
		{Key: "run", Value: "Run-2"},
		{Key: "var", Value: 3.75},
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestMinGlobalCost_SummarizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "header only", content: "Iteration,Mean,Stdev,Run-0\n", wantMsg: "no cost values"},
		{name: "bad value", content: "h\n0,1,1,abc\n", wantMsg: "col 3"},
		{name: "bad iteration", content: "h\nx,1,1,2\n", wantMsg: "iteration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinGlobalCost().Summarize(writeCost(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := NewMinGlobalCost().Summarize(t.TempDir())
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error = %v, want ErrNotExist", err)
		}
	})
}

func TestMinGlobalCost_PickBest(t *testing.T) {
	rec := func(v any) model.SummaryRecord {
		var r model.SummaryRecord
		r.Set("var", v)
		return r
	}
	tests := []struct {
		name      string
		summaries []model.SummaryRecord
		want      int
	}{
		{name: "empty", want: -1},
		{name: "single", summaries: []model.SummaryRecord{rec(1.0)}, want: 0},
		{name: "minimum", summaries: []model.SummaryRecord{rec(3.0), rec(1.5), rec(2.0)}, want: 1},
		{name: "first of ties", summaries: []model.SummaryRecord{rec(1.0), rec(1.0)}, want: 0},
		{name: "skips non-numeric", summaries: []model.SummaryRecord{rec("x"), {}, rec(9)}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewMinGlobalCost().PickBest(tt.summaries); got != tt.want {
				t.Errorf("PickBest = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry(newTestLogger())
	a, err := r.Get(MinGlobalCostName)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.(*MinGlobalCost); !ok {
		t.Errorf("Get returned %T", a)
	}

	_, err = r.Get("nope")
	var setupErr *model.SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("error = %v, want SetupError", err)
	}
	if diff := cmp.Diff([]string{MinGlobalCostName}, r.Names()); diff != "" {
		t.Error(diff)
	}
}

func TestBest(t *testing.T) {
	mk := func(out string, v float64) model.BundledResult {
		var s model.SummaryRecord
		s.Set("var", v)
		return model.BundledResult{Output: out, Summary: s}
	}
	results := []model.BundledResult{mk("a", 2), mk("b", 1), mk("c", 3)}
	best, ok := Best(NewMinGlobalCost(), results)
	if !ok || best.Output != "b" {
		t.Errorf("Best = (%q, %v), want (b, true)", best.Output, ok)
	}
	if _, ok := Best(NewMinGlobalCost(), nil); ok {
		t.Error("Best on empty results returned ok")
	}
}
