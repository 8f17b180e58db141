// Package analyzer defines how run results are interpreted. The batch core
// only depends on the Analyzer interface; concrete analyzers are looked up
// by name.
package analyzer

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/me/gosweep/pkg/model"
	"github.com/me/gosweep/pkg/properties"
)

// Analyzer turns a finished run's output directory into a SummaryRecord and
// ranks summaries.
type Analyzer interface {
	// RequiredFields returns cfg with any keys the analyzer depends on
	// forced. It is called once per run before the configuration is written.
	RequiredFields(cfg *properties.Properties) *properties.Properties

	// Summarize extracts the metrics of one successful run.
	Summarize(outputDir string) (model.SummaryRecord, error)

	// PickBest returns the index of the best summary, or -1 when there is
	// none.
	PickBest(summaries []model.SummaryRecord) int
}

// Registry maps analyzer names to implementations.
// Registration happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	analyzers map[string]Analyzer
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		analyzers: make(map[string]Analyzer),
		logger:    logger.With("component", "analyzer-registry"),
	}
}

// DefaultRegistry returns a Registry holding the built-in analyzers.
func DefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(MinGlobalCostName, NewMinGlobalCost())
	return r
}

// Register adds an analyzer under name, replacing any previous one.
func (r *Registry) Register(name string, a Analyzer) {
	r.analyzers[name] = a
	r.logger.Debug("analyzer registered", "name", name)
}

// Get returns the analyzer registered under name.
func (r *Registry) Get(name string) (Analyzer, error) {
	a, ok := r.analyzers[name]
	if !ok {
		return nil, model.NewSetupError("analyzer", "no analyzer registered for name %q (have %v)", name, r.Names())
	}
	return a, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.analyzers))
	for name := range r.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Best returns the best result according to a, or false when results is
// empty or a declines to pick.
func Best(a Analyzer, results []model.BundledResult) (model.BundledResult, bool) {
	if len(results) == 0 {
		return model.BundledResult{}, false
	}
	summaries := make([]model.SummaryRecord, len(results))
	for i, r := range results {
		summaries[i] = r.Summary
	}
	idx := a.PickBest(summaries)
	if idx < 0 || idx >= len(results) {
		return model.BundledResult{}, false
	}
	return results[idx], true
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %v (%T)", v, v)
	}
}
