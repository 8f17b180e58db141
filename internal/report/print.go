package report

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/me/gosweep/internal/sweep"
	"github.com/me/gosweep/pkg/model"
)

// PrintParams logs the swept keys and their candidate values.
func PrintParams(logger *slog.Logger, params sweep.Params) {
	if len(params) == 0 {
		logger.Info("empty params")
		return
	}
	logger.Info("params", "count", len(params), "runs", params.Size())
	for _, p := range params {
		logger.Info("param", "name", p.Name, "values", "["+strings.Join(p.Values, ", ")+"]")
	}
}

// PrintResult logs one result: output name, summary values in record order
// and modified values sorted by key.
func PrintResult(logger *slog.Logger, res model.BundledResult) {
	logger.Info("output", "path", res.Output)
	for _, f := range res.Summary {
		logger.Info("report value", "key", f.Key, "value", FormatValue(f.Value))
	}
	keys := make([]string, 0, len(res.Modified))
	for k := range res.Modified {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		logger.Info("modified value", "key", k, "value", res.Modified[k])
	}
}

// PrintBest logs the best result, or "no result" when ok is false.
func PrintBest(logger *slog.Logger, best model.BundledResult, ok bool) {
	if !ok {
		logger.Info("best result: no result")
		return
	}
	logger.Info("best result")
	PrintResult(logger, best)
}
