package batch

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/me/gosweep/internal/analyzer"
	"github.com/me/gosweep/internal/scheduler"
	"github.com/me/gosweep/pkg/model"
)

// Summary is the final account of a batch.
type Summary struct {
	ID         string
	Dir        string
	ReportPath string
	Total      int
	Failed     int
	Elapsed    time.Duration
	Results    []model.BundledResult
	Outcomes   []model.RunOutcome

	Best    model.BundledResult
	HasBest bool
}

func newSummary(id, dir, reportPath string, res *scheduler.Result, a analyzer.Analyzer) *Summary {
	s := &Summary{
		ID:         id,
		Dir:        dir,
		ReportPath: reportPath,
		Total:      res.Total,
		Failed:     res.Failed,
		Elapsed:    res.Elapsed,
		Results:    res.Results,
		Outcomes:   res.Outcomes,
	}
	s.Best, s.HasBest = analyzer.Best(a, res.Results)
	return s
}

// Succeeded returns the number of reported runs.
func (s *Summary) Succeeded() int {
	return s.Total - s.Failed
}

// Log writes the batch totals.
func (s *Summary) Log(logger *slog.Logger) {
	attrs := []any{
		"batch", s.ID,
		"total", humanize.Comma(int64(s.Total)),
		"succeeded", humanize.Comma(int64(s.Succeeded())),
		"failed", humanize.Comma(int64(s.Failed)),
		"elapsed", s.Elapsed.Round(time.Second).String(),
		"minutes", fmt.Sprintf("%.2f", s.Elapsed.Minutes()),
	}
	if fi, err := os.Stat(s.ReportPath); err == nil {
		attrs = append(attrs, "report", s.ReportPath, "report_size", humanize.Bytes(uint64(fi.Size())))
	}
	logger.Info("batch finished", attrs...)
	if s.Failed > 0 {
		logger.Warn("some runs failed", "failed", s.Failed, "of", s.Total,
			"failure_rate", humanize.FtoaWithDigits(100*float64(s.Failed)/float64(s.Total), 1)+"%")
	}
}
