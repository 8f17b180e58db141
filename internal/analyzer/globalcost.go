package analyzer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/me/gosweep/pkg/model"
	"github.com/me/gosweep/pkg/properties"
)

const (
	// MinGlobalCostName is the registry name of MinGlobalCost.
	MinGlobalCostName = "min-global-cost"

	// GlobalCostFile is the per-iteration global cost table EPOS writes
	// when its GlobalCostLogger is enabled.
	GlobalCostFile = "global-cost.csv"

	globalCostLoggerKey = "logger.GlobalCostLogger"

	// Columns before the first per-run cost column.
	costColumnOffset = 3
)

// MinGlobalCost summarizes a run by the lowest global cost reached by any
// simulation repetition at any iteration.
type MinGlobalCost struct{}

// NewMinGlobalCost creates the analyzer.
func NewMinGlobalCost() *MinGlobalCost {
	return &MinGlobalCost{}
}

// RequiredFields enables the global cost logger.
func (m *MinGlobalCost) RequiredFields(cfg *properties.Properties) *properties.Properties {
	if cfg == nil {
		cfg = properties.New()
	}
	cfg.Set(globalCostLoggerKey, "true")
	return cfg
}

// Summarize scans global-cost.csv and returns the minimum as
// {iteration, run, var}.
func (m *MinGlobalCost) Summarize(outputDir string) (model.SummaryRecord, error) {
	path := filepath.Join(outputDir, GlobalCostFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("global cost csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	best := math.MaxFloat64
	bestIter, bestRun := 0, -1
	for line := 0; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if line == 0 || (len(row) > 0 && row[0] == "Iteration") {
			continue
		}
		if len(row) <= costColumnOffset {
			continue
		}
		iter, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: iteration: %w", path, line+1, err)
		}
		for col := costColumnOffset; col < len(row); col++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d col %d: %w", path, line+1, col, err)
			}
			if v < best {
				best, bestIter, bestRun = v, iter, col-costColumnOffset
			}
		}
	}
	if bestRun < 0 {
		return nil, fmt.Errorf("%s: no cost values", path)
	}

	var rec model.SummaryRecord
	rec.Set("iteration", bestIter)
	rec.Set("run", fmt.Sprintf("Run-%d", bestRun))
	rec.Set("var", best)
	return rec, nil
}

// PickBest returns the summary with the smallest var.
func (m *MinGlobalCost) PickBest(summaries []model.SummaryRecord) int {
	idx := -1
	best := math.Inf(1)
	for i, s := range summaries {
		raw, ok := s.Get("var")
		if !ok {
			continue
		}
		v, err := toFloat(raw)
		if err != nil {
			continue
		}
		if idx < 0 || v < best {
			idx, best = i, v
		}
	}
	return idx
}
