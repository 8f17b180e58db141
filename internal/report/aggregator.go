// Package report writes the batch result table and prints batch summaries.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/me/gosweep/pkg/model"
)

const (
	ColumnOutput   = "output"
	ColumnModified = "modified"
	SummaryPrefix  = "summary."
)

// Aggregator appends BundledResults to a CSV report, one row per result.
//
// The header is fixed by the first append: either read back from an
// existing report or built from the first record's keys. Every row is
// aligned to that header by column name. Aggregator is not safe for
// concurrent use; callers serialize Append.
type Aggregator struct {
	path   string
	header []string
	rows   int
	logger *slog.Logger
}

// NewAggregator creates an Aggregator writing to path. The file is not
// touched until the first Append.
func NewAggregator(path string, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		path:   path,
		logger: logger.With("component", "report"),
	}
}

// Path returns the report location.
func (a *Aggregator) Path() string {
	return a.path
}

// Header returns a copy of the header, or nil before the first Append.
func (a *Aggregator) Header() []string {
	if a.header == nil {
		return nil
	}
	return append([]string(nil), a.header...)
}

// Rows returns the number of data rows written by this Aggregator.
func (a *Aggregator) Rows() int {
	return a.rows
}

// Append writes one row for res, writing the header first if the report
// does not exist yet, and syncs the file before returning.
func (a *Aggregator) Append(res model.BundledResult) error {
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if a.header == nil {
		existing, err := readHeader(f)
		if err != nil {
			return fmt.Errorf("read report header: %w", err)
		}
		if existing != nil {
			a.header = existing
			a.logger.Info("appending to existing report", "path", a.path, "columns", len(existing))
		} else {
			header := []string{ColumnOutput, ColumnModified}
			for _, key := range res.Summary.Keys() {
				header = append(header, SummaryColumn(key))
			}
			if err := w.Write(header); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
			a.header = header
		}
	}

	if err := w.Write(a.row(res)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync report: %w", err)
	}
	a.rows++
	return nil
}

// SummaryColumn returns the report column of a summary key. Keys that
// collide with a fixed column get a "summary." prefix.
func SummaryColumn(key string) string {
	if key == ColumnOutput || key == ColumnModified {
		return SummaryPrefix + key
	}
	return key
}

// row aligns res to the header. Missing keys yield empty cells; keys not in
// the header are dropped.
func (a *Aggregator) row(res model.BundledResult) []string {
	keys := res.Summary.Keys()
	keyFor := make(map[string]string, len(keys))
	for _, key := range keys {
		keyFor[SummaryColumn(key)] = key
	}

	row := make([]string, len(a.header))
	inHeader := make(map[string]bool, len(a.header))
	for i, col := range a.header {
		inHeader[col] = true
		switch col {
		case ColumnOutput:
			row[i] = res.Output
		case ColumnModified:
			row[i] = res.ModifiedString()
		default:
			key, ok := keyFor[col]
			if !ok {
				a.logger.Warn("summary missing report column", "output", res.Output, "column", col)
				continue
			}
			v, _ := res.Summary.Get(key)
			row[i] = FormatValue(v)
		}
	}
	for _, key := range keys {
		if !inHeader[SummaryColumn(key)] {
			a.logger.Warn("summary key not in report header, dropped", "output", res.Output, "key", key)
		}
	}
	return row
}

// readHeader returns the first record of f, or nil if f is empty.
func readHeader(f *os.File) ([]string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return header, nil
}

// FormatValue renders a summary value as a report cell.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
