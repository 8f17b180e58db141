package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/me/gosweep/pkg/properties"
)

// RunSpec describes one concrete simulator run. It is created once at batch
// setup and never mutated afterwards.
type RunSpec struct {
	Index int `json:"index"`

	// Config is the full configuration written to ConfigPath.
	Config *properties.Properties `json:"-"`

	// Modified holds the parameter assignment that produced this run.
	Modified map[string]string `json:"modified"`

	ConfigPath string `json:"config_path"`
	LogPath    string `json:"log_path"`
}

// Name returns a short identifier used in log lines.
func (s *RunSpec) Name() string {
	return fmt.Sprintf("run-%d", s.Index)
}

// FailureReason classifies why a run did not succeed.
type FailureReason string

const (
	ReasonNone          FailureReason = ""
	ReasonStartFailed   FailureReason = "start_failed"
	ReasonExitStatus    FailureReason = "exit_status"
	ReasonNoOutput      FailureReason = "no_output"
	ReasonOutputMissing FailureReason = "output_missing"
	ReasonSummaryFailed FailureReason = "summary_failed"
	ReasonReportFailed  FailureReason = "report_failed"
	ReasonCancelled     FailureReason = "cancelled"
)

// RunOutcome is produced exactly once per RunSpec.
type RunOutcome struct {
	Index          int           `json:"index"`
	OutputLocation string        `json:"output_location,omitempty"`
	ExitStatus     int           `json:"exit_status"`
	Succeeded      bool          `json:"succeeded"`
	Reason         FailureReason `json:"reason,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
}

// Duration returns the wall time between launch and exit.
func (o *RunOutcome) Duration() time.Duration {
	if o.StartedAt.IsZero() || o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// Fail marks the outcome as failed for the given reason.
func (o *RunOutcome) Fail(reason FailureReason) {
	o.Succeeded = false
	o.Reason = reason
}

// Field is one key/value pair of a SummaryRecord.
type Field struct {
	Key   string
	Value any
}

// SummaryRecord is an ordered set of metrics extracted from one run's
// output directory.
type SummaryRecord []Field

// Set assigns value to key, keeping the position of an existing key.
func (r *SummaryRecord) Set(key string, value any) {
	for i := range *r {
		if (*r)[i].Key == key {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (r SummaryRecord) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in record order.
func (r SummaryRecord) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// Clone returns an independent copy.
func (r SummaryRecord) Clone() SummaryRecord {
	if r == nil {
		return nil
	}
	out := make(SummaryRecord, len(r))
	copy(out, r)
	return out
}

// BundledResult pairs a SummaryRecord with the run metadata stored in the
// report.
type BundledResult struct {
	Output   string            `json:"output"`
	Modified map[string]string `json:"modified"`
	Summary  SummaryRecord     `json:"-"`
}

// Clone returns a copy sharing no maps or slices with b.
func (b BundledResult) Clone() BundledResult {
	mod := make(map[string]string, len(b.Modified))
	for k, v := range b.Modified {
		mod[k] = v
	}
	return BundledResult{Output: b.Output, Modified: mod, Summary: b.Summary.Clone()}
}

// ModifiedString renders Modified sorted by key as "k = v, k2 = v2".
func (b BundledResult) ModifiedString() string {
	return FormatModified(b.Modified)
}

// FormatModified renders a parameter assignment sorted by key.
func FormatModified(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " = " + m[k]
	}
	return strings.Join(parts, ", ")
}
