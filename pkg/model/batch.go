package model

import "time"

// BatchState represents the lifecycle state of a batch.
type BatchState string

const (
	BatchStateRunning   BatchState = "RUNNING"
	BatchStateCompleted BatchState = "COMPLETED"
	BatchStateCancelled BatchState = "CANCELLED"
)

// Batch is one invocation of the runner over an expanded parameter set.
type Batch struct {
	ID          string     `json:"id"`
	Dir         string     `json:"dir"`
	Workspace   string     `json:"workspace"`
	ReportPath  string     `json:"report_path"`
	Analyzer    string     `json:"analyzer"`
	Parallelism int        `json:"parallelism"`
	State       BatchState `json:"state"`
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunRecord is the persisted form of one run's outcome.
type RunRecord struct {
	BatchID    string            `json:"batch_id"`
	Index      int               `json:"index"`
	ConfigPath string            `json:"config_path"`
	LogPath    string            `json:"log_path"`
	Modified   map[string]string `json:"modified"`
	Output     string            `json:"output,omitempty"`
	ExitStatus int               `json:"exit_status"`
	Succeeded  bool              `json:"succeeded"`
	Reason     FailureReason     `json:"reason,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// NewRunRecord builds the record of out for spec in batch batchID.
func NewRunRecord(batchID string, spec *RunSpec, out RunOutcome) *RunRecord {
	rec := &RunRecord{
		BatchID:    batchID,
		Index:      spec.Index,
		ConfigPath: spec.ConfigPath,
		LogPath:    spec.LogPath,
		Modified:   spec.Modified,
		Output:     out.OutputLocation,
		ExitStatus: out.ExitStatus,
		Succeeded:  out.Succeeded,
		Reason:     out.Reason,
	}
	if !out.StartedAt.IsZero() {
		t := out.StartedAt
		rec.StartedAt = &t
	}
	if !out.FinishedAt.IsZero() {
		t := out.FinishedAt
		rec.FinishedAt = &t
	}
	return rec
}

// ListOptions configures list queries with pagination and filtering.
type ListOptions struct {
	Limit  int
	Offset int
	State  string // Optional state filter
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 100, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}
