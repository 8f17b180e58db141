package model

import "fmt"

// SetupError reports a problem detected before any run starts.
// Setup errors abort the batch.
type SetupError struct {
	Field   string
	Message string
	Err     error
}

func (e *SetupError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("setup: %s: %v", msg, e.Err)
	}
	return "setup: " + msg
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// NewSetupError creates a SetupError for the given field.
func NewSetupError(field, format string, args ...any) *SetupError {
	return &SetupError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RunError describes why a single run failed. It never aborts the batch.
type RunError struct {
	Index      int
	Reason     FailureReason
	ConfigPath string
	LogPath    string
	Err        error
}

func (e *RunError) Error() string {
	base := fmt.Sprintf("run %d failed (%s): config=%s log=%s", e.Index, e.Reason, e.ConfigPath, e.LogPath)
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError is returned when a state transition is invalid.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s → %s (entity %s)", e.Entity, e.From, e.To, e.ID)
}
