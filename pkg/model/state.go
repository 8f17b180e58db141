package model

// RunState represents the lifecycle state of a single run.
type RunState string

const (
	RunStateQueued       RunState = "QUEUED"
	RunStateAdmitted     RunState = "ADMITTED"
	RunStateWaitingGate  RunState = "WAITING_GATE"
	RunStateLaunched     RunState = "LAUNCHED"
	RunStateGateReleased RunState = "GATE_RELEASED"
	RunStateExited       RunState = "EXITED"
	RunStateSucceeded    RunState = "SUCCEEDED"
	RunStateFailed       RunState = "FAILED"
)

// AllRunStates lists every state in lifecycle order.
var AllRunStates = []RunState{
	RunStateQueued,
	RunStateAdmitted,
	RunStateWaitingGate,
	RunStateLaunched,
	RunStateGateReleased,
	RunStateExited,
	RunStateSucceeded,
	RunStateFailed,
}

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateSucceeded, RunStateFailed:
		return true
	}
	return false
}

// IsActive returns true while a child process may be alive.
func (s RunState) IsActive() bool {
	switch s {
	case RunStateLaunched, RunStateGateReleased:
		return true
	}
	return false
}

// ValidRunTransitions defines the allowed state transitions for runs.
// A run that exits without announcing its output skips GATE_RELEASED;
// a run cancelled before launch fails directly.
var ValidRunTransitions = map[RunState][]RunState{
	RunStateQueued:       {RunStateAdmitted, RunStateFailed},
	RunStateAdmitted:     {RunStateWaitingGate, RunStateFailed},
	RunStateWaitingGate:  {RunStateLaunched, RunStateFailed},
	RunStateLaunched:     {RunStateGateReleased, RunStateExited},
	RunStateGateReleased: {RunStateExited},
	RunStateExited:       {RunStateSucceeded, RunStateFailed},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s RunState) CanTransitionTo(next RunState) bool {
	for _, allowed := range ValidRunTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
