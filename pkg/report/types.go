package report

// Status defines the possible processing states of a record during a batch run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRendering Status = "rendering"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// RunState defines the batch state machine. Transitions are strictly
// Idle -> Preparing -> Running -> one of the terminal states; an orchestrator
// never leaves a terminal state.
type RunState string

const (
	StateIdle       RunState = "idle"
	StatePreparing  RunState = "preparing"
	StateRunning    RunState = "running"
	StateCompleted  RunState = "completed"
	StateCancelled  RunState = "cancelled"
	StateFatalError RunState = "fatal_error"
)

// Terminal reports whether the state is one of the three terminal states.
func (s RunState) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFatalError:
		return true
	default:
		return false
	}
}

// OutputFormat defines the format for the final summary report printed to
// standard output when the TUI is disabled.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)
