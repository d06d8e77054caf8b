package report

import "errors"

// These errors represent the categories of failure that Generate and the
// Orchestrator methods can return directly. Library users check against them
// with errors.Is; per-record render failures are never returned this way,
// they accumulate in Report.Errors instead.

var (
	// ErrConfigValidation indicates that the provided Options or Job failed
	// validation before any batch work started.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrSetupFailed indicates a fatal failure during preparation: dataset
	// load, shared statistics precomputation, or shared resource acquisition.
	// Nothing has been rendered when this is returned.
	ErrSetupFailed = errors.New("batch preparation failed")

	// ErrTooManyFailures is the circuit breaker signal: the configured number
	// of consecutive per-record failures was reached and the run aborted.
	// Distinct from ordinary per-record errors, which stay in Report.Errors.
	ErrTooManyFailures = errors.New("too many consecutive failures: stopping")

	// ErrInvalidState indicates a lifecycle method was called on an
	// orchestrator in the wrong state, e.g. Step before Prepare.
	ErrInvalidState = errors.New("invalid orchestrator state")

	// ErrNoRecords indicates a preview was requested on a job that resolved
	// to zero records.
	ErrNoRecords = errors.New("no records to render")
)
