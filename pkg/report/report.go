package report

import (
	"fmt"
	"time"
)

// Report summarizes the result of a single batch run.
type Report struct {
	Summary     ReportSummary `json:"summary"`
	OutputPaths []string      `json:"outputPaths"`
	Errors      []RecordError `json:"errors"`
}

// ReportSummary contains aggregated statistics for a batch run.
type ReportSummary struct {
	DatasetName        string    `json:"datasetName"`
	OutputDir          string    `json:"outputDir"`
	Indicator          string    `json:"indicator"`
	State              RunState  `json:"state"`
	TotalRecords       int       `json:"totalRecords"`
	RenderedCount      int       `json:"renderedCount"`
	ErrorCount         int       `json:"errorCount"`
	FatalErrorOccurred bool      `json:"fatalError"`
	Cancelled          bool      `json:"cancelled"`
	DurationSeconds    float64   `json:"durationSeconds"`
	Timestamp          time.Time `json:"timestamp"`
	SchemaVersion      string    `json:"schemaVersion,omitempty"`
}

// RecordError details one record whose page could not be produced. These are
// recovered failures: the batch continued past them unless the circuit
// breaker tripped.
type RecordError struct {
	RecordID string `json:"recordId"`
	Name     string `json:"name"`
	Message  string `json:"message"`
}

// String renders the error the way it is shown to users, "name: message",
// falling back to the record id when the record has no display name.
func (e RecordError) String() string {
	name := e.Name
	if name == "" {
		name = e.RecordID
	}
	return fmt.Sprintf("%s: %s", name, e.Message)
}

// ErrorLines returns up to max formatted error strings for display, with a
// trailing count line when errors were truncated. max <= 0 means no cap.
func (r *Report) ErrorLines(max int) []string {
	n := len(r.Errors)
	if n == 0 {
		return nil
	}
	shown := n
	if max > 0 && shown > max {
		shown = max
	}
	lines := make([]string, 0, shown+1)
	for _, e := range r.Errors[:shown] {
		lines = append(lines, e.String())
	}
	if shown < n {
		lines = append(lines, fmt.Sprintf("... and %d more", n-shown))
	}
	return lines
}
