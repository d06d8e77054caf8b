// Package dataset defines the tabular data boundary consumed by the report
// core: rows are records with a unique identifier, a display name, and a set
// of raw attribute values. Implementations are file-backed (CSV, XLSX) or
// in-memory; none of them interpret values, numeric coercion belongs to the
// stats engine.
package dataset

import "errors"

var (
	// ErrOpenFailed indicates a dataset source could not be opened or read.
	ErrOpenFailed = errors.New("failed to open dataset")

	// ErrBadHeader indicates the source had no usable header row to derive
	// field names from.
	ErrBadHeader = errors.New("dataset has no usable header row")

	// ErrBinaryData indicates the source content was detected as binary and
	// cannot be a delimited dataset.
	ErrBinaryData = errors.New("dataset content is binary")
)

// Record is one row of a dataset. Values maps field name to the raw cell
// value; nil, empty-string, and non-numeric values are all legal here. Which
// fields act as identifier and display name is the caller's decision, not the
// dataset's.
type Record struct {
	Values map[string]any
}

// Dataset is the read-only table interface the report core consumes.
type Dataset interface {
	// IsValid reports whether the dataset was opened/constructed successfully
	// and can be iterated.
	IsValid() bool

	// Name returns a human-readable source name (file base name, table name).
	Name() string

	// FieldNames returns all attribute field names, in source order.
	FieldNames() []string

	// Each invokes fn for every record in a deterministic source order.
	// Iteration stops on the first error returned by fn.
	Each(fn func(Record) error) error
}
