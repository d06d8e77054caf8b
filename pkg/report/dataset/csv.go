package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/autoatlas/atlas-reporter/pkg/report/encoding"
)

// CSVOptions tunes CSV parsing.
type CSVOptions struct {
	// Comma is the field delimiter. Zero means auto-detect between ',' and
	// ';' from the header row (semicolon-delimited exports are the norm for
	// many statistical agencies).
	Comma rune
	// FallbackEncoding is the charset assumed when detection is uncertain,
	// e.g. "windows-1252". Empty keeps the detector's guess.
	FallbackEncoding string
}

// CSV is a file-backed Dataset parsed eagerly at open time. The first row is
// the header; every subsequent row becomes one record with string raw values.
type CSV struct {
	name   string
	fields []string
	rows   []Record
	valid  bool
}

// OpenCSV reads and parses the file at path into a CSV dataset. The content
// is decoded to UTF-8 first (legacy encodings are common in regional data),
// and binary content is rejected outright.
func OpenCSV(path string, opts CSVOptions) (*CSV, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrOpenFailed, path, err)
	}

	handler := encoding.NewCharsetHandler(opts.FallbackEncoding)
	if handler.IsBinary(raw) {
		return nil, fmt.Errorf("%w: %q", ErrBinaryData, path)
	}
	decoded, encName, _, decErr := handler.DetectAndDecode(raw)
	if decErr != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrOpenFailed, path, decErr)
	}

	comma := opts.Comma
	if comma == 0 {
		comma = detectDelimiter(decoded)
	}

	r := csv.NewReader(strings.NewReader(string(decoded)))
	r.Comma = comma
	r.FieldsPerRecord = -1 // ragged rows tolerated; short rows yield sparse records
	r.TrimLeadingSpace = true

	lines, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrOpenFailed, path, err)
	}
	if len(lines) == 0 || len(lines[0]) == 0 {
		return nil, fmt.Errorf("%w: %q (decoded as %s)", ErrBadHeader, path, encName)
	}

	fields := make([]string, len(lines[0]))
	for i, h := range lines[0] {
		fields[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	ds := &CSV{
		name:   filepath.Base(path),
		fields: fields,
		valid:  true,
	}
	for _, line := range lines[1:] {
		values := make(map[string]any, len(fields))
		for i, f := range fields {
			if i < len(line) {
				values[f] = line[i]
			}
		}
		ds.rows = append(ds.rows, Record{Values: values})
	}
	return ds, nil
}

// detectDelimiter picks ';' when the first line contains more semicolons than
// commas, and ',' otherwise.
func detectDelimiter(content []byte) rune {
	header := string(content)
	if idx := strings.IndexByte(header, '\n'); idx >= 0 {
		header = header[:idx]
	}
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

// IsValid implements Dataset.
func (c *CSV) IsValid() bool { return c != nil && c.valid }

// Name implements Dataset.
func (c *CSV) Name() string { return c.name }

// FieldNames implements Dataset.
func (c *CSV) FieldNames() []string { return append([]string(nil), c.fields...) }

// Each implements Dataset. Rows are yielded in file order.
func (c *CSV) Each(fn func(Record) error) error {
	for _, r := range c.rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}
