package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSX is a workbook-backed Dataset. The first sheet is read eagerly: its
// first row is the header, every following row one record. Cell values are
// kept as the strings excelize yields; numeric coercion happens downstream.
type XLSX struct {
	name   string
	fields []string
	rows   []Record
	valid  bool
}

// OpenXLSX reads the first sheet of the workbook at path. Pass a sheet name
// to read a specific sheet instead.
func OpenXLSX(path, sheet string) (*XLSX, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrOpenFailed, path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	lines, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %q sheet %q: %w", ErrOpenFailed, path, sheet, err)
	}
	if len(lines) == 0 || len(lines[0]) == 0 {
		return nil, fmt.Errorf("%w: %q sheet %q", ErrBadHeader, path, sheet)
	}

	fields := make([]string, len(lines[0]))
	for i, h := range lines[0] {
		fields[i] = strings.TrimSpace(h)
	}

	ds := &XLSX{
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

// IsValid implements Dataset.
func (x *XLSX) IsValid() bool { return x != nil && x.valid }

// Name implements Dataset.
func (x *XLSX) Name() string { return x.name }

// FieldNames implements Dataset.
func (x *XLSX) FieldNames() []string { return append([]string(nil), x.fields...) }

// Each implements Dataset. Rows are yielded in sheet order.
func (x *XLSX) Each(fn func(Record) error) error {
	for _, r := range x.rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}
