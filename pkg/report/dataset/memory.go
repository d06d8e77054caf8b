package dataset

// Memory is an in-memory Dataset, used by embedding callers and tests.
// Rows keep their construction order.
type Memory struct {
	name   string
	fields []string
	rows   []Record
}

// NewMemory creates an in-memory dataset with the given field set. Rows are
// appended with Append and iterated in insertion order.
func NewMemory(name string, fields []string) *Memory {
	return &Memory{
		name:   name,
		fields: append([]string(nil), fields...),
	}
}

// Append adds one row. Values for unknown fields are kept as-is; validation
// against the field set happens at load time, not here.
func (m *Memory) Append(values map[string]any) {
	m.rows = append(m.rows, Record{Values: values})
}

// IsValid implements Dataset. A Memory dataset is valid once it has fields.
func (m *Memory) IsValid() bool { return m != nil && len(m.fields) > 0 }

// Name implements Dataset.
func (m *Memory) Name() string { return m.name }

// FieldNames implements Dataset.
func (m *Memory) FieldNames() []string { return append([]string(nil), m.fields...) }

// Each implements Dataset.
func (m *Memory) Each(fn func(Record) error) error {
	for _, r := range m.rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of rows.
func (m *Memory) Len() int { return len(m.rows) }
