package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/autoatlas/atlas-reporter/pkg/report/dataset"
)

// WriteFile creates a file with the given content, ensuring parent
// directories exist. It uses require assertions for test setup.
func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

// PopDataset builds the three-district in-memory dataset used across the
// test suites: A=10, B=20, C=30 for indicator "pop".
func PopDataset(t *testing.T) *dataset.Memory {
	t.Helper()
	ds := dataset.NewMemory("districts", []string{"id", "name", "pop"})
	ds.Append(map[string]any{"id": "A", "name": "District A", "pop": 10.0})
	ds.Append(map[string]any{"id": "B", "name": "District B", "pop": 20.0})
	ds.Append(map[string]any{"id": "C", "name": "District C", "pop": 30.0})
	return ds
}

// SizedDataset builds an n-record dataset with ids r01..rNN and values 1..n
// for indicator "v".
func SizedDataset(t *testing.T, n int) *dataset.Memory {
	t.Helper()
	ds := dataset.NewMemory("sized", []string{"id", "name", "v"})
	for i := 1; i <= n; i++ {
		ds.Append(map[string]any{
			"id":   recordID(i),
			"name": "Record " + recordID(i),
			"v":    float64(i),
		})
	}
	return ds
}

func recordID(i int) string {
	const digits = "0123456789"
	return "r" + string([]byte{digits[(i/10)%10], digits[i%10]})
}
