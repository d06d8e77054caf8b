package jobfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoatlas/atlas-reporter/pkg/report"
	"github.com/autoatlas/atlas-reporter/pkg/report/jobfile"
	"github.com/autoatlas/atlas-reporter/pkg/report/render"
)

func writeJob(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const jsonJob = `{
  "dataset": "data/communes.csv",
  "idField": "CUT",
  "nameField": "NOM",
  "indicators": ["POB_TOTAL", "DENSIDAD"],
  "outputDir": "out",
  "format": "html",
  "dpi": 300,
  "mapStyle": "categorical",
  "basemap": "positron",
  "title": "Atlas 2026",
  "frontMatter": {"enabled": true, "format": "toml"}
}`

const yamlJob = `dataset: data/communes.csv
idField: CUT
nameField: NOM
indicators:
  - POB_TOTAL
  - DENSIDAD
outputDir: out
format: html
dpi: 300
mapStyle: categorical
basemap: positron
title: Atlas 2026
frontMatter:
  enabled: true
  format: toml
`

func TestLoadJSONJob(t *testing.T) {
	job, err := jobfile.Load(writeJob(t, "job.json", jsonJob))
	require.NoError(t, err)

	assert.Equal(t, "CUT", job.IDField)
	assert.Equal(t, []string{"POB_TOTAL", "DENSIDAD"}, job.IndicatorFields)
	assert.Equal(t, "POB_TOTAL", job.PrimaryIndicator, "normalized on load")
	assert.Equal(t, render.FormatHTML, job.Format)
	assert.Equal(t, 300, job.DPI)
	assert.Equal(t, render.StyleCategorical, job.MapStyle)
	assert.Equal(t, render.BasemapPositron, job.Basemap)
	assert.True(t, job.FrontMatter.Enabled)
	assert.Equal(t, "toml", job.FrontMatter.Format)
}

func TestLoadYAMLJobMatchesJSON(t *testing.T) {
	fromJSON, err := jobfile.Load(writeJob(t, "job.json", jsonJob))
	require.NoError(t, err)
	fromYAML, err := jobfile.Load(writeJob(t, "job.yaml", yamlJob))
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
}

func TestLoadJSONSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing required fields", `{"idField": "CUT"}`},
		{"bad format enum", `{"idField":"a","nameField":"b","indicators":["c"],"outputDir":"o","format":"pdf"}`},
		{"dpi out of range", `{"idField":"a","nameField":"b","indicators":["c"],"outputDir":"o","dpi":9999}`},
		{"unknown property", `{"idField":"a","nameField":"b","indicators":["c"],"outputDir":"o","resolution":300}`},
		{"empty indicators", `{"idField":"a","nameField":"b","indicators":[],"outputDir":"o"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jobfile.Load(writeJob(t, "job.json", tt.body))
			assert.ErrorIs(t, err, report.ErrConfigValidation)
		})
	}
}

func TestLoadSemanticValidationAfterSchema(t *testing.T) {
	// Schema-valid but semantically wrong: the primary indicator must be one
	// of the indicator fields.
	body := `{"idField":"a","nameField":"b","indicators":["c"],"outputDir":"o","primaryIndicator":"x"}`
	_, err := jobfile.Load(writeJob(t, "job.json", body))
	assert.ErrorIs(t, err, report.ErrConfigValidation)
	assert.Contains(t, err.Error(), "primary indicator")
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	body := "idField: a\nnameField: b\nindicators: [c]\noutputDir: o\nresolution: 300\n"
	_, err := jobfile.Load(writeJob(t, "job.yaml", body))
	assert.ErrorIs(t, err, report.ErrConfigValidation)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := jobfile.Load(writeJob(t, "job.toml", "idField = \"a\"\n"))
	assert.ErrorIs(t, err, report.ErrConfigValidation)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := jobfile.Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, report.ErrConfigValidation)
}
