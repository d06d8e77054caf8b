// Package jobfile loads batch jobs from JSON or YAML files. JSON jobs are
// validated against an embedded JSON schema before decoding, so schema
// violations surface as configuration errors with the offending paths rather
// than as zero-valued fields deep in a run.
package jobfile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/autoatlas/atlas-reporter/pkg/report"
)

//go:embed schema.json
var jobSchema string

// maxReportedViolations caps how many schema violations one error carries.
const maxReportedViolations = 3

// Load reads a job from path, dispatching on the file extension (.json,
// .yaml, .yml). The returned job is validated and normalized.
func Load(path string) (report.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return report.Job{}, fmt.Errorf("%w: reading job file: %v", report.ErrConfigValidation, err)
	}

	var job report.Job
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		job, err = decodeJSON(data)
	case ".yaml", ".yml":
		job, err = decodeYAML(data)
	default:
		return report.Job{}, fmt.Errorf("%w: unsupported job file extension %q", report.ErrConfigValidation, ext)
	}
	if err != nil {
		return report.Job{}, err
	}

	if err := job.Validate(); err != nil {
		return report.Job{}, err
	}
	return job, nil
}

func decodeJSON(data []byte) (report.Job, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(jobSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return report.Job{}, fmt.Errorf("%w: validating job file: %v", report.ErrConfigValidation, err)
	}
	if !result.Valid() {
		return report.Job{}, fmt.Errorf("%w: job file violates schema: %s",
			report.ErrConfigValidation, formatViolations(result.Errors()))
	}

	var job report.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return report.Job{}, fmt.Errorf("%w: decoding job file: %v", report.ErrConfigValidation, err)
	}
	return job, nil
}

func decodeYAML(data []byte) (report.Job, error) {
	var job report.Job
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil {
		return report.Job{}, fmt.Errorf("%w: decoding job file: %v", report.ErrConfigValidation, err)
	}
	return job, nil
}

func formatViolations(violations []gojsonschema.ResultError) string {
	msgs := make([]string, 0, maxReportedViolations)
	for i, v := range violations {
		if i == maxReportedViolations {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(violations)-maxReportedViolations))
			break
		}
		msgs = append(msgs, v.String())
	}
	return strings.Join(msgs, "; ")
}
