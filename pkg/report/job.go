package report

import (
	"fmt"
	"strings"

	"github.com/autoatlas/atlas-reporter/pkg/report/render"
)

// Job describes one batch report run: which dataset fields drive it, which
// records it covers and how pages are produced. It is created once by the
// caller before a batch starts and never mutated during the run.
type Job struct {
	// DatasetPath locates the dataset file for callers that open datasets by
	// path (the CLI). Library embedders that inject a Dataset directly may
	// leave it empty.
	DatasetPath string `mapstructure:"dataset" json:"dataset,omitempty" yaml:"dataset,omitempty"`
	// Sheet selects the worksheet for XLSX datasets; empty means the first.
	Sheet string `mapstructure:"sheet" json:"sheet,omitempty" yaml:"sheet,omitempty"`

	IDField         string   `mapstructure:"idField" json:"idField" yaml:"idField"`
	NameField       string   `mapstructure:"nameField" json:"nameField" yaml:"nameField"`
	IndicatorFields []string `mapstructure:"indicators" json:"indicators" yaml:"indicators"`
	// PrimaryIndicator drives the shared statistics and ranking; defaults to
	// the first entry of IndicatorFields.
	PrimaryIndicator string `mapstructure:"primaryIndicator" json:"primaryIndicator,omitempty" yaml:"primaryIndicator,omitempty"`
	// TargetIDs restricts the run to a record subset; empty means all loaded.
	TargetIDs []string `mapstructure:"targetIds" json:"targetIds,omitempty" yaml:"targetIds,omitempty"`

	OutputDir string        `mapstructure:"outputDir" json:"outputDir" yaml:"outputDir"`
	Format    render.Format `mapstructure:"format" json:"format,omitempty" yaml:"format,omitempty"`
	DPI       int           `mapstructure:"dpi" json:"dpi,omitempty" yaml:"dpi,omitempty"`

	MapStyle  render.MapStyle    `mapstructure:"mapStyle" json:"mapStyle,omitempty" yaml:"mapStyle,omitempty"`
	Basemap   render.BasemapKind `mapstructure:"basemap" json:"basemap,omitempty" yaml:"basemap,omitempty"`
	ColorRamp string             `mapstructure:"colorRamp" json:"colorRamp,omitempty" yaml:"colorRamp,omitempty"`

	Title    string `mapstructure:"title" json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle string `mapstructure:"subtitle" json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Footer   string `mapstructure:"footer" json:"footer,omitempty" yaml:"footer,omitempty"`
	// VariableAlias replaces the raw indicator field name in page titles.
	VariableAlias string `mapstructure:"variableAlias" json:"variableAlias,omitempty" yaml:"variableAlias,omitempty"`

	// RankAscending orders the shared ranking table lowest-first. The
	// per-record contextual rank is always descending regardless.
	RankAscending bool `mapstructure:"rankAscending" json:"rankAscending,omitempty" yaml:"rankAscending,omitempty"`

	// NumBins is the histogram bin count; 0 selects the default.
	NumBins int `mapstructure:"numBins" json:"numBins,omitempty" yaml:"numBins,omitempty"`

	FrontMatter render.FrontMatterConfig `mapstructure:"frontMatter" json:"frontMatter,omitempty" yaml:"frontMatter,omitempty"`
}

// Normalize fills zero-valued optional fields with their defaults. Called by
// Validate; exposed for callers that build jobs piecemeal.
func (j *Job) Normalize() {
	if j.Format == "" {
		j.Format = DefaultFormat
	}
	if j.DPI == 0 {
		j.DPI = DefaultDPI
	}
	if j.MapStyle == "" {
		j.MapStyle = DefaultMapStyle
	}
	if j.Basemap == "" {
		j.Basemap = DefaultBasemap
	}
	if j.NumBins == 0 {
		j.NumBins = DefaultNumBins
	}
	if j.PrimaryIndicator == "" && len(j.IndicatorFields) > 0 {
		j.PrimaryIndicator = j.IndicatorFields[0]
	}
	if j.FrontMatter.Enabled && j.FrontMatter.Format == "" {
		j.FrontMatter.Format = "yaml"
	}
}

// Validate normalizes the job and returns ErrConfigValidation wrapping the
// first problem found.
func (j *Job) Validate() error {
	j.Normalize()

	if strings.TrimSpace(j.IDField) == "" {
		return fmt.Errorf("%w: id field cannot be empty", ErrConfigValidation)
	}
	if strings.TrimSpace(j.NameField) == "" {
		return fmt.Errorf("%w: name field cannot be empty", ErrConfigValidation)
	}
	if len(j.IndicatorFields) == 0 {
		return fmt.Errorf("%w: at least one indicator field is required", ErrConfigValidation)
	}
	for _, f := range j.IndicatorFields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("%w: indicator field names cannot be empty", ErrConfigValidation)
		}
	}
	primaryKnown := false
	for _, f := range j.IndicatorFields {
		if f == j.PrimaryIndicator {
			primaryKnown = true
			break
		}
	}
	if !primaryKnown {
		return fmt.Errorf("%w: primary indicator %q is not among the indicator fields", ErrConfigValidation, j.PrimaryIndicator)
	}
	if strings.TrimSpace(j.OutputDir) == "" {
		return fmt.Errorf("%w: output directory cannot be empty", ErrConfigValidation)
	}
	if _, err := j.Format.Extension(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	if j.DPI < MinDPI || j.DPI > MaxDPI {
		return fmt.Errorf("%w: dpi %d outside the supported range %d..%d", ErrConfigValidation, j.DPI, MinDPI, MaxDPI)
	}
	if err := j.MapStyle.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	if j.NumBins < 1 {
		return fmt.Errorf("%w: histogram bin count must be positive", ErrConfigValidation)
	}
	return nil
}

// PageTitle resolves the title shown on each page: explicit override first,
// then the variable alias, then the raw primary indicator name.
func (j *Job) PageTitle() string {
	if j.Title != "" {
		return j.Title
	}
	if j.VariableAlias != "" {
		return j.VariableAlias
	}
	return j.PrimaryIndicator
}
