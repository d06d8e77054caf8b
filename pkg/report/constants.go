package report

import "github.com/autoatlas/atlas-reporter/pkg/report/render"

// Constants defining default values for job and run configuration. These are
// used when setting up viper defaults in the configuration loading process.
const (
	// DefaultDPI is the output resolution used when a job does not set one.
	DefaultDPI = 150
	// MinDPI and MaxDPI bound the accepted resolution range.
	MinDPI = 72
	MaxDPI = 1200
	// PreviewDPI is the fixed low-resolution profile used by previews.
	PreviewDPI = 96
	// PreviewPrefix is prepended to preview artifact base names.
	PreviewPrefix = "preview_"
	// DefaultFormat is the page artifact format used when a job does not set one.
	DefaultFormat = render.FormatMarkdown
	// DefaultMapStyle is the thematic styling mode used when a job does not set one.
	DefaultMapStyle = render.StyleChoropleth
	// DefaultBasemap disables the background map unless a job requests one.
	DefaultBasemap = render.BasemapNone
	// DefaultNumBins is the histogram bin count passed to the stats engine.
	DefaultNumBins = 20
	// DefaultOutputFormat is the default format for the final summary report.
	DefaultOutputFormat = OutputFormatText
	// DefaultTuiEnabled is the default state for the terminal UI.
	DefaultTuiEnabled = true
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
)

// Constants governing batch resilience and resource hygiene.
const (
	// CircuitBreakerThreshold is the number of consecutive record failures
	// that aborts the whole run.
	CircuitBreakerThreshold = 3
	// CleanupInterval is the processed-record period of the janitor contract:
	// Collect fires strictly when the processed count is a multiple of this.
	CleanupInterval = 10
)

// Constants related to report schema.
const (
	// ReportSchemaVersion indicates the version of the JSON report structure.
	ReportSchemaVersion = "1.0"
)

// Constants defining error display in the final summary.
const (
	// MaxDisplayedErrors caps the per-record error lines shown to users.
	MaxDisplayedErrors = 10
)
