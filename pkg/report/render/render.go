// Package render turns one record's precomputed statistics into one page
// artifact on disk. It is a leaf collaborator of the batch orchestrator: the
// orchestrator owns iteration, error policy and shared state; a PageRenderer
// only ever sees a single self-contained request and may fail freely without
// corrupting anything shared.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/autoatlas/atlas-reporter/pkg/report/stats"
)

var (
	// ErrRenderFailed indicates a page could not be produced.
	ErrRenderFailed = errors.New("page render failed")

	// ErrUnknownFormat indicates an output format outside the supported set.
	ErrUnknownFormat = errors.New("unknown output format")

	// ErrUnknownStyle indicates a map style outside the supported set.
	ErrUnknownStyle = errors.New("unknown map style")
)

// Format is the page artifact format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Extension returns the file extension for the format, or an error for
// unsupported values. The switch is exhaustive over the declared constants.
func (f Format) Extension() (string, error) {
	switch f {
	case FormatMarkdown:
		return ".md", nil
	case FormatHTML:
		return ".html", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// MapStyle is the thematic-map styling mode carried through to the page
// metadata. The core never renders maps itself; the style is validated here
// and passed along opaquely.
type MapStyle string

const (
	StyleChoropleth  MapStyle = "choropleth"
	StyleCategorical MapStyle = "categorical"
	StyleBivariate   MapStyle = "bivariate"
)

// Validate checks the style against the supported set.
func (s MapStyle) Validate() error {
	switch s {
	case StyleChoropleth, StyleCategorical, StyleBivariate:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStyle, string(s))
	}
}

// FrontMatterConfig controls the optional metadata block prefixed to each
// rendered page.
type FrontMatterConfig struct {
	Enabled bool           `mapstructure:"enabled" json:"enabled"`
	Format  string         `mapstructure:"format" json:"format"` // "yaml" or "toml"
	Static  map[string]any `mapstructure:"static" json:"static,omitempty"`
}

// PageRequest carries everything a renderer needs for one record: the shared
// per-batch computation (stats, ranking, basemap) plus this record's identity
// and context. Shared fields are read-only for the renderer.
type PageRequest struct {
	OutputDir string
	BaseName  string // sanitized file base name, no extension
	Format    Format
	DPI       int

	Title    string
	Subtitle string
	Footer   string
	MapStyle MapStyle

	RecordID   string
	RecordName string

	Stats   stats.FieldStats
	Ranking []stats.RankEntry
	Context stats.FeatureContext

	Basemap     Basemap // shared background-map resource; may be nil
	FrontMatter FrontMatterConfig
}

// PageRenderer produces one artifact per request and returns its path.
// Implementations must be idempotent per record identifier and must not
// retain or mutate the shared fields of the request.
type PageRenderer interface {
	RenderPage(ctx context.Context, req PageRequest) (string, error)
}
