package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/autoatlas/atlas-reporter/internal/cli"
	"github.com/autoatlas/atlas-reporter/internal/cli/config"
	"github.com/autoatlas/atlas-reporter/pkg/report"
)

var (
	// Set at build time via -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
	jobPath string
	preview bool
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "atlas-reporter -d <dataset> -o <outputDir> --id-field <col> --name-field <col> --indicator <col>",
	Short: "Generates per-record statistical report pages from a tabular dataset.",
	Long: `atlas-reporter loads a CSV or XLSX attribute table, computes shared
statistics (distribution, ranking, percentiles) over a chosen indicator and
renders one report page per record.

It features:
  - One Markdown or HTML page per record with contextual statistics.
  - A shared ranking and percentile table across the whole dataset.
  - Resilient batch runs: per-record failures are recovered, a circuit
    breaker halts runs that keep failing.
  - Job files (JSON or YAML) describing a whole run declaratively.
  - An interactive Terminal UI (TUI) for monitoring progress.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, jobPath, cmd.Flags())
		if err != nil {
			// LoadAndValidate already logged the specific problem.
			return err
		}

		// Give the TUI a moment to take over the terminal before output starts.
		if term.IsTerminal(int(os.Stderr.Fd())) && !verbose && opts.TuiEnabled {
			time.Sleep(100 * time.Millisecond)
		}

		return cli.Run(ctx, opts, logger, preview)
	},
}

// Execute runs the root command; Cobra prints RunE errors and exits non-zero.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	_ = rootCmd.Execute()
}

// init registers the flags. Names align with the viper keys bound in
// internal/cli/config.
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default is to search . and $HOME/.config/atlas-reporter/)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	// Dataset and field selection
	rootCmd.Flags().StringP("dataset", "d", "", "Dataset file path (.csv or .xlsx)")
	rootCmd.Flags().String("sheet", "", "Worksheet name for XLSX datasets (default is the first sheet)")
	rootCmd.Flags().String("id-field", "", "Column holding the unique record identifier")
	rootCmd.Flags().String("name-field", "", "Column holding the record display name")
	rootCmd.Flags().StringSlice("indicator", nil, "Indicator column to report on (can be repeated)")
	rootCmd.Flags().String("primary-indicator", "", "Indicator driving statistics and ranking (default is the first --indicator)")
	rootCmd.Flags().StringSlice("target", nil, "Restrict the run to these record ids (can be repeated)")
	rootCmd.Flags().String("encoding", "", `Fallback charset for CSV files when detection is uncertain (e.g. "latin1")`)
	rootCmd.Flags().String("delimiter", "", "CSV field delimiter (default is auto-detect)")

	// Job file
	rootCmd.Flags().StringVar(&jobPath, "job", "", "Job file (.json or .yaml) describing the run; flags override its fields")

	// Output flags
	rootCmd.Flags().StringP("output", "o", "", "Output directory for the rendered pages")
	rootCmd.Flags().String("format", string(report.DefaultFormat), `Page format ("markdown", "html")`)
	rootCmd.Flags().Int("dpi", report.DefaultDPI, "Render resolution in dots per inch")
	rootCmd.Flags().String("output-format", string(report.DefaultOutputFormat), `Final report format ("text", "json")`)
	rootCmd.Flags().String("template", "", "Path to a custom Go template file for page generation")

	// Map flags
	rootCmd.Flags().String("map-style", string(report.DefaultMapStyle), `Thematic map style ("choropleth", "categorical", "bivariate")`)
	rootCmd.Flags().String("basemap", string(report.DefaultBasemap), `Basemap tiles ("none", "osm", "positron", "dark-matter", ...)`)
	rootCmd.Flags().String("color-ramp", "", "Color ramp name for the thematic map")

	// Page content flags
	rootCmd.Flags().String("title", "", "Page title override")
	rootCmd.Flags().String("subtitle", "", "Page subtitle")
	rootCmd.Flags().String("footer", "", "Page footer text")
	rootCmd.Flags().String("variable-alias", "", "Human-readable name for the primary indicator")
	rootCmd.Flags().Bool("rank-ascending", false, "Order the shared ranking table lowest value first")
	rootCmd.Flags().Int("num-bins", report.DefaultNumBins, "Histogram bin count for the distribution")
	rootCmd.Flags().Bool("front-matter", false, "Prepend front matter to Markdown pages")
	rootCmd.Flags().String("front-matter-format", "yaml", `Front matter format ("yaml", "toml")`)

	// Workflow flags
	rootCmd.Flags().BoolVar(&preview, "preview", false, "Render only the first record at low resolution and print the page path")
	rootCmd.Flags().Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")
}
