// Package config loads the CLI configuration from defaults, an optional YAML
// config file, ATLASREPORTER_* environment variables and command-line flags,
// merges them through viper and produces validated report.Options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autoatlas/atlas-reporter/pkg/report"
	"github.com/autoatlas/atlas-reporter/pkg/report/dataset"
	"github.com/autoatlas/atlas-reporter/pkg/report/jobfile"
	"github.com/autoatlas/atlas-reporter/pkg/report/render"
)

const (
	EnvPrefix         = "ATLASREPORTER"
	DefaultConfigName = "atlas-reporter"
)

// flagBindings maps viper config keys to the flag names defined in root.go.
var flagBindings = map[string]string{
	"dataset":             "dataset",
	"sheet":               "sheet",
	"idField":             "id-field",
	"nameField":           "name-field",
	"indicators":          "indicator",
	"primaryIndicator":    "primary-indicator",
	"targetIds":           "target",
	"outputDir":           "output",
	"format":              "format",
	"dpi":                 "dpi",
	"mapStyle":            "map-style",
	"basemap":             "basemap",
	"colorRamp":           "color-ramp",
	"title":               "title",
	"subtitle":            "subtitle",
	"footer":              "footer",
	"variableAlias":       "variable-alias",
	"rankAscending":       "rank-ascending",
	"numBins":             "num-bins",
	"frontMatter.enabled": "front-matter",
	"frontMatter.format":  "front-matter-format",
	"outputFormat":        "output-format",
	"verbose":             "verbose",
	"encoding":            "encoding",
	"delimiter":           "delimiter",
}

// LoadAndValidate loads configuration from all sources (defaults, config
// file, job file, env, flags), validates the merged configuration, opens the
// dataset and sets up the logger. Returns the populated Options or an error.
func LoadAndValidate(cfgFile, jobPath string, flags *pflag.FlagSet) (report.Options, *slog.Logger, error) {
	var opts report.Options
	v := viper.New()

	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			tempLogger.Error("Failed to get user home directory", slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			used := cfgFile
			if used == "" {
				used = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", used, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, flagName := range flagBindings {
		if flag := flags.Lookup(flagName); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", flagName, err)
			}
		}
	}

	if err := v.Unmarshal(&opts); err != nil {
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// A job file, when given, is the authoritative job definition; explicitly
	// set flags still override its individual fields.
	if jobPath != "" {
		job, err := jobfile.Load(jobPath)
		if err != nil {
			return opts, tempLogger, err
		}
		opts.Job = job
		applyFlagOverrides(&opts.Job, flags)
	}

	// Boolean flags win over config/env when explicitly set.
	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	if templatePath, _ := flags.GetString("template"); templatePath != "" {
		tmpl, err := render.LoadTemplateFile(templatePath)
		if err != nil {
			return opts, logger, fmt.Errorf("%w: %v", report.ErrConfigValidation, err)
		}
		opts.Renderer = &render.TemplateRenderer{Template: tmpl}
		logger.Debug("Loaded custom page template", slog.String("path", templatePath))
	}

	if err := opts.Job.Validate(); err != nil {
		logger.Error(err.Error())
		return opts, logger, err
	}

	absOut, err := filepath.Abs(opts.Job.OutputDir)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute output path '%s': %v", report.ErrConfigValidation, opts.Job.OutputDir, err)
		logger.Error(err.Error())
		return opts, logger, err
	}
	opts.Job.OutputDir = absOut

	ds, err := openDataset(opts.Job, v.GetString("encoding"), v.GetString("delimiter"))
	if err != nil {
		logger.Error(err.Error())
		return opts, logger, err
	}
	opts.Dataset = ds

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("dataset", opts.Job.DatasetPath),
		slog.Bool("verbose", opts.Verbose),
	)
	return opts, logger, nil
}

// openDataset dispatches on the dataset file extension.
func openDataset(job report.Job, fallbackEncoding, delimiter string) (dataset.Dataset, error) {
	if job.DatasetPath == "" {
		return nil, fmt.Errorf("%w: dataset path is required (-d, --dataset)", report.ErrConfigValidation)
	}
	switch ext := strings.ToLower(filepath.Ext(job.DatasetPath)); ext {
	case ".csv":
		var comma rune
		if delimiter != "" {
			comma = []rune(delimiter)[0]
		}
		ds, err := dataset.OpenCSV(job.DatasetPath, dataset.CSVOptions{
			Comma:            comma,
			FallbackEncoding: fallbackEncoding,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: opening dataset: %v", report.ErrConfigValidation, err)
		}
		return ds, nil
	case ".xlsx":
		ds, err := dataset.OpenXLSX(job.DatasetPath, job.Sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: opening dataset: %v", report.ErrConfigValidation, err)
		}
		return ds, nil
	default:
		return nil, fmt.Errorf("%w: unsupported dataset extension %q (.csv and .xlsx are supported)", report.ErrConfigValidation, ext)
	}
}

// applyFlagOverrides lets explicitly set flags override individual fields of
// a job loaded from a job file.
func applyFlagOverrides(job *report.Job, flags *pflag.FlagSet) {
	if flags.Changed("dataset") {
		job.DatasetPath, _ = flags.GetString("dataset")
	}
	if flags.Changed("sheet") {
		job.Sheet, _ = flags.GetString("sheet")
	}
	if flags.Changed("id-field") {
		job.IDField, _ = flags.GetString("id-field")
	}
	if flags.Changed("name-field") {
		job.NameField, _ = flags.GetString("name-field")
	}
	if flags.Changed("indicator") {
		job.IndicatorFields, _ = flags.GetStringSlice("indicator")
	}
	if flags.Changed("primary-indicator") {
		job.PrimaryIndicator, _ = flags.GetString("primary-indicator")
	}
	if flags.Changed("target") {
		job.TargetIDs, _ = flags.GetStringSlice("target")
	}
	if flags.Changed("output") {
		job.OutputDir, _ = flags.GetString("output")
	}
	if flags.Changed("format") {
		f, _ := flags.GetString("format")
		job.Format = render.Format(f)
	}
	if flags.Changed("dpi") {
		job.DPI, _ = flags.GetInt("dpi")
	}
	if flags.Changed("map-style") {
		s, _ := flags.GetString("map-style")
		job.MapStyle = render.MapStyle(s)
	}
	if flags.Changed("basemap") {
		b, _ := flags.GetString("basemap")
		job.Basemap = render.BasemapKind(b)
	}
	if flags.Changed("color-ramp") {
		job.ColorRamp, _ = flags.GetString("color-ramp")
	}
	if flags.Changed("title") {
		job.Title, _ = flags.GetString("title")
	}
	if flags.Changed("subtitle") {
		job.Subtitle, _ = flags.GetString("subtitle")
	}
	if flags.Changed("footer") {
		job.Footer, _ = flags.GetString("footer")
	}
	if flags.Changed("variable-alias") {
		job.VariableAlias, _ = flags.GetString("variable-alias")
	}
	if flags.Changed("rank-ascending") {
		job.RankAscending, _ = flags.GetBool("rank-ascending")
	}
	if flags.Changed("num-bins") {
		job.NumBins, _ = flags.GetInt("num-bins")
	}
	if flags.Changed("front-matter") {
		job.FrontMatter.Enabled, _ = flags.GetBool("front-matter")
	}
	if flags.Changed("front-matter-format") {
		job.FrontMatter.Format, _ = flags.GetString("front-matter-format")
	}
}

// setDefaults establishes the default configuration values in viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", report.DefaultVerbose)
	v.SetDefault("tuiEnabled", report.DefaultTuiEnabled)
	v.SetDefault("outputFormat", string(report.DefaultOutputFormat))

	v.SetDefault("format", string(report.DefaultFormat))
	v.SetDefault("dpi", report.DefaultDPI)
	v.SetDefault("mapStyle", string(report.DefaultMapStyle))
	v.SetDefault("basemap", string(report.DefaultBasemap))
	v.SetDefault("numBins", report.DefaultNumBins)

	v.SetDefault("frontMatter.enabled", false)
	v.SetDefault("frontMatter.format", "yaml")
	v.SetDefault("frontMatter.static", map[string]interface{}{})

	v.SetDefault("encoding", "")
	v.SetDefault("delimiter", "")
}
