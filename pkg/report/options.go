package report

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/autoatlas/atlas-reporter/pkg/report/dataset"
	"github.com/autoatlas/atlas-reporter/pkg/report/render"
)

// Hooks defines callbacks for status updates during a batch run. The
// orchestrator is single-threaded, so implementations are called strictly
// sequentially; hook errors are logged as warnings and never abort the run.
type Hooks interface {
	// OnBatchStart fires once after preparation, before the first record.
	OnBatchStart(total int) error
	// OnRecordStatusUpdate fires after every record attempt, success or
	// failure, with the 1-based index of the attempt just finished.
	OnRecordStatusUpdate(index, total int, name string, status Status, message string) error
	// OnRunComplete fires once with the final report, in every terminal state.
	OnRunComplete(report Report) error
}

// NoOpHooks provides a default, do-nothing implementation of Hooks.
type NoOpHooks struct{}

func (h *NoOpHooks) OnBatchStart(total int) error { return nil }

func (h *NoOpHooks) OnRecordStatusUpdate(index, total int, name string, status Status, message string) error {
	return nil
}

func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// Janitor releases transient resources accumulated while rendering. The
// orchestrator calls Collect on a strict periodic contract, every
// CleanupInterval processed records, to bound peak resource usage over long
// batches.
type Janitor interface {
	Collect()
}

// NoOpJanitor provides a do-nothing Janitor for tests and embedders that
// manage resources themselves.
type NoOpJanitor struct{}

func (j *NoOpJanitor) Collect() {}

// TempFileJanitor is the default Janitor: it removes files matching Patterns
// under Dir and nudges the garbage collector. With an empty Dir it only runs
// the collector.
type TempFileJanitor struct {
	Dir      string
	Patterns []string
}

// Collect implements Janitor. Removal failures are ignored; a file still in
// use will be caught on a later sweep.
func (j *TempFileJanitor) Collect() {
	if j.Dir != "" {
		patterns := j.Patterns
		if len(patterns) == 0 {
			patterns = []string{"*.tmp"}
		}
		for _, p := range patterns {
			matches, err := filepath.Glob(filepath.Join(j.Dir, p))
			if err != nil {
				continue
			}
			for _, m := range matches {
				_ = os.Remove(m)
			}
		}
	}
	runtime.GC()
}

// Options holds all configuration for one batch run.
type Options struct {
	// Dataset is the loaded attribute table the run computes over. Required.
	Dataset dataset.Dataset `mapstructure:"-"`

	// Job describes the run itself. Validated by Generate / New.
	Job Job `mapstructure:",squash"`

	// OutputFormat selects the final summary rendering ("text", "json") for
	// callers that print reports; the library itself only carries it.
	OutputFormat OutputFormat `mapstructure:"outputFormat"`

	// Verbose enables debug logging. TuiEnabled hints the CLI presentation
	// layer; both are carried for the caller, the library ignores TuiEnabled.
	Verbose    bool `mapstructure:"verbose"`
	TuiEnabled bool `mapstructure:"tuiEnabled"`

	// ConfigFilePath records the loaded config file for reporting.
	ConfigFilePath string `mapstructure:"-"`

	// Injected collaborators. Logger is required; the rest default to the
	// builtin implementations when nil.
	Logger          slog.Handler           `mapstructure:"-"`
	EventHooks      Hooks                  `mapstructure:"-"`
	Renderer        render.PageRenderer    `mapstructure:"-"`
	BasemapProvider render.BasemapProvider `mapstructure:"-"`
	Janitor         Janitor                `mapstructure:"-"`
}
