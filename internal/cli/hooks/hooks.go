package hooks

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/autoatlas/atlas-reporter/pkg/report"
)

// --- TUI message structs ---

// BatchStartMsg signals that preparation finished and the batch is starting.
type BatchStartMsg struct{ Total int }

// RecordStatusMsg signals one finished record attempt.
type RecordStatusMsg struct {
	Index   int
	Total   int
	Name    string
	Status  report.Status
	Message string
}

// RunCompleteMsg signals the completion of the entire batch run.
type RunCompleteMsg struct{ Report report.Report }

// TUIProgram defines the interface needed to interact with the Bubble Tea
// program, decoupled so tests can capture messages.
type TUIProgram interface {
	Send(msg interface{})
}

// ProgressBar defines the interface needed to interact with the progress bar.
type ProgressBar interface {
	Add(num int) error
	Describe(description string) error
	Close() error
}

// NoOpTUIProgram provides a default null implementation.
type NoOpTUIProgram struct{}

func (n *NoOpTUIProgram) Send(msg interface{}) {}

// NoOpProgressBar provides a default null implementation.
type NoOpProgressBar struct{}

func (n *NoOpProgressBar) Add(num int) error                 { return nil }
func (n *NoOpProgressBar) Describe(description string) error { return nil }
func (n *NoOpProgressBar) Close() error                      { return nil }

// CLIHooks implements the report.Hooks interface, bridging library events to
// the CLI's presentation layer (TUI, progress bar, or plain logs).
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	progressBar    ProgressBar
	mu             sync.Mutex
	barActive      bool
}

// NewCLIHooks creates a new CLIHooks instance. Pass nil for tuiProgram or
// progressBar if not applicable; NoOp versions will be used.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram, progBar ProgressBar) report.Hooks {
	barActive := progBar != nil
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	if progBar == nil {
		progBar = &NoOpProgressBar{}
	}
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
		progressBar:    progBar,
		barActive:      barActive,
	}
}

// OnBatchStart announces the batch size to whichever presentation is active.
func (h *CLIHooks) OnBatchStart(total int) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(BatchStartMsg{Total: total})
		return nil
	}
	if h.verboseEnabled {
		h.logger.Info("Batch started", slog.Int("records", total))
	}
	if h.barActive {
		h.mu.Lock()
		_ = h.progressBar.Describe(fmt.Sprintf("Rendering %d pages", total))
		h.mu.Unlock()
	}
	return nil
}

// OnRecordStatusUpdate handles one finished record attempt.
func (h *CLIHooks) OnRecordStatusUpdate(index, total int, name string, status report.Status, message string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RecordStatusMsg{
			Index:   index,
			Total:   total,
			Name:    name,
			Status:  status,
			Message: message,
		})
		return nil
	}

	if h.verboseEnabled {
		attrs := []any{
			slog.Int("index", index),
			slog.Int("total", total),
			slog.String("record", name),
			slog.String("status", string(status)),
		}
		if status == report.StatusFailed {
			h.logger.Error("Page render failed", append(attrs, slog.String("error", message))...)
		} else {
			h.logger.Info("Page rendered", append(attrs, slog.String("path", message))...)
		}
		return nil
	}

	if h.barActive {
		h.mu.Lock()
		_ = h.progressBar.Add(1)
		_ = h.progressBar.Describe(name)
		h.mu.Unlock()
	}
	// Failures surface even in progress bar and plain modes.
	if status == report.StatusFailed {
		h.logger.Error("Page render failed", slog.String("record", name), slog.String("error", message))
	}
	return nil
}

// OnRunComplete finalizes the active presentation; the final summary itself
// is printed by the CLI runner, not here.
func (h *CLIHooks) OnRunComplete(rep report.Report) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: rep})
		return nil
	}
	if h.barActive {
		h.mu.Lock()
		_ = h.progressBar.Close()
		h.mu.Unlock()
		// Newline after the bar so the summary does not overlap the prompt.
		_, _ = fmt.Fprintf(os.Stderr, "\n")
	}
	return nil
}
