// Package cli wires the validated options to the report library and the
// chosen presentation layer (TUI, progress bar or plain logs), then prints
// the final run summary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/autoatlas/atlas-reporter/internal/cli/hooks"
	"github.com/autoatlas/atlas-reporter/internal/cli/ui"
	"github.com/autoatlas/atlas-reporter/pkg/report"
)

// barAdapter narrows progressbar/v3 to the hooks.ProgressBar interface;
// Describe on the underlying bar returns nothing.
type barAdapter struct {
	bar *progressbar.ProgressBar
}

func (b *barAdapter) Add(num int) error { return b.bar.Add(num) }

func (b *barAdapter) Describe(description string) error {
	b.bar.Describe(description)
	return nil
}

func (b *barAdapter) Close() error { return b.bar.Close() }

// tuiAdapter narrows *tea.Program to the hooks.TUIProgram interface; the
// program's Send takes the defined type tea.Msg, the interface takes any.
type tuiAdapter struct {
	program *tea.Program
}

func (a *tuiAdapter) Send(msg interface{}) { a.program.Send(msg) }

// Run executes the batch (or a single preview page) with the presentation
// mode derived from the options and the terminal, and prints the outcome.
func Run(ctx context.Context, opts report.Options, logger *slog.Logger, preview bool) error {
	if preview {
		return runPreview(ctx, opts, logger)
	}

	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	useTUI := opts.TuiEnabled && isTTY && !opts.Verbose

	if useTUI {
		return runWithTUI(ctx, opts, logger)
	}

	var bar hooks.ProgressBar
	if isTTY && !opts.Verbose {
		bar = &barAdapter{bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Preparing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
		)}
	}
	opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil, bar)

	rep, err := report.Generate(ctx, opts)
	if err != nil {
		logger.Error("Batch run failed", slog.Any("error", err))
		return err
	}
	return printReport(os.Stdout, rep, opts.OutputFormat)
}

// runWithTUI drives the batch under a Bubble Tea program. The program keeps
// the final summary on screen until the user quits.
func runWithTUI(ctx context.Context, opts report.Options, logger *slog.Logger) error {
	model := ui.NewModel()
	program := tea.NewProgram(&model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	opts.EventHooks = hooks.NewCLIHooks(logger, true, opts.Verbose, &tuiAdapter{program: program}, nil)

	type result struct {
		rep report.Report
		err error
	}
	done := make(chan result, 1)
	go func() {
		rep, err := report.Generate(ctx, opts)
		done <- result{rep: rep, err: err}
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		logger.Error("Terminal UI failed", slog.Any("error", err))
	}

	res := <-done
	if res.err != nil {
		logger.Error("Batch run failed", slog.Any("error", res.err))
		return res.err
	}
	return printReport(os.Stdout, res.rep, opts.OutputFormat)
}

// runPreview renders a single low-resolution page and prints its path.
func runPreview(ctx context.Context, opts report.Options, logger *slog.Logger) error {
	opts.EventHooks = &report.NoOpHooks{}
	orch, err := report.New(opts)
	if err != nil {
		return err
	}
	path, err := orch.GeneratePreview(ctx)
	if err != nil {
		logger.Error("Preview generation failed", slog.Any("error", err))
		return err
	}
	fmt.Fprintf(os.Stdout, "Preview written to: %s\n", path)
	return nil
}

// printReport writes the final summary to w in the requested format.
func printReport(w io.Writer, rep report.Report, format report.OutputFormat) error {
	if format == report.OutputFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	s := rep.Summary
	switch {
	case s.FatalErrorOccurred:
		fmt.Fprintf(w, "Batch halted: %d/%d pages rendered, %d failed\n", s.RenderedCount, s.TotalRecords, s.ErrorCount)
	case s.Cancelled:
		fmt.Fprintf(w, "Batch cancelled: %d/%d pages rendered, %d failed\n", s.RenderedCount, s.TotalRecords, s.ErrorCount)
	default:
		fmt.Fprintf(w, "Batch complete: %d/%d pages rendered, %d failed (%.2fs)\n", s.RenderedCount, s.TotalRecords, s.ErrorCount, s.DurationSeconds)
	}
	if s.OutputDir != "" {
		fmt.Fprintf(w, "Output directory: %s\n", s.OutputDir)
	}
	if lines := rep.ErrorLines(report.MaxDisplayedErrors); len(lines) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, line := range lines {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}
