package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autoatlas/atlas-reporter/pkg/report/render"
	"github.com/autoatlas/atlas-reporter/pkg/report/stats"
	"github.com/autoatlas/atlas-reporter/pkg/util"
)

// Orchestrator drives one batch run: it precomputes shared statistics once,
// then renders one page per record, tolerating per-record failures, tripping
// a circuit breaker on consecutive ones, and honoring cancellation at record
// boundaries. It is single-threaded and cooperative: callers either loop
// Step themselves or hand control to Run. An Orchestrator is single-use;
// once a terminal state is reached, create a new one for the next run.
type Orchestrator struct {
	opts     Options
	logger   *slog.Logger
	hooks    Hooks
	renderer render.PageRenderer
	provider render.BasemapProvider
	janitor  Janitor

	// Cancel may be called from another goroutine (signal handlers); all
	// other state is owned by the single driving goroutine.
	cancelRequested atomic.Bool

	mu    sync.Mutex
	state RunState

	// Shared per-run state, created in Prepare, read-only while Running.
	snapshot   *stats.Snapshot
	fieldStats stats.FieldStats
	ranking    []stats.RankEntry
	basemap    render.Basemap
	targets    []string

	// namePrefix and limitToFirst support the preview path, which reuses the
	// exact batch code path on a derived single-record run.
	namePrefix   string
	limitToFirst bool

	index       int
	consecutive int
	outputPaths []string
	recordErrs  []RecordError
	startTime   time.Time
}

// New validates the options, applies collaborator defaults and returns an
// idle Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation cannot be nil", ErrConfigValidation)
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "orchestrator"))

	if opts.Dataset == nil {
		err := fmt.Errorf("%w: dataset cannot be nil", ErrConfigValidation)
		logger.Error(err.Error())
		return nil, err
	}
	if err := opts.Job.Validate(); err != nil {
		logger.Error(err.Error())
		return nil, err
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	if opts.Renderer == nil {
		opts.Renderer = render.NewTemplateRenderer()
	}
	if opts.BasemapProvider == nil {
		opts.BasemapProvider = &render.StaticProvider{}
	}
	if opts.Janitor == nil {
		opts.Janitor = &TempFileJanitor{}
	}

	return &Orchestrator{
		opts:     opts,
		logger:   logger,
		hooks:    opts.EventHooks,
		renderer: opts.Renderer,
		provider: opts.BasemapProvider,
		janitor:  opts.Janitor,
		state:    StateIdle,
	}, nil
}

// State returns the current run state.
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Cancel requests cooperative cancellation. It is safe to call from any
// goroutine; the run stops at the next record boundary, preserving all
// output paths and errors accumulated so far.
func (o *Orchestrator) Cancel() {
	o.cancelRequested.Store(true)
}

// Prepare loads the dataset snapshot, precomputes the shared statistics and
// ranking for the primary indicator, resolves the record targets and
// acquires the shared basemap resource. Any failure here is fatal: the
// orchestrator moves to StateFatalError with nothing rendered.
func (o *Orchestrator) Prepare(ctx context.Context) error {
	if s := o.State(); s != StateIdle {
		return fmt.Errorf("%w: Prepare called in state %q", ErrInvalidState, s)
	}
	o.setState(StatePreparing)
	o.startTime = time.Now()

	if err := ctx.Err(); err != nil {
		o.finish(StateCancelled)
		return err
	}

	job := &o.opts.Job
	o.logger.Info("Preparing batch run",
		slog.String("indicator", job.PrimaryIndicator),
		slog.Int("indicators", len(job.IndicatorFields)))

	snap, err := stats.Load(o.opts.Dataset, job.IDField, job.NameField, job.IndicatorFields)
	if err != nil {
		o.finish(StateFatalError)
		return fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}
	o.snapshot = snap

	o.fieldStats, err = snap.ComputeStats(job.PrimaryIndicator, job.NumBins)
	if err != nil {
		o.finish(StateFatalError)
		return fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}
	o.ranking, err = snap.ComputeRanking(job.PrimaryIndicator, job.RankAscending)
	if err != nil {
		o.finish(StateFatalError)
		return fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	if o.targets, err = resolveTargets(snap, job.TargetIDs); err != nil {
		o.finish(StateFatalError)
		return fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}
	if o.limitToFirst {
		if len(o.targets) == 0 {
			o.finish(StateFatalError)
			return fmt.Errorf("%w: %w", ErrSetupFailed, ErrNoRecords)
		}
		o.targets = o.targets[:1]
	}

	o.basemap, err = o.provider.Acquire(job.Basemap)
	if err != nil {
		o.finish(StateFatalError)
		return fmt.Errorf("%w: acquiring basemap: %w", ErrSetupFailed, err)
	}

	if hookErr := o.hooks.OnBatchStart(len(o.targets)); hookErr != nil {
		o.logger.Warn("Error reported by OnBatchStart hook", slog.String("hookError", hookErr.Error()))
	}
	o.logger.Info("Batch prepared", slog.Int("records", len(o.targets)))
	o.setState(StateRunning)
	return nil
}

// resolveTargets expands an empty subset to all loaded record ids, in load
// order, and rejects ids the dataset does not contain.
func resolveTargets(snap *stats.Snapshot, subset []string) ([]string, error) {
	all := snap.RecordIDs()
	if len(subset) == 0 {
		return all, nil
	}
	known := make(map[string]struct{}, len(all))
	for _, id := range all {
		known[id] = struct{}{}
	}
	targets := make([]string, 0, len(subset))
	for _, id := range subset {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("unknown record id %q", id)
		}
		targets = append(targets, id)
	}
	return targets, nil
}

// Step processes at most one record and returns done=true once the run has
// reached a terminal state. Cancellation is observed here, at the record
// boundary: a render already in progress always finishes first.
func (o *Orchestrator) Step(ctx context.Context) (bool, error) {
	switch s := o.State(); {
	case s.Terminal():
		return true, nil
	case s != StateRunning:
		return true, fmt.Errorf("%w: Step called in state %q", ErrInvalidState, s)
	}

	if o.cancelRequested.Load() || ctx.Err() != nil {
		o.logger.Info("Run cancelled", slog.Int("rendered", len(o.outputPaths)))
		o.finish(StateCancelled)
		return true, nil
	}
	if o.index >= len(o.targets) {
		o.finish(StateCompleted)
		return true, nil
	}

	id := o.targets[o.index]
	name := o.snapshot.DisplayName(id)
	total := len(o.targets)

	status := StatusSuccess
	message := ""
	if path, err := o.renderRecord(ctx, id, name); err != nil {
		o.recordErrs = append(o.recordErrs, RecordError{RecordID: id, Name: name, Message: err.Error()})
		o.consecutive++
		status = StatusFailed
		message = err.Error()
		o.logger.Warn("Record failed",
			slog.String("record", id), slog.String("name", name), slog.String("error", message))
	} else {
		o.outputPaths = append(o.outputPaths, path)
		o.consecutive = 0
		message = path
		o.logger.Debug("Record rendered", slog.String("record", id), slog.String("path", path))
	}
	o.index++

	// Strict periodic hygiene, success and failure alike.
	if o.index%CleanupInterval == 0 {
		o.janitor.Collect()
	}

	if hookErr := o.hooks.OnRecordStatusUpdate(o.index, total, name, status, message); hookErr != nil {
		o.logger.Warn("Error reported by OnRecordStatusUpdate hook", slog.String("hookError", hookErr.Error()))
	}

	if o.consecutive >= CircuitBreakerThreshold {
		o.logger.Error("Circuit breaker tripped",
			slog.Int("consecutiveFailures", o.consecutive), slog.Int("attempted", o.index))
		o.finish(StateFatalError)
		return true, ErrTooManyFailures
	}
	if o.index >= len(o.targets) {
		o.finish(StateCompleted)
		return true, nil
	}
	return false, nil
}

// renderRecord builds the self-contained page request for one record and
// invokes the renderer. Any failure, context lookup included, counts as a
// per-record failure.
func (o *Orchestrator) renderRecord(ctx context.Context, id, name string) (string, error) {
	fc, err := o.snapshot.FeatureContext(id, o.opts.Job.PrimaryIndicator)
	if err != nil {
		return "", err
	}

	base := util.SanitizeFilename(name)
	if base == "" {
		base = util.SanitizeFilename(id)
	}
	job := &o.opts.Job
	req := render.PageRequest{
		OutputDir: job.OutputDir,
		BaseName:  o.namePrefix + base,
		Format:    job.Format,
		DPI:       job.DPI,

		Title:    job.PageTitle(),
		Subtitle: job.Subtitle,
		Footer:   job.Footer,
		MapStyle: job.MapStyle,

		RecordID:   id,
		RecordName: name,

		Stats:   o.fieldStats,
		Ranking: o.ranking,
		Context: fc,

		Basemap:     o.basemap,
		FrontMatter: job.FrontMatter,
	}
	return o.renderer.RenderPage(ctx, req)
}

// Run drives the batch to a terminal state: Prepare when still idle, then
// Step until done. The returned error is nil for Completed and Cancelled
// runs; Cancelled is reported through the state and summary instead.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	var runErr error
	if o.State() == StateIdle {
		runErr = o.Prepare(ctx)
	}
	if runErr == nil {
		for {
			done, err := o.Step(ctx)
			if err != nil {
				runErr = err
				break
			}
			if done {
				break
			}
		}
	}

	rep := o.buildReport()
	if hookErr := o.hooks.OnRunComplete(rep); hookErr != nil {
		o.logger.Warn("Error reported by OnRunComplete hook", slog.String("hookError", hookErr.Error()))
	}
	return rep, runErr
}

// finish transitions to a terminal state and releases the shared resources
// acquired in Prepare. The basemap is released exactly once over all
// terminal paths; its Close is additionally idempotent.
func (o *Orchestrator) finish(s RunState) {
	if o.State().Terminal() {
		return
	}
	o.setState(s)
	if o.basemap != nil {
		if err := o.basemap.Close(); err != nil {
			o.logger.Warn("Error releasing basemap", slog.String("error", err.Error()))
		}
	}
}

func (o *Orchestrator) buildReport() Report {
	state := o.State()
	summary := ReportSummary{
		DatasetName:        o.opts.Dataset.Name(),
		OutputDir:          o.opts.Job.OutputDir,
		Indicator:          o.opts.Job.PrimaryIndicator,
		State:              state,
		TotalRecords:       len(o.targets),
		RenderedCount:      len(o.outputPaths),
		ErrorCount:         len(o.recordErrs),
		FatalErrorOccurred: state == StateFatalError,
		Cancelled:          state == StateCancelled,
		Timestamp:          time.Now(),
		SchemaVersion:      ReportSchemaVersion,
	}
	if !o.startTime.IsZero() {
		summary.DurationSeconds = time.Since(o.startTime).Seconds()
	}
	return Report{
		Summary:     summary,
		OutputPaths: append([]string(nil), o.outputPaths...),
		Errors:      append([]RecordError(nil), o.recordErrs...),
	}
}

// GeneratePreview renders a single low-resolution page for the first record
// in load order, into a fresh temporary directory, and returns its path. It
// reuses the exact preparation and per-record path of a full batch on a
// derived orchestrator, so a preview is faithful to what the batch would
// produce.
func (o *Orchestrator) GeneratePreview(ctx context.Context) (string, error) {
	opts := o.opts
	opts.Job.DPI = PreviewDPI
	opts.Job.Format = render.FormatMarkdown
	opts.Job.TargetIDs = nil

	dir, err := os.MkdirTemp("", "atlas-reporter-preview-")
	if err != nil {
		return "", fmt.Errorf("%w: creating preview directory: %w", ErrSetupFailed, err)
	}
	opts.Job.OutputDir = dir

	p, err := New(opts)
	if err != nil {
		return "", err
	}
	p.namePrefix = PreviewPrefix
	p.limitToFirst = true

	rep, err := p.Run(ctx)
	if err != nil {
		return "", err
	}
	if len(rep.OutputPaths) != 1 {
		if len(rep.Errors) > 0 {
			return "", fmt.Errorf("%w: %s", render.ErrRenderFailed, rep.Errors[0].String())
		}
		return "", ErrNoRecords
	}
	return rep.OutputPaths[0], nil
}

// Generate is the main entry point for the library: one call from validated
// options to a finished report.
func Generate(ctx context.Context, opts Options) (Report, error) {
	o, err := New(opts)
	if err != nil {
		return Report{}, err
	}
	return o.Run(ctx)
}
