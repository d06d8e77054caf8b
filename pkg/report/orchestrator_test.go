package report_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/autoatlas/atlas-reporter/internal/testutil"
	"github.com/autoatlas/atlas-reporter/pkg/report"
	"github.com/autoatlas/atlas-reporter/pkg/report/dataset"
	"github.com/autoatlas/atlas-reporter/pkg/report/render"
)

func discardLogger() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}

func popJob(outDir string) report.Job {
	return report.Job{
		IDField:         "id",
		NameField:       "name",
		IndicatorFields: []string{"pop"},
		OutputDir:       outDir,
	}
}

// fakeRenderer lets tests script per-record outcomes and inspect requests.
type fakeRenderer struct {
	fn       func(req render.PageRequest) (string, error)
	requests []render.PageRequest
}

func (f *fakeRenderer) RenderPage(_ context.Context, req render.PageRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.fn != nil {
		return f.fn(req)
	}
	return filepath.Join(req.OutputDir, req.BaseName+".md"), nil
}

func TestNewValidatesOptions(t *testing.T) {
	ds := testutil.PopDataset(t)

	t.Run("nil logger", func(t *testing.T) {
		_, err := report.New(report.Options{Dataset: ds, Job: popJob(t.TempDir())})
		assert.ErrorIs(t, err, report.ErrConfigValidation)
	})

	t.Run("nil dataset", func(t *testing.T) {
		_, err := report.New(report.Options{Logger: discardLogger(), Job: popJob(t.TempDir())})
		assert.ErrorIs(t, err, report.ErrConfigValidation)
	})

	t.Run("invalid job", func(t *testing.T) {
		job := popJob(t.TempDir())
		job.IDField = ""
		_, err := report.New(report.Options{Logger: discardLogger(), Dataset: ds, Job: job})
		assert.ErrorIs(t, err, report.ErrConfigValidation)
	})
}

func TestGenerateCompletesBatch(t *testing.T) {
	outDir := t.TempDir()
	rep, err := report.Generate(context.Background(), report.Options{
		Logger:  discardLogger(),
		Dataset: testutil.PopDataset(t),
		Job:     popJob(outDir),
	})
	require.NoError(t, err)

	assert.Equal(t, report.StateCompleted, rep.Summary.State)
	assert.Equal(t, 3, rep.Summary.TotalRecords)
	assert.Equal(t, 3, rep.Summary.RenderedCount)
	assert.Equal(t, 0, rep.Summary.ErrorCount)
	assert.False(t, rep.Summary.FatalErrorOccurred)
	assert.False(t, rep.Summary.Cancelled)
	assert.Equal(t, "districts", rep.Summary.DatasetName)
	assert.Equal(t, "pop", rep.Summary.Indicator)
	require.Len(t, rep.OutputPaths, 3)

	// Pages land in load order with sanitized names.
	assert.Equal(t, filepath.Join(outDir, "District A.md"), rep.OutputPaths[0])
	for _, p := range rep.OutputPaths {
		_, statErr := os.Stat(p)
		assert.NoError(t, statErr, "artifact %s should exist", p)
	}
}

func TestPrepareFailsFatallyOnBadField(t *testing.T) {
	job := popJob(t.TempDir())
	job.IndicatorFields = []string{"income"}
	o, err := report.New(report.Options{
		Logger:  discardLogger(),
		Dataset: testutil.PopDataset(t),
		Job:     job,
	})
	require.NoError(t, err)

	err = o.Prepare(context.Background())
	assert.ErrorIs(t, err, report.ErrSetupFailed)
	assert.Equal(t, report.StateFatalError, o.State())
}

func TestPrepareRejectsUnknownTargetID(t *testing.T) {
	job := popJob(t.TempDir())
	job.TargetIDs = []string{"A", "Z"}
	o, err := report.New(report.Options{
		Logger:  discardLogger(),
		Dataset: testutil.PopDataset(t),
		Job:     job,
	})
	require.NoError(t, err)

	err = o.Prepare(context.Background())
	assert.ErrorIs(t, err, report.ErrSetupFailed)
	assert.Contains(t, err.Error(), `"Z"`)
}

func TestStepBeforePrepareIsAnError(t *testing.T) {
	o, err := report.New(report.Options{
		Logger:  discardLogger(),
		Dataset: testutil.PopDataset(t),
		Job:     popJob(t.TempDir()),
	})
	require.NoError(t, err)

	done, err := o.Step(context.Background())
	assert.True(t, done)
	assert.ErrorIs(t, err, report.ErrInvalidState)
}

func TestCircuitBreakerTripsOnThreeConsecutiveFailures(t *testing.T) {
	// Records 1-2 succeed, 3-5 fail consecutively: the run must stop after
	// the 5th attempt even though more records remain.
	failing := map[string]bool{"r03": true, "r04": true, "r05": true}
	renderer := &fakeRenderer{fn: func(req render.PageRequest) (string, error) {
		if failing[req.RecordID] {
			return "", errors.New("layout export failed")
		}
		return filepath.Join(req.OutputDir, req.BaseName+".md"), nil
	}}

	job := popJob(t.TempDir())
	job.IndicatorFields = []string{"v"}
	rep, err := report.Generate(context.Background(), report.Options{
		Logger:   discardLogger(),
		Dataset:  testutil.SizedDataset(t, 8),
		Job:      job,
		Renderer: renderer,
	})

	assert.ErrorIs(t, err, report.ErrTooManyFailures)
	assert.Len(t, renderer.requests, 5)
	assert.Len(t, rep.OutputPaths, 2)
	assert.Len(t, rep.Errors, 3)
	assert.Equal(t, report.StateFatalError, rep.Summary.State)
	assert.True(t, rep.Summary.FatalErrorOccurred)
}

func TestNonConsecutiveFailuresDoNotTrip(t *testing.T) {
	// Failures separated by successes keep the run alive to completion.
	failing := map[string]bool{"r02": true, "r04": true, "r06": true}
	renderer := &fakeRenderer{fn: func(req render.PageRequest) (string, error) {
		if failing[req.RecordID] {
			return "", errors.New("boom")
		}
		return filepath.Join(req.OutputDir, req.BaseName+".md"), nil
	}}

	job := popJob(t.TempDir())
	job.IndicatorFields = []string{"v"}
	rep, err := report.Generate(context.Background(), report.Options{
		Logger:   discardLogger(),
		Dataset:  testutil.SizedDataset(t, 7),
		Job:      job,
		Renderer: renderer,
	})

	require.NoError(t, err)
	assert.Equal(t, report.StateCompleted, rep.Summary.State)
	assert.Len(t, rep.OutputPaths, 4)
	assert.Len(t, rep.Errors, 3)
}

func TestCancellationPreservesPartialResults(t *testing.T) {
	renderer := &fakeRenderer{}
	o, err := report.New(report.Options{
		Logger:   discardLogger(),
		Dataset:  testutil.PopDataset(t),
		Job:      popJob(t.TempDir()),
		Renderer: renderer,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, o.Prepare(ctx))

	for i := 0; i < 2; i++ {
		done, stepErr := o.Step(ctx)
		require.NoError(t, stepErr)
		require.False(t, done)
	}
	o.Cancel()

	done, err := o.Step(ctx)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, report.StateCancelled, o.State())
	assert.Len(t, renderer.requests, 2, "no renderer invocation after cancellation")

	rep, err := o.Run(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Summary.Cancelled)
	assert.Len(t, rep.OutputPaths, 2)
}

func TestContextCancellationAtRecordBoundary(t *testing.T) {
	renderer := &fakeRenderer{}
	o, err := report.New(report.Options{
		Logger:   discardLogger(),
		Dataset:  testutil.PopDataset(t),
		Job:      popJob(t.TempDir()),
		Renderer: renderer,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, o.Prepare(ctx))

	done, err := o.Step(ctx)
	require.NoError(t, err)
	require.False(t, done)

	cancel()
	done, err = o.Step(ctx)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, report.StateCancelled, o.State())
	assert.Len(t, renderer.requests, 1)
}

func TestBasemapReleasedExactlyOncePerTerminalState(t *testing.T) {
	run := func(t *testing.T, renderer render.PageRenderer, cancelAfterPrepare bool) (report.Report, error, *testutil.MockBasemap) {
		t.Helper()
		mb := &testutil.MockBasemap{}
		mb.On("Close").Return(nil)
		mp := &testutil.MockBasemapProvider{}
		mp.On("Acquire", render.BasemapOSM).Return(mb, nil)

		job := popJob(t.TempDir())
		job.Basemap = render.BasemapOSM
		o, err := report.New(report.Options{
			Logger:          discardLogger(),
			Dataset:         testutil.PopDataset(t),
			Job:             job,
			Renderer:        renderer,
			BasemapProvider: mp,
		})
		require.NoError(t, err)
		if cancelAfterPrepare {
			require.NoError(t, o.Prepare(context.Background()))
			o.Cancel()
		}
		rep, runErr := o.Run(context.Background())
		return rep, runErr, mb
	}

	t.Run("completed", func(t *testing.T) {
		rep, err, mb := run(t, &fakeRenderer{}, false)
		require.NoError(t, err)
		assert.Equal(t, report.StateCompleted, rep.Summary.State)
		mb.AssertNumberOfCalls(t, "Close", 1)
	})

	t.Run("cancelled", func(t *testing.T) {
		rep, err, mb := run(t, &fakeRenderer{}, true)
		require.NoError(t, err)
		assert.Equal(t, report.StateCancelled, rep.Summary.State)
		mb.AssertNumberOfCalls(t, "Close", 1)
	})

	t.Run("fatal error", func(t *testing.T) {
		failAll := &fakeRenderer{fn: func(render.PageRequest) (string, error) {
			return "", errors.New("boom")
		}}
		rep, err, mb := run(t, failAll, false)
		assert.ErrorIs(t, err, report.ErrTooManyFailures)
		assert.Equal(t, report.StateFatalError, rep.Summary.State)
		mb.AssertNumberOfCalls(t, "Close", 1)
	})
}

func TestJanitorRunsEveryTenRecords(t *testing.T) {
	mj := &testutil.MockJanitor{}
	mj.On("Collect").Return()

	job := popJob(t.TempDir())
	job.IndicatorFields = []string{"v"}
	_, err := report.Generate(context.Background(), report.Options{
		Logger:   discardLogger(),
		Dataset:  testutil.SizedDataset(t, 25),
		Job:      job,
		Renderer: &fakeRenderer{},
		Janitor:  mj,
	})
	require.NoError(t, err)

	mj.AssertNumberOfCalls(t, "Collect", 2)
}

func TestProgressHookFiresOncePerAttempt(t *testing.T) {
	mh := &testutil.MockHooks{}
	mh.On("OnBatchStart", 3).Return(nil)
	mh.On("OnRecordStatusUpdate", 1, 3, "District A", report.StatusSuccess, mock.Anything).Return(nil)
	mh.On("OnRecordStatusUpdate", 2, 3, "District B", report.StatusSuccess, mock.Anything).Return(nil)
	mh.On("OnRecordStatusUpdate", 3, 3, "District C", report.StatusSuccess, mock.Anything).Return(nil)
	mh.On("OnRunComplete", mock.Anything).Return(nil)

	_, err := report.Generate(context.Background(), report.Options{
		Logger:     discardLogger(),
		Dataset:    testutil.PopDataset(t),
		Job:        popJob(t.TempDir()),
		Renderer:   &fakeRenderer{},
		EventHooks: mh,
	})
	require.NoError(t, err)

	mh.AssertExpectations(t)
	mh.AssertNumberOfCalls(t, "OnRecordStatusUpdate", 3)
	mh.AssertNumberOfCalls(t, "OnRunComplete", 1)
}

func TestHookErrorsDoNotAbortTheRun(t *testing.T) {
	mh := &testutil.MockHooks{}
	mh.On("OnBatchStart", mock.Anything).Return(errors.New("sink gone"))
	mh.On("OnRecordStatusUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("sink gone"))
	mh.On("OnRunComplete", mock.Anything).Return(errors.New("sink gone"))

	rep, err := report.Generate(context.Background(), report.Options{
		Logger:     discardLogger(),
		Dataset:    testutil.PopDataset(t),
		Job:        popJob(t.TempDir()),
		Renderer:   &fakeRenderer{},
		EventHooks: mh,
	})
	require.NoError(t, err)
	assert.Equal(t, report.StateCompleted, rep.Summary.State)
	assert.Len(t, rep.OutputPaths, 3)
}

func TestGeneratePreviewRendersFirstRecordLowRes(t *testing.T) {
	renderer := &fakeRenderer{}
	job := popJob(t.TempDir())
	job.Format = render.FormatHTML
	job.DPI = 300
	o, err := report.New(report.Options{
		Logger:   discardLogger(),
		Dataset:  testutil.PopDataset(t),
		Job:      job,
		Renderer: renderer,
	})
	require.NoError(t, err)

	path, err := o.GeneratePreview(context.Background())
	require.NoError(t, err)

	require.Len(t, renderer.requests, 1)
	req := renderer.requests[0]
	assert.Equal(t, "A", req.RecordID, "preview uses the first id in load order")
	assert.Equal(t, report.PreviewDPI, req.DPI)
	assert.Equal(t, render.FormatMarkdown, req.Format)
	assert.True(t, strings.HasPrefix(req.BaseName, report.PreviewPrefix))
	assert.NotEqual(t, job.OutputDir, req.OutputDir, "preview writes to a temp dir")
	assert.Equal(t, filepath.Join(req.OutputDir, req.BaseName+".md"), path)

	// The original orchestrator is untouched and still usable.
	assert.Equal(t, report.StateIdle, o.State())
}

func TestGeneratePreviewEmptyDataset(t *testing.T) {
	o, err := report.New(report.Options{
		Logger:  discardLogger(),
		Dataset: dataset.NewMemory("empty", []string{"id", "name", "pop"}),
		Job:     popJob(t.TempDir()),
	})
	require.NoError(t, err)

	_, err = o.GeneratePreview(context.Background())
	assert.ErrorIs(t, err, report.ErrNoRecords)
}

func TestPerRecordContextFailureIsRecovered(t *testing.T) {
	// Record B has no value for the indicator: its context lookup fails and
	// must surface as a per-record error, not abort the run.
	ds := dataset.NewMemory("sparse", []string{"id", "name", "pop"})
	ds.Append(map[string]any{"id": "A", "name": "District A", "pop": 10.0})
	ds.Append(map[string]any{"id": "B", "name": "District B", "pop": ""})
	ds.Append(map[string]any{"id": "C", "name": "District C", "pop": 30.0})

	rep, err := report.Generate(context.Background(), report.Options{
		Logger:   discardLogger(),
		Dataset:  ds,
		Job:      popJob(t.TempDir()),
		Renderer: &fakeRenderer{},
	})
	require.NoError(t, err)

	assert.Equal(t, report.StateCompleted, rep.Summary.State)
	assert.Len(t, rep.OutputPaths, 2)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "B", rep.Errors[0].RecordID)
	assert.True(t, strings.HasPrefix(rep.Errors[0].String(), "District B: "))
}
