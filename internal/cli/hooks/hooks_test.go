package hooks_test

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoatlas/atlas-reporter/internal/cli/hooks"
	"github.com/autoatlas/atlas-reporter/pkg/report"
)

// recordingTUI captures messages sent to the TUI program.
type recordingTUI struct {
	mu   sync.Mutex
	msgs []interface{}
}

func (r *recordingTUI) Send(msg interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingTUI) messages() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interface{}(nil), r.msgs...)
}

// countingBar counts progress bar interactions.
type countingBar struct {
	adds, closes int
	lastDesc     string
}

func (b *countingBar) Add(num int) error {
	b.adds += num
	return nil
}

func (b *countingBar) Describe(description string) error {
	b.lastDesc = description
	return nil
}

func (b *countingBar) Close() error {
	b.closes++
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTUIModeForwardsMessages(t *testing.T) {
	tui := &recordingTUI{}
	h := hooks.NewCLIHooks(discard(), true, false, tui, nil)

	require.NoError(t, h.OnBatchStart(3))
	require.NoError(t, h.OnRecordStatusUpdate(1, 3, "District A", report.StatusSuccess, "out/a.md"))
	require.NoError(t, h.OnRecordStatusUpdate(2, 3, "District B", report.StatusFailed, "boom"))
	require.NoError(t, h.OnRunComplete(report.Report{}))

	msgs := tui.messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, hooks.BatchStartMsg{Total: 3}, msgs[0])
	assert.Equal(t, hooks.RecordStatusMsg{
		Index: 1, Total: 3, Name: "District A",
		Status: report.StatusSuccess, Message: "out/a.md",
	}, msgs[1])
	status, ok := msgs[2].(hooks.RecordStatusMsg)
	require.True(t, ok)
	assert.Equal(t, report.StatusFailed, status.Status)
	_, ok = msgs[3].(hooks.RunCompleteMsg)
	assert.True(t, ok)
}

func TestProgressBarModeAdvancesPerRecord(t *testing.T) {
	bar := &countingBar{}
	h := hooks.NewCLIHooks(discard(), false, false, nil, bar)

	require.NoError(t, h.OnBatchStart(2))
	require.NoError(t, h.OnRecordStatusUpdate(1, 2, "District A", report.StatusSuccess, "out/a.md"))
	require.NoError(t, h.OnRecordStatusUpdate(2, 2, "District B", report.StatusFailed, "boom"))
	require.NoError(t, h.OnRunComplete(report.Report{}))

	assert.Equal(t, 2, bar.adds)
	assert.Equal(t, 1, bar.closes)
	assert.Equal(t, "District B", bar.lastDesc)
}

func TestVerboseModeLogsEachRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := hooks.NewCLIHooks(logger, false, true, nil, nil)

	require.NoError(t, h.OnBatchStart(1))
	require.NoError(t, h.OnRecordStatusUpdate(1, 1, "District A", report.StatusSuccess, "out/a.md"))

	out := buf.String()
	assert.Contains(t, out, "Batch started")
	assert.Contains(t, out, "Page rendered")
	assert.Contains(t, out, "District A")
}

func TestFailuresAreLoggedInPlainMode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := hooks.NewCLIHooks(logger, false, false, nil, nil)

	require.NoError(t, h.OnRecordStatusUpdate(1, 2, "District B", report.StatusFailed, "layout export failed"))
	require.NoError(t, h.OnRecordStatusUpdate(2, 2, "District C", report.StatusSuccess, "out/c.md"))

	out := buf.String()
	assert.Contains(t, out, "Page render failed")
	assert.Contains(t, out, "District B")
	assert.NotContains(t, out, "District C", "successes stay quiet in plain mode")
}
