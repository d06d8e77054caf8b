package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoatlas/atlas-reporter/internal/cli/hooks"
	"github.com/autoatlas/atlas-reporter/pkg/report"
)

func sized(t *testing.T) *Model {
	t.Helper()
	m := NewModel()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, ok := updated.(*Model)
	require.True(t, ok)
	return model
}

func TestBatchStartSetsTotalAndPhase(t *testing.T) {
	m := sized(t)
	updated, _ := m.Update(hooks.BatchStartMsg{Total: 12})
	m = updated.(*Model)

	total, _, _ := m.Summary()
	assert.Equal(t, 12, total)
	assert.Contains(t, m.View(), "Rendering...")
}

func TestRecordStatusTalliesOutcomes(t *testing.T) {
	m := sized(t)
	updated, _ := m.Update(hooks.BatchStartMsg{Total: 3})
	m = updated.(*Model)

	steps := []hooks.RecordStatusMsg{
		{Index: 1, Total: 3, Name: "District A", Status: report.StatusSuccess, Message: "out/a.md"},
		{Index: 2, Total: 3, Name: "District B", Status: report.StatusFailed, Message: "boom"},
		{Index: 3, Total: 3, Name: "District C", Status: report.StatusSuccess, Message: "out/c.md"},
	}
	for _, msg := range steps {
		upd, _ := m.Update(msg)
		m = upd.(*Model)
	}

	assert.Equal(t, 3, m.Attempted())
	_, rendered, failed := m.Summary()
	assert.Equal(t, 2, rendered)
	assert.Equal(t, 1, failed)

	view := m.View()
	assert.Contains(t, view, "Pages: 3/3")
	assert.Contains(t, view, "Failed: 1")
}

func TestRunCompleteVariants(t *testing.T) {
	complete := func(summary report.ReportSummary) string {
		m := sized(t)
		upd, _ := m.Update(hooks.RunCompleteMsg{Report: report.Report{Summary: summary}})
		m = upd.(*Model)
		return m.View()
	}

	assert.Contains(t, complete(report.ReportSummary{State: report.StateCompleted}), "Complete")
	assert.Contains(t, complete(report.ReportSummary{State: report.StateCancelled, Cancelled: true}), "Cancelled")

	fatal := complete(report.ReportSummary{State: report.StateFatalError, FatalErrorOccurred: true, RenderedCount: 2, ErrorCount: 3})
	assert.Contains(t, fatal, "Failed")
	assert.Contains(t, fatal, "too many consecutive failures")
}

func TestQuitKeyStopsTheProgram(t *testing.T) {
	m := sized(t)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = updated.(*Model)

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, strings.Contains(m.View(), "Exiting"))
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := NewModel()
	assert.Equal(t, "Preparing...", m.View())
}
