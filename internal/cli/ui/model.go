package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/autoatlas/atlas-reporter/internal/cli/hooks"
	"github.com/autoatlas/atlas-reporter/pkg/report"
)

const listHeightMargin = 6 // header + progress + footer + padding

// Model represents the state of the batch-progress TUI. It receives the hook
// messages emitted by the orchestrator run and renders a scrolling list of
// record outcomes above an overall progress bar.
type Model struct {
	list     list.Model
	spinner  spinner.Model
	progress progress.Model

	width       int
	height      int
	initialized bool

	items []recordItem

	total     int
	attempted int
	rendered  int
	failed    int
	startTime time.Time

	phaseMessage string
	fatalError   string
	finalReport  *report.Report
	quitting     bool
}

// recordItem is one attempted record in the TUI list.
type recordItem struct {
	index   int
	name    string
	status  report.Status
	message string
}

// NewModel creates the initial model for the TUI.
func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusRendering)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	p := progress.New(progress.WithDefaultGradient())

	return Model{
		list:         l,
		spinner:      s,
		progress:     p,
		startTime:    time.Now(),
		phaseMessage: "Preparing...",
	}
}

// Init starts the spinner animation.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages: terminal events, spinner ticks and the
// hook messages forwarded by the CLI hooks bridge.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.progress.Width = m.width - 4
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting || m.finalReport != nil {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case progress.FrameMsg:
		pm, progressCmd := m.progress.Update(msg)
		if p, ok := pm.(progress.Model); ok {
			m.progress = p
		}
		cmds = append(cmds, progressCmd)

	case hooks.BatchStartMsg:
		m.total = msg.Total
		m.phaseMessage = "Rendering..."

	case hooks.RecordStatusMsg:
		m.attempted = msg.Index
		item := recordItem{
			index:   msg.Index,
			name:    msg.Name,
			status:  msg.Status,
			message: msg.Message,
		}
		m.items = append(m.items, item)
		switch msg.Status {
		case report.StatusSuccess:
			m.rendered++
		case report.StatusFailed:
			m.failed++
		}
		cmds = append(cmds, m.syncList(), m.progress.SetPercent(m.percent()))

	case hooks.RunCompleteMsg:
		rep := msg.Report
		m.finalReport = &rep
		m.rendered = rep.Summary.RenderedCount
		m.failed = rep.Summary.ErrorCount
		switch {
		case rep.Summary.FatalErrorOccurred:
			m.phaseMessage = "Failed"
			m.fatalError = "Run halted: too many consecutive failures"
			if rep.Summary.RenderedCount == 0 && len(rep.Errors) == 0 {
				m.fatalError = "Run halted during preparation"
			}
		case rep.Summary.Cancelled:
			m.phaseMessage = "Cancelled"
		default:
			m.phaseMessage = "Complete"
		}
	}

	return m, tea.Batch(cmds...)
}

// View renders the batch progress screen.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return "Preparing..."
	}

	headerLeft := "Atlas Reporter"
	headerRight := m.phaseMessage
	if m.finalReport == nil {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	headerGap := ""
	if w := m.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight); w > 0 {
		headerGap = lipgloss.PlaceHorizontal(w, lipgloss.Center, " ")
	}
	header := HeaderStyle.Width(m.width).Render(
		lipgloss.JoinHorizontal(lipgloss.Top, headerLeft, headerGap, headerRight))

	bar := lipgloss.NewStyle().Padding(0, 2).Render(m.progress.View())

	elapsed := time.Since(m.startTime).Round(time.Millisecond)
	footerLeft := fmt.Sprintf(
		"Pages: %d/%d | Rendered: %d | Failed: %d | Elapsed: %s",
		m.attempted, m.total, m.rendered, m.failed, elapsed,
	)
	footerRight := "q: quit"
	footerGap := ""
	if w := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight); w > 0 {
		footerGap = lipgloss.PlaceHorizontal(w, lipgloss.Center, " ")
	}
	footer := FooterStyle.Width(m.width).Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, footerLeft, footerGap, footerRight))

	errorView := ""
	if m.fatalError != "" {
		errorView = StatusStyleFailed.Render(m.fatalError) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		bar,
		m.list.View(),
		errorView,
		footer,
	)
}

// percent reports batch completion as a 0..1 fraction.
func (m *Model) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.attempted) / float64(m.total)
}

// syncList pushes the accumulated record items into the list component.
func (m *Model) syncList() tea.Cmd {
	items := make([]list.Item, len(m.items))
	for i, item := range m.items {
		items[i] = item
	}
	return m.list.SetItems(items)
}

// Attempted exposes the attempt counter for tests.
func (m *Model) Attempted() int { return m.attempted }

// Summary exposes the tallied counts for tests.
func (m *Model) Summary() (total, rendered, failed int) {
	return m.total, m.rendered, m.failed
}

// FilterValue implements the list.Item interface.
func (i recordItem) FilterValue() string { return i.name }

// Title implements the list.Item interface.
func (i recordItem) Title() string { return fmt.Sprintf("%d. %s", i.index, i.name) }

// Description implements the list.Item interface.
func (i recordItem) Description() string {
	var style lipgloss.Style
	icon := " "
	switch i.status {
	case report.StatusSuccess:
		style = StatusStyleSuccess
		icon = "✓"
	case report.StatusFailed:
		style = StatusStyleFailed
		icon = "✗"
	case report.StatusSkipped:
		style = StatusStyleSkipped
		icon = "S"
	case report.StatusRendering:
		style = StatusStyleRendering
		icon = "…"
	default:
		style = StatusStylePending
	}

	details := ""
	switch i.status {
	case report.StatusFailed:
		details = i.message
	case report.StatusSuccess:
		details = i.message // output path
	}
	return fmt.Sprintf("%s %s", style.Render(fmt.Sprintf("[%s]", icon)), details)
}

// Colors chosen for contrast on both dark and light terminals.
const (
	ColorHeaderFg = lipgloss.Color("252")
	ColorHeaderBg = lipgloss.Color("24")

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("23")

	ColorNormalFg     = lipgloss.Color("250")
	ColorNormalDescFg = lipgloss.Color("244")

	ColorSelectedFg     = lipgloss.Color("255")
	ColorSelectedBg     = lipgloss.Color("24")
	ColorSelectedDescFg = lipgloss.Color("248")

	ColorStatusSuccess   = lipgloss.Color("40")
	ColorStatusFailed    = lipgloss.Color("196")
	ColorStatusSkipped   = lipgloss.Color("214")
	ColorStatusPending   = lipgloss.Color("244")
	ColorStatusRendering = lipgloss.Color("39")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleSuccess   = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed    = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped   = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStylePending   = lipgloss.NewStyle().Foreground(ColorStatusPending)
	StatusStyleRendering = lipgloss.NewStyle().Foreground(ColorStatusRendering)
)
