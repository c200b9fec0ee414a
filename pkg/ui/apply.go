package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erotemic/supersetup/pkg/registry"
)

// eventMsg carries one registry progress event into the model.
type eventMsg registry.Event

// completeMsg signals that the apply run finished.
type completeMsg struct {
	report *registry.RunReport
}

// applyRow tracks one repo's progress in the table.
type applyRow struct {
	name    string
	started bool
	done    bool
	outcome registry.Outcome
	err     error
}

// ApplyModel is a Bubble Tea model showing per-repo apply progress.
type ApplyModel struct {
	op      registry.Operation
	rows    []applyRow
	index   map[string]int
	spinner spinner.Model

	start     func(registry.Callback) *registry.RunReport
	cancel    func()
	eventChan chan registry.Event

	report   *registry.RunReport
	done     bool
	quitting bool
}

// NewApplyModel builds a progress model for the named repos. start runs the
// apply with the given callback and returns its report; cancel aborts the
// underlying context when the user quits early.
func NewApplyModel(op registry.Operation, repoNames []string,
	start func(registry.Callback) *registry.RunReport, cancel func()) ApplyModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	rows := make([]applyRow, len(repoNames))
	index := make(map[string]int, len(repoNames))
	for i, name := range repoNames {
		rows[i] = applyRow{name: name}
		index[name] = i
	}

	return ApplyModel{
		op:        op,
		rows:      rows,
		index:     index,
		spinner:   s,
		start:     start,
		cancel:    cancel,
		eventChan: make(chan registry.Event, 64),
	}
}

// Init starts the spinner, the apply run, and the event pump.
func (m ApplyModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startApply(), m.waitForEvent())
}

func (m ApplyModel) startApply() tea.Cmd {
	return func() tea.Msg {
		report := m.start(func(e registry.Event) {
			m.eventChan <- e
		})
		close(m.eventChan)
		return completeMsg{report: report}
	}
}

func (m ApplyModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.eventChan
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

// Update handles progress events, spinner ticks, and quit keys.
func (m ApplyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		m.applyEvent(registry.Event(msg))
		return m, m.waitForEvent()

	case completeMsg:
		m.report = msg.report
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *ApplyModel) applyEvent(e registry.Event) {
	idx, ok := m.index[e.Repo]
	if !ok {
		return
	}
	switch e.Stage {
	case registry.StageRepo:
		m.rows[idx].started = true
	case registry.StageRepoDone:
		m.rows[idx].done = true
		m.rows[idx].outcome = e.Outcome
		m.rows[idx].err = e.Err
	}
}

// View renders the per-repo progress table.
func (m ApplyModel) View() string {
	var b strings.Builder
	b.WriteString(Banner(fmt.Sprintf("APPLY %s", m.op)) + "\n\n")

	for _, row := range m.rows {
		b.WriteString("  " + m.rowView(row) + "\n")
	}

	if m.done && m.report != nil {
		ok, skipped, failed := m.report.Counts()
		b.WriteString("\n" + DimStyle.Render(fmt.Sprintf(
			"%d ok, %d skipped, %d failed in %s",
			ok, skipped, failed, m.report.Duration.Round(timeRounding))) + "\n")
	} else if m.quitting {
		b.WriteString("\n" + SkipStyle.Render("cancelling...") + "\n")
	}
	return b.String()
}

func (m ApplyModel) rowView(row applyRow) string {
	switch {
	case !row.started:
		return DimStyle.Render("· " + row.name)
	case !row.done:
		return m.spinner.View() + " " + row.name
	}
	switch row.outcome {
	case registry.OutcomeOK:
		return SuccessStyle.Render("✓") + " " + row.name
	case registry.OutcomeSkipped:
		return SkipStyle.Render("~") + " " + row.name + DimStyle.Render(" (dirty, skipped)")
	default:
		msg := ""
		if row.err != nil {
			msg = DimStyle.Render(" " + row.err.Error())
		}
		return ErrorStyle.Render("✗") + " " + row.name + msg
	}
}

// Report returns the finished run report, or nil if the run was cancelled.
func (m ApplyModel) Report() *registry.RunReport {
	return m.report
}

// RunInteractive drives the model in a terminal and returns the run report.
func RunInteractive(model ApplyModel) (*registry.RunReport, error) {
	p := tea.NewProgram(model)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}
	m, ok := final.(ApplyModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	return m.Report(), nil
}
