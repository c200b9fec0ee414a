package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erotemic/supersetup/pkg/registry"
)

func newModel(names ...string) ApplyModel {
	return NewApplyModel(registry.OpPull, names, nil, nil)
}

func TestApplyModel_EventUpdatesRow(t *testing.T) {
	m := newModel("ubelt", "netharn")

	updated, _ := m.Update(eventMsg(registry.Event{
		Stage: registry.StageRepo,
		Repo:  "netharn",
	}))
	m = updated.(ApplyModel)

	assert.False(t, m.rows[0].started)
	assert.True(t, m.rows[1].started)
}

func TestApplyModel_RepoDoneRecordsOutcome(t *testing.T) {
	m := newModel("ubelt")

	updated, _ := m.Update(eventMsg(registry.Event{
		Stage:   registry.StageRepo,
		Repo:    "ubelt",
	}))
	m = updated.(ApplyModel)
	updated, _ = m.Update(eventMsg(registry.Event{
		Stage:   registry.StageRepoDone,
		Repo:    "ubelt",
		Outcome: registry.OutcomeSkipped,
	}))
	m = updated.(ApplyModel)

	require.True(t, m.rows[0].done)
	assert.Equal(t, registry.OutcomeSkipped, m.rows[0].outcome)
	assert.Contains(t, m.View(), "dirty, skipped")
}

func TestApplyModel_UnknownRepoEventIgnored(t *testing.T) {
	m := newModel("ubelt")

	updated, _ := m.Update(eventMsg(registry.Event{
		Stage: registry.StageRepo,
		Repo:  "stranger",
	}))
	m = updated.(ApplyModel)

	assert.False(t, m.rows[0].started)
}

func TestApplyModel_CompleteQuits(t *testing.T) {
	m := newModel("ubelt")
	rep := &registry.RunReport{}

	updated, cmd := m.Update(completeMsg{report: rep})
	m = updated.(ApplyModel)

	assert.True(t, m.done)
	assert.Equal(t, rep, m.Report())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApplyModel_CtrlCCancels(t *testing.T) {
	cancelled := false
	m := NewApplyModel(registry.OpPull, []string{"ubelt"}, nil, func() {
		cancelled = true
	})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ApplyModel)

	assert.True(t, m.quitting)
	assert.True(t, cancelled)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApplyModel_ViewListsRepos(t *testing.T) {
	m := newModel("ubelt", "xdoctest", "netharn")

	view := m.View()

	assert.Contains(t, view, "APPLY pull")
	assert.Contains(t, view, "ubelt")
	assert.Contains(t, view, "xdoctest")
	assert.Contains(t, view, "netharn")
}

func TestPlainPrinter_RendersLifecycle(t *testing.T) {
	var buf strings.Builder
	cb := NewPlainPrinter(&buf).Callback()

	cb(registry.Event{Stage: registry.StageStart, Message: "apply pull"})
	cb(registry.Event{Stage: registry.StageRepo, Repo: "ubelt"})
	cb(registry.Event{Stage: registry.StageRepoDone, Repo: "ubelt",
		Outcome: registry.OutcomeOK, Message: "ubelt ok"})
	cb(registry.Event{Stage: registry.StageDone, Message: "finished pull"})

	out := buf.String()
	assert.Contains(t, out, "apply pull")
	assert.Contains(t, out, "REPO = ubelt")
	assert.Contains(t, out, "ubelt ok")
	assert.Contains(t, out, "finished pull")
}
