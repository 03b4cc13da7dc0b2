package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"ragdesk/internal/adapters/tui/styles"
	"ragdesk/internal/domain"
	"ragdesk/internal/store"
)

// ConfirmKeyMap defines key bindings for confirmation views
type ConfirmKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultConfirmKeys returns the default confirmation key bindings
var DefaultConfirmKeys = ConfirmKeyMap{
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
}

// ConfirmDeleteMsg asks the app to delete Target
type ConfirmDeleteMsg struct {
	Target store.DeleteTarget
}

// ConfirmationModel asks before a collection or file is deleted
type ConfirmationModel struct {
	ViewState
	Target store.DeleteTarget
	Keys   ConfirmKeyMap
}

// NewConfirmationModel creates a confirmation for target
func NewConfirmationModel(target store.DeleteTarget) *ConfirmationModel {
	return &ConfirmationModel{
		Target: target,
		Keys:   DefaultConfirmKeys,
	}
}

// Update handles the confirm and cancel keys
func (m *ConfirmationModel) Update(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch {
	case key.Matches(km, m.Keys.Cancel):
		return func() tea.Msg { return CancelModalMsg{} }
	case key.Matches(km, m.Keys.Confirm):
		target := m.Target
		return func() tea.Msg { return ConfirmDeleteMsg{Target: target} }
	}
	return nil
}

// View renders the dialog
func (m *ConfirmationModel) View() string {
	return NewViewBuilder().
		Title("Delete").
		Line(RenderTargetInfo(m.Target)).
		BlankLine().
		Line(RenderConfirmPrompt("This cannot be undone. Continue?")).
		String()
}

// RenderConfirmPrompt renders the standard confirmation prompt
func RenderConfirmPrompt(question string) string {
	var b strings.Builder
	b.WriteString(question)
	b.WriteString(" ")
	b.WriteString(styles.HelpKey.Render("y"))
	b.WriteString(styles.HelpDesc.Render(" to confirm, "))
	b.WriteString(styles.HelpKey.Render("n"))
	b.WriteString(styles.HelpDesc.Render(" to cancel"))
	return b.String()
}

// RenderTargetInfo describes the entity about to be deleted
func RenderTargetInfo(t store.DeleteTarget) string {
	var b strings.Builder
	switch t.Kind {
	case store.TargetCollection:
		b.WriteString(styles.InputLabel.Render("Collection:"))
		b.WriteString("\n  ")
		b.WriteString(t.Collection)
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("  all files and vectors are removed"))
	case store.TargetFile:
		b.WriteString(styles.InputLabel.Render("File:"))
		b.WriteString("\n  ")
		b.WriteString(t.Collection)
		b.WriteString("/")
		b.WriteString(domain.FilePath(t.Folder, t.Name))
	}
	return b.String()
}
