package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"ragdesk/internal/adapters/tui/styles"
)

// HelpKeyMap defines key bindings for the help view
type HelpKeyMap struct {
	Close key.Binding
}

var HelpKeys = HelpKeyMap{
	Close: key.NewBinding(
		key.WithKeys("esc", "q", "?"),
		key.WithHelp("esc/q/?", "close"),
	),
}

// HelpModel is the model for the help view
type HelpModel struct {
	ViewState
}

// NewHelpModel creates a new help view model
func NewHelpModel() *HelpModel {
	return &HelpModel{}
}

// Update closes the view on its close keys
func (m *HelpModel) Update(msg tea.Msg) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, HelpKeys.Close) {
		return func() tea.Msg { return CloseHelpMsg{} }
	}
	return nil
}

// View renders the help view
func (m *HelpModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("ragdesk help"))
	b.WriteString("\n\n")

	b.WriteString(styles.InputLabel.Render("Navigation"))
	b.WriteString("\n")
	b.WriteString(helpLine("tab", "Next pane"))
	b.WriteString(helpLine("j / k / ↑ / ↓", "Move up/down"))
	b.WriteString(helpLine("enter", "Select collection / toggle folder / open file"))
	b.WriteString(helpLine("/", "Filter files"))
	b.WriteString("\n")

	b.WriteString(styles.InputLabel.Render("Content"))
	b.WriteString("\n")
	b.WriteString(helpLine("n", "New collection or file"))
	b.WriteString(helpLine("a", "Add page from URL"))
	b.WriteString(helpLine("d", "Delete collection or file"))
	b.WriteString(helpLine("ctrl+s", "Save file"))
	b.WriteString(helpLine("e", "Edit file in $EDITOR"))
	b.WriteString(helpLine("y", "Copy path or source URL"))
	b.WriteString(helpLine("o", "Open source URL in browser"))
	b.WriteString(helpLine("r", "Reload"))
	b.WriteString("\n")

	b.WriteString(styles.InputLabel.Render("Vector sync"))
	b.WriteString("\n")
	b.WriteString(helpLine("s", "Sync selected collection"))
	b.WriteString(helpLine("S", "Reprocess every file"))
	b.WriteString(helpLine("v", "Enable/disable sync"))
	b.WriteString(helpLine("X", "Delete vectors"))
	b.WriteString("\n")

	b.WriteString(styles.InputLabel.Render("General"))
	b.WriteString("\n")
	b.WriteString(helpLine("esc", "Dismiss error / leave editor"))
	b.WriteString(helpLine("?", "Toggle help"))
	b.WriteString(helpLine("q / ctrl+c", "Quit"))
	b.WriteString("\n")

	b.WriteString(styles.HelpDesc.Render("Press "))
	b.WriteString(styles.HelpKey.Render("esc"))
	b.WriteString(styles.HelpDesc.Render(" or "))
	b.WriteString(styles.HelpKey.Render("?"))
	b.WriteString(styles.HelpDesc.Render(" to close"))

	return styles.App.Render(b.String())
}

func helpLine(key, desc string) string {
	return "  " + styles.HelpKey.Render(padRight(key, 20)) + styles.HelpDesc.Render(desc) + "\n"
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}
