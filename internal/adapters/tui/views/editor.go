package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sergi/go-diff/diffmatchpatch"

	"ragdesk/internal/adapters/tui/styles"
	"ragdesk/internal/domain"
)

// EditorModel edits the open file buffer
type EditorModel struct {
	ViewState
	area textarea.Model
	path string
}

// NewEditorModel creates the editor pane
func NewEditorModel() *EditorModel {
	area := textarea.New()
	area.CharLimit = 0
	area.MaxHeight = 0
	area.ShowLineNumbers = true
	area.Placeholder = "Select a file to edit"
	return &EditorModel{area: area}
}

// Sync loads the buffer into the text area when another file was opened
// or the content changed outside the editor.
func (m *EditorModel) Sync(buf domain.EditorBuffer) {
	if buf.FilePath != m.path || buf.Content != m.area.Value() {
		m.path = buf.FilePath
		m.area.SetValue(buf.Content)
	}
}

// Focus gives the text area keyboard focus
func (m *EditorModel) Focus() tea.Cmd {
	return m.area.Focus()
}

// Blur removes keyboard focus
func (m *EditorModel) Blur() {
	m.area.Blur()
}

// Update forwards msg to the text area. It reports the new content when
// the edit changed it.
func (m *EditorModel) Update(msg tea.Msg) (content string, changed bool, cmd tea.Cmd) {
	before := m.area.Value()
	m.area, cmd = m.area.Update(msg)
	after := m.area.Value()
	return after, after != before, cmd
}

// SetSize updates the pane dimensions
func (m *EditorModel) SetSize(width, height int) {
	m.ViewState.SetSize(width, height)
	m.area.SetWidth(max(width-4, 10))
	m.area.SetHeight(max(height-4, 3))
}

// View renders the pane with a header describing the buffer
func (m *EditorModel) View(buf domain.EditorBuffer, loading, focused bool) string {
	var header string
	switch {
	case !buf.IsOpen():
		header = styles.MutedText.Render("No file open")
	case loading:
		header = styles.Title.Render(buf.FilePath) + " " + styles.MutedText.Render("loading...")
	default:
		header = styles.Title.Render(buf.FilePath)
		if buf.Saving {
			header += " " + styles.MutedText.Render("saving...")
		} else if buf.Modified {
			header += " " + styles.Modified.Render("modified "+DiffSummary(buf.Original, buf.Content))
		}
	}

	style := styles.Pane
	if focused {
		style = styles.PaneFocused
	}
	return style.Render(header + "\n" + m.area.View())
}

// DiffSummary counts added and removed lines between two versions,
// formatted as "+a -r". Identical inputs give "".
func DiffSummary(original, current string) string {
	if original == current {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(original, current)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var added, removed int
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if d.Text != "" && !strings.HasSuffix(d.Text, "\n") {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return fmt.Sprintf("+%d -%d", added, removed)
}
