package views

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"ragdesk/internal/application"
	"ragdesk/internal/store"
)

// FormModel is the dialog for one of the input modals
type FormModel struct {
	modal  store.Modal
	title  string
	submit string
	form   *InputForm
}

// NewFormModel builds the form for modal. It returns nil for modals that
// are not input forms.
func NewFormModel(modal store.Modal) *FormModel {
	switch m := modal.(type) {
	case store.NewCollectionModal:
		return &FormModel{
			modal:  m,
			title:  "New collection",
			submit: "create",
			form: NewInputForm(
				NewInputField("Name", "docs", 64, application.ValidateCollectionName),
				NewInputField("Description", "optional", 256, nil),
			),
		}
	case store.NewFileModal:
		f := &FormModel{
			modal:  m,
			title:  "New file",
			submit: "create",
			form: NewInputForm(
				NewInputField("Filename", "notes.md", 255, application.ValidateFilename),
				NewInputField("Folder", "optional/sub/folder", 512, application.ValidateFolder),
			),
		}
		f.form.SetValue(1, m.Folder)
		return f
	case store.AddPageModal:
		f := &FormModel{
			modal:  m,
			title:  "Add page",
			submit: "crawl",
			form: NewInputForm(
				NewInputField("URL", "https://example.com/docs", 0, application.ValidateURL),
				NewInputField("Folder", "optional/sub/folder", 512, application.ValidateFolder),
			),
		}
		f.form.SetValue(1, m.Folder)
		return f
	}
	return nil
}

// Matches reports whether the form was built for modal
func (m *FormModel) Matches(modal store.Modal) bool {
	return m != nil && m.modal == modal
}

// Init starts the cursor blink
func (m *FormModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles typing, submit and cancel
func (m *FormModel) Update(msg tea.Msg) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, m.form.Keys.Cancel):
			return func() tea.Msg { return CancelModalMsg{} }
		case key.Matches(km, m.form.Keys.Submit):
			if !m.form.Valid() {
				return nil
			}
			return m.submitCmd()
		}
	}
	return m.form.Update(msg)
}

func (m *FormModel) submitCmd() tea.Cmd {
	first, second := m.form.Value(0), m.form.Value(1)
	var out tea.Msg
	switch m.modal.(type) {
	case store.NewCollectionModal:
		out = SubmitCollectionMsg{Name: first, Description: second}
	case store.NewFileModal:
		out = SubmitFileMsg{Filename: first, Folder: second}
	case store.AddPageModal:
		out = SubmitPageMsg{URL: first, Folder: second}
	default:
		return nil
	}
	return func() tea.Msg { return out }
}

// View renders the dialog
func (m *FormModel) View() string {
	v := NewViewBuilder().Title(m.title)
	for i := range m.form.Fields {
		v.Line(m.form.RenderField(i))
	}
	return v.BlankLine().Line(m.form.RenderHelp(m.submit)).String()
}
