package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"ragdesk/internal/adapters/tui/styles"
	"ragdesk/internal/application"
)

// InputFormKeyMap defines key bindings for input forms
type InputFormKeyMap struct {
	Submit key.Binding
	Cancel key.Binding
	Next   key.Binding
	Prev   key.Binding
}

// DefaultInputFormKeys returns the default input form key bindings
var DefaultInputFormKeys = InputFormKeyMap{
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "up")),
}

// InputField is a labelled text input with an optional validator
type InputField struct {
	Label    string
	Input    textinput.Model
	Validate func(string) error
	err      string
}

// InputForm manages multiple text input fields with focus handling
type InputForm struct {
	Fields  []InputField
	Focused int
	Keys    InputFormKeyMap
}

// NewInputForm creates a form focused on its first field
func NewInputForm(fields ...InputField) *InputForm {
	form := &InputForm{Fields: fields, Keys: DefaultInputFormKeys}
	if len(fields) > 0 {
		form.Fields[0].Input.Focus()
	}
	return form
}

// NewInputField creates a field. A nil validate accepts any value.
func NewInputField(label, placeholder string, charLimit int, validate func(string) error) InputField {
	input := textinput.New()
	input.Placeholder = placeholder
	if charLimit > 0 {
		input.CharLimit = charLimit
	}
	return InputField{Label: label, Input: input, Validate: validate}
}

// Init returns the blink command for the focused input
func (f *InputForm) Init() tea.Cmd {
	return textinput.Blink
}

// Update moves focus or types into the focused field. A field's error is
// cleared as soon as it is edited.
func (f *InputForm) Update(msg tea.Msg) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, f.Keys.Next):
			f.focus(f.Focused + 1)
			return nil
		case key.Matches(km, f.Keys.Prev):
			f.focus(f.Focused - 1)
			return nil
		}
	}
	if f.Focused < 0 || f.Focused >= len(f.Fields) {
		return nil
	}
	field := &f.Fields[f.Focused]
	before := field.Input.Value()
	var cmd tea.Cmd
	field.Input, cmd = field.Input.Update(msg)
	if field.Input.Value() != before {
		field.err = ""
	}
	return cmd
}

// focus wraps around the field list
func (f *InputForm) focus(index int) {
	n := len(f.Fields)
	if n <= 1 {
		return
	}
	f.Fields[f.Focused].Input.Blur()
	f.Focused = (index%n + n) % n
	f.Fields[f.Focused].Input.Focus()
}

// Valid runs every validator, records the messages and focuses the first
// invalid field
func (f *InputForm) Valid() bool {
	first := -1
	for i := range f.Fields {
		field := &f.Fields[i]
		field.err = ""
		if field.Validate == nil {
			continue
		}
		if err := field.Validate(f.Value(i)); err != nil {
			field.err = application.UserMessage(err)
			if first < 0 {
				first = i
			}
		}
	}
	if first >= 0 && first != f.Focused {
		f.Fields[f.Focused].Input.Blur()
		f.Focused = first
		f.Fields[first].Input.Focus()
	}
	return first < 0
}

// Error returns the validation message of a field
func (f *InputForm) Error(index int) string {
	if index < 0 || index >= len(f.Fields) {
		return ""
	}
	return f.Fields[index].err
}

// Value returns the trimmed value of a field by index
func (f *InputForm) Value(index int) string {
	if index < 0 || index >= len(f.Fields) {
		return ""
	}
	return strings.TrimSpace(f.Fields[index].Input.Value())
}

// SetValue sets the value of a field by index
func (f *InputForm) SetValue(index int, value string) {
	if index < 0 || index >= len(f.Fields) {
		return
	}
	f.Fields[index].Input.SetValue(value)
}

// RenderField renders a field with its label and any validation message
func (f *InputForm) RenderField(index int) string {
	if index < 0 || index >= len(f.Fields) {
		return ""
	}
	field := f.Fields[index]
	var b strings.Builder
	b.WriteString(styles.InputLabel.Render(field.Label))
	b.WriteString("\n")
	if index == f.Focused {
		b.WriteString(styles.InputFocused.Render(field.Input.View()))
	} else {
		b.WriteString(styles.InputField.Render(field.Input.View()))
	}
	if field.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorMsg.Render(field.err))
	}
	return b.String()
}

// RenderHelp renders the key hints of the form
func (f *InputForm) RenderHelp(submitText string) string {
	var parts []string
	if len(f.Fields) > 1 {
		parts = append(parts, styles.HelpKey.Render("tab")+" "+styles.HelpDesc.Render("next field"))
	}
	parts = append(parts, styles.HelpKey.Render("enter")+" "+styles.HelpDesc.Render(submitText))
	parts = append(parts, styles.HelpKey.Render("esc")+" "+styles.HelpDesc.Render("cancel"))
	return strings.Join(parts, "  ")
}
