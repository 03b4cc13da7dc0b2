package views

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"ragdesk/internal/adapters/tui/styles"
)

// filterDelay is how long typing must pause before the tree is filtered
const filterDelay = 250 * time.Millisecond

// FilterChangedMsg carries a settled filter term
type FilterChangedMsg struct {
	Term string
}

type filterTickMsg struct {
	gen uint64
}

// FilterModel is the debounced file filter input. Each keystroke starts
// a new delay; only the tick of the latest keystroke applies the term.
type FilterModel struct {
	input   textinput.Model
	gen     uint64
	applied string
	active  bool
	delay   time.Duration
}

// NewFilterModel creates an inactive filter
func NewFilterModel() *FilterModel {
	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "filter files"
	return &FilterModel{input: input, delay: filterDelay}
}

// Active reports whether the input has focus
func (m *FilterModel) Active() bool {
	return m.active
}

// Term is the text currently typed
func (m *FilterModel) Term() string {
	return m.input.Value()
}

// Activate focuses the input, starting from term
func (m *FilterModel) Activate(term string) tea.Cmd {
	m.active = true
	m.applied = term
	m.input.SetValue(term)
	m.input.CursorEnd()
	return m.input.Focus()
}

// Deactivate blurs the input, keeping the applied term
func (m *FilterModel) Deactivate() {
	m.active = false
	m.input.Blur()
}

// Update handles keys while active and the debounce ticks
func (m *FilterModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case filterTickMsg:
		if msg.gen != m.gen {
			return nil
		}
		return m.apply()

	case tea.KeyMsg:
		if !m.active {
			return nil
		}
		switch msg.String() {
		case "enter":
			m.Deactivate()
			m.gen++
			return m.apply()
		case "esc":
			m.Deactivate()
			m.gen++
			m.input.SetValue("")
			return m.apply()
		}
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() == before {
			return cmd
		}
		m.gen++
		gen := m.gen
		tick := tea.Tick(m.delay, func(time.Time) tea.Msg { return filterTickMsg{gen: gen} })
		return tea.Batch(cmd, tick)
	}
	return nil
}

func (m *FilterModel) apply() tea.Cmd {
	term := m.input.Value()
	if term == m.applied {
		return nil
	}
	m.applied = term
	return func() tea.Msg { return FilterChangedMsg{Term: term} }
}

// View renders the input, or the applied term when inactive
func (m *FilterModel) View() string {
	if m.active {
		return m.input.View()
	}
	if m.applied != "" {
		return styles.MutedText.Render("filter: " + m.applied)
	}
	return ""
}
