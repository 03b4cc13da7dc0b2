package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the global bindings of the main screen
type keyMap struct {
	Quit         key.Binding
	Help         key.Binding
	NextPane     key.Binding
	Up           key.Binding
	Down         key.Binding
	Enter        key.Binding
	New          key.Binding
	AddPage      key.Binding
	Delete       key.Binding
	Sync         key.Binding
	ForceSync    key.Binding
	ToggleSync   key.Binding
	DeleteVector key.Binding
	Reload       key.Binding
	Filter       key.Binding
	Copy         key.Binding
	Browse       key.Binding
	Edit         key.Binding
	Save         key.Binding
	Back         key.Binding
}

var keys = keyMap{
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	NextPane:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "pane")),
	Up:           key.NewBinding(key.WithKeys("k", "up")),
	Down:         key.NewBinding(key.WithKeys("j", "down")),
	Enter:        key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "open")),
	New:          key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	AddPage:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add page")),
	Delete:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Sync:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
	ForceSync:    key.NewBinding(key.WithKeys("S")),
	ToggleSync:   key.NewBinding(key.WithKeys("v")),
	DeleteVector: key.NewBinding(key.WithKeys("X")),
	Reload:       key.NewBinding(key.WithKeys("r")),
	Filter:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Copy:         key.NewBinding(key.WithKeys("y")),
	Browse:       key.NewBinding(key.WithKeys("o")),
	Edit:         key.NewBinding(key.WithKeys("e", "ctrl+e"), key.WithHelp("e", "$EDITOR")),
	Save:         key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
}
