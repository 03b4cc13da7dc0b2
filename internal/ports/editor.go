package ports

import "os/exec"

// EditorOpener builds the command that edits a file in an external editor
type EditorOpener interface {
	// Command returns an exec.Cmd that edits path. The TUI runs it with
	// tea.ExecProcess so the editor gets the terminal.
	Command(path string) (*exec.Cmd, error)
}

// URLOpener shows a web page outside the terminal
type URLOpener interface {
	Open(rawURL string) error
}
