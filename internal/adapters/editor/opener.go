// Package editor runs the user's editor on scratch copies of stored files.
package editor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoEditor is returned when no editor is configured or installed
var ErrNoEditor = errors.New("no editor found: set $EDITOR or the editor config key")

// Opener implements ports.EditorOpener
type Opener struct {
	preferred string
	getenv    func(string) string
	lookPath  func(string) (string, error)
}

// NewOpener creates an opener. A non-empty preferred editor wins over the
// environment.
func NewOpener(preferred string) *Opener {
	return &Opener{
		preferred: preferred,
		getenv:    os.Getenv,
		lookPath:  exec.LookPath,
	}
}

// Command returns an exec.Cmd for editing path. Editor values may carry
// arguments, e.g. "code --wait".
func (o *Opener) Command(path string) (*exec.Cmd, error) {
	editor := o.findEditor()
	if editor == "" {
		return nil, ErrNoEditor
	}

	args := strings.Fields(editor)
	cmd := exec.Command(args[0], append(args[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// findEditor returns the editor to use
func (o *Opener) findEditor() string {
	if strings.TrimSpace(o.preferred) != "" {
		return o.preferred
	}
	if editor := o.getenv("EDITOR"); editor != "" {
		return editor
	}
	if visual := o.getenv("VISUAL"); visual != "" {
		return visual
	}

	for _, editor := range []string{"nvim", "vim", "vi", "nano"} {
		if path, err := o.lookPath(editor); err == nil {
			return path
		}
	}
	return ""
}

// WriteScratch writes content to a temporary file named after the stored
// file, so the editor picks the right syntax mode.
func WriteScratch(filename, content string) (string, error) {
	pattern := "ragdesk-*-" + filepath.Base(filename)
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// ReadScratch returns the edited content and removes the scratch file
func ReadScratch(path string) (string, error) {
	defer os.Remove(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read scratch file: %w", err)
	}
	return string(data), nil
}
