package domain

// EditorBuffer is the content of the file currently open for editing.
// Original is the last successfully loaded or saved content.
type EditorBuffer struct {
	FilePath string
	Content  string
	Original string
	Modified bool
	Saving   bool
}

// IsOpen reports whether a file is loaded in the buffer
func (b EditorBuffer) IsOpen() bool {
	return b.FilePath != ""
}
