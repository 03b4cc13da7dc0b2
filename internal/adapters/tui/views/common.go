package views

// ViewState contains common state shared by the view models.
// Embed it to get dimensions and a flash message.
type ViewState struct {
	Width      int
	Height     int
	Message    string
	MessageErr bool
}

// SetSize updates the view dimensions
func (s *ViewState) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// SetMessage sets a message to display in the view
func (s *ViewState) SetMessage(msg string, isErr bool) {
	s.Message = msg
	s.MessageErr = isErr
}

// ClearMessage clears the current message
func (s *ViewState) ClearMessage() {
	s.Message = ""
	s.MessageErr = false
}

// Messages emitted by the views and handled by the app

// SubmitCollectionMsg asks to create a collection
type SubmitCollectionMsg struct {
	Name        string
	Description string
}

// SubmitFileMsg asks to create an empty file
type SubmitFileMsg struct {
	Folder   string
	Filename string
}

// SubmitPageMsg asks to crawl a URL into the selected collection
type SubmitPageMsg struct {
	URL    string
	Folder string
}

// CancelModalMsg closes the open dialog
type CancelModalMsg struct{}

// CloseHelpMsg leaves the help view
type CloseHelpMsg struct{}
