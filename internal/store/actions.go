package store

import "ragdesk/internal/domain"

// Action is a state transition request. The set of actions is closed:
// only types declared in this package implement it.
type Action interface {
	action()
}

// SetCollections replaces the collection list
type SetCollections struct {
	Collections []domain.Collection
}

// AddCollection inserts or replaces a collection
type AddCollection struct {
	Collection domain.Collection
}

// RemoveCollection deletes a collection and everything that refers to it
type RemoveCollection struct {
	Name string
}

// SelectCollection changes the selected collection ("" for none).
// Callers clear stale files with SetFiles.
type SelectCollection struct {
	Name string
}

// SetFiles replaces the file listing of the selected collection
type SetFiles struct {
	Files   []domain.FileNode
	Folders []domain.Folder
}

// AddFile records a file created in Collection
type AddFile struct {
	Collection string
	File       domain.FileNode
}

// RemoveFile records a file deleted from Collection
type RemoveFile struct {
	Collection string
	Path       string
}

// OpenFile replaces the editor buffer
type OpenFile struct {
	Path    string
	Content string
}

// UpdateContent edits the open buffer
type UpdateContent struct {
	Content string
}

// CloseFile empties the editor
type CloseFile struct{}

// SaveSuccess records that Content was persisted for Path
type SaveSuccess struct {
	Path    string
	Content string
}

// SetSaving toggles the saving flags
type SetSaving struct {
	Saving bool
}

// SetLoading toggles one loading flag
type SetLoading struct {
	Key   LoadingKey
	Value bool
}

// SetError sets the error banner
type SetError struct {
	Message string
}

// ClearError dismisses the error banner
type ClearError struct{}

// OpenModal shows a dialog, replacing any open one
type OpenModal struct {
	Modal Modal
}

// CloseModal hides the current dialog
type CloseModal struct{}

// OpenDeleteConfirmation asks to confirm deleting Target
type OpenDeleteConfirmation struct {
	Target DeleteTarget
}

// CloseDeleteConfirmation hides a delete confirmation, leaving other dialogs open
type CloseDeleteConfirmation struct{}

// SetVectorSyncStatus replaces the sync status of one collection
type SetVectorSyncStatus struct {
	Collection string
	Status     domain.VectorSyncStatus
}

// SetVectorSyncStatuses replaces all sync statuses
type SetVectorSyncStatuses struct {
	Statuses map[string]domain.VectorSyncStatus
}

// ToggleFolder expands or collapses a folder in the tree
type ToggleFolder struct {
	Path string
}

// SetSearchTerm filters the file tree
type SetSearchTerm struct {
	Term string
}

func (SetCollections) action()          {}
func (AddCollection) action()           {}
func (RemoveCollection) action()        {}
func (SelectCollection) action()        {}
func (SetFiles) action()                {}
func (AddFile) action()                 {}
func (RemoveFile) action()              {}
func (OpenFile) action()                {}
func (UpdateContent) action()           {}
func (CloseFile) action()               {}
func (SaveSuccess) action()             {}
func (SetSaving) action()               {}
func (SetLoading) action()              {}
func (SetError) action()                {}
func (ClearError) action()              {}
func (OpenModal) action()               {}
func (CloseModal) action()              {}
func (OpenDeleteConfirmation) action()  {}
func (CloseDeleteConfirmation) action() {}
func (SetVectorSyncStatus) action()     {}
func (SetVectorSyncStatuses) action()   {}
func (ToggleFolder) action()            {}
func (SetSearchTerm) action()           {}
