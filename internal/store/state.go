package store

import (
	"ragdesk/internal/domain"
)

// LoadingKey names one of the loading flags
type LoadingKey int

const (
	LoadingCollections LoadingKey = iota
	LoadingFiles
	LoadingFileContent
	LoadingCrawling
	LoadingVectorSync
	LoadingVectorSearch
)

func (k LoadingKey) String() string {
	switch k {
	case LoadingCollections:
		return "collections"
	case LoadingFiles:
		return "files"
	case LoadingFileContent:
		return "file_content"
	case LoadingCrawling:
		return "crawling"
	case LoadingVectorSync:
		return "vector_sync"
	case LoadingVectorSearch:
		return "vector_search"
	default:
		return "unknown"
	}
}

// Loading holds the spinner flags of in-flight operations
type Loading struct {
	Collections  bool
	Files        bool
	FileContent  bool
	Crawling     bool
	VectorSync   bool
	VectorSearch bool
}

// Get returns the flag for key
func (l Loading) Get(key LoadingKey) bool {
	switch key {
	case LoadingCollections:
		return l.Collections
	case LoadingFiles:
		return l.Files
	case LoadingFileContent:
		return l.FileContent
	case LoadingCrawling:
		return l.Crawling
	case LoadingVectorSync:
		return l.VectorSync
	case LoadingVectorSearch:
		return l.VectorSearch
	}
	return false
}

func (l Loading) with(key LoadingKey, v bool) Loading {
	switch key {
	case LoadingCollections:
		l.Collections = v
	case LoadingFiles:
		l.Files = v
	case LoadingFileContent:
		l.FileContent = v
	case LoadingCrawling:
		l.Crawling = v
	case LoadingVectorSync:
		l.VectorSync = v
	case LoadingVectorSearch:
		l.VectorSearch = v
	}
	return l
}

// Any reports whether any operation is in flight
func (l Loading) Any() bool {
	return l.Collections || l.Files || l.FileContent || l.Crawling || l.VectorSync || l.VectorSearch
}

// Modal is the dialog currently shown. The set of variants is closed.
type Modal interface {
	modal()
}

// NewCollectionModal asks for a collection name and description
type NewCollectionModal struct{}

// AddPageModal asks for a URL to crawl into the selected collection
type AddPageModal struct {
	Folder string
}

// NewFileModal asks for a file name to create in Folder
type NewFileModal struct {
	Folder string
}

// DeleteConfirmationModal asks to confirm deleting Target
type DeleteConfirmationModal struct {
	Target DeleteTarget
}

func (NewCollectionModal) modal()      {}
func (AddPageModal) modal()            {}
func (NewFileModal) modal()            {}
func (DeleteConfirmationModal) modal() {}

// TargetKind is the kind of entity a delete confirmation refers to
type TargetKind int

const (
	TargetCollection TargetKind = iota
	TargetFile
)

// DeleteTarget identifies the entity to delete
type DeleteTarget struct {
	Kind       TargetKind
	Collection string
	Name       string
	Folder     string
}

// State is the complete client state. Values are treated as immutable:
// the reducer copies any slice or map it changes.
type State struct {
	Collections        []domain.Collection
	SelectedCollection string // "" when none is selected
	Files              []domain.FileNode
	Folders            []domain.Folder
	ExpandedPaths      map[string]bool
	SearchTerm         string

	Editor domain.EditorBuffer

	Loading Loading
	Saving  bool
	Error   string
	Modal   Modal // nil when closed

	SyncStatuses map[string]domain.VectorSyncStatus
}

// Collection returns the named collection
func (s State) Collection(name string) (domain.Collection, bool) {
	for _, c := range s.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return domain.Collection{}, false
}

// SyncStatus returns the known sync status of a collection
func (s State) SyncStatus(name string) (domain.VectorSyncStatus, bool) {
	st, ok := s.SyncStatuses[name]
	return st, ok
}

// Tree builds the visible file tree for the selected collection,
// applying the current search term.
func (s State) Tree() []*domain.TreeNode {
	return domain.FilterTree(domain.BuildTree(s.Files, s.ExpandedPaths), s.SearchTerm)
}

// DeleteConfirmation returns the pending delete target, if any
func (s State) DeleteConfirmation() (DeleteTarget, bool) {
	if m, ok := s.Modal.(DeleteConfirmationModal); ok {
		return m.Target, true
	}
	return DeleteTarget{}, false
}
