package store

import (
	"errors"
	"fmt"
	"maps"
	"path"
	"slices"

	"ragdesk/internal/domain"
)

// ErrUnknownAction is returned by Reduce for actions it does not handle
var ErrUnknownAction = errors.New("unknown action")

// Reduce applies a to s. It performs no I/O and never modifies s; any
// slice or map that changes is copied.
func Reduce(s State, a Action) (State, error) {
	switch a := a.(type) {
	case SetCollections:
		s.Collections = slices.Clone(a.Collections)

	case AddCollection:
		s.Collections = upsertCollection(s.Collections, a.Collection)

	case RemoveCollection:
		s.Collections = slices.DeleteFunc(slices.Clone(s.Collections), func(c domain.Collection) bool {
			return c.Name == a.Name
		})
		if _, ok := s.SyncStatuses[a.Name]; ok {
			s.SyncStatuses = maps.Clone(s.SyncStatuses)
			delete(s.SyncStatuses, a.Name)
		}
		if s.SelectedCollection == a.Name {
			s.SelectedCollection = ""
			s.Files = nil
			s.Folders = nil
			s.ExpandedPaths = nil
			s.SearchTerm = ""
			s.Editor = domain.EditorBuffer{}
		}

	case SelectCollection:
		s.SelectedCollection = a.Name

	case SetFiles:
		s.Files = slices.Clone(a.Files)
		s.Folders = slices.Clone(a.Folders)

	case AddFile:
		s = addFile(s, a)

	case RemoveFile:
		s = removeFile(s, a)

	case OpenFile:
		if a.Path == "" {
			s.Editor = domain.EditorBuffer{}
			break
		}
		s.Editor = domain.EditorBuffer{
			FilePath: a.Path,
			Content:  a.Content,
			Original: a.Content,
		}

	case UpdateContent:
		if !s.Editor.IsOpen() {
			break
		}
		s.Editor.Content = a.Content
		s.Editor.Modified = a.Content != s.Editor.Original

	case CloseFile:
		s.Editor = domain.EditorBuffer{}

	case SaveSuccess:
		if s.Editor.FilePath != a.Path {
			break
		}
		s.Editor.Original = a.Content
		s.Editor.Modified = s.Editor.Content != a.Content

	case SetSaving:
		s.Saving = a.Saving
		s.Editor.Saving = a.Saving && s.Editor.IsOpen()

	case SetLoading:
		s.Loading = s.Loading.with(a.Key, a.Value)

	case SetError:
		s.Error = a.Message

	case ClearError:
		s.Error = ""

	case OpenModal:
		s.Modal = a.Modal

	case CloseModal:
		s.Modal = nil

	case OpenDeleteConfirmation:
		s.Modal = DeleteConfirmationModal{Target: a.Target}

	case CloseDeleteConfirmation:
		if _, ok := s.Modal.(DeleteConfirmationModal); ok {
			s.Modal = nil
		}

	case SetVectorSyncStatus:
		statuses := make(map[string]domain.VectorSyncStatus, len(s.SyncStatuses)+1)
		maps.Copy(statuses, s.SyncStatuses)
		statuses[a.Collection] = a.Status.Clone().Normalize()
		s.SyncStatuses = statuses

	case SetVectorSyncStatuses:
		statuses := make(map[string]domain.VectorSyncStatus, len(a.Statuses))
		for name, st := range a.Statuses {
			statuses[name] = st.Clone().Normalize()
		}
		s.SyncStatuses = statuses

	case ToggleFolder:
		expanded := maps.Clone(s.ExpandedPaths)
		if expanded == nil {
			expanded = make(map[string]bool)
		}
		if expanded[a.Path] {
			delete(expanded, a.Path)
		} else {
			expanded[a.Path] = true
		}
		s.ExpandedPaths = expanded

	case SetSearchTerm:
		s.SearchTerm = a.Term

	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
	return s, nil
}

func upsertCollection(list []domain.Collection, c domain.Collection) []domain.Collection {
	out := slices.Clone(list)
	for i := range out {
		if out[i].Name == c.Name {
			out[i] = c
			return out
		}
	}
	return append(out, c)
}

// adjustFileCount changes the optimistic file count of a collection
func adjustFileCount(list []domain.Collection, name string, delta int, size int64) []domain.Collection {
	i := slices.IndexFunc(list, func(c domain.Collection) bool { return c.Name == name })
	if i < 0 {
		return list
	}
	out := slices.Clone(list)
	out[i].FileCount = max(0, out[i].FileCount+delta)
	out[i].Metadata.TotalSize = max(0, out[i].Metadata.TotalSize+size)
	return out
}

func addFile(s State, a AddFile) State {
	if a.File.Path == "" {
		return s
	}
	isNew := true
	if a.Collection == s.SelectedCollection {
		files := slices.Clone(s.Files)
		if i := slices.IndexFunc(files, func(f domain.FileNode) bool { return f.Path == a.File.Path }); i >= 0 {
			files[i] = a.File
			isNew = false
		} else {
			files = append(files, a.File)
		}
		s.Files = files

		if folder := a.File.Metadata.FolderPath; folder != "" &&
			!slices.ContainsFunc(s.Folders, func(f domain.Folder) bool { return f.Path == folder }) {
			s.Folders = append(slices.Clone(s.Folders), domain.Folder{Name: path.Base(folder), Path: folder})
		}
	}
	if isNew {
		s.Collections = adjustFileCount(s.Collections, a.Collection, 1, a.File.Metadata.Size)
	}
	return s
}

func removeFile(s State, a RemoveFile) State {
	var size int64
	if a.Collection == s.SelectedCollection {
		i := slices.IndexFunc(s.Files, func(f domain.FileNode) bool { return f.Path == a.Path })
		if i < 0 {
			return s
		}
		size = s.Files[i].Metadata.Size
		s.Files = slices.Delete(slices.Clone(s.Files), i, i+1)
		if s.Editor.FilePath == a.Path {
			s.Editor = domain.EditorBuffer{}
		}
	}
	s.Collections = adjustFileCount(s.Collections, a.Collection, -1, -size)
	return s
}
