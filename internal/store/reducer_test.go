package store

import (
	"errors"
	"maps"
	"reflect"
	"slices"
	"testing"
	"time"

	"ragdesk/internal/domain"
)

func file(folder, name string, size int64) domain.FileNode {
	return domain.NewFileNode(domain.FileMetadata{Filename: name, FolderPath: folder, Size: size})
}

func progress(p float64) *float64 {
	return &p
}

// populatedState returns a state where every field is set, so purity
// checks see every slice and map the reducer could touch.
func populatedState() State {
	return State{
		Collections: []domain.Collection{
			{Name: "docs", FileCount: 2, Folders: []string{"guides"}, Metadata: domain.CollectionMetadata{TotalSize: 30, Extra: map[string]any{"k": "v"}}},
			{Name: "web", FileCount: 0},
		},
		SelectedCollection: "docs",
		Files:              []domain.FileNode{file("guides", "a.md", 10), file("", "b.md", 20)},
		Folders:            []domain.Folder{{Name: "guides", Path: "guides"}},
		ExpandedPaths:      map[string]bool{"guides": true},
		SearchTerm:         "a",
		Editor:             domain.EditorBuffer{FilePath: "guides/a.md", Content: "x", Original: "x"},
		Loading:            Loading{Files: true},
		Error:              "old",
		Modal:              NewFileModal{Folder: "guides"},
		SyncStatuses: map[string]domain.VectorSyncStatus{
			"docs": {Status: domain.SyncSyncing, SyncProgress: progress(0.5), Errors: []string{"e"}},
			"web":  {Status: domain.SyncInSync},
		},
	}
}

func deepCopy(s State) State {
	c := s
	c.Collections = slices.Clone(s.Collections)
	for i := range c.Collections {
		c.Collections[i].Folders = slices.Clone(s.Collections[i].Folders)
		c.Collections[i].Metadata.Extra = maps.Clone(s.Collections[i].Metadata.Extra)
	}
	c.Files = slices.Clone(s.Files)
	c.Folders = slices.Clone(s.Folders)
	c.ExpandedPaths = maps.Clone(s.ExpandedPaths)
	if s.SyncStatuses != nil {
		c.SyncStatuses = make(map[string]domain.VectorSyncStatus, len(s.SyncStatuses))
		for k, v := range s.SyncStatuses {
			c.SyncStatuses[k] = v.Clone()
		}
	}
	return c
}

func allActions() []Action {
	return []Action{
		SetCollections{Collections: []domain.Collection{{Name: "new"}}},
		AddCollection{Collection: domain.Collection{Name: "docs", Description: "updated"}},
		AddCollection{Collection: domain.Collection{Name: "other"}},
		RemoveCollection{Name: "docs"},
		RemoveCollection{Name: "web"},
		SelectCollection{Name: "web"},
		SelectCollection{Name: ""},
		SetFiles{Files: []domain.FileNode{file("", "c.md", 1)}},
		SetFiles{},
		AddFile{Collection: "docs", File: file("new", "n.md", 5)},
		AddFile{Collection: "docs", File: file("guides", "a.md", 50)},
		AddFile{Collection: "web", File: file("", "w.md", 5)},
		RemoveFile{Collection: "docs", Path: "guides/a.md"},
		RemoveFile{Collection: "docs", Path: "missing.md"},
		OpenFile{Path: "b.md", Content: "b"},
		OpenFile{Path: "", Content: ""},
		UpdateContent{Content: "changed"},
		CloseFile{},
		SaveSuccess{Path: "guides/a.md", Content: "x"},
		SetSaving{Saving: true},
		SetSaving{Saving: false},
		SetLoading{Key: LoadingVectorSync, Value: true},
		SetError{Message: "boom"},
		ClearError{},
		OpenModal{Modal: NewCollectionModal{}},
		CloseModal{},
		OpenDeleteConfirmation{Target: DeleteTarget{Kind: TargetFile, Collection: "docs", Name: "b.md"}},
		CloseDeleteConfirmation{},
		SetVectorSyncStatus{Collection: "docs", Status: domain.VectorSyncStatus{Status: domain.SyncInSync, SyncProgress: progress(1)}},
		SetVectorSyncStatuses{Statuses: map[string]domain.VectorSyncStatus{"x": {Status: domain.SyncError}}},
		ToggleFolder{Path: "guides"},
		ToggleFolder{Path: "new"},
		SetSearchTerm{Term: "zzz"},
	}
}

func TestReduce_TotalAndPure(t *testing.T) {
	for _, a := range allActions() {
		t.Run(reflect.TypeOf(a).Name(), func(t *testing.T) {
			for _, initial := range []State{{}, populatedState()} {
				snapshot := deepCopy(initial)

				first, err := Reduce(initial, a)
				if err != nil {
					t.Fatalf("Reduce() error = %v", err)
				}
				if !reflect.DeepEqual(initial, snapshot) {
					t.Fatalf("Reduce(%T) modified its input", a)
				}

				second, _ := Reduce(initial, a)
				if !reflect.DeepEqual(first, second) {
					t.Errorf("Reduce(%T) is not deterministic", a)
				}
			}
		})
	}
}

type bogusAction struct{}

func (bogusAction) action() {}

func TestReduce_UnknownAction(t *testing.T) {
	s := populatedState()
	next, err := Reduce(s, bogusAction{})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if !reflect.DeepEqual(next, s) {
		t.Error("unknown action should leave the state unchanged")
	}

	if _, err := Reduce(s, nil); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction for nil action, got %v", err)
	}
}

func reduceAll(t *testing.T, s State, actions ...Action) State {
	t.Helper()
	for _, a := range actions {
		var err error
		s, err = Reduce(s, a)
		if err != nil {
			t.Fatalf("Reduce(%T) error = %v", a, err)
		}
	}
	return s
}

func TestReduce_EditorModified(t *testing.T) {
	s := reduceAll(t, State{}, OpenFile{Path: "p.md", Content: "c"}, UpdateContent{Content: "c"})
	if s.Editor.Modified {
		t.Error("same content should not be modified")
	}

	s = reduceAll(t, s, UpdateContent{Content: "c2"})
	if !s.Editor.Modified {
		t.Error("changed content should be modified")
	}

	s = reduceAll(t, s, SaveSuccess{Path: "p.md", Content: "c2"})
	if s.Editor.Modified {
		t.Error("saved content should not be modified")
	}

	s = reduceAll(t, s, UpdateContent{Content: "c"})
	if !s.Editor.Modified {
		t.Error("reverting to the pre-save content should be a modification")
	}
}

func TestReduce_OpenFileResetsBuffer(t *testing.T) {
	s := reduceAll(t, State{},
		OpenFile{Path: "a.md", Content: "a"},
		UpdateContent{Content: "edited"},
		OpenFile{Path: "b.md", Content: ""},
	)
	if s.Editor.FilePath != "b.md" || s.Editor.Content != "" || s.Editor.Modified {
		t.Errorf("unexpected buffer after switching: %+v", s.Editor)
	}

	s = reduceAll(t, s, OpenFile{Path: "b.md", Content: "loaded"})
	if s.Editor.Content != "loaded" || s.Editor.Modified {
		t.Errorf("unexpected buffer after load: %+v", s.Editor)
	}
}

func TestReduce_SaveSuccessForOtherFileIgnored(t *testing.T) {
	s := reduceAll(t, State{},
		OpenFile{Path: "b.md", Content: "b"},
		UpdateContent{Content: "b2"},
		SaveSuccess{Path: "a.md", Content: "a"},
	)
	if s.Editor.Original != "b" || !s.Editor.Modified {
		t.Errorf("save of another file changed the buffer: %+v", s.Editor)
	}
}

func TestReduce_SavingNeverWithoutFile(t *testing.T) {
	s := reduceAll(t, State{}, SetSaving{Saving: true})
	if !s.Saving {
		t.Error("global saving flag should be set")
	}
	if s.Editor.Saving {
		t.Error("editor saving must stay false without an open file")
	}

	s = reduceAll(t, State{}, OpenFile{Path: "a.md"}, SetSaving{Saving: true}, CloseFile{})
	if s.Editor.Saving {
		t.Error("closing the file must clear editor saving")
	}
}

func TestReduce_RemoveFileClearsOpenEditor(t *testing.T) {
	s := reduceAll(t, populatedState(), RemoveFile{Collection: "docs", Path: "guides/a.md"})

	if s.Editor.IsOpen() {
		t.Error("editor should be cleared when its file is removed")
	}
	if len(s.Files) != 1 || s.Files[0].Path != "b.md" {
		t.Errorf("unexpected files %+v", s.Files)
	}
	c, _ := s.Collection("docs")
	if c.FileCount != 1 || c.Metadata.TotalSize != 20 {
		t.Errorf("unexpected optimistic counts %+v", c)
	}
}

func TestReduce_RemoveOtherFileKeepsEditor(t *testing.T) {
	s := reduceAll(t, populatedState(), RemoveFile{Collection: "docs", Path: "b.md"})
	if s.Editor.FilePath != "guides/a.md" {
		t.Error("editor should stay open when another file is removed")
	}
}

func TestReduce_RemoveSelectedCollection(t *testing.T) {
	s := reduceAll(t, populatedState(), RemoveCollection{Name: "docs"})

	if s.SelectedCollection != "" {
		t.Error("selection should be cleared")
	}
	if s.Files != nil || s.Editor.IsOpen() {
		t.Error("files and editor should be cleared")
	}
	if _, ok := s.SyncStatus("docs"); ok {
		t.Error("sync status should be dropped")
	}
	if _, ok := s.Collection("docs"); ok {
		t.Error("collection should be removed")
	}
	if _, ok := s.Collection("web"); !ok {
		t.Error("other collections must stay")
	}
}

func TestReduce_SelectNoneLeavesFiles(t *testing.T) {
	s := reduceAll(t, populatedState(), SelectCollection{Name: ""})
	if len(s.Files) != 2 || !s.Editor.IsOpen() {
		t.Error("SelectCollection must not clear files or editor by itself")
	}
}

func TestReduce_AddFile(t *testing.T) {
	tests := []struct {
		name       string
		action     AddFile
		wantFiles  int
		wantCount  int
		wantFolder bool
	}{
		{
			name:       "new file in new folder",
			action:     AddFile{Collection: "docs", File: file("notes", "n.md", 5)},
			wantFiles:  3,
			wantCount:  3,
			wantFolder: true,
		},
		{
			name:      "replace existing path",
			action:    AddFile{Collection: "docs", File: file("guides", "a.md", 50)},
			wantFiles: 2,
			wantCount: 2,
		},
		{
			name:      "unselected collection only adjusts count",
			action:    AddFile{Collection: "web", File: file("", "w.md", 5)},
			wantFiles: 2,
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := reduceAll(t, populatedState(), tt.action)
			if len(s.Files) != tt.wantFiles {
				t.Errorf("files = %d, want %d", len(s.Files), tt.wantFiles)
			}
			c, _ := s.Collection("docs")
			if c.FileCount != tt.wantCount {
				t.Errorf("docs file count = %d, want %d", c.FileCount, tt.wantCount)
			}
			hasFolder := slices.ContainsFunc(s.Folders, func(f domain.Folder) bool { return f.Path == "notes" })
			if hasFolder != tt.wantFolder {
				t.Errorf("folder recorded = %v, want %v", hasFolder, tt.wantFolder)
			}
		})
	}

	s := reduceAll(t, populatedState(), AddFile{Collection: "web", File: file("", "w.md", 5)})
	if c, _ := s.Collection("web"); c.FileCount != 1 {
		t.Errorf("web file count = %d, want 1", c.FileCount)
	}
}

func TestReduce_Modals(t *testing.T) {
	target := DeleteTarget{Kind: TargetCollection, Collection: "docs", Name: "docs"}
	s := reduceAll(t, State{}, OpenDeleteConfirmation{Target: target})
	got, ok := s.DeleteConfirmation()
	if !ok || got != target {
		t.Fatalf("expected delete confirmation for %+v, got %+v", target, got)
	}

	s = reduceAll(t, s, CloseDeleteConfirmation{})
	if s.Modal != nil {
		t.Error("delete confirmation should be closed")
	}

	s = reduceAll(t, s, OpenModal{Modal: AddPageModal{}}, CloseDeleteConfirmation{})
	if _, ok := s.Modal.(AddPageModal); !ok {
		t.Error("CloseDeleteConfirmation must not close other dialogs")
	}

	s = reduceAll(t, s, CloseModal{})
	if s.Modal != nil {
		t.Error("CloseModal should close any dialog")
	}
}

func TestReduce_SyncStatusNormalized(t *testing.T) {
	now := time.Now()
	s := reduceAll(t, State{}, SetVectorSyncStatus{
		Collection: "docs",
		Status:     domain.VectorSyncStatus{Status: domain.SyncInSync, SyncProgress: progress(1), LastSync: &now},
	})
	st, ok := s.SyncStatus("docs")
	if !ok {
		t.Fatal("status not stored")
	}
	if st.SyncProgress != nil {
		t.Error("progress must be nil outside syncing")
	}
}

func TestReduce_LoadingFlags(t *testing.T) {
	keys := []LoadingKey{LoadingCollections, LoadingFiles, LoadingFileContent, LoadingCrawling, LoadingVectorSync, LoadingVectorSearch}
	for _, key := range keys {
		t.Run(key.String(), func(t *testing.T) {
			s := reduceAll(t, State{}, SetLoading{Key: key, Value: true})
			if !s.Loading.Get(key) || !s.Loading.Any() {
				t.Errorf("flag %v not set", key)
			}
			s = reduceAll(t, s, SetLoading{Key: key, Value: false})
			if s.Loading.Any() {
				t.Errorf("flag %v not cleared", key)
			}
		})
	}
}

func TestState_TreeAppliesSearch(t *testing.T) {
	s := populatedState()
	s.SearchTerm = "b.md"
	tree := s.Tree()
	paths := domain.LeafPaths(tree)
	if !slices.Equal(paths, []string{"b.md"}) {
		t.Errorf("tree leaves = %v, want [b.md]", paths)
	}
}
