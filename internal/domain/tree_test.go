package domain

import (
	"slices"
	"strings"
	"testing"
)

func filesFromPaths(paths ...string) []FileNode {
	files := make([]FileNode, 0, len(paths))
	for _, p := range paths {
		folder, name := SplitFilePath(p)
		files = append(files, NewFileNode(FileMetadata{Filename: name, FolderPath: folder}))
	}
	return files
}

func assertSorted(t *testing.T, nodes []*TreeNode) {
	t.Helper()
	for i := 1; i < len(nodes); i++ {
		if compareNodes(nodes[i-1], nodes[i]) > 0 {
			t.Errorf("nodes not sorted: %q before %q", nodes[i-1].Path, nodes[i].Path)
		}
	}
	for _, n := range nodes {
		if n.IsFolder() {
			assertSorted(t, n.Children)
		}
	}
}

func TestBuildTree_LeafPathsMatchInput(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
	}{
		{name: "no files", paths: nil},
		{name: "root files only", paths: []string{"b.md", "a.md", "C.md"}},
		{name: "nested folders", paths: []string{"docs/guide/intro.md", "docs/api.md", "readme.md", "docs/guide/setup.md"}},
		{name: "duplicate names in different folders", paths: []string{"a/notes.md", "b/notes.md", "notes.md"}},
		{name: "deep single chain", paths: []string{"x/y/z/w/file.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := BuildTree(filesFromPaths(tt.paths...), nil)

			got := LeafPaths(tree)
			want := slices.Clone(tt.paths)
			slices.Sort(got)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				t.Errorf("leaf paths = %v, want %v", got, want)
			}

			assertSorted(t, tree)
		})
	}
}

func TestBuildTree_EmptyReturnsEmpty(t *testing.T) {
	tree := BuildTree(nil, nil)
	if len(tree) != 0 {
		t.Errorf("expected empty tree, got %d nodes", len(tree))
	}
}

func TestBuildTree_FoldersBeforeFiles(t *testing.T) {
	tree := BuildTree(filesFromPaths("zeta.md", "Alpha/one.md", "beta.md", "alpha2/two.md"), nil)

	var names []string
	for _, n := range tree {
		names = append(names, n.Name)
	}
	want := []string{"Alpha", "alpha2", "beta.md", "zeta.md"}
	if !slices.Equal(names, want) {
		t.Errorf("root order = %v, want %v", names, want)
	}
}

func TestBuildTree_ReusesFolders(t *testing.T) {
	tree := BuildTree(filesFromPaths("docs/a.md", "docs/b.md", "docs/sub/c.md"), nil)

	if len(tree) != 1 {
		t.Fatalf("expected one root folder, got %d", len(tree))
	}
	docs := tree[0]
	if docs.Path != "docs" || !docs.IsFolder() {
		t.Fatalf("unexpected root node %+v", docs)
	}
	if len(docs.Children) != 3 {
		t.Fatalf("expected 3 children under docs, got %d", len(docs.Children))
	}
	sub := docs.Children[0]
	if sub.Path != "docs/sub" || sub.Parent != docs {
		t.Errorf("expected docs/sub with parent docs, got %q", sub.Path)
	}
	if sub.Children[0].Depth() != 2 {
		t.Errorf("expected depth 2, got %d", sub.Children[0].Depth())
	}
}

func TestBuildTree_ExpandedPaths(t *testing.T) {
	tree := BuildTree(filesFromPaths("a/b/c.md", "d/e.md"), map[string]bool{"a/b": true})

	byPath := map[string]*TreeNode{}
	for _, n := range flattenAll(tree) {
		byPath[n.Path] = n
	}
	if byPath["a"].Expanded {
		t.Error("a should be collapsed")
	}
	if !byPath["a/b"].Expanded {
		t.Error("a/b should be expanded")
	}
	if byPath["d"].Expanded {
		t.Error("d should be collapsed")
	}
}

func flattenAll(nodes []*TreeNode) []*TreeNode {
	var out []*TreeNode
	for _, n := range nodes {
		out = append(out, n)
		out = append(out, flattenAll(n.Children)...)
	}
	return out
}

func TestFilterTree_EmptyTermIsIdentity(t *testing.T) {
	tree := BuildTree(filesFromPaths("a/b.md", "c.md"), nil)
	filtered := FilterTree(tree, "")

	if len(filtered) != len(tree) {
		t.Fatalf("expected %d nodes, got %d", len(tree), len(filtered))
	}
	for i := range tree {
		if filtered[i] != tree[i] {
			t.Errorf("node %d changed identity", i)
		}
	}
}

func TestFilterTree(t *testing.T) {
	paths := []string{
		"guides/Setup.md",
		"guides/usage.md",
		"api/reference/endpoints.md",
		"api/setup-notes.txt",
		"misc/other.md",
		"setup/readme.md",
		"top.md",
	}
	tree := BuildTree(filesFromPaths(paths...), nil)

	tests := []struct {
		name      string
		term      string
		wantFiles []string
		wantDirs  []string
	}{
		{
			name:      "case-insensitive file match",
			term:      "SETUP",
			wantFiles: []string{"guides/Setup.md", "api/setup-notes.txt"},
			wantDirs:  []string{"guides", "api", "setup"},
		},
		{
			name:      "deep match keeps ancestors",
			term:      "endpoints",
			wantFiles: []string{"api/reference/endpoints.md"},
			wantDirs:  []string{"api", "api/reference"},
		},
		{
			name:      "folder name match without matching files",
			term:      "misc",
			wantFiles: nil,
			wantDirs:  []string{"misc"},
		},
		{
			name:      "no match",
			term:      "zzz",
			wantFiles: nil,
			wantDirs:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered := FilterTree(tree, tt.term)

			var files, dirs []string
			for _, n := range flattenAll(filtered) {
				if n.IsFolder() {
					dirs = append(dirs, n.Path)
					continue
				}
				files = append(files, n.Path)
				if !strings.Contains(strings.ToLower(n.Name), strings.ToLower(tt.term)) {
					t.Errorf("leaf %q does not match %q", n.Path, tt.term)
				}
			}

			slices.Sort(files)
			slices.Sort(dirs)
			wantFiles := slices.Clone(tt.wantFiles)
			wantDirs := slices.Clone(tt.wantDirs)
			slices.Sort(wantFiles)
			slices.Sort(wantDirs)
			if !slices.Equal(files, wantFiles) {
				t.Errorf("files = %v, want %v", files, wantFiles)
			}
			if !slices.Equal(dirs, wantDirs) {
				t.Errorf("folders = %v, want %v", dirs, wantDirs)
			}
		})
	}
}

func TestFilterTree_ForcesExpansionAndKeepsInput(t *testing.T) {
	tree := BuildTree(filesFromPaths("a/b/target.md", "a/other.md"), nil)
	filtered := FilterTree(tree, "target")

	for _, n := range flattenAll(filtered) {
		if n.IsFolder() && !n.Expanded {
			t.Errorf("folder %q kept via descendant should be expanded", n.Path)
		}
	}
	for _, n := range flattenAll(tree) {
		if n.IsFolder() && n.Expanded {
			t.Errorf("input folder %q was modified", n.Path)
		}
	}
	if got := len(tree[0].Children); got != 2 {
		t.Errorf("input children modified: got %d", got)
	}
}

func TestFlatten_RespectsExpansion(t *testing.T) {
	tree := BuildTree(filesFromPaths("a/x.md", "b/y.md", "z.md"), map[string]bool{"a": true})

	var paths []string
	for _, n := range Flatten(tree) {
		paths = append(paths, n.Path)
	}
	want := []string{"a", "a/x.md", "b", "z.md"}
	if !slices.Equal(paths, want) {
		t.Errorf("flatten = %v, want %v", paths, want)
	}
}

func TestOutline_IgnoresExpansion(t *testing.T) {
	tree := BuildTree(filesFromPaths("guides/setup/install.md", "guides/intro.md", "readme.md"), nil)
	want := "guides/\n  setup/\n    install.md\n  intro.md\nreadme.md\n"
	if got := Outline(tree); got != want {
		t.Errorf("Outline() =\n%s\nwant\n%s", got, want)
	}
	if Outline(nil) != "" {
		t.Error("Outline(nil) should be empty")
	}
}
