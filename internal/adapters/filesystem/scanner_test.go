package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ragdesk/internal/application"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"readme.md":             "# Readme",
		"guides/setup.md":       "# Setup",
		"guides/deep/notes.txt": "notes",
		"guides/logo.png":       "png",
		"big.md":                "0123456789",
		".git/config.yaml":      "hidden",
		".draft.md":             "hidden",
	})

	files, skipped, err := NewScanner(root, WithMaxFileSize(9)).Scan()
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"guides/deep/notes.txt", "guides/setup.md", "readme.md"}
	if len(files) != len(want) {
		t.Fatalf("Scan() files = %+v", files)
	}
	for i, f := range files {
		if f.Path() != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, f.Path(), want[i])
		}
	}
	if files[0].Folder != "guides/deep" || files[0].Filename != "notes.txt" || files[0].Size != 5 {
		t.Errorf("files[0] = %+v", files[0])
	}
	if files[2].Folder != "" {
		t.Errorf("root file folder = %q", files[2].Folder)
	}

	if len(skipped) != 2 || skipped[0].Path != "big.md" || skipped[1].Path != "guides/logo.png" {
		t.Errorf("skipped = %+v", skipped)
	}
}

func TestScanner_Errors(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.md": "x"})

	tests := []struct {
		name string
		dir  string
	}{
		{"missing", filepath.Join(root, "nope")},
		{"file", filepath.Join(root, "a.md")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := NewScanner(tt.dir).Scan(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestScanner_ReadRejectsBinary(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ok.md": "# ok", "bad.txt": "\xff\xfe"})

	s := NewScanner(root)
	files, _, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		content, err := s.Read(f)
		switch f.Filename {
		case "ok.md":
			if err != nil || content != "# ok" {
				t.Errorf("Read(ok.md) = %q, %v", content, err)
			}
		case "bad.txt":
			if !errors.Is(err, application.ErrInvalidInput) {
				t.Errorf("Read(bad.txt) error = %v", err)
			}
		}
	}
}
