package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
)

func openTestBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	b, err := Open(filepath.Join(t.TempDir(), "data", "ragdesk.db"), opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func mustCreate(t *testing.T, b *Backend, name string) {
	t.Helper()
	if _, err := b.CreateCollection(context.Background(), name, ""); err != nil {
		t.Fatalf("CreateCollection(%q) error = %v", name, err)
	}
}

func mustSave(t *testing.T, b *Backend, collection, folder, name, content string) {
	t.Helper()
	_, err := b.SaveFile(context.Background(), collection, domain.SaveFileRequest{Filename: name, Folder: folder, Content: content})
	if err != nil {
		t.Fatalf("SaveFile(%s/%s) error = %v", folder, name, err)
	}
}

func TestBackend_Collections(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	created, err := b.CreateCollection(ctx, "docs", "  product docs ")
	if err != nil {
		t.Fatal(err)
	}
	if created.Description != "product docs" {
		t.Errorf("description = %q", created.Description)
	}
	mustCreate(t, b, "web")
	mustSave(t, b, "docs", "guides/setup", "install.md", "# Install")
	mustSave(t, b, "docs", "", "readme.md", "hello")

	list, err := b.ListCollections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "docs" || list[1].Name != "web" {
		t.Fatalf("ListCollections() = %+v", list)
	}
	docs := list[0]
	if docs.FileCount != 2 || docs.Metadata.TotalSize != int64(len("# Install")+len("hello")) {
		t.Errorf("docs aggregates = %d files, %d bytes", docs.FileCount, docs.Metadata.TotalSize)
	}
	if len(docs.Folders) != 2 || docs.Folders[0] != "guides" || docs.Folders[1] != "guides/setup" {
		t.Errorf("docs folders = %v", docs.Folders)
	}
	if list[1].FileCount != 0 || len(list[1].Folders) != 0 {
		t.Errorf("web = %+v", list[1])
	}

	st, err := b.GetSyncStatus(ctx, "web")
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != domain.SyncNeverSynced || !st.SyncEnabled {
		t.Errorf("new collection status = %+v", st)
	}

	if err := b.DeleteCollection(ctx, "docs"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ListFiles(ctx, "docs"); !errors.Is(err, application.ErrNotFound) {
		t.Errorf("ListFiles after delete error = %v", err)
	}
	if _, err := b.GetSyncStatus(ctx, "docs"); !errors.Is(err, application.ErrNotFound) {
		t.Errorf("GetSyncStatus after delete error = %v", err)
	}
}

func TestBackend_CollectionErrors(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	mustCreate(t, b, "docs")

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"duplicate", func() error { _, err := b.CreateCollection(ctx, "docs", ""); return err }, application.ErrInvalidInput},
		{"empty name", func() error { _, err := b.CreateCollection(ctx, " ", ""); return err }, application.ErrInvalidInput},
		{"slash in name", func() error { _, err := b.CreateCollection(ctx, "a/b", ""); return err }, application.ErrInvalidInput},
		{"delete missing", func() error { return b.DeleteCollection(ctx, "nope") }, application.ErrNotFound},
		{"list files missing", func() error { _, err := b.ListFiles(ctx, "nope"); return err }, application.ErrNotFound},
		{"save into missing", func() error {
			_, err := b.SaveFile(ctx, "nope", domain.SaveFileRequest{Filename: "a.md"})
			return err
		}, application.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBackend_Files(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := openTestBackend(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	mustCreate(t, b, "docs")

	meta, err := b.SaveFile(ctx, "docs", domain.SaveFileRequest{Filename: "a.md", Folder: "/guides/", Content: "# A"})
	if err != nil {
		t.Fatal(err)
	}
	if meta.FolderPath != "guides" || meta.Size != 3 || !meta.CreatedAt.Equal(now) {
		t.Errorf("SaveFile() = %+v", meta)
	}

	_, err = b.SaveFile(ctx, "docs", domain.SaveFileRequest{Filename: "a.md", Folder: "guides"})
	if !errors.Is(err, application.ErrInvalidInput) {
		t.Errorf("duplicate SaveFile error = %v", err)
	}

	listing, err := b.ListFiles(ctx, "docs")
	if err != nil {
		t.Fatal(err)
	}
	nodes := listing.FileNodes()
	if len(nodes) != 1 || nodes[0].Path != "guides/a.md" || len(listing.Folders) != 1 {
		t.Fatalf("ListFiles() = %+v", listing)
	}

	if err := b.UpdateFile(ctx, "docs", "a.md", "guides", "# A2"); err != nil {
		t.Fatal(err)
	}
	content, err := b.ReadFile(ctx, "docs", "a.md", "guides")
	if err != nil || content != "# A2" {
		t.Errorf("ReadFile() = %q, %v", content, err)
	}

	if err := b.UpdateFile(ctx, "docs", "missing.md", "", "x"); !errors.Is(err, application.ErrNotFound) {
		t.Errorf("UpdateFile missing error = %v", err)
	}
	if err := b.DeleteFile(ctx, "docs", "a.md", "guides"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ReadFile(ctx, "docs", "a.md", "guides"); !errors.Is(err, application.ErrNotFound) {
		t.Errorf("ReadFile after delete error = %v", err)
	}
	if err := b.DeleteFile(ctx, "docs", "a.md", "guides"); !errors.Is(err, application.ErrNotFound) {
		t.Errorf("second DeleteFile error = %v", err)
	}
}

func TestBackend_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragdesk.db")
	logger := WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	b, err := Open(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	mustCreate(t, b, "docs")
	mustSave(t, b, "docs", "", "a.md", "# A")
	// Simulate a process that died mid-sync
	if _, err := b.db.Exec(`UPDATE sync_status SET status = 'syncing', progress = 0.4, job_id = 'gone'`); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	b, err = Open(path, logger)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer b.Close()

	content, err := b.ReadFile(context.Background(), "docs", "a.md", "")
	if err != nil || content != "# A" {
		t.Errorf("ReadFile() after reopen = %q, %v", content, err)
	}
	st, err := b.GetSyncStatus(context.Background(), "docs")
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != domain.SyncError || st.SyncProgress != nil || len(st.Errors) != 1 {
		t.Errorf("interrupted sync not recovered: %+v", st)
	}
}

func TestBackend_SchemaVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragdesk.db")
	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.db.Exec(`UPDATE meta SET value = '99' WHERE key = 'schema_version'`); err != nil {
		t.Fatal(err)
	}
	b.Close()

	if _, err := Open(path); err == nil {
		t.Error("expected error for unknown schema version")
	}
}
