package sqlite

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
)

// tickingClock advances one second per call
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		start = start.Add(time.Second)
		return start
	}
}

// waitTerminal polls until the collection leaves syncing
func waitTerminal(t *testing.T, b *Backend, collection string) domain.VectorSyncStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, err := b.GetSyncStatus(context.Background(), collection)
		if err != nil {
			t.Fatal(err)
		}
		if !st.IsSyncing() {
			return *st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sync of %s did not finish", collection)
	return domain.VectorSyncStatus{}
}

func TestSync_InSync(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	mustCreate(t, b, "docs")
	mustSave(t, b, "docs", "", "a.md", "# Intro\n\nhello\n\n## Usage\n\nrun it\n")
	mustSave(t, b, "docs", "guides", "b.txt", "plain text")

	if err := b.SyncCollection(ctx, "docs", domain.SyncRequest{}); err != nil {
		t.Fatal(err)
	}
	st := waitTerminal(t, b, "docs")

	if st.Status != domain.SyncInSync {
		t.Fatalf("status = %s, errors %v", st.Status, st.Errors)
	}
	if st.ChunkCount != 3 || st.TotalFiles != 2 || st.SyncedFiles != 2 {
		t.Errorf("counts = chunks %d, total %d, synced %d", st.ChunkCount, st.TotalFiles, st.SyncedFiles)
	}
	if st.SyncHealthScore != 1 || st.LastSync == nil || st.LastSyncDuration == nil {
		t.Errorf("unexpected status %+v", st)
	}
	if st.ContextExpansionEligibleChunks == nil || *st.ContextExpansionEligibleChunks != 2 {
		t.Errorf("heading chunks = %v", st.ContextExpansionEligibleChunks)
	}
	if st.ChangedFilesCount != 0 {
		t.Errorf("changed files = %d", st.ChangedFilesCount)
	}
}

func TestSync_PartialOnEmptyFile(t *testing.T) {
	b := openTestBackend(t)
	mustCreate(t, b, "docs")
	mustSave(t, b, "docs", "", "a.md", "# A\n\ntext")
	mustSave(t, b, "docs", "", "empty.md", "   \n")

	if err := b.SyncCollection(context.Background(), "docs", domain.SyncRequest{}); err != nil {
		t.Fatal(err)
	}
	st := waitTerminal(t, b, "docs")

	if st.Status != domain.SyncPartial {
		t.Fatalf("status = %s", st.Status)
	}
	if len(st.Warnings) != 1 || !strings.Contains(st.Warnings[0], "empty.md") {
		t.Errorf("warnings = %v", st.Warnings)
	}
}

func TestSync_EditMarksOutOfSync(t *testing.T) {
	b := openTestBackend(t, WithClock(tickingClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))))
	ctx := context.Background()
	mustCreate(t, b, "docs")
	mustSave(t, b, "docs", "", "a.md", "# A")

	if err := b.SyncCollection(ctx, "docs", domain.SyncRequest{}); err != nil {
		t.Fatal(err)
	}
	if st := waitTerminal(t, b, "docs"); st.Status != domain.SyncInSync {
		t.Fatalf("status = %s", st.Status)
	}

	if err := b.UpdateFile(ctx, "docs", "a.md", "", "# A changed"); err != nil {
		t.Fatal(err)
	}
	st, err := b.GetSyncStatus(ctx, "docs")
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != domain.SyncOutOfSync || st.ChangedFilesCount != 1 || !st.NeedsSync() {
		t.Errorf("after edit status = %s, changed %d", st.Status, st.ChangedFilesCount)
	}
}

func TestSync_Rejections(t *testing.T) {
	b := openTestBackend(t, WithFileDelay(50*time.Millisecond))
	ctx := context.Background()
	mustCreate(t, b, "docs")
	mustCreate(t, b, "off")
	mustSave(t, b, "docs", "", "a.md", "# A")
	mustSave(t, b, "docs", "", "b.md", "# B")

	if err := b.DisableSync(ctx, "off"); err != nil {
		t.Fatal(err)
	}
	if err := b.SyncCollection(ctx, "off", domain.SyncRequest{}); !errors.Is(err, application.ErrInvalidInput) {
		t.Errorf("disabled sync error = %v", err)
	}
	if err := b.SyncCollection(ctx, "nope", domain.SyncRequest{}); !errors.Is(err, application.ErrNotFound) {
		t.Errorf("missing collection error = %v", err)
	}

	if err := b.SyncCollection(ctx, "docs", domain.SyncRequest{}); err != nil {
		t.Fatal(err)
	}
	if err := b.SyncCollection(ctx, "docs", domain.SyncRequest{}); !errors.Is(err, application.ErrInvalidInput) {
		t.Errorf("concurrent sync error = %v", err)
	}
	waitTerminal(t, b, "docs")

	if err := b.EnableSync(ctx, "off"); err != nil {
		t.Fatal(err)
	}
	if err := b.EnableSync(ctx, "nope"); !errors.Is(err, application.ErrNotFound) {
		t.Errorf("EnableSync missing error = %v", err)
	}
}

func TestSync_ProgressAdvances(t *testing.T) {
	b := openTestBackend(t, WithFileDelay(30*time.Millisecond))
	mustCreate(t, b, "docs")
	for _, name := range []string{"a.md", "b.md", "c.md", "d.md"} {
		mustSave(t, b, "docs", "", name, "# "+name)
	}
	if err := b.SyncCollection(context.Background(), "docs", domain.SyncRequest{}); err != nil {
		t.Fatal(err)
	}

	var seen []float64
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, err := b.GetSyncStatus(context.Background(), "docs")
		if err != nil {
			t.Fatal(err)
		}
		if !st.IsSyncing() {
			break
		}
		if st.SyncProgress == nil {
			t.Fatal("syncing status without progress")
		}
		seen = append(seen, st.Progress())
		time.Sleep(5 * time.Millisecond)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("progress went backwards: %v", seen)
		}
	}
	if len(seen) == 0 {
		t.Fatal("never observed a syncing status")
	}
}

func TestSync_DeleteVectorsSupersedesJob(t *testing.T) {
	b := openTestBackend(t, WithFileDelay(50*time.Millisecond))
	ctx := context.Background()
	mustCreate(t, b, "docs")
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		mustSave(t, b, "docs", "", name, "# "+name)
	}
	if err := b.SyncCollection(ctx, "docs", domain.SyncRequest{}); err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteVectors(ctx, "docs"); err != nil {
		t.Fatal(err)
	}

	// Let the job reach its next progress update
	time.Sleep(150 * time.Millisecond)
	st, err := b.GetSyncStatus(ctx, "docs")
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != domain.SyncNeverSynced || st.SyncProgress != nil || st.LastSync != nil {
		t.Errorf("status after DeleteVectors = %+v", st)
	}
	if st.ChunkCount != 0 {
		t.Errorf("superseded job wrote %d chunks", st.ChunkCount)
	}
}

func TestSync_IncrementalAndForce(t *testing.T) {
	b := openTestBackend(t, WithClock(tickingClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))))
	ctx := context.Background()
	mustCreate(t, b, "docs")
	mustSave(t, b, "docs", "", "a.md", "# A\n\none")
	mustSave(t, b, "docs", "", "b.md", "# B\n\ntwo")

	if err := b.SyncCollection(ctx, "docs", domain.SyncRequest{}); err != nil {
		t.Fatal(err)
	}
	waitTerminal(t, b, "docs")

	if err := b.DeleteFile(ctx, "docs", "b.md", ""); err != nil {
		t.Fatal(err)
	}
	if err := b.SyncCollection(ctx, "docs", domain.SyncRequest{}); err != nil {
		t.Fatal(err)
	}
	st := waitTerminal(t, b, "docs")
	if st.ChunkCount != 1 {
		t.Errorf("chunks after deleting a file = %d, want 1", st.ChunkCount)
	}

	if err := b.SyncCollection(ctx, "docs", domain.SyncRequest{ChunkingStrategy: domain.ChunkingFixed, ForceReprocess: true}); err != nil {
		t.Fatal(err)
	}
	st = waitTerminal(t, b, "docs")
	if st.Status != domain.SyncInSync || st.ChunkCount != 1 || *st.ContextExpansionEligibleChunks != 0 {
		t.Errorf("forced fixed sync = %+v", st)
	}
}

func TestSync_CloseWaitsForJobs(t *testing.T) {
	b := openTestBackend(t, WithFileDelay(time.Second))
	mustCreate(t, b, "docs")
	mustSave(t, b, "docs", "", "a.md", "# A")
	mustSave(t, b, "docs", "", "b.md", "# B")
	if err := b.SyncCollection(context.Background(), "docs", domain.SyncRequest{}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- b.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the running job")
	}
	if err := b.SyncCollection(context.Background(), "docs", domain.SyncRequest{}); err == nil {
		t.Error("expected error after Close")
	}
}

func TestSync_ListStatuses(t *testing.T) {
	b := openTestBackend(t)
	mustCreate(t, b, "docs")
	mustCreate(t, b, "web")
	if err := b.DisableSync(context.Background(), "web"); err != nil {
		t.Fatal(err)
	}

	all, err := b.ListSyncStatuses(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || !all["docs"].SyncEnabled || all["web"].SyncEnabled {
		t.Errorf("ListSyncStatuses() = %+v", all)
	}
}
