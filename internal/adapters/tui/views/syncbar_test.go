package views

import (
	"strings"
	"testing"
	"time"

	"ragdesk/internal/domain"
)

func TestSyncLabel(t *testing.T) {
	progress := 0.42
	tests := []struct {
		name string
		st   domain.VectorSyncStatus
		want string
	}{
		{"never", domain.NewVectorSyncStatus(), "never synced"},
		{"in sync", domain.VectorSyncStatus{Status: domain.SyncInSync, SyncEnabled: true}, "in sync"},
		{"syncing", domain.VectorSyncStatus{Status: domain.SyncSyncing, SyncEnabled: true, SyncProgress: &progress}, "syncing 42%"},
		{"disabled", domain.VectorSyncStatus{Status: domain.SyncOutOfSync}, "out of sync (disabled)"},
		{"partial", domain.VectorSyncStatus{Status: domain.SyncPartial, SyncEnabled: true}, "partially synced"},
		{"error", domain.VectorSyncStatus{Status: domain.SyncError, SyncEnabled: true}, "sync error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SyncLabel(tt.st); got != tt.want {
				t.Errorf("SyncLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSyncBar(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-2 * time.Hour)
	st := domain.VectorSyncStatus{
		Status:            domain.SyncOutOfSync,
		SyncEnabled:       true,
		ChunkCount:        1200,
		ChangedFilesCount: 3,
		LastSync:          &last,
		Errors:            []string{"boom"},
	}
	got := RenderSyncBar(st, 80, now)
	for _, want := range []string{"out of sync", "1,200 chunks", "2 hours ago", "3 changed", "boom"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderSyncBar() = %q, missing %q", got, want)
		}
	}
}
