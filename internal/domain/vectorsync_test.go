package domain

import "testing"

func TestVectorSyncStatus_Predicates(t *testing.T) {
	tests := []struct {
		name          string
		status        VectorSyncStatus
		wantCanSync   bool
		wantNeedsSync bool
		wantSyncing   bool
	}{
		{
			name:          "never synced, enabled",
			status:        VectorSyncStatus{Status: SyncNeverSynced, SyncEnabled: true},
			wantCanSync:   true,
			wantNeedsSync: true,
		},
		{
			name:        "in sync, disabled",
			status:      VectorSyncStatus{Status: SyncInSync, SyncEnabled: false},
			wantCanSync: false,
		},
		{
			name:          "out of sync",
			status:        VectorSyncStatus{Status: SyncOutOfSync, SyncEnabled: true},
			wantCanSync:   true,
			wantNeedsSync: true,
		},
		{
			name:        "syncing",
			status:      VectorSyncStatus{Status: SyncSyncing, SyncEnabled: true},
			wantCanSync: false,
			wantSyncing: true,
		},
		{
			name:        "error can retry",
			status:      VectorSyncStatus{Status: SyncError, SyncEnabled: true},
			wantCanSync: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.CanSync(); got != tt.wantCanSync {
				t.Errorf("CanSync() = %v, want %v", got, tt.wantCanSync)
			}
			if got := tt.status.NeedsSync(); got != tt.wantNeedsSync {
				t.Errorf("NeedsSync() = %v, want %v", got, tt.wantNeedsSync)
			}
			if got := tt.status.IsSyncing(); got != tt.wantSyncing {
				t.Errorf("IsSyncing() = %v, want %v", got, tt.wantSyncing)
			}
		})
	}
}

func TestVectorSyncStatus_Normalize(t *testing.T) {
	p := 0.4
	s := VectorSyncStatus{Status: SyncInSync, SyncProgress: &p, SyncHealthScore: 1.7}.Normalize()
	if s.SyncProgress != nil {
		t.Error("progress should be cleared outside syncing")
	}
	if s.SyncHealthScore != 1 {
		t.Errorf("health score = %v, want 1", s.SyncHealthScore)
	}

	s = VectorSyncStatus{Status: "bogus"}.Normalize()
	if s.Status != SyncNeverSynced {
		t.Errorf("unknown status should normalize to never_synced, got %q", s.Status)
	}
}

func TestVectorSyncStatus_WithSyncingDoesNotAlias(t *testing.T) {
	orig := VectorSyncStatus{Status: SyncError, Errors: []string{"boom"}, SyncEnabled: true}
	next := orig.WithSyncing()

	if next.Status != SyncSyncing || next.SyncProgress == nil || *next.SyncProgress != 0 {
		t.Fatalf("unexpected optimistic status %+v", next)
	}
	if len(next.Errors) != 0 {
		t.Error("optimistic status should clear previous errors")
	}
	if len(orig.Errors) != 1 || orig.Status != SyncError {
		t.Error("original status was modified")
	}
}

func TestVectorSyncStatus_WithError(t *testing.T) {
	p := 0.5
	s := VectorSyncStatus{Status: SyncSyncing, SyncProgress: &p}.WithError("dead job")
	s = s.WithError("dead job")

	if s.Status != SyncError || s.SyncProgress != nil {
		t.Errorf("unexpected status %+v", s)
	}
	if len(s.Errors) != 1 {
		t.Errorf("expected message recorded once, got %v", s.Errors)
	}
}

func TestFilePath(t *testing.T) {
	tests := []struct {
		folder, name, want string
	}{
		{"", "a.md", "a.md"},
		{"docs", "a.md", "docs/a.md"},
		{"/docs/sub/", "a.md", "docs/sub/a.md"},
	}
	for _, tt := range tests {
		if got := FilePath(tt.folder, tt.name); got != tt.want {
			t.Errorf("FilePath(%q, %q) = %q, want %q", tt.folder, tt.name, got, tt.want)
		}
		folder, name := SplitFilePath(tt.want)
		if FilePath(folder, name) != tt.want {
			t.Errorf("SplitFilePath(%q) does not round-trip", tt.want)
		}
	}
}
