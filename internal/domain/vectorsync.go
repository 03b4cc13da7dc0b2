package domain

import (
	"slices"
	"time"
)

// SyncState is the vector sync state of a collection
type SyncState string

const (
	SyncNeverSynced SyncState = "never_synced"
	SyncInSync      SyncState = "in_sync"
	SyncOutOfSync   SyncState = "out_of_sync"
	SyncSyncing     SyncState = "syncing"
	SyncError       SyncState = "sync_error"
	SyncPartial     SyncState = "partial_sync"
)

// Valid reports whether s is one of the known states
func (s SyncState) Valid() bool {
	switch s {
	case SyncNeverSynced, SyncInSync, SyncOutOfSync, SyncSyncing, SyncError, SyncPartial:
		return true
	}
	return false
}

// VectorSyncStatus is the per-collection embedding status reported by the backend
type VectorSyncStatus struct {
	Status                         SyncState  `json:"status"`
	SyncProgress                   *float64   `json:"sync_progress"`
	SyncEnabled                    bool       `json:"sync_enabled"`
	ChunkCount                     int        `json:"chunk_count"`
	TotalFiles                     int        `json:"total_files"`
	SyncedFiles                    int        `json:"synced_files"`
	ChangedFilesCount              int        `json:"changed_files_count"`
	Errors                         []string   `json:"errors"`
	Warnings                       []string   `json:"warnings"`
	LastSync                       *time.Time `json:"last_sync,omitempty"`
	LastSyncDuration               *float64   `json:"last_sync_duration,omitempty"`
	SyncHealthScore                float64    `json:"sync_health_score"`
	EnhancedFeaturesEnabled        bool       `json:"enhanced_features_enabled"`
	OverlapChunkCount              *int       `json:"overlap_chunk_count,omitempty"`
	ContextExpansionEligibleChunks *int       `json:"context_expansion_eligible_chunks,omitempty"`
}

// NewVectorSyncStatus returns the status of a collection that was never synced
func NewVectorSyncStatus() VectorSyncStatus {
	return VectorSyncStatus{Status: SyncNeverSynced, SyncEnabled: true}
}

// CanSync reports whether a new sync may be started
func (s VectorSyncStatus) CanSync() bool {
	return s.SyncEnabled && s.Status != SyncSyncing
}

// NeedsSync reports whether the collection has content without fresh embeddings
func (s VectorSyncStatus) NeedsSync() bool {
	return s.Status == SyncOutOfSync || s.Status == SyncNeverSynced
}

// IsSyncing reports whether a sync job is in flight
func (s VectorSyncStatus) IsSyncing() bool {
	return s.Status == SyncSyncing
}

// Progress returns the sync progress, or 0 when none is reported
func (s VectorSyncStatus) Progress() float64 {
	if s.SyncProgress == nil {
		return 0
	}
	return *s.SyncProgress
}

// Normalize enforces that progress is only present while syncing and
// that the health score stays within [0,1].
func (s VectorSyncStatus) Normalize() VectorSyncStatus {
	if !s.Status.Valid() {
		s.Status = SyncNeverSynced
	}
	if s.Status != SyncSyncing {
		s.SyncProgress = nil
	}
	if s.SyncHealthScore < 0 {
		s.SyncHealthScore = 0
	}
	if s.SyncHealthScore > 1 {
		s.SyncHealthScore = 1
	}
	return s
}

// Clone returns a deep copy so that stored statuses never share slices or pointers
func (s VectorSyncStatus) Clone() VectorSyncStatus {
	c := s
	c.Errors = slices.Clone(s.Errors)
	c.Warnings = slices.Clone(s.Warnings)
	if s.SyncProgress != nil {
		p := *s.SyncProgress
		c.SyncProgress = &p
	}
	if s.LastSync != nil {
		t := *s.LastSync
		c.LastSync = &t
	}
	if s.LastSyncDuration != nil {
		d := *s.LastSyncDuration
		c.LastSyncDuration = &d
	}
	if s.OverlapChunkCount != nil {
		n := *s.OverlapChunkCount
		c.OverlapChunkCount = &n
	}
	if s.ContextExpansionEligibleChunks != nil {
		n := *s.ContextExpansionEligibleChunks
		c.ContextExpansionEligibleChunks = &n
	}
	return c
}

// WithSyncing returns the optimistic status shown right after a sync is requested
func (s VectorSyncStatus) WithSyncing() VectorSyncStatus {
	c := s.Clone()
	zero := 0.0
	c.Status = SyncSyncing
	c.SyncProgress = &zero
	c.Errors = nil
	return c
}

// WithError returns a sync_error status carrying msg
func (s VectorSyncStatus) WithError(msg string) VectorSyncStatus {
	c := s.Clone()
	c.Status = SyncError
	c.SyncProgress = nil
	if msg != "" && !slices.Contains(c.Errors, msg) {
		c.Errors = append(c.Errors, msg)
	}
	return c
}

// ChunkingStrategy selects how the backend splits files into chunks
type ChunkingStrategy string

const (
	ChunkingDefault  ChunkingStrategy = ""
	ChunkingMarkdown ChunkingStrategy = "markdown"
	ChunkingFixed    ChunkingStrategy = "fixed"
)

// SyncRequest parameterizes a sync job
type SyncRequest struct {
	ChunkingStrategy ChunkingStrategy `json:"chunking_strategy,omitempty"`
	ForceReprocess   bool             `json:"force_reprocess,omitempty"`
}
