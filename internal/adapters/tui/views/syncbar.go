package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"ragdesk/internal/adapters/tui/styles"
	"ragdesk/internal/domain"
)

// SyncLabel is the short human label of a sync status
func SyncLabel(st domain.VectorSyncStatus) string {
	var label string
	switch st.Status {
	case domain.SyncInSync:
		label = "in sync"
	case domain.SyncOutOfSync:
		label = "out of sync"
	case domain.SyncSyncing:
		label = fmt.Sprintf("syncing %d%%", int(st.Progress()*100))
	case domain.SyncError:
		label = "sync error"
	case domain.SyncPartial:
		label = "partially synced"
	default:
		label = "never synced"
	}
	if !st.SyncEnabled {
		label += " (disabled)"
	}
	return label
}

// RenderSyncBar renders the sync line of the selected collection
func RenderSyncBar(st domain.VectorSyncStatus, width int, now time.Time) string {
	label := lipgloss.NewStyle().Foreground(styles.SyncColor(st.Status)).Bold(true).Render(SyncLabel(st))
	parts := []string{label}

	if st.IsSyncing() {
		bar := progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(max(min(width/3, 40), 10)),
		)
		parts = append(parts, bar.ViewAs(st.Progress()))
		if st.TotalFiles > 0 {
			parts = append(parts, fmt.Sprintf("%d/%d files", st.SyncedFiles, st.TotalFiles))
		}
	} else {
		parts = append(parts, fmt.Sprintf("%s chunks", humanize.Comma(int64(st.ChunkCount))))
		if st.LastSync != nil {
			parts = append(parts, "synced "+humanize.RelTime(*st.LastSync, now, "ago", "from now"))
		}
		if st.ChangedFilesCount > 0 {
			parts = append(parts, fmt.Sprintf("%d changed", st.ChangedFilesCount))
		}
	}
	if n := len(st.Warnings); n > 0 {
		parts = append(parts, styles.Modified.Render(fmt.Sprintf("%d warnings", n)))
	}
	if n := len(st.Errors); n > 0 {
		parts = append(parts, styles.ErrorMsg.Render(st.Errors[n-1]))
	}
	return strings.Join(parts, styles.HelpSeparator.String())
}
