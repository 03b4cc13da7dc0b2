package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ragdesk/internal/domain"
)

// statusQuery reads a sync_status row together with the chunk and file
// aggregates the status reports.
const statusQuery = `
	SELECT s.collection, s.status, s.enabled, s.progress, s.total_files, s.synced_files,
		s.errors, s.warnings, s.last_sync, s.last_sync_duration,
		(SELECT COUNT(*) FROM chunks c WHERE c.collection = s.collection),
		(SELECT COUNT(*) FROM chunks c WHERE c.collection = s.collection AND c.overlap = 1),
		(SELECT COUNT(*) FROM chunks c WHERE c.collection = s.collection AND c.heading != ''),
		(SELECT COUNT(*) FROM files f WHERE f.collection = s.collection
			AND f.updated_at > COALESCE(s.last_sync, -1))
	FROM sync_status s`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (string, domain.VectorSyncStatus, error) {
	var (
		name               string
		st                 domain.VectorSyncStatus
		progress, duration sql.NullFloat64
		lastSync           sql.NullInt64
		errs, warns        string
		overlap, eligible  int
	)
	err := row.Scan(&name, &st.Status, &st.SyncEnabled, &progress, &st.TotalFiles, &st.SyncedFiles,
		&errs, &warns, &lastSync, &duration,
		&st.ChunkCount, &overlap, &eligible, &st.ChangedFilesCount)
	if err != nil {
		return "", st, err
	}
	if progress.Valid {
		st.SyncProgress = &progress.Float64
	}
	if duration.Valid {
		st.LastSyncDuration = &duration.Float64
	}
	if lastSync.Valid {
		t := time.UnixMilli(lastSync.Int64).UTC()
		st.LastSync = &t
	}
	_ = json.Unmarshal([]byte(errs), &st.Errors)
	_ = json.Unmarshal([]byte(warns), &st.Warnings)
	st.EnhancedFeaturesEnabled = true
	st.OverlapChunkCount = &overlap
	st.ContextExpansionEligibleChunks = &eligible
	st.SyncHealthScore = healthScore(st)
	return name, st.Normalize(), nil
}

// healthScore is the share of files embedded without errors
func healthScore(st domain.VectorSyncStatus) float64 {
	switch st.Status {
	case domain.SyncInSync:
		return 1
	case domain.SyncNeverSynced, domain.SyncError:
		return 0
	}
	if st.TotalFiles == 0 {
		return 0
	}
	return float64(st.SyncedFiles-len(st.Errors)) / float64(st.TotalFiles)
}

func (b *Backend) GetSyncStatus(ctx context.Context, collection string) (*domain.VectorSyncStatus, error) {
	const op = "get sync status"
	_, st, err := scanStatus(b.db.QueryRowContext(ctx, statusQuery+` WHERE s.collection = ?`, collection))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, "Collection")
	}
	if err != nil {
		return nil, internal(op, err)
	}
	return &st, nil
}

func (b *Backend) ListSyncStatuses(ctx context.Context) (map[string]domain.VectorSyncStatus, error) {
	const op = "list sync statuses"
	rows, err := b.db.QueryContext(ctx, statusQuery)
	if err != nil {
		return nil, internal(op, err)
	}
	defer rows.Close()

	out := make(map[string]domain.VectorSyncStatus)
	for rows.Next() {
		name, st, err := scanStatus(rows)
		if err != nil {
			return nil, internal(op, err)
		}
		out[name] = st
	}
	if err := rows.Err(); err != nil {
		return nil, internal(op, err)
	}
	return out, nil
}

func (b *Backend) EnableSync(ctx context.Context, collection string) error {
	return b.setEnabled(ctx, "enable sync", collection, true)
}

func (b *Backend) DisableSync(ctx context.Context, collection string) error {
	return b.setEnabled(ctx, "disable sync", collection, false)
}

func (b *Backend) setEnabled(ctx context.Context, op, collection string, enabled bool) error {
	res, err := b.db.ExecContext(ctx, `UPDATE sync_status SET enabled = ? WHERE collection = ?`, enabled, collection)
	if err != nil {
		return internal(op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(op, "Collection")
	}
	return nil
}

// DeleteVectors drops all chunks and resets the status. A running job
// loses its job id and stops at its next progress update.
func (b *Backend) DeleteVectors(ctx context.Context, collection string) error {
	const op = "delete vectors"
	err := b.withTx(ctx, func(tx *writeTx) error {
		if err := tx.requireCollection(op, collection); err != nil {
			return err
		}
		if _, err := tx.tx.Exec(`DELETE FROM chunks WHERE collection = ?`, collection); err != nil {
			return err
		}
		_, err := tx.tx.Exec(`
			UPDATE sync_status SET status = ?, progress = NULL, job_id = '',
				total_files = 0, synced_files = 0, errors = '[]', warnings = '[]',
				last_sync = NULL, last_sync_duration = NULL
			WHERE collection = ?
		`, domain.SyncNeverSynced, collection)
		return err
	})
	return internal(op, err)
}

// SyncCollection starts a background job and returns once it is accepted
func (b *Backend) SyncCollection(ctx context.Context, collection string, req domain.SyncRequest) error {
	const op = "sync collection"
	jobID := uuid.NewString()
	var since *time.Time
	err := b.withTx(ctx, func(tx *writeTx) error {
		var (
			state    domain.SyncState
			enabled  bool
			lastSync sql.NullInt64
		)
		err := tx.tx.QueryRow(`SELECT status, enabled, last_sync FROM sync_status WHERE collection = ?`, collection).
			Scan(&state, &enabled, &lastSync)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(op, "Collection")
		}
		if err != nil {
			return err
		}
		if !enabled {
			return invalid(op, http.StatusConflict, "Vector sync is disabled for this collection")
		}
		if state == domain.SyncSyncing {
			return invalid(op, http.StatusConflict, "A sync is already running for this collection")
		}
		if lastSync.Valid && !req.ForceReprocess {
			t := time.UnixMilli(lastSync.Int64)
			since = &t
		}
		_, err = tx.tx.Exec(`
			UPDATE sync_status SET status = ?, progress = 0, job_id = ?,
				total_files = (SELECT COUNT(*) FROM files WHERE collection = ?),
				synced_files = 0, errors = '[]', warnings = '[]'
			WHERE collection = ?
		`, domain.SyncSyncing, jobID, collection, collection)
		return err
	})
	if err != nil {
		return internal(op, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return internal(op, errors.New("backend is closed"))
	}
	b.logger.Info("sync job started",
		slog.String("collection", collection),
		slog.String("job", jobID),
		slog.Bool("force", req.ForceReprocess))
	b.jobs.Add(1)
	go b.runSync(jobID, collection, req, since)
	return nil
}

type syncFile struct {
	path      string
	content   string
	updatedAt time.Time
}

// runSync chunks every file of the collection, advancing progress per file.
// Files unchanged since the last sync keep their chunks unless the request
// forces reprocessing.
func (b *Backend) runSync(jobID, collection string, req domain.SyncRequest, since *time.Time) {
	defer b.jobs.Done()
	ctx := b.ctx
	logger := b.logger.With(slog.String("collection", collection), slog.String("job", jobID))
	start := b.now()

	files, err := b.syncFiles(ctx, collection)
	if err != nil {
		b.finishSync(jobID, collection, start, 0, []string{err.Error()}, nil)
		return
	}
	if err := b.dropStaleChunks(ctx, jobID, collection, files, req.ForceReprocess); err != nil {
		if errors.Is(err, errSuperseded) {
			return
		}
		b.finishSync(jobID, collection, start, 0, []string{err.Error()}, nil)
		return
	}

	var errs, warnings []string
	synced := 0
	for i, f := range files {
		if since == nil || f.updatedAt.After(*since) {
			chunks := chunkDocument(f.path, f.content, req.ChunkingStrategy)
			if len(chunks) == 0 {
				warnings = append(warnings, fmt.Sprintf("%s: empty file, nothing to embed", f.path))
			}
			err := b.withTx(ctx, func(tx *writeTx) error {
				if err := tx.requireJob(collection, jobID); err != nil {
					return err
				}
				return tx.replaceChunks(collection, f.path, chunks)
			})
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, errSuperseded) {
					logger.Info("sync job stopped", slog.String("reason", err.Error()))
					return
				}
				errs = append(errs, fmt.Sprintf("%s: %v", f.path, err))
			}
		}
		synced++

		if b.fileDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.fileDelay):
			}
		}

		progress := float64(i+1) / float64(len(files))
		current, err := b.advance(ctx, jobID, collection, progress, synced)
		if err != nil {
			logger.Warn("failed to record sync progress", slog.String("error", err.Error()))
		}
		if !current {
			logger.Info("sync job superseded")
			return
		}
	}

	b.finishSync(jobID, collection, start, synced, errs, warnings)
	logger.Info("sync job finished",
		slog.Int("files", len(files)),
		slog.Int("errors", len(errs)),
		slog.Int("warnings", len(warnings)))
}

func (b *Backend) syncFiles(ctx context.Context, collection string) ([]syncFile, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT folder, filename, content, updated_at FROM files
		WHERE collection = ? ORDER BY folder, filename
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []syncFile
	for rows.Next() {
		var folder, name, content string
		var updated int64
		if err := rows.Scan(&folder, &name, &content, &updated); err != nil {
			return nil, err
		}
		files = append(files, syncFile{
			path:      domain.FilePath(folder, name),
			content:   content,
			updatedAt: time.UnixMilli(updated),
		})
	}
	return files, rows.Err()
}

// dropStaleChunks removes chunks of deleted files, or all chunks when forced
func (b *Backend) dropStaleChunks(ctx context.Context, jobID, collection string, files []syncFile, force bool) error {
	return b.withTx(ctx, func(tx *writeTx) error {
		if err := tx.requireJob(collection, jobID); err != nil {
			return err
		}
		if force {
			_, err := tx.tx.Exec(`DELETE FROM chunks WHERE collection = ?`, collection)
			return err
		}
		rows, err := tx.tx.Query(`SELECT DISTINCT path FROM chunks WHERE collection = ?`, collection)
		if err != nil {
			return err
		}
		live := make(map[string]bool, len(files))
		for _, f := range files {
			live[f.path] = true
		}
		var stale []string
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				rows.Close()
				return err
			}
			if !live[p] {
				stale = append(stale, p)
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}
		for _, p := range stale {
			if _, err := tx.tx.Exec(`DELETE FROM chunks WHERE collection = ? AND path = ?`, collection, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// advance records progress; false means the job is no longer current
func (b *Backend) advance(ctx context.Context, jobID, collection string, progress float64, synced int) (bool, error) {
	res, err := b.db.ExecContext(ctx, `
		UPDATE sync_status SET progress = ?, synced_files = ?
		WHERE collection = ? AND job_id = ?
	`, progress, synced, collection, jobID)
	if err != nil {
		return ctx.Err() == nil, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (b *Backend) finishSync(jobID, collection string, start time.Time, synced int, errs, warnings []string) {
	state := domain.SyncInSync
	switch {
	case len(errs) > 0 && synced == 0:
		state = domain.SyncError
	case len(errs) > 0 || len(warnings) > 0:
		state = domain.SyncPartial
	}
	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	errJSON, _ := json.Marshal(errs)
	warnJSON, _ := json.Marshal(warnings)
	end := b.now()

	// last_sync is the job start: edits made while the job ran count as
	// changes. Not bound to the job context so a closing backend still
	// records the result.
	_, err := b.db.Exec(`
		UPDATE sync_status SET status = ?, progress = NULL, job_id = '',
			synced_files = ?, errors = ?, warnings = ?,
			last_sync = ?, last_sync_duration = ?
		WHERE collection = ? AND job_id = ?
	`, state, synced, string(errJSON), string(warnJSON),
		start.UnixMilli(), end.Sub(start).Seconds(), collection, jobID)
	if err == nil && state != domain.SyncError {
		_, err = b.db.Exec(`
			UPDATE sync_status SET status = ?
			WHERE collection = ? AND last_sync = ? AND status = ? AND EXISTS (
				SELECT 1 FROM files WHERE collection = ? AND updated_at > ?
			)
		`, domain.SyncOutOfSync, collection, start.UnixMilli(), state, collection, start.UnixMilli())
	}
	if err != nil {
		b.logger.Error("failed to record sync result",
			slog.String("collection", collection),
			slog.String("error", err.Error()))
	}
}
