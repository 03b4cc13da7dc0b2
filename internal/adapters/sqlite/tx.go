package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ragdesk/internal/domain"
)

// errSuperseded stops a sync job whose id was replaced or cleared
var errSuperseded = errors.New("sync job superseded")

// writeTx groups the statements of one mutation
type writeTx struct {
	tx  *sql.Tx
	now time.Time
}

// withTx runs fn in a transaction and commits when it returns nil
func (b *Backend) withTx(ctx context.Context, fn func(*writeTx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&writeTx{tx: tx, now: b.now().UTC()}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (t *writeTx) collectionExists(name string) (bool, error) {
	var one int
	err := t.tx.QueryRow(`SELECT 1 FROM collections WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (t *writeTx) requireCollection(op, name string) error {
	ok, err := t.collectionExists(name)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(op, "Collection")
	}
	return nil
}

// insertCollection adds the collection and its never_synced status
func (t *writeTx) insertCollection(name, description string, created time.Time) error {
	if _, err := t.tx.Exec(`
		INSERT INTO collections (name, description, created_at) VALUES (?, ?, ?)
	`, name, description, created.UnixMilli()); err != nil {
		return err
	}
	_, err := t.tx.Exec(`
		INSERT OR REPLACE INTO sync_status (collection, status) VALUES (?, ?)
	`, name, domain.SyncNeverSynced)
	return err
}

func (t *writeTx) deleteCollection(name string) error {
	for _, stmt := range []string{
		`DELETE FROM chunks WHERE collection = ?`,
		`DELETE FROM files WHERE collection = ?`,
		`DELETE FROM sync_status WHERE collection = ?`,
		`DELETE FROM collections WHERE name = ?`,
	} {
		if _, err := t.tx.Exec(stmt, name); err != nil {
			return err
		}
	}
	return nil
}

func (t *writeTx) fileExists(collection, folder, filename string) (bool, error) {
	var one int
	err := t.tx.QueryRow(`
		SELECT 1 FROM files WHERE collection = ? AND folder = ? AND filename = ?
	`, collection, folder, filename).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// upsertFile writes a file, keeping created_at of an existing row
func (t *writeTx) upsertFile(collection string, meta domain.FileMetadata, content string) error {
	_, err := t.tx.Exec(`
		INSERT INTO files (collection, folder, filename, content, source_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, folder, filename) DO UPDATE SET
			content = excluded.content,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at
	`, collection, meta.FolderPath, meta.Filename, content, meta.SourceURL, meta.CreatedAt.UnixMilli(), t.now.UnixMilli())
	return err
}

func (t *writeTx) updateContent(collection, folder, filename, content string) (int64, error) {
	res, err := t.tx.Exec(`
		UPDATE files SET content = ?, updated_at = ?
		WHERE collection = ? AND folder = ? AND filename = ?
	`, content, t.now.UnixMilli(), collection, folder, filename)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// deleteFile removes the file and its chunks
func (t *writeTx) deleteFile(collection, folder, filename string) (int64, error) {
	res, err := t.tx.Exec(`
		DELETE FROM files WHERE collection = ? AND folder = ? AND filename = ?
	`, collection, folder, filename)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return n, err
	}
	_, err = t.tx.Exec(`DELETE FROM chunks WHERE collection = ? AND path = ?`,
		collection, domain.FilePath(folder, filename))
	return n, err
}

// markOutOfSync flags content changes made after a finished sync
func (t *writeTx) markOutOfSync(collection string) error {
	_, err := t.tx.Exec(`
		UPDATE sync_status SET status = ?
		WHERE collection = ? AND status IN (?, ?)
	`, domain.SyncOutOfSync, collection, domain.SyncInSync, domain.SyncPartial)
	return err
}

// requireJob fails with errSuperseded unless jobID is the current job
func (t *writeTx) requireJob(collection, jobID string) error {
	var one int
	err := t.tx.QueryRow(`
		SELECT 1 FROM sync_status WHERE collection = ? AND job_id = ?
	`, collection, jobID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errSuperseded
	}
	return err
}

// replaceChunks swaps the chunks stored for one file
func (t *writeTx) replaceChunks(collection, path string, chunks []chunk) error {
	if _, err := t.tx.Exec(`DELETE FROM chunks WHERE collection = ? AND path = ?`, collection, path); err != nil {
		return err
	}
	for i, c := range chunks {
		if _, err := t.tx.Exec(`
			INSERT INTO chunks (collection, path, seq, heading, content, overlap)
			VALUES (?, ?, ?, ?, ?, ?)
		`, collection, path, i, c.Heading, c.Content, c.Overlap); err != nil {
			return err
		}
	}
	return nil
}
