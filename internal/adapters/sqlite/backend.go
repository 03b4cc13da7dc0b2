// Package sqlite implements ports.Gateway on a local SQLite database so
// ragdesk can run without the REST backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
	"ragdesk/internal/ports"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Backend is the offline gateway
type Backend struct {
	db     *sql.DB
	dbPath string

	http      *http.Client
	logger    *slog.Logger
	now       func() time.Time
	fileDelay time.Duration

	// sync jobs run under ctx and are awaited by Close
	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

var _ ports.Gateway = (*Backend)(nil)

// Option configures a Backend
type Option func(*Backend)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithHTTPClient sets the client used to crawl pages
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Backend) {
		b.http = hc
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// WithFileDelay pauses a sync job after each file
func WithFileDelay(d time.Duration) Option {
	return func(b *Backend) {
		b.fileDelay = d
	}
}

// Open opens or creates the database at dbPath
func Open(dbPath string, opts ...Option) (*Backend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes the request path and the sync jobs
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS files (
			collection TEXT NOT NULL,
			folder TEXT NOT NULL DEFAULT '',
			filename TEXT NOT NULL,
			content TEXT NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (collection, folder, filename)
		);
		CREATE TABLE IF NOT EXISTS sync_status (
			collection TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			progress REAL,
			job_id TEXT NOT NULL DEFAULT '',
			total_files INTEGER NOT NULL DEFAULT 0,
			synced_files INTEGER NOT NULL DEFAULT 0,
			errors TEXT NOT NULL DEFAULT '[]',
			warnings TEXT NOT NULL DEFAULT '[]',
			last_sync INTEGER,
			last_sync_duration REAL
		);
		CREATE TABLE IF NOT EXISTS chunks (
			collection TEXT NOT NULL,
			path TEXT NOT NULL,
			seq INTEGER NOT NULL,
			heading TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			overlap INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (collection, path, seq)
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_files_collection ON files(collection);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	b := &Backend{
		db:     db,
		dbPath: dbPath,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())

	if err := b.checkSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := b.recoverInterrupted(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to recover interrupted syncs: %w", err)
	}
	return b, nil
}

// Close stops running sync jobs and closes the database
func (b *Backend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cancel()
	b.jobs.Wait()
	return b.db.Close()
}

// Path returns the database file
func (b *Backend) Path() string {
	return b.dbPath
}

func (b *Backend) checkSchema() error {
	var version string
	err := b.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = b.db.Exec(`INSERT INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion)
		return err
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("unsupported database schema version %s (want %s)", version, schemaVersion)
	}
	return nil
}

// recoverInterrupted fails jobs that were running when the process exited
func (b *Backend) recoverInterrupted() error {
	errs, _ := json.Marshal([]string{"Sync was interrupted before it finished"})
	res, err := b.db.Exec(`
		UPDATE sync_status SET status = ?, progress = NULL, job_id = '', errors = ?
		WHERE status = ?
	`, domain.SyncError, string(errs), domain.SyncSyncing)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		b.logger.Warn("marked interrupted syncs as failed", slog.Int64("count", n))
	}
	return nil
}

func notFound(op, what string) error {
	return &application.GatewayError{Op: op, Kind: application.KindNotFound, Status: http.StatusNotFound, Message: what + " not found"}
}

func invalid(op string, status int, msg string) error {
	return &application.GatewayError{Op: op, Kind: application.KindValidation, Status: status, Message: msg}
}

func internal(op string, err error) error {
	if err == nil {
		return nil
	}
	var gwErr *application.GatewayError
	if errors.As(err, &gwErr) {
		return err
	}
	return &application.GatewayError{Op: op, Kind: application.KindUnknown, Err: err}
}

func validName(op, field, name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
		return invalid(op, http.StatusUnprocessableEntity, fmt.Sprintf("invalid %s: %q", field, name))
	}
	return nil
}

func cleanFolder(folder string) string {
	return strings.Trim(strings.TrimSpace(folder), "/")
}

func (b *Backend) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	const op = "list collections"
	rows, err := b.db.QueryContext(ctx, `
		SELECT c.name, c.description, c.created_at,
			COUNT(f.filename), COALESCE(SUM(LENGTH(CAST(f.content AS BLOB))), 0)
		FROM collections c
		LEFT JOIN files f ON f.collection = c.name
		GROUP BY c.name
		ORDER BY c.name
	`)
	if err != nil {
		return nil, internal(op, err)
	}
	var out []domain.Collection
	for rows.Next() {
		var c domain.Collection
		var created int64
		if err := rows.Scan(&c.Name, &c.Description, &created, &c.FileCount, &c.Metadata.TotalSize); err != nil {
			rows.Close()
			return nil, internal(op, err)
		}
		c.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, c)
	}
	if err := rows.Close(); err != nil {
		return nil, internal(op, err)
	}
	if err := rows.Err(); err != nil {
		return nil, internal(op, err)
	}

	folders, err := b.folderPaths(ctx, "")
	if err != nil {
		return nil, internal(op, err)
	}
	for i := range out {
		out[i].Folders = folders[out[i].Name]
	}
	return out, nil
}

// folderPaths returns every folder, parents included, per collection.
// An empty collection selects all collections.
func (b *Backend) folderPaths(ctx context.Context, collection string) (map[string][]string, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT DISTINCT collection, folder FROM files
		WHERE folder != '' AND (? = '' OR collection = ?)
	`, collection, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]map[string]bool)
	for rows.Next() {
		var coll, folder string
		if err := rows.Scan(&coll, &folder); err != nil {
			return nil, err
		}
		if seen[coll] == nil {
			seen[coll] = make(map[string]bool)
		}
		parts := strings.Split(folder, "/")
		for i := range parts {
			seen[coll][strings.Join(parts[:i+1], "/")] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(seen))
	for coll, set := range seen {
		paths := make([]string, 0, len(set))
		for p := range set {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		out[coll] = paths
	}
	return out, nil
}

func (b *Backend) CreateCollection(ctx context.Context, name, description string) (*domain.Collection, error) {
	const op = "create collection"
	name = strings.TrimSpace(name)
	if err := validName(op, "collection name", name); err != nil {
		return nil, err
	}
	created := b.now().UTC()
	err := b.withTx(ctx, func(tx *writeTx) error {
		exists, err := tx.collectionExists(name)
		if err != nil {
			return err
		}
		if exists {
			return invalid(op, http.StatusConflict, fmt.Sprintf("Collection %q already exists", name))
		}
		return tx.insertCollection(name, strings.TrimSpace(description), created)
	})
	if err != nil {
		return nil, internal(op, err)
	}
	b.logger.Info("collection created", slog.String("collection", name))
	return &domain.Collection{Name: name, Description: strings.TrimSpace(description), CreatedAt: created}, nil
}

func (b *Backend) DeleteCollection(ctx context.Context, name string) error {
	const op = "delete collection"
	err := b.withTx(ctx, func(tx *writeTx) error {
		if err := tx.requireCollection(op, name); err != nil {
			return err
		}
		return tx.deleteCollection(name)
	})
	if err != nil {
		return internal(op, err)
	}
	b.logger.Info("collection deleted", slog.String("collection", name))
	return nil
}

func (b *Backend) ListFiles(ctx context.Context, collection string) (*domain.FileListing, error) {
	const op = "list files"
	if err := b.requireCollection(ctx, op, collection); err != nil {
		return nil, err
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT filename, folder, created_at, LENGTH(CAST(content AS BLOB)), source_url
		FROM files WHERE collection = ?
		ORDER BY folder, filename
	`, collection)
	if err != nil {
		return nil, internal(op, err)
	}
	listing := &domain.FileListing{}
	for rows.Next() {
		var m domain.FileMetadata
		var created int64
		if err := rows.Scan(&m.Filename, &m.FolderPath, &created, &m.Size, &m.SourceURL); err != nil {
			rows.Close()
			return nil, internal(op, err)
		}
		m.CreatedAt = time.UnixMilli(created).UTC()
		listing.Files = append(listing.Files, m)
	}
	if err := rows.Close(); err != nil {
		return nil, internal(op, err)
	}
	if err := rows.Err(); err != nil {
		return nil, internal(op, err)
	}

	folders, err := b.folderPaths(ctx, collection)
	if err != nil {
		return nil, internal(op, err)
	}
	for _, p := range folders[collection] {
		_, name := domain.SplitFilePath(p)
		listing.Folders = append(listing.Folders, domain.Folder{Name: name, Path: p})
	}
	return listing, nil
}

func (b *Backend) ReadFile(ctx context.Context, collection, filename, folder string) (string, error) {
	const op = "read file"
	var content string
	err := b.db.QueryRowContext(ctx, `
		SELECT content FROM files WHERE collection = ? AND folder = ? AND filename = ?
	`, collection, cleanFolder(folder), filename).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound(op, "File")
	}
	if err != nil {
		return "", internal(op, err)
	}
	return content, nil
}

func (b *Backend) SaveFile(ctx context.Context, collection string, req domain.SaveFileRequest) (*domain.FileMetadata, error) {
	const op = "save file"
	if err := validName(op, "filename", req.Filename); err != nil {
		return nil, err
	}
	meta := domain.FileMetadata{
		Filename:   req.Filename,
		FolderPath: cleanFolder(req.Folder),
		CreatedAt:  b.now().UTC(),
		Size:       int64(len(req.Content)),
	}
	err := b.withTx(ctx, func(tx *writeTx) error {
		if err := tx.requireCollection(op, collection); err != nil {
			return err
		}
		exists, err := tx.fileExists(collection, meta.FolderPath, meta.Filename)
		if err != nil {
			return err
		}
		if exists {
			return invalid(op, http.StatusConflict, fmt.Sprintf("File %s already exists", domain.FilePath(meta.FolderPath, meta.Filename)))
		}
		if err := tx.upsertFile(collection, meta, req.Content); err != nil {
			return err
		}
		return tx.markOutOfSync(collection)
	})
	if err != nil {
		return nil, internal(op, err)
	}
	return &meta, nil
}

func (b *Backend) UpdateFile(ctx context.Context, collection, filename, folder, content string) error {
	const op = "update file"
	folder = cleanFolder(folder)
	err := b.withTx(ctx, func(tx *writeTx) error {
		n, err := tx.updateContent(collection, folder, filename, content)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound(op, "File")
		}
		return tx.markOutOfSync(collection)
	})
	return internal(op, err)
}

func (b *Backend) DeleteFile(ctx context.Context, collection, filename, folder string) error {
	const op = "delete file"
	folder = cleanFolder(folder)
	err := b.withTx(ctx, func(tx *writeTx) error {
		n, err := tx.deleteFile(collection, folder, filename)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound(op, "File")
		}
		return tx.markOutOfSync(collection)
	})
	return internal(op, err)
}

func (b *Backend) requireCollection(ctx context.Context, op, name string) error {
	var one int
	err := b.db.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(op, "Collection")
	}
	if err != nil {
		return internal(op, err)
	}
	return nil
}
