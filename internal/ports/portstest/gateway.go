// Package portstest provides an in-memory ports.Gateway for tests.
package portstest

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
	"ragdesk/internal/ports"
)

// Operation names accepted by FailOn and Calls
const (
	OpListCollections  = "ListCollections"
	OpCreateCollection = "CreateCollection"
	OpDeleteCollection = "DeleteCollection"
	OpListFiles        = "ListFiles"
	OpReadFile         = "ReadFile"
	OpSaveFile         = "SaveFile"
	OpUpdateFile       = "UpdateFile"
	OpDeleteFile       = "DeleteFile"
	OpCrawl            = "CrawlToCollection"
	OpGetSyncStatus    = "GetSyncStatus"
	OpListSyncStatuses = "ListSyncStatuses"
	OpSyncCollection   = "SyncCollection"
	OpEnableSync       = "EnableSync"
	OpDisableSync      = "DisableSync"
	OpDeleteVectors    = "DeleteVectors"
)

type storedFile struct {
	meta    domain.FileMetadata
	content string
}

// Gateway is a thread-safe in-memory backend
type Gateway struct {
	mu          sync.Mutex
	collections map[string]domain.Collection
	files       map[string]map[string]storedFile
	statuses    map[string]domain.VectorSyncStatus
	queued      map[string][]domain.VectorSyncStatus
	errs        map[string]error
	calls       map[string]int
	statusCalls map[string]int

	// SaveFileHook, when set, is called with the 1-based SaveFile call
	// number; a non-nil result fails that call.
	SaveFileHook func(call int, req domain.SaveFileRequest) error

	// Now supplies timestamps for created records
	Now func() time.Time
}

var _ ports.Gateway = (*Gateway)(nil)

// New creates an empty gateway
func New() *Gateway {
	return &Gateway{
		collections: make(map[string]domain.Collection),
		files:       make(map[string]map[string]storedFile),
		statuses:    make(map[string]domain.VectorSyncStatus),
		queued:      make(map[string][]domain.VectorSyncStatus),
		errs:        make(map[string]error),
		calls:       make(map[string]int),
		statusCalls: make(map[string]int),
		Now:         time.Now,
	}
}

// AddCollection seeds a collection
func (g *Gateway) AddCollection(c domain.Collection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.collections[c.Name] = c
	if g.files[c.Name] == nil {
		g.files[c.Name] = make(map[string]storedFile)
	}
}

// PutFile seeds a file
func (g *Gateway) PutFile(collection, folder, name, content string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.putLocked(collection, folder, name, content, "")
}

// SetStatus sets the status returned once queued statuses are exhausted
func (g *Gateway) SetStatus(collection string, s domain.VectorSyncStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[collection] = s
}

// QueueStatuses makes GetSyncStatus return each status in turn; the last
// one keeps being returned afterwards.
func (g *Gateway) QueueStatuses(collection string, statuses ...domain.VectorSyncStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queued[collection] = append(g.queued[collection], statuses...)
}

// FailOn makes op fail with err; a nil err clears the failure
func (g *Gateway) FailOn(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.errs, op)
		return
	}
	g.errs[op] = err
}

// Calls returns how often op was invoked
func (g *Gateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// StatusCalls returns how often GetSyncStatus was invoked for collection
func (g *Gateway) StatusCalls(collection string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusCalls[collection]
}

// Content returns a stored file's content
func (g *Gateway) Content(collection, p string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.files[collection][p]
	return f.content, ok
}

func (g *Gateway) begin(op string) error {
	g.mu.Lock()
	g.calls[op]++
	return g.errs[op]
}

func notFound(op, what string) error {
	return &application.GatewayError{Op: op, Kind: application.KindNotFound, Status: 404, Message: what + " not found"}
}

func (g *Gateway) putLocked(collection, folder, name, content, source string) domain.FileMetadata {
	if g.files[collection] == nil {
		g.files[collection] = make(map[string]storedFile)
	}
	meta := domain.FileMetadata{
		Filename:   name,
		FolderPath: strings.Trim(folder, "/"),
		CreatedAt:  g.Now(),
		Size:       int64(len(content)),
		SourceURL:  source,
	}
	p := domain.FilePath(folder, name)
	_, existed := g.files[collection][p]
	g.files[collection][p] = storedFile{meta: meta, content: content}
	if c, ok := g.collections[collection]; ok && !existed {
		c.FileCount++
		c.Metadata.TotalSize += meta.Size
		g.collections[collection] = c
	}
	return meta
}

func (g *Gateway) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	err := g.begin(OpListCollections)
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Collection, 0, len(g.collections))
	for _, c := range g.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *Gateway) CreateCollection(ctx context.Context, name, description string) (*domain.Collection, error) {
	err := g.begin(OpCreateCollection)
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if _, ok := g.collections[name]; ok {
		return nil, &application.GatewayError{Op: "create collection", Kind: application.KindValidation, Status: 409, Message: "collection already exists"}
	}
	c := domain.Collection{Name: name, Description: description, CreatedAt: g.Now()}
	g.collections[name] = c
	g.files[name] = make(map[string]storedFile)
	return &c, nil
}

func (g *Gateway) DeleteCollection(ctx context.Context, name string) error {
	err := g.begin(OpDeleteCollection)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	if _, ok := g.collections[name]; !ok {
		return notFound("delete collection", name)
	}
	delete(g.collections, name)
	delete(g.files, name)
	delete(g.statuses, name)
	return nil
}

func (g *Gateway) ListFiles(ctx context.Context, collection string) (*domain.FileListing, error) {
	err := g.begin(OpListFiles)
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	files, ok := g.files[collection]
	if !ok {
		return nil, notFound("list files", collection)
	}
	listing := &domain.FileListing{}
	folders := map[string]bool{}
	for _, f := range files {
		listing.Files = append(listing.Files, f.meta)
		if f.meta.FolderPath != "" && !folders[f.meta.FolderPath] {
			folders[f.meta.FolderPath] = true
			listing.Folders = append(listing.Folders, domain.Folder{Name: path.Base(f.meta.FolderPath), Path: f.meta.FolderPath})
		}
	}
	sort.Slice(listing.Files, func(i, j int) bool {
		return domain.FilePath(listing.Files[i].FolderPath, listing.Files[i].Filename) <
			domain.FilePath(listing.Files[j].FolderPath, listing.Files[j].Filename)
	})
	return listing, nil
}

func (g *Gateway) ReadFile(ctx context.Context, collection, filename, folder string) (string, error) {
	err := g.begin(OpReadFile)
	defer g.mu.Unlock()
	if err != nil {
		return "", err
	}
	f, ok := g.files[collection][domain.FilePath(folder, filename)]
	if !ok {
		return "", notFound("read file", filename)
	}
	return f.content, nil
}

func (g *Gateway) SaveFile(ctx context.Context, collection string, req domain.SaveFileRequest) (*domain.FileMetadata, error) {
	err := g.begin(OpSaveFile)
	call := g.calls[OpSaveFile]
	hook := g.SaveFileHook
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		if err := hook(call, req); err != nil {
			return nil, err
		}
	}
	if _, ok := g.collections[collection]; !ok {
		return nil, notFound("save file", collection)
	}
	meta := g.putLocked(collection, req.Folder, req.Filename, req.Content, "")
	return &meta, nil
}

func (g *Gateway) UpdateFile(ctx context.Context, collection, filename, folder, content string) error {
	err := g.begin(OpUpdateFile)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	p := domain.FilePath(folder, filename)
	f, ok := g.files[collection][p]
	if !ok {
		return notFound("update file", filename)
	}
	f.content = content
	f.meta.Size = int64(len(content))
	g.files[collection][p] = f
	return nil
}

func (g *Gateway) DeleteFile(ctx context.Context, collection, filename, folder string) error {
	err := g.begin(OpDeleteFile)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	p := domain.FilePath(folder, filename)
	if _, ok := g.files[collection][p]; !ok {
		return notFound("delete file", filename)
	}
	delete(g.files[collection], p)
	if c, ok := g.collections[collection]; ok && c.FileCount > 0 {
		c.FileCount--
		g.collections[collection] = c
	}
	return nil
}

func (g *Gateway) CrawlToCollection(ctx context.Context, collection string, req domain.CrawlRequest) (*domain.CrawlResult, error) {
	err := g.begin(OpCrawl)
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if _, ok := g.collections[collection]; !ok {
		return nil, notFound("crawl", collection)
	}
	u, perr := url.Parse(req.URL)
	if perr != nil {
		return nil, &application.GatewayError{Op: "crawl", Kind: application.KindValidation, Err: perr}
	}
	name := strings.Trim(strings.ReplaceAll(u.Host+u.Path, "/", "_"), "_") + ".md"
	content := fmt.Sprintf("# %s\n\ncrawled content", req.URL)
	meta := g.putLocked(collection, req.Folder, name, content, req.URL)
	return &domain.CrawlResult{Filename: name, URL: req.URL, Folder: meta.FolderPath, ContentLength: meta.Size}, nil
}

func (g *Gateway) GetSyncStatus(ctx context.Context, collection string) (*domain.VectorSyncStatus, error) {
	err := g.begin(OpGetSyncStatus)
	g.statusCalls[collection]++
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if q := g.queued[collection]; len(q) > 0 {
		s := q[0]
		if len(q) > 1 {
			g.queued[collection] = q[1:]
		} else {
			delete(g.queued, collection)
		}
		g.statuses[collection] = s
	}
	s, ok := g.statuses[collection]
	if !ok {
		if _, exists := g.collections[collection]; !exists {
			return nil, notFound("get sync status", collection)
		}
		s = domain.NewVectorSyncStatus()
	}
	c := s.Clone()
	return &c, nil
}

func (g *Gateway) ListSyncStatuses(ctx context.Context) (map[string]domain.VectorSyncStatus, error) {
	err := g.begin(OpListSyncStatuses)
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.VectorSyncStatus, len(g.collections))
	for name := range g.collections {
		s, ok := g.statuses[name]
		if !ok {
			s = domain.NewVectorSyncStatus()
		}
		out[name] = s.Clone()
	}
	return out, nil
}

func (g *Gateway) SyncCollection(ctx context.Context, collection string, req domain.SyncRequest) error {
	err := g.begin(OpSyncCollection)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	if _, ok := g.collections[collection]; !ok {
		return notFound("sync collection", collection)
	}
	if len(g.queued[collection]) == 0 {
		g.statuses[collection] = g.statusLocked(collection).WithSyncing()
	}
	return nil
}

func (g *Gateway) statusLocked(collection string) domain.VectorSyncStatus {
	if s, ok := g.statuses[collection]; ok {
		return s
	}
	return domain.NewVectorSyncStatus()
}

func (g *Gateway) EnableSync(ctx context.Context, collection string) error {
	return g.setEnabled(OpEnableSync, collection, true)
}

func (g *Gateway) DisableSync(ctx context.Context, collection string) error {
	return g.setEnabled(OpDisableSync, collection, false)
}

func (g *Gateway) setEnabled(op, collection string, enabled bool) error {
	err := g.begin(op)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	s := g.statusLocked(collection)
	s.SyncEnabled = enabled
	g.statuses[collection] = s
	return nil
}

func (g *Gateway) DeleteVectors(ctx context.Context, collection string) error {
	err := g.begin(OpDeleteVectors)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	s := domain.NewVectorSyncStatus()
	s.SyncEnabled = g.statusLocked(collection).SyncEnabled
	g.statuses[collection] = s
	delete(g.queued, collection)
	return nil
}
