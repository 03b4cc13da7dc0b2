// Package collections orchestrates backend calls for collections, files
// and crawls around store actions.
package collections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
	"ragdesk/internal/ports"
	"ragdesk/internal/store"
)

// Operations runs collection and file operations against the gateway and
// records their results in the store. Failures are reported through the
// store's error banner and returned to the caller.
type Operations struct {
	gw     ports.Gateway
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time

	onChange func(collection string)

	// openGen identifies the latest OpenFile call; older responses are dropped.
	openGen atomic.Uint64
	saving  atomic.Bool
}

// Option configures Operations
type Option func(*Operations)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Operations) {
		o.logger = logger
	}
}

// WithClock sets the time source used for crawl timestamps and file names
func WithClock(now func() time.Time) Option {
	return func(o *Operations) {
		o.now = now
	}
}

// WithChangeHook registers fn to run after a collection was created or its
// content changed
func WithChangeHook(fn func(collection string)) Option {
	return func(o *Operations) {
		o.onChange = fn
	}
}

// New creates Operations
func New(gw ports.Gateway, st *store.Store, opts ...Option) *Operations {
	o := &Operations{
		gw:     gw,
		store:  st,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateCollectionRequest describes a new collection
type CreateCollectionRequest struct {
	Name        string
	Description string
}

// Validate checks the request
func (r CreateCollectionRequest) Validate() error {
	return application.ValidateCollectionName(r.Name)
}

// BatchResult summarizes AddMultiplePagesToCollection
type BatchResult struct {
	SavedCount int
	Errors     []string
}

func (o *Operations) loading(key store.LoadingKey) func() {
	o.store.Dispatch(store.SetLoading{Key: key, Value: true})
	return func() {
		o.store.Dispatch(store.SetLoading{Key: key, Value: false})
	}
}

func (o *Operations) fail(op string, err error) error {
	o.logger.Error(op+" failed", "error", err)
	o.store.Dispatch(store.SetError{Message: application.UserMessage(err)})
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (o *Operations) changed(collection string) {
	if o.onChange != nil {
		o.onChange(collection)
	}
}

// LoadCollections replaces the collection list. A selected collection that
// no longer exists is deselected.
func (o *Operations) LoadCollections(ctx context.Context) ([]domain.Collection, error) {
	defer o.loading(store.LoadingCollections)()

	list, err := o.gw.ListCollections(ctx)
	if err != nil {
		return nil, o.fail("load collections", err)
	}
	o.applyCollections(list)
	return list, nil
}

func (o *Operations) applyCollections(list []domain.Collection) {
	o.store.Dispatch(store.SetCollections{Collections: list})

	st := o.store.State()
	if st.SelectedCollection == "" {
		return
	}
	if _, ok := st.Collection(st.SelectedCollection); !ok {
		o.store.Dispatch(store.SelectCollection{Name: ""})
		o.store.Dispatch(store.SetFiles{})
		o.store.Dispatch(store.CloseFile{})
	}
}

// CreateCollection creates a collection and closes the new-collection dialog
func (o *Operations) CreateCollection(ctx context.Context, req CreateCollectionRequest) (*domain.Collection, error) {
	if err := req.Validate(); err != nil {
		return nil, o.fail("create collection", err)
	}
	defer o.loading(store.LoadingCollections)()

	c, err := o.gw.CreateCollection(ctx, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		return nil, o.fail("create collection", err)
	}
	o.store.Dispatch(store.AddCollection{Collection: *c})
	o.closeModal(store.NewCollectionModal{})
	o.logger.Info("collection created", "collection", c.Name)
	o.changed(c.Name)
	return c, nil
}

// DeleteCollection deletes a collection and everything in it
func (o *Operations) DeleteCollection(ctx context.Context, name string) error {
	if err := application.ValidateRequired("collectionName", name); err != nil {
		return o.fail("delete collection", err)
	}
	defer o.loading(store.LoadingCollections)()

	if err := o.gw.DeleteCollection(ctx, name); err != nil {
		return o.fail("delete collection", err)
	}
	o.store.Dispatch(store.RemoveCollection{Name: name})
	o.store.Dispatch(store.CloseDeleteConfirmation{})
	o.logger.Info("collection deleted", "collection", name)
	return nil
}

// SelectCollection selects a collection and loads its files. An empty
// name clears the selection and the file list.
func (o *Operations) SelectCollection(ctx context.Context, name string) error {
	prev := o.store.State().SelectedCollection
	o.store.Dispatch(store.SelectCollection{Name: name})
	if name != prev {
		o.store.Dispatch(store.SetFiles{})
		o.store.Dispatch(store.CloseFile{})
		o.store.Dispatch(store.SetSearchTerm{})
	}
	if name == "" {
		return nil
	}
	return o.loadFiles(ctx, name)
}

// RefreshFiles reloads the file list of the selected collection
func (o *Operations) RefreshFiles(ctx context.Context) error {
	name := o.store.State().SelectedCollection
	if name == "" {
		return nil
	}
	return o.loadFiles(ctx, name)
}

func (o *Operations) loadFiles(ctx context.Context, name string) error {
	defer o.loading(store.LoadingFiles)()

	listing, err := o.gw.ListFiles(ctx, name)
	if err != nil {
		return o.fail("load files", err)
	}
	if o.store.State().SelectedCollection != name {
		o.logger.Debug("discarding file list for deselected collection", "collection", name)
		return nil
	}
	o.store.Dispatch(store.SetFiles{Files: listing.FileNodes(), Folders: listing.Folders})
	return nil
}

// SaveFile creates a file and opens it in the editor
func (o *Operations) SaveFile(ctx context.Context, collection string, req domain.SaveFileRequest) (*domain.FileMetadata, error) {
	req.Filename = strings.TrimSpace(req.Filename)
	req.Folder = strings.Trim(req.Folder, "/")
	if err := errors.Join(
		application.ValidateRequired("collectionName", collection),
		application.ValidateFilename(req.Filename),
		application.ValidateFolder(req.Folder),
	); err != nil {
		return nil, o.fail("save file", firstError(err))
	}
	defer o.loading(store.LoadingFiles)()

	meta, err := o.gw.SaveFile(ctx, collection, req)
	if err != nil {
		return nil, o.fail("save file", err)
	}
	node := domain.NewFileNode(*meta)
	o.store.Dispatch(store.AddFile{Collection: collection, File: node})
	if o.store.State().SelectedCollection == collection {
		// Supersedes any pending OpenFile, which then leaves the flag alone
		o.openGen.Add(1)
		o.store.Dispatch(store.OpenFile{Path: node.Path, Content: req.Content})
		o.store.Dispatch(store.SetLoading{Key: store.LoadingFileContent, Value: false})
	}
	o.closeModal(store.NewFileModal{})
	o.changed(collection)
	return meta, nil
}

// OpenFile loads a file into the editor. The buffer switches to the file
// immediately with empty content; if another file is opened before the
// content arrives, the late response is dropped.
func (o *Operations) OpenFile(ctx context.Context, collection, name, folder string) error {
	path := domain.FilePath(folder, name)
	st := o.store.State()
	if st.Editor.FilePath == path && !st.Loading.FileContent {
		return nil
	}

	gen := o.openGen.Add(1)
	o.store.Dispatch(store.OpenFile{Path: path})
	o.store.Dispatch(store.SetLoading{Key: store.LoadingFileContent, Value: true})
	defer func() {
		if o.openGen.Load() == gen {
			o.store.Dispatch(store.SetLoading{Key: store.LoadingFileContent, Value: false})
		}
	}()

	content, err := o.gw.ReadFile(ctx, collection, name, folder)
	if o.openGen.Load() != gen || o.store.State().Editor.FilePath != path {
		o.logger.Debug("discarding stale file content", "path", path)
		return nil
	}
	if err != nil {
		o.store.Dispatch(store.CloseFile{})
		return o.fail("open file", err)
	}
	o.store.Dispatch(store.OpenFile{Path: path, Content: content})
	return nil
}

// SaveCurrentFile writes the editor buffer back to the collection. It does
// nothing when no file is open, the buffer is unmodified or a save is
// already running.
func (o *Operations) SaveCurrentFile(ctx context.Context, collection string) error {
	ed := o.store.State().Editor
	if !ed.IsOpen() || !ed.Modified || ed.Saving {
		return nil
	}
	if !o.saving.CompareAndSwap(false, true) {
		return nil
	}
	defer o.saving.Store(false)

	o.store.Dispatch(store.SetSaving{Saving: true})
	defer o.store.Dispatch(store.SetSaving{Saving: false})

	folder, name := domain.SplitFilePath(ed.FilePath)
	if err := o.gw.UpdateFile(ctx, collection, name, folder, ed.Content); err != nil {
		return o.fail("save file", err)
	}
	o.store.Dispatch(store.SaveSuccess{Path: ed.FilePath, Content: ed.Content})
	o.changed(collection)
	return nil
}

// DeleteFile removes a file from a collection
func (o *Operations) DeleteFile(ctx context.Context, collection, name, folder string) error {
	defer o.loading(store.LoadingFiles)()

	if err := o.gw.DeleteFile(ctx, collection, name, folder); err != nil {
		return o.fail("delete file", err)
	}
	o.store.Dispatch(store.RemoveFile{Collection: collection, Path: domain.FilePath(folder, name)})
	o.store.Dispatch(store.CloseDeleteConfirmation{})
	o.changed(collection)
	return nil
}

// CrawlPageToCollection crawls one page into a collection
func (o *Operations) CrawlPageToCollection(ctx context.Context, collection string, req domain.CrawlRequest) (*domain.CrawlResult, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.Folder = strings.Trim(req.Folder, "/")
	if err := errors.Join(application.ValidateURL(req.URL), application.ValidateFolder(req.Folder)); err != nil {
		return nil, o.fail("crawl page", firstError(err))
	}
	defer o.loading(store.LoadingCrawling)()

	res, err := o.gw.CrawlToCollection(ctx, collection, req)
	if err != nil {
		return nil, o.fail("crawl page", err)
	}

	folder := res.Folder
	if folder == "" {
		folder = req.Folder
	}
	url := res.URL
	if url == "" {
		url = req.URL
	}
	node := domain.NewFileNode(domain.FileMetadata{
		Filename:   res.Filename,
		FolderPath: folder,
		CreatedAt:  o.now(),
		Size:       res.ContentLength,
		SourceURL:  url,
	})
	o.store.Dispatch(store.AddFile{Collection: collection, File: node})
	o.closeModal(store.AddPageModal{})
	o.changed(collection)
	o.logger.Info("page crawled", "collection", collection, "url", url, "file", node.Path)
	return res, nil
}

// AddMultiplePagesToCollection saves successful crawl results one after
// another. Individual failures are collected and do not stop the batch;
// they are reported through the error banner, not the returned error.
func (o *Operations) AddMultiplePagesToCollection(ctx context.Context, collection string, pages []domain.PageResult, folder string) (BatchResult, error) {
	folder = strings.Trim(folder, "/")
	if err := application.ValidateFolder(folder); err != nil {
		return BatchResult{}, o.fail("add pages", err)
	}
	defer o.loading(store.LoadingCrawling)()

	var res BatchResult
	attempted := 0
	at := o.now()
	for i, page := range pages {
		if !page.Success {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, o.fail("add pages", err)
		}
		attempted++

		content, err := PageDocument(page, at)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", page.URL, err))
			continue
		}
		req := domain.SaveFileRequest{Filename: PageFilename(page, at, i), Content: content, Folder: folder}
		if _, err := o.gw.SaveFile(ctx, collection, req); err != nil {
			o.logger.Warn("saving page failed", "collection", collection, "url", page.URL, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", page.URL, application.UserMessage(err)))
			continue
		}
		res.SavedCount++
	}

	o.reload(ctx, collection)
	if res.SavedCount > 0 {
		o.changed(collection)
	}
	if len(res.Errors) > 0 {
		o.store.Dispatch(store.SetError{Message: fmt.Sprintf("Saved %d of %d pages: %s",
			res.SavedCount, attempted, strings.Join(res.Errors, "; "))})
	}
	o.logger.Info("pages added", "collection", collection, "saved", res.SavedCount, "failed", len(res.Errors))
	return res, nil
}

// reload refreshes collections and, if collection is still selected, its files
func (o *Operations) reload(ctx context.Context, collection string) {
	list, err := o.gw.ListCollections(ctx)
	if err != nil {
		o.logger.Warn("reloading collections failed", "error", err)
	} else {
		o.applyCollections(list)
	}
	if o.store.State().SelectedCollection != collection {
		return
	}
	listing, err := o.gw.ListFiles(ctx, collection)
	if err != nil {
		o.logger.Warn("reloading files failed", "collection", collection, "error", err)
		return
	}
	if o.store.State().SelectedCollection == collection {
		o.store.Dispatch(store.SetFiles{Files: listing.FileNodes(), Folders: listing.Folders})
	}
}

// closeModal closes the dialog if it is of the same kind as m
func (o *Operations) closeModal(m store.Modal) {
	cur := o.store.State().Modal
	if cur != nil && reflect.TypeOf(cur) == reflect.TypeOf(m) {
		o.store.Dispatch(store.CloseModal{})
	}
}

// firstError unwraps a joined error to its first member
func firstError(err error) error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := joined.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return err
}
