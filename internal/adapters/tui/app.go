// Package tui is the terminal front end over the collection store.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragdesk/internal/adapters/editor"
	"ragdesk/internal/adapters/tui/styles"
	"ragdesk/internal/adapters/tui/views"
	"ragdesk/internal/application/collections"
	"ragdesk/internal/application/vectorsync"
	"ragdesk/internal/domain"
	"ragdesk/internal/ports"
	"ragdesk/internal/store"
)

// StateChangedMsg tells the app to re-read the store. Send it from a
// store subscription.
type StateChangedMsg struct{}

// opDoneMsg reports the end of a background operation
type opDoneMsg struct {
	info string
	err  error
}

type editorClosedMsg struct {
	path    string
	scratch string
	err     error
}

type pane int

const (
	paneCollections pane = iota
	paneTree
	paneEditor
)

// writeClipboard is replaced in tests
var writeClipboard = clipboard.WriteAll

// App is the main TUI application model
type App struct {
	ctx    context.Context
	ops    *collections.Operations
	sync   *vectorsync.Coordinator
	store  *store.Store
	opener ports.EditorOpener
	web    ports.URLOpener
	logger *slog.Logger
	now    func() time.Time

	state    store.State
	focus    pane
	showHelp bool
	flash    views.ViewState

	collections *views.CollectionsModel
	tree        *views.FileTreeModel
	editorView  *views.EditorModel
	filter      *views.FilterModel
	form        *views.FormModel
	confirm     *views.ConfirmationModel
	help        *views.HelpModel
	spinner     spinner.Model

	width  int
	height int
}

// Option configures the App
type Option func(*App)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithEditor enables editing files in an external editor
func WithEditor(opener ports.EditorOpener) Option {
	return func(a *App) {
		a.opener = opener
	}
}

// WithBrowser enables opening a crawled file's source URL
func WithBrowser(web ports.URLOpener) Option {
	return func(a *App) {
		a.web = web
	}
}

// NewApp creates a new TUI application. ctx bounds every backend call
// the app starts.
func NewApp(ctx context.Context, ops *collections.Operations, sync *vectorsync.Coordinator, st *store.Store, opts ...Option) *App {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	a := &App{
		ctx:         ctx,
		ops:         ops,
		sync:        sync,
		store:       st,
		logger:      slog.Default(),
		now:         time.Now,
		collections: views.NewCollectionsModel(),
		tree:        views.NewFileTreeModel(),
		editorView:  views.NewEditorModel(),
		filter:      views.NewFilterModel(),
		help:        views.NewHelpModel(),
		spinner:     sp,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.refresh()
	return a
}

// Init loads collections and their sync statuses
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.run("", func(ctx context.Context) error {
		if _, err := a.ops.LoadCollections(ctx); err != nil {
			return err
		}
		_, err := a.sync.RefreshAllSyncStatuses(ctx)
		return err
	}))
}

// run executes fn off the event loop and reports with opDoneMsg
func (a *App) run(info string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return opDoneMsg{info: info, err: fn(ctx)}
	}
}

// refresh copies the store state into the sub views
func (a *App) refresh() tea.Cmd {
	a.state = a.store.State()
	a.collections.SetItems(a.state)
	a.tree.SetTree(a.state.Tree(), a.state.Editor)
	a.editorView.Sync(a.state.Editor)
	if a.focus == paneEditor && !a.state.Editor.IsOpen() {
		a.setFocus(paneTree)
	}

	if target, ok := a.state.DeleteConfirmation(); ok {
		a.form = nil
		if a.confirm == nil || a.confirm.Target != target {
			a.confirm = views.NewConfirmationModel(target)
		}
		return nil
	}

	var cmd tea.Cmd
	switch m := a.state.Modal.(type) {
	case nil:
		a.form, a.confirm = nil, nil
	default:
		a.confirm = nil
		if !a.form.Matches(m) {
			a.form = views.NewFormModel(m)
			if a.form != nil {
				cmd = a.form.Init()
			}
		}
	}
	return cmd
}

func (a *App) setFocus(p pane) tea.Cmd {
	a.focus = p
	if p == paneEditor {
		return a.editorView.Focus()
	}
	a.editorView.Blur()
	return nil
}

// Update handles messages for the application
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.layout()
		return a, nil

	case StateChangedMsg:
		return a, a.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case opDoneMsg:
		cmd := a.refresh()
		if msg.err != nil {
			a.logger.Debug("operation failed", "error", msg.err)
			if a.state.Error == "" {
				a.flash.SetMessage(msg.err.Error(), true)
			}
		} else if msg.info != "" {
			a.flash.SetMessage(msg.info, false)
		}
		return a, cmd

	case editorClosedMsg:
		return a, a.editorClosed(msg)

	case views.SubmitCollectionMsg:
		req := collections.CreateCollectionRequest{Name: msg.Name, Description: msg.Description}
		return a, a.run("Collection created", func(ctx context.Context) error {
			_, err := a.ops.CreateCollection(ctx, req)
			return err
		})

	case views.SubmitFileMsg:
		name := a.state.SelectedCollection
		req := domain.SaveFileRequest{Filename: msg.Filename, Folder: msg.Folder}
		return a, a.run("File created", func(ctx context.Context) error {
			_, err := a.ops.SaveFile(ctx, name, req)
			return err
		})

	case views.SubmitPageMsg:
		name := a.state.SelectedCollection
		req := domain.CrawlRequest{URL: msg.URL, Folder: msg.Folder}
		return a, a.run("Page added", func(ctx context.Context) error {
			_, err := a.ops.CrawlPageToCollection(ctx, name, req)
			return err
		})

	case views.ConfirmDeleteMsg:
		return a, a.deleteTarget(msg.Target)

	case views.CancelModalMsg:
		a.store.Dispatch(store.CloseModal{})
		return a, a.refresh()

	case views.CloseHelpMsg:
		a.showHelp = false
		return a, nil

	case views.FilterChangedMsg:
		a.store.Dispatch(store.SetSearchTerm{Term: msg.Term})
		return a, a.refresh()

	case tea.KeyMsg:
		return a, a.handleKey(msg)
	}

	// Debounce ticks and cursor blinks
	cmds := []tea.Cmd{a.filter.Update(msg)}
	if a.form != nil {
		cmds = append(cmds, a.form.Update(msg))
	}
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	switch {
	case a.showHelp:
		return a.help.Update(msg)
	case a.form != nil:
		return a.form.Update(msg)
	case a.confirm != nil:
		return a.confirm.Update(msg)
	case a.filter.Active():
		return a.filter.Update(msg)
	case a.focus == paneEditor:
		return a.handleEditorKey(msg)
	}

	a.flash.ClearMessage()
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Help):
		a.showHelp = true
	case key.Matches(msg, keys.Back):
		if a.state.Error != "" {
			a.store.Dispatch(store.ClearError{})
			return a.refresh()
		}
	case key.Matches(msg, keys.NextPane):
		return a.nextPane()
	case key.Matches(msg, keys.Enter):
		return a.enter()
	case key.Matches(msg, keys.New):
		return a.openNew()
	case key.Matches(msg, keys.AddPage):
		if a.state.SelectedCollection != "" {
			a.store.Dispatch(store.OpenModal{Modal: store.AddPageModal{Folder: a.tree.SelectedFolder()}})
			return a.refresh()
		}
	case key.Matches(msg, keys.Delete):
		return a.askDelete()
	case key.Matches(msg, keys.Sync), key.Matches(msg, keys.ForceSync):
		return a.startSync(msg.String() == "S")
	case key.Matches(msg, keys.ToggleSync):
		return a.toggleSync()
	case key.Matches(msg, keys.DeleteVector):
		return a.deleteVectors()
	case key.Matches(msg, keys.Reload):
		return a.reload()
	case key.Matches(msg, keys.Filter):
		if a.state.SelectedCollection != "" {
			a.setFocus(paneTree)
			return a.filter.Activate(a.state.SearchTerm)
		}
	case key.Matches(msg, keys.Copy):
		return a.copySelection()
	case key.Matches(msg, keys.Browse):
		return a.openSource()
	case key.Matches(msg, keys.Edit):
		return a.openExternalEditor()
	case key.Matches(msg, keys.Save):
		return a.save()
	case a.focus == paneCollections:
		return a.collections.Update(msg)
	case key.Matches(msg, keys.Up):
		a.tree.Up()
	case key.Matches(msg, keys.Down):
		a.tree.Down()
	}
	return nil
}

func (a *App) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		return a.setFocus(paneTree)
	case "ctrl+s":
		return a.save()
	case "ctrl+e":
		return a.openExternalEditor()
	}
	if a.state.Loading.FileContent {
		return nil
	}
	content, changed, cmd := a.editorView.Update(msg)
	if changed {
		a.store.Dispatch(store.UpdateContent{Content: content})
		a.refresh()
	}
	return cmd
}

func (a *App) nextPane() tea.Cmd {
	switch a.focus {
	case paneCollections:
		return a.setFocus(paneTree)
	case paneTree:
		if a.state.Editor.IsOpen() {
			return a.setFocus(paneEditor)
		}
	}
	return a.setFocus(paneCollections)
}

func (a *App) enter() tea.Cmd {
	if a.focus == paneCollections {
		name, ok := a.collections.Selected()
		if !ok {
			return nil
		}
		a.setFocus(paneTree)
		return a.run("", func(ctx context.Context) error {
			if err := a.ops.SelectCollection(ctx, name); err != nil {
				return err
			}
			_, err := a.sync.RefreshSyncStatus(ctx, name)
			return err
		})
	}

	node := a.tree.Selected()
	if node == nil {
		return nil
	}
	if node.IsFolder() {
		a.store.Dispatch(store.ToggleFolder{Path: node.Path})
		return a.refresh()
	}
	name := a.state.SelectedCollection
	folder, file := domain.SplitFilePath(node.Path)
	return tea.Batch(a.setFocus(paneEditor), a.run("", func(ctx context.Context) error {
		return a.ops.OpenFile(ctx, name, file, folder)
	}))
}

func (a *App) openNew() tea.Cmd {
	if a.focus == paneCollections || a.state.SelectedCollection == "" {
		a.store.Dispatch(store.OpenModal{Modal: store.NewCollectionModal{}})
	} else {
		a.store.Dispatch(store.OpenModal{Modal: store.NewFileModal{Folder: a.tree.SelectedFolder()}})
	}
	return a.refresh()
}

func (a *App) askDelete() tea.Cmd {
	var target store.DeleteTarget
	if a.focus == paneCollections {
		name, ok := a.collections.Selected()
		if !ok {
			return nil
		}
		target = store.DeleteTarget{Kind: store.TargetCollection, Collection: name, Name: name}
	} else {
		node := a.tree.Selected()
		if node == nil || node.IsFolder() {
			return nil
		}
		folder, file := domain.SplitFilePath(node.Path)
		target = store.DeleteTarget{Kind: store.TargetFile, Collection: a.state.SelectedCollection, Name: file, Folder: folder}
	}
	a.store.Dispatch(store.OpenDeleteConfirmation{Target: target})
	return a.refresh()
}

func (a *App) deleteTarget(t store.DeleteTarget) tea.Cmd {
	if t.Kind == store.TargetCollection {
		return a.run("Collection deleted", func(ctx context.Context) error {
			return a.ops.DeleteCollection(ctx, t.Collection)
		})
	}
	return a.run("File deleted", func(ctx context.Context) error {
		return a.ops.DeleteFile(ctx, t.Collection, t.Name, t.Folder)
	})
}

// targetCollection is the collection the sync keys act on
func (a *App) targetCollection() string {
	if a.focus == paneCollections {
		if name, ok := a.collections.Selected(); ok {
			return name
		}
	}
	return a.state.SelectedCollection
}

func (a *App) startSync(force bool) tea.Cmd {
	name := a.targetCollection()
	if name == "" {
		return nil
	}
	req := domain.SyncRequest{ForceReprocess: force}
	return a.run("Sync started for "+name, func(ctx context.Context) error {
		return a.sync.SyncCollection(ctx, name, req)
	})
}

func (a *App) toggleSync() tea.Cmd {
	name := a.targetCollection()
	if name == "" {
		return nil
	}
	st, ok := a.sync.GetSyncStatus(name)
	if !ok || st.SyncEnabled {
		return a.run("Sync disabled for "+name, func(ctx context.Context) error {
			return a.sync.DisableSync(ctx, name)
		})
	}
	return a.run("Sync enabled for "+name, func(ctx context.Context) error {
		return a.sync.EnableSync(ctx, name)
	})
}

func (a *App) deleteVectors() tea.Cmd {
	name := a.targetCollection()
	if name == "" {
		return nil
	}
	return a.run("Vectors deleted for "+name, func(ctx context.Context) error {
		return a.sync.DeleteVectors(ctx, name)
	})
}

func (a *App) reload() tea.Cmd {
	return a.run("Reloaded", func(ctx context.Context) error {
		if _, err := a.ops.LoadCollections(ctx); err != nil {
			return err
		}
		if err := a.ops.RefreshFiles(ctx); err != nil {
			return err
		}
		_, err := a.sync.RefreshAllSyncStatuses(ctx)
		return err
	})
}

func (a *App) save() tea.Cmd {
	name := a.state.SelectedCollection
	if !a.state.Editor.Modified || name == "" {
		return nil
	}
	return a.run("Saved "+a.state.Editor.FilePath, func(ctx context.Context) error {
		return a.ops.SaveCurrentFile(ctx, name)
	})
}

// copySelection copies a file's source URL, or its collection path
func (a *App) copySelection() tea.Cmd {
	var text string
	if a.focus == paneCollections {
		text, _ = a.collections.Selected()
	} else if node := a.tree.Selected(); node != nil {
		text = a.state.SelectedCollection + "/" + node.Path
		if node.File != nil && node.File.Metadata.SourceURL != "" {
			text = node.File.Metadata.SourceURL
		}
	}
	if text == "" {
		return nil
	}
	if err := writeClipboard(text); err != nil {
		a.flash.SetMessage(fmt.Sprintf("Copy failed: %v", err), true)
		return nil
	}
	a.flash.SetMessage("Copied "+text, false)
	return nil
}

// openSource opens the selected file's source URL in the browser
func (a *App) openSource() tea.Cmd {
	if a.web == nil || a.focus == paneCollections {
		return nil
	}
	node := a.tree.Selected()
	if node == nil || node.File == nil || node.File.Metadata.SourceURL == "" {
		a.flash.SetMessage("No source URL for this file", true)
		return nil
	}
	src := node.File.Metadata.SourceURL
	if err := a.web.Open(src); err != nil {
		a.logger.Warn("opening source failed", slog.String("url", src), slog.String("error", err.Error()))
		a.flash.SetMessage(fmt.Sprintf("Open failed: %v", err), true)
		return nil
	}
	a.flash.SetMessage("Opened "+src, false)
	return nil
}

// openExternalEditor edits a scratch copy of the buffer in $EDITOR. The
// result replaces the buffer content; saving stays explicit.
func (a *App) openExternalEditor() tea.Cmd {
	buf := a.state.Editor
	if a.opener == nil || !buf.IsOpen() || a.state.Loading.FileContent {
		return nil
	}
	_, name := domain.SplitFilePath(buf.FilePath)
	scratch, err := editor.WriteScratch(name, buf.Content)
	if err != nil {
		a.flash.SetMessage(err.Error(), true)
		return nil
	}
	cmd, err := a.opener.Command(scratch)
	if err != nil {
		editor.ReadScratch(scratch)
		a.flash.SetMessage(err.Error(), true)
		return nil
	}
	path := buf.FilePath
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorClosedMsg{path: path, scratch: scratch, err: err}
	})
}

func (a *App) editorClosed(msg editorClosedMsg) tea.Cmd {
	content, err := editor.ReadScratch(msg.scratch)
	if msg.err != nil {
		a.flash.SetMessage("Editor failed: "+msg.err.Error(), true)
		return nil
	}
	if err != nil {
		a.flash.SetMessage(err.Error(), true)
		return nil
	}
	ed := a.store.State().Editor
	if ed.FilePath != msg.path {
		a.flash.SetMessage("File changed while editing; edit discarded", true)
		return nil
	}
	if content != ed.Content {
		a.store.Dispatch(store.UpdateContent{Content: content})
	}
	return tea.Batch(a.refresh(), a.setFocus(paneEditor))
}

func (a *App) layout() {
	bodyHeight := max(a.height-6, 5)
	side := max(a.width/4, 24)
	a.collections.SetSize(side-4, bodyHeight-2)
	a.tree.SetSize(side, bodyHeight)
	a.editorView.SetSize(max(a.width-2*side, 20), bodyHeight)
	a.help.SetSize(a.width, a.height)
}

// View renders the current screen
func (a *App) View() string {
	if a.showHelp {
		return a.help.View()
	}

	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	if a.state.Error != "" {
		b.WriteString(styles.ErrorBanner.Render(a.state.Error))
		b.WriteString(" ")
		b.WriteString(styles.MutedText.Render("esc to dismiss"))
		b.WriteString("\n")
	}

	switch {
	case a.form != nil:
		b.WriteString(a.overlay(a.form.View()))
	case a.confirm != nil:
		b.WriteString(a.overlay(a.confirm.View()))
	default:
		b.WriteString(a.renderBody())
	}
	b.WriteString("\n")
	b.WriteString(a.renderFooter())
	return styles.App.Render(b.String())
}

func (a *App) renderHeader() string {
	header := styles.Title.Render("ragdesk")
	if name := a.state.SelectedCollection; name != "" {
		header += " " + styles.Subtitle.Render(name)
	}
	busy := a.state.Loading.Any() || a.state.Saving
	for _, st := range a.state.SyncStatuses {
		busy = busy || st.IsSyncing()
	}
	if busy {
		header += " " + a.spinner.View()
	}
	return header
}

func (a *App) renderBody() string {
	title := "Files"
	if a.state.SelectedCollection == "" {
		title = "No collection selected"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		a.collections.View(a.focus == paneCollections),
		a.tree.View(title, a.focus == paneTree),
		a.editorView.View(a.state.Editor, a.state.Loading.FileContent, a.focus == paneEditor),
	)
}

func (a *App) overlay(dialog string) string {
	return lipgloss.Place(max(a.width-2, 0), max(a.height-6, 0), lipgloss.Center, lipgloss.Center, dialog)
}

func (a *App) renderFooter() string {
	var lines []string
	if name := a.state.SelectedCollection; name != "" {
		if st, ok := a.state.SyncStatus(name); ok {
			lines = append(lines, views.RenderSyncBar(st, a.width, a.now()))
		}
	}
	if f := a.filter.View(); f != "" {
		lines = append(lines, f)
	}
	if a.flash.Message != "" {
		lines = append(lines, views.RenderMessage(a.flash.Message, a.flash.MessageErr))
	}
	help := []key.Binding{keys.NextPane, keys.Enter, keys.New, keys.AddPage, keys.Delete, keys.Sync, keys.Filter, keys.Help, keys.Quit}
	if a.focus == paneEditor {
		help = []key.Binding{keys.Save, keys.Edit, keys.Back}
	}
	lines = append(lines, views.RenderHelpLine(help...))
	return strings.Join(lines, "\n")
}
