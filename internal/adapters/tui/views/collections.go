package views

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"ragdesk/internal/adapters/tui/styles"
	"ragdesk/internal/domain"
	"ragdesk/internal/store"
)

// CollectionItem is one row of the collection list
type CollectionItem struct {
	Collection domain.Collection
	Sync       domain.VectorSyncStatus
	HasSync    bool
	Selected   bool
}

func (i CollectionItem) Title() string {
	if i.Selected {
		return "● " + i.Collection.Name
	}
	return i.Collection.Name
}

func (i CollectionItem) Description() string {
	desc := fmt.Sprintf("%d files · %s", i.Collection.FileCount, humanize.Bytes(uint64(max(i.Collection.Metadata.TotalSize, 0))))
	if i.HasSync {
		desc += " · " + SyncLabel(i.Sync)
	}
	return desc
}

func (i CollectionItem) FilterValue() string { return i.Collection.Name }

// CollectionsModel is the collection list pane
type CollectionsModel struct {
	list list.Model
}

// NewCollectionsModel creates the collection pane
func NewCollectionsModel() *CollectionsModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(styles.Primary).BorderForeground(styles.Primary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.BorderForeground(styles.Primary)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Collections"
	l.Styles.Title = styles.Title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	// The app owns these keys
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.KeyMap.Filter.SetEnabled(false)
	l.KeyMap.ShowFullHelp.SetEnabled(false)
	return &CollectionsModel{list: l}
}

// SetItems rebuilds the rows from state, keeping the cursor on the same collection
func (m *CollectionsModel) SetItems(st store.State) {
	current, _ := m.Selected()
	items := make([]list.Item, 0, len(st.Collections))
	cursor := -1
	for i, c := range st.Collections {
		sync, ok := st.SyncStatus(c.Name)
		items = append(items, CollectionItem{
			Collection: c,
			Sync:       sync,
			HasSync:    ok,
			Selected:   c.Name == st.SelectedCollection,
		})
		if c.Name == current {
			cursor = i
		}
	}
	m.list.SetItems(items)
	if cursor >= 0 {
		m.list.Select(cursor)
	}
}

// Selected returns the collection under the cursor
func (m *CollectionsModel) Selected() (string, bool) {
	item, ok := m.list.SelectedItem().(CollectionItem)
	if !ok {
		return "", false
	}
	return item.Collection.Name, true
}

// Update forwards navigation keys to the list
func (m *CollectionsModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

// SetSize updates the list dimensions
func (m *CollectionsModel) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// View renders the pane
func (m *CollectionsModel) View(focused bool) string {
	style := styles.Pane
	if focused {
		style = styles.PaneFocused
	}
	return style.Render(m.list.View())
}
