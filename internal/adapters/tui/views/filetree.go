package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"ragdesk/internal/adapters/tui/styles"
	"ragdesk/internal/domain"
)

// FileTreeModel renders the visible file tree of the selected collection
type FileTreeModel struct {
	ViewState
	nodes    []*domain.TreeNode
	pager    *Paginator
	cursor   string // path under the cursor
	openPath string
	modified bool
}

// NewFileTreeModel creates the tree pane
func NewFileTreeModel() *FileTreeModel {
	return &FileTreeModel{pager: NewPaginator(20)}
}

// SetTree replaces the visible nodes. The cursor stays on the same path
// when that node is still visible.
func (m *FileTreeModel) SetTree(tree []*domain.TreeNode, editor domain.EditorBuffer) {
	m.nodes = domain.Flatten(tree)
	m.openPath = editor.FilePath
	m.modified = editor.Modified
	m.pager.SetTotal(len(m.nodes))
	for i, n := range m.nodes {
		if n.Path == m.cursor {
			m.pager.SetCursor(i)
			return
		}
	}
	m.syncCursor()
}

// SetSize updates the pane dimensions
func (m *FileTreeModel) SetSize(width, height int) {
	m.ViewState.SetSize(width, height)
	m.pager.SetPageSize(height - 2)
}

// Selected returns the node under the cursor, nil for an empty tree
func (m *FileTreeModel) Selected() *domain.TreeNode {
	i := m.pager.Cursor()
	if i < 0 || i >= len(m.nodes) {
		return nil
	}
	return m.nodes[i]
}

// SelectedFolder returns the folder of the node under the cursor
func (m *FileTreeModel) SelectedFolder() string {
	n := m.Selected()
	switch {
	case n == nil:
		return ""
	case n.IsFolder():
		return n.Path
	default:
		folder, _ := domain.SplitFilePath(n.Path)
		return folder
	}
}

func (m *FileTreeModel) Up() {
	m.pager.CursorUp()
	m.syncCursor()
}

func (m *FileTreeModel) Down() {
	m.pager.CursorDown()
	m.syncCursor()
}

func (m *FileTreeModel) syncCursor() {
	if n := m.Selected(); n != nil {
		m.cursor = n.Path
	} else {
		m.cursor = ""
	}
}

// View renders the pane with title above the nodes
func (m *FileTreeModel) View(title string, focused bool) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(title))
	if pages := m.pager.TotalPages(); pages > 1 {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf(" %d/%d", m.pager.CurrentPage(), pages)))
	}
	b.WriteString("\n")
	if len(m.nodes) == 0 {
		b.WriteString(styles.MutedText.Render("No files"))
	}
	start, end := m.pager.VisibleRange()
	for i := start; i < end; i++ {
		b.WriteString(m.renderNode(m.nodes[i], i == m.pager.Cursor()))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	style := styles.Pane
	if focused {
		style = styles.PaneFocused
	}
	return style.Width(max(m.Width-2, 0)).Height(max(m.Height-2, 0)).Render(b.String())
}

func (m *FileTreeModel) renderNode(node *domain.TreeNode, selected bool) string {
	indent := strings.Repeat("  ", node.Depth())

	var prefix string
	switch {
	case !node.IsFolder():
		prefix = styles.TreeLeaf
	case node.Expanded:
		prefix = styles.TreeExpanded
	default:
		prefix = styles.TreeCollapsed
	}

	text := node.Name
	var style lipgloss.Style
	if node.IsFolder() {
		style = styles.NodeFolder
		text += "/"
	} else {
		style = styles.NodeFile
	}
	styled := style.Render(text)
	if selected {
		styled = styles.NodeSelected.Render(text)
	}

	var suffix string
	if node.File != nil {
		suffix = " " + styles.MutedText.Render(humanize.Bytes(uint64(max(node.File.Metadata.Size, 0))))
		if node.Path == m.openPath && m.modified {
			suffix += " " + styles.Modified.Render("●")
		}
	}
	return fmt.Sprintf("%s%s%s%s", indent, styles.TreeBranch.Render(prefix), styled, suffix)
}
