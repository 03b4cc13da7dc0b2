package domain

import (
	"slices"
	"strings"
)

// TreeNode is a file or folder in a collection tree. Folders are derived
// from file paths and have no lifecycle of their own.
type TreeNode struct {
	Type     NodeType
	Name     string
	Path     string
	File     *FileNode // nil for folders
	Children []*TreeNode
	Expanded bool
	Parent   *TreeNode
}

// IsFolder reports whether the node is a folder
func (n *TreeNode) IsFolder() bool {
	return n.Type == NodeFolder
}

// Depth returns the depth of this node in the tree
func (n *TreeNode) Depth() int {
	depth := 0
	current := n.Parent
	for current != nil {
		depth++
		current = current.Parent
	}
	return depth
}

// Toggle expands or collapses the node
func (n *TreeNode) Toggle() {
	n.Expanded = !n.Expanded
}

// BuildTree turns a flat file list into a sorted folder/file tree.
// A folder is expanded when its path is in expanded.
func BuildTree(files []FileNode, expanded map[string]bool) []*TreeNode {
	root := &TreeNode{Type: NodeFolder}
	folders := make(map[string]*TreeNode)

	for i := range files {
		f := files[i]
		segments := strings.Split(strings.Trim(f.Path, "/"), "/")
		if len(segments) == 0 || segments[len(segments)-1] == "" {
			continue
		}

		parent := root
		for depth, seg := range segments[:len(segments)-1] {
			if seg == "" {
				continue
			}
			path := strings.Join(segments[:depth+1], "/")
			folder, ok := folders[path]
			if !ok {
				folder = &TreeNode{
					Type:     NodeFolder,
					Name:     seg,
					Path:     path,
					Expanded: expanded[path],
				}
				folders[path] = folder
				parent.Children = append(parent.Children, folder)
			}
			parent = folder
		}

		parent.Children = append(parent.Children, &TreeNode{
			Type: NodeFile,
			Name: segments[len(segments)-1],
			Path: f.Path,
			File: &f,
		})
	}

	sortTree(root.Children)
	for _, n := range root.Children {
		setParents(n, nil)
	}
	return root.Children
}

func sortTree(nodes []*TreeNode) {
	slices.SortStableFunc(nodes, compareNodes)
	for _, n := range nodes {
		if n.IsFolder() {
			sortTree(n.Children)
		}
	}
}

// compareNodes orders folders before files, then by case-insensitive name.
// Exact name breaks ties so the order is deterministic.
func compareNodes(a, b *TreeNode) int {
	if a.IsFolder() != b.IsFolder() {
		if a.IsFolder() {
			return -1
		}
		return 1
	}
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

func setParents(n, parent *TreeNode) {
	n.Parent = parent
	for _, c := range n.Children {
		setParents(c, n)
	}
}

// FilterTree keeps files whose name contains term (case-insensitive) and
// folders that match or keep at least one descendant. Folders kept for a
// descendant are expanded so matches are visible. The input is not modified.
func FilterTree(tree []*TreeNode, term string) []*TreeNode {
	if term == "" {
		return tree
	}
	term = strings.ToLower(term)
	result := filterNodes(tree, term)
	for _, n := range result {
		setParents(n, nil)
	}
	return result
}

func filterNodes(nodes []*TreeNode, term string) []*TreeNode {
	var out []*TreeNode
	for _, n := range nodes {
		nameMatch := strings.Contains(strings.ToLower(n.Name), term)
		if !n.IsFolder() {
			if nameMatch {
				c := *n
				out = append(out, &c)
			}
			continue
		}

		children := filterNodes(n.Children, term)
		if len(children) == 0 && !nameMatch {
			continue
		}
		c := *n
		c.Children = children
		if len(children) > 0 {
			c.Expanded = true
		}
		out = append(out, &c)
	}
	return out
}

// Flatten returns the visible nodes in display order (for list rendering)
func Flatten(tree []*TreeNode) []*TreeNode {
	var result []*TreeNode
	for _, n := range tree {
		n.flattenRecursive(&result)
	}
	return result
}

func (n *TreeNode) flattenRecursive(result *[]*TreeNode) {
	*result = append(*result, n)
	if n.IsFolder() && n.Expanded {
		for _, child := range n.Children {
			child.flattenRecursive(result)
		}
	}
}

// LeafPaths returns the paths of every file in the tree, ignoring expansion
func LeafPaths(tree []*TreeNode) []string {
	var paths []string
	var walk func([]*TreeNode)
	walk = func(nodes []*TreeNode) {
		for _, n := range nodes {
			if n.IsFolder() {
				walk(n.Children)
				continue
			}
			paths = append(paths, n.Path)
		}
	}
	walk(tree)
	return paths
}

// Outline renders the tree as indented text with every folder open.
// Folders end with "/".
func Outline(tree []*TreeNode) string {
	var b strings.Builder
	var walk func([]*TreeNode, int)
	walk = func(nodes []*TreeNode, depth int) {
		for _, n := range nodes {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(n.Name)
			if n.IsFolder() {
				b.WriteString("/\n")
				walk(n.Children, depth+1)
				continue
			}
			b.WriteString("\n")
		}
	}
	walk(tree, 0)
	return b.String()
}
