package domain

import (
	"strings"
	"time"
)

// Collection is a named document set managed by the backend
type Collection struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	FileCount   int                `json:"file_count"`
	Folders     []string           `json:"folders"`
	CreatedAt   time.Time          `json:"created_at"`
	Metadata    CollectionMetadata `json:"metadata"`
}

// CollectionMetadata holds aggregate information about a collection
type CollectionMetadata struct {
	TotalSize int64          `json:"total_size"`
	Extra     map[string]any `json:"-"`
}

// NodeType distinguishes files from folders in a listing or tree
type NodeType string

const (
	NodeFile   NodeType = "file"
	NodeFolder NodeType = "folder"
)

// FileMetadata describes a stored file. Content is never part of it.
type FileMetadata struct {
	Filename   string    `json:"filename"`
	FolderPath string    `json:"folder_path"`
	CreatedAt  time.Time `json:"created_at"`
	Size       int64     `json:"size"`
	SourceURL  string    `json:"source_url,omitempty"`
}

// FileNode is a file inside a collection
type FileNode struct {
	Name     string       `json:"name"`
	Path     string       `json:"path"` // "folder/sub/name", unique within the collection
	Type     NodeType     `json:"type"`
	Metadata FileMetadata `json:"metadata"`
}

// Folder is a folder record returned by a file listing
type Folder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FileListing is the flat result of listing a collection
type FileListing struct {
	Files   []FileMetadata `json:"files"`
	Folders []Folder       `json:"folders"`
}

// CrawlRequest asks the backend to crawl one URL into a collection
type CrawlRequest struct {
	URL    string `json:"url"`
	Folder string `json:"folder,omitempty"`
}

// CrawlResult is what the backend stored after a crawl
type CrawlResult struct {
	Filename      string `json:"filename"`
	URL           string `json:"url"`
	Folder        string `json:"folder,omitempty"`
	ContentLength int64  `json:"content_length"`
}

// PageResult is one entry of a search or deep-crawl result set
type PageResult struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Markdown string   `json:"markdown"`
	Score    *float64 `json:"score,omitempty"`
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
}

// SaveFileRequest creates a new file
type SaveFileRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Folder   string `json:"folder,omitempty"`
}

// FilePath joins a folder and a file name into a collection path
func FilePath(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// SplitFilePath is the inverse of FilePath
func SplitFilePath(path string) (folder, name string) {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// NewFileNode builds the node for a stored file. A record without a
// filename yields the zero node.
func NewFileNode(meta FileMetadata) FileNode {
	if meta.Filename == "" {
		return FileNode{}
	}
	return FileNode{
		Name:     meta.Filename,
		Path:     FilePath(meta.FolderPath, meta.Filename),
		Type:     NodeFile,
		Metadata: meta,
	}
}

// FileNodes converts a flat listing into file nodes, skipping nameless records
func (l FileListing) FileNodes() []FileNode {
	nodes := make([]FileNode, 0, len(l.Files))
	for _, f := range l.Files {
		if f.Filename == "" {
			continue
		}
		nodes = append(nodes, NewFileNode(f))
	}
	return nodes
}
