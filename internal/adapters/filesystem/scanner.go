// Package filesystem reads local directory trees for import into a
// collection.
package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charlievieth/fastwalk"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
)

// DefaultMaxFileSize skips files larger than this
const DefaultMaxFileSize = 2 << 20

// LocalFile is a file found under the scanned root
type LocalFile struct {
	Folder   string // collection folder, slash separated, "" for the root
	Filename string
	Abs      string
	Size     int64
}

// Path is the collection path the file will be stored at
func (f LocalFile) Path() string {
	return domain.FilePath(f.Folder, f.Filename)
}

// Skipped records a file the scanner left out
type Skipped struct {
	Path   string
	Reason string
}

// Scanner walks a directory for files a collection accepts
type Scanner struct {
	root    string
	maxSize int64
}

// Option configures a Scanner
type Option func(*Scanner)

// WithMaxFileSize overrides DefaultMaxFileSize
func WithMaxFileSize(n int64) Option {
	return func(s *Scanner) {
		s.maxSize = n
	}
}

// NewScanner creates a scanner rooted at dir
func NewScanner(dir string, opts ...Option) *Scanner {
	s := &Scanner{root: filepath.Clean(dir), maxSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan lists importable files sorted by collection path. Hidden files and
// directories are ignored; files with other extensions or over the size
// limit are reported as skipped.
func (s *Scanner) Scan() ([]LocalFile, []Skipped, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("not a directory: %s", s.root)
	}

	var (
		mu      sync.Mutex
		files   []LocalFile
		skipped []Skipped
	)
	conf := &fastwalk.Config{Follow: false}
	err = fastwalk.Walk(conf, s.root, func(fullPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // Skip unreadable entries
		}
		if fullPath == s.root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.root, fullPath)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		folder, name := path.Split(rel)

		reason := ""
		st, err := fastwalk.StatDirEntry(fullPath, d)
		switch {
		case err != nil:
			reason = err.Error()
		case !st.Mode().IsRegular():
			reason = "not a regular file"
		case !slices.Contains(application.AllowedExtensions, strings.ToLower(path.Ext(name))):
			reason = "unsupported extension"
		case st.Size() > s.maxSize:
			reason = fmt.Sprintf("larger than %d bytes", s.maxSize)
		}

		mu.Lock()
		defer mu.Unlock()
		if reason != "" {
			skipped = append(skipped, Skipped{Path: rel, Reason: reason})
			return nil
		}
		files = append(files, LocalFile{
			Folder:   strings.TrimSuffix(folder, "/"),
			Filename: name,
			Abs:      fullPath,
			Size:     st.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	slices.SortFunc(files, func(a, b LocalFile) int { return strings.Compare(a.Path(), b.Path()) })
	slices.SortFunc(skipped, func(a, b Skipped) int { return strings.Compare(a.Path, b.Path) })
	return files, skipped, nil
}

// Read returns the file content. Binary content is rejected.
func (s *Scanner) Read(f LocalFile) (string, error) {
	data, err := os.ReadFile(f.Abs)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", &application.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("%s is not valid UTF-8 text", f.Path()),
		}
	}
	return string(data), nil
}
