// Package tools exposes read-only file operations confined to the documents
// directory.
package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrOutsideDocs is returned for paths that resolve outside the documents directory.
var ErrOutsideDocs = errors.New("path outside of allowed documents directory")

// DefaultSearchLimit is the number of matches SearchLocalFiles returns by default.
const DefaultSearchLimit = 5

// FileMatch is one file name match.
type FileMatch struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// FileContent is a file read through the guard.
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// DirListing is a sorted directory listing.
type DirListing struct {
	Path    string   `json:"path"`
	Entries []string `json:"entries"`
}

// Files serves file operations rooted at a documents directory.
type Files struct {
	root string
}

// NewFiles returns file tools rooted at docsDir.
func NewFiles(docsDir string) (*Files, error) {
	root, err := filepath.Abs(docsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve docs dir: %w", err)
	}
	return &Files{root: filepath.Clean(root)}, nil
}

// SafePath resolves path against the documents directory. Relative paths
// are joined to it; absolute paths are taken as is. The result must be the
// directory itself or lie beneath it.
func (f *Files) SafePath(path string) (string, error) {
	var target string
	if filepath.IsAbs(path) {
		target = filepath.Clean(path)
	} else {
		target = filepath.Join(f.root, path)
	}
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	root := f.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideDocs)
	}
	return target, nil
}

// SearchLocalFiles returns up to limit files whose lowercased name contains
// pattern. Shell wildcards in pattern are honoured.
func (f *Files) SearchLocalFiles(pattern string, limit int) ([]FileMatch, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	glob := "*" + strings.ToLower(pattern) + "*"
	if _, err := filepath.Match(glob, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	matches := []FileMatch{}
	errDone := errors.New("done")
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == f.root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(glob, strings.ToLower(d.Name())); ok {
			matches = append(matches, FileMatch{Path: path, Name: d.Name()})
			if len(matches) >= limit {
				return errDone
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDone) {
		return nil, err
	}
	return matches, nil
}

// ReadFile returns the content of a file inside the documents directory.
func (f *Files) ReadFile(path string) (*FileContent, error) {
	target, err := f.SafePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, err
	}
	return &FileContent{Path: target, Content: string(data)}, nil
}

// ListDir returns the sorted entry names of a directory inside the documents
// directory. An empty path lists the documents directory itself.
func (f *Files) ListDir(path string) (*DirListing, error) {
	if path == "" {
		path = "."
	}
	target, err := f.SafePath(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)
	return &DirListing{Path: target, Entries: names}, nil
}
