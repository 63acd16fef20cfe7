// Package source abstracts where file contents are read from.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/spf13/afero"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// FSSource reads files from an afero filesystem.
type FSSource struct {
	fs afero.Fs
}

// NewFS creates a source backed by fs.
func NewFS(fs afero.Fs) *FSSource {
	return &FSSource{fs: fs}
}

// Read implements ContentSource.
func (s *FSSource) Read(path string) ([]byte, error) {
	return afero.ReadFile(s.fs, path)
}

// MemorySource serves contents from memory. It is read-only once created
// and safe for concurrent use.
type MemorySource struct {
	files map[string][]byte
}

// NewMemory creates a source from a path to content map.
func NewMemory(files map[string]string) *MemorySource {
	m := &MemorySource{files: make(map[string][]byte, len(files))}
	for path, content := range files {
		m.files[path] = []byte(content)
	}
	return m
}

// Paths returns the stored paths in lexical order.
func (m *MemorySource) Paths() []string {
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Read implements ContentSource.
func (m *MemorySource) Read(path string) ([]byte, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return content, nil
}
