// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// MemFS creates an in-memory filesystem for testing.
func MemFS() afero.Fs {
	return afero.NewMemMapFs()
}

// WriteFile writes content to a file in the given filesystem.
func WriteFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree creates multiple files from a map of path -> content.
func CreateFileTree(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, fs, filepath.Join(root, name), content)
	}
}

// TokensPerLine is the number of tokens on every line produced by CodeBlock.
const TokensPerLine = 8

// CodeBlock returns n lines of straight-line code, one assignment per line,
// that never repeat internally. Blocks with the same name are identical and
// blocks with different names share no line.
func CodeBlock(name string, n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "%s%d = %d + %d * %d ;\n", name, i, i, i, i)
	}
	return sb.String()
}

// Surround places block between single distinct marker lines, so that a
// copy of block in another file does not extend past its edges.
func Surround(marker, block string) string {
	return marker + "_head\n" + block + marker + "_tail\n"
}
