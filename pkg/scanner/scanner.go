// Package scanner discovers the source files a cpd run analyzes.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/panbanda/cpd/pkg/config"
	"github.com/panbanda/cpd/pkg/parser"
)

// ErrNoFiles is returned by ScanPaths when nothing matched.
var ErrNoFiles = errors.New("no source files found")

// Scanner finds source files under a set of paths.
type Scanner struct {
	config *config.Config
}

// New creates a scanner. A nil config uses the defaults.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// ScanPaths expands files and directories into a sorted, deduplicated file
// list. Files named explicitly are always included; files found by walking a
// directory must match the name patterns and survive the excludes.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(p))
			continue
		}
		found, err := s.ScanDir(p)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", p, err)
		}
		files = append(files, found...)
	}

	slices.Sort(files)
	files = slices.Compact(files)
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return files, nil
}

// ScanDir recursively scans a directory for source files.
// Symlinks that resolve outside root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	ignore := s.gitignore(absRoot)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if rel == "." {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if s.config.ShouldExclude(rel) || ignore.match(absRoot, rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.config.ShouldExclude(rel) || ignore.match(absRoot, rel, false) {
			return nil
		}
		if s.matchesName(path) {
			files = append(files, filepath.Clean(path))
		}
		return nil
	})

	return files, walkErr
}

// matchesName applies the configured name globs, or the known source
// extensions when none are set.
func (s *Scanner) matchesName(path string) bool {
	if len(s.config.Scan.Names) == 0 {
		return parser.DetectLanguage(path) != parser.LangUnknown
	}
	base := filepath.Base(path)
	for _, pattern := range s.config.Scan.Names {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// ignoreSet holds the .gitignore patterns of the repository enclosing a
// scan root. Patterns match paths relative to the repository root.
type ignoreSet struct {
	gitRoot string
	matcher gitignore.Matcher
}

func (s *Scanner) gitignore(absRoot string) *ignoreSet {
	if !s.config.Scan.Gitignore {
		return nil
	}
	gitRoot := findGitRoot(absRoot)
	if gitRoot == "" {
		return nil
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err != nil || len(patterns) == 0 {
		return nil
	}
	return &ignoreSet{gitRoot: gitRoot, matcher: gitignore.NewMatcher(patterns)}
}

func (g *ignoreSet) match(absRoot, rel string, isDir bool) bool {
	if g == nil {
		return false
	}
	fromGit, err := filepath.Rel(g.gitRoot, filepath.Join(absRoot, rel))
	if err != nil {
		return false
	}
	return g.matcher.Match(strings.Split(filepath.ToSlash(fromGit), "/"), isDir)
}

// findGitRoot walks up from start to the directory holding .git.
// Returns "" outside a repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// isWithinRoot reports whether path is root or lies below it.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}
