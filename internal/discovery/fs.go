package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoNotebooks indicates that no notebook files were found during discovery.
var ErrNoNotebooks = errors.New("no notebooks discovered")

// Extension is the notebook file extension the harness looks for.
const Extension = ".ipynb"

// DefaultExcludes returns directory names skipped during traversal:
// checkpoint caches, VCS metadata, site build output and virtualenvs.
func DefaultExcludes() []string {
	return []string{
		".ipynb_checkpoints",
		".git",
		"_site",
		"venv",
		".venv",
		"node_modules",
	}
}

// Notebooks walks root and returns every notebook path, relative to root
// and sorted lexicographically so repeated runs report in a stable order.
// Directories whose base name appears in excludes are skipped entirely.
// An unreadable root is the only error; it aborts discovery.
func Notebooks(root string, excludes []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("read root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", root)
	}

	skip := make(map[string]struct{}, len(excludes))
	for _, name := range excludes {
		skip[name] = struct{}{}
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, excluded := skip[d.Name()]; excluded && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), Extension) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = filepath.Clean(path)
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk root %q: %w", root, err)
	}

	if len(paths) == 0 {
		return nil, ErrNoNotebooks
	}
	sort.Strings(paths)
	return paths, nil
}
