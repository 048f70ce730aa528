package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Discover walks root recursively and returns every PDF file beneath it,
// matched by extension case-insensitively, resolved to an absolute path
// with symlinks followed, and sorted ascending. The order is deterministic
// so runs over the same tree always process files the same way.
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("ingest: resolve %s: %w", path, err)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return fmt.Errorf("ingest: resolve %s: %w", path, err)
		}
		paths = append(paths, resolved)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: discover in %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
