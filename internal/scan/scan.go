// Package scan enumerates audio files beneath a path.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Result is the outcome of an enumeration.
type Result struct {
	Files []string
	// Skipped counts entries that could not be read during the walk.
	Skipped int
}

// AudioFiles returns the absolute paths of audio files under root, sorted.
// A regular file is returned as-is regardless of its extension; a directory
// is walked recursively keeping files, including symlinks to files, whose
// lowercased extension is in exts. Unreadable subtrees and dangling links are
// skipped and counted.
func AudioFiles(root string, exts []string) (Result, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Result{}, err
	}
	if !info.IsDir() {
		return Result{Files: []string{abs}}, nil
	}

	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	var result Result
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == abs {
				return err
			}
			result.Skipped++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// Linked files are kept under their link path; linked
			// directories are not followed.
			target, err := os.Stat(path)
			if err != nil {
				result.Skipped++
				return nil
			}
			if !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		result.Files = append(result.Files, path)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("walk %s: %w", abs, err)
	}
	sort.Strings(result.Files)
	return result, nil
}
