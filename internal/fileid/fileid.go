// Package fileid maps files in the documents directory to the filenames documents are stored under.
//
// A document's filename is its slash-separated path relative to the documents directory,
// so it is unique across the corpus and stable across machines.
package fileid

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the documents directory.
var ErrOutsideRoot = errors.New("path is outside the documents directory")

// Name returns the document filename of the file at p, which must lie under root.
func Name(root, p string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	absPath, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return rel, nil
}

// Resolve returns the path on disk of the document filename name under root.
// Names that would escape root are rejected.
func Resolve(root, name string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(name))
	if clean == "/" || name == "" {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	if clean[1:] != strings.TrimPrefix(filepath.ToSlash(name), "./") {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	return filepath.Join(root, filepath.FromSlash(clean[1:])), nil
}

// Sanitize reduces an uploaded file name to a safe base name.
// It returns "" when nothing usable is left.
func Sanitize(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSpace(base)
	if base == "." || base == "/" || base == ".." || strings.HasPrefix(base, ".") {
		return ""
	}
	return base
}
