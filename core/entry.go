package darc

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/darc/core/internal/sizing"
)

// NewEntry describes the regular file at path for inclusion in an archive
// rooted at root.
//
// Both root and path are made absolute and cleaned before the containment
// check. The entry's Path is the part of path below root with forward
// slashes and a leading "/". With compress set, CompressedSize starts at 0
// and is filled in when the payload is staged; otherwise it holds
// FlagUncompressed.
//
// Errors wrap ErrNotFound when path is missing or not a regular file,
// ErrOutsideRoot when it lies outside root, and ErrSizeOverflow when the
// file is too large for the 32-bit size field.
func NewEntry(root, path string, compress bool) (*Entry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	return newEntry(absRoot, path, compress)
}

// newEntry is NewEntry with root already absolute and clean.
func newEntry(root, path string, compress bool) (*Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return nil, &fs.PathError{Op: "stat", Path: abs, Err: ErrNotFound}
	}

	rel, ok := relativeTo(root, abs)
	if !ok {
		return nil, &fs.PathError{Op: "add", Path: abs, Err: ErrOutsideRoot}
	}

	size, err := sizing.ToUint32(info.Size(), ErrSizeOverflow)
	if err != nil {
		return nil, &fs.PathError{Op: "add", Path: abs, Err: err}
	}

	e := &Entry{
		Path:           rel,
		SourcePath:     abs,
		Size:           size,
		CompressedSize: FlagUncompressed,
	}
	if compress {
		e.CompressedSize = 0
	}
	return e, nil
}

// relativeTo strips root from abs and returns the remainder as a
// slash-separated path starting with "/". The prefix must end on a path
// separator so that /content2/x is not considered inside /content.
func relativeTo(root, abs string) (string, bool) {
	if !strings.HasPrefix(abs, root) {
		return "", false
	}
	rest := abs[len(root):]
	if !strings.HasSuffix(root, string(filepath.Separator)) && !strings.HasPrefix(rest, string(filepath.Separator)) {
		return "", false
	}
	rel := filepath.ToSlash(rest)
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	if rel == "/" {
		return "", false
	}
	return rel, true
}
