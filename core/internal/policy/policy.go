// Package policy holds the per-entry extension rules applied while building
// an archive: which payloads are encrypted and which skip compression.
package policy

import (
	"io/fs"
	"path"
	"slices"
	"strings"
)

// DefaultEncryptedExtensions lists the script and bytecode extensions whose
// payloads are encrypted.
var DefaultEncryptedExtensions = []string{"luac", "scriptc", "gui_scriptc", "render_scriptc"}

// Extension returns the text after the last dot of the final path element,
// without the dot. It returns "" when the name has no dot.
func Extension(p string) string {
	ext := path.Ext(path.Base(strings.ReplaceAll(p, "\\", "/")))
	return strings.TrimPrefix(ext, ".")
}

// HasExtension reports whether p's extension is in exts. Matching is exact
// and case-sensitive.
func HasExtension(p string, exts []string) bool {
	ext := Extension(p)
	if ext == "" {
		return false
	}
	return slices.Contains(exts, ext)
}

// SkipCompressionFunc returns true when a file should be stored uncompressed
// without attempting compression. It is called once per entry.
type SkipCompressionFunc func(path string, info fs.FileInfo) bool

// DefaultSkipCompression returns a SkipCompressionFunc that skips small files
// and known already-compressed extensions.
func DefaultSkipCompression(minSize int64) SkipCompressionFunc {
	return func(p string, info fs.FileInfo) bool {
		if info != nil && minSize > 0 && info.Size() < minSize {
			return true
		}
		_, ok := defaultSkipCompressionExts[strings.ToLower(Extension(p))]
		return ok
	}
}

// SkipExtensions returns a SkipCompressionFunc matching the given extensions
// case-insensitively.
func SkipExtensions(exts ...string) SkipCompressionFunc {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return func(p string, _ fs.FileInfo) bool {
		_, ok := set[strings.ToLower(Extension(p))]
		return ok
	}
}

// ShouldSkip checks if any predicate returns true for the given file.
func ShouldSkip(p string, info fs.FileInfo, predicates []SkipCompressionFunc) bool {
	for _, fn := range predicates {
		if fn == nil {
			continue
		}
		if fn(p, info) {
			return true
		}
	}
	return false
}

var defaultSkipCompressionExts = map[string]struct{}{
	"7z":    {},
	"aac":   {},
	"bz2":   {},
	"gif":   {},
	"gz":    {},
	"jpeg":  {},
	"jpg":   {},
	"mp3":   {},
	"mp4":   {},
	"ogg":   {},
	"opus":  {},
	"png":   {},
	"webm":  {},
	"webp":  {},
	"woff":  {},
	"woff2": {},
	"xz":    {},
	"zip":   {},
	"zst":   {},
}
