package arctype

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound is returned when a source file or archive file is missing.
	ErrNotFound = fmt.Errorf("darc: not found: %w", fs.ErrNotExist)

	// ErrOutsideRoot is returned when a source file is not under the content root.
	ErrOutsideRoot = errors.New("darc: path outside root")

	// ErrFormat is returned when archive bytes are structurally invalid.
	ErrFormat = errors.New("darc: invalid format")

	// ErrClosed is returned by operations on a closed or unopened reader.
	ErrClosed = errors.New("darc: archive not open")

	// ErrSizeOverflow is returned when a size or offset does not fit the
	// 32-bit fields of the format.
	ErrSizeOverflow = errors.New("darc: size overflow")

	// ErrDuplicatePath is returned when two entries share a relative path.
	ErrDuplicatePath = errors.New("darc: duplicate path")

	// ErrDecompression is returned when a payload fails to decompress.
	ErrDecompression = errors.New("darc: decompression failed")

	// ErrMissingKey is returned when decoding an encrypted entry without a key.
	ErrMissingKey = errors.New("darc: missing encryption key")
)

// FormatError reports a version mismatch in an archive header.
type FormatError struct {
	// File names the archive file that failed validation.
	File string
	// Want is the version the reader expected.
	Want uint32
	// Got is the version found in the header.
	Got uint32
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("darc: %s: unsupported version %d (want %d)", e.File, e.Got, e.Want)
}

// Is makes FormatError match ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}
