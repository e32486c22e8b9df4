package darc

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Format is one on-disk archive generation opened for reading.
//
// Entries are parsed when the Format is opened. Entries returned by a
// Format have CompressedSize equal to the stored length, never
// FlagUncompressed.
type Format interface {
	// Version returns the version recorded in the archive header.
	Version() uint32

	// Entries returns the parsed entries in on-disk order.
	Entries() []*Entry

	// ReadContent returns the stored bytes of e, still compressed and
	// encrypted as written.
	ReadContent(e *Entry) ([]byte, error)

	// Payloads returns the source that entry resource offsets index into.
	Payloads() ByteSource

	// Close releases the underlying sources.
	Close() error
}

// readRange reads exactly n bytes at off from src.
func readRange(src ByteSource, off uint64, n uint32) ([]byte, error) {
	if off+uint64(n) > uint64(src.Size()) { //nolint:gosec // Size is non-negative
		return nil, fmt.Errorf("%w: range [%d, %d) beyond end of %d bytes", ErrFormat, off, off+uint64(n), src.Size())
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	read, err := src.ReadAt(buf, int64(off)) //nolint:gosec // bounded by Size
	if read == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

// normalize replaces the uncompressed sentinel with the stored length.
func normalize(e *Entry) {
	if e.CompressedSize == FlagUncompressed {
		e.CompressedSize = e.Size
	}
}

// fileSource is a ByteSource over an open file.
type fileSource struct {
	*os.File
	size int64
}

func openFileSource(path string) (*fileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &os.PathError{Op: "open", Path: path, Err: ErrNotFound}
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, &os.PathError{Op: "open", Path: path, Err: ErrNotFound}
	}
	return &fileSource{File: f, size: info.Size()}, nil
}

// Size returns the file length at open time.
func (s *fileSource) Size() int64 {
	return s.size
}

// closeSource closes src when it owns a resource.
func closeSource(src ByteSource) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
