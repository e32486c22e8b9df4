package darc

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/meigma/darc/core/internal/compress"
	"github.com/meigma/darc/core/internal/crypt"
)

// Reader provides access to the entries of an archive in either layout.
//
// The Reader parses entry metadata when it is opened and reads payloads on
// demand. Content returns stored bytes unchanged; Decode reverses
// encryption and compression the way the runtime loader does.
//
// A Reader is safe for concurrent reads. Close must not race with other
// calls.
type Reader struct {
	format Format
	byPath map[string]*Entry
	cipher *crypt.Cipher
	logger *slog.Logger
}

// Open opens the legacy single-file archive at path.
func Open(path string, opts ...Option) (*Reader, error) {
	src, err := openFileSource(path)
	if err != nil {
		return nil, err
	}
	f, err := openLegacy(src, filepath.Base(path))
	if err != nil {
		src.Close()
		return nil, err
	}
	return newReader(f, opts)
}

// OpenSplit opens the split archive made of indexPath and dataPath.
func OpenSplit(indexPath, dataPath string, opts ...Option) (*Reader, error) {
	index, err := openFileSource(indexPath)
	if err != nil {
		return nil, err
	}
	data, err := openFileSource(dataPath)
	if err != nil {
		index.Close()
		return nil, err
	}
	f, err := openSplit(index, data, filepath.Base(indexPath), filepath.Base(dataPath))
	if err != nil {
		index.Close()
		data.Close()
		return nil, err
	}
	return newReader(f, opts)
}

// OpenPaths picks the layout from the number of paths: one path is a
// legacy archive, two are a split index and data pair.
func OpenPaths(paths []string, opts ...Option) (*Reader, error) {
	switch len(paths) {
	case 1:
		return Open(paths[0], opts...)
	case 2:
		return OpenSplit(paths[0], paths[1], opts...)
	default:
		return nil, fmt.Errorf("open archive: want 1 or 2 paths, got %d", len(paths))
	}
}

// NewReader parses a legacy archive from src. Close closes src if it
// implements io.Closer.
func NewReader(src ByteSource, opts ...Option) (*Reader, error) {
	f, err := openLegacy(src, "archive")
	if err != nil {
		return nil, err
	}
	return newReader(f, opts)
}

// NewSplitReader parses a split archive from index and data sources.
func NewSplitReader(index, data ByteSource, opts ...Option) (*Reader, error) {
	f, err := openSplit(index, data, "index", "data")
	if err != nil {
		return nil, err
	}
	return newReader(f, opts)
}

func newReader(f Format, opts []Option) (*Reader, error) {
	var cfg readerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Reader{
		format: f,
		byPath: make(map[string]*Entry, len(f.Entries())),
		logger: cfg.logger,
	}
	if cfg.key != nil {
		c, err := crypt.New(cfg.key)
		if err != nil {
			f.Close()
			return nil, err
		}
		r.cipher = c
	}
	for _, e := range f.Entries() {
		r.byPath[e.Path] = e
	}
	r.log().Debug("opened archive", "version", f.Version(), "entries", len(f.Entries()))
	return r, nil
}

func (r *Reader) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Version returns the archive's format version.
func (r *Reader) Version() (uint32, error) {
	if r == nil || r.format == nil {
		return 0, ErrClosed
	}
	return r.format.Version(), nil
}

// Len returns the number of entries.
func (r *Reader) Len() int {
	if r == nil || r.format == nil {
		return 0
	}
	return len(r.format.Entries())
}

// Entries returns copies of all entries in on-disk order.
func (r *Reader) Entries() ([]*Entry, error) {
	if r == nil || r.format == nil {
		return nil, ErrClosed
	}
	src := r.format.Entries()
	out := make([]*Entry, len(src))
	for i, e := range src {
		c := *e
		out[i] = &c
	}
	return out, nil
}

// Entry returns a copy of the entry with the given path.
func (r *Reader) Entry(path string) (*Entry, error) {
	if r == nil || r.format == nil {
		return nil, ErrClosed
	}
	e, ok := r.byPath[path]
	if !ok {
		return nil, &fs.PathError{Op: "entry", Path: path, Err: ErrNotFound}
	}
	c := *e
	return &c, nil
}

// Content returns the stored bytes of e: compressed and encrypted exactly
// as written. Its length is e.CompressedSize.
func (r *Reader) Content(e *Entry) ([]byte, error) {
	if r == nil || r.format == nil {
		return nil, ErrClosed
	}
	return r.format.ReadContent(e)
}

// Decode returns the original file bytes of e. Encrypted entries need a
// key set with WithKey.
func (r *Reader) Decode(e *Entry) ([]byte, error) {
	data, err := r.Content(e)
	if err != nil {
		return nil, err
	}
	return r.decode(e, data)
}

func (r *Reader) decode(e *Entry, data []byte) ([]byte, error) {
	if e.IsEncrypted() {
		if r.cipher == nil {
			return nil, &fs.PathError{Op: "decode", Path: e.Path, Err: ErrMissingKey}
		}
		data = r.cipher.Apply(data)
	}
	if !e.IsCompressed() {
		return data, nil
	}
	out, err := compress.Decompress(data, int(e.Size))
	if err != nil {
		return nil, &fs.PathError{Op: "decode", Path: e.Path, Err: fmt.Errorf("%w: %w", ErrDecompression, err)}
	}
	return out, nil
}

// Close releases the underlying files. It is safe to call more than once.
func (r *Reader) Close() error {
	if r == nil || r.format == nil {
		return nil
	}
	err := r.format.Close()
	r.format = nil
	r.byPath = nil
	return err
}
