package darc

import (
	"bufio"
	"context"
	_ "crypto/sha256" // register digest.SHA256
	_ "crypto/sha512" // register digest.SHA384 and digest.SHA512
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/darc/core/internal/compress"
	"github.com/meigma/darc/core/internal/crypt"
	"github.com/meigma/darc/core/internal/policy"
)

// Writer collects files under a content root and writes them as an archive.
//
// A build runs in two phases. Staging reads every file, compresses,
// encrypts and hashes it in memory. Committing sorts the staged entries,
// hands their final bytes to the manifest sink, assigns every offset, and
// writes the archive front to back with the header already final. Memory
// use scales with the total stored size of the archive.
//
// Files are read again on every write, so one Writer can emit the same
// content in both layouts. A Writer is not safe for concurrent use.
type Writer struct {
	root    string
	cfg     writerConfig
	cipher  *crypt.Cipher
	pending []pending
	paths   map[string]struct{}
}

// pending is an entry added to the Writer but not yet staged.
type pending struct {
	entry    Entry
	compress bool
	hash     []byte
}

// staged is an entry with its final stored bytes.
type staged struct {
	entry Entry
	data  []byte
}

// NewWriter returns a Writer for files under root.
func NewWriter(root string, opts ...WriterOption) (*Writer, error) {
	cfg := writerConfig{algorithm: digest.SHA256}
	for _, opt := range opts {
		opt(&cfg)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	if !cfg.algorithm.Available() {
		return nil, fmt.Errorf("hash algorithm %q is not available", cfg.algorithm)
	}
	if n := cfg.algorithm.Size(); n > MaxHashLength {
		return nil, fmt.Errorf("hash algorithm %q: digest of %d bytes exceeds %d", cfg.algorithm, n, MaxHashLength)
	}

	w := &Writer{
		root:  absRoot,
		cfg:   cfg,
		paths: make(map[string]struct{}),
	}
	if cfg.key != nil {
		w.cipher, err = crypt.New(cfg.key)
		if err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *Writer) log() *slog.Logger {
	if w.cfg.logger != nil {
		return w.cfg.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Root returns the absolute content root.
func (w *Writer) Root() string {
	return w.root
}

// Len returns the number of entries added.
func (w *Writer) Len() int {
	return len(w.pending)
}

// Add adds the regular file at path, which must lie under the root.
// With compress set the payload is LZ4 compressed when that saves at
// least 5%.
func (w *Writer) Add(path string, compress bool) error {
	return w.add(path, compress, nil)
}

// AddWithHash is like Add but supplies the entry hash instead of deriving it
// from the stored bytes. The hash is used for hash ordering and written to
// the split index.
func (w *Writer) AddWithHash(path string, compress bool, hash []byte) error {
	if len(hash) == 0 {
		return fmt.Errorf("add %s: empty hash", path)
	}
	if len(hash) > MaxHashLength {
		return fmt.Errorf("add %s: hash of %d bytes exceeds %d", path, len(hash), MaxHashLength)
	}
	return w.add(path, compress, slices.Clone(hash))
}

func (w *Writer) add(path string, compress bool, hash []byte) error {
	e, err := newEntry(w.root, path, compress)
	if err != nil {
		return err
	}
	if _, ok := w.paths[e.Path]; ok {
		return &fs.PathError{Op: "add", Path: e.Path, Err: ErrDuplicatePath}
	}
	w.paths[e.Path] = struct{}{}
	w.pending = append(w.pending, pending{entry: *e, compress: compress, hash: hash})
	return nil
}

// Write writes a legacy single-file archive to dst.
func (w *Writer) Write(ctx context.Context, dst io.Writer) error {
	items, err := w.commit(ctx, OrderByPath, "legacy")
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(dst)
	if err := encodeLegacy(bw, items, w.reportCommit(items)); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteSplit writes a split archive: the index to index and the payloads
// to data.
func (w *Writer) WriteSplit(ctx context.Context, index, data io.Writer) error {
	items, err := w.commit(ctx, OrderByHash, "split")
	if err != nil {
		return err
	}
	ib := bufio.NewWriter(index)
	db := bufio.NewWriter(data)
	if err := encodeSplit(ib, db, items, w.reportCommit(items)); err != nil {
		return err
	}
	if err := ib.Flush(); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := db.Flush(); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// WriteFile writes a legacy archive to path, replacing it atomically.
// Parent directories are created as needed.
func (w *Writer) WriteFile(ctx context.Context, path string) error {
	return writeFilesAtomic([]string{path}, func(files []io.Writer) error {
		return w.Write(ctx, files[0])
	})
}

// WriteSplitFiles writes a split archive to indexPath and dataPath. Neither
// file is replaced unless both were written completely.
func (w *Writer) WriteSplitFiles(ctx context.Context, indexPath, dataPath string) error {
	return writeFilesAtomic([]string{indexPath, dataPath}, func(files []io.Writer) error {
		return w.WriteSplit(ctx, files[0], files[1])
	})
}

// commit stages every entry, sorts, and feeds the manifest sink. The
// returned entries carry their final sizes, flags and hashes; offsets are
// assigned by the encoder.
func (w *Writer) commit(ctx context.Context, defaultOrder Ordering, layout string) ([]*staged, error) {
	order := defaultOrder
	if w.cfg.orderingSet {
		order = w.cfg.ordering
	}
	w.log().Info("building archive", "root", w.root, "layout", layout,
		"entries", len(w.pending), "ordering", order.String())

	items, err := w.stage(ctx)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(items, func(a, b *staged) int {
		return order.Compare(&a.entry, &b.entry)
	})

	if w.cfg.manifest != nil {
		for _, it := range items {
			if err := w.cfg.manifest.AddResourceEntry(it.entry.Path, it.data); err != nil {
				return nil, fmt.Errorf("manifest %s: %w", it.entry.Path, err)
			}
		}
	}
	return items, nil
}

// stage reads, compresses, encrypts and hashes every pending entry.
func (w *Writer) stage(ctx context.Context) ([]*staged, error) {
	comp := compress.New()
	items := make([]*staged, 0, len(w.pending))
	var bytesDone uint64

	for i := range w.pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := &w.pending[i]
		it, err := w.stageOne(comp, p)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
		bytesDone += uint64(it.entry.Size)

		w.log().Debug("staged entry", "path", it.entry.Path, "size", it.entry.Size,
			"stored", len(it.data), "encrypted", it.entry.IsEncrypted())
		w.reportProgress(StageStaging, it.entry.Path, bytesDone, i+1, len(w.pending))
	}
	return items, nil
}

func (w *Writer) stageOne(comp *compress.Compressor, p *pending) (*staged, error) {
	e := p.entry
	raw, err := os.ReadFile(e.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.SourcePath, err)
	}
	if int64(len(raw)) != int64(e.Size) {
		return nil, fmt.Errorf("read %s: file changed (size %d, want %d)", e.SourcePath, len(raw), e.Size)
	}

	data := raw
	e.CompressedSize = FlagUncompressed
	if p.compress && !w.skipCompression(&e) {
		out, ok, err := comp.Compress(raw)
		if err != nil {
			return nil, fmt.Errorf("compress %s: %w", e.Path, err)
		}
		if ok {
			data = out
			e.CompressedSize = uint32(len(out)) //nolint:gosec // smaller than Size
		}
	}

	e.Flags = 0
	if w.cipher != nil && policy.HasExtension(e.Path, w.cfg.encryptedExts) {
		data = w.cipher.Apply(data)
		e.Flags |= FlagEncrypted
	}

	e.Hash = p.hash
	if e.Hash == nil {
		h := w.cfg.algorithm.Hash()
		h.Write(data)
		e.Hash = h.Sum(nil)
	}
	return &staged{entry: e, data: data}, nil
}

func (w *Writer) skipCompression(e *Entry) bool {
	if len(w.cfg.skipCompression) == 0 {
		return false
	}
	info, err := os.Stat(e.SourcePath)
	if err != nil {
		info = nil
	}
	return policy.ShouldSkip(e.Path, info, w.cfg.skipCompression)
}

// reportCommit returns a callback for encoders to report each written entry.
func (w *Writer) reportCommit(items []*staged) func(int) {
	var bytesDone uint64
	return func(i int) {
		bytesDone += uint64(len(items[i].data))
		w.reportProgress(StageCommitting, items[i].entry.Path, bytesDone, i+1, len(items))
	}
}

// reportProgress sends a progress event if a callback is configured.
func (w *Writer) reportProgress(stage ProgressStage, path string, bytesDone uint64, filesDone, filesTotal int) {
	if w.cfg.progress == nil {
		return
	}
	w.cfg.progress(ProgressEvent{
		Stage:      stage,
		Path:       path,
		BytesDone:  bytesDone,
		FilesDone:  filesDone,
		FilesTotal: filesTotal,
	})
}
