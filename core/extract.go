package darc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/darc/core/internal/batch"
)

// extractConfig holds ExtractAll configuration.
type extractConfig struct {
	decode      bool
	concurrency int
	progress    ProgressFunc
}

// ExtractOption configures ExtractAll.
type ExtractOption func(*extractConfig)

// ExtractWithDecode writes decoded file bytes instead of stored bytes.
func ExtractWithDecode(decode bool) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.decode = decode
	}
}

// ExtractWithConcurrency sets how many payload reads may be in flight.
// Values above one help with high latency sources such as HTTP.
func ExtractWithConcurrency(n int) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.concurrency = n
	}
}

// ExtractWithProgress sets a callback to receive one event per extracted
// entry.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.progress = fn
	}
}

// ExtractAll writes every entry to destDir joined with its path, creating
// directories as needed. By default the stored bytes are written unchanged.
//
// Entry paths that would escape destDir are rejected with fs.ErrInvalid.
// The first error aborts extraction; files already written are left in
// place.
func (r *Reader) ExtractAll(ctx context.Context, destDir string, opts ...ExtractOption) error {
	if r == nil || r.format == nil {
		return ErrClosed
	}
	var cfg extractConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return fmt.Errorf("create destination %s: %w", destDir, err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return fmt.Errorf("open destination root %s: %w", destDir, err)
	}
	defer root.Close()

	entries := r.format.Entries()
	r.log().Info("extracting archive", "dest", destDir, "entries", len(entries), "decode", cfg.decode)

	spans := make([]batch.Span, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimPrefix(e.Path, "/")
		if !fs.ValidPath(name) || name == "." {
			return &fs.PathError{Op: "extract", Path: e.Path, Err: fs.ErrInvalid}
		}
		spans = append(spans, batch.Span{Index: i, Offset: uint64(e.ResourceOffset), Size: uint64(e.StoredSize())})
	}

	payloads := batch.NewReader(r.format.Payloads(),
		batch.WithConcurrency(cfg.concurrency),
		batch.WithLogger(r.log()))

	var bytesDone uint64
	filesDone := 0
	return payloads.Each(ctx, spans, func(s batch.Span, data []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := entries[s.Index]
		if cfg.decode {
			var err error
			if data, err = r.decode(e, data); err != nil {
				return err
			}
		}
		name := filepath.FromSlash(strings.TrimPrefix(e.Path, "/"))
		if err := writeFileInRoot(root, name, data); err != nil {
			return fmt.Errorf("extract %s: %w", e.Path, err)
		}

		bytesDone += uint64(len(data))
		filesDone++
		if cfg.progress != nil {
			cfg.progress(ProgressEvent{
				Stage:      StageExtracting,
				Path:       e.Path,
				BytesDone:  bytesDone,
				FilesDone:  filesDone,
				FilesTotal: len(entries),
			})
		}
		return nil
	})
}
