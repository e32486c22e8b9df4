package darc

import (
	"log/slog"

	"github.com/opencontainers/go-digest"
)

// writerConfig holds configuration for archive builds.
type writerConfig struct {
	ordering        Ordering
	orderingSet     bool
	manifest        ManifestSink
	key             []byte
	encryptedExts   []string
	skipCompression []SkipCompressionFunc
	algorithm       digest.Algorithm
	progress        ProgressFunc
	logger          *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*writerConfig)

// WriteWithOrdering fixes the sort key for every archive the Writer emits.
// Without it the legacy layout is ordered by path and the split layout by
// content hash.
func WriteWithOrdering(o Ordering) WriterOption {
	return func(cfg *writerConfig) {
		cfg.ordering = o
		cfg.orderingSet = true
	}
}

// WriteWithManifest registers a sink that receives each entry's final stored
// bytes in archive order.
func WriteWithManifest(sink ManifestSink) WriterOption {
	return func(cfg *writerConfig) {
		cfg.manifest = sink
	}
}

// WriteWithEncryption enables payload encryption with a 16-byte key.
// Entries whose extension is in exts are encrypted after compression.
// With no exts, DefaultEncryptedExtensions applies.
//
// Without this option no payload is encrypted.
func WriteWithEncryption(key []byte, exts ...string) WriterOption {
	return func(cfg *writerConfig) {
		cfg.key = append([]byte(nil), key...)
		if len(exts) == 0 {
			exts = DefaultEncryptedExtensions
		}
		cfg.encryptedExts = append([]string(nil), exts...)
	}
}

// WriteWithSkipCompression adds predicates that decide to store a file raw
// without trying to compress it. If any predicate returns true, compression
// is skipped for that file.
func WriteWithSkipCompression(fns ...SkipCompressionFunc) WriterOption {
	return func(cfg *writerConfig) {
		cfg.skipCompression = append(cfg.skipCompression, fns...)
	}
}

// WriteWithHashAlgorithm sets the digest used for entry hashes.
// The default is digest.SHA256.
func WriteWithHashAlgorithm(alg digest.Algorithm) WriterOption {
	return func(cfg *writerConfig) {
		cfg.algorithm = alg
	}
}

// WriteWithProgress sets a callback to receive progress updates while
// staging and writing. The callback receives events synchronously and
// should return quickly.
func WriteWithProgress(fn ProgressFunc) WriterOption {
	return func(cfg *writerConfig) {
		cfg.progress = fn
	}
}

// WriteWithLogger sets the logger for build operations.
// If not set, logging is disabled.
func WriteWithLogger(logger *slog.Logger) WriterOption {
	return func(cfg *writerConfig) {
		cfg.logger = logger
	}
}
