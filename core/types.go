package darc

import (
	"io"

	"github.com/meigma/darc/core/internal/arctype"
	"github.com/meigma/darc/core/internal/policy"
)

// Re-export types from internal/arctype for public API.
type (
	// Entry represents one resource in an archive.
	Entry = arctype.Entry

	// FormatError reports a version mismatch in an archive header.
	FormatError = arctype.FormatError

	// ProgressEvent represents a progress update during builds or extraction.
	ProgressEvent = arctype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = arctype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	ProgressFunc = arctype.ProgressFunc

	// SkipCompressionFunc returns true when a file should be stored uncompressed.
	SkipCompressionFunc = policy.SkipCompressionFunc
)

// Entry field sentinels.
const (
	FlagUncompressed = arctype.FlagUncompressed
	FlagEncrypted    = arctype.FlagEncrypted
)

// Format versions.
const (
	// VersionLegacy is the version of the single-file layout.
	VersionLegacy uint32 = 4

	// VersionSplit is the version of the index/data file pair.
	VersionSplit = VersionLegacy + 1
)

// MaxHashLength is the longest content digest the split index may carry.
const MaxHashLength = 64

// Re-export progress stage constants.
const (
	StageStaging    = arctype.StageStaging
	StageCommitting = arctype.StageCommitting
	StageExtracting = arctype.StageExtracting
)

// Sentinel errors re-exported from internal/arctype.
var (
	// ErrNotFound is returned when a source or archive file is missing.
	// It matches fs.ErrNotExist.
	ErrNotFound = arctype.ErrNotFound

	// ErrOutsideRoot is returned when a source file is not under the root.
	ErrOutsideRoot = arctype.ErrOutsideRoot

	// ErrFormat is returned for version mismatches and corrupt structure.
	ErrFormat = arctype.ErrFormat

	// ErrClosed is returned by operations on a closed or unopened Reader.
	ErrClosed = arctype.ErrClosed

	// ErrSizeOverflow is returned when a file or archive exceeds the 32-bit
	// size and offset fields.
	ErrSizeOverflow = arctype.ErrSizeOverflow

	// ErrDuplicatePath is returned when two entries share a relative path.
	ErrDuplicatePath = arctype.ErrDuplicatePath

	// ErrDecompression is returned when a payload fails to decompress.
	ErrDecompression = arctype.ErrDecompression

	// ErrMissingKey is returned when decoding an encrypted entry without a key.
	ErrMissingKey = arctype.ErrMissingKey
)

// DefaultEncryptedExtensions lists the extensions encrypted by default.
var DefaultEncryptedExtensions = policy.DefaultEncryptedExtensions

// DefaultSkipCompression returns a SkipCompressionFunc that skips small files
// and known already-compressed extensions.
var DefaultSkipCompression = policy.DefaultSkipCompression

// SkipExtensions returns a SkipCompressionFunc matching the given extensions.
var SkipExtensions = policy.SkipExtensions

// ManifestSink receives the final stored bytes of every entry, in archive
// order, during a build. Errors abort the build.
type ManifestSink interface {
	AddResourceEntry(path string, data []byte) error
}

// ByteSource provides random access to archive bytes.
//
// Local files, in-memory buffers and http.Source (remote archives read
// with range requests) all satisfy it.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}
