package arctype

// FlagUncompressed is stored in CompressedSize when an entry's payload is
// kept raw. The stored length is then Size.
const FlagUncompressed uint32 = 0xFFFFFFFF

// FlagEncrypted marks an entry whose stored bytes are encrypted.
const FlagEncrypted uint32 = 1 << 0

// Entry represents one resource in an archive.
type Entry struct {
	// Path is the forward-slash path relative to the content root
	// (e.g., "/main/main.collectionc"). Unique within an archive.
	Path string

	// SourcePath is the absolute path of the source file. Only set when
	// the entry was created for writing; never persisted.
	SourcePath string

	// Size is the uncompressed length in bytes.
	Size uint32

	// CompressedSize is the stored length of a compressed payload, or
	// FlagUncompressed when the payload is stored raw. Entries returned by
	// a reader have the sentinel replaced by Size.
	CompressedSize uint32

	// ResourceOffset is the absolute byte offset of the payload in the
	// archive (legacy layout) or in the data file (split layout).
	ResourceOffset uint32

	// Flags holds entry bits such as FlagEncrypted.
	Flags uint32

	// Hash is the content digest of the stored bytes. Only present in the
	// split layout or when the archive was ordered by hash.
	Hash []byte
}

// StoredSize returns the number of payload bytes actually stored.
func (e *Entry) StoredSize() uint32 {
	if e.CompressedSize == FlagUncompressed {
		return e.Size
	}
	return e.CompressedSize
}

// IsCompressed reports whether the stored payload is LZ4 compressed.
//
// A compressed payload is always smaller than the original, so a stored
// size equal to Size means the bytes were kept raw.
func (e *Entry) IsCompressed() bool {
	return e.CompressedSize != FlagUncompressed && e.CompressedSize != e.Size
}

// IsEncrypted reports whether FlagEncrypted is set.
func (e *Entry) IsEncrypted() bool {
	return e.Flags&FlagEncrypted != 0
}

// Ratio returns stored size divided by original size.
// Empty entries report a ratio of 1.
func (e *Entry) Ratio() float64 {
	if e.Size == 0 {
		return 1
	}
	return float64(e.StoredSize()) / float64(e.Size)
}
