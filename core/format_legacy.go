package darc

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/meigma/darc/core/internal/sizing"
)

// Legacy layout sizes.
const (
	legacyHeaderSize = 32
	legacyRecordSize = 20
)

// encodeLegacy writes items as a single-file archive. Offsets are assigned
// to the items before the header is written, so the output is produced in
// one sequential pass.
func encodeLegacy(w io.Writer, items []*staged, written func(int)) error {
	n := uint64(len(items))
	poolOffset := uint64(legacyHeaderSize)

	strOffsets := make([]uint64, len(items))
	var poolSize uint64
	for i, it := range items {
		strOffsets[i] = poolSize
		poolSize += uint64(len(it.entry.Path)) + 1
	}

	off := poolOffset + poolSize
	for _, it := range items {
		off = sizing.Align(off, sizing.Alignment)
		if off > math.MaxUint32 {
			return fmt.Errorf("write %s: offset %d: %w", it.entry.Path, off, ErrSizeOverflow)
		}
		it.entry.ResourceOffset = uint32(off)
		off += uint64(len(it.data))
	}
	tableOffset := sizing.Align(off, sizing.Alignment)
	if tableOffset+n*legacyRecordSize > math.MaxUint32 {
		return fmt.Errorf("write archive: %d bytes: %w", tableOffset+n*legacyRecordSize, ErrSizeOverflow)
	}

	bw := &binWriter{w: w}
	bw.u32(VersionLegacy)
	bw.u32(0)
	bw.u64(0)
	bw.u32(uint32(poolOffset))
	bw.u32(uint32(poolSize))
	bw.u32(uint32(n))
	bw.u32(uint32(tableOffset))

	for _, it := range items {
		bw.write([]byte(it.entry.Path))
		bw.write([]byte{0})
	}

	for i, it := range items {
		bw.padTo(uint64(it.entry.ResourceOffset))
		bw.write(it.data)
		if bw.err != nil {
			break
		}
		if written != nil {
			written(i)
		}
	}

	bw.padTo(tableOffset)
	for i, it := range items {
		e := &it.entry
		bw.u32(uint32(strOffsets[i]))
		bw.u32(e.ResourceOffset)
		bw.u32(e.Size)
		bw.u32(e.CompressedSize)
		bw.u32(e.Flags)
	}

	if bw.err != nil {
		return fmt.Errorf("write archive: %w", bw.err)
	}
	return nil
}

// legacyFormat reads the single-file layout.
type legacyFormat struct {
	src     ByteSource
	name    string
	entries []*Entry
}

// openLegacy parses the header, string pool and entry table of src.
func openLegacy(src ByteSource, name string) (*legacyFormat, error) {
	hdr, err := readRange(src, 0, legacyHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	r := newBinReader(hdr)
	version := r.u32()
	if version != VersionLegacy {
		return nil, &FormatError{File: name, Want: VersionLegacy, Got: version}
	}
	r.u32() // pad
	r.u64() // userdata
	poolOffset := r.u32()
	poolSize := r.u32()
	count := r.u32()
	tableOffset := r.u32()

	pool, err := readRange(src, uint64(poolOffset), poolSize)
	if err != nil {
		return nil, fmt.Errorf("%s: read string pool: %w", name, err)
	}
	tableSize := uint64(count) * legacyRecordSize
	if tableSize > math.MaxUint32 {
		return nil, fmt.Errorf("%s: %w: entry count %d", name, ErrFormat, count)
	}
	table, err := readRange(src, uint64(tableOffset), uint32(tableSize))
	if err != nil {
		return nil, fmt.Errorf("%s: read entry table: %w", name, err)
	}

	entries := make([]*Entry, 0, count)
	strOffsets := make([]uint32, 0, count)
	var pos int
	for range count {
		end := bytes.IndexByte(pool[pos:], 0)
		if end < 0 {
			return nil, fmt.Errorf("%s: %w: unterminated path in string pool", name, ErrFormat)
		}
		entries = append(entries, &Entry{Path: string(pool[pos : pos+end])})
		strOffsets = append(strOffsets, uint32(pos)) //nolint:gosec // pos < poolSize
		pos += end + 1
	}

	r = newBinReader(table)
	for i, e := range entries {
		if so := r.u32(); so != strOffsets[i] {
			return nil, fmt.Errorf("%s: %w: entry %d string offset %d, want %d", name, ErrFormat, i, so, strOffsets[i])
		}
		e.ResourceOffset = r.u32()
		e.Size = r.u32()
		e.CompressedSize = r.u32()
		e.Flags = r.u32()
		normalize(e)
		if uint64(e.ResourceOffset)+uint64(e.CompressedSize) > uint64(src.Size()) { //nolint:gosec // non-negative
			return nil, fmt.Errorf("%s: %w: entry %s payload beyond end of file", name, ErrFormat, e.Path)
		}
	}

	return &legacyFormat{src: src, name: name, entries: entries}, nil
}

func (f *legacyFormat) Version() uint32 { return VersionLegacy }

func (f *legacyFormat) Entries() []*Entry { return f.entries }

func (f *legacyFormat) ReadContent(e *Entry) ([]byte, error) {
	data, err := readRange(f.src, uint64(e.ResourceOffset), e.StoredSize())
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", f.name, e.Path, err)
	}
	return data, nil
}

func (f *legacyFormat) Payloads() ByteSource {
	return f.src
}

func (f *legacyFormat) Close() error {
	return closeSource(f.src)
}
