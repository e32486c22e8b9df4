package darc

import (
	"fmt"
	"io"
	"math"

	"github.com/meigma/darc/core/internal/sizing"
)

// Split layout sizes.
const (
	splitIndexHeaderSize = 24
	splitDataHeaderSize  = 20
	splitRecordFixedSize = 24
)

// encodeSplit writes items as an index file and a data file.
func encodeSplit(index, data io.Writer, items []*staged, written func(int)) error {
	off := uint64(splitDataHeaderSize)
	for _, it := range items {
		off = sizing.Align(off, sizing.Alignment)
		if off > math.MaxUint32 {
			return fmt.Errorf("write %s: offset %d: %w", it.entry.Path, off, ErrSizeOverflow)
		}
		it.entry.ResourceOffset = uint32(off)
		off += uint64(len(it.data))
		if len(it.entry.Hash) > MaxHashLength {
			return fmt.Errorf("write %s: hash of %d bytes exceeds %d", it.entry.Path, len(it.entry.Hash), MaxHashLength)
		}
	}
	if off > math.MaxUint32 {
		return fmt.Errorf("write data: %d bytes: %w", off, ErrSizeOverflow)
	}

	dw := &binWriter{w: data}
	dw.u32(VersionSplit)
	dw.u32(0)
	dw.u64(0)
	dw.u32(splitDataHeaderSize)
	for i, it := range items {
		dw.padTo(uint64(it.entry.ResourceOffset))
		dw.write(it.data)
		if dw.err != nil {
			break
		}
		if written != nil {
			written(i)
		}
	}
	if dw.err != nil {
		return fmt.Errorf("write data: %w", dw.err)
	}

	iw := &binWriter{w: index}
	iw.u32(VersionSplit)
	iw.u32(0)
	iw.u64(0)
	iw.u32(uint32(len(items))) //nolint:gosec // bounded by data size
	iw.u32(splitIndexHeaderSize)
	for _, it := range items {
		e := &it.entry
		iw.u32(e.ResourceOffset)
		iw.u32(e.Size)
		iw.u32(e.CompressedSize)
		iw.u32(e.Flags)
		iw.u32(uint32(len(e.Path))) //nolint:gosec // path length of a file name
		iw.u32(uint32(len(e.Hash))) //nolint:gosec // at most MaxHashLength
		iw.write([]byte(e.Path))
		iw.write(e.Hash)
	}
	if iw.err != nil {
		return fmt.Errorf("write index: %w", iw.err)
	}
	return nil
}

// splitFormat reads the index/data file pair.
type splitFormat struct {
	index              ByteSource
	data               ByteSource
	name               string
	resourceDataOffset uint32
	entries            []*Entry
}

// openSplit parses both headers and every index record.
func openSplit(index, data ByteSource, indexName, dataName string) (*splitFormat, error) {
	hdr, err := readRange(index, 0, splitIndexHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", indexName, err)
	}
	r := newBinReader(hdr)
	if v := r.u32(); v != VersionSplit {
		return nil, &FormatError{File: indexName, Want: VersionSplit, Got: v}
	}
	r.u32() // pad
	r.u64() // userdata
	count := r.u32()
	tableOffset := r.u32()

	dhdr, err := readRange(data, 0, splitDataHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", dataName, err)
	}
	dr := newBinReader(dhdr)
	if v := dr.u32(); v != VersionSplit {
		return nil, &FormatError{File: dataName, Want: VersionSplit, Got: v}
	}
	dr.u32() // pad
	dr.u64() // userdata
	resourceDataOffset := dr.u32()

	indexSize := uint64(index.Size()) //nolint:gosec // non-negative
	if uint64(tableOffset) > indexSize {
		return nil, fmt.Errorf("%s: %w: entry table offset %d beyond end", indexName, ErrFormat, tableOffset)
	}
	table, err := readRange(index, uint64(tableOffset), uint32(indexSize-uint64(tableOffset))) //nolint:gosec // index fits in memory
	if err != nil {
		return nil, fmt.Errorf("%s: read entry table: %w", indexName, err)
	}
	if uint64(count)*splitRecordFixedSize > uint64(len(table)) {
		return nil, fmt.Errorf("%s: %w: %d entries do not fit in %d bytes", indexName, ErrFormat, count, len(table))
	}

	dataSize := uint64(data.Size()) //nolint:gosec // non-negative
	entries := make([]*Entry, 0, count)
	r = newBinReader(table)
	for i := range count {
		e := &Entry{
			ResourceOffset: r.u32(),
			Size:           r.u32(),
			CompressedSize: r.u32(),
			Flags:          r.u32(),
		}
		pathLen := r.u32()
		hashLen := r.u32()
		if hashLen > MaxHashLength {
			return nil, fmt.Errorf("%s: %w: entry %d hash length %d", indexName, ErrFormat, i, hashLen)
		}
		path := r.take(int(pathLen))
		hash := r.take(int(hashLen))
		if !r.ok {
			return nil, fmt.Errorf("%s: %w: entry %d truncated", indexName, ErrFormat, i)
		}
		e.Path = string(path)
		if hashLen > 0 {
			e.Hash = append([]byte(nil), hash...)
		}
		normalize(e)
		if uint64(e.ResourceOffset)+uint64(e.CompressedSize) > dataSize {
			return nil, fmt.Errorf("%s: %w: entry %s payload beyond end of data", dataName, ErrFormat, e.Path)
		}
		entries = append(entries, e)
	}

	return &splitFormat{
		index:              index,
		data:               data,
		name:               dataName,
		resourceDataOffset: resourceDataOffset,
		entries:            entries,
	}, nil
}

func (f *splitFormat) Version() uint32 { return VersionSplit }

func (f *splitFormat) Entries() []*Entry { return f.entries }

func (f *splitFormat) ReadContent(e *Entry) ([]byte, error) {
	data, err := readRange(f.data, uint64(e.ResourceOffset), e.StoredSize())
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", f.name, e.Path, err)
	}
	return data, nil
}

func (f *splitFormat) Payloads() ByteSource {
	return f.data
}

func (f *splitFormat) Close() error {
	ierr := closeSource(f.index)
	derr := closeSource(f.data)
	if ierr != nil {
		return ierr
	}
	return derr
}
