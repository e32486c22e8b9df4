package darc

import (
	"encoding/binary"
	"io"
)

// binWriter emits big-endian fields and tracks the output offset.
// The first error sticks; later writes are no-ops.
type binWriter struct {
	w       io.Writer
	off     uint64
	err     error
	scratch [8]byte
}

func (b *binWriter) write(p []byte) {
	if b.err != nil {
		return
	}
	n, err := b.w.Write(p)
	b.off += uint64(n)
	b.err = err
}

func (b *binWriter) u32(v uint32) {
	binary.BigEndian.PutUint32(b.scratch[:4], v)
	b.write(b.scratch[:4])
}

func (b *binWriter) u64(v uint64) {
	binary.BigEndian.PutUint64(b.scratch[:8], v)
	b.write(b.scratch[:8])
}

// padTo writes zero bytes until the offset reaches off.
func (b *binWriter) padTo(off uint64) {
	var zero [8]byte
	for b.err == nil && b.off < off {
		n := min(off-b.off, uint64(len(zero)))
		b.write(zero[:n])
	}
}

// binReader decodes big-endian fields from an in-memory buffer and reports
// truncation instead of panicking.
type binReader struct {
	buf []byte
	off int
	ok  bool
}

func newBinReader(buf []byte) *binReader {
	return &binReader{buf: buf, ok: true}
}

func (r *binReader) take(n int) []byte {
	if !r.ok || n < 0 || len(r.buf)-r.off < n {
		r.ok = false
		return nil
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p
}

func (r *binReader) u32() uint32 {
	p := r.take(4)
	if p == nil {
		return 0
	}
	return binary.BigEndian.Uint32(p)
}

func (r *binReader) u64() uint64 {
	p := r.take(8)
	if p == nil {
		return 0
	}
	return binary.BigEndian.Uint64(p)
}
