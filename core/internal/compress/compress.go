// Package compress wraps LZ4 HC block compression with a store-raw fallback
// for payloads that do not shrink enough to be worth decoding.
package compress

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// FallbackRatio is the compressed/original ratio above which a payload is
// stored raw instead.
const FallbackRatio = 0.95

// Compressor compresses payloads one at a time. Each call is independent;
// no dictionary or state is shared between payloads.
//
// A Compressor is not safe for concurrent use.
type Compressor struct {
	hc  lz4.CompressorHC
	buf []byte
}

// New returns a Compressor using the highest LZ4 HC level.
func New() *Compressor {
	return &Compressor{hc: lz4.CompressorHC{Level: lz4.Level9}}
}

// Compress encodes raw and reports whether the result is stored compressed.
//
// When compression saves less than 5% (or the input is empty or
// incompressible) the returned slice is raw itself and compressed is false.
// Otherwise it returns a freshly allocated LZ4 block.
func (c *Compressor) Compress(raw []byte) (out []byte, compressed bool, err error) {
	if len(raw) == 0 {
		return raw, false, nil
	}

	bound := lz4.CompressBlockBound(len(raw))
	if cap(c.buf) < bound {
		c.buf = make([]byte, bound)
	}
	dst := c.buf[:bound]

	n, err := c.hc.CompressBlock(raw, dst)
	if err != nil {
		return nil, false, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 || float64(n)/float64(len(raw)) > FallbackRatio {
		return raw, false, nil
	}

	out = make([]byte, n)
	copy(out, dst[:n])
	return out, true, nil
}

// Decompress decodes an LZ4 block whose original length is size.
func Decompress(src []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, want %d", n, size)
	}
	return dst, nil
}
