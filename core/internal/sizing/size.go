// Package sizing provides checked conversions into the 32-bit fields of the
// archive format and alignment arithmetic.
package sizing

import "math"

// Alignment is the byte boundary every payload starts on.
const Alignment = 4

// ToUint32 converts n to uint32, returning overflowErr if it doesn't fit.
func ToUint32(n int64, overflowErr error) (uint32, error) {
	if n < 0 || n > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(n), nil
}

// Align rounds off up to the next multiple of align, which must be a power
// of two.
func Align(off uint64, align uint64) uint64 {
	return (off + align - 1) &^ (align - 1)
}

// Padding returns the number of zero bytes needed to align off.
func Padding(off uint64, align uint64) int {
	return int(Align(off, align) - off) //nolint:gosec // result < align
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}
