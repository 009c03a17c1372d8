// scanner.go -- word-level SWAR primitives for finding ';' in an 8-byte word
//
// Operates on little-endian 64-bit words loaded from a parse buffer. These
// are the building blocks the record parser uses to locate station-name
// boundaries without a byte-at-a-time scan.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.
package scanner

import "math/bits"

const (
	semicolons = uint64(0x3B3B3B3B3B3B3B3B)
	lowBits    = uint64(0x0101010101010101)
	highBits   = uint64(0x8080808080808080)
)

// SemicolonMask returns a nonzero value iff word w contains at least one
// ';' byte. The returned bits are not a clean 0/1-per-lane mask; only
// zero-vs-nonzero and TrailingZeros64 of the result are meaningful.
func SemicolonMask(w uint64) uint64 {
	x := w ^ semicolons
	return (x - lowBits) & (^x & highBits)
}

// FirstSemicolon returns the byte offset (0-7) of the first ';' in w, or 8
// if w contains none.
func FirstSemicolon(w uint64) int {
	return bits.TrailingZeros64(SemicolonMask(w)) >> 3
}

// mask64 returns a mask covering the low k bytes of a word, k in [0,8].
var mask64 = [9]uint64{
	0,
	0x00000000000000FF,
	0x000000000000FFFF,
	0x0000000000FFFFFF,
	0x00000000FFFFFFFF,
	0x000000FFFFFFFFFF,
	0x0000FFFFFFFFFFFF,
	0x00FFFFFFFFFFFFFF,
	0xFFFFFFFFFFFFFFFF,
}

// Truncate masks w down to its first k bytes (k in [0,8]); the remaining
// high bytes are zeroed. Used so only the actual key bytes feed the rolling
// hash.
func Truncate(w uint64, k int) uint64 {
	return w & mask64[k]
}
