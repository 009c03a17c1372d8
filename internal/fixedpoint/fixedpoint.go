// fixedpoint.go -- word-at-a-time fixed-point decimal codec for the BRC grammar
//
// Decodes the constrained temperature grammar [-]?D{1,2}.D into a signed
// integer scaled by 10. The word decoder locates the decimal point with a
// single bit-4 test across the word (no byte loop), derives the sign from
// the first byte, picks the digit lanes with a switch over the four
// possible layouts, and sums them as 100*H + 10*T + U. Despite its name,
// DecodeBranchless therefore branches on the layout; only the search for
// '.' is loop- and branch-free.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.
package fixedpoint

import (
	"fmt"
	"math/bits"
)

// dotProbe has bit4 set in byte lanes 1..3 and clear in byte lane 0. Digit
// bytes (0x30-0x39) have bit4 set; '.' (0x2E) has bit4 clear. Byte 0 is
// excluded because it may hold '-' (0x2D), which also has bit4 clear, and
// would otherwise be mistaken for the decimal point.
const dotProbe = uint64(0x10101000)

// DecodeBranchless decodes a value starting at the first byte of word w
// (little-endian, at least 5 bytes significant) and returns the scaled
// integer and the number of bytes consumed, including the trailing
// newline. w must hold "[-]?D{1,2}.D\n" starting at byte 0. It dispatches
// on (sign, dot position) with a switch and panics on any other layout.
func DecodeBranchless(w uint64) (scaled int16, consumed int) {
	t := ^w & dotProbe
	p := bits.TrailingZeros64(t) >> 3 // byte index of '.': 1, 2, or 3

	isNeg := byte(w) == '-'

	var h, t10, u byte
	switch {
	case !isNeg && p == 1: // "D.D"
		u = byte(w >> 16)
		t10 = byte(w)
		consumed = 3 + 1
	case !isNeg && p == 2: // "DD.D"
		h = byte(w)
		t10 = byte(w >> 8)
		u = byte(w >> 24)
		consumed = 4 + 1
	case isNeg && p == 2: // "-D.D"
		t10 = byte(w >> 8)
		u = byte(w >> 24)
		consumed = 4 + 1
	case isNeg && p == 3: // "-DD.D"
		h = byte(w >> 8)
		t10 = byte(w >> 16)
		u = byte(w >> 32)
		consumed = 5 + 1
	default:
		panic(fmt.Sprintf("fixedpoint: malformed value layout, dot at %d, neg %v", p, isNeg))
	}

	mag := int16(digit(h))*100 + int16(digit(t10))*10 + int16(digit(u))
	if isNeg {
		mag = -mag
	}
	return mag, consumed
}

// DecodeTail is the branching decoder used when a full word lookahead past
// the value's first byte isn't safely available (end of a parse buffer).
// b must be exactly the value's bytes (no trailing newline), matching the
// grammar "-?[0-9]{1,2}\.[0-9]".
func DecodeTail(b []byte) int16 {
	neg := b[0] == '-'
	var mag int16
	switch {
	case !neg && len(b) == 3: // D.D
		mag = int16(digit(b[0]))*10 + int16(digit(b[2]))
	case !neg && len(b) == 4: // DD.D
		mag = int16(digit(b[0]))*100 + int16(digit(b[1]))*10 + int16(digit(b[3]))
	case neg && len(b) == 4: // -D.D
		mag = int16(digit(b[1]))*10 + int16(digit(b[3]))
	case neg && len(b) == 5: // -DD.D
		mag = int16(digit(b[1]))*100 + int16(digit(b[2]))*10 + int16(digit(b[4]))
	default:
		panic(fmt.Sprintf("fixedpoint: malformed value %q", b))
	}
	if neg {
		mag = -mag
	}
	return mag
}

func digit(b byte) byte {
	if b == 0 {
		return 0
	}
	return b - '0'
}
