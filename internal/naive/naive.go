// naive.go -- plain line-by-line parser, offered as the --method=naive path
//
// A bufio.Scanner over the chunk's byte range, splitting each line on its
// last ';' and decoding the value with the branching (non-SIMD) codec. No
// SWAR tricks; this exists purely as the slow, obviously-correct baseline
// the fast paths are checked against.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.
package naive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/opencoff/brc/internal/fixedpoint"
	"github.com/opencoff/brc/internal/parser"
	"github.com/opencoff/brc/internal/rollinghash"
)

// bufScannerMax is large enough for a 100-byte station name plus a short
// value; set well above that for headroom.
const bufScannerMax = 1 << 16

// Parse reads r's [start, endInclusive] byte range one line at a time and
// invokes cb for every record, in file order.
func Parse(r io.ReaderAt, start, endInclusive uint64, cb parser.Callback) error {
	sr := io.NewSectionReader(r, int64(start), int64(endInclusive-start+1))
	sc := bufio.NewScanner(sr)
	sc.Buffer(make([]byte, bufScannerMax), bufScannerMax)

	for sc.Scan() {
		line := sc.Bytes()
		semi := bytes.LastIndexByte(line, ';')
		if semi < 0 {
			return fmt.Errorf("%w: no ';' in line %q", parser.ErrParse, line)
		}

		name := line[:semi]
		value := line[semi+1:]

		scaled := fixedpoint.DecodeTail(value)
		hash := rollinghash.Bytes(name)
		cb(name, scaled, hash)
	}

	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s", parser.ErrRead, err)
	}
	return nil
}
