// parser.go -- buffered-chunk line walker and inner SWAR scan
//
// Reads a worker's byte range in large buffers, trims each buffer at the
// last newline, and invokes a per-record callback using the scanner and
// fixed-point codec primitives. Uses io.ReaderAt, which addresses reads by
// absolute offset and so needs no explicit rewind step after an
// over-read: the loop just advances its own offset counter by the amount
// it actually consumed.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/opencoff/brc/internal/fixedpoint"
	"github.com/opencoff/brc/internal/rollinghash"
	"github.com/opencoff/brc/internal/scanner"
)

// DefaultBufSize is the reference parse-buffer size: large enough to
// amortize I/O, small enough that many workers' buffers fit across
// last-level cache regions.
const DefaultBufSize = 64 << 20

// safetyMargin is the number of trailing bytes in a scan window that the
// fast path won't touch, leaving room for a 2-word semicolon lookahead
// plus an 8-byte value read (3 * 8).
const safetyMargin = 3 * 8

// Callback is invoked once per well-formed record, in file order.
type Callback func(name []byte, value int16, hash uint64)

// ErrRead wraps an I/O failure encountered while parsing.
var ErrRead = errors.New("parser: read error")

// ErrParse is returned when a read buffer holds no newline at all, or when
// a record in the tail region lacks its ';' or terminating newline.
// Fast-path parsing assumes conformance and never returns this; a value
// with a bad layout is not reported as ErrParse (the decoders panic).
var ErrParse = errors.New("parser: malformed record")

// Parser holds tunable parsing parameters.
type Parser struct {
	BufSize int
}

// New returns a Parser configured with the reference buffer size.
func New() *Parser {
	return &Parser{BufSize: DefaultBufSize}
}

// Parse reads r's [start, endInclusive] byte range and invokes cb exactly
// once for every "name;value\n" record entirely within it, in file order.
func (p *Parser) Parse(r io.ReaderAt, start, endInclusive uint64, cb Callback) error {
	bufSize := p.BufSize
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}
	buf := make([]byte, bufSize)

	offset := start
	for offset <= endInclusive {
		want := endInclusive - offset + 1
		toRead := uint64(bufSize)
		if toRead > want {
			toRead = want
		}

		n, err := r.ReadAt(buf[:toRead], int64(offset))
		if n == 0 {
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: %s", ErrRead, err)
			}
			break
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s", ErrRead, err)
		}

		data := buf[:n]
		last := bytes.LastIndexByte(data, '\n')
		if last < 0 {
			return fmt.Errorf("%w: no newline in buffer at offset %d", ErrParse, offset)
		}

		valid := data[:last+1]
		if err := scan(valid, cb); err != nil {
			return err
		}

		offset += uint64(len(valid))
	}

	return nil
}

// scan runs the inner SWAR loop (spec 4.5.1) over a buffer that is known
// to end exactly on a newline, falling back to a byte-at-a-time tail scan
// for whatever remains inside the final safety margin.
func scan(v []byte, cb Callback) error {
	i := 0
	nameStart := 0
	h := rollinghash.New()

	limit := len(v) - 2*8 - 8 // two-word lookahead + 8-byte value read
	for i <= limit {
		w0 := loadLE64(v[i : i+8])
		w1 := loadLE64(v[i+8 : i+16])

		m0 := scanner.SemicolonMask(w0)
		m1 := scanner.SemicolonMask(w1)

		if m0 == 0 && m1 == 0 {
			h = h.FoldWord(w0)
			h = h.FoldWord(w1)
			i += 16
			continue
		}

		lc1 := bits.TrailingZeros64(m0) >> 3 // 0..8
		var total int
		if lc1 < 8 {
			total = lc1
			h = h.FoldTail(scanner.Truncate(w0, total))
		} else {
			lc2 := bits.TrailingZeros64(m1) >> 3 // 0..7 (m1 != 0 here)
			h = h.FoldWord(w0)
			total = 8 + lc2
			h = h.FoldTail(scanner.Truncate(w1, lc2))
		}

		name := v[nameStart : i+total]
		valueStart := i + total + 1
		wv := loadLE64(v[valueStart : valueStart+8])
		scaled, consumed := fixedpoint.DecodeBranchless(wv)

		cb(name, scaled, h.Sum())

		i = valueStart + consumed
		nameStart = i
		h = rollinghash.New()
	}

	return tailScan(v[nameStart:], cb)
}

// tailScan handles the remainder of a buffer too small for the fast
// path's lookahead, one record at a time, byte-by-byte.
func tailScan(v []byte, cb Callback) error {
	i := 0
	for i < len(v) {
		semi := bytes.IndexByte(v[i:], ';')
		if semi < 0 {
			return fmt.Errorf("%w: no ';' found in tail at offset %d", ErrParse, i)
		}
		semi += i

		nl := bytes.IndexByte(v[semi+1:], '\n')
		if nl < 0 {
			return fmt.Errorf("%w: no newline found in tail at offset %d", ErrParse, semi)
		}
		nl += semi + 1

		name := v[i:semi]
		value := v[semi+1 : nl]

		scaled := fixedpoint.DecodeTail(value)
		h := rollinghash.Bytes(name)
		cb(name, scaled, h)

		i = nl + 1
	}
	return nil
}

func loadLE64(b []byte) uint64 {
	_ = b[7]
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
