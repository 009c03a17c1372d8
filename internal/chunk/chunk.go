// chunk.go -- partition a seekable byte stream into newline-aligned chunks
//
// Divides a byte range evenly across workers, folding the remainder into
// the last chunk, then moves each tentative boundary forward to the first
// newline at or after it.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.
package chunk

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dchest/siphash"
)

// scanWindow bounds how far past a tentative chunk boundary we'll look for
// the next newline before declaring the input malformed.
const scanWindow = 512

// Chunk is a byte range [Start, End] with both ends inclusive,
// newline-aligned at both edges (or EOF-adjacent for the last chunk).
type Chunk struct {
	Start uint64
	End   uint64 // inclusive
}

// ErrEmptyInput is returned when the planner is asked to partition a
// zero-length input.
var ErrEmptyInput = errors.New("chunk: empty input")

// ErrLayout is returned when a newline cannot be found within the
// planner's scan window; the input is malformed for planning purposes.
var ErrLayout = errors.New("chunk: no newline found within scan window")

// ErrPlanCorrupt is returned by Verify's caller when a plan's signature no
// longer matches its chunk boundaries.
var ErrPlanCorrupt = errors.New("chunk: plan signature mismatch")

// Plan is the result of partitioning an input: the tiling chunks plus a
// siphash-2-4 signature over the plan, so a rebuilt or corrupted plan can
// be detected by Verify. The signature is not a
// security mechanism -- it is an integrity tag, not an authentication one.
type Plan struct {
	Chunks []Chunk
	Salt   uint64
	Sig    uint64
}

// New partitions an input of length 'size' into 'n' roughly equal
// newline-aligned chunks, reading from r to locate boundaries.
//
// n <= 1 yields a single chunk spanning the whole file without scanning.
func New(r io.ReaderAt, size int64, n int) (*Plan, error) {
	if size <= 0 {
		return nil, ErrEmptyInput
	}

	L := uint64(size)

	var chunks []Chunk
	if n <= 1 {
		chunks = []Chunk{{Start: 0, End: L - 1}}
	} else {
		var err error
		chunks, err = planMany(r, L, n)
		if err != nil {
			return nil, err
		}
	}

	salt := rand64()
	p := &Plan{Chunks: chunks, Salt: salt}
	p.Sig = p.sign()
	return p, nil
}

func planMany(r io.ReaderAt, L uint64, n int) ([]Chunk, error) {
	step := L / uint64(n)
	chunks := make([]Chunk, 0, n)

	var start uint64
	buf := make([]byte, scanWindow)

	for i := 0; i < n; i++ {
		if start >= L {
			break
		}

		if i == n-1 {
			chunks = append(chunks, Chunk{Start: start, End: L - 1})
			break
		}

		tentative := start + step
		if tentative >= L {
			tentative = L - 1
		}

		nr, _ := r.ReadAt(buf, int64(tentative))
		if nr <= 0 && tentative != L-1 {
			return nil, fmt.Errorf("%w: at offset %d", ErrLayout, tentative)
		}

		window := buf[:nr]
		rel := bytes.IndexByte(window, '\n')
		if rel < 0 {
			return nil, fmt.Errorf("%w: at offset %d", ErrLayout, tentative)
		}

		end := tentative + uint64(rel)
		chunks = append(chunks, Chunk{Start: start, End: end})
		start = end + 1
	}

	return chunks, nil
}

// sign computes a siphash-2-4 over the plan's chunk boundaries, keyed by
// the plan's salt expanded to a 16-byte siphash key (the salt and its
// bitwise complement, 8 bytes each).
func (p *Plan) sign() uint64 {
	var key [16]byte
	binary.BigEndian.PutUint64(key[:8], p.Salt)
	binary.BigEndian.PutUint64(key[8:], ^p.Salt)

	var b [16]byte
	h := siphash.New(key[:])
	for _, c := range p.Chunks {
		binary.BigEndian.PutUint64(b[:8], c.Start)
		binary.BigEndian.PutUint64(b[8:], c.End)
		h.Write(b[:])
	}
	return h.Sum64()
}

// Verify reports whether the plan's recorded signature still matches its
// chunk contents.
func (p *Plan) Verify() bool {
	return p.sign() == p.Sig
}

func rand64() uint64 {
	var b [8]byte
	n, err := rand.Read(b[:])
	if err != nil || n != 8 {
		panic("chunk: rand read failure")
	}
	return binary.BigEndian.Uint64(b[:])
}
