// chunk_test.go -- test suite for the newline-aligned chunk planner

package chunk

import (
	"bytes"
	"fmt"
	"runtime"
	"testing"
)

func newAsserter(t *testing.T) func(cond bool, msg string, args ...interface{}) {
	return func(cond bool, msg string, args ...interface{}) {
		if cond {
			return
		}

		_, file, line, ok := runtime.Caller(1)
		if !ok {
			file = "???"
			line = 0
		}

		s := fmt.Sprintf(msg, args...)
		t.Fatalf("%s: %d: Assertion failed: %s\n", file, line, s)
	}
}

func makeLines(n int) []byte {
	var b bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Station%04d;%d.%d\n", i, i%100, i%10)
	}
	return b.Bytes()
}

// TestPlanCoversWholeFile checks property 3: for any worker count, the
// chunks are contiguous, cover [0, size-1] exactly once, and every chunk
// boundary (other than the final byte of the file) lands on a newline.
func TestPlanCoversWholeFile(t *testing.T) {
	assert := newAsserter(t)

	data := makeLines(5000)
	r := bytes.NewReader(data)

	for _, n := range []int{1, 2, 3, 4, 7, 16, 64} {
		plan, err := New(r, int64(len(data)), n)
		assert(err == nil, "n=%d: unexpected error: %s", n, err)
		assert(len(plan.Chunks) >= 1, "n=%d: no chunks produced", n)

		var prevEnd int64 = -1
		for i, c := range plan.Chunks {
			assert(int64(c.Start) == prevEnd+1, "n=%d chunk %d: start %d != prevEnd+1 %d", n, i, c.Start, prevEnd+1)
			assert(c.End < uint64(len(data)), "n=%d chunk %d: end %d out of range", n, i, c.End)
			assert(c.Start <= c.End, "n=%d chunk %d: start %d > end %d", n, i, c.Start, c.End)
			assert(data[c.End] == '\n', "n=%d chunk %d: end byte is %q, not newline", n, i, data[c.End])
			prevEnd = int64(c.End)
		}
		assert(uint64(prevEnd) == uint64(len(data))-1, "n=%d: last chunk end %d != size-1 %d", n, prevEnd, len(data)-1)
	}
}

func TestPlanSingleChunk(t *testing.T) {
	assert := newAsserter(t)

	data := makeLines(10)
	r := bytes.NewReader(data)

	plan, err := New(r, int64(len(data)), 1)
	assert(err == nil, "unexpected error: %s", err)
	assert(len(plan.Chunks) == 1, "want 1 chunk, got %d", len(plan.Chunks))
	assert(plan.Chunks[0].Start == 0, "start=%d", plan.Chunks[0].Start)
	assert(plan.Chunks[0].End == uint64(len(data)-1), "end=%d", plan.Chunks[0].End)
}

func TestEmptyInput(t *testing.T) {
	assert := newAsserter(t)

	r := bytes.NewReader(nil)
	_, err := New(r, 0, 4)
	assert(err == ErrEmptyInput, "got %v, want ErrEmptyInput", err)
}

func TestPlanSignatureVerifies(t *testing.T) {
	assert := newAsserter(t)

	data := makeLines(200)
	r := bytes.NewReader(data)

	plan, err := New(r, int64(len(data)), 4)
	assert(err == nil, "unexpected error: %s", err)
	assert(plan.Verify(), "freshly built plan failed to verify")

	plan.Chunks[0].End++
	assert(!plan.Verify(), "corrupted plan still verified")
}

func TestMoreWorkersThanLines(t *testing.T) {
	assert := newAsserter(t)

	data := makeLines(2)
	r := bytes.NewReader(data)

	plan, err := New(r, int64(len(data)), 32)
	assert(err == nil, "unexpected error: %s", err)
	assert(len(plan.Chunks) >= 1, "no chunks produced")

	var prevEnd int64 = -1
	for _, c := range plan.Chunks {
		assert(int64(c.Start) == prevEnd+1, "non-contiguous chunk")
		prevEnd = int64(c.End)
	}
	assert(uint64(prevEnd) == uint64(len(data))-1, "coverage incomplete")
}
