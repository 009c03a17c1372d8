// merge_test.go -- test suite for shard merging and output formatting

package merge

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/opencoff/brc/internal/table"
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

func TestShardsMergesSameKey(t *testing.T) {
	assert := newAsserter(t)

	shardA := []table.Entry{
		{Key: []byte("Hamburg"), State: table.State{Min: -30, Max: 120, Count: 2, Sum: 90}},
	}
	shardB := []table.Entry{
		{Key: []byte("Hamburg"), State: table.State{Min: -50, Max: 80, Count: 3, Sum: -10}},
		{Key: []byte("Oslo"), State: table.State{Min: 0, Max: 0, Count: 1, Sum: 0}},
	}

	merged := Shards([][]table.Entry{shardA, shardB})
	assert(len(merged) == 2, "got %d entries, want 2", len(merged))
	// Sorted ascending by key bytes: Hamburg < Oslo.
	assert(string(merged[0].Key) == "Hamburg", "first key %q", merged[0].Key)
	assert(merged[0].State.Min == -50, "min=%d", merged[0].State.Min)
	assert(merged[0].State.Max == 120, "max=%d", merged[0].State.Max)
	assert(merged[0].State.Count == 5, "count=%d", merged[0].State.Count)
	assert(merged[0].State.Sum == 80, "sum=%d", merged[0].State.Sum)
	assert(string(merged[1].Key) == "Oslo", "second key %q", merged[1].Key)
}

func TestShardsIsOrderIndependent(t *testing.T) {
	assert := newAsserter(t)

	entries := []table.Entry{
		{Key: []byte("Zurich"), State: table.State{Min: 1, Max: 1, Count: 1, Sum: 1}},
		{Key: []byte("Abidjan"), State: table.State{Min: 2, Max: 2, Count: 1, Sum: 2}},
		{Key: []byte("Monaco"), State: table.State{Min: 3, Max: 3, Count: 1, Sum: 3}},
	}

	forward := Shards([][]table.Entry{entries})

	reversed := make([]table.Entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}
	backward := Shards([][]table.Entry{reversed})

	assert(len(forward) == len(backward), "length mismatch")
	for i := range forward {
		assert(string(forward[i].Key) == string(backward[i].Key), "order %d: %q vs %q", i, forward[i].Key, backward[i].Key)
	}
}

func TestShardsEmptyShardIsIdentity(t *testing.T) {
	assert := newAsserter(t)

	entries := []table.Entry{
		{Key: []byte("Hamburg"), State: table.State{Min: 1, Max: 2, Count: 1, Sum: 1}},
	}
	merged := Shards([][]table.Entry{entries, nil})
	assert(len(merged) == 1, "got %d entries, want 1", len(merged))
}

// TestFormatMeanRounding reproduces a literal end-to-end scenario: Hamburg
// readings 12.0 and -99.9 average to an exact decimal tie, -43.95, which
// must render as -43.9 (truncation toward zero), not -44.0.
func TestFormatMeanRounding(t *testing.T) {
	assert := newAsserter(t)

	entries := []table.Entry{
		{Key: []byte("Bulawayo"), State: table.State{Min: 89, Max: 89, Count: 1, Sum: 89}},
		{Key: []byte("Hamburg"), State: table.State{Min: -999, Max: 120, Count: 2, Sum: -879}},
		{Key: []byte("Palembang"), State: table.State{Min: 388, Max: 388, Count: 1, Sum: 388}},
	}
	out := Format(entries)
	want := "{Bulawayo=8.9/8.9/8.9, Hamburg=-99.9/-43.9/12.0, Palembang=38.8/38.8/38.8}\n"
	assert(out == want, "got %q, want %q", out, want)
}

func TestFormatMultipleStations(t *testing.T) {
	assert := newAsserter(t)

	entries := []table.Entry{
		{Key: []byte("Abidjan"), State: table.State{Min: -10, Max: 350, Count: 2, Sum: 300}},
		{Key: []byte("Zurich"), State: table.State{Min: 0, Max: 0, Count: 1, Sum: 0}},
	}
	out := Format(entries)
	want := "{Abidjan=-1.0/15.0/35.0, Zurich=0.0/0.0/0.0}\n"
	assert(out == want, "got %q, want %q", out, want)
}

func TestFormatEmpty(t *testing.T) {
	assert := newAsserter(t)

	out := Format(nil)
	assert(out == "{}\n", "got %q", out)
}
