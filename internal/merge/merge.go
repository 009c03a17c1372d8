// merge.go -- fold worker shards into one mapping, sort, and render
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.
package merge

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/opencoff/brc/internal/table"
)

// Shards folds all worker shards into a single set of entries, combining
// states for keys that appear in more than one shard using the
// commutative/associative merge in table.State.Merge. Merging a shard with
// an empty shard is the identity.
func Shards(shards [][]table.Entry) []table.Entry {
	byKey := make(map[string]*table.Entry)
	var order []string

	for _, shard := range shards {
		for _, e := range shard {
			k := string(e.Key)
			if existing, ok := byKey[k]; ok {
				existing.State.Merge(e.State)
				continue
			}
			cp := e
			byKey[k] = &cp
			order = append(order, k)
		}
	}

	out := make([]table.Entry, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Key, out[j].Key) < 0
	})

	return out
}

// Format renders entries (already sorted by key bytes, ascending) as
// "{name1=min/mean/max, name2=min/mean/max, ...}\n".
//
// The mean is computed in scaled-integer tenths (sum/count, Go's integer
// division, which truncates toward zero) rather than via float64 division:
// an exact decimal tie such as -87.9/2 = -43.95 must round to -43.9, and
// truncation toward zero lands there directly, whereas formatting the
// float64 quotient rounds to -44.0 instead (the nearest double to -43.95
// sits a hair past the midpoint).
func Format(entries []table.Entry) string {
	var b strings.Builder
	b.WriteByte('{')

	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		meanTenths := int16(e.State.Sum / int64(e.State.Count))
		fmt.Fprintf(&b, "%s=%s/%s/%s", e.Key, formatScaled(e.State.Min), formatScaled(meanTenths), formatScaled(e.State.Max))
	}

	b.WriteString("}\n")
	return b.String()
}

// formatScaled renders a scaled (x10) integer as a one-decimal string
// without floating-point conversion: the value is an exact reading, so
// there's no rounding to get right.
func formatScaled(v int16) string {
	neg := v < 0
	if neg {
		v = -v
	}
	if neg {
		return fmt.Sprintf("-%d.%d", v/10, v%10)
	}
	return fmt.Sprintf("%d.%d", v/10, v%10)
}
