// orchestrator.go -- spawn one worker per chunk, join, and merge shards
//
// Uses golang.org/x/sync/errgroup rather than a raw sync.WaitGroup plus
// error channel. The group has no context, so a failing worker does not
// cancel its siblings: every worker runs to completion and Wait returns
// the first error.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.
package orchestrator

import (
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"

	"github.com/opencoff/brc/internal/chunk"
	"github.com/opencoff/brc/internal/ioplan"
	"github.com/opencoff/brc/internal/merge"
	"github.com/opencoff/brc/internal/naive"
	"github.com/opencoff/brc/internal/parser"
	"github.com/opencoff/brc/internal/table"
)

// Method selects which parsing strategy each worker uses.
type Method int

const (
	// MethodSIMD is the preferred fast path: SWAR scanning directly over
	// a worker's own *os.File handle (which already implements
	// io.ReaderAt).
	MethodSIMD Method = iota
	// MethodNaive is the bufio.Scanner baseline.
	MethodNaive
	// MethodMmap is the SWAR scanner over a memory-mapped view of the
	// input instead of buffered reads.
	MethodMmap
)

// ParseMethod maps a CLI method name to a Method, defaulting to the SIMD
// fast path.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "", "simd":
		return MethodSIMD, nil
	case "naive":
		return MethodNaive, nil
	case "mmap":
		return MethodMmap, nil
	default:
		return 0, fmt.Errorf("orchestrator: unknown method %q", name)
	}
}

// EstimatedStations is a conservative cardinality guess used to size each
// worker's aggregation table (table.CapacityFor); it is multiplied by
// Gamma. The default Gamma (DefaultGamma) is chosen so that the default
// flag value reproduces table.DefaultCapacity.
const EstimatedStations = 1000

// DefaultGamma is the expansion factor applied to EstimatedStations.
const DefaultGamma = 10.0

// Orchestrator runs the parallel aggregation pipeline.
type Orchestrator struct {
	cache *lru.ARCCache
}

// New returns an Orchestrator. cacheSize <= 0 disables the
// reread-avoidance cache entirely.
func New(cacheSize int) (*Orchestrator, error) {
	o := &Orchestrator{}
	if cacheSize > 0 {
		c, err := lru.NewARC(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: cache: %w", err)
		}
		o.cache = c
	}
	return o, nil
}

// Run partitions 'path' into 'workers' chunks, aggregates each
// concurrently using 'method', merges the shards, and returns the
// formatted summary line.
func (o *Orchestrator) Run(path string, workers int, method Method, gamma float64) (string, error) {
	if workers < 1 {
		workers = 1
	}
	if gamma <= 0 {
		gamma = DefaultGamma
	}

	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("orchestrator: %w", err)
	}

	var cacheKey string
	if o.cache != nil {
		cacheKey = fmt.Sprintf("%s|%d|%d|%d", path, workers, method, fi.ModTime().UnixNano())
		if v, ok := o.cache.Get(cacheKey); ok {
			return v.(string), nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("orchestrator: %w", err)
	}
	defer f.Close()

	plan, err := chunk.New(f, fi.Size(), workers)
	if err != nil {
		return "", err
	}
	if !plan.Verify() {
		return "", fmt.Errorf("orchestrator: %w", chunk.ErrPlanCorrupt)
	}

	var mapped *ioplan.MappedFile
	if method == MethodMmap {
		mapped, err = ioplan.MapFile(f, fi.Size())
		if err != nil {
			return "", err
		}
		defer mapped.Close()
	}

	capacity := table.CapacityFor(EstimatedStations, gamma)
	shards := make([][]table.Entry, len(plan.Chunks))

	var g errgroup.Group
	for idx, c := range plan.Chunks {
		idx, c := idx, c
		g.Go(func() error {
			var r io.ReaderAt
			var useNaive bool

			switch method {
			case MethodMmap:
				r = mapped
			case MethodNaive:
				wf, oerr := os.Open(path)
				if oerr != nil {
					return fmt.Errorf("orchestrator: worker %d: %w", idx, oerr)
				}
				defer wf.Close()
				r = wf
				useNaive = true
			default: // MethodSIMD
				wf, oerr := os.Open(path)
				if oerr != nil {
					return fmt.Errorf("orchestrator: worker %d: %w", idx, oerr)
				}
				defer wf.Close()
				r = wf
			}

			out, err := runChunk(r, c, capacity, useNaive)
			if err != nil {
				return fmt.Errorf("orchestrator: worker %d: %w", idx, err)
			}
			shards[idx] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	merged := merge.Shards(shards)
	out := merge.Format(merged)

	if o.cache != nil {
		o.cache.Add(cacheKey, out)
	}

	return out, nil
}

// runChunk aggregates one chunk into a fresh table and drains it, using
// either the SWAR parser or the naive bufio.Scanner baseline.
func runChunk(r io.ReaderAt, c chunk.Chunk, capacity uint64, useNaive bool) ([]table.Entry, error) {
	tb := table.New(capacity)

	var upsertErr error
	cb := func(name []byte, value int16, hash uint64) {
		if upsertErr != nil {
			return
		}
		if err := tb.Upsert(name, hash, value); err != nil {
			upsertErr = err
		}
	}

	var err error
	if useNaive {
		err = naive.Parse(r, c.Start, c.End, cb)
	} else {
		p := parser.New()
		err = p.Parse(r, c.Start, c.End, cb)
	}

	if err != nil {
		return nil, err
	}
	if upsertErr != nil {
		return nil, upsertErr
	}

	return tb.Drain(), nil
}
