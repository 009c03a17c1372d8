// main.go -- brc: per-station temperature aggregates over a large file
//
// Thin front end over internal/orchestrator: argument parsing,
// implementation selection, and timing output.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	flag "github.com/ogier/pflag"

	"github.com/opencoff/brc/internal/orchestrator"
)

var (
	workers = flag.IntP("workers", "w", 0, "number of parallel workers (default: available parallelism)")
	method  = flag.StringP("method", "m", "simd", "parsing strategy: simd, naive, or mmap")
	gamma   = flag.Float64P("gamma", "g", orchestrator.DefaultGamma, "aggregation table expansion factor")
	cache   = flag.IntP("cache", "c", 0, "reread-avoidance cache size (0 disables)")
)

func main() {
	usage := fmt.Sprintf("%s INPUT_PATH [WORKER_COUNT [METHOD]]", os.Args[0])
	flag.Usage = func() {
		fmt.Printf("brc - per-station temperature aggregates\nUsage: %s\n", usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		die("no input file given\nUsage: %s", usage)
	}

	path := args[0]

	n := *workers
	if len(args) >= 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			die("bad worker count %q: %s", args[1], err)
		}
		n = v
	}
	if n <= 0 {
		n = envWorkers()
	}
	if n <= 0 {
		n = runtime.NumCPU()
	}

	m := *method
	if len(args) >= 3 {
		m = args[2]
	}

	meth, err := orchestrator.ParseMethod(m)
	if err != nil {
		die("%s", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		die("%s", err)
	}

	start := time.Now()

	o, err := orchestrator.New(*cache)
	if err != nil {
		die("%s", err)
	}

	out, err := o.Run(path, n, meth, *gamma)
	if err != nil {
		die("%s", err)
	}

	elapsed := time.Since(start)

	os.Stdout.WriteString(out)

	rate := float64(fi.Size()) / elapsed.Seconds()
	warn("%s: %s, %d workers, method=%s, %s (%s/s)", path, humanBytes(float64(fi.Size())), n, m, elapsed, humanBytes(rate))
}

// humanBytes scales n (a byte count or a byte-per-second rate) to the
// largest unit under which it's still >= 1, for the stderr diagnostic.
func humanBytes(n float64) string {
	units := [...]string{"B", "kB", "MB", "GB", "TB", "PB"}
	i := 0
	for n >= 1024 && i < len(units)-1 {
		n /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%.0f %s", n, units[i])
	}
	return fmt.Sprintf("%.1f %s", n, units[i])
}

// envWorkers reads the BRC_WORKERS fallback (spec: "Workers may also be
// supplied via an environment variable").
func envWorkers() int {
	s := os.Getenv("BRC_WORKERS")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func die(f string, v ...interface{}) {
	warn(f, v...)
	os.Exit(1)
}

func warn(f string, v ...interface{}) {
	s := fmt.Sprintf(f, v...)
	if n := len(s); n == 0 || s[n-1] != '\n' {
		s += "\n"
	}
	os.Stderr.WriteString(s)
}
