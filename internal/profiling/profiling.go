package profiling

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Lightweight wall-clock profiler for generation stages and kernels.

// Stage is the accumulated timing of one tracked name.
type Stage struct {
	Name  string
	Total time.Duration
	Calls int
}

var (
	mu     sync.Mutex
	totals = make(map[string]*Stage)
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("terrain.VertexEvaluate")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		s, ok := totals[name]
		if !ok {
			s = &Stage{Name: name}
			totals[name] = s
		}
		s.Total += d
		s.Calls++
		mu.Unlock()
	}
}

// Reset clears all totals. Call before a run that should be reported on its own.
func Reset() {
	mu.Lock()
	clear(totals)
	mu.Unlock()
}

// Snapshot returns the stages sorted by descending total time.
func Snapshot() []Stage {
	mu.Lock()
	out := make([]Stage, 0, len(totals))
	for _, s := range totals {
		out = append(out, *s)
	}
	mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopN formats the n slowest stages.
// Example: "terrain.VertexEvaluate:4.2ms/6, cpu.gradient-fill:0.3ms/6"
func TopN(n int) string {
	list := Snapshot()
	if n > len(list) {
		n = len(list)
	}
	parts := make([]string, 0, n)
	for _, s := range list[:n] {
		parts = append(parts, s.Name+":"+formatMs(s.Total)+"/"+strconv.Itoa(s.Calls))
	}
	return strings.Join(parts, ", ")
}

func formatMs(d time.Duration) string {
	// one decimal, drop .0
	ms := float64(d.Microseconds()) / 1000.0
	return strings.TrimSuffix(strconv.FormatFloat(ms, 'f', 1, 64), ".0") + "ms"
}
