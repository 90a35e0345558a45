// ABOUTME: Request counter and rolling latency window with Prometheus text exposition
// ABOUTME: Keeps the last 1000 request durations in a mutex-guarded ring buffer

package metrics

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// windowSize is the number of recent request durations retained for averaging.
const windowSize = 1000

// Recorder accumulates request metrics for the /metrics endpoint.
type Recorder struct {
	mu        sync.Mutex
	total     uint64
	durations []time.Duration
	next      int
	filled    bool
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{durations: make([]time.Duration, windowSize)}
}

// Observe records one request duration. Called on every request, success or
// failure.
func (r *Recorder) Observe(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	r.durations[r.next] = d
	r.next++
	if r.next == windowSize {
		r.next = 0
		r.filled = true
	}
}

// Snapshot is a consistent read of the recorder state.
type Snapshot struct {
	Total       uint64
	AvgDuration time.Duration
}

// Snapshot returns the total count and the average over the rolling window.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.filled {
		n = windowSize
	}
	var sum time.Duration
	for i := 0; i < n; i++ {
		sum += r.durations[i]
	}
	var avg time.Duration
	if n > 0 {
		avg = sum / time.Duration(n)
	}
	return Snapshot{Total: r.total, AvgDuration: avg}
}

// WriteExposition renders the Prometheus text format for the two gateway
// metrics.
func (r *Recorder) WriteExposition(w io.Writer) {
	snap := r.Snapshot()
	fmt.Fprintf(w, "# HELP mcp_requests_total Total number of requests handled.\n")
	fmt.Fprintf(w, "# TYPE mcp_requests_total counter\n")
	fmt.Fprintf(w, "mcp_requests_total %d\n", snap.Total)
	fmt.Fprintf(w, "# HELP mcp_request_duration_avg Average request duration in seconds over the last %d requests.\n", windowSize)
	fmt.Fprintf(w, "# TYPE mcp_request_duration_avg gauge\n")
	fmt.Fprintf(w, "mcp_request_duration_avg %.6f\n", snap.AvgDuration.Seconds())
}
