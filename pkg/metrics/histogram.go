package metrics

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// DefBuckets is the default latency ladder in seconds, spanning typical
// request latencies. Callers tune it per histogram; it is never implied by
// the registry itself.
var DefBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Histogram records a distribution of observations as cumulative bucket
// counts plus a running sum and total count. Bucket bounds are fixed at
// creation. The (buckets, sum, count) triple is updated atomically with
// respect to concurrent observers and readers.
type Histogram struct {
	name   string
	labels Labels
	bounds []float64

	mu     sync.Mutex
	counts []uint64 // cumulative, one per bound; the implicit +Inf bucket is count
	count  uint64
	sum    float64
}

func newHistogram(name string, labels Labels, bounds []float64) (*Histogram, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%w: empty ladder for %q", ErrInvalidBuckets, name)
	}
	for i, b := range bounds {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, fmt.Errorf("%w: non-finite bound %v for %q", ErrInvalidBuckets, b, name)
		}
		if i > 0 && bounds[i-1] >= b {
			return nil, fmt.Errorf("%w: bounds must be strictly ascending, got %v after %v for %q",
				ErrInvalidBuckets, b, bounds[i-1], name)
		}
	}

	return &Histogram{
		name:   name,
		labels: labels.clone(),
		bounds: append([]float64(nil), bounds...),
		counts: make([]uint64, len(bounds)),
	}, nil
}

// Name returns the metric name.
func (h *Histogram) Name() string { return h.name }

// Observe records a value. Every bucket whose upper bound is >= v is
// incremented (cumulative semantics); the implicit +Inf bucket always counts.
// Non-finite values are rejected without touching any state.
func (h *Histogram) Observe(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: non-finite observation %v for %q", ErrInvalidArgument, v, h.name)
	}

	h.mu.Lock()
	for i := len(h.bounds) - 1; i >= 0 && v <= h.bounds[i]; i-- {
		h.counts[i]++
	}
	h.count++
	h.sum += v
	h.mu.Unlock()
	return nil
}

// ObserveDuration records a duration in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) error {
	return h.Observe(d.Seconds())
}

// Bucket is one cumulative bucket of a histogram snapshot.
type Bucket struct {
	UpperBound float64
	Count      uint64
}

// Snapshot is an immutable point-in-time copy of a histogram's state. The
// +Inf bucket is not listed in Buckets; its count equals Count by invariant.
type Snapshot struct {
	Buckets []Bucket
	Sum     float64
	Count   uint64
}

// Snapshot returns a consistent copy of the (buckets, sum, count) triple.
// A concurrent observer can never be seen half-applied.
func (h *Histogram) Snapshot() Snapshot {
	h.mu.Lock()
	snap := Snapshot{
		Buckets: make([]Bucket, len(h.bounds)),
		Sum:     h.sum,
		Count:   h.count,
	}
	for i, b := range h.bounds {
		snap.Buckets[i] = Bucket{UpperBound: b, Count: h.counts[i]}
	}
	h.mu.Unlock()
	return snap
}

func (h *Histogram) boundsEqual(bounds []float64) bool {
	if len(h.bounds) != len(bounds) {
		return false
	}
	for i, b := range h.bounds {
		if b != bounds[i] {
			return false
		}
	}
	return true
}
