package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/irislabs/iris-serving/pkg/logging"
)

// DefaultMaxSeries is the default maximum number of series a registry accepts.
const DefaultMaxSeries = 1000

type metricKind int

const (
	kindCounter metricKind = iota
	kindHistogram
)

// Registry owns every counter and histogram by name plus label-set identity.
// It serializes concurrent creation, guarantees at most one instance per
// identity, and renders point-in-time snapshots. Construct one per process at
// startup and inject it where instrumentation is needed; nothing in it is
// ambient global state.
type Registry struct {
	logger    logging.Logger
	maxSeries int

	mu         sync.RWMutex
	counters   map[string]*Counter
	histograms map[string]*Histogram
	kinds      map[string]metricKind // family name -> kind
	help       map[string]string     // family name -> help, first registration wins
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for non-fatal registration conflicts.
func WithLogger(logger logging.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMaxSeries caps the number of distinct series to guard against label
// cardinality explosions.
func WithMaxSeries(limit int) RegistryOption {
	return func(r *Registry) {
		r.maxSeries = limit
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:     logging.NewNoop(),
		maxSeries:  DefaultMaxSeries,
		counters:   make(map[string]*Counter),
		histograms: make(map[string]*Histogram),
		kinds:      make(map[string]metricKind),
		help:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreateCounter returns the counter for the given identity, creating it
// at zero on first use. Concurrent callers with the same identity always
// receive the same instance.
func (r *Registry) GetOrCreateCounter(name, help string, labels Labels) (*Counter, error) {
	key := seriesKey(name, labels)

	r.mu.RLock()
	if c, ok := r.counters[key]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	if err := validateMetricName(name); err != nil {
		return nil, err
	}
	if err := validateLabels(labels); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine may have created it between locks.
	if c, ok := r.counters[key]; ok {
		return c, nil
	}

	if kind, ok := r.kinds[name]; ok && kind != kindCounter {
		return nil, fmt.Errorf("%w: %q", ErrKindMismatch, name)
	}
	if err := r.checkSeriesLimit(name); err != nil {
		return nil, err
	}

	c := newCounter(name, labels)
	r.counters[key] = c
	r.registerFamily(name, help, kindCounter)
	return c, nil
}

// GetOrCreateHistogram returns the histogram for the given identity, creating
// it on first use with the supplied bucket ladder. Bounds are only meaningful
// on first creation: a later call with a different ladder is satisfied with
// the existing instance and its original bounds, and the conflict is logged.
func (r *Registry) GetOrCreateHistogram(name, help string, labels Labels, bounds []float64) (*Histogram, error) {
	key := seriesKey(name, labels)

	r.mu.RLock()
	if h, ok := r.histograms[key]; ok {
		r.mu.RUnlock()
		r.warnBoundsConflict(h, bounds)
		return h, nil
	}
	r.mu.RUnlock()

	if err := validateMetricName(name); err != nil {
		return nil, err
	}
	if err := validateLabels(labels); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.histograms[key]; ok {
		r.warnBoundsConflict(h, bounds)
		return h, nil
	}

	if kind, ok := r.kinds[name]; ok && kind != kindHistogram {
		return nil, fmt.Errorf("%w: %q", ErrKindMismatch, name)
	}
	if err := r.checkSeriesLimit(name); err != nil {
		return nil, err
	}

	h, err := newHistogram(name, labels, bounds)
	if err != nil {
		return nil, err
	}
	r.histograms[key] = h
	r.registerFamily(name, help, kindHistogram)
	return h, nil
}

func (r *Registry) warnBoundsConflict(h *Histogram, bounds []float64) {
	if len(bounds) == 0 || h.boundsEqual(bounds) {
		return
	}
	r.logger.Warn(context.Background(), "histogram bucket ladder conflict, keeping original bounds",
		logging.String("metric", h.name),
		logging.Any("requested_bounds", bounds),
		logging.Any("registered_bounds", h.bounds),
	)
}

// checkSeriesLimit must be called with the write lock held. Creating a new
// series for an already-known family is still a new series and counts.
func (r *Registry) checkSeriesLimit(name string) error {
	if len(r.counters)+len(r.histograms) >= r.maxSeries {
		return fmt.Errorf("%w (%d), rejecting %q", ErrMaxSeries, r.maxSeries, name)
	}
	return nil
}

// registerFamily must be called with the write lock held.
func (r *Registry) registerFamily(name, help string, kind metricKind) {
	if _, ok := r.kinds[name]; ok {
		return
	}
	r.kinds[name] = kind
	r.help[name] = help
}
