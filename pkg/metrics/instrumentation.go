package metrics

import (
	"net/http"
	"time"
)

// Default metric names for request instrumentation.
const (
	RequestCountName   = "api_requests_total"
	RequestErrorsName  = "api_request_errors_total"
	RequestLatencyName = "api_request_latency_seconds"
)

// Instrumentation bundles the request counter, error counter and latency
// histogram for one operation. Instruments are resolved once at construction
// and reused for every request, so the hot path never touches the registry.
type Instrumentation struct {
	requests *Counter
	errors   *Counter
	latency  *Histogram
}

// InstrumentationOption configures NewInstrumentation.
type InstrumentationOption func(*instrumentationConfig)

type instrumentationConfig struct {
	buckets []float64
}

// WithBuckets sets the latency bucket ladder. Defaults to DefBuckets.
func WithBuckets(bounds []float64) InstrumentationOption {
	return func(c *instrumentationConfig) {
		c.buckets = bounds
	}
}

// NewInstrumentation creates instrumentation for the named operation. The
// operation name becomes the "operation" label on all three instruments.
func NewInstrumentation(reg *Registry, operation string, opts ...InstrumentationOption) (*Instrumentation, error) {
	cfg := &instrumentationConfig{buckets: DefBuckets}
	for _, opt := range opts {
		opt(cfg)
	}

	labels := Labels{"operation": operation}

	requests, err := reg.GetOrCreateCounter(RequestCountName,
		"Total number of API requests.", labels)
	if err != nil {
		return nil, err
	}
	errCounter, err := reg.GetOrCreateCounter(RequestErrorsName,
		"Total number of failed API requests.", labels)
	if err != nil {
		return nil, err
	}
	latency, err := reg.GetOrCreateHistogram(RequestLatencyName,
		"Request latency in seconds.", labels, cfg.buckets)
	if err != nil {
		return nil, err
	}

	return &Instrumentation{
		requests: requests,
		errors:   errCounter,
		latency:  latency,
	}, nil
}

// Observe wraps one unit of work. The elapsed time and request count are
// recorded on every exit path: normal return, error return, and panic. The
// operation's result is propagated unchanged; a panic is re-raised after
// recording. Cancellation inside op does not suppress recording either — the
// elapsed time up to cancellation is observed.
func (i *Instrumentation) Observe(op func() error) (err error) {
	start := time.Now()
	failed := true
	defer func() {
		i.record(time.Since(start), failed)
	}()

	err = op()
	failed = err != nil
	return err
}

// Middleware wraps an http.Handler so that every request, on every code path
// including handler panics, increments the request counter and records its
// elapsed duration. Panics propagate after recording so an outer recovery
// middleware still produces the 500 response. Responses with a 5xx status
// additionally count as errors.
func (i *Instrumentation) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			panicking := true
			defer func() {
				i.record(time.Since(start), panicking || sw.status >= http.StatusInternalServerError)
			}()

			next.ServeHTTP(sw, r)
			panicking = false
		})
	}
}

func (i *Instrumentation) record(elapsed time.Duration, failed bool) {
	i.requests.Inc()
	// Elapsed time is always finite; Observe cannot fail here.
	_ = i.latency.ObserveDuration(elapsed)
	if failed {
		i.errors.Inc()
	}
}

// statusWriter captures the response status code for error accounting.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
