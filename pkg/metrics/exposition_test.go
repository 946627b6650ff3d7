package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderedRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry()

	c, err := reg.GetOrCreateCounter("api_requests_total",
		"Total number of API requests.", Labels{"operation": "predict"})
	require.NoError(t, err)
	c.Inc()
	c.Inc()
	c.Inc()

	h, err := reg.GetOrCreateHistogram("api_request_latency_seconds",
		"Request latency in seconds.", Labels{"operation": "predict"}, []float64{0.25, 1})
	require.NoError(t, err)
	require.NoError(t, h.Observe(0.25))

	return reg
}

func TestRegistry_Render_Golden(t *testing.T) {
	reg := newRenderedRegistry(t)

	want := `# HELP api_request_latency_seconds Request latency in seconds.
# TYPE api_request_latency_seconds histogram
api_request_latency_seconds_bucket{operation="predict",le="0.25"} 1
api_request_latency_seconds_bucket{operation="predict",le="1"} 1
api_request_latency_seconds_bucket{operation="predict",le="+Inf"} 1
api_request_latency_seconds_sum{operation="predict"} 0.25
api_request_latency_seconds_count{operation="predict"} 1
# HELP api_requests_total Total number of API requests.
# TYPE api_requests_total counter
api_requests_total{operation="predict"} 3
`

	assert.Equal(t, want, string(reg.Render()))
}

func TestRegistry_Render_Deterministic(t *testing.T) {
	reg := newRenderedRegistry(t)

	// More series under the same family, created in non-lexical order.
	for _, op := range []string{"zeta", "alpha", "health"} {
		c, err := reg.GetOrCreateCounter("api_requests_total", "Total number of API requests.",
			Labels{"operation": op})
		require.NoError(t, err)
		c.Inc()
	}

	first := reg.Render()
	second := reg.Render()

	assert.Equal(t, first, second, "renders of unchanged state must be byte-identical")
}

func TestRegistry_Render_DoesNotMutate(t *testing.T) {
	reg := newRenderedRegistry(t)

	before := string(reg.Render())
	for i := 0; i < 5; i++ {
		reg.Render()
	}

	assert.Equal(t, before, string(reg.Render()))
}

func TestRegistry_Render_EscapesLabelValues(t *testing.T) {
	reg := NewRegistry()

	c, err := reg.GetOrCreateCounter("events_total", "", Labels{"path": `a"b\c` + "\n"})
	require.NoError(t, err)
	c.Inc()

	out := string(reg.Render())
	assert.Contains(t, out, `events_total{path="a\"b\\c\n"} 1`)
}

func TestRegistry_Render_EmptyLabelSet(t *testing.T) {
	reg := NewRegistry()

	c, err := reg.GetOrCreateCounter("events_total", "", nil)
	require.NoError(t, err)
	require.NoError(t, c.Add(42))

	out := string(reg.Render())
	assert.Contains(t, out, "events_total 42\n")
}

func TestHandler_ServesPrometheusText(t *testing.T) {
	reg := newRenderedRegistry(t)
	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ContentType, resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(string(body)))
	require.NoError(t, err, "exposition must parse as Prometheus text format")

	counter, ok := families["api_requests_total"]
	require.True(t, ok)
	assert.Equal(t, 3.0, counter.GetMetric()[0].GetCounter().GetValue())

	hist, ok := families["api_request_latency_seconds"]
	require.True(t, ok)
	m := hist.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), m.GetSampleCount())
	assert.InDelta(t, 0.25, m.GetSampleSum(), 1e-9)
}

func TestHandler_NoCachingBetweenPulls(t *testing.T) {
	reg := NewRegistry()
	c, err := reg.GetOrCreateCounter("api_requests_total", "", nil)
	require.NoError(t, err)

	handler := Handler(reg)

	get := func() string {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return rec.Body.String()
	}

	assert.Contains(t, get(), "api_requests_total 0\n")
	c.Inc()
	assert.Contains(t, get(), "api_requests_total 1\n")
}

func TestRender_ConsistentUnderConcurrentObservations(t *testing.T) {
	reg := NewRegistry()
	h, err := reg.GetOrCreateHistogram("api_request_latency_seconds", "", nil, []float64{0.5})
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = h.Observe(0.1)
			}
		}
	}()

	var parser expfmt.TextParser
	for i := 0; i < 100; i++ {
		families, err := parser.TextToMetricFamilies(strings.NewReader(string(reg.Render())))
		require.NoError(t, err)

		m := families["api_request_latency_seconds"].GetMetric()[0].GetHistogram()
		buckets := m.GetBucket()
		require.NotEmpty(t, buckets)

		// Every rendered count must agree with its own +Inf bucket; a torn
		// histogram update would break this.
		last := buckets[len(buckets)-1]
		assert.Equal(t, m.GetSampleCount(), last.GetCumulativeCount())
	}

	close(stop)
	wg.Wait()
}
