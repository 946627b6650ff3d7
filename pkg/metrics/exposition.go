package metrics

import (
	"bytes"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// ContentType is the exposition content type, matching the Prometheus text
// format version 0.0.4.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Render produces a deterministic textual snapshot of every registered
// metric. Families are ordered lexically by name and series lexically by
// label signature, so repeated renders of unchanged state are byte-identical.
// Rendering is read-only: no counter or histogram value is mutated.
func (r *Registry) Render() []byte {
	type series struct {
		sig     string
		counter *Counter
		hist    *Histogram
	}

	// Copy references under the registry lock; each metric is then read
	// under its own short-lived lock, never blocking writers for the whole
	// render.
	r.mu.RLock()
	families := make(map[string][]series, len(r.kinds))
	kinds := make(map[string]metricKind, len(r.kinds))
	help := make(map[string]string, len(r.help))
	for name, kind := range r.kinds {
		kinds[name] = kind
		help[name] = r.help[name]
	}
	for _, c := range r.counters {
		families[c.name] = append(families[c.name], series{sig: c.labels.signature(), counter: c})
	}
	for _, h := range r.histograms {
		families[h.name] = append(families[h.name], series{sig: h.labels.signature(), hist: h})
	}
	r.mu.RUnlock()

	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, name := range names {
		list := families[name]
		sort.Slice(list, func(i, j int) bool { return list[i].sig < list[j].sig })

		if h := help[name]; h != "" {
			buf.WriteString("# HELP ")
			buf.WriteString(name)
			buf.WriteByte(' ')
			buf.WriteString(escapeHelp(h))
			buf.WriteByte('\n')
		}
		buf.WriteString("# TYPE ")
		buf.WriteString(name)
		if kinds[name] == kindCounter {
			buf.WriteString(" counter\n")
		} else {
			buf.WriteString(" histogram\n")
		}

		for _, s := range list {
			if s.counter != nil {
				writeSample(&buf, name, s.sig, s.counter.Value())
				continue
			}
			writeHistogram(&buf, s.hist)
		}
	}
	return buf.Bytes()
}

func writeHistogram(buf *bytes.Buffer, h *Histogram) {
	snap := h.Snapshot()
	for _, b := range snap.Buckets {
		sig := h.labels.signature("le", formatFloat(b.UpperBound))
		writeSample(buf, h.name+"_bucket", sig, float64(b.Count))
	}
	infSig := h.labels.signature("le", "+Inf")
	writeSample(buf, h.name+"_bucket", infSig, float64(snap.Count))
	writeSample(buf, h.name+"_sum", h.labels.signature(), snap.Sum)
	writeSample(buf, h.name+"_count", h.labels.signature(), float64(snap.Count))
}

func writeSample(buf *bytes.Buffer, name, sig string, v float64) {
	buf.WriteString(name)
	buf.WriteString(sig)
	buf.WriteByte(' ')
	buf.WriteString(formatFloat(v))
	buf.WriteByte('\n')
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(h string) string {
	return helpEscaper.Replace(h)
}

// Handler returns the pull-based exposition endpoint. Every request
// re-renders the registry's current state; there is no caching and no side
// effect on metric values.
func Handler(reg *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := reg.Render()
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	})
}
