package metrics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Labels is a set of key/value tags that, together with a metric name,
// identifies a distinct series. The set is unordered; two label sets with the
// same pairs are the same identity regardless of insertion order.
type Labels map[string]string

var (
	metricNameRe = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
	labelNameRe  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

func validateMetricName(name string) error {
	if !metricNameRe.MatchString(name) {
		return fmt.Errorf("%w: metric name %q", ErrInvalidName, name)
	}
	return nil
}

func validateLabels(labels Labels) error {
	for k := range labels {
		if !labelNameRe.MatchString(k) {
			return fmt.Errorf("%w: label name %q", ErrInvalidName, k)
		}
		if k == "le" {
			return fmt.Errorf("%w: label name %q is reserved", ErrInvalidName, k)
		}
	}
	return nil
}

func (l Labels) clone() Labels {
	if len(l) == 0 {
		return nil
	}
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// sortedKeys returns the label names in lexical order.
func (l Labels) sortedKeys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// signature renders the label pairs in the exposition form, sorted by label
// name, with optional extra pairs appended (used for the "le" bucket label).
// An empty set with no extras renders as an empty string.
func (l Labels) signature(extra ...string) string {
	if len(l) == 0 && len(extra) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, k := range l.sortedKeys() {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(escapeLabelValue(l[k]))
		b.WriteByte('"')
	}
	for i := 0; i+1 < len(extra); i += 2 {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(extra[i])
		b.WriteString(`="`)
		b.WriteString(escapeLabelValue(extra[i+1]))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// seriesKey is the registry map key: name plus sorted label signature.
func seriesKey(name string, labels Labels) string {
	return name + labels.signature()
}

var labelValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabelValue(v string) string {
	return labelValueEscaper.Replace(v)
}
