package metrics

import (
	"fmt"
	"math"
	"sync"
)

// Counter is a monotonically increasing metric value. Instances are created
// by Registry.GetOrCreateCounter and live for the process lifetime.
type Counter struct {
	name   string
	labels Labels

	mu  sync.Mutex
	val float64
}

func newCounter(name string, labels Labels) *Counter {
	return &Counter{name: name, labels: labels.clone()}
}

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Inc increments the counter by one.
func (c *Counter) Inc() {
	c.mu.Lock()
	c.val++
	c.mu.Unlock()
}

// Add increments the counter by delta. Counters are monotone by contract:
// a negative or non-finite delta is rejected and leaves the value unchanged.
func (c *Counter) Add(delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return fmt.Errorf("%w: non-finite counter delta %v", ErrInvalidArgument, delta)
	}
	if delta < 0 {
		return fmt.Errorf("%w: negative counter delta %v", ErrInvalidArgument, delta)
	}

	c.mu.Lock()
	c.val += delta
	c.mu.Unlock()
	return nil
}

// Value returns the current value. Used by the exposition renderer.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}
