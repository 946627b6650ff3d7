package metrics

import "errors"

var (
	// ErrInvalidArgument indicates a rejected observation or increment, such as
	// a negative counter delta or a non-finite histogram value.
	ErrInvalidArgument = errors.New("metrics: invalid argument")

	// ErrInvalidBuckets indicates an empty or non-ascending bucket ladder at
	// histogram construction time.
	ErrInvalidBuckets = errors.New("metrics: invalid bucket bounds")

	// ErrInvalidName indicates a metric name or label name that does not match
	// the exposition grammar.
	ErrInvalidName = errors.New("metrics: invalid name")

	// ErrKindMismatch indicates a metric name already registered as a
	// different kind (counter vs histogram).
	ErrKindMismatch = errors.New("metrics: name already registered with a different kind")

	// ErrMaxSeries indicates the registry reached its series limit and
	// rejected the creation of a new series.
	ErrMaxSeries = errors.New("metrics: maximum series limit reached")
)
