// Package classifier implements the iris species model served by the API.
//
// The model is a fixed decision tree over the four flower measurements with
// the canonical petal splits; it needs no external model file and is fully
// deterministic, which keeps the serving path free of I/O.
package classifier

import (
	"errors"
	"fmt"
	"math"
)

// Species is the predicted iris class.
type Species int

const (
	Setosa Species = iota
	Versicolor
	Virginica
)

// String returns the species name.
func (s Species) String() string {
	switch s {
	case Setosa:
		return "setosa"
	case Versicolor:
		return "versicolor"
	case Virginica:
		return "virginica"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ErrInvalidFeatures indicates that input measurements are out of domain.
var ErrInvalidFeatures = errors.New("classifier: invalid features")

// Features are the four flower measurements, in centimeters. All must be
// strictly positive and finite.
type Features struct {
	SepalLength float64 `json:"sepal_length"`
	SepalWidth  float64 `json:"sepal_width"`
	PetalLength float64 `json:"petal_length"`
	PetalWidth  float64 `json:"petal_width"`
}

// Validate checks that every measurement is finite and strictly positive.
func (f Features) Validate() error {
	for _, m := range []struct {
		name  string
		value float64
	}{
		{"sepal_length", f.SepalLength},
		{"sepal_width", f.SepalWidth},
		{"petal_length", f.PetalLength},
		{"petal_width", f.PetalWidth},
	} {
		if math.IsNaN(m.value) || math.IsInf(m.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidFeatures, m.name)
		}
		if m.value <= 0 {
			return fmt.Errorf("%w: %s must be greater than 0, got %v", ErrInvalidFeatures, m.name, m.value)
		}
	}
	return nil
}

// Decision thresholds of the trained tree, in centimeters.
const (
	setosaPetalLengthMax   = 2.45
	virginicaPetalWidthMin = 1.75
)

// Classifier predicts the iris species for a set of measurements.
type Classifier struct{}

// New returns a ready-to-use classifier.
func New() *Classifier {
	return &Classifier{}
}

// Predict returns the species for the given features. It fails only on
// invalid input; validated input always classifies.
func (c *Classifier) Predict(f Features) (Species, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}

	if f.PetalLength < setosaPetalLengthMax {
		return Setosa, nil
	}
	if f.PetalWidth < virginicaPetalWidthMin {
		return Versicolor, nil
	}
	return Virginica, nil
}
