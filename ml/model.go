package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
)

const (
	ClassFake = 0
	ClassReal = 1

	LabelFake = "fake"
	LabelReal = "real"
)

var (
	ErrUnknownArtifactType = errors.New("unknown artifact type")
	ErrInvalidArtifact     = errors.New("invalid artifact")
	ErrDimensionMismatch   = errors.New("feature dimension mismatch")
)

// Features is a dense document vector with one slot per vocabulary term.
type Features = blas64.Vector

type Vectorizer interface {
	Transform(text string) (Features, error)
	Dim() int
	Kind() string
}

type Classifier interface {
	Predict(x Features) (int, error)
	PredictProba(x Features) ([]float64, error)
	Classes() []int
	Dim() int
	Kind() string
}

type Prediction struct {
	Label           string  `json:"prediction"`
	Confidence      float64 `json:"confidence"`
	FakeProbability float64 `json:"fake_probability"`
	RealProbability float64 `json:"real_probability"`
}

func (p Prediction) IsFake() bool {
	return p.Label == LabelFake
}

func newFeatures(n int) Features {
	return blas64.Vector{N: n, Inc: 1, Data: make([]float64, n)}
}

func checkDim(x Features, want int) error {
	if x.N != want || x.Inc != 1 || len(x.Data) < x.N {
		return ErrDimensionMismatch
	}
	return nil
}

// argmax returns the first index holding the largest value.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func predictFromProba(c Classifier, x Features) (int, error) {
	proba, err := c.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return c.Classes()[argmax(proba)], nil
}

func validateBinaryClasses(classes []int) error {
	if len(classes) != 2 {
		return fmt.Errorf("%w: classifier must have exactly two classes, got %d", ErrInvalidArtifact, len(classes))
	}
	seen := map[int]bool{}
	for _, c := range classes {
		if c != ClassFake && c != ClassReal {
			return fmt.Errorf("%w: classes must be 0 (fake) and 1 (real), got %d", ErrInvalidArtifact, c)
		}
		seen[c] = true
	}
	if len(seen) != 2 {
		return fmt.Errorf("%w: duplicate class label", ErrInvalidArtifact)
	}
	return nil
}
