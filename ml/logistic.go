package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
)

// weightRow decodes either a flat array, a single-row matrix or a scalar,
// matching the shapes sklearn uses for coef_ and intercept_.
type weightRow []float64

func (w *weightRow) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '[' {
		var scalar float64
		if err := json.Unmarshal(data, &scalar); err != nil {
			return err
		}
		*w = weightRow{scalar}
		return nil
	}
	var flat []float64
	if err := json.Unmarshal(data, &flat); err == nil {
		*w = flat
		return nil
	}
	var matrix [][]float64
	if err := json.Unmarshal(data, &matrix); err != nil {
		return err
	}
	if len(matrix) != 1 {
		return fmt.Errorf("expected a single row, got %d", len(matrix))
	}
	*w = matrix[0]
	return nil
}

type logisticArtifact struct {
	Type      string    `json:"type"`
	Coef      weightRow `json:"coef"`
	Intercept weightRow `json:"intercept"`
	Classes   []int     `json:"classes"`
}

// LogisticRegression is a fitted binary sklearn LogisticRegression.
type LogisticRegression struct {
	coef      blas64.Vector
	intercept float64
	classes   []int
}

func decodeLogisticRegression(payload []byte) (*LogisticRegression, error) {
	var a logisticArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if len(a.Coef) == 0 {
		return nil, fmt.Errorf("%w: coef is empty", ErrInvalidArtifact)
	}
	if len(a.Intercept) > 1 {
		return nil, fmt.Errorf("%w: binary model expects one intercept, got %d", ErrInvalidArtifact, len(a.Intercept))
	}
	if err := validateBinaryClasses(a.Classes); err != nil {
		return nil, err
	}
	m := &LogisticRegression{
		coef:    blas64.Vector{N: len(a.Coef), Inc: 1, Data: a.Coef},
		classes: a.Classes,
	}
	if len(a.Intercept) == 1 {
		m.intercept = a.Intercept[0]
	}
	return m, nil
}

func (m *LogisticRegression) Dim() int       { return m.coef.N }
func (m *LogisticRegression) Kind() string   { return ClassifierLogisticRegression }
func (m *LogisticRegression) Classes() []int { return m.classes }

func (m *LogisticRegression) DecisionFunction(x Features) (float64, error) {
	if err := checkDim(x, m.coef.N); err != nil {
		return 0, err
	}
	return blas64.Dot(m.coef, x) + m.intercept, nil
}

func (m *LogisticRegression) PredictProba(x Features) ([]float64, error) {
	z, err := m.DecisionFunction(x)
	if err != nil {
		return nil, err
	}
	p := sigmoid(z)
	return []float64{1 - p, p}, nil
}

func (m *LogisticRegression) Predict(x Features) (int, error) {
	z, err := m.DecisionFunction(x)
	if err != nil {
		return 0, err
	}
	if z > 0 {
		return m.classes[1], nil
	}
	return m.classes[0], nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
