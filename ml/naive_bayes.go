package ml

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
)

type naiveBayesArtifact struct {
	Type           string      `json:"type"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	Classes        []int       `json:"classes"`
}

// MultinomialNB is a fitted sklearn MultinomialNB.
type MultinomialNB struct {
	featureLogProb []blas64.Vector
	classLogPrior  []float64
	classes        []int
	dim            int
}

func decodeMultinomialNB(payload []byte) (*MultinomialNB, error) {
	var a naiveBayesArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := validateBinaryClasses(a.Classes); err != nil {
		return nil, err
	}
	if len(a.FeatureLogProb) != len(a.Classes) || len(a.ClassLogPrior) != len(a.Classes) {
		return nil, fmt.Errorf("%w: expected one feature_log_prob row and prior per class", ErrInvalidArtifact)
	}
	dim := len(a.FeatureLogProb[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: feature_log_prob is empty", ErrInvalidArtifact)
	}
	rows := make([]blas64.Vector, len(a.FeatureLogProb))
	for i, row := range a.FeatureLogProb {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: feature_log_prob row %d has %d entries, want %d", ErrInvalidArtifact, i, len(row), dim)
		}
		rows[i] = blas64.Vector{N: dim, Inc: 1, Data: row}
	}
	return &MultinomialNB{
		featureLogProb: rows,
		classLogPrior:  a.ClassLogPrior,
		classes:        a.Classes,
		dim:            dim,
	}, nil
}

func (m *MultinomialNB) Dim() int       { return m.dim }
func (m *MultinomialNB) Kind() string   { return ClassifierMultinomialNB }
func (m *MultinomialNB) Classes() []int { return m.classes }

func (m *MultinomialNB) jointLogLikelihood(x Features) ([]float64, error) {
	if err := checkDim(x, m.dim); err != nil {
		return nil, err
	}
	jll := make([]float64, len(m.classes))
	for i, row := range m.featureLogProb {
		jll[i] = blas64.Dot(row, x) + m.classLogPrior[i]
	}
	return jll, nil
}

func (m *MultinomialNB) PredictProba(x Features) ([]float64, error) {
	jll, err := m.jointLogLikelihood(x)
	if err != nil {
		return nil, err
	}
	norm := logSumExp(jll)
	proba := make([]float64, len(jll))
	for i, v := range jll {
		proba[i] = math.Exp(v - norm)
	}
	return proba, nil
}

func (m *MultinomialNB) Predict(x Features) (int, error) {
	jll, err := m.jointLogLikelihood(x)
	if err != nil {
		return 0, err
	}
	return m.classes[argmax(jll)], nil
}

func logSumExp(values []float64) float64 {
	peak := values[argmax(values)]
	if math.IsInf(peak, 0) {
		return peak
	}
	var sum float64
	for _, v := range values {
		sum += math.Exp(v - peak)
	}
	return peak + math.Log(sum)
}
