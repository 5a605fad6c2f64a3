package ml

import (
	"fmt"
)

// Predictor pairs a fitted vectorizer with the classifier trained on its output.
type Predictor struct {
	vectorizer Vectorizer
	classifier Classifier
	fakeIdx    int
	realIdx    int
}

func NewPredictor(v Vectorizer, c Classifier) (*Predictor, error) {
	if v == nil || c == nil {
		return nil, fmt.Errorf("%w: vectorizer and classifier are both required", ErrInvalidArtifact)
	}
	if v.Dim() != c.Dim() {
		return nil, fmt.Errorf("%w: vectorizer produces %d features, classifier expects %d", ErrDimensionMismatch, v.Dim(), c.Dim())
	}
	if err := validateBinaryClasses(c.Classes()); err != nil {
		return nil, err
	}
	p := &Predictor{vectorizer: v, classifier: c}
	for i, class := range c.Classes() {
		switch class {
		case ClassFake:
			p.fakeIdx = i
		case ClassReal:
			p.realIdx = i
		}
	}
	return p, nil
}

func LoadPredictor(vectorizerPath, classifierPath string) (*Predictor, error) {
	v, err := LoadVectorizer(vectorizerPath)
	if err != nil {
		return nil, err
	}
	c, err := LoadClassifier(classifierPath)
	if err != nil {
		return nil, err
	}
	return NewPredictor(v, c)
}

func (p *Predictor) Vectorizer() Vectorizer { return p.vectorizer }
func (p *Predictor) Classifier() Classifier { return p.classifier }

func (p *Predictor) Predict(text string) (Prediction, error) {
	x, err := p.vectorizer.Transform(text)
	if err != nil {
		return Prediction{}, fmt.Errorf("vectorize: %w", err)
	}
	class, err := p.classifier.Predict(x)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	proba, err := p.classifier.PredictProba(x)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict proba: %w", err)
	}

	result := Prediction{
		FakeProbability: proba[p.fakeIdx],
		RealProbability: proba[p.realIdx],
	}
	if class == ClassFake {
		result.Label = LabelFake
		result.Confidence = result.FakeProbability
	} else {
		result.Label = LabelReal
		result.Confidence = result.RealProbability
	}
	return result, nil
}
