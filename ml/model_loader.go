package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	ClassifierLogisticRegression = "logistic_regression"
	ClassifierMultinomialNB      = "multinomial_nb"
	ClassifierDecisionTree       = "decision_tree"
)

func LoadVectorizer(path string) (Vectorizer, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := DecodeVectorizer(payload)
	if err != nil {
		return nil, fmt.Errorf("load vectorizer %s: %w", path, err)
	}
	return v, nil
}

func LoadClassifier(path string) (Classifier, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := DecodeClassifier(payload)
	if err != nil {
		return nil, fmt.Errorf("load classifier %s: %w", path, err)
	}
	return c, nil
}

func DecodeVectorizer(payload []byte) (Vectorizer, error) {
	kind, err := artifactType(payload)
	if err != nil {
		return nil, err
	}
	switch kind {
	case VectorizerTfidf, VectorizerCount:
		v, err := decodeTfidfVectorizer(payload)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: vectorizer %q", ErrUnknownArtifactType, kind)
	}
}

func DecodeClassifier(payload []byte) (Classifier, error) {
	kind, err := artifactType(payload)
	if err != nil {
		return nil, err
	}
	switch kind {
	case ClassifierLogisticRegression:
		return asClassifier(decodeLogisticRegression(payload))
	case ClassifierMultinomialNB:
		return asClassifier(decodeMultinomialNB(payload))
	case ClassifierDecisionTree:
		return asClassifier(decodeDecisionTree(payload))
	default:
		return nil, fmt.Errorf("%w: classifier %q", ErrUnknownArtifactType, kind)
	}
}

// asClassifier keeps a failed decode from leaking a typed nil.
func asClassifier[T Classifier](c T, err error) (Classifier, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

func artifactType(payload []byte) (string, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if header.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrInvalidArtifact)
	}
	return header.Type, nil
}
