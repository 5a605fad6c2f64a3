package ml

import "testing"

func TestDecisionTreePredict(t *testing.T) {
	c, err := LoadClassifier("testdata/classifier_tree.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	model := c.(*DecisionTree)

	shocking := newFeatures(7)
	shocking.Data[0] = 0.5
	label, err := model.Predict(shocking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != ClassFake {
		t.Fatalf("expected label %d, got %d", ClassFake, label)
	}
	proba, err := model.PredictProba(shocking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proba[0] != 0.8 || proba[1] != 0.2 {
		t.Fatalf("unexpected proba: %v", proba)
	}

	label, err = model.Predict(newFeatures(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != ClassReal {
		t.Fatalf("expected label %d, got %d", ClassReal, label)
	}
}

func TestDecisionTreeRejectsWrongDimension(t *testing.T) {
	c, err := LoadClassifier("testdata/classifier_tree.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Predict(newFeatures(3)); err != ErrDimensionMismatch {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestDecodeDecisionTreeRejectsBackwardChildren(t *testing.T) {
	payload := []byte(`{
		"type": "decision_tree",
		"n_features": 2,
		"children_left": [1, 0],
		"children_right": [1, -1],
		"feature": [0, 0],
		"threshold": [0.5, 0.5],
		"value": [[1, 1], [1, 1]],
		"classes": [0, 1]
	}`)
	if _, err := DecodeClassifier(payload); err == nil {
		t.Fatal("expected error for cyclic tree")
	}
}
