package ml

import (
	"encoding/json"
	"errors"
	"fmt"
)

const treeLeaf = -1

type DecisionTree struct {
	nodes     []TreeNode
	classes   []int
	nFeatures int
}

type TreeNode struct {
	FeatureIdx int
	Threshold  float64
	LeftChild  int
	RightChild int
	Proba      []float64
	IsLeaf     bool
}

// treeArtifact mirrors the parallel arrays of a fitted sklearn tree_.
type treeArtifact struct {
	Type          string      `json:"type"`
	NFeatures     int         `json:"n_features"`
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
	Classes       []int       `json:"classes"`
}

func decodeDecisionTree(payload []byte) (*DecisionTree, error) {
	var a treeArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := validateBinaryClasses(a.Classes); err != nil {
		return nil, err
	}
	n := len(a.ChildrenLeft)
	if n == 0 {
		return nil, fmt.Errorf("%w: tree has no nodes", ErrInvalidArtifact)
	}
	if len(a.ChildrenRight) != n || len(a.Feature) != n || len(a.Threshold) != n || len(a.Value) != n {
		return nil, fmt.Errorf("%w: tree arrays differ in length", ErrInvalidArtifact)
	}
	if a.NFeatures <= 0 {
		return nil, fmt.Errorf("%w: n_features is required", ErrInvalidArtifact)
	}

	nodes := make([]TreeNode, n)
	for i := 0; i < n; i++ {
		node := TreeNode{
			FeatureIdx: a.Feature[i],
			Threshold:  a.Threshold[i],
			LeftChild:  a.ChildrenLeft[i],
			RightChild: a.ChildrenRight[i],
			IsLeaf:     a.ChildrenLeft[i] == treeLeaf,
		}
		if node.IsLeaf {
			proba, err := leafProba(a.Value[i], len(a.Classes))
			if err != nil {
				return nil, fmt.Errorf("%w: node %d: %v", ErrInvalidArtifact, i, err)
			}
			node.Proba = proba
		} else {
			if node.FeatureIdx < 0 || node.FeatureIdx >= a.NFeatures {
				return nil, fmt.Errorf("%w: node %d splits on feature %d", ErrInvalidArtifact, i, node.FeatureIdx)
			}
			// children always come after their parent in sklearn's layout
			if node.LeftChild <= i || node.LeftChild >= n || node.RightChild <= i || node.RightChild >= n {
				return nil, fmt.Errorf("%w: node %d has invalid children", ErrInvalidArtifact, i)
			}
		}
		nodes[i] = node
	}
	return &DecisionTree{nodes: nodes, classes: a.Classes, nFeatures: a.NFeatures}, nil
}

func leafProba(counts []float64, nClasses int) ([]float64, error) {
	if len(counts) != nClasses {
		return nil, fmt.Errorf("value has %d entries, want %d", len(counts), nClasses)
	}
	var total float64
	for _, c := range counts {
		if c < 0 {
			return nil, errors.New("negative class weight")
		}
		total += c
	}
	if total == 0 {
		return nil, errors.New("empty leaf")
	}
	proba := make([]float64, nClasses)
	for i, c := range counts {
		proba[i] = c / total
	}
	return proba, nil
}

func (dt *DecisionTree) Dim() int       { return dt.nFeatures }
func (dt *DecisionTree) Kind() string   { return ClassifierDecisionTree }
func (dt *DecisionTree) Classes() []int { return dt.classes }

func (dt *DecisionTree) PredictProba(x Features) ([]float64, error) {
	if err := checkDim(x, dt.nFeatures); err != nil {
		return nil, err
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return append([]float64(nil), node.Proba...), nil
		}
		if x.Data[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

func (dt *DecisionTree) Predict(x Features) (int, error) {
	return predictFromProba(dt, x)
}
