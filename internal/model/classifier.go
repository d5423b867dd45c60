// Package model trains, selects, persists and loads the malware classifiers.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Label values used throughout training.
const (
	Benign    = 0
	Malicious = 1
)

// Family identifies a classifier family.
type Family string

const (
	RandomForest       Family = "random_forest"
	LogisticRegression Family = "logistic_regression"
	NeuralNetwork      Family = "neural_network"
	SVM                Family = "svm"
)

// Priority lists the families in tie-break order: when two candidates reach the
// same held-out accuracy, the one listed first wins.
var Priority = []Family{RandomForest, LogisticRegression, NeuralNetwork, SVM}

func (f Family) rank() int {
	for i, p := range Priority {
		if p == f {
			return i
		}
	}
	return len(Priority)
}

// DisplayName is the human-readable family name.
func (f Family) DisplayName() string {
	switch f {
	case RandomForest:
		return "Random Forest"
	case LogisticRegression:
		return "Logistic Regression"
	case NeuralNetwork:
		return "Neural Network"
	case SVM:
		return "Support Vector Machine"
	default:
		return string(f)
	}
}

// Capabilities declares the optional outputs a fitted classifier provides.
type Capabilities struct {
	Probability bool `json:"probability"`
	Importance  bool `json:"importance"`
}

// Classifier is a binary classifier over dense feature rows.
type Classifier interface {
	Family() Family
	Capabilities() Capabilities
	Fit(X [][]float64, y []int) error
	Predict(x []float64) int
	// Proba returns P(malicious). Valid only when Capabilities().Probability is set.
	Proba(x []float64) float64
	// Importance returns one weight per input column, or nil when unsupported.
	Importance() []float64
}

var errNotFitted = errors.New("classifier not fitted")

// Options tunes classifier construction.
type Options struct {
	Seed  int64
	Trees int
}

// New returns an unfitted classifier of the given family.
func New(f Family, opts Options) (Classifier, error) {
	switch f {
	case RandomForest:
		return newForest(opts.Seed, opts.Trees), nil
	case LogisticRegression:
		return newLogistic(), nil
	case NeuralNetwork:
		return newMLP(opts.Seed), nil
	case SVM:
		return newKernelSVM(opts.Seed), nil
	default:
		return nil, fmt.Errorf("unknown model family %q", f)
	}
}

// encodeParams serializes the fitted state of c.
func encodeParams(c Classifier) (json.RawMessage, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s parameters: %w", c.Family(), err)
	}
	return data, nil
}

// decodeParams rebuilds a fitted classifier from its serialized state.
func decodeParams(f Family, raw json.RawMessage) (Classifier, error) {
	c, err := New(f, Options{})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("failed to decode %s parameters: %w", f, err)
	}
	if v, ok := c.(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func sigmoid(x float64) float64 {
	if x > 35 {
		return 1
	}
	if x < -35 {
		return 0
	}
	return 1.0 / (1.0 + math.Exp(-x))
}
