package model

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	logisticEpochs = 500
	logisticRate   = 0.1
	logisticL2     = 0.01
)

// logistic is an L2-regularized logistic regression fitted by full-batch gradient descent.
type logistic struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func newLogistic() *logistic { return &logistic{} }

func (l *logistic) Family() Family { return LogisticRegression }

func (l *logistic) Capabilities() Capabilities {
	return Capabilities{Probability: true, Importance: true}
}

func (l *logistic) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("logistic regression: empty or mismatched training data")
	}
	d := len(X[0])
	n := float64(len(X))
	w := make([]float64, d)
	grad := make([]float64, d)
	b := 0.0

	for epoch := 0; epoch < logisticEpochs; epoch++ {
		for j := range grad {
			grad[j] = logisticL2 * w[j]
		}
		gb := 0.0
		for i, row := range X {
			diff := (sigmoid(floats.Dot(w, row)+b) - float64(y[i])) / n
			floats.AddScaled(grad, diff, row)
			gb += diff
		}
		floats.AddScaled(w, -logisticRate, grad)
		b -= logisticRate * gb
	}

	l.Weights = w
	l.Bias = b
	return nil
}

func (l *logistic) Proba(x []float64) float64 {
	if len(l.Weights) != len(x) {
		return 0.5
	}
	return sigmoid(floats.Dot(l.Weights, x) + l.Bias)
}

func (l *logistic) Predict(x []float64) int {
	if l.Proba(x) > 0.5 {
		return Malicious
	}
	return Benign
}

// Importance is the coefficient magnitude per column.
func (l *logistic) Importance() []float64 {
	out := make([]float64, len(l.Weights))
	for j, w := range l.Weights {
		out[j] = math.Abs(w)
	}
	return out
}

func (l *logistic) validate() error {
	if len(l.Weights) == 0 {
		return errNotFitted
	}
	return nil
}
