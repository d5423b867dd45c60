package model

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	svmLambda     = 0.01
	svmIterFactor = 20
	// svmMaxTrainRows bounds the n x n Gram matrix (2000 rows is about 32 MiB).
	svmMaxTrainRows = 2000
)

// kernelSVM is an RBF-kernel SVM trained with the kernelized Pegasos solver. It
// exposes neither probabilities nor feature importances.
type kernelSVM struct {
	seed    int64
	maxRows int

	Gamma   float64     `json:"gamma"`
	Support [][]float64 `json:"support"`
	// Coef holds alpha_i * y_i / (lambda * T) for each support vector.
	Coef []float64 `json:"coef"`
}

func newKernelSVM(seed int64) *kernelSVM {
	return &kernelSVM{seed: seed, maxRows: svmMaxTrainRows}
}

func (s *kernelSVM) Family() Family { return SVM }

func (s *kernelSVM) Capabilities() Capabilities { return Capabilities{} }

// kernel is the RBF kernel plus a constant term standing in for the bias.
func (s *kernelSVM) kernel(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-s.Gamma*d*d) + 1
}

func (s *kernelSVM) Fit(X [][]float64, y []int) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return errors.New("svm: empty or mismatched training data")
	}
	rng := rand.New(rand.NewSource(s.seed))
	if s.maxRows > 0 && n > s.maxRows {
		X, y = stratifiedSubsample(X, y, s.maxRows, rng)
		n = len(X)
	}
	d := len(X[0])

	flat := make([]float64, 0, n*d)
	for _, row := range X {
		flat = append(flat, row...)
	}
	_, variance := stat.PopMeanVariance(flat, nil)
	if variance > 0 {
		s.Gamma = 1 / (float64(d) * variance)
	} else {
		s.Gamma = 1 / float64(d)
	}

	gram := make([][]float64, n)
	for i := range gram {
		gram[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k := s.kernel(X[i], X[j])
			gram[i][j], gram[j][i] = k, k
		}
	}

	sign := make([]float64, n)
	for i, label := range y {
		sign[i] = -1
		if label == Malicious {
			sign[i] = 1
		}
	}

	alpha := make([]float64, n)
	iters := svmIterFactor * n
	for t := 1; t <= iters; t++ {
		i := rng.Intn(n)
		sum := 0.0
		for j, a := range alpha {
			if a != 0 {
				sum += a * sign[j] * gram[j][i]
			}
		}
		if sign[i]*sum/(svmLambda*float64(t)) < 1 {
			alpha[i]++
		}
	}

	s.Support = s.Support[:0]
	s.Coef = s.Coef[:0]
	norm := svmLambda * float64(iters)
	for i, a := range alpha {
		if a == 0 {
			continue
		}
		row := make([]float64, d)
		copy(row, X[i])
		s.Support = append(s.Support, row)
		s.Coef = append(s.Coef, a*sign[i]/norm)
	}
	return nil
}

// stratifiedSubsample keeps at most limit rows, drawing from each class in
// proportion to its share of y. Every class present keeps at least one row and
// the original row order is preserved.
func stratifiedSubsample(X [][]float64, y []int, limit int, rng *rand.Rand) ([][]float64, []int) {
	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for label := range byClass {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	var keep []int
	for _, label := range classes {
		idx := byClass[label]
		quota := len(idx) * limit / len(y)
		if quota == 0 {
			quota = 1
		}
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		keep = append(keep, idx[:quota]...)
	}
	sort.Ints(keep)

	subX := make([][]float64, len(keep))
	subY := make([]int, len(keep))
	for i, k := range keep {
		subX[i], subY[i] = X[k], y[k]
	}
	return subX, subY
}

func (s *kernelSVM) decision(x []float64) float64 {
	sum := 0.0
	for i, sv := range s.Support {
		sum += s.Coef[i] * s.kernel(sv, x)
	}
	return sum
}

func (s *kernelSVM) Predict(x []float64) int {
	if len(s.Support) == 0 || len(s.Support[0]) != len(x) {
		return Benign
	}
	if s.decision(x) > 0 {
		return Malicious
	}
	return Benign
}

// Proba is not calibrated for this family; callers consult Capabilities first.
func (s *kernelSVM) Proba(x []float64) float64 { return 0.5 }

func (s *kernelSVM) Importance() []float64 { return nil }

func (s *kernelSVM) validate() error {
	if len(s.Support) != len(s.Coef) {
		return errors.New("svm: support vectors and coefficients disagree")
	}
	if len(s.Support) == 0 {
		return errNotFitted
	}
	return nil
}
