package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrDimension is returned when a row does not match the fitted width.
var ErrDimension = errors.New("feature dimension mismatch")

// Scaler standardizes columns to zero mean and unit variance.
type Scaler struct {
	Mean     []float64 `json:"mean"`
	Variance []float64 `json:"variance"`
}

// FitScaler computes per-column population mean and variance.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, errors.New("cannot fit scaler on empty data")
	}
	d := len(X[0])
	s := &Scaler{Mean: make([]float64, d), Variance: make([]float64, d)}
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i, row := range X {
			if len(row) != d {
				return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrDimension, i, len(row), d)
			}
			col[i] = row[j]
		}
		s.Mean[j], s.Variance[j] = stat.PopMeanVariance(col, nil)
	}
	return s, nil
}

func (s *Scaler) scale(j int) float64 {
	sd := math.Sqrt(s.Variance[j])
	if sd == 0 || math.IsNaN(sd) {
		return 1
	}
	return sd
}

// Transform returns a standardized copy of x.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) || len(s.Variance) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d, scaler fitted on %d", ErrDimension, len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.scale(j)
	}
	return out, nil
}

// TransformAll standardizes every row.
func (s *Scaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		t, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
