package features

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultK is the number of columns kept by the selector unless configured otherwise.
const DefaultK = 50

// Selector keeps the K columns with the highest ANOVA F-score.
type Selector struct {
	K    int    `json:"k"`
	Mask []bool `json:"mask"`
	// Scores holds the F-scores computed during fitting.
	Scores []float64 `json:"scores,omitempty"`
}

// FitSelector scores each column of X against the binary labels y and keeps the top k.
// k is clamped to the column count; ties keep the lower column index.
func FitSelector(X [][]float64, y []int, k int) (*Selector, error) {
	if len(X) == 0 {
		return nil, errors.New("cannot fit selector on empty data")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d labels", ErrDimension, len(X), len(y))
	}
	d := len(X[0])
	if k <= 0 || k > d {
		k = d
	}

	scores := make([]float64, d)
	for j := 0; j < d; j++ {
		scores[j] = fScore(X, y, j)
	}

	order := make([]int, d)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	mask := make([]bool, d)
	for _, j := range order[:k] {
		mask[j] = true
	}
	return &Selector{K: k, Mask: mask, Scores: scores}, nil
}

// fScore is the one-way ANOVA F statistic of column j grouped by label.
// Degenerate columns score 0.
func fScore(X [][]float64, y []int, j int) float64 {
	groups := map[int][]float64{}
	all := make([]float64, len(X))
	for i, row := range X {
		groups[y[i]] = append(groups[y[i]], row[j])
		all[i] = row[j]
	}
	c := len(groups)
	n := len(X)
	if c < 2 || n <= c {
		return 0
	}

	labels := make([]int, 0, c)
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	grand := stat.Mean(all, nil)
	var ssb, ssw float64
	for _, label := range labels {
		g := groups[label]
		m := stat.Mean(g, nil)
		ssb += float64(len(g)) * (m - grand) * (m - grand)
		for _, v := range g {
			ssw += (v - m) * (v - m)
		}
	}
	if ssw == 0 {
		if ssb > 0 {
			return math.MaxFloat64
		}
		return 0
	}
	f := (ssb / float64(c-1)) / (ssw / float64(n-c))
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Indices returns the selected column indices in ascending order.
func (s *Selector) Indices() []int {
	var idx []int
	for j, keep := range s.Mask {
		if keep {
			idx = append(idx, j)
		}
	}
	return idx
}

// Transform keeps only the selected columns of x.
func (s *Selector) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mask) {
		return nil, fmt.Errorf("%w: got %d, mask covers %d", ErrDimension, len(x), len(s.Mask))
	}
	out := make([]float64, 0, s.K)
	for j, keep := range s.Mask {
		if keep {
			out = append(out, x[j])
		}
	}
	return out, nil
}

// TransformAll applies the mask to every row.
func (s *Selector) TransformAll(X [][]float64) ([][]float64, error) {
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
