package model

import (
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTrees     = 100
	forestMaxDepth   = 16
	forestMinSamples = 2
)

type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	// Value is the malicious fraction at a leaf; Left and Right are -1 there.
	Value float64 `json:"v"`
}

func (n treeNode) leaf() bool { return n.Left < 0 }

type tree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.leaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// forest is a bagged ensemble of gini CART trees with sqrt(d) features tried per split.
type forest struct {
	seed  int64
	count int

	Trees       []tree    `json:"trees"`
	Dim         int       `json:"dim"`
	Importances []float64 `json:"importances"`
}

func newForest(seed int64, trees int) *forest {
	if trees <= 0 {
		trees = defaultTrees
	}
	return &forest{seed: seed, count: trees}
}

func (f *forest) Family() Family { return RandomForest }

func (f *forest) Capabilities() Capabilities {
	return Capabilities{Probability: true, Importance: true}
}

func (f *forest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("random forest: empty or mismatched training data")
	}
	d := len(X[0])
	trees := make([]tree, f.count)
	imps := make([][]float64, f.count)

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < f.count; t++ {
		t := t
		g.Go(func() error {
			rng := rand.New(rand.NewSource(f.seed + int64(t)*7919))
			idx := make([]int, len(X))
			for i := range idx {
				idx[i] = rng.Intn(len(X))
			}
			b := &treeBuilder{X: X, y: y, rng: rng, mtry: maxInt(1, int(math.Sqrt(float64(d)))), imp: make([]float64, d), total: float64(len(idx))}
			b.grow(idx, 0)
			trees[t] = tree{Nodes: b.nodes}
			imps[t] = normalize(b.imp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	importance := make([]float64, d)
	for _, imp := range imps {
		for j, v := range imp {
			importance[j] += v / float64(len(imps))
		}
	}
	f.Trees = trees
	f.Dim = d
	f.Importances = normalize(importance)
	return nil
}

func (f *forest) Proba(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0.5
	}
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees))
}

func (f *forest) Predict(x []float64) int {
	if f.Proba(x) > 0.5 {
		return Malicious
	}
	return Benign
}

func (f *forest) Importance() []float64 {
	out := make([]float64, len(f.Importances))
	copy(out, f.Importances)
	return out
}

func (f *forest) validate() error {
	if len(f.Trees) == 0 || f.Dim == 0 {
		return errNotFitted
	}
	for _, t := range f.Trees {
		for _, n := range t.Nodes {
			if n.leaf() {
				continue
			}
			if n.Feature < 0 || n.Feature >= f.Dim || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) || n.Right < 0 {
				return errors.New("random forest: corrupt tree structure")
			}
		}
	}
	return nil
}

type treeBuilder struct {
	X     [][]float64
	y     []int
	rng   *rand.Rand
	mtry  int
	imp   []float64
	total float64
	nodes []treeNode
}

func gini(pos, n float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	return 2 * p * (1 - p)
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	pos := 0.0
	for _, i := range idx {
		pos += float64(b.y[i])
	}
	n := float64(len(idx))
	id := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Left: -1, Right: -1, Value: pos / n})

	if depth >= forestMaxDepth || len(idx) < forestMinSamples || pos == 0 || pos == n {
		return id
	}

	parent := gini(pos, n)
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	d := len(b.X[0])
	sorted := make([]int, len(idx))
	for _, j := range b.rng.Perm(d)[:b.mtry] {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][j] < b.X[sorted[c]][j] })

		leftPos := 0.0
		for k := 0; k < len(sorted)-1; k++ {
			leftPos += float64(b.y[sorted[k]])
			lo, hi := b.X[sorted[k]][j], b.X[sorted[k+1]][j]
			if lo == hi {
				continue
			}
			ln := float64(k + 1)
			rn := n - ln
			child := (ln*gini(leftPos, ln) + rn*gini(pos-leftPos, rn)) / n
			if gain := parent - child; gain > bestGain {
				bestFeature, bestThreshold, bestGain = j, lo+(hi-lo)/2, gain
			}
		}
	}
	if bestFeature < 0 {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return id
	}
	b.imp[bestFeature] += n / b.total * bestGain

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].Feature = bestFeature
	b.nodes[id].Threshold = bestThreshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

func normalize(v []float64) []float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	out := make([]float64, len(v))
	if sum == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
