package model

import "math/rand"

// TrainTestSplit shuffles n indices with seed and holds out testFraction of them.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(float64(n)*testFraction + 0.999999)
	if nTest >= n {
		nTest = n - 1
	}
	if nTest < 1 {
		nTest = 1
	}
	return perm[nTest:], perm[:nTest]
}

// StratifiedFolds partitions positions 0..len(y)-1 into k folds that preserve the
// class ratio. Samples are dealt round-robin, benign first, in index order.
func StratifiedFolds(y []int, k int) [][]int {
	folds := make([][]int, k)
	c := 0
	for _, class := range []int{Benign, Malicious} {
		for i, label := range y {
			if label == class {
				folds[c%k] = append(folds[c%k], i)
				c++
			}
		}
	}
	return folds
}

func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}

func complement(n int, fold []int) []int {
	skip := make(map[int]bool, len(fold))
	for _, i := range fold {
		skip[i] = true
	}
	out := make([]int, 0, n-len(fold))
	for i := 0; i < n; i++ {
		if !skip[i] {
			out = append(out, i)
		}
	}
	return out
}
