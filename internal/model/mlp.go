package model

import (
	"errors"
	"math"
	"math/rand"
)

const (
	mlpHidden1  = 32
	mlpHidden2  = 16
	mlpEpochs   = 100
	mlpBatch    = 32
	mlpRate     = 0.005
	mlpBeta1    = 0.9
	mlpBeta2    = 0.999
	mlpEps      = 1e-8
	mlpDecay    = 1e-4
	mlpLeaky    = 0.01
	mlpGradClip = 5.0
)

// mlp is a two hidden layer feed-forward network with leaky ReLU activations and a
// sigmoid output, trained with AdamW on mini-batches.
type mlp struct {
	seed int64

	W1 [][]float64 `json:"w1"` // [in][h1]
	B1 []float64   `json:"b1"`
	W2 [][]float64 `json:"w2"` // [h1][h2]
	B2 []float64   `json:"b2"`
	W3 []float64   `json:"w3"` // [h2]
	B3 float64     `json:"b3"`
}

func newMLP(seed int64) *mlp { return &mlp{seed: seed} }

func (m *mlp) Family() Family { return NeuralNetwork }

func (m *mlp) Capabilities() Capabilities {
	return Capabilities{Probability: true}
}

type adamState struct {
	mW1, vW1 [][]float64
	mB1, vB1 []float64
	mW2, vW2 [][]float64
	mB2, vB2 []float64
	mW3, vW3 []float64
	mB3, vB3 float64
	step     float64
}

type mlpGrads struct {
	W1 [][]float64
	B1 []float64
	W2 [][]float64
	B2 []float64
	W3 []float64
	B3 float64
}

func newGrads(in int) *mlpGrads {
	return &mlpGrads{
		W1: make2D(in, mlpHidden1), B1: make([]float64, mlpHidden1),
		W2: make2D(mlpHidden1, mlpHidden2), B2: make([]float64, mlpHidden2),
		W3: make([]float64, mlpHidden2),
	}
}

func (g *mlpGrads) reset() {
	for i := range g.W1 {
		clear(g.W1[i])
	}
	for i := range g.W2 {
		clear(g.W2[i])
	}
	clear(g.B1)
	clear(g.B2)
	clear(g.W3)
	g.B3 = 0
}

func (m *mlp) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("neural network: empty or mismatched training data")
	}
	in := len(X[0])
	rng := rand.New(rand.NewSource(m.seed))

	m.W1 = make2D(in, mlpHidden1)
	m.B1 = make([]float64, mlpHidden1)
	m.W2 = make2D(mlpHidden1, mlpHidden2)
	m.B2 = make([]float64, mlpHidden2)
	m.W3 = make([]float64, mlpHidden2)
	m.B3 = 0
	initHe2D(rng, m.W1, in)
	initHe2D(rng, m.W2, mlpHidden1)
	initHe1D(rng, m.W3, mlpHidden2)

	st := &adamState{
		mW1: make2D(in, mlpHidden1), vW1: make2D(in, mlpHidden1),
		mB1: make([]float64, mlpHidden1), vB1: make([]float64, mlpHidden1),
		mW2: make2D(mlpHidden1, mlpHidden2), vW2: make2D(mlpHidden1, mlpHidden2),
		mB2: make([]float64, mlpHidden2), vB2: make([]float64, mlpHidden2),
		mW3: make([]float64, mlpHidden2), vW3: make([]float64, mlpHidden2),
	}
	g := newGrads(in)
	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < mlpEpochs; epoch++ {
		rng.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
		for start := 0; start < len(order); start += mlpBatch {
			end := start + mlpBatch
			if end > len(order) {
				end = len(order)
			}
			g.reset()
			for _, i := range order[start:end] {
				m.backward(X[i], float64(y[i]), g)
			}
			m.step(st, g, float64(end-start))
		}
	}
	return nil
}

type mlpCache struct {
	z1, a1, z2, a2 []float64
}

func (m *mlp) forward(x []float64) (float64, *mlpCache) {
	c := &mlpCache{
		z1: make([]float64, mlpHidden1), a1: make([]float64, mlpHidden1),
		z2: make([]float64, mlpHidden2), a2: make([]float64, mlpHidden2),
	}
	for j := 0; j < mlpHidden1; j++ {
		sum := m.B1[j]
		for i := range x {
			sum += x[i] * m.W1[i][j]
		}
		c.z1[j] = sum
		c.a1[j] = leakyRelu(sum)
	}
	for j := 0; j < mlpHidden2; j++ {
		sum := m.B2[j]
		for i := 0; i < mlpHidden1; i++ {
			sum += c.a1[i] * m.W2[i][j]
		}
		c.z2[j] = sum
		c.a2[j] = leakyRelu(sum)
	}
	logit := m.B3
	for j := 0; j < mlpHidden2; j++ {
		logit += c.a2[j] * m.W3[j]
	}
	return sigmoid(logit), c
}

// backward accumulates the log-loss gradient for one sample into g.
func (m *mlp) backward(x []float64, y float64, g *mlpGrads) {
	p, c := m.forward(x)
	dz3 := p - y

	dz2 := make([]float64, mlpHidden2)
	for j := 0; j < mlpHidden2; j++ {
		g.W3[j] += dz3 * c.a2[j]
		dz2[j] = dz3 * m.W3[j] * leakyReluDeriv(c.z2[j])
	}
	g.B3 += dz3

	dz1 := make([]float64, mlpHidden1)
	for i := 0; i < mlpHidden1; i++ {
		sum := 0.0
		for j := 0; j < mlpHidden2; j++ {
			g.W2[i][j] += dz2[j] * c.a1[i]
			sum += dz2[j] * m.W2[i][j]
		}
		dz1[i] = sum * leakyReluDeriv(c.z1[i])
	}
	for j := 0; j < mlpHidden2; j++ {
		g.B2[j] += dz2[j]
	}

	for i := range x {
		for j := 0; j < mlpHidden1; j++ {
			g.W1[i][j] += dz1[j] * x[i]
		}
	}
	for j := 0; j < mlpHidden1; j++ {
		g.B1[j] += dz1[j]
	}
}

func (m *mlp) step(st *adamState, g *mlpGrads, batch float64) {
	scale2D(g.W1, 1/batch)
	scale2D(g.W2, 1/batch)
	scale1D(g.B1, 1/batch)
	scale1D(g.B2, 1/batch)
	scale1D(g.W3, 1/batch)
	g.B3 /= batch

	st.step++
	t := st.step
	adamw2D(m.W1, g.W1, st.mW1, st.vW1, mlpDecay, t)
	adamw1D(m.B1, g.B1, st.mB1, st.vB1, 0, t)
	adamw2D(m.W2, g.W2, st.mW2, st.vW2, mlpDecay, t)
	adamw1D(m.B2, g.B2, st.mB2, st.vB2, 0, t)
	adamw1D(m.W3, g.W3, st.mW3, st.vW3, mlpDecay, t)
	m.B3 = adamwScalar(m.B3, clipScalar(g.B3), &st.mB3, &st.vB3, t)
}

func (m *mlp) Proba(x []float64) float64 {
	if len(m.W1) != len(x) {
		return 0.5
	}
	p, _ := m.forward(x)
	return p
}

func (m *mlp) Predict(x []float64) int {
	if m.Proba(x) > 0.5 {
		return Malicious
	}
	return Benign
}

func (m *mlp) Importance() []float64 { return nil }

func (m *mlp) validate() error {
	if len(m.W1) == 0 || len(m.B1) != mlpHidden1 || len(m.W2) != mlpHidden1 || len(m.B2) != mlpHidden2 || len(m.W3) != mlpHidden2 {
		return errors.New("neural network: unexpected layer shapes")
	}
	for _, row := range m.W1 {
		if len(row) != mlpHidden1 {
			return errors.New("neural network: unexpected layer shapes")
		}
	}
	for _, row := range m.W2 {
		if len(row) != mlpHidden2 {
			return errors.New("neural network: unexpected layer shapes")
		}
	}
	return nil
}

func make2D(r, c int) [][]float64 {
	m := make([][]float64, r)
	for i := range m {
		m[i] = make([]float64, c)
	}
	return m
}

func initHe2D(rng *rand.Rand, w [][]float64, fanIn int) {
	std := math.Sqrt(2.0 / float64(fanIn))
	for i := range w {
		for j := range w[i] {
			w[i][j] = rng.NormFloat64() * std
		}
	}
}

func initHe1D(rng *rand.Rand, w []float64, fanIn int) {
	std := math.Sqrt(2.0 / float64(fanIn))
	for i := range w {
		w[i] = rng.NormFloat64() * std
	}
}

func leakyRelu(x float64) float64 {
	if x >= 0 {
		return x
	}
	return mlpLeaky * x
}

func leakyReluDeriv(x float64) float64 {
	if x >= 0 {
		return 1.0
	}
	return mlpLeaky
}

func scale1D(v []float64, s float64) {
	for i := range v {
		v[i] *= s
	}
}

func scale2D(v [][]float64, s float64) {
	for i := range v {
		scale1D(v[i], s)
	}
}

func clipScalar(x float64) float64 {
	return math.Max(-mlpGradClip, math.Min(mlpGradClip, x))
}

func adamwScalar(param, grad float64, m, v *float64, t float64) float64 {
	*m = mlpBeta1*(*m) + (1-mlpBeta1)*grad
	*v = mlpBeta2*(*v) + (1-mlpBeta2)*grad*grad
	mhat := (*m) / (1 - math.Pow(mlpBeta1, t))
	vhat := (*v) / (1 - math.Pow(mlpBeta2, t))
	return param - mlpRate*mhat/(math.Sqrt(vhat)+mlpEps)
}

func adamw1D(p, g, m, v []float64, wd, t float64) {
	b1t := 1 - math.Pow(mlpBeta1, t)
	b2t := 1 - math.Pow(mlpBeta2, t)
	for i := range p {
		gi := clipScalar(g[i])
		if wd != 0 {
			p[i] -= mlpRate * wd * p[i]
		}
		m[i] = mlpBeta1*m[i] + (1-mlpBeta1)*gi
		v[i] = mlpBeta2*v[i] + (1-mlpBeta2)*gi*gi
		p[i] -= mlpRate * (m[i] / b1t) / (math.Sqrt(v[i]/b2t) + mlpEps)
	}
}

func adamw2D(p, g, m, v [][]float64, wd, t float64) {
	for i := range p {
		adamw1D(p[i], g[i], m[i], v[i], wd, t)
	}
}
