package model

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/y0ug/malxplain/internal/features"
)

func quickTrainer() *Trainer {
	return NewTrainer(TrainerConfig{Seed: 42, Trees: 10})
}

func separable(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		label := i % 2
		center := -1.5
		if label == Malicious {
			center = 1.5
		}
		X[i] = []float64{center + 0.3*rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		y[i] = label
	}
	return X, y
}

func TestFamiliesLearnSeparableData(t *testing.T) {
	X, y := separable(120, 7)
	for _, fam := range Priority {
		t.Run(string(fam), func(t *testing.T) {
			c, err := New(fam, Options{Seed: 1, Trees: 10})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := c.Fit(X, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			m := Evaluate(y, predictAll(c, X))
			if m.Accuracy < 0.9 {
				t.Errorf("expected training accuracy >= 0.9, got %.3f", m.Accuracy)
			}
			caps := c.Capabilities()
			if caps.Importance {
				imp := c.Importance()
				if len(imp) != 3 {
					t.Fatalf("expected 3 importances, got %d", len(imp))
				}
				if imp[0] <= imp[1] || imp[0] <= imp[2] {
					t.Errorf("expected column 0 to dominate, got %v", imp)
				}
			} else if c.Importance() != nil {
				t.Error("expected nil importances without the capability")
			}
			if caps.Probability {
				p := c.Proba([]float64{1.5, 0, 0})
				if p <= 0.5 || p > 1 {
					t.Errorf("expected malicious probability in (0.5, 1], got %v", p)
				}
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	truth := []int{0, 0, 0, 1, 1, 1, 1}
	pred := []int{0, 0, 1, 1, 1, 0, 1}
	m := Evaluate(truth, pred)

	want := Confusion{{2, 1}, {1, 3}}
	if m.Confusion != want {
		t.Errorf("expected confusion %v, got %v", want, m.Confusion)
	}
	if m.Accuracy != 5.0/7.0 {
		t.Errorf("unexpected accuracy %v", m.Accuracy)
	}
	mal := m.Classes[Malicious]
	if mal.Precision != 0.75 || mal.Recall != 0.75 || mal.Support != 4 {
		t.Errorf("unexpected malicious metrics %+v", mal)
	}
	if m.Classes[Benign].Label != "benign" {
		t.Errorf("unexpected label %q", m.Classes[Benign].Label)
	}
}

func TestSplitAndFolds(t *testing.T) {
	train, test := TrainTestSplit(100, 0.2, 42)
	if len(train) != 80 || len(test) != 20 {
		t.Fatalf("expected 80/20 split, got %d/%d", len(train), len(test))
	}
	again, _ := TrainTestSplit(100, 0.2, 42)
	for i := range train {
		if train[i] != again[i] {
			t.Fatal("expected split to be reproducible for a fixed seed")
		}
	}

	y := make([]int, 50)
	for i := 0; i < 20; i++ {
		y[i] = Malicious
	}
	folds := StratifiedFolds(y, 5)
	seen := map[int]bool{}
	for _, f := range folds {
		if len(f) != 10 {
			t.Errorf("expected folds of 10, got %d", len(f))
		}
		pos := 0
		for _, i := range f {
			if seen[i] {
				t.Fatalf("index %d appears in two folds", i)
			}
			seen[i] = true
			pos += y[i]
		}
		if pos != 4 {
			t.Errorf("expected 4 malicious per fold, got %d", pos)
		}
	}
	if len(seen) != 50 {
		t.Errorf("expected every index assigned, got %d", len(seen))
	}
}

func TestSelectBestTieBreak(t *testing.T) {
	stub := newLogistic()
	cs := []Candidate{
		{Family: SVM, Metrics: Metrics{Accuracy: 0.9}, model: stub},
		{Family: NeuralNetwork, Metrics: Metrics{Accuracy: 0.9}, model: stub},
		{Family: RandomForest, Metrics: Metrics{Accuracy: 0.9}, model: stub},
		{Family: LogisticRegression, Metrics: Metrics{Accuracy: 0.8}, model: stub},
	}
	if got := cs[selectBest(cs)].Family; got != RandomForest {
		t.Errorf("expected random_forest to win the tie, got %s", got)
	}

	cs[3].Metrics.Accuracy = 0.95
	if got := cs[selectBest(cs)].Family; got != LogisticRegression {
		t.Errorf("expected the most accurate candidate, got %s", got)
	}

	cs[3].Err = errors.New("boom")
	cs[2].model = nil
	if got := cs[selectBest(cs)].Family; got != NeuralNetwork {
		t.Errorf("expected failed candidates to be skipped, got %s", got)
	}

	if selectBest([]Candidate{{Family: SVM, Err: errors.New("x")}}) != -1 {
		t.Error("expected -1 when no candidate is usable")
	}
}

func TestTrainIsDeterministic(t *testing.T) {
	vectors, labels := GenerateSynthetic(200, 42)

	first, err := quickTrainer().Train(context.Background(), vectors, labels)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	second, err := quickTrainer().Train(context.Background(), vectors, labels)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if len(first.Candidates) != len(Priority) {
		t.Fatalf("expected %d candidates, got %d", len(Priority), len(first.Candidates))
	}
	if first.Selected != second.Selected {
		t.Errorf("selection differs between runs: %s vs %s", first.Selected, second.Selected)
	}
	for i := range first.Candidates {
		a, b := first.Candidates[i], second.Candidates[i]
		if a.Err != nil {
			t.Errorf("%s failed: %v", a.Family, a.Err)
		}
		if a.Metrics != b.Metrics || a.CV.Mean != b.CV.Mean {
			t.Errorf("%s metrics differ between runs", a.Family)
		}
		if len(a.CV.Scores) != 5 {
			t.Errorf("%s: expected 5 CV scores, got %d", a.Family, len(a.CV.Scores))
		}
	}
	if first.TrainSize != 160 || first.TestSize != 40 {
		t.Errorf("expected 160/40 split, got %d/%d", first.TrainSize, first.TestSize)
	}

	x, err := first.Artifact.Transform(vectors[0])
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	y, _ := second.Artifact.Transform(vectors[0])
	if first.Artifact.Model().Predict(x) != second.Artifact.Model().Predict(y) {
		t.Error("expected identical predictions from identically trained artifacts")
	}
}

func TestTrainRejectsSingleClass(t *testing.T) {
	vectors := make([]features.Vector, 20)
	labels := make([]int, 20)
	if _, err := quickTrainer().Train(context.Background(), vectors, labels); err == nil {
		t.Error("expected error for single-class data")
	}
	if _, err := quickTrainer().Train(context.Background(), vectors, labels[:3]); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestSVMCapsTrainingRows(t *testing.T) {
	X, y := separable(300, 5)
	svm := newKernelSVM(1)
	svm.maxRows = 60
	if err := svm.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if len(svm.Support) == 0 || len(svm.Support) > 60 {
		t.Errorf("expected between 1 and 60 support vectors, got %d", len(svm.Support))
	}
	m := Evaluate(y, predictAll(svm, X))
	if m.Accuracy < 0.9 {
		t.Errorf("expected accuracy >= 0.9 on the full set, got %.3f", m.Accuracy)
	}
}

func TestStratifiedSubsample(t *testing.T) {
	X := make([][]float64, 1000)
	y := make([]int, 1000)
	for i := range X {
		X[i] = []float64{float64(i)}
		if i%10 == 0 {
			y[i] = Malicious
		}
	}
	subX, subY := stratifiedSubsample(X, y, 100, rand.New(rand.NewSource(1)))
	if len(subX) != 100 || len(subY) != 100 {
		t.Fatalf("expected 100 rows, got %d", len(subX))
	}
	malicious := 0
	for i := range subX {
		if i > 0 && subX[i][0] <= subX[i-1][0] {
			t.Fatal("expected original row order to be preserved")
		}
		if subY[i] != y[int(subX[i][0])] {
			t.Fatal("rows and labels out of step")
		}
		if subY[i] == Malicious {
			malicious++
		}
	}
	if malicious != 10 {
		t.Errorf("expected 10 malicious rows, got %d", malicious)
	}

	// A class too small for its proportional share still keeps one row.
	y = make([]int, 1000)
	y[500] = Malicious
	_, subY = stratifiedSubsample(X, y, 100, rand.New(rand.NewSource(1)))
	malicious = 0
	for _, label := range subY {
		if label == Malicious {
			malicious++
		}
	}
	if malicious != 1 || len(subY) > 100 {
		t.Errorf("expected one malicious row in at most 100, got %d of %d", malicious, len(subY))
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	vectors, labels := GenerateSynthetic(150, 3)
	for _, fam := range Priority {
		t.Run(string(fam), func(t *testing.T) {
			tr := NewTrainer(TrainerConfig{Seed: 3, Trees: 5, Families: []Family{fam}})
			res, err := tr.Train(context.Background(), vectors, labels)
			if err != nil {
				t.Fatalf("Train: %v", err)
			}

			path := filepath.Join(t.TempDir(), "models", "artifact.json")
			store := NewFileStore(path)
			if err := store.Save(res.Artifact); err != nil {
				t.Fatalf("Save: %v", err)
			}
			loaded, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.ModelType != fam || loaded.Capabilities != res.Artifact.Capabilities {
				t.Errorf("unexpected artifact header %+v", loaded)
			}
			for i, v := range vectors {
				a, _ := res.Artifact.Transform(v)
				b, err := loaded.Transform(v)
				if err != nil {
					t.Fatalf("Transform: %v", err)
				}
				if res.Artifact.Model().Proba(a) != loaded.Model().Proba(b) {
					t.Fatalf("vector %d: probability changed after reload", i)
				}
				if res.Artifact.Model().Predict(a) != loaded.Model().Predict(b) {
					t.Fatalf("vector %d: prediction changed after reload", i)
				}
			}
			if loaded.Capabilities.Importance {
				if top := loaded.TopFeatures(5); len(top) != 5 {
					t.Errorf("expected 5 top features, got %d", len(top))
				}
			}
		})
	}
}

func TestFileStoreRejectsBadArtifacts(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewFileStore(filepath.Join(dir, "missing.json")).Load(); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable for a missing file, got %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(corrupt).Load(); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable for corrupt JSON, got %v", err)
	}

	old := filepath.Join(dir, "old.json")
	if err := os.WriteFile(old, []byte(`{"version": 0, "model_type": "svm"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(old).Load(); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable for a stale version, got %v", err)
	}
}

type mockStore struct {
	mu      sync.Mutex
	loadErr error
	loaded  *Artifact
	saves   int
}

func (m *mockStore) Load() (*Artifact, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.loaded, nil
}

func (m *mockStore) Save(a *Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	return errors.New("disk full")
}

func TestRegistryBootstrapsOnce(t *testing.T) {
	store := &mockStore{loadErr: ErrModelUnavailable}
	reg := NewRegistry(RegistryConfig{
		Store:            store,
		Trainer:          NewTrainer(TrainerConfig{Seed: 42, Trees: 5, Families: []Family{RandomForest, LogisticRegression}}),
		SyntheticSamples: 120,
	})

	const callers = 8
	results := make([]*Artifact, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := reg.Get(context.Background())
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			results[i] = a
		}(i)
	}
	wg.Wait()

	if reg.Bootstraps() != 1 {
		t.Errorf("expected exactly one bootstrap, got %d", reg.Bootstraps())
	}
	if store.saves != 1 {
		t.Errorf("expected one save attempt, got %d", store.saves)
	}
	for _, a := range results {
		if a != results[0] {
			t.Fatal("expected every caller to share one artifact")
		}
	}
}

func TestRegistryPrefersStoredArtifact(t *testing.T) {
	stored := &Artifact{ModelType: SVM}
	reg := NewRegistry(RegistryConfig{Store: &mockStore{loaded: stored}})
	a, err := reg.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a != stored || reg.Bootstraps() != 0 {
		t.Error("expected the stored artifact without bootstrapping")
	}
}
