package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/y0ug/malxplain/internal/features"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TrainerConfig controls a training run.
type TrainerConfig struct {
	Seed         int64
	Trees        int
	Folds        int
	TestFraction float64
	SelectK      int
	// Families lists the candidates to train. Empty means all of Priority.
	Families []Family
}

// DefaultTrainerConfig returns the standard training setup.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Seed:         42,
		Trees:        defaultTrees,
		Folds:        5,
		TestFraction: 0.2,
		SelectK:      features.DefaultK,
	}
}

// Candidate is the evaluation of one classifier family.
type Candidate struct {
	Family       Family        `json:"family"`
	Name         string        `json:"name"`
	Capabilities Capabilities  `json:"capabilities"`
	Metrics      Metrics       `json:"metrics"`
	CV           CVResult      `json:"cross_validation"`
	Duration     time.Duration `json:"duration"`
	Err          error         `json:"-"`

	model Classifier
}

// TrainingResult holds every candidate's evaluation plus the selected artifact.
type TrainingResult struct {
	Candidates []Candidate `json:"candidates"`
	Selected   Family      `json:"selected"`
	Artifact   *Artifact   `json:"-"`
	TrainSize  int         `json:"train_size"`
	TestSize   int         `json:"test_size"`
}

// Trainer fits the scaler, selector and candidate classifiers.
type Trainer struct {
	Config TrainerConfig
}

// NewTrainer creates a Trainer, filling unset fields from DefaultTrainerConfig.
func NewTrainer(cfg TrainerConfig) *Trainer {
	def := DefaultTrainerConfig()
	if cfg.Trees <= 0 {
		cfg.Trees = def.Trees
	}
	if cfg.Folds < 2 {
		cfg.Folds = def.Folds
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = def.TestFraction
	}
	if cfg.SelectK <= 0 {
		cfg.SelectK = def.SelectK
	}
	if len(cfg.Families) == 0 {
		cfg.Families = Priority
	}
	return &Trainer{Config: cfg}
}

func validateTrainingData(vectors []features.Vector, labels []int, folds int) error {
	if len(vectors) != len(labels) {
		return fmt.Errorf("%d vectors but %d labels", len(vectors), len(labels))
	}
	var counts [2]int
	for i, y := range labels {
		if y != Benign && y != Malicious {
			return fmt.Errorf("label %d at row %d is not 0 or 1", y, i)
		}
		counts[y]++
	}
	if counts[Benign] == 0 || counts[Malicious] == 0 {
		return errors.New("training data must contain both benign and malicious samples")
	}
	if len(vectors) < 2*folds {
		return fmt.Errorf("need at least %d samples, got %d", 2*folds, len(vectors))
	}
	return nil
}

// Train splits the data, fits the transforms on the training split, evaluates every
// candidate family and packages the most accurate one as an artifact.
func (t *Trainer) Train(ctx context.Context, vectors []features.Vector, labels []int) (*TrainingResult, error) {
	cfg := t.Config
	if err := validateTrainingData(vectors, labels, cfg.Folds); err != nil {
		return nil, fmt.Errorf("invalid training data: %w", err)
	}

	X := make([][]float64, len(vectors))
	for i, v := range vectors {
		X[i] = v.Slice()
	}
	trainIdx, testIdx := TrainTestSplit(len(X), cfg.TestFraction, cfg.Seed)
	Xtrain, ytrain := gather(X, labels, trainIdx)
	Xtest, ytest := gather(X, labels, testIdx)

	scaler, err := features.FitScaler(Xtrain)
	if err != nil {
		return nil, err
	}
	scaledTrain, err := scaler.TransformAll(Xtrain)
	if err != nil {
		return nil, err
	}
	selector, err := features.FitSelector(scaledTrain, ytrain, cfg.SelectK)
	if err != nil {
		return nil, err
	}
	selTrain, err := selector.TransformAll(scaledTrain)
	if err != nil {
		return nil, err
	}
	scaledTest, err := scaler.TransformAll(Xtest)
	if err != nil {
		return nil, err
	}
	selTest, err := selector.TransformAll(scaledTest)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"train_size": len(selTrain),
		"test_size":  len(selTest),
		"selected":   selector.K,
	}).Info("Training candidate models")

	candidates := make([]Candidate, len(cfg.Families))
	g, gctx := errgroup.WithContext(ctx)
	for i, fam := range cfg.Families {
		i, fam := i, fam
		g.Go(func() error {
			candidates[i] = t.trainCandidate(gctx, fam, selTrain, ytrain, selTest, ytest)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("training aborted: %w", err)
	}

	best := selectBest(candidates)
	if best < 0 {
		return nil, errors.New("no candidate model could be trained")
	}
	winner := candidates[best]

	params, err := encodeParams(winner.model)
	if err != nil {
		return nil, err
	}
	artifact := &Artifact{
		Version:      ArtifactVersion,
		ModelType:    winner.Family,
		ModelName:    winner.Name,
		CreatedAt:    time.Now().UTC(),
		Capabilities: winner.Capabilities,
		FeatureNames: features.Names(),
		Scaler:       scaler,
		Selector:     selector,
		Params:       params,
		model:        winner.model,
	}

	logrus.WithFields(logrus.Fields{
		"model":    winner.Family,
		"accuracy": winner.Metrics.Accuracy,
	}).Info("Selected best model")

	return &TrainingResult{
		Candidates: candidates,
		Selected:   winner.Family,
		Artifact:   artifact,
		TrainSize:  len(selTrain),
		TestSize:   len(selTest),
	}, nil
}

func (t *Trainer) trainCandidate(ctx context.Context, fam Family, Xtrain [][]float64, ytrain []int, Xtest [][]float64, ytest []int) Candidate {
	start := time.Now()
	c := Candidate{Family: fam, Name: fam.DisplayName()}
	opts := Options{Seed: t.Config.Seed, Trees: t.Config.Trees}

	clf, err := New(fam, opts)
	if err != nil {
		c.Err = err
		return c
	}
	if err := clf.Fit(Xtrain, ytrain); err != nil {
		c.Err = err
		logrus.WithError(err).WithField("model", fam).Warn("Candidate training failed")
		return c
	}
	c.model = clf
	c.Capabilities = clf.Capabilities()
	c.Metrics = Evaluate(ytest, predictAll(clf, Xtest))

	folds := StratifiedFolds(ytrain, t.Config.Folds)
	scores := make([]float64, 0, len(folds))
	for _, fold := range folds {
		if ctx.Err() != nil {
			c.Err = ctx.Err()
			return c
		}
		fx, fy := gather(Xtrain, ytrain, complement(len(Xtrain), fold))
		vx, vy := gather(Xtrain, ytrain, fold)
		fc, _ := New(fam, opts)
		if err := fc.Fit(fx, fy); err != nil {
			c.Err = fmt.Errorf("cross-validation: %w", err)
			return c
		}
		scores = append(scores, Evaluate(vy, predictAll(fc, vx)).Accuracy)
	}
	c.CV = summarizeCV(scores)
	c.Duration = time.Since(start)

	logrus.WithFields(logrus.Fields{
		"model":    fam,
		"accuracy": c.Metrics.Accuracy,
		"cv_mean":  c.CV.Mean,
		"cv_std":   c.CV.Std,
	}).Info("Candidate trained")
	return c
}

// selectBest returns the index of the most accurate usable candidate. Equal
// accuracies resolve by family priority, independent of slice order.
func selectBest(cs []Candidate) int {
	best := -1
	for i, c := range cs {
		if c.Err != nil || c.model == nil {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := cs[best]
		if c.Metrics.Accuracy > b.Metrics.Accuracy ||
			(c.Metrics.Accuracy == b.Metrics.Accuracy && c.Family.rank() < b.Family.rank()) {
			best = i
		}
	}
	return best
}

func predictAll(c Classifier, X [][]float64) []int {
	out := make([]int, len(X))
	for i, x := range X {
		out[i] = c.Predict(x)
	}
	return out
}
