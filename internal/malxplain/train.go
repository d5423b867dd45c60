package malxplain

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/y0ug/malxplain/internal/behavior"
	"github.com/y0ug/malxplain/internal/features"
	"github.com/y0ug/malxplain/internal/model"
	"github.com/y0ug/malxplain/internal/sample"
	"github.com/y0ug/malxplain/internal/static"
)

// VectorizeManifest extracts a feature vector for every readable manifest entry.
// Entries that fail ingestion are logged and skipped.
func VectorizeManifest(entries []ManifestEntry, maxSize int64) ([]features.Vector, []int) {
	vectors := make([]features.Vector, 0, len(entries))
	labels := make([]int, 0, len(entries))

	for _, e := range entries {
		s, err := sample.Ingest(e.Path, maxSize)
		if err != nil {
			logrus.WithError(err).WithField("path", e.Path).Warn("Skipping manifest entry")
			continue
		}

		bf := behavior.Absent()
		if e.BehaviorPath != "" {
			rep, err := behavior.LoadReport(e.BehaviorPath)
			if err != nil {
				logrus.WithError(err).WithField("path", e.BehaviorPath).Warn("Ignoring unreadable behavior report")
			} else {
				bf = behavior.Normalize(rep)
			}
		}

		res := static.Extract(s)
		vectors = append(vectors, features.Vectorize(res.Features, bf))
		labels = append(labels, e.Label)
	}

	logrus.WithFields(logrus.Fields{
		"entries": len(entries),
		"samples": len(vectors),
	}).Info("Vectorized training manifest")
	return vectors, labels
}

// Train fits and persists a new artifact. With an empty manifestPath the
// synthetic dataset is used.
func Train(ctx context.Context, cfg *Config, manifestPath string) (*model.TrainingResult, error) {
	var (
		vectors []features.Vector
		labels  []int
	)
	if manifestPath == "" {
		vectors, labels = model.GenerateSynthetic(cfg.SyntheticSamples, cfg.TrainingSeed)
	} else {
		entries, err := ReadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		vectors, labels = VectorizeManifest(entries, cfg.MaxFileSize)
	}

	res, err := model.NewTrainer(cfg.TrainerConfig()).Train(ctx, vectors, labels)
	if err != nil {
		return nil, err
	}

	if err := model.NewFileStore(cfg.ModelPath).Save(res.Artifact); err != nil {
		return res, fmt.Errorf("failed to save model artifact: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"model": res.Selected,
		"path":  cfg.ModelPath,
	}).Info("Model artifact saved")
	return res, nil
}
