package malxplain

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/y0ug/malxplain/internal/features"
	"github.com/y0ug/malxplain/internal/model"
)

// Config holds the pipeline configuration.
type Config struct {
	ModelPath        string
	MaxFileSize      int64
	SelectK          int
	TrainingSeed     int64
	SyntheticSamples int
	ForestTrees      int
	ScanConcurrency  int64
}

// LoadConfig loads pipeline configuration from environment variables.
func LoadConfig() (*Config, error) {
	modelPath := os.Getenv("MODEL_PATH")
	if modelPath == "" {
		modelPath = "models/malxplain_model.json"
		logrus.Infof("MODEL_PATH not set. Defaulting to %s.", modelPath)
	}

	maxFileSizeMB, err := strconv.Atoi(os.Getenv("MAX_FILE_SIZE_MB"))
	if err != nil || maxFileSizeMB <= 0 {
		maxFileSizeMB = 100
		logrus.Infof("Invalid or missing MAX_FILE_SIZE_MB. Defaulting to %d MB.", maxFileSizeMB)
	}

	selectK, err := strconv.Atoi(os.Getenv("SELECT_K"))
	if err != nil || selectK <= 0 {
		selectK = features.DefaultK
		logrus.Infof("Invalid or missing SELECT_K. Defaulting to %d.", selectK)
	}

	seed, err := strconv.ParseInt(os.Getenv("TRAINING_SEED"), 10, 64)
	if err != nil {
		seed = 42
		logrus.Infof("Invalid or missing TRAINING_SEED. Defaulting to %d.", seed)
	}

	synthetic, err := strconv.Atoi(os.Getenv("SYNTHETIC_SAMPLES"))
	if err != nil || synthetic <= 0 {
		synthetic = model.DefaultSyntheticSamples
		logrus.Infof("Invalid or missing SYNTHETIC_SAMPLES. Defaulting to %d.", synthetic)
	}

	trees, err := strconv.Atoi(os.Getenv("FOREST_TREES"))
	if err != nil || trees <= 0 {
		trees = 100
		logrus.Infof("Invalid or missing FOREST_TREES. Defaulting to %d.", trees)
	}

	concurrency, err := strconv.ParseInt(os.Getenv("SCAN_CONCURRENCY"), 10, 64)
	if err != nil || concurrency <= 0 {
		concurrency = 4
		logrus.Infof("Invalid or missing SCAN_CONCURRENCY. Defaulting to %d.", concurrency)
	}

	return &Config{
		ModelPath:        modelPath,
		MaxFileSize:      int64(maxFileSizeMB) * 1024 * 1024,
		SelectK:          selectK,
		TrainingSeed:     seed,
		SyntheticSamples: synthetic,
		ForestTrees:      trees,
		ScanConcurrency:  concurrency,
	}, nil
}

// TrainerConfig derives the trainer settings.
func (c *Config) TrainerConfig() model.TrainerConfig {
	tc := model.DefaultTrainerConfig()
	tc.Seed = c.TrainingSeed
	tc.Trees = c.ForestTrees
	tc.SelectK = c.SelectK
	return tc
}

// NewRegistry builds the artifact registry backed by ModelPath.
func (c *Config) NewRegistry() *model.Registry {
	return model.NewRegistry(model.RegistryConfig{
		Store:            model.NewFileStore(c.ModelPath),
		Trainer:          model.NewTrainer(c.TrainerConfig()),
		SyntheticSamples: c.SyntheticSamples,
	})
}
