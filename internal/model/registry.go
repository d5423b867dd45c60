package model

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Store loads and saves artifacts.
type Store interface {
	Load() (*Artifact, error)
	Save(*Artifact) error
}

// RegistryConfig configures the bootstrap fallback.
type RegistryConfig struct {
	Store            Store
	Trainer          *Trainer
	SyntheticSamples int
}

// Registry owns the active artifact. The first Get loads it from the store; when
// that fails a synthetic dataset is trained once, even under concurrent callers.
type Registry struct {
	Config RegistryConfig

	mu         sync.Mutex
	current    atomic.Pointer[Artifact]
	bootstraps atomic.Int32
}

// NewRegistry creates a registry. A nil trainer uses the default configuration.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Trainer == nil {
		cfg.Trainer = NewTrainer(DefaultTrainerConfig())
	}
	if cfg.SyntheticSamples <= 0 {
		cfg.SyntheticSamples = DefaultSyntheticSamples
	}
	return &Registry{Config: cfg}
}

// Current returns the active artifact without loading, or nil.
func (r *Registry) Current() *Artifact { return r.current.Load() }

// Bootstraps reports how many synthetic training runs this registry performed.
func (r *Registry) Bootstraps() int { return int(r.bootstraps.Load()) }

// Set installs a freshly trained artifact.
func (r *Registry) Set(a *Artifact) { r.current.Store(a) }

// Get returns the active artifact, loading or bootstrapping it on first use.
func (r *Registry) Get(ctx context.Context) (*Artifact, error) {
	if a := r.current.Load(); a != nil {
		return a, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.current.Load(); a != nil {
		return a, nil
	}

	a, err := r.Config.Store.Load()
	if err == nil {
		logrus.WithFields(logrus.Fields{
			"model":      a.ModelType,
			"created_at": a.CreatedAt,
		}).Info("Loaded model artifact")
		r.current.Store(a)
		return a, nil
	}
	logrus.WithError(err).Warn("Model artifact unavailable, training on synthetic data")

	a, err = r.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: bootstrap failed: %v", ErrModelUnavailable, err)
	}
	r.current.Store(a)
	return a, nil
}

func (r *Registry) bootstrap(ctx context.Context) (*Artifact, error) {
	r.bootstraps.Add(1)
	vectors, labels := GenerateSynthetic(r.Config.SyntheticSamples, r.Config.Trainer.Config.Seed)
	res, err := r.Config.Trainer.Train(ctx, vectors, labels)
	if err != nil {
		return nil, err
	}
	if err := r.Config.Store.Save(res.Artifact); err != nil {
		logrus.WithError(err).Error("Failed to persist bootstrapped model artifact")
	}
	return res.Artifact, nil
}
