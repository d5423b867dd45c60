package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/y0ug/malxplain/internal/features"
)

// ArtifactVersion is bumped whenever the persisted layout changes.
const ArtifactVersion = 1

// ErrModelUnavailable means no usable artifact could be loaded.
var ErrModelUnavailable = errors.New("model unavailable")

// Artifact bundles a fitted classifier with the transforms it was trained behind.
// It is immutable once built and may be shared by concurrent readers.
type Artifact struct {
	Version      int                `json:"version"`
	ModelType    Family             `json:"model_type"`
	ModelName    string             `json:"model_name"`
	CreatedAt    time.Time          `json:"created_at"`
	Capabilities Capabilities       `json:"capabilities"`
	FeatureNames []string           `json:"feature_names"`
	Scaler       *features.Scaler   `json:"scaler"`
	Selector     *features.Selector `json:"selector"`
	Params       json.RawMessage    `json:"params"`

	model Classifier
}

// Model returns the fitted classifier.
func (a *Artifact) Model() Classifier { return a.model }

// Transform applies the persisted scaler and selection mask to v.
func (a *Artifact) Transform(v features.Vector) ([]float64, error) {
	scaled, err := a.Scaler.Transform(v.Slice())
	if err != nil {
		return nil, err
	}
	return a.Selector.Transform(scaled)
}

// SelectedFeatures returns the schema names surviving the selection mask, in
// the column order the model sees.
func (a *Artifact) SelectedFeatures() []string {
	var names []string
	for j, keep := range a.Selector.Mask {
		if keep {
			names = append(names, a.FeatureNames[j])
		}
	}
	return names
}

// FeatureImportance is one ranked model input.
type FeatureImportance struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// TopFeatures ranks the selected inputs by model importance. It returns nil when
// the model does not expose importances.
func (a *Artifact) TopFeatures(n int) []FeatureImportance {
	if !a.Capabilities.Importance || a.model == nil {
		return nil
	}
	imp := a.model.Importance()
	names := a.SelectedFeatures()
	if len(imp) != len(names) {
		return nil
	}
	out := make([]FeatureImportance, len(names))
	for i := range names {
		out[i] = FeatureImportance{Name: names[i], Importance: imp[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// validate checks the artifact against the current feature schema and decodes
// its model parameters.
func (a *Artifact) validate() error {
	if a.Version != ArtifactVersion {
		return fmt.Errorf("artifact version %d, expected %d", a.Version, ArtifactVersion)
	}
	names := features.Names()
	if len(a.FeatureNames) != len(names) {
		return fmt.Errorf("artifact has %d features, schema has %d", len(a.FeatureNames), len(names))
	}
	for i, n := range names {
		if a.FeatureNames[i] != n {
			return fmt.Errorf("artifact feature %d is %q, schema has %q", i, a.FeatureNames[i], n)
		}
	}
	if a.Scaler == nil || len(a.Scaler.Mean) != len(names) || len(a.Scaler.Variance) != len(names) {
		return errors.New("artifact scaler does not match the feature schema")
	}
	if a.Selector == nil || len(a.Selector.Mask) != len(names) {
		return errors.New("artifact selection mask does not match the feature schema")
	}
	if got := len(a.Selector.Indices()); got == 0 || got != a.Selector.K {
		return fmt.Errorf("artifact selection mask keeps %d columns, expected %d", got, a.Selector.K)
	}
	c, err := decodeParams(a.ModelType, a.Params)
	if err != nil {
		return err
	}
	if imp := c.Importance(); a.Capabilities.Importance && len(imp) != a.Selector.K {
		return errors.New("artifact importances do not match the selection mask")
	}
	a.model = c
	return nil
}

// FileStore persists one artifact as a JSON document.
type FileStore struct {
	Path string
}

// NewFileStore returns a store rooted at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads and validates the artifact. Every failure wraps ErrModelUnavailable.
func (s *FileStore) Load() (*Artifact, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: invalid artifact: %v", ErrModelUnavailable, err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return &a, nil
}

// Save writes the artifact atomically: readers see either the old or the new file.
func (s *FileStore) Save(a *Artifact) error {
	if a == nil || a.model == nil {
		return errors.New("refusing to save an artifact without a fitted model")
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to install artifact: %w", err)
	}
	return nil
}
