package inference

import (
	"context"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/y0ug/malxplain/internal/features"
	"github.com/y0ug/malxplain/internal/model"
)

func trainArtifact(t *testing.T, fam model.Family) (*model.Artifact, []features.Vector) {
	t.Helper()
	vectors, labels := model.GenerateSynthetic(150, 11)
	tr := model.NewTrainer(model.TrainerConfig{Seed: 11, Trees: 8, Families: []model.Family{fam}})
	res, err := tr.Train(context.Background(), vectors, labels)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	return res.Artifact, vectors
}

type staticSource struct {
	a   *model.Artifact
	err error
}

func (s staticSource) Get(context.Context) (*model.Artifact, error) { return s.a, s.err }

func TestClassifyWithImportance(t *testing.T) {
	a, vectors := trainArtifact(t, model.RandomForest)
	v := vectors[0]

	got := Classify(a, v)
	if got.Label != LabelMalicious && got.Label != LabelBenign {
		t.Fatalf("unexpected label %q (%s)", got.Label, got.Error)
	}
	if got.Confidence < 0.5 || got.Confidence > 1 {
		t.Errorf("expected confidence in [0.5, 1], got %v", got.Confidence)
	}
	if got.Model != model.RandomForest.DisplayName() {
		t.Errorf("unexpected model name %q", got.Model)
	}
	if len(got.TopFeatures) != TopFeatureCount {
		t.Fatalf("expected %d top features, got %d", TopFeatureCount, len(got.TopFeatures))
	}
	for i, c := range got.TopFeatures {
		f, ok := features.FieldByName(c.Name)
		if !ok {
			t.Fatalf("unknown feature %q", c.Name)
		}
		if c.Value != v[f] {
			t.Errorf("%s: expected raw value %v, got %v", c.Name, v[f], c.Value)
		}
		if i > 0 && c.Importance > got.TopFeatures[i-1].Importance {
			t.Error("expected features ranked by descending importance")
		}
	}

	again := Classify(a, v)
	if again.Label != got.Label || again.Confidence != got.Confidence {
		t.Error("expected repeated inference to be identical")
	}
}

func TestClassifyWithoutCapabilities(t *testing.T) {
	a, vectors := trainArtifact(t, model.SVM)
	v := vectors[1]

	got := Classify(a, v)
	if got.Label == LabelUnknown {
		t.Fatalf("unexpected failure: %s", got.Error)
	}
	if got.Confidence != NeutralConfidence {
		t.Errorf("expected neutral confidence, got %v", got.Confidence)
	}
	want := features.Names()[:TopFeatureCount]
	for i, c := range got.TopFeatures {
		if c.Name != want[i] {
			t.Errorf("expected fallback feature %q at %d, got %q", want[i], i, c.Name)
		}
		if c.Value != v[i] {
			t.Errorf("expected value %v, got %v", v[i], c.Value)
		}
	}
}

func TestClassifyFailuresYieldUnknown(t *testing.T) {
	a, _ := trainArtifact(t, model.LogisticRegression)

	var bad features.Vector
	bad[features.Entropy] = math.NaN()
	for name, got := range map[string]Verdict{
		"nan input":   Classify(a, bad),
		"no artifact": Classify(nil, features.Vector{}),
	} {
		if got.Label != LabelUnknown || got.Confidence != 0 {
			t.Errorf("%s: expected unknown/0, got %s/%v", name, got.Label, got.Confidence)
		}
		if got.Error == "" {
			t.Errorf("%s: expected an error description", name)
		}
	}
}

func TestEngineSourceFailure(t *testing.T) {
	e := NewEngine(staticSource{err: model.ErrModelUnavailable})
	got := e.Infer(context.Background(), features.Vector{})
	if got.Label != LabelUnknown || got.Confidence != 0 {
		t.Errorf("expected unknown verdict, got %+v", got)
	}
	if got.TopFeatures == nil {
		t.Error("expected an empty, non-nil feature list")
	}
}

func TestEngineUsesSource(t *testing.T) {
	a, vectors := trainArtifact(t, model.LogisticRegression)
	e := NewEngine(staticSource{a: a})
	got := e.Infer(context.Background(), vectors[2])
	if got.Label == LabelUnknown {
		t.Fatalf("unexpected failure: %s", got.Error)
	}
	if len(got.TopFeatures) != TopFeatureCount {
		t.Errorf("expected %d features, got %d", TopFeatureCount, len(got.TopFeatures))
	}
}

func TestClassifyStableAcrossReload(t *testing.T) {
	for _, fam := range model.Priority {
		t.Run(string(fam), func(t *testing.T) {
			a, vectors := trainArtifact(t, fam)
			store := model.NewFileStore(filepath.Join(t.TempDir(), "artifact.json"))
			if err := store.Save(a); err != nil {
				t.Fatalf("Save: %v", err)
			}
			loaded, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			for i, v := range vectors {
				before := Classify(a, v)
				after := Classify(loaded, v)
				if before.Error != "" {
					t.Fatalf("vector %d: %s", i, before.Error)
				}
				if !reflect.DeepEqual(before, after) {
					t.Fatalf("vector %d: verdict changed after reload: %+v vs %+v", i, before, after)
				}
			}
		})
	}
}
