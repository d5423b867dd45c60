// Package inference classifies single feature vectors with a trained artifact.
package inference

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/y0ug/malxplain/internal/features"
	"github.com/y0ug/malxplain/internal/model"

	"github.com/sirupsen/logrus"
)

// Label is the verdict outcome.
type Label string

const (
	LabelMalicious Label = "malicious"
	LabelBenign    Label = "benign"
	LabelUnknown   Label = "unknown"
)

const (
	// NeutralConfidence is reported by models without probability output.
	NeutralConfidence = 0.5
	// TopFeatureCount is the number of contributing features reported.
	TopFeatureCount = 5
)

// ErrInference wraps every internal failure during classification.
var ErrInference = errors.New("inference failed")

// Contribution is one input that influenced the verdict, with its raw value.
type Contribution struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Importance float64 `json:"importance,omitempty"`
}

// Verdict is the classification of one vector.
type Verdict struct {
	Label       Label          `json:"prediction"`
	Confidence  float64        `json:"confidence"`
	TopFeatures []Contribution `json:"top_features"`
	Model       string         `json:"model_used,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// IsMalicious reports whether the verdict flags the sample.
func (v Verdict) IsMalicious() bool { return v.Label == LabelMalicious }

// Unknown builds the verdict returned on failure.
func Unknown(err error) Verdict {
	v := Verdict{Label: LabelUnknown, TopFeatures: []Contribution{}}
	if err != nil {
		v.Error = err.Error()
	}
	return v
}

// ArtifactSource provides the active artifact.
type ArtifactSource interface {
	Get(ctx context.Context) (*model.Artifact, error)
}

// Engine classifies vectors against the artifact provided by its source.
type Engine struct {
	source ArtifactSource
}

// NewEngine creates an Engine.
func NewEngine(source ArtifactSource) *Engine {
	return &Engine{source: source}
}

// Infer never fails: any error yields an unknown verdict with zero confidence.
func (e *Engine) Infer(ctx context.Context, v features.Vector) Verdict {
	a, err := e.source.Get(ctx)
	if err != nil {
		logrus.WithError(err).Error("No model available for inference")
		return Unknown(fmt.Errorf("%w: %v", ErrInference, err))
	}
	return Classify(a, v)
}

// Classify applies a to v. Panics from the model are recovered into an unknown verdict.
func Classify(a *model.Artifact, v features.Vector) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Recovered from panic during inference")
			verdict = Unknown(fmt.Errorf("%w: %v", ErrInference, r))
		}
	}()

	verdict, err := classify(a, v)
	if err != nil {
		logrus.WithError(err).Warn("Inference failed")
		return Unknown(err)
	}
	return verdict
}

func classify(a *model.Artifact, v features.Vector) (Verdict, error) {
	if a == nil || a.Model() == nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInference, model.ErrModelUnavailable)
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Verdict{}, fmt.Errorf("%w: feature %s is not finite", ErrInference, features.Field(i))
		}
	}

	x, err := a.Transform(v)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	clf := a.Model()
	label := LabelBenign
	if clf.Predict(x) == model.Malicious {
		label = LabelMalicious
	}

	confidence := NeutralConfidence
	if a.Capabilities.Probability {
		p := clf.Proba(x)
		if math.IsNaN(p) {
			return Verdict{}, fmt.Errorf("%w: model returned NaN probability", ErrInference)
		}
		confidence = p
		if label == LabelBenign {
			confidence = 1 - p
		}
	}

	return Verdict{
		Label:       label,
		Confidence:  confidence,
		TopFeatures: topContributions(a, v),
		Model:       a.ModelName,
	}, nil
}

// topContributions ranks inputs by model importance, falling back to the first
// schema fields when the model has none.
func topContributions(a *model.Artifact, v features.Vector) []Contribution {
	ranked := a.TopFeatures(TopFeatureCount)
	if len(ranked) == 0 {
		out := make([]Contribution, 0, TopFeatureCount)
		for f := features.Field(0); f < TopFeatureCount && f < features.NumFields; f++ {
			out = append(out, Contribution{Name: f.String(), Value: v[f]})
		}
		return out
	}

	out := make([]Contribution, 0, len(ranked))
	for _, r := range ranked {
		f, ok := features.FieldByName(r.Name)
		if !ok {
			continue
		}
		out = append(out, Contribution{Name: r.Name, Value: v[f], Importance: r.Importance})
	}
	return out
}
