package report

import (
	"context"
	"time"

	"github.com/y0ug/malxplain/internal/behavior"
	"github.com/y0ug/malxplain/internal/features"
	"github.com/y0ug/malxplain/internal/inference"
	"github.com/y0ug/malxplain/internal/sample"
	"github.com/y0ug/malxplain/internal/static"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store persists reports. SaveReport must refuse to overwrite an existing id.
type Store interface {
	SaveReport(ctx context.Context, r *Report) error
}

// Input carries everything one analysis produced.
type Input struct {
	Sample   *sample.Sample
	Static   static.Result
	Behavior behavior.Features
	Vector   features.Vector
	Verdict  inference.Verdict
}

// Assembler builds reports and persists each one exactly once.
type Assembler struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewAssembler creates an Assembler. A nil store disables persistence.
func NewAssembler(store Store) *Assembler {
	return &Assembler{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// Assemble derives the assessment for in, persists it under a fresh id and
// returns it. A persistence failure is logged and does not affect the result.
func (a *Assembler) Assemble(ctx context.Context, in Input) *Report {
	r := &Report{
		ID:        a.newID(),
		Timestamp: a.now(),
		Static: StaticSummary{
			Status:   in.Static.Status,
			Reason:   in.Static.Reason,
			Features: in.Static.Features,
		},
		Behavior: in.Behavior,
		Features: in.Vector,
		Verdict:  in.Verdict,
	}
	if in.Sample != nil {
		r.File = static.FileInfo{
			Filename: in.Sample.Filename,
			Size:     in.Sample.Size,
			MD5:      in.Sample.MD5,
			SHA1:     in.Sample.SHA1,
			SHA256:   in.Sample.SHA256,
		}
	} else if in.Static.Features != nil {
		r.File = in.Static.Features.File
	}

	r.RiskTier = DeriveRiskTier(in.Verdict, in.Behavior.PersistenceDetected())
	r.Indicators = Indicators(in.Static.Features, in.Behavior)
	r.Recommendations = Recommendations(r.RiskTier)

	if a.store != nil {
		if err := a.store.SaveReport(ctx, r); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"analysis_id": r.ID,
				"sha256":      r.File.SHA256,
			}).Error("Failed to persist analysis report")
		}
	}
	return r
}
