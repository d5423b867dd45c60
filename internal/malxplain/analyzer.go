package malxplain

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/y0ug/malxplain/internal/behavior"
	"github.com/y0ug/malxplain/internal/features"
	"github.com/y0ug/malxplain/internal/inference"
	"github.com/y0ug/malxplain/internal/report"
	"github.com/y0ug/malxplain/internal/sample"
	"github.com/y0ug/malxplain/internal/static"
)

// Notifier delivers alerts for high-risk reports.
type Notifier interface {
	Send(title, message string)
}

// AnalyzerConfig holds the collaborators of the analysis pipeline.
type AnalyzerConfig struct {
	MaxFileSize int64
	Engine      *inference.Engine
	Assembler   *report.Assembler
	Notifier    Notifier
}

// Analyzer runs the analysis pipeline for single files and directories.
type Analyzer struct {
	Config AnalyzerConfig
	sem    *semaphore.Weighted
}

// NewAnalyzer initializes a new Analyzer. maxConcurrency bounds ScanDir.
func NewAnalyzer(config AnalyzerConfig, maxConcurrency int64) *Analyzer {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Analyzer{
		Config: config,
		sem:    semaphore.NewWeighted(maxConcurrency),
	}
}

// Analyze runs the full pipeline on the file at path. behaviorPath is optional.
// Only ingestion failures (*sample.InputError) are returned as errors; every
// later stage degrades into the report instead.
func (a *Analyzer) Analyze(ctx context.Context, path, behaviorPath string) (*report.Report, error) {
	s, err := sample.Ingest(path, a.Config.MaxFileSize)
	if err != nil {
		return nil, err
	}

	var rep *behavior.Report
	if behaviorPath != "" {
		rep, err = behavior.LoadReport(behaviorPath)
		if err != nil {
			logrus.WithError(err).WithField("path", behaviorPath).Warn("Ignoring unreadable behavior report")
		}
	}
	return a.AnalyzeSample(ctx, s, rep), nil
}

// AnalyzeSample runs every stage after ingestion. rep may be nil.
func (a *Analyzer) AnalyzeSample(ctx context.Context, s *sample.Sample, rep *behavior.Report) *report.Report {
	logger := logrus.WithFields(logrus.Fields{
		"sha256":   s.SHA256,
		"filename": s.Filename,
	})

	res := static.Extract(s)
	if res.Degraded() {
		logger.WithField("reason", res.Reason).Warn("Static analysis degraded")
	}

	bf := behavior.Absent()
	if rep != nil {
		bf = behavior.Normalize(rep)
	}

	vec := features.Vectorize(res.Features, bf)
	verdict := a.Config.Engine.Infer(ctx, vec)

	r := a.Config.Assembler.Assemble(ctx, report.Input{
		Sample:   s,
		Static:   res,
		Behavior: bf,
		Vector:   vec,
		Verdict:  verdict,
	})

	logger.WithFields(logrus.Fields{
		"analysis_id": r.ID,
		"prediction":  verdict.Label,
		"confidence":  verdict.Confidence,
		"risk_level":  r.RiskTier,
	}).Info("Analysis complete")

	if r.RiskTier == report.TierHigh && a.Config.Notifier != nil {
		a.Config.Notifier.Send("High-risk binary detected", alertMessage(r))
	}
	return r
}

func alertMessage(r *report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File **%s** was classified as **%s** (confidence %.2f, model %s).\n",
		r.File.Filename, r.Verdict.Label, r.Verdict.Confidence, r.Verdict.Model)
	fmt.Fprintf(&b, "SHA256: %s\nAnalysis ID: %s", r.File.SHA256, r.ID)
	for _, ind := range r.Indicators {
		fmt.Fprintf(&b, "\n- %s", ind)
	}
	return b.String()
}
