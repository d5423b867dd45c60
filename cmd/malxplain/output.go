package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/y0ug/malxplain/internal/database/models"
	"github.com/y0ug/malxplain/internal/malxplain"
	"github.com/y0ug/malxplain/internal/model"
	"github.com/y0ug/malxplain/internal/report"
)

var (
	bold = color.New(color.Bold)
	dim  = color.New(color.Faint)

	tierColors = map[report.RiskTier]*color.Color{
		report.TierHigh:   color.New(color.FgRed, color.Bold),
		report.TierMedium: color.New(color.FgYellow, color.Bold),
		report.TierLow:    color.New(color.FgCyan),
		report.TierSafe:   color.New(color.FgGreen),
	}
)

func tierString(t report.RiskTier) string {
	if c, ok := tierColors[t]; ok {
		return c.Sprint(t)
	}
	return string(t)
}

func printTraining(w io.Writer, res *model.TrainingResult) {
	bold.Fprintf(w, "Training set: %d samples, test set: %d samples\n\n", res.TrainSize, res.TestSize)
	for _, c := range res.Candidates {
		header := fmt.Sprintf("== %s ==", c.Name)
		if c.Family == res.Selected {
			header += " (selected)"
			color.New(color.FgGreen, color.Bold).Fprintln(w, header)
		} else {
			bold.Fprintln(w, header)
		}
		if c.Err != nil {
			color.New(color.FgRed).Fprintf(w, "failed: %v\n\n", c.Err)
			continue
		}
		fmt.Fprint(w, c.Metrics.Report())
		fmt.Fprintf(w, "cv accuracy: %.4f (+/- %.4f)\n", c.CV.Mean, 2*c.CV.Std)
		dim.Fprintf(w, "trained in %s\n\n", c.Duration.Round(time.Millisecond))
	}

	a := res.Artifact
	if a.Capabilities.Importance {
		bold.Fprintln(w, "Top feature importances:")
		for i, fi := range a.TopFeatures(10) {
			fmt.Fprintf(w, "%2d. %-32s %.4f\n", i+1, fi.Name, fi.Importance)
		}
	}
}

func printReport(w io.Writer, r *report.Report) {
	bold.Fprintf(w, "%s\n", r.File.Filename)
	dim.Fprintf(w, "sha256 %s  id %s\n", r.File.SHA256, r.ID)

	fmt.Fprintf(w, "verdict:    %s (confidence %.2f", r.Verdict.Label, r.Verdict.Confidence)
	if r.Verdict.Model != "" {
		fmt.Fprintf(w, ", %s", r.Verdict.Model)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintf(w, "risk level: %s\n", tierString(r.RiskTier))
	fmt.Fprintf(w, "static:     %s", r.Static.Status)
	if r.Static.Reason != "" {
		fmt.Fprintf(w, " (%s)", r.Static.Reason)
	}
	fmt.Fprintln(w)
	if r.Behavior.Present {
		fmt.Fprintf(w, "behavior:   score %d (%s)\n", r.Behavior.BehaviorScore, r.Behavior.RiskLevel)
	}

	if len(r.Verdict.TopFeatures) > 0 {
		bold.Fprintln(w, "\nTop features:")
		for _, c := range r.Verdict.TopFeatures {
			fmt.Fprintf(w, "  %-32s %12.4g  %.4f\n", c.Name, c.Value, c.Importance)
		}
	}
	if len(r.Indicators) > 0 {
		bold.Fprintln(w, "\nKey indicators:")
		for _, ind := range r.Indicators {
			fmt.Fprintf(w, "  - %s\n", ind)
		}
	}
	bold.Fprintln(w, "\nRecommendations:")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(w, "  - %s\n", rec)
	}
}

func printScan(w io.Writer, results []malxplain.ScanResult) {
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			color.New(color.FgRed).Fprintf(w, "%-8s %s: %v\n", "ERROR", res.Path, res.Err)
			continue
		}
		r := res.Report
		fmt.Fprintf(w, "%-8s %s  %s %.2f\n", tierString(r.RiskTier), res.Path, r.Verdict.Label, r.Verdict.Confidence)
	}

	counts := malxplain.CountTiers(results)
	bold.Fprintf(w, "\n%d files, %d failed", len(results), failed)
	for _, t := range report.Tiers {
		fmt.Fprintf(w, ", %s %d", tierString(t), counts[t])
	}
	fmt.Fprintln(w)
}

func printStats(w io.Writer, s models.StatsResponse) {
	bold.Fprintf(w, "Total reports: %d\n", s.TotalReports)
	if !s.LastAnalysisAt.IsZero() {
		fmt.Fprintf(w, "Last analysis: %s\n", s.LastAnalysisAt.Format(time.RFC3339))
	}
	for _, t := range report.Tiers {
		fmt.Fprintf(w, "  %-16s %d\n", tierString(t), s.RiskTiers[t])
	}
	if s.Model != nil {
		fmt.Fprintf(w, "Model: %s (%s), trained %s\n", s.Model.Name, s.Model.Type, s.Model.CreatedAt.Format(time.RFC3339))
	}
}
