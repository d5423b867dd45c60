// Package report assembles and describes immutable analysis reports.
package report

import (
	"fmt"
	"time"

	"github.com/y0ug/malxplain/internal/behavior"
	"github.com/y0ug/malxplain/internal/features"
	"github.com/y0ug/malxplain/internal/inference"
	"github.com/y0ug/malxplain/internal/static"
)

// RiskTier is the coarse severity of an analysis.
type RiskTier string

const (
	TierSafe   RiskTier = "SAFE"
	TierLow    RiskTier = "LOW"
	TierMedium RiskTier = "MEDIUM"
	TierHigh   RiskTier = "HIGH"
)

// Tiers lists every tier from least to most severe.
var Tiers = []RiskTier{TierSafe, TierLow, TierMedium, TierHigh}

func (t RiskTier) severity() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// ParseRiskTier validates a tier name.
func ParseRiskTier(s string) (RiskTier, error) {
	t := RiskTier(s)
	if t.severity() < 0 {
		return "", fmt.Errorf("unknown risk tier %q", s)
	}
	return t, nil
}

// StaticSummary records how much of the static analysis succeeded.
type StaticSummary struct {
	Status   static.Status      `json:"status"`
	Reason   string             `json:"reason,omitempty"`
	Features *static.FeatureSet `json:"features,omitempty"`
}

// Report is the complete, write-once outcome of one analysis.
type Report struct {
	ID        string          `json:"analysis_id"`
	Timestamp time.Time       `json:"timestamp"`
	File      static.FileInfo `json:"file_info"`

	Static   StaticSummary     `json:"static_analysis"`
	Behavior behavior.Features `json:"dynamic_analysis"`
	Features features.Vector   `json:"features"`
	Verdict  inference.Verdict `json:"verdict"`

	RiskTier        RiskTier `json:"risk_level"`
	Indicators      []string `json:"key_indicators"`
	Recommendations []string `json:"recommendations"`
}

// Summary is the compact listing view of a report.
type Summary struct {
	ID            string          `json:"analysis_id"`
	Filename      string          `json:"filename"`
	SHA256        string          `json:"sha256"`
	Result        inference.Label `json:"result"`
	Confidence    float64         `json:"confidence"`
	RiskTier      RiskTier        `json:"risk_level"`
	KeyIndicators []string        `json:"key_indicators"`
	Timestamp     time.Time       `json:"timestamp"`
}

// SummaryIndicators is how many indicators a summary carries.
const SummaryIndicators = 3

// Summary condenses r for listings.
func (r *Report) Summary() Summary {
	ind := r.Indicators
	if len(ind) > SummaryIndicators {
		ind = ind[:SummaryIndicators]
	}
	out := make([]string, len(ind))
	copy(out, ind)
	return Summary{
		ID:            r.ID,
		Filename:      r.File.Filename,
		SHA256:        r.File.SHA256,
		Result:        r.Verdict.Label,
		Confidence:    r.Verdict.Confidence,
		RiskTier:      r.RiskTier,
		KeyIndicators: out,
		Timestamp:     r.Timestamp,
	}
}
