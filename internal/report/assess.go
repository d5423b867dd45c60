package report

import (
	"fmt"

	"github.com/y0ug/malxplain/internal/behavior"
	"github.com/y0ug/malxplain/internal/inference"
	"github.com/y0ug/malxplain/internal/static"
)

// HighBehaviorScore is the behavior score above which an indicator is raised.
const HighBehaviorScore = 50

// DeriveRiskTier maps a verdict to a tier. Unknown verdicts are LOW rather than
// SAFE. Detected persistence lifts the tier to at least MEDIUM.
func DeriveRiskTier(v inference.Verdict, persistence bool) RiskTier {
	var tier RiskTier
	switch v.Label {
	case inference.LabelMalicious:
		switch {
		case v.Confidence > 0.8:
			tier = TierHigh
		case v.Confidence > 0.6:
			tier = TierMedium
		default:
			tier = TierLow
		}
	case inference.LabelBenign:
		tier = TierSafe
	default:
		tier = TierLow
	}

	if persistence && tier.severity() < TierMedium.severity() {
		tier = TierMedium
	}
	return tier
}

// Indicators lists human-readable findings in detection order.
func Indicators(fs *static.FeatureSet, bf behavior.Features) []string {
	out := []string{}
	if fs != nil {
		if fs.Packed {
			out = append(out, "File appears to be packed")
		}
		if fs.HighEntropy {
			out = append(out, "High entropy detected (possible encryption)")
		}
		if n := len(fs.SuspiciousImports); n > 0 {
			out = append(out, fmt.Sprintf("Suspicious API imports: %d", n))
		}
		if n := len(fs.Strings.Suspicious); n > 0 {
			out = append(out, fmt.Sprintf("Suspicious strings found: %d", n))
		}
	}
	if bf.BehaviorScore > HighBehaviorScore {
		out = append(out, fmt.Sprintf("High behavior score: %d", bf.BehaviorScore))
	}
	if bf.PersistenceDetected() {
		out = append(out, fmt.Sprintf("Persistence mechanism detected: %d autorun registry key(s) created", len(bf.PersistenceKeys)))
	}
	return out
}

var recommendations = map[RiskTier][]string{
	TierHigh: {
		"Do not execute this file",
		"Quarantine immediately",
		"Run additional scans with updated antivirus",
	},
	TierMedium: {
		"Exercise extreme caution",
		"Scan with multiple antivirus engines",
		"Consider sandbox analysis",
	},
	TierLow: {
		"Monitor file behavior if executed",
		"Verify file source and authenticity",
	},
	TierSafe: {
		"File appears safe, but remain vigilant",
	},
}

// Recommendations returns the advice for a tier.
func Recommendations(t RiskTier) []string {
	src := recommendations[t]
	out := make([]string, len(src))
	copy(out, src)
	return out
}
