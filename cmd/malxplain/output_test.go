package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/y0ug/malxplain/internal/inference"
	"github.com/y0ug/malxplain/internal/malxplain"
	"github.com/y0ug/malxplain/internal/report"
	"github.com/y0ug/malxplain/internal/static"
)

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	r := &report.Report{
		ID:   "id-1",
		File: static.FileInfo{Filename: "evil.exe", SHA256: "abc"},
		Verdict: inference.Verdict{
			Label:       inference.LabelMalicious,
			Confidence:  0.91,
			Model:       "Random Forest",
			TopFeatures: []inference.Contribution{{Name: "entropy", Value: 7.6, Importance: 0.3}},
		},
		RiskTier:        report.TierHigh,
		Indicators:      []string{"High entropy detected (possible encryption/packing)"},
		Recommendations: []string{"Do not execute this file"},
	}

	var buf bytes.Buffer
	printReport(&buf, r)
	out := buf.String()
	for _, want := range []string{"evil.exe", "malicious (confidence 0.91, Random Forest)", "HIGH", "entropy", "High entropy", "Do not execute"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintScan(t *testing.T) {
	color.NoColor = true
	results := []malxplain.ScanResult{
		{Path: "a.bin", Report: &report.Report{RiskTier: report.TierSafe, Verdict: inference.Verdict{Label: inference.LabelBenign, Confidence: 0.8}}},
		{Path: "b.bin", Err: errors.New("file is empty")},
	}

	var buf bytes.Buffer
	printScan(&buf, results)
	out := buf.String()
	if !strings.Contains(out, "2 files, 1 failed") || !strings.Contains(out, "SAFE 1") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "b.bin: file is empty") {
		t.Errorf("missing error line:\n%s", out)
	}
}
