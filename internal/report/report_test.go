package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/y0ug/malxplain/internal/behavior"
	"github.com/y0ug/malxplain/internal/features"
	"github.com/y0ug/malxplain/internal/inference"
	"github.com/y0ug/malxplain/internal/static"
	"github.com/y0ug/malxplain/internal/testutil"
)

type mockStore struct {
	saved []*Report
	err   error
}

func (m *mockStore) SaveReport(ctx context.Context, r *Report) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r)
	return nil
}

func TestDeriveRiskTier(t *testing.T) {
	tests := []struct {
		label       inference.Label
		confidence  float64
		persistence bool
		want        RiskTier
	}{
		{inference.LabelMalicious, 0.95, false, TierHigh},
		{inference.LabelMalicious, 0.8, false, TierMedium},
		{inference.LabelMalicious, 0.7, false, TierMedium},
		{inference.LabelMalicious, 0.6, false, TierLow},
		{inference.LabelMalicious, 0.55, true, TierMedium},
		{inference.LabelMalicious, 0.9, true, TierHigh},
		{inference.LabelBenign, 0.99, false, TierSafe},
		{inference.LabelBenign, 0.99, true, TierMedium},
		{inference.LabelUnknown, 0, false, TierLow},
	}
	for _, tt := range tests {
		got := DeriveRiskTier(inference.Verdict{Label: tt.label, Confidence: tt.confidence}, tt.persistence)
		if got != tt.want {
			t.Errorf("%s/%.2f/persistence=%v: expected %s, got %s", tt.label, tt.confidence, tt.persistence, tt.want, got)
		}
	}
}

func TestAssembleSuspiciousImports(t *testing.T) {
	img := testutil.BuildPE(testutil.PEOptions{
		Imports: []testutil.Import{{DLL: "KERNEL32.dll", Symbols: []string{"CreateRemoteThread", "WriteProcessMemory"}}},
	})
	res := static.ExtractBytes("inject.exe", img)
	if res.Status != static.StatusFull {
		t.Fatalf("expected full parse, got %s: %s", res.Status, res.Reason)
	}

	store := &mockStore{}
	a := NewAssembler(store)
	bf := behavior.Absent()
	r := a.Assemble(context.Background(), Input{
		Static:   res,
		Behavior: bf,
		Vector:   features.Vectorize(res.Features, bf),
		Verdict:  inference.Verdict{Label: inference.LabelMalicious, Confidence: 0.9},
	})

	if r.Features[features.SuspiciousImportCount] < 2 {
		t.Errorf("expected suspicious_import_count >= 2, got %v", r.Features[features.SuspiciousImportCount])
	}
	found := false
	for _, ind := range r.Indicators {
		if strings.HasPrefix(ind, "Suspicious API imports") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a suspicious API imports indicator, got %v", r.Indicators)
	}
	if r.RiskTier != TierHigh || len(r.Recommendations) != 3 {
		t.Errorf("unexpected assessment %s %v", r.RiskTier, r.Recommendations)
	}
	if r.File.Filename != "inject.exe" || r.File.SHA256 == "" {
		t.Errorf("expected file identity from the static features, got %+v", r.File)
	}
	if len(store.saved) != 1 || store.saved[0] != r {
		t.Error("expected the report to be persisted exactly once")
	}
}

func TestAssembleBenignImportsNoIndicator(t *testing.T) {
	img := testutil.BuildPE(testutil.PEOptions{
		Imports: []testutil.Import{{
			DLL:     "KERNEL32.dll",
			Symbols: []string{"ExitProcess", "GetCurrentProcessId", "HeapAlloc", "RtlMoveMemory"},
		}},
	})
	res := static.ExtractBytes("hello.exe", img)
	if res.Status != static.StatusFull {
		t.Fatalf("expected full parse, got %s: %s", res.Status, res.Reason)
	}

	bf := behavior.Absent()
	r := NewAssembler(nil).Assemble(context.Background(), Input{
		Static:   res,
		Behavior: bf,
		Vector:   features.Vectorize(res.Features, bf),
		Verdict:  inference.Verdict{Label: inference.LabelBenign, Confidence: 0.9},
	})
	for _, ind := range r.Indicators {
		if strings.HasPrefix(ind, "Suspicious API imports") {
			t.Errorf("unexpected indicator %q for ordinary imports", ind)
		}
	}
}

func TestAssemblePersistenceRaisesTier(t *testing.T) {
	rep := &behavior.Report{}
	rep.Registry.KeysCreated = []string{`HKCU\Software\Microsoft\Windows\CurrentVersion\Run\evil`}
	bf := behavior.Normalize(rep)

	a := NewAssembler(nil)
	r := a.Assemble(context.Background(), Input{
		Static:   static.ExtractBytes("zeros.bin", make([]byte, 64)),
		Behavior: bf,
		Verdict:  inference.Verdict{Label: inference.LabelMalicious, Confidence: 0.55},
	})

	if r.RiskTier != TierMedium {
		t.Errorf("expected MEDIUM, got %s", r.RiskTier)
	}
	last := r.Indicators[len(r.Indicators)-1]
	if !strings.Contains(strings.ToLower(last), "persistence") {
		t.Errorf("expected a persistence indicator, got %v", r.Indicators)
	}
}

func TestAssembleZeroBuffer(t *testing.T) {
	res := static.ExtractBytes("zeros.bin", make([]byte, 64))
	r := NewAssembler(nil).Assemble(context.Background(), Input{
		Static:   res,
		Behavior: behavior.Absent(),
		Verdict:  inference.Verdict{Label: inference.LabelBenign, Confidence: 0.7},
	})
	if len(r.Indicators) != 0 {
		t.Errorf("expected no indicators, got %v", r.Indicators)
	}
	if r.Static.Status != static.StatusDegraded || r.Static.Reason == "" {
		t.Errorf("expected degraded static summary with reason, got %+v", r.Static)
	}
	if r.RiskTier != TierSafe {
		t.Errorf("expected SAFE, got %s", r.RiskTier)
	}
}

func TestAssembleUniqueIDsAndStoreFailure(t *testing.T) {
	a := NewAssembler(&mockStore{err: errors.New("disk full")})
	first := a.Assemble(context.Background(), Input{Verdict: inference.Unknown(nil)})
	second := a.Assemble(context.Background(), Input{Verdict: inference.Unknown(nil)})
	if first.ID == "" || first.ID == second.ID {
		t.Errorf("expected distinct ids, got %q and %q", first.ID, second.ID)
	}
	if first.RiskTier != TierLow {
		t.Errorf("expected unknown verdict to map to LOW, got %s", first.RiskTier)
	}
}

func TestSummary(t *testing.T) {
	r := &Report{
		ID:         "abc",
		Indicators: []string{"a", "b", "c", "d"},
		Verdict:    inference.Verdict{Label: inference.LabelMalicious, Confidence: 0.9},
		RiskTier:   TierHigh,
	}
	s := r.Summary()
	if len(s.KeyIndicators) != SummaryIndicators || s.Result != inference.LabelMalicious {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestParseRiskTier(t *testing.T) {
	if _, err := ParseRiskTier("HIGH"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseRiskTier("bogus"); err == nil {
		t.Error("expected error for unknown tier")
	}
}
