package malxplain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/y0ug/malxplain/internal/inference"
	"github.com/y0ug/malxplain/internal/model"
	"github.com/y0ug/malxplain/internal/report"
	"github.com/y0ug/malxplain/internal/sample"
	"github.com/y0ug/malxplain/internal/static"
	"github.com/y0ug/malxplain/internal/testutil"
)

type mockStore struct {
	mu    sync.Mutex
	saved map[string]*report.Report
}

func (m *mockStore) SaveReport(ctx context.Context, r *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]*report.Report)
	}
	if _, ok := m.saved[r.ID]; ok {
		return errors.New("duplicate id")
	}
	m.saved[r.ID] = r
	return nil
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Send(title, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, title+": "+message)
}

type failingSource struct{}

func (failingSource) Get(context.Context) (*model.Artifact, error) {
	return nil, model.ErrModelUnavailable
}

func newTestAnalyzer(store *mockStore, notifier Notifier) *Analyzer {
	return NewAnalyzer(AnalyzerConfig{
		MaxFileSize: 1024 * 1024,
		Engine:      inference.NewEngine(failingSource{}),
		Assembler:   report.NewAssembler(store),
		Notifier:    notifier,
	}, 2)
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestAnalyzeRejectsEmptyFile(t *testing.T) {
	store := &mockStore{}
	a := newTestAnalyzer(store, nil)
	path := writeFile(t, t.TempDir(), "empty.bin", nil)

	r, err := a.Analyze(context.Background(), path, "")
	if r != nil {
		t.Errorf("expected no report, got %+v", r)
	}
	ie, ok := sample.IsInputError(err)
	if !ok || ie.Kind != sample.KindEmpty {
		t.Fatalf("expected empty input error, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Errorf("expected nothing persisted, got %d reports", len(store.saved))
	}
}

func TestAnalyzeDegradesWithoutModel(t *testing.T) {
	store := &mockStore{}
	notifier := &mockNotifier{}
	a := newTestAnalyzer(store, notifier)
	img := testutil.BuildPE(testutil.PEOptions{
		Imports: []testutil.Import{{DLL: "KERNEL32.dll", Symbols: []string{"CreateRemoteThread", "WriteProcessMemory"}}},
	})
	path := writeFile(t, t.TempDir(), "inject.exe", img)

	r, err := a.Analyze(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Verdict.Label != inference.LabelUnknown || r.Verdict.Confidence != 0 {
		t.Errorf("expected unknown verdict, got %+v", r.Verdict)
	}
	if r.RiskTier != report.TierLow {
		t.Errorf("expected LOW tier, got %s", r.RiskTier)
	}
	if r.File.Filename != "inject.exe" || r.File.SHA256 == "" {
		t.Errorf("unexpected file info %+v", r.File)
	}
	if _, ok := store.saved[r.ID]; !ok {
		t.Errorf("report %s was not persisted", r.ID)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("expected no notification, got %v", notifier.messages)
	}
}

func TestAnalyzeWithBehaviorReport(t *testing.T) {
	dir := t.TempDir()
	a := newTestAnalyzer(&mockStore{}, nil)
	path := writeFile(t, dir, "dropper.bin", []byte("plain text payload with nothing special"))
	behaviorPath := writeFile(t, dir, "dropper.yaml", []byte(`
registry:
  keys_created:
    - HKCU\Software\Microsoft\Windows\CurrentVersion\Run\updater
process:
  processes_created:
    - name: cmd.exe
`))

	r, err := a.Analyze(context.Background(), path, behaviorPath)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !r.Behavior.Present || len(r.Behavior.PersistenceKeys) != 1 {
		t.Fatalf("expected persistence from behavior report, got %+v", r.Behavior)
	}
	if r.RiskTier != report.TierMedium {
		t.Errorf("expected MEDIUM tier, got %s", r.RiskTier)
	}
	found := false
	for _, ind := range r.Indicators {
		if strings.Contains(ind, "Persistence") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected persistence indicator, got %v", r.Indicators)
	}
}

func TestAnalyzeIgnoresMissingBehaviorReport(t *testing.T) {
	dir := t.TempDir()
	a := newTestAnalyzer(&mockStore{}, nil)
	path := writeFile(t, dir, "sample.bin", []byte("some bytes to analyze"))

	r, err := a.Analyze(context.Background(), path, filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Behavior.Present {
		t.Errorf("expected absent behavior features, got %+v", r.Behavior)
	}
}

func TestAlertMessage(t *testing.T) {
	r := &report.Report{
		ID:         "abc",
		File:       static.FileInfo{Filename: "evil.exe", SHA256: "deadbeef"},
		Verdict:    inference.Verdict{Label: inference.LabelMalicious, Confidence: 0.93, Model: "Random Forest"},
		RiskTier:   report.TierHigh,
		Indicators: []string{"File appears to be packed"},
	}
	msg := alertMessage(r)
	for _, want := range []string{"evil.exe", "malicious", "0.93", "Random Forest", "deadbeef", "abc", "- File appears to be packed"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
