package static

import (
	"fmt"
	"strings"

	"github.com/y0ug/malxplain/internal/sample"
)

// OversizedThreshold flags unusually large binaries in the feature set.
const OversizedThreshold = 10 * 1024 * 1024

// Status describes how much of the static analysis succeeded.
type Status int

const (
	// StatusFull means the container was recognized and fully parsed.
	StatusFull Status = iota
	// StatusDegraded means only container-independent features are available.
	StatusDegraded
	// StatusRejected means the input itself was unusable.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusFull:
		return "full"
	case StatusDegraded:
		return "basic"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "full":
		*s = StatusFull
	case "basic":
		*s = StatusDegraded
	case "rejected":
		*s = StatusRejected
	default:
		return fmt.Errorf("unknown static analysis status %q", text)
	}
	return nil
}

// FileInfo is the identity portion of a static feature set.
type FileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MD5      string `json:"md5"`
	SHA1     string `json:"sha1"`
	SHA256   string `json:"sha256"`
}

// FeatureSet is the static description of a binary. In degraded mode Header is nil
// and the container-derived slices are empty.
type FeatureSet struct {
	File         FileInfo      `json:"file_info"`
	AnalysisType string        `json:"analysis_type"`
	Entropy      float64       `json:"entropy"`
	HighEntropy  bool          `json:"high_entropy"`
	Strings      StringSummary `json:"strings"`

	Header            *Header   `json:"pe_headers,omitempty"`
	Imports           []Library `json:"imports"`
	Sections          []string  `json:"sections"`
	UnusualSections   []string  `json:"unusual_sections"`
	SuspiciousImports []string  `json:"suspicious_imports"`
	// SuspiciousImportCount counts symbols that are known abused APIs or belong
	// to a sensitive API family. It is wider than SuspiciousImports.
	SuspiciousImportCount int  `json:"suspicious_import_count"`
	Packed                bool `json:"packed"`

	Oversized           bool `json:"large_file"`
	SuspiciousExtension bool `json:"suspicious_extension"`
	// SuspiciousStringsFound is only set by degraded analysis.
	SuspiciousStringsFound bool `json:"suspicious_strings_found,omitempty"`
}

// ImportCount is the total number of imported symbols across all libraries.
func (fs *FeatureSet) ImportCount() int {
	n := 0
	for _, lib := range fs.Imports {
		n += len(lib.Symbols)
	}
	return n
}

// Result is the outcome of static extraction.
type Result struct {
	Status   Status      `json:"status"`
	Features *FeatureSet `json:"features,omitempty"`
	// Reason explains a degraded or rejected result.
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

// Degraded reports whether the result is usable but incomplete.
func (r Result) Degraded() bool { return r.Status == StatusDegraded }

// Extract computes static features for s. It never panics: malformed containers
// yield StatusDegraded with a reason, unusable input yields StatusRejected.
func Extract(s *sample.Sample) Result {
	if s == nil {
		return Result{
			Status: StatusRejected,
			Reason: "no sample supplied",
			Err:    &sample.InputError{Kind: sample.KindNotFound, Hint: "supply a file to analyze"},
		}
	}
	data := s.Bytes()
	if len(data) == 0 {
		return Result{
			Status: StatusRejected,
			Reason: "file is empty",
			Err:    &sample.InputError{Kind: sample.KindEmpty, Path: s.Path, Hint: "supply a complete executable"},
		}
	}

	entropy := Entropy(data)
	fs := &FeatureSet{
		File: FileInfo{
			Filename: s.Filename,
			Size:     s.Size,
			MD5:      s.MD5,
			SHA1:     s.SHA1,
			SHA256:   s.SHA256,
		},
		Entropy:             entropy,
		HighEntropy:         entropy > HighEntropyThreshold,
		Strings:             ExtractStrings(data),
		Imports:             []Library{},
		Sections:            []string{},
		UnusualSections:     []string{},
		SuspiciousImports:   []string{},
		Oversized:           s.Size > OversizedThreshold,
		SuspiciousExtension: HasRiskyExtension(s.Filename),
	}

	if !hasPESignature(data) {
		fs.AnalysisType = StatusDegraded.String()
		fs.SuspiciousStringsFound = len(fs.Strings.Suspicious) > 0
		return Result{
			Status:   StatusDegraded,
			Features: fs,
			Reason:   "container signature not found: not a Windows PE executable",
			Err:      fmt.Errorf("%w: missing MZ signature", ErrFormat),
		}
	}

	c, err := parseContainer(data)
	if err != nil {
		fs.AnalysisType = StatusDegraded.String()
		fs.SuspiciousStringsFound = len(fs.Strings.Suspicious) > 0
		return Result{
			Status:   StatusDegraded,
			Features: fs,
			Reason:   "malformed PE container: " + strings.TrimPrefix(err.Error(), ErrFormat.Error()+": "),
			Err:      err,
		}
	}

	fs.AnalysisType = StatusFull.String()
	fs.Header = &c.header
	fs.Imports = c.imports
	fs.Sections = c.sections
	for _, name := range c.sections {
		if IsUnusualSection(name) {
			fs.UnusualSections = append(fs.UnusualSections, name)
		}
		if IsPackerSection(name) {
			fs.Packed = true
		}
	}
	for _, lib := range c.imports {
		for _, fn := range lib.Symbols {
			named := IsSuspiciousImport(fn)
			if named {
				fs.SuspiciousImports = append(fs.SuspiciousImports, fn)
			}
			if named || MatchesImportKeyword(fn) {
				fs.SuspiciousImportCount++
			}
		}
	}

	return Result{Status: StatusFull, Features: fs}
}

// ExtractBytes ingests an in-memory buffer and extracts its features.
func ExtractBytes(filename string, data []byte) Result {
	s, err := sample.FromBytes(filename, data, int64(len(data))+1)
	if err != nil {
		return Result{Status: StatusRejected, Reason: err.Error(), Err: err}
	}
	return Extract(s)
}
