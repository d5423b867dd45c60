package malxplain

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/y0ug/malxplain/internal/model"
)

// ManifestEntry is one labelled training file.
type ManifestEntry struct {
	Path         string
	Label        int
	BehaviorPath string
}

// ParseLabel accepts malicious, benign, 1 or 0.
func ParseLabel(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "malicious", "1":
		return model.Malicious, nil
	case "benign", "0":
		return model.Benign, nil
	default:
		return 0, fmt.Errorf("unknown label %q", s)
	}
}

// ReadManifest reads a CSV manifest of path,label[,behavior_report] rows.
// Relative paths are resolved against the manifest's directory. A first row
// whose label column does not parse is treated as a header.
func ReadManifest(filePath string) ([]ManifestEntry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	base := filepath.Dir(filePath)
	var entries []ManifestEntry
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading manifest: %v", err)
		}
		if len(record) < 2 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		label, err := ParseLabel(record[1])
		if err != nil {
			if len(entries) == 0 && row == 1 {
				continue
			}
			return nil, fmt.Errorf("manifest row %d: %w", row, err)
		}

		entry := ManifestEntry{
			Path:  resolve(base, record[0]),
			Label: label,
		}
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			entry.BehaviorPath = resolve(base, record[2])
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func resolve(base, p string) string {
	p = strings.TrimSpace(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
