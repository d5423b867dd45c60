package malxplain

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/y0ug/malxplain/internal/report"
)

// ScanResult is the outcome of analyzing one file in a batch.
type ScanResult struct {
	Path   string
	Report *report.Report
	Err    error
}

// ListFiles returns the regular files below dir in lexical order.
func ListFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ScanDir analyzes every regular file below dir.
func (a *Analyzer) ScanDir(ctx context.Context, dir string) ([]ScanResult, error) {
	paths, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	return a.ScanPaths(ctx, paths), nil
}

// ScanPaths analyzes paths concurrently, bounded by the analyzer's semaphore.
// Results keep the order of paths.
func (a *Analyzer) ScanPaths(ctx context.Context, paths []string) []ScanResult {
	var wg sync.WaitGroup
	results := make([]ScanResult, len(paths))

	for i, path := range paths {
		results[i].Path = path

		// Acquire semaphore to limit concurrency
		if err := a.sem.Acquire(ctx, 1); err != nil {
			results[i].Err = err
			continue
		}

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer a.sem.Release(1)

			r, err := a.Analyze(ctx, path, "")
			if err != nil {
				logrus.WithError(err).WithField("path", path).Warn("Skipping file")
			}
			results[i].Report = r
			results[i].Err = err
		}(i, path)
	}

	wg.Wait()

	logrus.WithField("file_count", len(paths)).Info("Scan finished")
	return results
}

// CountTiers tallies successful results by risk tier.
func CountTiers(results []ScanResult) map[report.RiskTier]int {
	counts := make(map[report.RiskTier]int, len(report.Tiers))
	for _, r := range results {
		if r.Report != nil {
			counts[r.Report.RiskTier]++
		}
	}
	return counts
}
