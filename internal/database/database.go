package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/y0ug/malxplain/internal/report"
)

// Database defines the methods required for report storage and retrieval.
// Reports are write-once: a saved id can never be overwritten.
type Database interface {
	// Initialize sets up the necessary tables or buckets.
	Initialize(ctx context.Context) error

	Close(ctx context.Context) error

	// SaveReport stores a new report. It returns ErrReportExists if the id is taken.
	SaveReport(ctx context.Context, r *report.Report) error

	// GetReport retrieves a report by analysis id.
	GetReport(ctx context.Context, id string) (*report.Report, error)

	// LoadReportsPaginated retrieves a page of report summaries, newest first, and the
	// total count. If tier is nil, no filtering is applied.
	LoadReportsPaginated(ctx context.Context, page, perPage int, tier *report.RiskTier) ([]report.Summary, int, error)

	// GetTotalReports returns the total number of stored reports.
	GetTotalReports(ctx context.Context) (int, error)

	// GetRiskTierCounts returns the number of reports per risk tier.
	GetRiskTierCounts(ctx context.Context) (map[report.RiskTier]int, error)

	// GetLastAnalysisAt returns the timestamp of the most recent report.
	GetLastAnalysisAt(ctx context.Context) (time.Time, error)
}

var (
	ErrReportNotFound = errors.New("report not found")
	ErrReportExists   = errors.New("report already exists")
)

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg *DatabaseConfig, logger *logrus.Logger) (Database, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteDB(cfg.Path, logger)
	case "bolt":
		return NewBoltDB(cfg.Path)
	case "redis":
		return NewRedisDB(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_TYPE: %s", cfg.Type)
	}
}

// normalizePage clamps pagination arguments.
func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
