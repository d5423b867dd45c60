package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/y0ug/malxplain/internal/inference"
	"github.com/y0ug/malxplain/internal/report"
)

// SQLiteDB represents the SQLite implementation of the Database interface.
type SQLiteDB struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewSQLiteDB initializes a new SQLiteDB instance.
func NewSQLiteDB(dataSourceName string, logger *logrus.Logger) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}

	// SQLite3 doesn't support multiple writers well.
	db.SetMaxOpenConns(1)

	if logger == nil {
		logger = logrus.StandardLogger()
	}
	sqliteDB := &SQLiteDB{
		db:     db,
		logger: logger,
	}

	if err := sqliteDB.Initialize(context.TODO()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return sqliteDB, nil
}

func (s *SQLiteDB) Close(context.Context) error {
	return s.db.Close()
}

// Initialize creates the necessary tables and indexes.
func (s *SQLiteDB) Initialize(ctx context.Context) error {
	schema := `
    CREATE TABLE IF NOT EXISTS reports (
        id TEXT PRIMARY KEY,
        filename TEXT NOT NULL,
        sha256 TEXT NOT NULL,
        label TEXT NOT NULL,
        confidence REAL NOT NULL,
        risk_tier TEXT NOT NULL,
        indicators TEXT NOT NULL,
        created_at TEXT NOT NULL,
        body TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
    CREATE INDEX IF NOT EXISTS idx_reports_risk_tier ON reports(risk_tier);
    CREATE INDEX IF NOT EXISTS idx_reports_sha256 ON reports(sha256);
    `
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveReport inserts a report. Existing ids are never overwritten.
func (s *SQLiteDB) SaveReport(ctx context.Context, r *report.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	sum := r.Summary()
	indicators, err := json.Marshal(sum.KeyIndicators)
	if err != nil {
		return fmt.Errorf("failed to marshal indicators: %w", err)
	}

	query := `
        INSERT INTO reports (id, filename, sha256, label, confidence, risk_tier, indicators, created_at, body)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO NOTHING;
    `
	result, err := s.db.ExecContext(ctx, query,
		r.ID, sum.Filename, sum.SHA256, string(sum.Result), sum.Confidence, string(sum.RiskTier),
		string(indicators), r.Timestamp.UTC().Format(timeLayout), string(body))
	if err != nil {
		s.logger.WithError(err).Errorf("SaveReport: failed to insert report %s", r.ID)
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.WithError(err).Warnf("SaveReport: failed to get rows affected for report %s", r.ID)
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrReportExists, r.ID)
	}
	return nil
}

// GetReport retrieves a single report by its id.
func (s *SQLiteDB) GetReport(ctx context.Context, id string) (*report.Report, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM reports WHERE id = ?;`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
		}
		s.logger.WithError(err).Errorf("GetReport: failed to retrieve report %s", id)
		return nil, err
	}

	var r report.Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("invalid stored report %s: %w", id, err)
	}
	return &r, nil
}

// LoadReportsPaginated retrieves a specific page of report summaries and the total count.
func (s *SQLiteDB) LoadReportsPaginated(ctx context.Context, page, perPage int, tier *report.RiskTier) ([]report.Summary, int, error) {
	page, perPage = normalizePage(page, perPage)
	offset := (page - 1) * perPage

	where := ""
	var args []interface{}
	if tier != nil {
		where = "WHERE risk_tier = ?"
		args = append(args, string(*tier))
	}

	query := fmt.Sprintf(`
        SELECT id, filename, sha256, label, confidence, risk_tier, indicators, created_at
        FROM reports
        %s
        ORDER BY created_at DESC, id ASC
        LIMIT ? OFFSET ?;
    `, where)

	rows, err := s.db.QueryContext(ctx, query, append(args, perPage, offset)...)
	if err != nil {
		s.logger.WithError(err).Error("LoadReportsPaginated: failed to execute query")
		return nil, 0, err
	}
	defer rows.Close()

	summaries := []report.Summary{}
	for rows.Next() {
		var sum report.Summary
		var label, tierStr, indicators, createdAt string

		err := rows.Scan(&sum.ID, &sum.Filename, &sum.SHA256, &label, &sum.Confidence, &tierStr, &indicators, &createdAt)
		if err != nil {
			s.logger.WithError(err).Warn("LoadReportsPaginated: failed to scan row")
			continue
		}
		sum.Result = inference.Label(label)
		sum.RiskTier = report.RiskTier(tierStr)
		if err := json.Unmarshal([]byte(indicators), &sum.KeyIndicators); err != nil {
			s.logger.WithError(err).Warnf("LoadReportsPaginated: invalid indicators for report %s", sum.ID)
		}
		sum.Timestamp, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			s.logger.WithError(err).Warnf("LoadReportsPaginated: invalid time format for report %s", sum.ID)
			continue
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		s.logger.WithError(err).Error("LoadReportsPaginated: row iteration error")
		return nil, 0, err
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM reports %s;`, where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		s.logger.WithError(err).Error("LoadReportsPaginated: failed to get total count")
		return summaries, 0, err
	}

	return summaries, total, nil
}

// GetTotalReports retrieves the total number of reports.
func (s *SQLiteDB) GetTotalReports(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports;`).Scan(&total)
	if err != nil {
		s.logger.WithError(err).Error("GetTotalReports: failed to execute query")
		return 0, err
	}
	return total, nil
}

// GetRiskTierCounts groups reports by risk tier.
func (s *SQLiteDB) GetRiskTierCounts(ctx context.Context) (map[report.RiskTier]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT risk_tier, COUNT(*) FROM reports GROUP BY risk_tier;`)
	if err != nil {
		s.logger.WithError(err).Error("GetRiskTierCounts: failed to execute query")
		return nil, err
	}
	defer rows.Close()

	counts := make(map[report.RiskTier]int, len(report.Tiers))
	for _, t := range report.Tiers {
		counts[t] = 0
	}
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		counts[report.RiskTier(tier)] = n
	}
	return counts, rows.Err()
}

// GetLastAnalysisAt retrieves the most recent report timestamp.
func (s *SQLiteDB) GetLastAnalysisAt(ctx context.Context) (time.Time, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM reports;`).Scan(&latest)
	if err != nil {
		s.logger.WithError(err).Error("GetLastAnalysisAt: failed to execute query")
		return time.Time{}, err
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(timeLayout, latest.String)
	if err != nil {
		s.logger.WithError(err).Warnf("GetLastAnalysisAt: invalid time format: %s", latest.String)
		return time.Time{}, err
	}
	return t, nil
}
