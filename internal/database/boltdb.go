package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/y0ug/malxplain/internal/report"
	"go.etcd.io/bbolt"
)

var (
	reportsBucket   = []byte("Reports")
	summariesBucket = []byte("Summaries")
)

// BoltDB implements the Database interface using bbolt.
type BoltDB struct {
	db   *bbolt.DB
	path string
}

// NewBoltDB initializes a new BoltDB instance.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	boltDB := &BoltDB{
		db:   db,
		path: path,
	}

	if err := boltDB.Initialize(context.TODO()); err != nil {
		db.Close()
		return nil, err
	}

	return boltDB, nil
}

// Initialize sets up the necessary buckets.
func (b *BoltDB) Initialize(ctx context.Context) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(reportsBucket); err != nil {
			return fmt.Errorf("create Reports bucket: %v", err)
		}
		if _, err := tx.CreateBucketIfNotExists(summariesBucket); err != nil {
			return fmt.Errorf("create Summaries bucket: %v", err)
		}
		return nil
	})
}

func (b *BoltDB) Close(context.Context) error {
	return b.db.Close()
}

// SaveReport stores the report and its summary in one transaction.
func (b *BoltDB) SaveReport(ctx context.Context, r *report.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	sum, err := json.Marshal(r.Summary())
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		reports := tx.Bucket(reportsBucket)
		if reports.Get([]byte(r.ID)) != nil {
			return fmt.Errorf("%w: %s", ErrReportExists, r.ID)
		}
		if err := reports.Put([]byte(r.ID), body); err != nil {
			return err
		}
		return tx.Bucket(summariesBucket).Put([]byte(r.ID), sum)
	})
}

// GetReport retrieves a specific report.
func (b *BoltDB) GetReport(ctx context.Context, id string) (*report.Report, error) {
	var r report.Report
	err := b.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(reportsBucket).Get([]byte(id))
		if val == nil {
			return fmt.Errorf("%w: %s", ErrReportNotFound, id)
		}
		return json.Unmarshal(val, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// loadSummaries returns every summary, newest first.
func (b *BoltDB) loadSummaries() ([]report.Summary, error) {
	var out []report.Summary
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(summariesBucket).ForEach(func(k, v []byte) error {
			var sum report.Summary
			if err := json.Unmarshal(v, &sum); err != nil {
				logrus.WithError(err).Warnf("Failed to unmarshal summary for report: %s", string(k))
				return nil
			}
			out = append(out, sum)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// LoadReportsPaginated retrieves a page of summaries and the total count.
func (b *BoltDB) LoadReportsPaginated(ctx context.Context, page, perPage int, tier *report.RiskTier) ([]report.Summary, int, error) {
	page, perPage = normalizePage(page, perPage)
	all, err := b.loadSummaries()
	if err != nil {
		return nil, 0, err
	}

	filtered := all[:0]
	for _, s := range all {
		if tier == nil || s.RiskTier == *tier {
			filtered = append(filtered, s)
		}
	}

	total := len(filtered)
	start := (page - 1) * perPage
	if start >= total {
		return []report.Summary{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

// GetTotalReports returns the number of stored reports.
func (b *BoltDB) GetTotalReports(ctx context.Context) (int, error) {
	var n int
	err := b.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(reportsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// GetRiskTierCounts groups reports by risk tier.
func (b *BoltDB) GetRiskTierCounts(ctx context.Context) (map[report.RiskTier]int, error) {
	all, err := b.loadSummaries()
	if err != nil {
		return nil, err
	}
	counts := make(map[report.RiskTier]int, len(report.Tiers))
	for _, t := range report.Tiers {
		counts[t] = 0
	}
	for _, s := range all {
		counts[s.RiskTier]++
	}
	return counts, nil
}

// GetLastAnalysisAt returns the newest report timestamp.
func (b *BoltDB) GetLastAnalysisAt(ctx context.Context) (time.Time, error) {
	all, err := b.loadSummaries()
	if err != nil || len(all) == 0 {
		return time.Time{}, err
	}
	return all[0].Timestamp, nil
}
