package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/y0ug/malxplain/internal/report"
)

const (
	redisTimeIndex = "reports:by_time"
	redisSummaries = "reports:summaries"
	redisTierCount = "reports:tiers"
)

func redisReportKey(id string) string { return fmt.Sprintf("report:%s", id) }

func redisTierIndex(t report.RiskTier) string { return fmt.Sprintf("reports:tier:%s", t) }

// RedisDB implements the Database interface using Redis.
type RedisDB struct {
	client *redis.Client
}

// NewRedisDB initializes a new RedisDB instance.
func NewRedisDB(ctx context.Context, cfg *DatabaseConfig) (*RedisDB, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	return &RedisDB{client: rdb}, nil
}

// Initialize sets up necessary Redis structures if needed.
func (r *RedisDB) Initialize(ctx context.Context) error {
	// Redis is schema-less.
	return nil
}

// Close closes the Redis client connection.
func (r *RedisDB) Close(ctx context.Context) error {
	return r.client.Close()
}

// SaveReport claims the id with SETNX, then updates the listing indexes.
func (r *RedisDB) SaveReport(ctx context.Context, rep *report.Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	sum := rep.Summary()
	sumData, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	ok, err := r.client.SetNX(ctx, redisReportKey(rep.ID), body, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrReportExists, rep.ID)
	}

	score := float64(rep.Timestamp.UnixNano()) / 1e9
	member := &redis.Z{Score: score, Member: rep.ID}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisSummaries, rep.ID, sumData)
		pipe.ZAdd(ctx, redisTimeIndex, member)
		pipe.ZAdd(ctx, redisTierIndex(sum.RiskTier), member)
		pipe.HIncrBy(ctx, redisTierCount, string(sum.RiskTier), 1)
		return nil
	})
	return err
}

// GetReport retrieves a specific report.
func (r *RedisDB) GetReport(ctx context.Context, id string) (*report.Report, error) {
	val, err := r.client.Get(ctx, redisReportKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
		}
		return nil, err
	}

	var rep report.Report
	if err := json.Unmarshal([]byte(val), &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// LoadReportsPaginated reads a page of ids from the time index, newest first.
func (r *RedisDB) LoadReportsPaginated(ctx context.Context, page, perPage int, tier *report.RiskTier) ([]report.Summary, int, error) {
	page, perPage = normalizePage(page, perPage)
	index := redisTimeIndex
	if tier != nil {
		index = redisTierIndex(*tier)
	}

	total, err := r.client.ZCard(ctx, index).Result()
	if err != nil {
		return nil, 0, err
	}
	start := int64((page - 1) * perPage)
	ids, err := r.client.ZRevRange(ctx, index, start, start+int64(perPage)-1).Result()
	if err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return []report.Summary{}, int(total), nil
	}

	vals, err := r.client.HMGet(ctx, redisSummaries, ids...).Result()
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]report.Summary, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var sum report.Summary
		if err := json.Unmarshal([]byte(s), &sum); err != nil {
			continue
		}
		summaries = append(summaries, sum)
	}
	return summaries, int(total), nil
}

// GetTotalReports returns the number of stored reports.
func (r *RedisDB) GetTotalReports(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, redisTimeIndex).Result()
	return int(n), err
}

// GetRiskTierCounts reads the per-tier counters.
func (r *RedisDB) GetRiskTierCounts(ctx context.Context) (map[report.RiskTier]int, error) {
	vals, err := r.client.HGetAll(ctx, redisTierCount).Result()
	if err != nil {
		return nil, err
	}
	counts := make(map[report.RiskTier]int, len(report.Tiers))
	for _, t := range report.Tiers {
		counts[t] = 0
	}
	for k, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		counts[report.RiskTier(k)] = n
	}
	return counts, nil
}

// GetLastAnalysisAt returns the timestamp of the newest report.
func (r *RedisDB) GetLastAnalysisAt(ctx context.Context) (time.Time, error) {
	ids, err := r.client.ZRevRange(ctx, redisTimeIndex, 0, 0).Result()
	if err != nil || len(ids) == 0 {
		return time.Time{}, err
	}
	val, err := r.client.HGet(ctx, redisSummaries, ids[0]).Result()
	if err != nil {
		return time.Time{}, err
	}
	var sum report.Summary
	if err := json.Unmarshal([]byte(val), &sum); err != nil {
		return time.Time{}, err
	}
	return sum.Timestamp, nil
}
