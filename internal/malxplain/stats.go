package malxplain

import (
	"context"
	"fmt"

	"github.com/y0ug/malxplain/internal/database"
	"github.com/y0ug/malxplain/internal/database/models"
	"github.com/y0ug/malxplain/internal/model"
)

// GetStats retrieves the current statistics from the database. reg may be nil;
// model information is only reported once an artifact is active.
func GetStats(ctx context.Context, db database.Database, reg *model.Registry) (models.StatsResponse, error) {
	var stats models.StatsResponse

	totalReports, err := db.GetTotalReports(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get total reports: %w", err)
	}
	stats.TotalReports = totalReports

	lastAnalysisAt, err := db.GetLastAnalysisAt(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get last analysis time: %w", err)
	}
	stats.LastAnalysisAt = lastAnalysisAt

	tiers, err := db.GetRiskTierCounts(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get risk tier counts: %w", err)
	}
	stats.RiskTiers = tiers

	if reg != nil {
		if a := reg.Current(); a != nil {
			stats.Model = &models.ModelInfo{
				Type:      string(a.ModelType),
				Name:      a.ModelName,
				CreatedAt: a.CreatedAt,
			}
		}
	}
	return stats, nil
}
