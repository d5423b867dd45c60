package models

import (
	"time"

	"github.com/y0ug/malxplain/internal/report"
)

// ReportsResponse includes pagination metadata.
type ReportsResponse struct {
	Reports    []report.Summary `json:"reports"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

type ReportDetailResponse struct {
	Report *report.Report `json:"report"`
}

// StatsResponse represents the structure of the /stats API response.
type StatsResponse struct {
	TotalReports   int                     `json:"total_reports"`
	LastAnalysisAt time.Time               `json:"last_analysis_at"`
	RiskTiers      map[report.RiskTier]int `json:"risk_tiers"`
	Model          *ModelInfo              `json:"model,omitempty"`
}

// ModelInfo describes the active classifier.
type ModelInfo struct {
	Type      string    `json:"model_type"`
	Name      string    `json:"model_name"`
	CreatedAt time.Time `json:"created_at"`
}

// TotalPages computes the page count for a listing.
func TotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
