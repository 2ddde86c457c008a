package driving

import (
	"context"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

// MetricSummary is the latest financial profile for one company.
type MetricSummary struct {
	// Ticker is the company ticker.
	Ticker string `json:"ticker"`

	// Latest maps metric name to its most recent record.
	Latest map[string]domain.MetricRecord `json:"latest"`

	// Anomalies lists the flagged records among the latest values.
	Anomalies []domain.MetricRecord `json:"anomalies"`
}

// RiskBreakdown aggregates assessments for one category.
type RiskBreakdown struct {
	// AverageScore is the mean score across periods.
	AverageScore float64 `json:"average_score"`

	// Count is the number of assessments.
	Count int `json:"count"`

	// Latest is the most recent assessment.
	Latest domain.RiskAssessment `json:"latest"`
}

// RiskSummary is the risk profile for one company.
type RiskSummary struct {
	// Ticker is the company ticker.
	Ticker string `json:"ticker"`

	// OverallScore is the category-weighted score of the latest period.
	OverallScore float64 `json:"overall_score"`

	// Breakdown maps category to its aggregate.
	Breakdown map[domain.RiskCategory]RiskBreakdown `json:"breakdown"`

	// RecentFlags lists high-severity assessments (score >= 70),
	// most recent first.
	RecentFlags []domain.RiskAssessment `json:"recent_flags"`
}

// MetricReporter serves metric time series and summaries to the UI layer.
type MetricReporter interface {
	// Summary builds the latest metric profile for a ticker.
	Summary(ctx context.Context, ticker string) (*MetricSummary, error)

	// History returns all metric records for a ticker, newest first.
	History(ctx context.Context, ticker string) ([]domain.MetricRecord, error)
}

// RiskReporter serves risk assessments and summaries to the UI layer.
type RiskReporter interface {
	// Summary builds the risk profile for a ticker.
	Summary(ctx context.Context, ticker string) (*RiskSummary, error)

	// History returns all assessments for a ticker, newest first.
	History(ctx context.Context, ticker string) ([]domain.RiskAssessment, error)
}
