package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

// MetricStore persists financial metric records.
type MetricStore interface {
	// UpsertMetric stores or replaces a record by its natural key
	// (CIK, period, metric name). Re-extraction replaces, never
	// duplicates.
	UpsertMetric(ctx context.Context, rec domain.MetricRecord) error

	// ListMetrics returns all records for a company ordered by period
	// end descending.
	ListMetrics(ctx context.Context, cik string) ([]domain.MetricRecord, error)

	// PriorValues returns the most recent value per metric name for a
	// company strictly before the given period end. An empty map means
	// no history exists.
	PriorValues(ctx context.Context, cik string, before time.Time) (map[string]float64, error)
}

// RiskStore persists risk assessments.
type RiskStore interface {
	// UpsertAssessment stores or replaces an assessment by its natural
	// key (CIK, period, category).
	UpsertAssessment(ctx context.Context, a domain.RiskAssessment) error

	// ListAssessments returns all assessments for a company ordered by
	// period end descending.
	ListAssessments(ctx context.Context, cik string) ([]domain.RiskAssessment, error)
}

// CompanyStore provides the company reference universe.
type CompanyStore interface {
	// UpsertCompany stores or replaces a company by CIK.
	UpsertCompany(ctx context.Context, c domain.Company) error

	// GetCompany retrieves a company by CIK.
	// Returns domain.ErrNotFound when absent.
	GetCompany(ctx context.Context, cik string) (*domain.Company, error)

	// GetCompanyByTicker retrieves a company by ticker.
	// Returns domain.ErrNotFound when absent.
	GetCompanyByTicker(ctx context.Context, ticker string) (*domain.Company, error)

	// ListCompanies returns every company in the universe.
	ListCompanies(ctx context.Context) ([]domain.Company, error)
}
