package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driving"
)

// highRiskFloor is the score at or above which an assessment counts as a
// recent flag in summaries.
const highRiskFloor = 70.0

// MetricReportService builds per-company metric views from the store.
type MetricReportService struct {
	metrics   driven.MetricStore
	companies driven.CompanyStore
}

// NewMetricReportService creates a metric report service.
func NewMetricReportService(metrics driven.MetricStore, companies driven.CompanyStore) *MetricReportService {
	return &MetricReportService{metrics: metrics, companies: companies}
}

var _ driving.MetricReporter = (*MetricReportService)(nil)

// Summary builds the latest metric profile for a ticker. Records come
// back from the store newest first, so the first occurrence of each name
// is the latest value.
func (s *MetricReportService) Summary(ctx context.Context, ticker string) (*driving.MetricSummary, error) {
	company, records, err := s.load(ctx, ticker)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]domain.MetricRecord)
	var anomalies []domain.MetricRecord
	for _, rec := range records {
		if _, ok := latest[rec.Name]; ok {
			continue
		}
		latest[rec.Name] = rec
		if rec.Anomaly {
			anomalies = append(anomalies, rec)
		}
	}

	return &driving.MetricSummary{
		Ticker:    company.Ticker,
		Latest:    latest,
		Anomalies: anomalies,
	}, nil
}

// History returns all metric records for a ticker, newest first.
func (s *MetricReportService) History(ctx context.Context, ticker string) ([]domain.MetricRecord, error) {
	_, records, err := s.load(ctx, ticker)
	return records, err
}

func (s *MetricReportService) load(ctx context.Context, ticker string) (*domain.Company, []domain.MetricRecord, error) {
	company, err := resolveTicker(ctx, s.companies, ticker)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.metrics.ListMetrics(ctx, company.CIK)
	if err != nil {
		return nil, nil, fmt.Errorf("list metrics for %s: %w", company.CIK, err)
	}
	return company, records, nil
}

// RiskReportService builds per-company risk views from the store.
type RiskReportService struct {
	risks     driven.RiskStore
	companies driven.CompanyStore
}

// NewRiskReportService creates a risk report service.
func NewRiskReportService(risks driven.RiskStore, companies driven.CompanyStore) *RiskReportService {
	return &RiskReportService{risks: risks, companies: companies}
}

var _ driving.RiskReporter = (*RiskReportService)(nil)

// Summary builds the risk profile for a ticker. The overall score is
// the category-weighted score of the latest period only; older periods
// contribute to the per-category averages but not the headline number.
func (s *RiskReportService) Summary(ctx context.Context, ticker string) (*driving.RiskSummary, error) {
	company, err := resolveTicker(ctx, s.companies, ticker)
	if err != nil {
		return nil, err
	}
	assessments, err := s.risks.ListAssessments(ctx, company.CIK)
	if err != nil {
		return nil, fmt.Errorf("list assessments for %s: %w", company.CIK, err)
	}

	breakdown := make(map[domain.RiskCategory]driving.RiskBreakdown)
	sums := make(map[domain.RiskCategory]float64)
	var recentFlags []domain.RiskAssessment
	var latestPeriod []domain.RiskAssessment

	for _, a := range assessments {
		b := breakdown[a.Category]
		if b.Count == 0 {
			// Newest first, so the first per category is the latest.
			b.Latest = a
		}
		b.Count++
		sums[a.Category] += a.Score
		breakdown[a.Category] = b

		if a.Score >= highRiskFloor {
			recentFlags = append(recentFlags, a)
		}
	}

	for category, b := range breakdown {
		b.AverageScore = round2(sums[category] / float64(b.Count))
		breakdown[category] = b
		latestPeriod = append(latestPeriod, b.Latest)
	}

	return &driving.RiskSummary{
		Ticker:       company.Ticker,
		OverallScore: OverallRiskScore(latestPeriod),
		Breakdown:    breakdown,
		RecentFlags:  recentFlags,
	}, nil
}

// History returns all assessments for a ticker, newest first.
func (s *RiskReportService) History(ctx context.Context, ticker string) ([]domain.RiskAssessment, error) {
	company, err := resolveTicker(ctx, s.companies, ticker)
	if err != nil {
		return nil, err
	}
	assessments, err := s.risks.ListAssessments(ctx, company.CIK)
	if err != nil {
		return nil, fmt.Errorf("list assessments for %s: %w", company.CIK, err)
	}
	return assessments, nil
}

// resolveTicker maps a ticker to its company record. An unknown ticker
// is an input error so callers can distinguish it from an empty history.
func resolveTicker(ctx context.Context, companies driven.CompanyStore, ticker string) (*domain.Company, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is empty", domain.ErrInvalidInput)
	}
	company, err := companies.GetCompanyByTicker(ctx, ticker)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown ticker %q", domain.ErrInvalidInput, ticker)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve ticker %q: %w", ticker, err)
	}
	return company, nil
}
