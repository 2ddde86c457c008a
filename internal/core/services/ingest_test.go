package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filing-intel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

type pipelineFixture struct {
	pipeline   *IngestPipeline
	chunkStore *memory.ChunkStore
	metrics    *memory.MetricStore
	risks      *memory.RiskStore
	companies  *memory.CompanyStore
	embedder   *mockEmbeddingService
	llm        *mockLLMService
}

func newPipelineFixture(llm *mockLLMService) *pipelineFixture {
	chunkStore := memory.NewChunkStore()
	metrics := memory.NewMetricStore()
	risks := memory.NewRiskStore()
	companies := memory.NewCompanyStore()
	embedder := &mockEmbeddingService{embedding: []float32{1, 0, 0}}
	retry := quickRetry()

	pipeline := NewIngestPipeline(
		NewSectionChunker(WithChunkSize(400), WithOverlap(50)),
		NewEmbeddingIndexer(chunkStore, embedder, retry, 0),
		NewMetricExtractor(llm, metrics, retry),
		NewAnomalyDetector(nil),
		NewRiskScorer(llm, retry),
		chunkStore, metrics, risks, companies,
		retry, 2,
	)
	return &pipelineFixture{
		pipeline:   pipeline,
		chunkStore: chunkStore,
		metrics:    metrics,
		risks:      risks,
		companies:  companies,
		embedder:   embedder,
		llm:        llm,
	}
}

func annualFiling(docID, accession string, period time.Time, facts map[string]float64) domain.Filing {
	return domain.Filing{
		DocumentID:      docID,
		AccessionNumber: accession,
		CIK:             "0000320193",
		Ticker:          "AAPL",
		CompanyName:     "Apple Inc.",
		FilingType:      domain.FilingType10K,
		PeriodEnd:       period,
		Text:            tenKText(),
		Facts:           facts,
	}
}

func TestIngestPipeline_EndToEnd(t *testing.T) {
	// The model finds no qualitative risks; metrics come from the
	// structured path.
	llm := &mockLLMService{responses: []string{`{"risks": []}`}}
	f := newPipelineFixture(llm)
	ctx := context.Background()

	p2023 := time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC)
	p2024 := time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC)

	// Prior year baseline.
	prior := annualFiling("doc-2023", "acc-2023", p2023, map[string]float64{
		domain.MetricRevenue:   80,
		domain.MetricNetIncome: 10,
	})
	_, err := f.pipeline.IngestFiling(ctx, prior)
	require.NoError(t, err)

	// Current year: revenue +25% (within tolerance), net income +100%
	// (beyond the 50% tolerance).
	current := annualFiling("doc-2024", "acc-2024", p2024, map[string]float64{
		domain.MetricRevenue:   100,
		domain.MetricNetIncome: 20,
	})
	report, err := f.pipeline.IngestFiling(ctx, current)
	require.NoError(t, err)

	assert.Equal(t, "acc-2024", report.AccessionNumber)
	assert.Greater(t, report.Chunks, 0)
	assert.Equal(t, report.Chunks, report.Indexed)
	assert.False(t, report.WholeDocumentFallback)
	assert.Empty(t, report.Failures)

	stored, err := f.metrics.ListMetrics(ctx, "0000320193")
	require.NoError(t, err)

	var revenue, netIncome, netMargin *domain.MetricRecord
	for i := range stored {
		if !stored[i].PeriodEnd.Equal(p2024) {
			continue
		}
		switch stored[i].Name {
		case domain.MetricRevenue:
			revenue = &stored[i]
		case domain.MetricNetIncome:
			netIncome = &stored[i]
		case domain.MetricNetMargin:
			netMargin = &stored[i]
		}
	}

	require.NotNil(t, revenue)
	require.NotNil(t, revenue.YoYChange)
	assert.Equal(t, 25.0, *revenue.YoYChange)
	assert.False(t, revenue.Anomaly, "25%% revenue growth is within tolerance")

	require.NotNil(t, netIncome)
	require.NotNil(t, netIncome.YoYChange)
	assert.Equal(t, 100.0, *netIncome.YoYChange)
	assert.True(t, netIncome.Anomaly, "doubled net income exceeds the 50%% tolerance")

	require.NotNil(t, netMargin)
	assert.Equal(t, 20.0, netMargin.Value)
	require.NotNil(t, netMargin.YoYChange)
	assert.Equal(t, 60.0, *netMargin.YoYChange)

	assert.Greater(t, report.Anomalies, 0)

	// The filer is registered in the company universe.
	company, err := f.companies.GetCompany(ctx, "0000320193")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", company.Ticker)
}

func TestIngestPipeline_ReingestReplacesNotDuplicates(t *testing.T) {
	llm := &mockLLMService{responses: []string{`{"risks": []}`}}
	f := newPipelineFixture(llm)
	ctx := context.Background()

	period := time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC)
	filing := annualFiling("doc-1", "acc-1", period, map[string]float64{domain.MetricRevenue: 100})

	first, err := f.pipeline.IngestFiling(ctx, filing)
	require.NoError(t, err)
	second, err := f.pipeline.IngestFiling(ctx, filing)
	require.NoError(t, err)

	assert.Equal(t, first.Chunks, second.Chunks)

	chunks, err := f.chunkStore.ListChunks(ctx, "0000320193", "")
	require.NoError(t, err)
	assert.Len(t, chunks, first.Chunks)

	metrics, err := f.metrics.ListMetrics(ctx, "0000320193")
	require.NoError(t, err)
	names := make(map[string]int)
	for _, m := range metrics {
		names[m.Name]++
	}
	for name, n := range names {
		assert.Equal(t, 1, n, "metric %s duplicated", name)
	}
}

func TestIngestPipeline_WholeDocumentFallback(t *testing.T) {
	llm := &mockLLMService{responses: []string{`{"risks": []}`}}
	f := newPipelineFixture(llm)

	filing := annualFiling("doc-1", "acc-1", time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC),
		map[string]float64{domain.MetricRevenue: 100})
	filing.Text = filler(900) // no recognisable section markers

	report, err := f.pipeline.IngestFiling(context.Background(), filing)
	require.NoError(t, err)

	assert.True(t, report.WholeDocumentFallback)
	assert.Greater(t, report.Chunks, 0)

	chunks, err := f.chunkStore.ListChunks(context.Background(), "0000320193", domain.SectionFullText)
	require.NoError(t, err)
	assert.Len(t, chunks, report.Chunks)
}

func TestIngestPipeline_MissingIdentifiers(t *testing.T) {
	f := newPipelineFixture(&mockLLMService{})

	_, err := f.pipeline.IngestFiling(context.Background(), domain.Filing{Text: "text"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestPipeline_RiskProviderFailureIsScoped(t *testing.T) {
	// Metric extraction uses the structured path; only the risk call
	// hits the model, and it fails.
	llm := &mockLLMService{generateErr: errors.New("overloaded")}
	f := newPipelineFixture(llm)

	filing := annualFiling("doc-1", "acc-1", time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC),
		map[string]float64{domain.MetricRevenue: 100})

	report, err := f.pipeline.IngestFiling(context.Background(), filing)
	require.NoError(t, err, "a risk provider outage must not fail the filing")

	assert.Greater(t, report.Metrics, 0)
	found := false
	for _, fail := range report.Failures {
		if fail.Stage == "risk" {
			found = true
		}
	}
	assert.True(t, found, "risk failure is reported")
}

func TestIngestPipeline_IngestAll(t *testing.T) {
	llm := &mockLLMService{responses: []string{`{"risks": []}`}}
	f := newPipelineFixture(llm)

	period := time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC)
	filings := []domain.Filing{
		annualFiling("doc-1", "acc-1", period, map[string]float64{domain.MetricRevenue: 100}),
		annualFiling("doc-2", "acc-2", period, map[string]float64{domain.MetricRevenue: 200}),
		annualFiling("doc-3", "acc-3", period, map[string]float64{domain.MetricRevenue: 300}),
	}
	filings[1].CIK = "cik-b"
	filings[2].CIK = "cik-c"

	reports, err := f.pipeline.IngestAll(context.Background(), filings)
	require.NoError(t, err)
	assert.Len(t, reports, 3)

	seen := make(map[string]bool)
	for _, r := range reports {
		seen[r.AccessionNumber] = true
		assert.Greater(t, r.Chunks, 0)
	}
	assert.Len(t, seen, 3)
}

func TestIngestPipeline_IngestAll_Empty(t *testing.T) {
	f := newPipelineFixture(&mockLLMService{})

	reports, err := f.pipeline.IngestAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestIngestPipeline_IngestAll_OneBadFilingDoesNotAbort(t *testing.T) {
	llm := &mockLLMService{responses: []string{`{"risks": []}`}}
	f := newPipelineFixture(llm)

	period := time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC)
	filings := []domain.Filing{
		{Text: "missing identifiers"},
		annualFiling("doc-2", "acc-2", period, map[string]float64{domain.MetricRevenue: 100}),
	}

	reports, err := f.pipeline.IngestAll(context.Background(), filings)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	var good, bad int
	for _, r := range reports {
		if len(r.Failures) > 0 && r.Chunks == 0 {
			bad++
		} else {
			good++
		}
	}
	assert.Equal(t, 1, good)
	assert.Equal(t, 1, bad)
}

func TestIngestPipeline_IngestAll_Cancellation(t *testing.T) {
	f := newPipelineFixture(&mockLLMService{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	period := time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC)
	filings := []domain.Filing{
		annualFiling("doc-1", "acc-1", period, map[string]float64{domain.MetricRevenue: 100}),
	}

	_, err := f.pipeline.IngestAll(ctx, filings)
	assert.ErrorIs(t, err, context.Canceled)
}
