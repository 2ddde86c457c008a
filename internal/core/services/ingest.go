package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driving"
	"github.com/custodia-labs/filing-intel/internal/logger"
)

// DefaultIngestWorkers is the default concurrency for batch ingestion.
const DefaultIngestWorkers = 4

// IngestPipeline wires the processing stages into one pass per filing:
// chunk, index, extract metrics, flag anomalies, score risks. Failures
// are scoped to the smallest unit of work and collected in the report so
// one bad chunk or one provider hiccup never discards a whole filing.
type IngestPipeline struct {
	chunker    *SectionChunker
	indexer    *EmbeddingIndexer
	extractor  *MetricExtractor
	detector   *AnomalyDetector
	scorer     *RiskScorer
	chunkStore driven.ChunkStore
	metrics    driven.MetricStore
	risks      driven.RiskStore
	companies  driven.CompanyStore
	retry      RetryPolicy
	workers    int
}

// NewIngestPipeline creates an ingest pipeline. A workers value of 0
// falls back to DefaultIngestWorkers.
func NewIngestPipeline(
	chunker *SectionChunker,
	indexer *EmbeddingIndexer,
	extractor *MetricExtractor,
	detector *AnomalyDetector,
	scorer *RiskScorer,
	chunkStore driven.ChunkStore,
	metrics driven.MetricStore,
	risks driven.RiskStore,
	companies driven.CompanyStore,
	retry RetryPolicy,
	workers int,
) *IngestPipeline {
	if workers <= 0 {
		workers = DefaultIngestWorkers
	}
	return &IngestPipeline{
		chunker:    chunker,
		indexer:    indexer,
		extractor:  extractor,
		detector:   detector,
		scorer:     scorer,
		chunkStore: chunkStore,
		metrics:    metrics,
		risks:      risks,
		companies:  companies,
		retry:      retry.withDefaults(),
		workers:    workers,
	}
}

var _ driving.Ingestor = (*IngestPipeline)(nil)

// IngestFiling processes one filing end to end. The error return is
// reserved for failures that prevent any progress at all; everything
// else lands in the report.
func (p *IngestPipeline) IngestFiling(ctx context.Context, filing domain.Filing) (*driving.IngestReport, error) {
	report := &driving.IngestReport{
		AccessionNumber: filing.AccessionNumber,
		Ticker:          filing.Ticker,
	}

	if filing.CIK == "" || filing.AccessionNumber == "" {
		return nil, fmt.Errorf("%w: filing needs cik and accession number", domain.ErrInvalidInput)
	}

	logger.Stage(fmt.Sprintf("Ingesting %s %s (%s)", filing.Ticker, filing.FilingType, filing.AccessionNumber))

	chunks, err := p.chunker.Chunk(filing)
	if errors.Is(err, domain.ErrMalformedDocument) {
		logger.Warn("No section markers in %s, falling back to whole-document chunking", filing.AccessionNumber)
		report.WholeDocumentFallback = true
		chunks = p.chunker.ChunkWhole(filing)
	} else if err != nil {
		return nil, fmt.Errorf("chunk filing %s: %w", filing.AccessionNumber, err)
	}
	report.Chunks = len(chunks)

	if len(chunks) > 0 {
		// Reprocessing replaces the filing's chunks wholesale so stale
		// text never lingers beside fresh text.
		if err := p.chunkStore.DeleteFilingChunks(ctx, filing.AccessionNumber); err != nil {
			return nil, fmt.Errorf("%w: clear chunks for %s: %w", domain.ErrStoreWriteFailure, filing.AccessionNumber, err)
		}
		for _, c := range chunks {
			if err := p.chunkStore.UpsertChunk(ctx, c); err != nil {
				report.Failures = append(report.Failures, driving.ItemFailure{
					Stage: "store", Item: c.ID, Reason: err.Error(),
				})
			}
		}

		indexed, failures := p.indexer.IndexChunks(ctx, chunks)
		report.Indexed = indexed
		report.Failures = append(report.Failures, failures...)
	}

	p.upsertCompany(ctx, filing)

	if err := p.runMetrics(ctx, filing, chunks, report); err != nil {
		report.Failures = append(report.Failures, driving.ItemFailure{
			Stage: "metrics", Item: filing.AccessionNumber, Reason: err.Error(),
		})
	}

	if err := p.runRisks(ctx, filing, chunks, report); err != nil {
		report.Failures = append(report.Failures, driving.ItemFailure{
			Stage: "risk", Item: filing.AccessionNumber, Reason: err.Error(),
		})
	}

	logger.Info("Ingested %s: %d chunks, %d indexed, %d metrics (%d anomalous), %d assessments, %d failures",
		filing.AccessionNumber, report.Chunks, report.Indexed, report.Metrics,
		report.Anomalies, report.Assessments, len(report.Failures))

	return report, ctx.Err()
}

// runMetrics extracts, flags and persists metric records for one filing.
func (p *IngestPipeline) runMetrics(ctx context.Context, filing domain.Filing, chunks []domain.Chunk, report *driving.IngestReport) error {
	records, discarded, err := p.extractor.Extract(ctx, filing, chunks)
	report.Discarded += discarded
	if err != nil {
		return err
	}

	flagged := p.detector.Flag(records)
	for _, rec := range flagged {
		if err := p.metrics.UpsertMetric(ctx, rec); err != nil {
			report.Failures = append(report.Failures, driving.ItemFailure{
				Stage: "store", Item: rec.Name, Reason: err.Error(),
			})
			continue
		}
		report.Metrics++
		if rec.Anomaly {
			report.Anomalies++
		}
	}
	return nil
}

// runRisks scores risk-relevant text and persists the assessments.
// Keyword-derived assessments are persisted even when the model call
// failed, so partial results survive provider outages.
func (p *IngestPipeline) runRisks(ctx context.Context, filing domain.Filing, chunks []domain.Chunk, report *driving.IngestReport) error {
	company := domain.Company{
		CIK:    filing.CIK,
		Ticker: filing.Ticker,
		Name:   filing.CompanyName,
	}

	assessments, discarded, scoreErr := p.scorer.Score(ctx, company, filing.PeriodEnd, chunks)
	report.Discarded += discarded

	for _, a := range assessments {
		if err := p.risks.UpsertAssessment(ctx, a); err != nil {
			report.Failures = append(report.Failures, driving.ItemFailure{
				Stage: "store", Item: string(a.Category), Reason: err.Error(),
			})
			continue
		}
		report.Assessments++
	}

	return scoreErr
}

// upsertCompany keeps the company universe current from filing headers.
// Best effort: an existing record is preserved, a write failure is
// logged but never fails the filing.
func (p *IngestPipeline) upsertCompany(ctx context.Context, filing domain.Filing) {
	if p.companies == nil {
		return
	}
	if _, err := p.companies.GetCompany(ctx, filing.CIK); err == nil {
		return
	}
	company := domain.Company{
		CIK:    filing.CIK,
		Ticker: filing.Ticker,
		Name:   filing.CompanyName,
		Sector: domain.SectorFromSIC(""),
		Active: true,
	}
	if err := p.companies.UpsertCompany(ctx, company); err != nil {
		logger.Warn("Failed to register company %s: %v", filing.CIK, err)
	}
}

// IngestAll processes filings concurrently up to the worker limit. Each
// filing's outcome is independent; the only error that aborts the batch
// is context cancellation.
func (p *IngestPipeline) IngestAll(ctx context.Context, filings []domain.Filing) ([]driving.IngestReport, error) {
	if len(filings) == 0 {
		return []driving.IngestReport{}, nil
	}

	var mu sync.Mutex
	reports := make([]driving.IngestReport, 0, len(filings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, filing := range filings {
		filing := filing
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			report, err := p.IngestFiling(gctx, filing)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Warn("Filing %s failed: %v", filing.AccessionNumber, err)
				report = &driving.IngestReport{
					AccessionNumber: filing.AccessionNumber,
					Ticker:          filing.Ticker,
					Failures: []driving.ItemFailure{
						{Stage: "chunk", Item: filing.AccessionNumber, Reason: err.Error()},
					},
				}
			}
			mu.Lock()
			reports = append(reports, *report)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}
