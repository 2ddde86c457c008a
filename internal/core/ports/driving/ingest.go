package driving

import (
	"context"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

// Ingestor runs the batch pipeline over raw filings: chunking, indexing,
// metric extraction, anomaly flagging and risk scoring.
type Ingestor interface {
	// IngestFiling processes one filing end to end. Failures are scoped
	// to the smallest unit (one chunk, one metric, one risk category)
	// and reported in the result; the error return is reserved for
	// failures that prevent any progress at all.
	IngestFiling(ctx context.Context, filing domain.Filing) (*IngestReport, error)

	// IngestAll processes independent filings concurrently up to the
	// configured worker limit. It never aborts the batch for a single
	// filing; the only error it returns is context cancellation.
	IngestAll(ctx context.Context, filings []domain.Filing) ([]IngestReport, error)
}

// IngestReport summarises one filing's pass through the pipeline.
type IngestReport struct {
	// AccessionNumber identifies the filing.
	AccessionNumber string `json:"accession_number"`

	// Ticker is the filer's ticker.
	Ticker string `json:"ticker"`

	// Chunks is the number of chunks produced.
	Chunks int `json:"chunks"`

	// Indexed is the number of chunks with a stored embedding.
	Indexed int `json:"indexed"`

	// Metrics is the number of metric records persisted.
	Metrics int `json:"metrics"`

	// Anomalies is the number of metric records flagged.
	Anomalies int `json:"anomalies"`

	// Assessments is the number of risk assessments persisted.
	Assessments int `json:"assessments"`

	// WholeDocumentFallback is true when no section markers were found
	// and the filing was chunked as a single unstructured document.
	WholeDocumentFallback bool `json:"whole_document_fallback,omitempty"`

	// Discarded counts model outputs rejected by validation, for
	// extraction quality monitoring.
	Discarded int `json:"discarded,omitempty"`

	// Failures lists per-item failures that were skipped.
	Failures []ItemFailure `json:"failures,omitempty"`
}

// ItemFailure records one skipped unit of work.
type ItemFailure struct {
	// Stage is the pipeline stage (chunk, index, metrics, risk, store).
	Stage string `json:"stage"`

	// Item identifies the failed unit (chunk id, metric name, category).
	Item string `json:"item"`

	// Reason is the error message.
	Reason string `json:"reason"`
}
