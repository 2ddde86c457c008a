package domain

import "time"

// Filing types accepted by the pipeline.
const (
	FilingType10K = "10-K"
	FilingType10Q = "10-Q"
	FilingType8K  = "8-K"
)

// Filing is a single regulatory filing to be processed.
// It is the raw input to the pipeline, before chunking.
type Filing struct {
	// DocumentID is the unique identifier of the source document.
	DocumentID string

	// AccessionNumber is the regulator-assigned accession number (adsh).
	AccessionNumber string

	// CIK is the filer's Central Index Key.
	CIK string

	// Ticker is the stock ticker of the filer.
	Ticker string

	// CompanyName is the display name of the filer.
	CompanyName string

	// FilingType is one of 10-K, 10-Q or 8-K.
	FilingType string

	// PeriodEnd is the end date of the reporting period.
	PeriodEnd time.Time

	// Text is the full filing text.
	Text string

	// Facts holds structured financial line items when the source
	// provides them (metric name -> value in millions USD). When
	// present, metric extraction uses these directly instead of
	// parsing narrative text.
	Facts map[string]float64
}

// Chunk is a bounded span of filing text tagged with its source section
// and position. Chunks are immutable once created; reprocessing a filing
// produces new chunks and retires the old ones.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// CIK is the filer's Central Index Key.
	CIK string

	// Ticker is the stock ticker of the filer.
	Ticker string

	// FilingType is the type of the source filing.
	FilingType string

	// AccessionNumber identifies the source filing instance.
	AccessionNumber string

	// PeriodEnd is the end date of the reporting period.
	PeriodEnd time.Time

	// Section is the filing section this chunk was cut from.
	Section string

	// Text is the chunk content.
	Text string

	// Index is the ordinal position within the section, starting at zero.
	Index int

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// Embedding is the vector representation of exactly one chunk.
type Embedding struct {
	// ChunkID links to the source chunk.
	ChunkID string

	// CIK is carried for company-filtered candidate scans.
	CIK string

	// Vector is the fixed-dimension embedding.
	Vector []float32

	// Model is the embedding model that produced the vector. All
	// embeddings in one index must share the same model.
	Model string

	// ContentHash is the SHA-256 of the chunk text at embed time,
	// used to make reindexing idempotent.
	ContentHash string
}

// RetrievedChunk is a chunk scored against a query.
type RetrievedChunk struct {
	Chunk Chunk

	// Similarity is the cosine similarity to the query vector.
	Similarity float64
}
