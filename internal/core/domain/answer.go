package domain

import "time"

// Answer confidence labels.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Citation attributes part of an answer to a specific chunk.
type Citation struct {
	// ChunkID is the cited chunk.
	ChunkID string

	// Ticker is the company the chunk belongs to.
	Ticker string

	// FilingType is the type of the source filing.
	FilingType string

	// Section is the filing section of the chunk.
	Section string

	// PeriodEnd is the reporting period of the source filing.
	PeriodEnd time.Time

	// Similarity is the retrieval score of the cited chunk.
	Similarity float64
}

// Answer is a grounded natural-language answer with source attribution.
type Answer struct {
	// Text is the answer body.
	Text string

	// Confidence is one of the confidence labels. A low-confidence
	// answer is produced explicitly when retrieval finds nothing
	// relevant; the synthesizer never fabricates.
	Confidence string

	// Citations lists every chunk used to ground the answer, in
	// relevance order.
	Citations []Citation

	// Caveats lists limitations or uncertainties reported by the model.
	Caveats []string
}
