package driving

import (
	"context"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

// AskOptions configures a question against the knowledge base.
type AskOptions struct {
	// Ticker restricts retrieval to one company when non-empty.
	Ticker string

	// TopK is the number of chunks to retrieve (default applies when 0).
	TopK int
}

// Answerer serves the interactive question path: retrieval followed by
// grounded answer synthesis. This path is latency-sensitive and must
// complete within the caller's context deadline.
type Answerer interface {
	// Ask answers a natural-language question from indexed filings.
	Ask(ctx context.Context, question string, opts AskOptions) (*domain.Answer, error)
}
