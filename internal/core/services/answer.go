package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driving"
	"github.com/custodia-labs/filing-intel/internal/logger"
)

// DefaultTopK is the number of chunks retrieved per question when the
// caller does not specify one.
const DefaultTopK = 5

// AnswerService serves the interactive question path: resolve the
// company filter, retrieve, synthesize.
type AnswerService struct {
	retriever   *RetrievalEngine
	synthesizer *AnswerSynthesizer
	companies   driven.CompanyStore
}

// NewAnswerService creates an answer service.
func NewAnswerService(retriever *RetrievalEngine, synthesizer *AnswerSynthesizer, companies driven.CompanyStore) *AnswerService {
	return &AnswerService{
		retriever:   retriever,
		synthesizer: synthesizer,
		companies:   companies,
	}
}

var _ driving.Answerer = (*AnswerService)(nil)

// Ask answers a natural-language question from indexed filings. An
// unknown ticker is an input error, not an empty answer; an empty index
// produces an explicit low-confidence answer.
func (s *AnswerService) Ask(ctx context.Context, question string, opts driving.AskOptions) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	cik := ""
	if opts.Ticker != "" {
		company, err := s.companies.GetCompanyByTicker(ctx, strings.ToUpper(opts.Ticker))
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown ticker %q", domain.ErrInvalidInput, opts.Ticker)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve ticker %q: %w", opts.Ticker, err)
		}
		cik = company.CIK
	}

	retrieved, err := s.retriever.Retrieve(ctx, question, cik, topK)
	if err != nil {
		return nil, err
	}
	logger.Debug("Retrieved %d chunks for question", len(retrieved))

	return s.synthesizer.Synthesize(ctx, question, retrieved)
}
