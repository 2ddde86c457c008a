package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
	"github.com/custodia-labs/filing-intel/internal/logger"
)

// Synthesis bounds.
const (
	// DefaultContextBudget is the maximum number of context characters
	// included in one generation request.
	DefaultContextBudget = 12000

	// DefaultMaxContextChunks bounds how many chunks one request cites.
	DefaultMaxContextChunks = 8

	// DefaultMinSimilarity is the score floor below which retrieved
	// chunks are considered irrelevant.
	DefaultMinSimilarity = 0.25
)

// noAnswerText is returned verbatim when retrieval produced nothing
// usable. An explicit low-confidence answer, never a fabricated one.
const noAnswerText = "I couldn't find relevant information in the indexed filings to answer your question."

const answerSystemPrompt = `You are a financial analyst assistant. Answer questions about companies
based only on the provided SEC filing excerpts. Be precise with financial
information and state uncertainty clearly.`

const defaultAnswerPrompt = `Based on the following SEC filing excerpts for %s, answer this question: %s

Context from SEC filings:
%s

Provide a clear, concise answer grounded in the excerpts. If the context
does not contain enough information to answer fully, say so.

Format your response as JSON:
{
  "answer": "your detailed answer",
  "confidence": "HIGH/MEDIUM/LOW",
  "caveats": ["any limitations or uncertainties"]
}`

// AnswerSynthesizer turns retrieved chunks into a grounded answer with
// source attribution.
type AnswerSynthesizer struct {
	llm           driven.LLMService
	prompts       driven.PromptStore
	retry         RetryPolicy
	contextBudget int
	maxChunks     int
	minSimilarity float64
}

// NewAnswerSynthesizer creates a synthesizer with default bounds.
func NewAnswerSynthesizer(llm driven.LLMService, retry RetryPolicy) *AnswerSynthesizer {
	return &AnswerSynthesizer{
		llm:           llm,
		retry:         retry.withDefaults(),
		contextBudget: DefaultContextBudget,
		maxChunks:     DefaultMaxContextChunks,
		minSimilarity: DefaultMinSimilarity,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the service uses hardcoded default prompts.
func (s *AnswerSynthesizer) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// SetMinSimilarity overrides the relevance floor.
func (s *AnswerSynthesizer) SetMinSimilarity(min float64) {
	s.minSimilarity = min
}

// answerResponse is the structured contract expected from the model.
type answerResponse struct {
	Answer     string   `json:"answer"`
	Confidence string   `json:"confidence"`
	Caveats    []string `json:"caveats"`
}

// Synthesize builds a grounded answer from retrieved chunks. When no
// chunk clears the relevance floor it returns an explicit low-confidence
// answer. Provider failure after retries surfaces as
// domain.ErrGenerationUnavailable, never as a silent empty answer.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, retrieved []domain.RetrievedChunk) (*domain.Answer, error) {
	usable := make([]domain.RetrievedChunk, 0, len(retrieved))
	for _, rc := range retrieved {
		if rc.Similarity >= s.minSimilarity {
			usable = append(usable, rc)
		}
	}
	if len(usable) == 0 {
		logger.Debug("No retrieved chunk above similarity floor %.2f", s.minSimilarity)
		return &domain.Answer{
			Text:       noAnswerText,
			Confidence: domain.ConfidenceLow,
			Citations:  []domain.Citation{},
			Caveats:    []string{"No relevant filing excerpts found"},
		}, nil
	}

	used, contextBlock := s.buildContext(usable)

	company := used[0].Chunk.Ticker
	if company == "" {
		company = "the company"
	}

	prompt := fmt.Sprintf(s.promptTemplate(), company, question, contextBlock)

	var response string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		response, err = s.llm.Generate(ctx, prompt, driven.GenerateOptions{
			System:      answerSystemPrompt,
			MaxTokens:   2048,
			Temperature: 0.3,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}

	citations := make([]domain.Citation, 0, len(used))
	for _, rc := range used {
		citations = append(citations, domain.Citation{
			ChunkID:    rc.Chunk.ID,
			Ticker:     rc.Chunk.Ticker,
			FilingType: rc.Chunk.FilingType,
			Section:    rc.Chunk.Section,
			PeriodEnd:  rc.Chunk.PeriodEnd,
			Similarity: rc.Similarity,
		})
	}

	var parsed answerResponse
	if !decodeModelJSON(response, &parsed) || parsed.Answer == "" {
		// Keep the raw text rather than discarding a usable answer,
		// but mark the confidence down.
		logger.Warn("Answer response not in expected JSON shape, using raw text")
		return &domain.Answer{
			Text:       strings.TrimSpace(response),
			Confidence: domain.ConfidenceLow,
			Citations:  citations,
			Caveats:    []string{"Response did not follow the structured format"},
		}, nil
	}

	confidence := strings.ToUpper(parsed.Confidence)
	switch confidence {
	case domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow:
	default:
		confidence = domain.ConfidenceLow
	}

	return &domain.Answer{
		Text:       parsed.Answer,
		Confidence: confidence,
		Citations:  citations,
		Caveats:    parsed.Caveats,
	}, nil
}

// buildContext assembles the context block in relevance order, bounded
// by chunk count and the character budget. Returns the chunks actually
// included so citations match the prompt exactly.
func (s *AnswerSynthesizer) buildContext(usable []domain.RetrievedChunk) ([]domain.RetrievedChunk, string) {
	var b strings.Builder
	var used []domain.RetrievedChunk

	for _, rc := range usable {
		if len(used) >= s.maxChunks {
			break
		}
		block := fmt.Sprintf("[Source: %s - %s filed %s]\n%s",
			rc.Chunk.Section, rc.Chunk.FilingType,
			rc.Chunk.PeriodEnd.Format("2006-01-02"), rc.Chunk.Text)
		if b.Len() > 0 && b.Len()+len(block) > s.contextBudget {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(block)
		used = append(used, rc)
	}

	return used, b.String()
}

func (s *AnswerSynthesizer) promptTemplate() string {
	if s.prompts != nil {
		if tmpl, err := s.prompts.Load(driven.PromptAnswer); err == nil && tmpl != "" {
			return tmpl
		}
	}
	return defaultAnswerPrompt
}
