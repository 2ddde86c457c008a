package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
	"github.com/custodia-labs/filing-intel/internal/logger"
)

// DefaultScoringBudget bounds the risk-relevant text sent to the model,
// in characters.
const DefaultScoringBudget = 8000

const scoreSystemPrompt = `You are a financial analyst specialising in SEC filing analysis. Identify
key risks and red flags in the provided text and return structured JSON.`

const defaultScorePrompt = `Analyze the following SEC filing excerpts for %s.
Identify and categorize risks into exactly these categories:
- FINANCIAL: financial and credit risks
- OPERATIONAL: operational and business risks
- MARKET: market and competitive risks
- REGULATORY: regulatory and compliance risks
- LITIGATION: legal proceedings and litigation risks
- ACCOUNTING: accounting and reporting concerns

For each risk found provide:
- category: one of the categories above
- severity: LOW, MEDIUM, HIGH or CRITICAL
- description: brief description of the risk
- evidence: a verbatim quote from the text supporting this finding

Return as JSON: {"risks": [...]}

Filing text:
%s`

// redFlagKeywords backs the keyword fallback: when the model misses a
// category, a direct mention of one of these terms still produces a
// medium-severity finding with the surrounding text as evidence.
var redFlagKeywords = map[domain.RiskCategory][]string{
	domain.RiskLitigation: {
		"lawsuit", "litigation", "legal proceedings", "plaintiff",
		"defendant", "settlement", "damages", "injunction",
	},
	domain.RiskAccounting: {
		"restatement", "material weakness", "going concern",
		"auditor change", "internal control deficiency", "irregularities",
	},
	domain.RiskFinancial: {
		"default", "covenant violation", "liquidity concerns",
		"credit downgrade", "impairment", "write-off",
	},
	domain.RiskRegulatory: {
		"investigation", "subpoena", "SEC inquiry", "DOJ",
		"enforcement action", "consent decree", "penalty",
	},
}

// keywordContextWindow is the number of characters quoted on each side
// of a matched red-flag keyword.
const keywordContextWindow = 100

// RiskScorer classifies and scores qualitative risk statements into the
// closed category set. Model output is validated before anything is
// persisted: unknown categories, unknown severities and evidence not
// drawn verbatim from the input chunks are discarded, never coerced.
type RiskScorer struct {
	llm        driven.LLMService
	prompts    driven.PromptStore
	retry      RetryPolicy
	textBudget int
}

// NewRiskScorer creates a risk scorer.
func NewRiskScorer(llm driven.LLMService, retry RetryPolicy) *RiskScorer {
	return &RiskScorer{
		llm:        llm,
		retry:      retry.withDefaults(),
		textBudget: DefaultScoringBudget,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the service uses hardcoded default prompts.
func (s *RiskScorer) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// riskFinding is the per-risk contract expected from the model.
type riskFinding struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Evidence    string `json:"evidence"`
}

// riskResponse is the structured contract expected from the model.
type riskResponse struct {
	Risks []riskFinding `json:"risks"`
}

// Score produces at most one assessment per category for the given
// company and period. It returns the assessments, the number of model
// findings discarded by validation, and an error.
//
// On persistent provider failure the error is
// domain.ErrScoringUnavailable and the returned assessments contain
// keyword-derived findings only; partial success is reported per
// category, not treated as all-or-nothing.
func (s *RiskScorer) Score(ctx context.Context, company domain.Company, periodEnd time.Time, chunks []domain.Chunk) ([]domain.RiskAssessment, int, error) {
	relevant := filterSections(chunks, domain.RiskRelevantSections)
	if len(relevant) == 0 {
		relevant = chunks
	}
	if len(relevant) == 0 {
		return nil, 0, nil
	}

	findings, discarded, llmErr := s.modelFindings(ctx, company, periodEnd, relevant)

	seen := make(map[domain.RiskCategory]bool)
	var assessments []domain.RiskAssessment
	for _, f := range findings {
		if seen[f.Category] {
			continue
		}
		seen[f.Category] = true
		assessments = append(assessments, f)
	}

	// Keyword fallback for categories the model missed.
	for _, f := range s.keywordFindings(company, periodEnd, relevant) {
		if seen[f.Category] {
			continue
		}
		seen[f.Category] = true
		assessments = append(assessments, f)
	}

	if llmErr != nil {
		return assessments, discarded, fmt.Errorf("%w: %w", domain.ErrScoringUnavailable, llmErr)
	}
	return assessments, discarded, nil
}

// modelFindings runs the LLM classification and validates each finding
// against the closed contract.
func (s *RiskScorer) modelFindings(ctx context.Context, company domain.Company, periodEnd time.Time, chunks []domain.Chunk) ([]domain.RiskAssessment, int, error) {
	text := joinChunkText(chunks, s.textBudget)
	prompt := fmt.Sprintf(s.promptTemplate(), company.Name, text)

	var response string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		response, err = s.llm.Generate(ctx, prompt, driven.GenerateOptions{
			System:      scoreSystemPrompt,
			MaxTokens:   2048,
			Temperature: 0.3,
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	var parsed riskResponse
	if !decodeModelJSON(response, &parsed) {
		logger.Warn("Risk response for %s is not valid JSON, discarding", company.Ticker)
		return nil, 1, nil
	}

	var out []domain.RiskAssessment
	discarded := 0
	for _, f := range parsed.Risks {
		a, ok := s.validateFinding(company, periodEnd, f, chunks)
		if !ok {
			discarded++
			continue
		}
		out = append(out, a)
	}
	return out, discarded, nil
}

// validateFinding enforces the structural contract on one model finding.
func (s *RiskScorer) validateFinding(company domain.Company, periodEnd time.Time, f riskFinding, chunks []domain.Chunk) (domain.RiskAssessment, bool) {
	category, err := domain.ParseRiskCategory(f.Category)
	if err != nil {
		logger.Warn("Discarding finding with category %q", f.Category)
		return domain.RiskAssessment{}, false
	}

	score, ok := domain.SeverityScores[strings.ToUpper(strings.TrimSpace(f.Severity))]
	if !ok {
		logger.Warn("Discarding %s finding with severity %q", category, f.Severity)
		return domain.RiskAssessment{}, false
	}

	quote := strings.TrimSpace(f.Evidence)
	chunkID, ok := findEvidenceChunk(quote, chunks)
	if !ok {
		logger.Warn("Discarding %s finding: evidence not found in input chunks", category)
		return domain.RiskAssessment{}, false
	}

	return domain.RiskAssessment{
		ID:        domain.AssessmentID(company.CIK, periodEnd, category),
		CIK:       company.CIK,
		Ticker:    company.Ticker,
		PeriodEnd: periodEnd,
		Category:  category,
		Score:     domain.ClampScore(score),
		Summary:   strings.TrimSpace(f.Description),
		Evidence:  []domain.RiskEvidence{{ChunkID: chunkID, Quote: quote}},
	}, true
}

// keywordFindings scans chunk text for red-flag terms, producing one
// medium-severity finding per category at most. Evidence is the raw
// context around the match, so it always validates.
func (s *RiskScorer) keywordFindings(company domain.Company, periodEnd time.Time, chunks []domain.Chunk) []domain.RiskAssessment {
	var out []domain.RiskAssessment

	for _, category := range domain.RiskCategories {
		keywords, ok := redFlagKeywords[category]
		if !ok {
			continue
		}
	chunkLoop:
		for _, c := range chunks {
			lower := strings.ToLower(c.Text)
			for _, kw := range keywords {
				idx := strings.Index(lower, strings.ToLower(kw))
				if idx < 0 {
					continue
				}
				start := idx - keywordContextWindow
				if start < 0 {
					start = 0
				}
				end := idx + len(kw) + keywordContextWindow
				if end > len(c.Text) {
					end = len(c.Text)
				}
				out = append(out, domain.RiskAssessment{
					ID:        domain.AssessmentID(company.CIK, periodEnd, category),
					CIK:       company.CIK,
					Ticker:    company.Ticker,
					PeriodEnd: periodEnd,
					Category:  category,
					Score:     domain.SeverityScores["MEDIUM"],
					Summary:   fmt.Sprintf("Mention of %q detected", kw),
					Evidence:  []domain.RiskEvidence{{ChunkID: c.ID, Quote: c.Text[start:end]}},
				})
				break chunkLoop
			}
		}
	}

	return out
}

// findEvidenceChunk locates the chunk a quote was drawn from. Whitespace
// is normalised on both sides so line wrapping does not invalidate an
// otherwise verbatim quote. Empty quotes never validate.
func findEvidenceChunk(quote string, chunks []domain.Chunk) (string, bool) {
	normalised := normaliseSpace(quote)
	if normalised == "" {
		return "", false
	}
	for _, c := range chunks {
		if strings.Contains(normaliseSpace(c.Text), normalised) {
			return c.ID, true
		}
	}
	return "", false
}

func normaliseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// filterSections returns the chunks belonging to any of the named
// sections, preserving order.
func filterSections(chunks []domain.Chunk, sections []string) []domain.Chunk {
	wanted := make(map[string]bool, len(sections))
	for _, s := range sections {
		wanted[s] = true
	}
	var out []domain.Chunk
	for _, c := range chunks {
		if wanted[c.Section] {
			out = append(out, c)
		}
	}
	return out
}

// joinChunkText concatenates chunk texts up to the character budget.
func joinChunkText(chunks []domain.Chunk, budget int) string {
	var b strings.Builder
	for _, c := range chunks {
		if b.Len() > 0 && b.Len()+len(c.Text) > budget {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(c.Text)
	}
	s := b.String()
	if len(s) > budget {
		s = s[:budget]
	}
	return s
}

func (s *RiskScorer) promptTemplate() string {
	if s.prompts != nil {
		if tmpl, err := s.prompts.Load(driven.PromptScoreRisks); err == nil && tmpl != "" {
			return tmpl
		}
	}
	return defaultScorePrompt
}

// OverallRiskScore computes a category-weighted average score across
// assessments. Returns 0 for an empty slice.
func OverallRiskScore(assessments []domain.RiskAssessment) float64 {
	if len(assessments) == 0 {
		return 0
	}

	var weightedSum, totalWeight float64
	for _, a := range assessments {
		weight, ok := domain.RiskCategoryWeights[a.Category]
		if !ok {
			weight = 1.0
		}
		weightedSum += a.Score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return round2(weightedSum / totalWeight)
}
