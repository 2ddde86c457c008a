package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

var testCompany = domain.Company{
	CIK:    "cik-a",
	Ticker: "TEST",
	Name:   "Test Corp",
}

func riskChunk(id, section, text string) domain.Chunk {
	return domain.Chunk{
		ID:      id,
		CIK:     "cik-a",
		Ticker:  "TEST",
		Section: section,
		Text:    text,
	}
}

func assessmentFor(assessments []domain.RiskAssessment, category domain.RiskCategory) *domain.RiskAssessment {
	for i := range assessments {
		if assessments[i].Category == category {
			return &assessments[i]
		}
	}
	return nil
}

func TestRiskScorer_ValidFinding(t *testing.T) {
	chunkText := "The company is exposed to significant currency fluctuations in international markets."
	llm := &mockLLMService{responses: []string{
		`{"risks": [{
			"category": "MARKET",
			"severity": "HIGH",
			"description": "Currency exposure",
			"evidence": "exposed to significant currency fluctuations"
		}]}`,
	}}
	scorer := NewRiskScorer(llm, quickRetry())

	period := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	chunks := []domain.Chunk{riskChunk("c1", domain.SectionRiskFactors, chunkText)}

	assessments, discarded, err := scorer.Score(context.Background(), testCompany, period, chunks)
	require.NoError(t, err)
	assert.Equal(t, 0, discarded)

	market := assessmentFor(assessments, domain.RiskMarket)
	require.NotNil(t, market)
	assert.Equal(t, 75.0, market.Score)
	assert.Equal(t, "Currency exposure", market.Summary)
	assert.Equal(t, domain.AssessmentID("cik-a", period, domain.RiskMarket), market.ID)
	require.Len(t, market.Evidence, 1)
	assert.Equal(t, "c1", market.Evidence[0].ChunkID)
}

func TestRiskScorer_DiscardsInvalidCategory(t *testing.T) {
	llm := &mockLLMService{responses: []string{
		`{"risks": [{
			"category": "CYBERSECURITY",
			"severity": "HIGH",
			"description": "Not in the closed set",
			"evidence": "some text"
		}]}`,
	}}
	scorer := NewRiskScorer(llm, quickRetry())

	chunks := []domain.Chunk{riskChunk("c1", domain.SectionRiskFactors, "some text about the business")}
	assessments, discarded, err := scorer.Score(context.Background(), testCompany, time.Now(), chunks)
	require.NoError(t, err)

	assert.Equal(t, 1, discarded)
	assert.Nil(t, assessmentFor(assessments, "CYBERSECURITY"))
}

func TestRiskScorer_DiscardsUnknownSeverity(t *testing.T) {
	llm := &mockLLMService{responses: []string{
		`{"risks": [{
			"category": "MARKET",
			"severity": "EXTREME",
			"description": "Bad severity label",
			"evidence": "competitive pressure"
		}]}`,
	}}
	scorer := NewRiskScorer(llm, quickRetry())

	chunks := []domain.Chunk{riskChunk("c1", domain.SectionRiskFactors, "The firm faces competitive pressure abroad.")}
	assessments, discarded, err := scorer.Score(context.Background(), testCompany, time.Now(), chunks)
	require.NoError(t, err)

	assert.Equal(t, 1, discarded)
	assert.Nil(t, assessmentFor(assessments, domain.RiskMarket))
}

func TestRiskScorer_DiscardsEvidenceNotInChunks(t *testing.T) {
	llm := &mockLLMService{responses: []string{
		`{"risks": [{
			"category": "MARKET",
			"severity": "HIGH",
			"description": "Fabricated evidence",
			"evidence": "this quote appears nowhere in the filing"
		}]}`,
	}}
	scorer := NewRiskScorer(llm, quickRetry())

	chunks := []domain.Chunk{riskChunk("c1", domain.SectionRiskFactors, "Entirely different filing text.")}
	assessments, discarded, err := scorer.Score(context.Background(), testCompany, time.Now(), chunks)
	require.NoError(t, err)

	assert.Equal(t, 1, discarded)
	assert.Nil(t, assessmentFor(assessments, domain.RiskMarket))
}

func TestRiskScorer_EvidenceSurvivesWhitespaceWrapping(t *testing.T) {
	chunkText := "The company faces\n  substantial  competitive\npressure in core markets."
	llm := &mockLLMService{responses: []string{
		`{"risks": [{
			"category": "MARKET",
			"severity": "MEDIUM",
			"description": "Competition",
			"evidence": "faces substantial competitive pressure"
		}]}`,
	}}
	scorer := NewRiskScorer(llm, quickRetry())

	chunks := []domain.Chunk{riskChunk("c1", domain.SectionRiskFactors, chunkText)}
	assessments, discarded, err := scorer.Score(context.Background(), testCompany, time.Now(), chunks)
	require.NoError(t, err)

	assert.Equal(t, 0, discarded)
	assert.NotNil(t, assessmentFor(assessments, domain.RiskMarket))
}

func TestRiskScorer_OneAssessmentPerCategory(t *testing.T) {
	chunkText := "Competitive pressure is intense. Market share may decline further this year."
	llm := &mockLLMService{responses: []string{
		`{"risks": [
			{"category": "MARKET", "severity": "HIGH", "description": "first", "evidence": "Competitive pressure is intense"},
			{"category": "MARKET", "severity": "LOW", "description": "second", "evidence": "Market share may decline"}
		]}`,
	}}
	scorer := NewRiskScorer(llm, quickRetry())

	chunks := []domain.Chunk{riskChunk("c1", domain.SectionRiskFactors, chunkText)}
	assessments, _, err := scorer.Score(context.Background(), testCompany, time.Now(), chunks)
	require.NoError(t, err)

	market := assessmentFor(assessments, domain.RiskMarket)
	require.NotNil(t, market)
	assert.Equal(t, "first", market.Summary)

	count := 0
	for _, a := range assessments {
		if a.Category == domain.RiskMarket {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRiskScorer_KeywordFallback(t *testing.T) {
	// Model finds nothing, but the text mentions pending litigation.
	llm := &mockLLMService{responses: []string{`{"risks": []}`}}
	scorer := NewRiskScorer(llm, quickRetry())

	chunkText := "The company is a defendant in a class action lawsuit filed in Delaware."
	period := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	chunks := []domain.Chunk{riskChunk("c1", domain.SectionLegalProceedings, chunkText)}

	assessments, _, err := scorer.Score(context.Background(), testCompany, period, chunks)
	require.NoError(t, err)

	litigation := assessmentFor(assessments, domain.RiskLitigation)
	require.NotNil(t, litigation)
	assert.Equal(t, 50.0, litigation.Score)
	require.Len(t, litigation.Evidence, 1)
	assert.Equal(t, "c1", litigation.Evidence[0].ChunkID)
	assert.Contains(t, chunkText, litigation.Evidence[0].Quote)
}

func TestRiskScorer_ModelFindingBeatsKeywordFallback(t *testing.T) {
	chunkText := "The company is a defendant in a class action lawsuit filed in Delaware."
	llm := &mockLLMService{responses: []string{
		`{"risks": [{
			"category": "LITIGATION",
			"severity": "CRITICAL",
			"description": "Class action",
			"evidence": "defendant in a class action lawsuit"
		}]}`,
	}}
	scorer := NewRiskScorer(llm, quickRetry())

	chunks := []domain.Chunk{riskChunk("c1", domain.SectionLegalProceedings, chunkText)}
	assessments, _, err := scorer.Score(context.Background(), testCompany, time.Now(), chunks)
	require.NoError(t, err)

	litigation := assessmentFor(assessments, domain.RiskLitigation)
	require.NotNil(t, litigation)
	assert.Equal(t, 100.0, litigation.Score, "model finding wins over the keyword fallback")
}

func TestRiskScorer_ProviderDownKeepsKeywordFindings(t *testing.T) {
	llm := &mockLLMService{generateErr: errors.New("overloaded")}
	scorer := NewRiskScorer(llm, quickRetry())

	chunkText := "An SEC inquiry into revenue recognition practices is ongoing."
	chunks := []domain.Chunk{riskChunk("c1", domain.SectionRiskFactors, chunkText)}

	assessments, _, err := scorer.Score(context.Background(), testCompany, time.Now(), chunks)
	assert.ErrorIs(t, err, domain.ErrScoringUnavailable)

	regulatory := assessmentFor(assessments, domain.RiskRegulatory)
	require.NotNil(t, regulatory, "keyword findings survive provider failure")
	assert.Equal(t, 50.0, regulatory.Score)
}

func TestRiskScorer_NoChunks(t *testing.T) {
	scorer := NewRiskScorer(&mockLLMService{}, quickRetry())

	assessments, discarded, err := scorer.Score(context.Background(), testCompany, time.Now(), nil)
	require.NoError(t, err)
	assert.Empty(t, assessments)
	assert.Equal(t, 0, discarded)
}

func TestOverallRiskScore(t *testing.T) {
	assert.Equal(t, 0.0, OverallRiskScore(nil))

	// Single assessment: the weighted average equals its score.
	single := []domain.RiskAssessment{{Category: domain.RiskMarket, Score: 60}}
	assert.Equal(t, 60.0, OverallRiskScore(single))

	// Accounting (weight 1.5) pulls the average above the midpoint of an
	// equal-weight mix with market (weight 0.9).
	mixed := []domain.RiskAssessment{
		{Category: domain.RiskAccounting, Score: 100},
		{Category: domain.RiskMarket, Score: 0},
	}
	got := OverallRiskScore(mixed)
	assert.Greater(t, got, 50.0)
	assert.InDelta(t, 100*1.5/(1.5+0.9), got, 0.01)
}
