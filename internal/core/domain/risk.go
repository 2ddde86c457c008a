package domain

import (
	"fmt"
	"strings"
	"time"
)

// RiskCategory is one of the six closed risk categories.
type RiskCategory string

// The closed risk category enumeration. Model output naming any other
// category is discarded, never coerced.
const (
	RiskFinancial   RiskCategory = "FINANCIAL"
	RiskOperational RiskCategory = "OPERATIONAL"
	RiskMarket      RiskCategory = "MARKET"
	RiskRegulatory  RiskCategory = "REGULATORY"
	RiskLitigation  RiskCategory = "LITIGATION"
	RiskAccounting  RiskCategory = "ACCOUNTING"
)

// RiskCategories lists every valid category.
var RiskCategories = []RiskCategory{
	RiskFinancial, RiskOperational, RiskMarket,
	RiskRegulatory, RiskLitigation, RiskAccounting,
}

// ParseRiskCategory maps freeform text onto the closed enumeration.
// It returns ErrValidationFailure for anything outside it.
func ParseRiskCategory(s string) (RiskCategory, error) {
	c := RiskCategory(strings.ToUpper(strings.TrimSpace(s)))
	for _, valid := range RiskCategories {
		if c == valid {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown risk category %q", ErrValidationFailure, s)
}

// SeverityScores maps model severity labels onto the 0-100 score scale.
var SeverityScores = map[string]float64{
	"LOW":      25,
	"MEDIUM":   50,
	"HIGH":     75,
	"CRITICAL": 100,
}

// RiskCategoryWeights weights categories when computing an overall
// company risk score. Accounting concerns weigh heaviest.
var RiskCategoryWeights = map[RiskCategory]float64{
	RiskAccounting:  1.5,
	RiskFinancial:   1.3,
	RiskLitigation:  1.2,
	RiskRegulatory:  1.1,
	RiskOperational: 1.0,
	RiskMarket:      0.9,
}

// RiskEvidence is a quoted span supporting an assessment, tied to the
// chunk it was drawn from.
type RiskEvidence struct {
	// ChunkID is the source chunk.
	ChunkID string

	// Quote is a verbatim span from the chunk text.
	Quote string
}

// RiskAssessment is a scored qualitative risk finding for one company,
// period and category. At most one assessment exists per
// (company, period, category); a new period produces a new assessment
// rather than updating in place, enabling trend tracking.
type RiskAssessment struct {
	// ID is the natural key "{cik}_{period}_{category}".
	ID string

	// CIK is the filer's Central Index Key.
	CIK string

	// Ticker is the stock ticker of the filer.
	Ticker string

	// PeriodEnd is the end date of the reporting period.
	PeriodEnd time.Time

	// Category is one of the closed categories.
	Category RiskCategory

	// Score is the numeric risk severity in [0, 100].
	Score float64

	// Summary is a human-readable description of the risk.
	Summary string

	// Evidence holds supporting quotes in order of importance.
	Evidence []RiskEvidence
}

// AssessmentID builds the natural key for a risk assessment.
func AssessmentID(cik string, periodEnd time.Time, category RiskCategory) string {
	return cik + "_" + periodEnd.Format("2006-01-02") + "_" + string(category)
}

// ClampScore bounds a score to the [0, 100] scale.
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
