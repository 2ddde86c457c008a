package domain

// Canonical filing section names produced by the chunker.
// These match the item headings of 10-K/10-Q filings.
const (
	SectionBusiness            = "BUSINESS"
	SectionRiskFactors         = "RISK_FACTORS"
	SectionLegalProceedings    = "LEGAL_PROCEEDINGS"
	SectionMDA                 = "MD&A"
	SectionFinancialStatements = "FINANCIAL_STATEMENTS"
	SectionControls            = "CONTROLS"

	// SectionFullText marks chunks produced by the whole-document
	// fallback when no section markers were found.
	SectionFullText = "FULL_TEXT"
)

// RiskRelevantSections are the sections the risk scorer reads.
var RiskRelevantSections = []string{
	SectionRiskFactors,
	SectionLegalProceedings,
	SectionControls,
	SectionMDA,
}

// FinancialSections are the sections the metric extractor prefers when
// selecting narrative text for LLM-assisted extraction.
var FinancialSections = []string{
	SectionFinancialStatements,
	SectionMDA,
}
