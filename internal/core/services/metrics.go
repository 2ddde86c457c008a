package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
	"github.com/custodia-labs/filing-intel/internal/logger"
)

// DefaultExtractionBudget bounds the filing text sent to the model for
// narrative extraction, in characters.
const DefaultExtractionBudget = 10000

// Extraction confidence by path. Structured filing data is exact;
// model-parsed narrative text is not.
const (
	confidenceStructured = 1.0
	confidenceExtracted  = 0.7
)

const extractSystemPrompt = `You are a financial analyst extracting structured financial data from
SEC filings. Extract precise numerical values and return structured JSON.`

const defaultExtractPrompt = `Extract the following financial metrics from this SEC filing for %s.

Required metrics (values in millions USD unless noted; use null if not found):
%s

For each metric provide:
- value: the numerical value
- source: a brief quote showing where it was found

Return as JSON: {"metrics": {"metric_name": {"value": X, "source": "..."}}}

Filing text:
%s`

// MetricExtractor parses financial figures out of filings into typed
// metric records. Structured filing data is used directly when present;
// otherwise narrative text is parsed with the language model. Derived
// ratios are computed from raw line items, skipped when inputs are
// missing. Extraction is idempotent: records carry natural keys so
// re-runs replace rather than duplicate.
type MetricExtractor struct {
	llm        driven.LLMService
	store      driven.MetricStore
	prompts    driven.PromptStore
	retry      RetryPolicy
	textBudget int
}

// NewMetricExtractor creates a metric extractor.
func NewMetricExtractor(llm driven.LLMService, store driven.MetricStore, retry RetryPolicy) *MetricExtractor {
	return &MetricExtractor{
		llm:        llm,
		store:      store,
		retry:      retry.withDefaults(),
		textBudget: DefaultExtractionBudget,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the service uses hardcoded default prompts.
func (e *MetricExtractor) SetPromptStore(store driven.PromptStore) {
	e.prompts = store
}

// extractedMetric is the per-metric contract expected from the model.
type extractedMetric struct {
	Value  *float64 `json:"value"`
	Source string   `json:"source"`
}

// extractResponse is the structured contract expected from the model.
type extractResponse struct {
	Metrics map[string]extractedMetric `json:"metrics"`
}

// Extract produces metric records for one filing. Returns the records,
// the count of model outputs discarded by validation, and an error only
// when no extraction path could run at all.
func (e *MetricExtractor) Extract(ctx context.Context, filing domain.Filing, chunks []domain.Chunk) ([]domain.MetricRecord, int, error) {
	raw := make(map[string]float64)
	discarded := 0
	source := "structured"
	confidence := confidenceStructured
	sourceChunk := ""

	if len(filing.Facts) > 0 {
		for name, value := range filing.Facts {
			if !domain.IsRawMetric(name) {
				logger.Warn("Structured fact %q not in catalogue, discarding", name)
				discarded++
				continue
			}
			raw[name] = value
		}
	} else {
		extracted, chunkID, n, err := e.extractFromText(ctx, filing, chunks)
		if err != nil {
			return nil, discarded, err
		}
		raw = extracted
		discarded += n
		source = "extracted"
		confidence = confidenceExtracted
		sourceChunk = chunkID
	}

	prior, err := e.store.PriorValues(ctx, filing.CIK, filing.PeriodEnd)
	if err != nil {
		return nil, discarded, fmt.Errorf("prior values for %s: %w", filing.CIK, err)
	}

	var records []domain.MetricRecord

	// Raw line items, in catalogue order for deterministic output.
	for _, name := range domain.RawMetricNames {
		value, ok := raw[name]
		if !ok {
			continue
		}
		unit := domain.UnitMillionsUSD
		if name == domain.MetricEPS {
			unit = domain.UnitUSD
		}
		records = append(records, e.newRecord(filing, name, value, unit, source, confidence, sourceChunk, prior))
	}

	// Derived ratios, skipped (not zero-filled) when inputs are missing.
	for _, d := range domain.DerivedMetrics {
		value, ok := d.Compute(raw)
		if !ok {
			continue
		}
		records = append(records, e.newRecord(filing, d.Name, round2(value), d.Unit, "computed", confidence, sourceChunk, prior))
	}

	return records, discarded, nil
}

func (e *MetricExtractor) newRecord(
	filing domain.Filing,
	name string,
	value float64,
	unit, source string,
	confidence float64,
	sourceChunk string,
	prior map[string]float64,
) domain.MetricRecord {
	rec := domain.MetricRecord{
		ID:         domain.MetricID(filing.CIK, filing.PeriodEnd, name),
		CIK:        filing.CIK,
		Ticker:     filing.Ticker,
		FilingType: filing.FilingType,
		PeriodEnd:  filing.PeriodEnd,
		Name:       name,
		Value:      value,
		Unit:       unit,
		Metadata: map[string]any{
			"source":     source,
			"confidence": confidence,
		},
	}
	if sourceChunk != "" {
		rec.Metadata["source_chunk_id"] = sourceChunk
	}

	// Year-over-year change only when a prior-period value exists.
	if prev, ok := prior[name]; ok && prev != 0 {
		change := round2((value - prev) / prev * 100)
		rec.YoYChange = &change
	}

	return rec
}

// extractFromText runs the language-model extraction path. Returns the
// validated raw metrics, the id of the first source chunk for
// provenance, and the count of discarded outputs.
func (e *MetricExtractor) extractFromText(ctx context.Context, filing domain.Filing, chunks []domain.Chunk) (map[string]float64, string, int, error) {
	text, chunkID := e.selectFinancialText(filing, chunks)
	if strings.TrimSpace(text) == "" {
		return map[string]float64{}, "", 0, nil
	}

	prompt := fmt.Sprintf(e.promptTemplate(), filing.CompanyName, metricCatalogueList(), text)

	var response string
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		response, err = e.llm.Generate(ctx, prompt, driven.GenerateOptions{
			System:      extractSystemPrompt,
			MaxTokens:   2048,
			Temperature: 0.1,
		})
		return err
	})
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: extract metrics: %w", domain.ErrGenerationUnavailable, err)
	}

	var parsed extractResponse
	if !decodeModelJSON(response, &parsed) {
		return nil, "", 1, fmt.Errorf("%w: metric extraction response is not valid JSON", domain.ErrValidationFailure)
	}

	raw := make(map[string]float64, len(parsed.Metrics))
	discarded := 0
	for name, m := range parsed.Metrics {
		name = strings.ToLower(strings.TrimSpace(name))
		if !domain.IsRawMetric(name) {
			logger.Warn("Model returned metric %q outside the catalogue, discarding", name)
			discarded++
			continue
		}
		if m.Value == nil {
			continue // metric not found in the filing, per contract
		}
		raw[name] = *m.Value
	}

	return raw, chunkID, discarded, nil
}

// selectFinancialText gathers the most financially dense text available:
// financial-statement and MD&A chunks first, then the raw filing text as
// a fallback, truncated to the extraction budget.
func (e *MetricExtractor) selectFinancialText(filing domain.Filing, chunks []domain.Chunk) (string, string) {
	var b strings.Builder
	chunkID := ""

	for _, section := range domain.FinancialSections {
		for _, c := range chunks {
			if c.Section != section {
				continue
			}
			if b.Len()+len(c.Text) > e.textBudget {
				return b.String(), chunkID
			}
			if chunkID == "" {
				chunkID = c.ID
			}
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(c.Text)
		}
	}

	if b.Len() > 0 {
		return b.String(), chunkID
	}

	text := filing.Text
	if len(text) > e.textBudget {
		text = text[:e.textBudget]
	}
	return text, ""
}

func (e *MetricExtractor) promptTemplate() string {
	if e.prompts != nil {
		if tmpl, err := e.prompts.Load(driven.PromptExtractMetrics); err == nil && tmpl != "" {
			return tmpl
		}
	}
	return defaultExtractPrompt
}

// metricCatalogueList renders the raw catalogue for the prompt.
func metricCatalogueList() string {
	return "- " + strings.Join(domain.RawMetricNames, "\n- ")
}

// round2 rounds to two decimal places, matching the stored precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
