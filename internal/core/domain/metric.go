package domain

import "time"

// Metric units.
const (
	UnitMillionsUSD = "millions_usd"
	UnitPercent     = "percent"
	UnitRatio       = "ratio"
	UnitUSD         = "usd"
)

// Raw financial line items the extractor knows about. Values are in
// millions USD unless noted. This catalogue is closed: extracted metric
// names outside it are discarded as validation failures.
const (
	MetricRevenue            = "revenue"
	MetricGrossProfit        = "gross_profit"
	MetricOperatingIncome    = "operating_income"
	MetricNetIncome          = "net_income"
	MetricTotalAssets        = "total_assets"
	MetricTotalLiabilities   = "total_liabilities"
	MetricShareholdersEquity = "shareholders_equity"
	MetricTotalDebt          = "total_debt"
	MetricCurrentAssets      = "current_assets"
	MetricCurrentLiabilities = "current_liabilities"
	MetricInventory          = "inventory"
	MetricEBIT               = "ebit"
	MetricInterestExpense    = "interest_expense"
	MetricDepreciation       = "depreciation"
	MetricEPS                = "eps" // unit: usd
)

// Derived ratio names.
const (
	MetricGrossMargin      = "gross_margin"
	MetricOperatingMargin  = "operating_margin"
	MetricNetMargin        = "net_margin"
	MetricROE              = "roe"
	MetricROA              = "roa"
	MetricDebtToEquity     = "debt_to_equity"
	MetricCurrentRatio     = "current_ratio"
	MetricQuickRatio       = "quick_ratio"
	MetricInterestCoverage = "interest_coverage"
	MetricDebtToEBITDA     = "debt_to_ebitda"
)

// RawMetricNames lists every raw line item in the catalogue.
var RawMetricNames = []string{
	MetricRevenue, MetricGrossProfit, MetricOperatingIncome, MetricNetIncome,
	MetricTotalAssets, MetricTotalLiabilities, MetricShareholdersEquity,
	MetricTotalDebt, MetricCurrentAssets, MetricCurrentLiabilities,
	MetricInventory, MetricEBIT, MetricInterestExpense, MetricDepreciation,
	MetricEPS,
}

// IsRawMetric reports whether name is part of the raw line item catalogue.
func IsRawMetric(name string) bool {
	for _, n := range RawMetricNames {
		if n == name {
			return true
		}
	}
	return false
}

// DerivedMetric defines a ratio computed from raw line items.
// Compute returns false when a required input is missing or the
// denominator is zero; derivation is then skipped, never zero-filled.
type DerivedMetric struct {
	Name    string
	Unit    string
	Compute func(raw map[string]float64) (float64, bool)
}

// ratio is a helper for numerator/denominator metrics.
func ratio(raw map[string]float64, num, den string, scale float64) (float64, bool) {
	n, okN := raw[num]
	d, okD := raw[den]
	if !okN || !okD || d == 0 {
		return 0, false
	}
	return n / d * scale, true
}

// DerivedMetrics is the closed table of computed ratios.
var DerivedMetrics = []DerivedMetric{
	{Name: MetricGrossMargin, Unit: UnitPercent, Compute: func(m map[string]float64) (float64, bool) {
		return ratio(m, MetricGrossProfit, MetricRevenue, 100)
	}},
	{Name: MetricOperatingMargin, Unit: UnitPercent, Compute: func(m map[string]float64) (float64, bool) {
		return ratio(m, MetricOperatingIncome, MetricRevenue, 100)
	}},
	{Name: MetricNetMargin, Unit: UnitPercent, Compute: func(m map[string]float64) (float64, bool) {
		return ratio(m, MetricNetIncome, MetricRevenue, 100)
	}},
	{Name: MetricROE, Unit: UnitPercent, Compute: func(m map[string]float64) (float64, bool) {
		return ratio(m, MetricNetIncome, MetricShareholdersEquity, 100)
	}},
	{Name: MetricROA, Unit: UnitPercent, Compute: func(m map[string]float64) (float64, bool) {
		return ratio(m, MetricNetIncome, MetricTotalAssets, 100)
	}},
	{Name: MetricDebtToEquity, Unit: UnitRatio, Compute: func(m map[string]float64) (float64, bool) {
		return ratio(m, MetricTotalDebt, MetricShareholdersEquity, 1)
	}},
	{Name: MetricCurrentRatio, Unit: UnitRatio, Compute: func(m map[string]float64) (float64, bool) {
		return ratio(m, MetricCurrentAssets, MetricCurrentLiabilities, 1)
	}},
	{Name: MetricQuickRatio, Unit: UnitRatio, Compute: func(m map[string]float64) (float64, bool) {
		ca, okA := m[MetricCurrentAssets]
		inv, okI := m[MetricInventory]
		cl, okL := m[MetricCurrentLiabilities]
		if !okA || !okI || !okL || cl == 0 {
			return 0, false
		}
		return (ca - inv) / cl, true
	}},
	{Name: MetricInterestCoverage, Unit: UnitRatio, Compute: func(m map[string]float64) (float64, bool) {
		return ratio(m, MetricEBIT, MetricInterestExpense, 1)
	}},
	{Name: MetricDebtToEBITDA, Unit: UnitRatio, Compute: func(m map[string]float64) (float64, bool) {
		debt, okD := m[MetricTotalDebt]
		ebit, okE := m[MetricEBIT]
		dep, okP := m[MetricDepreciation]
		if !okD || !okE || !okP || ebit+dep == 0 {
			return 0, false
		}
		return debt / (ebit + dep), true
	}},
}

// MetricRecord is one extracted or derived metric value for a company
// and reporting period. Records are keyed by (CIK, period, name):
// re-extraction replaces rather than duplicates.
type MetricRecord struct {
	// ID is the natural key "{cik}_{period}_{name}".
	ID string

	// CIK is the filer's Central Index Key.
	CIK string

	// Ticker is the stock ticker of the filer.
	Ticker string

	// FilingType is the type of the source filing.
	FilingType string

	// PeriodEnd is the end date of the reporting period.
	PeriodEnd time.Time

	// Name is a catalogue metric name.
	Name string

	// Value is the numeric value in Unit.
	Value float64

	// Unit is one of the unit constants.
	Unit string

	// YoYChange is the percent change against the prior period, nil
	// when no prior-period value exists.
	YoYChange *float64

	// Anomaly is set by the anomaly detector.
	Anomaly bool

	// Metadata records extraction provenance: source ("structured",
	// "extracted" or "computed"), source chunk id and confidence.
	Metadata map[string]any
}

// MetricID builds the natural key for a metric record.
func MetricID(cik string, periodEnd time.Time, name string) string {
	return cik + "_" + periodEnd.Format("2006-01-02") + "_" + name
}

// AnomalyThreshold bounds a metric. A value outside [Min, Max] is
// flagged as a likely extraction error; a year-over-year change whose
// magnitude strictly exceeds MaxYoYChange (in percent) is flagged as an
// abnormal move. A MaxYoYChange of zero disables the YoY rule.
type AnomalyThreshold struct {
	Min          float64
	Max          float64
	MaxYoYChange float64
}

// DefaultAnomalyThresholds is the fixed threshold table keyed by metric
// name. Thresholds are static so flags are reproducible and explainable;
// they are configuration defaults subject to calibration, not learned.
var DefaultAnomalyThresholds = map[string]AnomalyThreshold{
	MetricGrossMargin:      {Min: 0, Max: 80, MaxYoYChange: 10},
	MetricOperatingMargin:  {Min: -20, Max: 50, MaxYoYChange: 15},
	MetricNetMargin:        {Min: -30, Max: 40, MaxYoYChange: 20},
	MetricROE:              {Min: -50, Max: 50, MaxYoYChange: 25},
	MetricDebtToEquity:     {Min: 0, Max: 5, MaxYoYChange: 50},
	MetricCurrentRatio:     {Min: 0.5, Max: 5, MaxYoYChange: 50},
	MetricInterestCoverage: {Min: 0, Max: 50, MaxYoYChange: 500},
	MetricNetIncome:        {Min: -1e6, Max: 1e6, MaxYoYChange: 50},
	MetricRevenue:          {Min: 0, Max: 1e7, MaxYoYChange: 100},
	MetricTotalAssets:      {Min: 0, Max: 1e8, MaxYoYChange: 100},
}
