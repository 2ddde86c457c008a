package services

import (
	"math"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/logger"
)

// AnomalyDetector flags abnormal metric moves against a fixed threshold
// table, so every flag is reproducible and explainable. Two rules apply:
//
//   - sanity range: a value outside [Min, Max] for its metric is flagged
//     as a likely extraction error (e.g. negative total assets);
//   - year-over-year move: a YoY change whose magnitude strictly exceeds
//     the metric's tolerance is flagged. A value exactly at the
//     tolerance is NOT flagged (the boundary is exclusive).
//
// A record with no prior-period value is never flagged on the YoY rule.
type AnomalyDetector struct {
	thresholds map[string]domain.AnomalyThreshold
}

// NewAnomalyDetector creates a detector using the default threshold
// table. Entries in overrides replace the defaults per metric name.
func NewAnomalyDetector(overrides map[string]domain.AnomalyThreshold) *AnomalyDetector {
	thresholds := make(map[string]domain.AnomalyThreshold, len(domain.DefaultAnomalyThresholds))
	for name, t := range domain.DefaultAnomalyThresholds {
		thresholds[name] = t
	}
	for name, t := range overrides {
		thresholds[name] = t
	}
	return &AnomalyDetector{thresholds: thresholds}
}

// Flag returns the records with the anomaly flag set. Records whose
// metric has no threshold entry are left unflagged.
func (d *AnomalyDetector) Flag(records []domain.MetricRecord) []domain.MetricRecord {
	out := make([]domain.MetricRecord, len(records))
	for i, rec := range records {
		rec.Anomaly = d.isAnomalous(rec)
		out[i] = rec
	}
	return out
}

func (d *AnomalyDetector) isAnomalous(rec domain.MetricRecord) bool {
	t, ok := d.thresholds[rec.Name]
	if !ok {
		return false
	}

	if rec.Value < t.Min || rec.Value > t.Max {
		logger.Debug("Metric %s value %.2f outside sanity range [%.2f, %.2f]",
			rec.ID, rec.Value, t.Min, t.Max)
		return true
	}

	if rec.YoYChange != nil && t.MaxYoYChange > 0 && math.Abs(*rec.YoYChange) > t.MaxYoYChange {
		logger.Debug("Metric %s YoY change %.2f%% exceeds tolerance %.2f%%",
			rec.ID, *rec.YoYChange, t.MaxYoYChange)
		return true
	}

	return false
}
