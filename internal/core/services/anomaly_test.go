package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

func yoy(v float64) *float64 { return &v }

func TestAnomalyDetector_NoPriorNeverFlaggedOnYoY(t *testing.T) {
	detector := NewAnomalyDetector(nil)

	records := detector.Flag([]domain.MetricRecord{{
		Name:  domain.MetricNetIncome,
		Value: 500,
		// YoYChange nil: no prior-period value.
	}})
	require.Len(t, records, 1)
	assert.False(t, records[0].Anomaly)
}

func TestAnomalyDetector_YoYBoundary(t *testing.T) {
	detector := NewAnomalyDetector(nil)

	// net_income tolerance is 50%.
	tests := []struct {
		name    string
		change  float64
		flagged bool
	}{
		{"well below", 20, false},
		{"exactly at threshold", 50, false},
		{"exactly at negative threshold", -50, false},
		{"just above", 50.01, true},
		{"just below negative", -50.01, true},
		{"doubled", 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := detector.Flag([]domain.MetricRecord{{
				Name:      domain.MetricNetIncome,
				Value:     20,
				YoYChange: yoy(tt.change),
			}})
			require.Len(t, records, 1)
			assert.Equal(t, tt.flagged, records[0].Anomaly)
		})
	}
}

func TestAnomalyDetector_SanityRange(t *testing.T) {
	detector := NewAnomalyDetector(nil)

	tests := []struct {
		name    string
		metric  string
		value   float64
		flagged bool
	}{
		{"gross margin in range", domain.MetricGrossMargin, 45, false},
		{"gross margin at max", domain.MetricGrossMargin, 80, false},
		{"gross margin above max", domain.MetricGrossMargin, 80.5, true},
		{"gross margin negative", domain.MetricGrossMargin, -1, true},
		{"debt to equity extreme", domain.MetricDebtToEquity, 9, true},
		{"negative revenue", domain.MetricRevenue, -10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := detector.Flag([]domain.MetricRecord{{Name: tt.metric, Value: tt.value}})
			require.Len(t, records, 1)
			assert.Equal(t, tt.flagged, records[0].Anomaly)
		})
	}
}

func TestAnomalyDetector_UnknownMetricNeverFlagged(t *testing.T) {
	detector := NewAnomalyDetector(nil)

	records := detector.Flag([]domain.MetricRecord{{
		Name:      domain.MetricEPS,
		Value:     1e12,
		YoYChange: yoy(9000),
	}})
	require.Len(t, records, 1)
	assert.False(t, records[0].Anomaly)
}

func TestAnomalyDetector_Overrides(t *testing.T) {
	detector := NewAnomalyDetector(map[string]domain.AnomalyThreshold{
		domain.MetricRevenue: {Min: 0, Max: 100, MaxYoYChange: 10},
	})

	records := detector.Flag([]domain.MetricRecord{
		{Name: domain.MetricRevenue, Value: 150},
		{Name: domain.MetricGrossMargin, Value: 45},
	})
	require.Len(t, records, 2)
	assert.True(t, records[0].Anomaly, "override applies")
	assert.False(t, records[1].Anomaly, "defaults preserved for other metrics")
}

func TestAnomalyDetector_DoesNotMutateInput(t *testing.T) {
	detector := NewAnomalyDetector(nil)

	input := []domain.MetricRecord{{Name: domain.MetricRevenue, Value: -10}}
	out := detector.Flag(input)

	assert.False(t, input[0].Anomaly)
	assert.True(t, out[0].Anomaly)
}
