package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
)

// Ensure MetricStore implements the interface.
var _ driven.MetricStore = (*MetricStore)(nil)

// MetricStore is an in-memory implementation of driven.MetricStore.
type MetricStore struct {
	mu      sync.RWMutex
	records map[string]domain.MetricRecord
}

// NewMetricStore creates a new in-memory metric store.
func NewMetricStore() *MetricStore {
	return &MetricStore{
		records: make(map[string]domain.MetricRecord),
	}
}

// UpsertMetric stores or replaces a record by its natural key.
func (s *MetricStore) UpsertMetric(_ context.Context, rec domain.MetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

// ListMetrics returns all records for a company, newest period first.
func (s *MetricStore) ListMetrics(_ context.Context, cik string) ([]domain.MetricRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.MetricRecord
	for _, rec := range s.records {
		if rec.CIK == cik {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PeriodEnd.Equal(result[j].PeriodEnd) {
			return result[i].PeriodEnd.After(result[j].PeriodEnd)
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// PriorValues returns the most recent value per metric name strictly
// before the given period end.
func (s *MetricStore) PriorValues(_ context.Context, cik string, before time.Time) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := make(map[string]domain.MetricRecord)
	for _, rec := range s.records {
		if rec.CIK != cik || !rec.PeriodEnd.Before(before) {
			continue
		}
		if prev, ok := latest[rec.Name]; !ok || rec.PeriodEnd.After(prev.PeriodEnd) {
			latest[rec.Name] = rec
		}
	}
	values := make(map[string]float64, len(latest))
	for name, rec := range latest {
		values[name] = rec.Value
	}
	return values, nil
}
