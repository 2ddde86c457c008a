package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
)

// Ensure RiskStore implements the interface.
var _ driven.RiskStore = (*RiskStore)(nil)

// RiskStore is an in-memory implementation of driven.RiskStore.
type RiskStore struct {
	mu          sync.RWMutex
	assessments map[string]domain.RiskAssessment
}

// NewRiskStore creates a new in-memory risk store.
func NewRiskStore() *RiskStore {
	return &RiskStore{
		assessments: make(map[string]domain.RiskAssessment),
	}
}

// UpsertAssessment stores or replaces an assessment by its natural key.
func (s *RiskStore) UpsertAssessment(_ context.Context, a domain.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[a.ID] = a
	return nil
}

// ListAssessments returns all assessments for a company, newest period
// first.
func (s *RiskStore) ListAssessments(_ context.Context, cik string) ([]domain.RiskAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.RiskAssessment
	for _, a := range s.assessments {
		if a.CIK == cik {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PeriodEnd.Equal(result[j].PeriodEnd) {
			return result[i].PeriodEnd.After(result[j].PeriodEnd)
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}
