package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
)

// Ensure CompanyStore implements the interface.
var _ driven.CompanyStore = (*CompanyStore)(nil)

// CompanyStore is an in-memory implementation of driven.CompanyStore.
type CompanyStore struct {
	mu        sync.RWMutex
	companies map[string]domain.Company
}

// NewCompanyStore creates a new in-memory company store.
func NewCompanyStore() *CompanyStore {
	return &CompanyStore{
		companies: make(map[string]domain.Company),
	}
}

// UpsertCompany stores or replaces a company by CIK.
func (s *CompanyStore) UpsertCompany(_ context.Context, c domain.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.CIK] = c
	return nil
}

// GetCompany retrieves a company by CIK.
func (s *CompanyStore) GetCompany(_ context.Context, cik string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[cik]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// GetCompanyByTicker retrieves a company by ticker, case-insensitively.
func (s *CompanyStore) GetCompanyByTicker(_ context.Context, ticker string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.companies {
		if strings.EqualFold(c.Ticker, ticker) {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListCompanies returns every company ordered by CIK.
func (s *CompanyStore) ListCompanies(_ context.Context) ([]domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Company, 0, len(s.companies))
	for _, c := range s.companies {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CIK < result[j].CIK
	})
	return result, nil
}
