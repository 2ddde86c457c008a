package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

func TestCompanyStore_UpsertAndGet(t *testing.T) {
	store := NewCompanyStore()
	ctx := context.Background()

	company := domain.Company{
		CIK:    "0000320193",
		Ticker: "AAPL",
		Name:   "Apple Inc.",
		Sector: "Manufacturing",
		Active: true,
	}
	require.NoError(t, store.UpsertCompany(ctx, company))

	got, err := store.GetCompany(ctx, "0000320193")
	require.NoError(t, err)
	assert.Equal(t, company, *got)
}

func TestCompanyStore_Get_NotFound(t *testing.T) {
	store := NewCompanyStore()

	_, err := store.GetCompany(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompanyStore_GetByTicker_CaseInsensitive(t *testing.T) {
	store := NewCompanyStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertCompany(ctx, domain.Company{CIK: "1", Ticker: "MSFT"}))

	got, err := store.GetCompanyByTicker(ctx, "msft")
	require.NoError(t, err)
	assert.Equal(t, "1", got.CIK)

	_, err = store.GetCompanyByTicker(ctx, "GOOG")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompanyStore_ListCompanies_Ordered(t *testing.T) {
	store := NewCompanyStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertCompany(ctx, domain.Company{CIK: "2", Ticker: "B"}))
	require.NoError(t, store.UpsertCompany(ctx, domain.Company{CIK: "1", Ticker: "A"}))

	list, err := store.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].CIK)
	assert.Equal(t, "2", list[1].CIK)
}
