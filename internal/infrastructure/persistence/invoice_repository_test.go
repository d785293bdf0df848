package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/finance"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormInvoiceRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormInvoiceRepository(db)
	account := seedAccount(t, db, "TX")
	prd := seedCatalogItem(t, db, catalog.ItemTypeProduct, 500)
	prefix := fmt.Sprintf("INV-%d-", time.Now().Year())

	number, err := repo.GenerateNumber(ctx, testTenantID)
	require.NoError(t, err)
	assert.Equal(t, prefix+"00001", number)

	inv, err := finance.NewInvoice(testTenantID, account.ID, number, account.NetTerms, testNow)
	require.NoError(t, err)
	quoteID := uuid.New()
	inv.QuoteID = &quoteID
	_, err = inv.AddItem(prd.ID, prd.Name, prd.Price, decimal.NewFromInt(2))
	require.NoError(t, err)
	require.NoError(t, inv.Send(testNow))
	require.NoError(t, repo.Save(ctx, inv))

	t.Run("round trips items", func(t *testing.T) {
		found, err := repo.FindByIDForTenant(ctx, testTenantID, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, finance.InvoiceStatusSent, found.Status)
		assert.Equal(t, number, found.Number)
		require.NotNil(t, found.QuoteID)
		assert.Equal(t, quoteID, *found.QuoteID)
		require.Len(t, found.Items, 1)
		assert.True(t, decimal.NewFromInt(1000).Equal(found.Total()))
		assert.True(t, testNow.AddDate(0, 0, 30).Equal(found.DueDate))
	})

	t.Run("numbers increase per tenant", func(t *testing.T) {
		next, err := repo.GenerateNumber(ctx, testTenantID)
		require.NoError(t, err)
		assert.Equal(t, prefix+"00002", next)

		other, err := repo.GenerateNumber(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, prefix+"00001", other)
	})

	t.Run("lists by account", func(t *testing.T) {
		invoices, err := repo.FindByAccount(ctx, testTenantID, account.ID)
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Len(t, invoices[0].Items, 1)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, testTenantID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormTaxLocationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTaxLocationRepository(newTestDB(t))

	_, err := repo.FindByState(ctx, "TX")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, finance.TaxLocation{StateCode: "tx", Rate: decimal.RequireFromString("8.25")}))
	loc, err := repo.FindByState(ctx, " tx")
	require.NoError(t, err)
	assert.Equal(t, "TX", loc.StateCode)
	assert.True(t, decimal.RequireFromString("8.25").Equal(loc.Rate))

	rate, found, err := repo.RateFor(ctx, "TX")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, decimal.RequireFromString("8.25").Equal(rate))

	_, found, err = repo.RateFor(ctx, "ZZ")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Upsert(ctx, finance.TaxLocation{StateCode: "TX", Rate: decimal.RequireFromString("6.25")}))
	loc, err = repo.FindByState(ctx, "TX")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6.25").Equal(loc.Rate))
}
