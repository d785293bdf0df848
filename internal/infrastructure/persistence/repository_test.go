package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	testTenantID = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	testNow      = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

// newTestDB opens a private in-memory SQLite database with the schema applied
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

func seedAccount(t *testing.T, db *gorm.DB, state string) *partner.Account {
	t.Helper()
	a, err := partner.NewAccount(testTenantID, "Acme Corp", state, 30)
	require.NoError(t, err)
	primary, err := partner.NewContact("Pat Primary", "pat@acme.test")
	require.NoError(t, err)
	admin, err := partner.NewContact("Ada Admin", "ada@acme.test")
	require.NoError(t, err)
	a.SetContacts(primary, admin)
	require.NoError(t, NewGormAccountRepository(db).Save(context.Background(), a))
	return a
}

func seedCatalogItem(t *testing.T, db *gorm.DB, typ catalog.ItemType, price int64) *catalog.Item {
	t.Helper()
	item := &catalog.Item{
		ID:       uuid.New(),
		TenantID: testTenantID,
		SKU:      string(typ)[:3] + "-" + uuid.NewString()[:8],
		Name:     "Catalog " + string(typ),
		Type:     typ,
		Taxable:  true,
		Price:    decimal.NewFromInt(price),
		Cost:     decimal.NewFromInt(price / 2),
	}
	if typ == catalog.ItemTypeService {
		item.Frequency = catalog.FrequencyMonthly
	}
	require.NoError(t, NewGormCatalogProvider(db).Save(context.Background(), item))
	return item
}

func newDraftQuote(t *testing.T, account *partner.Account) *quoting.Quote {
	t.Helper()
	q, err := quoting.NewQuote(testTenantID, &account.ID, nil, 12, 30)
	require.NoError(t, err)
	q.ClearDomainEvents()
	return q
}
