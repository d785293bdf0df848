package quoting

import (
	"context"
	"testing"
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/finance"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockQuoteRepository is a mock implementation of QuoteRepository
type MockQuoteRepository struct {
	mock.Mock
}

func (m *MockQuoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*quoting.Quote, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoting.Quote), args.Error(1)
}

func (m *MockQuoteRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*quoting.Quote, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoting.Quote), args.Error(1)
}

func (m *MockQuoteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query quoting.ListQuery) ([]quoting.Quote, error) {
	args := m.Called(ctx, tenantID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]quoting.Quote), args.Error(1)
}

func (m *MockQuoteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query quoting.ListQuery) (int64, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuoteRepository) Save(ctx context.Context, quote *quoting.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *MockQuoteRepository) SaveWithLock(ctx context.Context, quote *quoting.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *MockQuoteRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Account, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Account), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *partner.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockLeadRepository is a mock implementation of LeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Lead, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Lead), args.Error(1)
}

func (m *MockLeadRepository) Save(ctx context.Context, lead *partner.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// MockAccountItemRepository is a mock implementation of AccountItemRepository
type MockAccountItemRepository struct {
	mock.Mock
}

func (m *MockAccountItemRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]partner.AccountItem, error) {
	args := m.Called(ctx, tenantID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partner.AccountItem), args.Error(1)
}

func (m *MockAccountItemRepository) CreateBatch(ctx context.Context, items []*partner.AccountItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockAccountItemRepository) DeleteByQuote(ctx context.Context, tenantID, accountID, quoteID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, accountID, quoteID)
	return args.Get(0).(int64), args.Error(1)
}

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]finance.Invoice, error) {
	args := m.Called(ctx, tenantID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// MockCatalogProvider is a mock implementation of catalog.Provider
type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*catalog.Item, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*catalog.Item), args.Error(1)
}

// MockFinanceIntegration is a mock implementation of FinanceIntegration
type MockFinanceIntegration struct {
	mock.Mock
}

func (m *MockFinanceIntegration) TaxByQuote(ctx context.Context, quote *quoting.Quote) (decimal.Decimal, error) {
	args := m.Called(ctx, quote)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockTaxRateTable is a mock implementation of TaxRateTable
type MockTaxRateTable struct {
	mock.Mock
}

func (m *MockTaxRateTable) RateFor(ctx context.Context, stateCode string) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, stateCode)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

// MockMarginAnalyzer is a mock implementation of MarginAnalyzer
type MockMarginAnalyzer struct {
	mock.Mock
}

func (m *MockMarginAnalyzer) ByQuote(ctx context.Context, quote *quoting.Quote, refs catalog.Refs) (*quoting.Margin, error) {
	args := m.Called(ctx, quote, refs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoting.Margin), args.Error(1)
}

// MockDocumentRenderer is a mock implementation of DocumentRenderer
type MockDocumentRenderer struct {
	mock.Mock
}

func (m *MockDocumentRenderer) Render(ctx context.Context, templateName string, doc Document) ([]byte, error) {
	args := m.Called(ctx, templateName, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockFileStorage is a mock implementation of FileStorage
type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Store(ctx context.Context, name, mimeType string, data []byte, ownerID uuid.UUID) (string, error) {
	args := m.Called(ctx, name, mimeType, data, ownerID)
	return args.String(0), args.Error(1)
}

func (m *MockFileStorage) Delete(ctx context.Context, fileID string) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Deliver(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockActivityRecorder is a mock implementation of ActivityRecorder
type MockActivityRecorder struct {
	mock.Mock
}

func (m *MockActivityRecorder) Record(ctx context.Context, activity Activity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

// ==================== Fixtures ====================

var (
	testTenantID = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	testNow      = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return testNow }
	return opts
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestAccount(t *testing.T, state string) *partner.Account {
	t.Helper()
	a, err := partner.NewAccount(testTenantID, "Acme Corp", state, 30)
	require.NoError(t, err)
	primary, err := partner.NewContact("Pat Primary", "pat@acme.test")
	require.NoError(t, err)
	admin, err := partner.NewContact("Ada Admin", "ada@acme.test")
	require.NoError(t, err)
	a.SetContacts(primary, admin)
	return a
}

func newTestLead(t *testing.T, state string) *partner.Lead {
	t.Helper()
	contact, err := partner.NewContact("Lee Lead", "lee@prospect.test")
	require.NoError(t, err)
	l, err := partner.NewLead(testTenantID, "Prospect LLC", state, contact)
	require.NoError(t, err)
	return l
}

func newQuoteFor(t *testing.T, account *partner.Account) *quoting.Quote {
	t.Helper()
	q, err := quoting.NewQuote(testTenantID, &account.ID, nil, 12, 30)
	require.NoError(t, err)
	q.ClearDomainEvents()
	return q
}

func newServiceItem(price int64) *catalog.Item {
	return &catalog.Item{
		ID:        uuid.New(),
		SKU:       "SVC-" + uuid.NewString()[:4],
		Name:      "Managed Service",
		Type:      catalog.ItemTypeService,
		Taxable:   true,
		Price:     decimal.NewFromInt(price),
		Cost:      decimal.NewFromInt(price / 2),
		Frequency: catalog.FrequencyMonthly,
	}
}

func newProductItem(price int64) *catalog.Item {
	return &catalog.Item{
		ID:      uuid.New(),
		SKU:     "PRD-" + uuid.NewString()[:4],
		Name:    "Firewall Appliance",
		Type:    catalog.ItemTypeProduct,
		Taxable: true,
		Price:   decimal.NewFromInt(price),
		Cost:    decimal.NewFromInt(price / 2),
	}
}

func catalogMap(items ...*catalog.Item) map[uuid.UUID]*catalog.Item {
	m := make(map[uuid.UUID]*catalog.Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}

// addLine appends a line for ci to q at catalog price
func addLine(t *testing.T, q *quoting.Quote, ci *catalog.Item, qty int64, refs catalog.Refs) *quoting.QuoteItem {
	t.Helper()
	item, err := q.AddItem(quoting.ItemInput{CatalogItemID: ci.ID, Qty: decimal.NewFromInt(qty)}, refs, testNow)
	require.NoError(t, err)
	return item
}
