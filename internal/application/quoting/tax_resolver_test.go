package quoting

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type taxFixture struct {
	quoteRepo   *MockQuoteRepository
	accountRepo *MockAccountRepository
	leadRepo    *MockLeadRepository
	provider    *MockCatalogProvider
	integration *MockFinanceIntegration
	rates       *MockTaxRateTable
	activities  *MockActivityRecorder
}

func newTaxFixture() *taxFixture {
	return &taxFixture{
		quoteRepo:   new(MockQuoteRepository),
		accountRepo: new(MockAccountRepository),
		leadRepo:    new(MockLeadRepository),
		provider:    new(MockCatalogProvider),
		integration: new(MockFinanceIntegration),
		rates:       new(MockTaxRateTable),
		activities:  new(MockActivityRecorder),
	}
}

func (f *taxFixture) resolver(withIntegration bool) *TaxResolver {
	var integration FinanceIntegration
	if withIntegration {
		integration = f.integration
	}
	return NewTaxResolver(
		NewNoOpTransactionScope(f.quoteRepo, nil, nil),
		f.accountRepo, f.leadRepo, f.provider, integration, f.rates, f.activities,
		testOptions(), testLogger(),
	)
}

func TestTaxResolver_CalculateTax(t *testing.T) {
	ctx := context.Background()

	t.Run("non-taxable lead stores zero", func(t *testing.T) {
		f := newTaxFixture()
		lead := newTestLead(t, "TX")
		lead.SetTaxable(false)
		q, err := quoting.NewQuote(testTenantID, nil, &lead.ID, 12, 30)
		require.NoError(t, err)
		q.Tax = decimal.NewFromInt(9)

		f.quoteRepo.On("FindByIDForUpdate", mock.Anything, testTenantID, q.ID).Return(q, nil)
		f.leadRepo.On("FindByIDForTenant", mock.Anything, testTenantID, lead.ID).Return(lead, nil)
		f.quoteRepo.On("Save", mock.Anything, q).Return(nil)
		f.activities.On("Record", mock.Anything, mock.MatchedBy(func(a Activity) bool {
			return a.Type == ActivityTaxCalculated && a.SubjectID == q.ID
		})).Return(nil)

		outcome, err := f.resolver(false).CalculateTax(ctx, testTenantID, q.ID)
		require.NoError(t, err)
		assert.Equal(t, TaxExempt, outcome.Status)
		assert.True(t, outcome.Tax.IsZero())
		assert.True(t, q.Tax.IsZero())
		f.rates.AssertNotCalled(t, "RateFor", mock.Anything, mock.Anything)
		f.quoteRepo.AssertExpectations(t)
		f.activities.AssertExpectations(t)
	})

	t.Run("integration failure falls back to location rate", func(t *testing.T) {
		f := newTaxFixture()
		account := newTestAccount(t, "TX")
		q := newQuoteFor(t, account)
		svc := newServiceItem(100)
		addLine(t, q, svc, 2, catalog.NewRefs(svc))

		f.quoteRepo.On("FindByIDForUpdate", mock.Anything, testTenantID, q.ID).Return(q, nil)
		f.provider.On("FindByIDs", mock.Anything, testTenantID, mock.Anything).Return(catalogMap(svc), nil)
		f.integration.On("TaxByQuote", mock.Anything, q).Return(decimal.Zero, errors.New("connection refused"))
		f.accountRepo.On("FindByIDForTenant", mock.Anything, testTenantID, account.ID).Return(account, nil)
		f.rates.On("RateFor", mock.Anything, "TX").Return(decimal.RequireFromString("8.25"), true, nil)
		f.quoteRepo.On("Save", mock.Anything, q).Return(nil)
		f.activities.On("Record", mock.Anything, mock.Anything).Return(nil)

		outcome, err := f.resolver(true).CalculateTax(ctx, testTenantID, q.ID)
		require.NoError(t, err)
		assert.Equal(t, TaxResolved, outcome.Status)
		assert.Equal(t, TaxSourceLocation, outcome.Source)
		assert.Equal(t, "16.5", outcome.Amount.String())
		assert.Equal(t, "TX", outcome.Jurisdiction)
		require.NotNil(t, outcome.Rate)
		assert.Equal(t, "8.25", outcome.Rate.String())
		assert.Equal(t, "16.5", q.Tax.String())
		f.integration.AssertExpectations(t)
	})

	t.Run("integration amount wins", func(t *testing.T) {
		f := newTaxFixture()
		account := newTestAccount(t, "TX")
		q := newQuoteFor(t, account)

		f.quoteRepo.On("FindByIDForUpdate", mock.Anything, testTenantID, q.ID).Return(q, nil)
		f.accountRepo.On("FindByIDForTenant", mock.Anything, testTenantID, account.ID).Return(account, nil)
		f.integration.On("TaxByQuote", mock.Anything, q).Return(decimal.NewFromInt(42), nil)
		f.quoteRepo.On("Save", mock.Anything, q).Return(nil)
		f.activities.On("Record", mock.Anything, mock.Anything).Return(nil)

		outcome, err := f.resolver(true).CalculateTax(ctx, testTenantID, q.ID)
		require.NoError(t, err)
		assert.Equal(t, TaxSourceIntegration, outcome.Source)
		assert.Equal(t, "TX", outcome.Jurisdiction)
		assert.Equal(t, "42", q.Tax.String())
		f.rates.AssertNotCalled(t, "RateFor", mock.Anything, mock.Anything)
	})

	t.Run("non-taxable lead is exempt even when the integration charges tax", func(t *testing.T) {
		f := newTaxFixture()
		lead := newTestLead(t, "TX")
		lead.SetTaxable(false)
		q, err := quoting.NewQuote(testTenantID, nil, &lead.ID, 12, 30)
		require.NoError(t, err)
		q.Tax = decimal.NewFromInt(9)

		f.quoteRepo.On("FindByIDForUpdate", mock.Anything, testTenantID, q.ID).Return(q, nil)
		f.leadRepo.On("FindByIDForTenant", mock.Anything, testTenantID, lead.ID).Return(lead, nil)
		f.integration.On("TaxByQuote", mock.Anything, q).Return(decimal.NewFromInt(42), nil)
		f.quoteRepo.On("Save", mock.Anything, q).Return(nil)
		f.activities.On("Record", mock.Anything, mock.Anything).Return(nil)

		outcome, err := f.resolver(true).CalculateTax(ctx, testTenantID, q.ID)
		require.NoError(t, err)
		assert.Equal(t, TaxExempt, outcome.Status)
		assert.Equal(t, TaxSourceNone, outcome.Source)
		assert.True(t, outcome.Tax.IsZero())
		assert.True(t, q.Tax.IsZero())
		f.integration.AssertNotCalled(t, "TaxByQuote", mock.Anything, mock.Anything)
	})

	t.Run("unknown party still uses the integration amount", func(t *testing.T) {
		f := newTaxFixture()
		account := newTestAccount(t, "TX")
		q := newQuoteFor(t, account)

		f.quoteRepo.On("FindByIDForUpdate", mock.Anything, testTenantID, q.ID).Return(q, nil)
		f.accountRepo.On("FindByIDForTenant", mock.Anything, testTenantID, account.ID).Return(nil, shared.ErrNotFound)
		f.integration.On("TaxByQuote", mock.Anything, q).Return(decimal.NewFromInt(7), nil)
		f.quoteRepo.On("Save", mock.Anything, q).Return(nil)
		f.activities.On("Record", mock.Anything, mock.Anything).Return(nil)

		outcome, err := f.resolver(true).CalculateTax(ctx, testTenantID, q.ID)
		require.NoError(t, err)
		assert.Equal(t, TaxResolved, outcome.Status)
		assert.Equal(t, TaxSourceIntegration, outcome.Source)
		assert.Equal(t, "7", q.Tax.String())
	})

	t.Run("no rate leaves tax unchanged and saves nothing", func(t *testing.T) {
		f := newTaxFixture()
		account := newTestAccount(t, "ZZ")
		q := newQuoteFor(t, account)
		q.Tax = decimal.NewFromInt(5)

		f.quoteRepo.On("FindByIDForUpdate", mock.Anything, testTenantID, q.ID).Return(q, nil)
		f.accountRepo.On("FindByIDForTenant", mock.Anything, testTenantID, account.ID).Return(account, nil)
		f.rates.On("RateFor", mock.Anything, "ZZ").Return(decimal.Zero, false, nil)

		outcome, err := f.resolver(false).CalculateTax(ctx, testTenantID, q.ID)
		require.NoError(t, err)
		assert.Equal(t, TaxUnresolved, outcome.Status)
		assert.Equal(t, "5", outcome.Tax.String())
		assert.Equal(t, "5", q.Tax.String())
		f.quoteRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.activities.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("rate lookup error is recovered as unresolved", func(t *testing.T) {
		f := newTaxFixture()
		account := newTestAccount(t, "CA")
		q := newQuoteFor(t, account)

		f.quoteRepo.On("FindByIDForUpdate", mock.Anything, testTenantID, q.ID).Return(q, nil)
		f.accountRepo.On("FindByIDForTenant", mock.Anything, testTenantID, account.ID).Return(account, nil)
		f.rates.On("RateFor", mock.Anything, "CA").Return(decimal.Zero, false, errors.New("cache down"))

		outcome, err := f.resolver(false).CalculateTax(ctx, testTenantID, q.ID)
		require.NoError(t, err)
		assert.Equal(t, TaxUnresolved, outcome.Status)
	})

	t.Run("missing quote", func(t *testing.T) {
		f := newTaxFixture()
		q := newQuoteFor(t, newTestAccount(t, "TX"))
		f.quoteRepo.On("FindByIDForUpdate", mock.Anything, testTenantID, q.ID).Return(nil, shared.ErrNotFound)

		_, err := f.resolver(false).CalculateTax(ctx, testTenantID, q.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
