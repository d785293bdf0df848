package quoting

import (
	"context"
	"errors"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/erp/quoting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TaxStatus tells whether a tax calculation changed the stored amount
type TaxStatus string

const (
	// TaxResolved means a rate or integration amount was applied and stored
	TaxResolved TaxStatus = "RESOLVED"
	// TaxExempt means the owning party is non-taxable and tax was stored as zero
	TaxExempt TaxStatus = "EXEMPT"
	// TaxUnresolved means no rate was found and the stored tax was left as is
	TaxUnresolved TaxStatus = "UNRESOLVED"
)

// TaxSource names where a resolved amount came from
type TaxSource string

const (
	TaxSourceIntegration TaxSource = "INTEGRATION"
	TaxSourceLocation    TaxSource = "LOCATION"
	TaxSourceNone        TaxSource = "NONE"
)

// TaxOutcome is the explicit result of a tax calculation
type TaxOutcome struct {
	Status       TaxStatus        `json:"status"`
	Source       TaxSource        `json:"source"`
	Amount       decimal.Decimal  `json:"amount"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	Jurisdiction string           `json:"jurisdiction,omitempty"`
	// Tax is the amount stored on the quote after the calculation
	Tax decimal.Decimal `json:"tax"`
}

// TaxResolver computes and stores a quote's tax.
// Non-taxable parties are exempt. Otherwise the finance integration is tried
// first and any failure falls back to the location table. Neither failure is
// ever returned to the caller.
type TaxResolver struct {
	txScope     TransactionScope
	accountRepo partner.AccountRepository
	leadRepo    partner.LeadRepository
	catalog     catalog.Provider
	integration FinanceIntegration
	rates       TaxRateTable
	activities  ActivityRecorder
	opts        Options
	logger      *zap.Logger
}

// NewTaxResolver creates a new TaxResolver
func NewTaxResolver(
	txScope TransactionScope,
	accountRepo partner.AccountRepository,
	leadRepo partner.LeadRepository,
	provider catalog.Provider,
	integration FinanceIntegration,
	rates TaxRateTable,
	activities ActivityRecorder,
	opts Options,
	logger *zap.Logger,
) *TaxResolver {
	return &TaxResolver{
		txScope:     txScope,
		accountRepo: accountRepo,
		leadRepo:    leadRepo,
		catalog:     provider,
		integration: integration,
		rates:       rates,
		activities:  activities,
		opts:        opts,
		logger:      logger,
	}
}

// CalculateTax resolves the quote's tax and stores it unless no rate could be found.
// The quote row stays locked for the whole calculation.
func (r *TaxResolver) CalculateTax(ctx context.Context, tenantID, quoteID uuid.UUID) (*TaxOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote_tax", "calculate",
		telemetry.WithAttribute(telemetry.SpanAttrQuoteID, quoteID.String()))
	defer span.End()

	var outcome TaxOutcome
	err := r.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		q, err := repos.QuoteRepo().FindByIDForUpdate(ctx, tenantID, quoteID)
		if err != nil {
			return err
		}
		refs, err := resolveRefs(ctx, r.catalog, q)
		if err != nil {
			return err
		}

		outcome = r.resolve(ctx, q, refs)
		if outcome.Status == TaxUnresolved {
			outcome.Tax = q.Tax
			return nil
		}
		q.SetTax(outcome.Amount, r.opts.now())
		outcome.Tax = q.Tax
		return repos.QuoteRepo().Save(ctx, q)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrTaxStatus, string(outcome.Status), "tax_source", string(outcome.Source))

	if outcome.Status != TaxUnresolved {
		r.record(ctx, tenantID, quoteID, outcome)
	}
	return &outcome, nil
}

// resolve checks the owning party first: a non-taxable party is exempt whatever
// the integration would charge
func (r *TaxResolver) resolve(ctx context.Context, q *quoting.Quote, refs catalog.Refs) TaxOutcome {
	state, taxable, partyErr := r.jurisdiction(ctx, q)
	if partyErr == nil && !taxable {
		return TaxOutcome{Status: TaxExempt, Source: TaxSourceNone, Amount: decimal.Zero, Jurisdiction: state}
	}

	amount, err := r.fromIntegration(ctx, q)
	if err == nil {
		return TaxOutcome{Status: TaxResolved, Source: TaxSourceIntegration, Amount: amount, Jurisdiction: state}
	}
	r.logger.Warn("Tax integration unavailable, using location fallback",
		zap.String("quote_id", q.ID.String()),
		zap.Error(err))

	if partyErr != nil {
		r.logger.Warn("Tax jurisdiction not resolved",
			zap.String("quote_id", q.ID.String()),
			zap.Error(partyErr))
		return TaxOutcome{Status: TaxUnresolved, Source: TaxSourceNone}
	}

	rate, err := r.rateFor(ctx, state)
	if err != nil {
		r.logger.Info("No tax rate resolved, leaving tax unchanged",
			zap.String("quote_id", q.ID.String()),
			zap.String("state", state),
			zap.Error(err))
		return TaxOutcome{Status: TaxUnresolved, Source: TaxSourceNone, Jurisdiction: state}
	}

	return TaxOutcome{
		Status:       TaxResolved,
		Source:       TaxSourceLocation,
		Amount:       quoting.TaxFor(q, refs, rate),
		Rate:         &rate,
		Jurisdiction: state,
	}
}

func (r *TaxResolver) fromIntegration(ctx context.Context, q *quoting.Quote) (decimal.Decimal, error) {
	if r.integration == nil {
		return decimal.Zero, shared.ErrIntegrationUnavailable
	}
	callCtx, cancel := withTimeout(ctx, r.opts.IntegrationTimeout)
	defer cancel()

	amount, err := r.integration.TaxByQuote(callCtx, q)
	if err != nil {
		if errors.Is(err, shared.ErrIntegrationUnavailable) {
			return decimal.Zero, err
		}
		return decimal.Zero, shared.WrapDomainError(shared.CodeIntegrationUnavailable, "Finance integration failed", err)
	}
	return amount, nil
}

// jurisdiction returns the owning party's state and taxable flag; the account wins over the lead
func (r *TaxResolver) jurisdiction(ctx context.Context, q *quoting.Quote) (string, bool, error) {
	if q.AccountID != nil {
		account, err := r.accountRepo.FindByIDForTenant(ctx, q.TenantID, *q.AccountID)
		if err != nil {
			return "", false, err
		}
		return account.State, account.Taxable, nil
	}
	if q.LeadID != nil {
		lead, err := r.leadRepo.FindByIDForTenant(ctx, q.TenantID, *q.LeadID)
		if err != nil {
			return "", false, err
		}
		return lead.State, lead.Taxable, nil
	}
	return "", false, shared.ErrNotFound
}

func (r *TaxResolver) rateFor(ctx context.Context, state string) (decimal.Decimal, error) {
	if state == "" || r.rates == nil {
		return decimal.Zero, shared.ErrNoRateResolved
	}
	rate, found, err := r.rates.RateFor(ctx, state)
	if err != nil {
		return decimal.Zero, shared.WrapDomainError(shared.CodeNoRateResolved, "Tax rate lookup failed", err)
	}
	if !found {
		return decimal.Zero, shared.ErrNoRateResolved
	}
	return rate, nil
}

func (r *TaxResolver) record(ctx context.Context, tenantID, quoteID uuid.UUID, outcome TaxOutcome) {
	recordActivity(ctx, r.activities, r.logger, Activity{
		TenantID:  tenantID,
		Type:      ActivityTaxCalculated,
		SubjectID: quoteID,
		Message:   "Tax calculated",
		Detail: map[string]any{
			"status": string(outcome.Status),
			"source": string(outcome.Source),
			"amount": outcome.Amount.String(),
		},
		At: r.opts.now(),
	})
}
