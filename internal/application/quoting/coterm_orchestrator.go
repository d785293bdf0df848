package quoting

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/finance"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/erp/quoting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TemplateInvoiceSent is used to deliver a settlement invoice
const TemplateInvoiceSent = "invoice_sent"

// CotermOrchestrator replaces an account's active contract with a co-term quote.
//
// Source termination, current activation, service migration and the
// settlement invoice commit together or not at all. Rendering and
// notification run after commit and never undo it.
type CotermOrchestrator struct {
	txScope        TransactionScope
	accountRepo    partner.AccountRepository
	catalog        catalog.Provider
	activities     ActivityRecorder
	deliverer      deliverer
	opts           Options
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
}

// NewCotermOrchestrator creates a new CotermOrchestrator
func NewCotermOrchestrator(
	txScope TransactionScope,
	accountRepo partner.AccountRepository,
	provider catalog.Provider,
	renderer DocumentRenderer,
	notifier Notifier,
	activities ActivityRecorder,
	opts Options,
	logger *zap.Logger,
) *CotermOrchestrator {
	return &CotermOrchestrator{
		txScope:     txScope,
		accountRepo: accountRepo,
		catalog:     provider,
		activities:  activities,
		deliverer:   deliverer{renderer: renderer, notifier: notifier, opts: opts, logger: logger},
		opts:        opts,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher
func (o *CotermOrchestrator) SetEventPublisher(publisher shared.EventPublisher) {
	o.eventPublisher = publisher
}

// cotermRun collects what the transaction produced for the post-commit steps
type cotermRun struct {
	quote   *quoting.Quote
	source  *quoting.Quote
	account *partner.Account
	refs    catalog.Refs
	invoice *finance.Invoice
	result  CotermResult
}

// ExecuteCoterm executes a co-term quote against the contract it replaces.
//
// Precondition failures (not found, not a co-term, locked, source not an
// executed contract of the same account) are returned as they are. A failure
// in any step after that is returned as ORCHESTRATION_FAILURE wrapping the
// cause; the transaction has been rolled back and the call can be retried.
func (o *CotermOrchestrator) ExecuteCoterm(ctx context.Context, tenantID, quoteID uuid.UUID) (*CotermResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote_coterm", "execute",
		telemetry.WithAttribute(telemetry.SpanAttrQuoteID, quoteID.String()))
	defer span.End()

	now := o.opts.now()
	run := &cotermRun{}
	mutating := false

	err := o.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := o.prepare(ctx, repos, tenantID, quoteID, run); err != nil {
			return err
		}
		mutating = true
		return o.apply(ctx, repos, run, now)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if mutating {
			o.logger.Error("Co-term execution rolled back",
				zap.String("quote_id", quoteID.String()),
				zap.Error(err))
			return nil, shared.WrapDomainError(shared.CodeOrchestrationFailure, "Co-term execution failed and was rolled back", err)
		}
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCotermID, run.source.ID.String(),
		telemetry.SpanAttrAccountID, run.account.ID.String(),
		"migrated_items", run.result.MigratedItems,
	)
	o.afterCommit(ctx, tenantID, run, now)
	return &run.result, nil
}

// prepare loads and locks both quotes and checks every precondition
func (o *CotermOrchestrator) prepare(ctx context.Context, repos TransactionalRepositories, tenantID, quoteID uuid.UUID, run *cotermRun) error {
	q, err := repos.QuoteRepo().FindByIDForUpdate(ctx, tenantID, quoteID)
	if err != nil {
		return err
	}
	if !q.IsCoterm() {
		return shared.NewDomainError(shared.CodeInvalidState, "Quote does not co-term a contract")
	}
	if !q.IsEditable() {
		return shared.ErrEditingLocked
	}
	if q.AccountID == nil {
		return shared.NewDomainError(shared.CodeInvalidState, "Co-term quote has no account")
	}

	source, err := repos.QuoteRepo().FindByIDForUpdate(ctx, tenantID, *q.CotermID)
	if err != nil {
		return err
	}
	if !source.IsExecuted() || source.AccountID == nil || *source.AccountID != *q.AccountID {
		return shared.NewDomainError(shared.CodeInvalidState, "Co-term source is not an active contract of the same account")
	}

	account, err := o.accountRepo.FindByIDForTenant(ctx, tenantID, *q.AccountID)
	if err != nil {
		return err
	}
	refs, err := resolveRefs(ctx, o.catalog, q)
	if err != nil {
		return err
	}

	run.quote, run.source, run.account, run.refs = q, source, account, refs
	run.result = CotermResult{QuoteID: q.ID, SourceID: source.ID, AccountID: account.ID}
	return nil
}

// apply performs the ordered co-term steps inside the transaction
func (o *CotermOrchestrator) apply(ctx context.Context, repos TransactionalRepositories, run *cotermRun, now time.Time) error {
	q, source, account := run.quote, run.source, run.account

	removed, err := repos.AccountItemRepo().DeleteByQuote(ctx, q.TenantID, account.ID, source.ID)
	if err != nil {
		return fmt.Errorf("remove items of replaced contract: %w", err)
	}
	run.result.RemovedItems = removed

	if err := q.ActivateAsCoterm(source, now); err != nil {
		return err
	}
	if err := source.Terminate(q.ID, now); err != nil {
		return err
	}

	migrated, err := migrateServices(q, account, run.refs, now)
	if err != nil {
		return err
	}
	if len(migrated) > 0 {
		if err := repos.AccountItemRepo().CreateBatch(ctx, migrated); err != nil {
			return fmt.Errorf("migrate services: %w", err)
		}
	}
	run.result.MigratedItems = len(migrated)

	if products := q.ProductItems(run.refs); len(products) > 0 {
		inv, err := o.settlementInvoice(ctx, repos, q, account, products, run.refs, now)
		if err != nil {
			return err
		}
		run.invoice = inv
		run.result.InvoiceID = &inv.ID
	}

	if err := repos.QuoteRepo().Save(ctx, source); err != nil {
		return fmt.Errorf("save replaced contract: %w", err)
	}
	if err := repos.QuoteRepo().Save(ctx, q); err != nil {
		return fmt.Errorf("save co-term contract: %w", err)
	}
	return nil
}

// migrateServices turns every service line with a live catalog entry into an account item
func migrateServices(q *quoting.Quote, account *partner.Account, refs catalog.Refs, now time.Time) ([]*partner.AccountItem, error) {
	services := q.ServiceItems(refs)
	items := make([]*partner.AccountItem, 0, len(services))
	for _, line := range services {
		quoteID := q.ID
		item, err := partner.NewAccountItem(q.TenantID, account.ID, *line.CatalogItemID, &quoteID, line.Price, line.Qty, now)
		if err != nil {
			return nil, err
		}
		item.Notes = line.Notes
		if line.Meta != nil {
			item.Meta = maps.Clone(line.Meta)
		}
		items = append(items, item)
	}
	return items, nil
}

func (o *CotermOrchestrator) settlementInvoice(
	ctx context.Context,
	repos TransactionalRepositories,
	q *quoting.Quote,
	account *partner.Account,
	products []*quoting.QuoteItem,
	refs catalog.Refs,
	now time.Time,
) (*finance.Invoice, error) {
	number, err := repos.InvoiceRepo().GenerateNumber(ctx, q.TenantID)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}
	inv, err := finance.NewInvoice(q.TenantID, account.ID, number, account.NetTerms, now)
	if err != nil {
		return nil, err
	}
	quoteID := q.ID
	inv.QuoteID = &quoteID

	for _, line := range products {
		ci, ok := refs.Of(line.CatalogItemID).Item()
		if !ok {
			continue
		}
		if _, err := inv.AddItem(ci.ID, ci.Name, line.Price, line.Qty); err != nil {
			return nil, err
		}
		for _, addon := range line.Addons {
			if !addon.Qty.IsPositive() {
				continue
			}
			if _, err := inv.AddItem(ci.ID, ci.Name+" - "+addon.Name, addon.Price, addon.Qty); err != nil {
				return nil, err
			}
		}
	}
	if err := inv.Send(now); err != nil {
		return nil, err
	}
	if err := repos.InvoiceRepo().Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("save settlement invoice: %w", err)
	}
	return inv, nil
}

// afterCommit renders the contract, notifies the account and records activity
func (o *CotermOrchestrator) afterCommit(ctx context.Context, tenantID uuid.UUID, run *cotermRun, now time.Time) {
	q, account := run.quote, run.account
	admin := account.AdminContact()
	recipient := Recipient{Name: admin.Name, Email: admin.Email}
	summary := quoting.Summarize(q, run.refs, o.opts.Settings, now)

	doc := buildDocument(q, run.refs, account.Name, "Contract", summary)
	models := notificationModels(q, account.Name, summary)
	models["source_id"] = run.source.ID.String()
	models["migrated_items"] = run.result.MigratedItems

	run.result.Notified = o.deliverer.deliver(ctx, Notification{
		TenantID:    tenantID,
		Template:    TemplateCotermExecuted,
		Recipient:   recipient,
		Models:      models,
		Attachments: o.deliverer.render(ctx, TemplateContract, doc),
	})

	if run.invoice != nil {
		o.deliverer.deliver(ctx, Notification{
			TenantID:  tenantID,
			Template:  TemplateInvoiceSent,
			Recipient: recipient,
			Models: map[string]any{
				"invoice_id": run.invoice.ID.String(),
				"number":     run.invoice.Number,
				"due_date":   run.invoice.DueDate,
				"total":      run.invoice.Total().StringFixed(2),
			},
		})
	}

	detail := map[string]any{
		"source_id":      run.source.ID.String(),
		"removed_items":  run.result.RemovedItems,
		"migrated_items": run.result.MigratedItems,
	}
	if run.invoice != nil {
		detail["invoice_id"] = run.invoice.ID.String()
	}
	recordActivity(ctx, o.activities, o.logger, Activity{
		TenantID:  tenantID,
		Type:      ActivityQuoteCotermed,
		SubjectID: q.ID,
		Message:   "Contract co-termed",
		Detail:    detail,
		At:        now,
	})

	publishEvents(ctx, o.eventPublisher, o.logger, q)
	publishEvents(ctx, o.eventPublisher, o.logger, run.source)

	o.logger.Info("Co-term executed",
		zap.String("quote_id", q.ID.String()),
		zap.String("source_id", run.source.ID.String()),
		zap.Int64("removed_items", run.result.RemovedItems),
		zap.Int("migrated_items", run.result.MigratedItems))
}

// IsOrchestrationFailure reports whether err came from a rolled back co-term
func IsOrchestrationFailure(err error) bool {
	return errors.Is(err, shared.ErrOrchestrationFailure)
}
