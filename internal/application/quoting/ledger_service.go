package quoting

import (
	"context"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService edits a quote's line items.
// Each call locks the quote row, mutates, repairs ordering and saves in one
// transaction, so totals and tax read afterwards always see a repaired ledger.
type LedgerService struct {
	txScope TransactionScope
	catalog catalog.Provider
	opts    Options
	logger  *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(txScope TransactionScope, provider catalog.Provider, opts Options, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		txScope: txScope,
		catalog: provider,
		opts:    opts,
		logger:  logger,
	}
}

// AddItem appends a line item to the quote
func (s *LedgerService) AddItem(ctx context.Context, tenantID, quoteID uuid.UUID, req AddItemRequest) (*QuoteResponse, error) {
	freq, err := parseFrequency(req.Frequency)
	if err != nil {
		return nil, err
	}
	in := quoting.ItemInput{
		CatalogItemID: req.CatalogItemID,
		Price:         req.Price,
		Qty:           req.Qty,
		Frequency:     freq,
		Payments:      req.Payments,
		Notes:         req.Notes,
		Meta:          req.Meta,
		Addons:        toAddons(req.Addons),
	}
	return s.mutate(ctx, "add_item", tenantID, quoteID, []uuid.UUID{req.CatalogItemID}, func(q *quoting.Quote, refs catalog.Refs) error {
		_, err := q.AddItem(in, refs, s.opts.now())
		return err
	})
}

// UpdateItem changes an existing line item
func (s *LedgerService) UpdateItem(ctx context.Context, tenantID, quoteID, itemID uuid.UUID, req UpdateItemRequest) (*QuoteResponse, error) {
	freq, err := parseFrequency(req.Frequency)
	if err != nil {
		return nil, err
	}
	upd := quoting.ItemUpdate{
		Price:          req.Price,
		Qty:            req.Qty,
		Frequency:      freq,
		Payments:       req.Payments,
		Notes:          req.Notes,
		Meta:           req.Meta,
		Addons:         toAddons(req.Addons),
		ClearFinancing: req.ClearFinancing,
	}
	return s.mutate(ctx, "update_item", tenantID, quoteID, nil, func(q *quoting.Quote, refs catalog.Refs) error {
		return q.UpdateItem(itemID, upd, refs, s.opts.now())
	})
}

// RemoveItem deletes a line item from the quote
func (s *LedgerService) RemoveItem(ctx context.Context, tenantID, quoteID, itemID uuid.UUID) (*QuoteResponse, error) {
	return s.mutate(ctx, "remove_item", tenantID, quoteID, nil, func(q *quoting.Quote, refs catalog.Refs) error {
		return q.RemoveItem(itemID, refs, s.opts.now())
	})
}

// Reorder moves a line item to a new position within its category
func (s *LedgerService) Reorder(ctx context.Context, tenantID, quoteID, itemID uuid.UUID, position int) (*QuoteResponse, error) {
	return s.mutate(ctx, "reorder", tenantID, quoteID, nil, func(q *quoting.Quote, refs catalog.Refs) error {
		return q.Reorder(itemID, position, refs, s.opts.now())
	})
}

func (s *LedgerService) mutate(
	ctx context.Context,
	op string,
	tenantID, quoteID uuid.UUID,
	extraIDs []uuid.UUID,
	fn func(q *quoting.Quote, refs catalog.Refs) error,
) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote_ledger", op,
		telemetry.WithAttribute(telemetry.SpanAttrQuoteID, quoteID.String()))
	defer span.End()

	var (
		q    *quoting.Quote
		refs catalog.Refs
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		q, err = repos.QuoteRepo().FindByIDForUpdate(ctx, tenantID, quoteID)
		if err != nil {
			return err
		}
		refs, err = catalog.Resolve(ctx, s.catalog, q.TenantID, append(q.CatalogItemIDs(), extraIDs...))
		if err != nil {
			return err
		}
		if err := fn(q, refs); err != nil {
			return err
		}
		return repos.QuoteRepo().Save(ctx, q)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Debug("Quote ledger updated",
		zap.String("op", op),
		zap.String("quote_id", quoteID.String()),
		zap.Int("items", len(q.Items)))

	resp := ToQuoteResponse(q, refs, quoting.Summarize(q, refs, s.opts.Settings, s.opts.now()))
	return &resp, nil
}
