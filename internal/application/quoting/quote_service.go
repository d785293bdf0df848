package quoting

import (
	"context"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuoteService handles quote creation, queries and the simple status overlays
type QuoteService struct {
	txScope        TransactionScope
	quoteRepo      quoting.QuoteRepository
	accountRepo    partner.AccountRepository
	leadRepo       partner.LeadRepository
	catalog        catalog.Provider
	margins        MarginAnalyzer
	opts           Options
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(
	txScope TransactionScope,
	quoteRepo quoting.QuoteRepository,
	accountRepo partner.AccountRepository,
	leadRepo partner.LeadRepository,
	provider catalog.Provider,
	margins MarginAnalyzer,
	opts Options,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		txScope:     txScope,
		quoteRepo:   quoteRepo,
		accountRepo: accountRepo,
		leadRepo:    leadRepo,
		catalog:     provider,
		margins:     margins,
		opts:        opts,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *QuoteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create drafts a new quote for an account or a lead
func (s *QuoteService) Create(ctx context.Context, tenantID uuid.UUID, req CreateQuoteRequest) (*QuoteResponse, error) {
	if req.AccountID != nil {
		if _, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, *req.AccountID); err != nil {
			return nil, err
		}
	}
	if req.LeadID != nil {
		if _, err := s.leadRepo.FindByIDForTenant(ctx, tenantID, *req.LeadID); err != nil {
			return nil, err
		}
	}

	term := s.opts.DefaultTerm
	if req.Term != nil {
		term = *req.Term
	}
	netTerms := s.opts.DefaultNetTerms
	if req.NetTerms != nil {
		netTerms = *req.NetTerms
	}

	q, err := quoting.NewQuote(tenantID, req.AccountID, req.LeadID, term, netTerms)
	if err != nil {
		return nil, err
	}
	if req.CotermID != nil {
		source, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, *req.CotermID)
		if err != nil {
			return nil, err
		}
		if !source.IsExecuted() || source.AccountID == nil || req.AccountID == nil || *source.AccountID != *req.AccountID {
			return nil, shared.NewDomainError("INVALID_COTERM", "Co-term source must be an executed contract of the same account")
		}
		if err := q.SetCoterm(source.ID); err != nil {
			return nil, err
		}
	}
	if req.ExpiresOn != nil {
		if err := q.SetExpiry(req.ExpiresOn); err != nil {
			return nil, err
		}
	}
	if req.CouponID != nil {
		if err := q.ApplyCoupon(req.CouponID); err != nil {
			return nil, err
		}
	}
	q.SetPreferred(req.Preferred)

	if err := s.quoteRepo.Save(ctx, q); err != nil {
		s.logger.Error("Failed to create quote", zap.Error(err))
		return nil, err
	}
	publishEvents(ctx, s.eventPublisher, s.logger, q)

	s.logger.Info("Quote created",
		zap.String("quote_id", q.ID.String()),
		zap.String("tenant_id", tenantID.String()))

	resp := ToQuoteResponse(q, catalog.Refs{}, quoting.Summarize(q, catalog.Refs{}, s.opts.Settings, s.opts.now()))
	return &resp, nil
}

// GetByID retrieves a quote with its items and financial summary
func (s *QuoteService) GetByID(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	q, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	refs, err := resolveRefs(ctx, s.catalog, q)
	if err != nil {
		return nil, err
	}
	resp := ToQuoteResponse(q, refs, s.summarize(ctx, q, refs))
	return &resp, nil
}

// Summary returns the financial aggregates of a quote, including margin analysis
func (s *QuoteService) Summary(ctx context.Context, tenantID, quoteID uuid.UUID) (*quoting.Summary, error) {
	q, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	refs, err := resolveRefs(ctx, s.catalog, q)
	if err != nil {
		return nil, err
	}
	summary := s.summarize(ctx, q, refs)
	return &summary, nil
}

// summarize computes aggregates; a failing margin analysis leaves Margin empty
func (s *QuoteService) summarize(ctx context.Context, q *quoting.Quote, refs catalog.Refs) quoting.Summary {
	summary := quoting.Summarize(q, refs, s.opts.Settings, s.opts.now())
	if s.margins == nil {
		return summary
	}
	margin, err := s.margins.ByQuote(ctx, q, refs)
	if err != nil {
		s.logger.Warn("Margin analysis failed",
			zap.String("quote_id", q.ID.String()),
			zap.Error(err))
		return summary
	}
	summary.Margin = margin
	return summary
}

// List retrieves quotes with filtering and pagination
func (s *QuoteService) List(ctx context.Context, tenantID uuid.UUID, filter QuoteListFilter) ([]QuoteListItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	query := quoting.ListQuery{
		Page:      filter.Page,
		PageSize:  filter.PageSize,
		OrderBy:   filter.OrderBy,
		OrderDir:  filter.OrderDir,
		AccountID: filter.AccountID,
		LeadID:    filter.LeadID,
		Archived:  filter.Archived,
	}
	if filter.Status != "" {
		status := quoting.QuoteStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError(shared.CodeInvalidInput, "Unknown quote status: "+filter.Status)
		}
		query.Status = &status
	}

	quotes, err := s.quoteRepo.FindAllForTenant(ctx, tenantID, query)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.quoteRepo.CountForTenant(ctx, tenantID, query)
	if err != nil {
		return nil, 0, err
	}

	items := make([]QuoteListItemResponse, 0, len(quotes))
	for i := range quotes {
		items = append(items, ToQuoteListItemResponse(&quotes[i]))
	}
	return items, total, nil
}

// Archive hides a quote and locks it for editing
func (s *QuoteService) Archive(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	return s.update(ctx, tenantID, quoteID, func(q *quoting.Quote) error {
		q.Archive(s.opts.now())
		return nil
	})
}

// Unarchive restores a quote that was never executed
func (s *QuoteService) Unarchive(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	return s.update(ctx, tenantID, quoteID, func(q *quoting.Quote) error {
		return q.Unarchive(s.opts.now())
	})
}

// Approve records customer acceptance of a sent quote
func (s *QuoteService) Approve(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	return s.update(ctx, tenantID, quoteID, func(q *quoting.Quote) error {
		return q.Approve(s.opts.now())
	})
}

// Decline records customer rejection of a sent quote
func (s *QuoteService) Decline(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	return s.update(ctx, tenantID, quoteID, func(q *quoting.Quote) error {
		return q.Decline(s.opts.now())
	})
}

// SetPreferred flags or unflags the quote as the preferred option
func (s *QuoteService) SetPreferred(ctx context.Context, tenantID, quoteID uuid.UUID, preferred bool) (*QuoteResponse, error) {
	return s.update(ctx, tenantID, quoteID, func(q *quoting.Quote) error {
		q.SetPreferred(preferred)
		return nil
	})
}

// Delete soft deletes a quote that was never executed
func (s *QuoteService) Delete(ctx context.Context, tenantID, quoteID uuid.UUID) error {
	q, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return err
	}
	if q.ActivatedOn != nil {
		return shared.NewDomainError(shared.CodeInvalidState, "Executed contracts cannot be deleted")
	}
	return s.quoteRepo.DeleteForTenant(ctx, tenantID, quoteID)
}

// update applies fn to the locked quote row and saves it in the same transaction
func (s *QuoteService) update(ctx context.Context, tenantID, quoteID uuid.UUID, fn func(q *quoting.Quote) error) (*QuoteResponse, error) {
	var q *quoting.Quote
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		q, err = repos.QuoteRepo().FindByIDForUpdate(ctx, tenantID, quoteID)
		if err != nil {
			return err
		}
		if err := fn(q); err != nil {
			return err
		}
		return repos.QuoteRepo().SaveWithLock(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	publishEvents(ctx, s.eventPublisher, s.logger, q)

	refs, err := resolveRefs(ctx, s.catalog, q)
	if err != nil {
		return nil, err
	}
	resp := ToQuoteResponse(q, refs, s.summarize(ctx, q, refs))
	return &resp, nil
}
