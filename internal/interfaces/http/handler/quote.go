package handler

import (
	"context"
	"time"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/infrastructure/telemetry"
	"github.com/erp/quoting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QuoteService is the quote query and status surface used by QuoteHandler
type QuoteService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req appquoting.CreateQuoteRequest) (*appquoting.QuoteResponse, error)
	GetByID(ctx context.Context, tenantID, quoteID uuid.UUID) (*appquoting.QuoteResponse, error)
	Summary(ctx context.Context, tenantID, quoteID uuid.UUID) (*quoting.Summary, error)
	List(ctx context.Context, tenantID uuid.UUID, filter appquoting.QuoteListFilter) ([]appquoting.QuoteListItemResponse, int64, error)
	Archive(ctx context.Context, tenantID, quoteID uuid.UUID) (*appquoting.QuoteResponse, error)
	Unarchive(ctx context.Context, tenantID, quoteID uuid.UUID) (*appquoting.QuoteResponse, error)
	Approve(ctx context.Context, tenantID, quoteID uuid.UUID) (*appquoting.QuoteResponse, error)
	Decline(ctx context.Context, tenantID, quoteID uuid.UUID) (*appquoting.QuoteResponse, error)
	SetPreferred(ctx context.Context, tenantID, quoteID uuid.UUID, preferred bool) (*appquoting.QuoteResponse, error)
	Delete(ctx context.Context, tenantID, quoteID uuid.UUID) error
}

// LedgerService edits the line items of a quote
type LedgerService interface {
	AddItem(ctx context.Context, tenantID, quoteID uuid.UUID, req appquoting.AddItemRequest) (*appquoting.QuoteResponse, error)
	UpdateItem(ctx context.Context, tenantID, quoteID, itemID uuid.UUID, req appquoting.UpdateItemRequest) (*appquoting.QuoteResponse, error)
	RemoveItem(ctx context.Context, tenantID, quoteID, itemID uuid.UUID) (*appquoting.QuoteResponse, error)
	Reorder(ctx context.Context, tenantID, quoteID, itemID uuid.UUID, position int) (*appquoting.QuoteResponse, error)
}

// LifecycleService runs send and direct execution
type LifecycleService interface {
	Send(ctx context.Context, tenantID, quoteID uuid.UUID) (*appquoting.QuoteResponse, error)
	ExecuteDirect(ctx context.Context, tenantID, quoteID uuid.UUID, req appquoting.ExecuteDirectRequest) (*appquoting.QuoteResponse, error)
}

// CotermService executes co-term quotes
type CotermService interface {
	ExecuteCoterm(ctx context.Context, tenantID, quoteID uuid.UUID) (*appquoting.CotermResult, error)
}

// TaxService calculates and stores quote tax
type TaxService interface {
	CalculateTax(ctx context.Context, tenantID, quoteID uuid.UUID) (*appquoting.TaxOutcome, error)
}

// QuoteServices groups the application services behind QuoteHandler
type QuoteServices struct {
	Quotes    QuoteService
	Ledger    LedgerService
	Lifecycle LifecycleService
	Coterm    CotermService
	Tax       TaxService
}

// QuoteHandler handles the quote API endpoints
type QuoteHandler struct {
	BaseHandler
	quotes    QuoteService
	ledger    LedgerService
	lifecycle LifecycleService
	coterm    CotermService
	tax       TaxService
	metrics   *telemetry.QuoteMetrics
	// idempotency guards the irreversible execute and co-term routes
	idempotency gin.HandlerFunc
}

// NewQuoteHandler creates a new QuoteHandler; metrics may be nil
func NewQuoteHandler(services QuoteServices, metrics *telemetry.QuoteMetrics) *QuoteHandler {
	return &QuoteHandler{
		quotes:    services.Quotes,
		ledger:    services.Ledger,
		lifecycle: services.Lifecycle,
		coterm:    services.Coterm,
		tax:       services.Tax,
		metrics:   metrics,
	}
}

// WithIdempotency installs mw in front of the execute and co-term routes
func (h *QuoteHandler) WithIdempotency(mw gin.HandlerFunc) *QuoteHandler {
	h.idempotency = mw
	return h
}

func (h *QuoteHandler) guarded(fn gin.HandlerFunc) []gin.HandlerFunc {
	if h.idempotency == nil {
		return []gin.HandlerFunc{fn}
	}
	return []gin.HandlerFunc{h.idempotency, fn}
}

// RegisterRoutes mounts the quote endpoints on rg
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.POST("", h.Create)
	quotes.GET("", h.List)
	quotes.GET("/:id", h.GetByID)
	quotes.DELETE("/:id", h.Delete)
	quotes.GET("/:id/summary", h.Summary)
	quotes.POST("/:id/archive", h.Archive)
	quotes.POST("/:id/unarchive", h.Unarchive)
	quotes.PUT("/:id/preferred", h.SetPreferred)
	quotes.POST("/:id/approve", h.Approve)
	quotes.POST("/:id/decline", h.Decline)

	quotes.POST("/:id/items", h.AddItem)
	quotes.PUT("/:id/items/:item_id", h.UpdateItem)
	quotes.DELETE("/:id/items/:item_id", h.RemoveItem)
	quotes.POST("/:id/items/:item_id/reorder", h.ReorderItem)

	quotes.POST("/:id/send", h.Send)
	quotes.POST("/:id/execute", h.guarded(h.ExecuteDirect)...)
	quotes.POST("/:id/coterm", h.guarded(h.ExecuteCoterm)...)
	quotes.POST("/:id/tax", h.CalculateTax)
}

// CreateQuoteRequest represents a request to draft a quote
// @Description	Request body for drafting a quote for an account or a lead
type CreateQuoteRequest struct {
	AccountID *string    `json:"account_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	LeadID    *string    `json:"lead_id" binding:"omitempty,uuid"`
	CotermID  *string    `json:"coterm_id" binding:"omitempty,uuid"`
	Term      *int       `json:"term" binding:"omitempty,min=0,max=120" example:"36"`
	NetTerms  *int       `json:"net_terms" binding:"omitempty,min=0,max=365" example:"30"`
	ExpiresOn *time.Time `json:"expires_on"`
	CouponID  *string    `json:"coupon_id" binding:"omitempty,uuid"`
	Preferred bool       `json:"preferred"`
}

// SetPreferredRequest flags a quote as the preferred option
type SetPreferredRequest struct {
	Preferred *bool `json:"preferred" binding:"required"`
}

// ListQuotesQuery represents the list query string
type ListQuotesQuery struct {
	dto.ListRequest
	Status    string `form:"status" binding:"omitempty,oneof=DRAFT SENT APPROVED DECLINED EXECUTED TERMINATED"`
	AccountID string `form:"account_id" binding:"omitempty,uuid"`
	LeadID    string `form:"lead_id" binding:"omitempty,uuid"`
	Archived  *bool  `form:"archived"`
}

// Create godoc
// @ID           createQuote
// @Summary      Draft a quote
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body CreateQuoteRequest true "Quote owner and terms"
// @Success      201 {object} Envelope[appquoting.QuoteResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Router       /quotes [post]
func (h *QuoteHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.quotes.Create(c.Request.Context(), tenantID, appquoting.CreateQuoteRequest{
		AccountID: parseOptionalUUID(req.AccountID),
		LeadID:    parseOptionalUUID(req.LeadID),
		CotermID:  parseOptionalUUID(req.CotermID),
		Term:      req.Term,
		NetTerms:  req.NetTerms,
		ExpiresOn: req.ExpiresOn,
		CouponID:  parseOptionalUUID(req.CouponID),
		Preferred: req.Preferred,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID godoc
// @ID           getQuote
// @Summary      Get a quote with its line items and summary
// @Tags         quotes
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Failure      404 {object} ErrorEnvelope
// @Router       /quotes/{id} [get]
func (h *QuoteHandler) GetByID(c *gin.Context) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return
	}
	resp, err := h.quotes.GetByID(c.Request.Context(), tenantID, quoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listQuotes
// @Summary      List quotes
// @Tags         quotes
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        status query string false "Quote status"
// @Param        account_id query string false "Account ID"
// @Param        lead_id query string false "Lead ID"
// @Param        archived query bool false "Archived flag"
// @Success      200 {object} Envelope[[]appquoting.QuoteListItemResponse]
// @Router       /quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	query := ListQuotesQuery{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	items, total, err := h.quotes.List(c.Request.Context(), tenantID, appquoting.QuoteListFilter{
		Page:      query.Page,
		PageSize:  query.PageSize,
		OrderBy:   query.OrderBy,
		OrderDir:  query.OrderDir,
		Status:    query.Status,
		AccountID: parseOptionalUUID(&query.AccountID),
		LeadID:    parseOptionalUUID(&query.LeadID),
		Archived:  query.Archived,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, query.Page, query.PageSize)
}

// Summary godoc
// @ID           getQuoteSummary
// @Summary      Get the financial summary of a quote
// @Tags         quotes
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Success      200 {object} Envelope[quoting.Summary]
// @Failure      404 {object} ErrorEnvelope
// @Router       /quotes/{id}/summary [get]
func (h *QuoteHandler) Summary(c *gin.Context) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return
	}
	summary, err := h.quotes.Summary(c.Request.Context(), tenantID, quoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Delete godoc
// @ID           deleteQuote
// @Summary      Delete a quote that was never executed
// @Tags         quotes
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Success      204
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Router       /quotes/{id} [delete]
func (h *QuoteHandler) Delete(c *gin.Context) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return
	}
	if err := h.quotes.Delete(c.Request.Context(), tenantID, quoteID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Archive godoc
// @ID           archiveQuote
// @Summary      Archive a quote
// @Tags         quotes
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Router       /quotes/{id}/archive [post]
func (h *QuoteHandler) Archive(c *gin.Context) {
	h.transition(c, h.quotes.Archive)
}

// Unarchive godoc
// @ID           unarchiveQuote
// @Summary      Restore an archived quote
// @Tags         quotes
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Failure      422 {object} ErrorEnvelope
// @Router       /quotes/{id}/unarchive [post]
func (h *QuoteHandler) Unarchive(c *gin.Context) {
	h.transition(c, h.quotes.Unarchive)
}

// Approve godoc
// @ID           approveQuote
// @Summary      Record customer approval of a sent quote
// @Tags         quotes
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Failure      422 {object} ErrorEnvelope
// @Router       /quotes/{id}/approve [post]
func (h *QuoteHandler) Approve(c *gin.Context) {
	h.transition(c, h.quotes.Approve)
}

// Decline godoc
// @ID           declineQuote
// @Summary      Record customer rejection of a sent quote
// @Tags         quotes
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Failure      422 {object} ErrorEnvelope
// @Router       /quotes/{id}/decline [post]
func (h *QuoteHandler) Decline(c *gin.Context) {
	h.transition(c, h.quotes.Decline)
}

// SetPreferred godoc
// @ID           setQuotePreferred
// @Summary      Flag or unflag the quote as preferred
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Param        request body SetPreferredRequest true "Preferred flag"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Router       /quotes/{id}/preferred [put]
func (h *QuoteHandler) SetPreferred(c *gin.Context) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return
	}
	var req SetPreferredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.quotes.SetPreferred(c.Request.Context(), tenantID, quoteID, *req.Preferred)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *QuoteHandler) transition(c *gin.Context, fn func(ctx context.Context, tenantID, quoteID uuid.UUID) (*appquoting.QuoteResponse, error)) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), tenantID, quoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// tenant resolves the tenant or answers 401
func (h *QuoteHandler) tenant(c *gin.Context) (uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	return tenantID, true
}

// quoteParams resolves the tenant and the :id path parameter
func (h *QuoteHandler) quoteParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	quoteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid quote ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, quoteID, true
}

// parseOptionalUUID parses a binding-validated UUID string; empty yields nil
func parseOptionalUUID(s *string) *uuid.UUID {
	if s == nil || *s == "" {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

func totalFloat(s quoting.Summary) float64 {
	f, _ := s.Total.Amount().Float64()
	return f
}
