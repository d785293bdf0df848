package handler

import (
	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExecuteDirectRequest represents a signed execution of a quote
// @Description	Signature capture for executing a quote into a contract
type ExecuteDirectRequest struct {
	AccountID  string `json:"account_id" binding:"required,uuid"`
	SignerName string `json:"signer_name" binding:"required,max=200" example:"Jane Smith"`
	// Signature is a base64 image, optionally as a data URL
	Signature string `json:"signature" binding:"required"`
}

// CotermResponse is the outcome of a co-term execution with the activated quote
type CotermResponse struct {
	Result *appquoting.CotermResult  `json:"result"`
	Quote  *appquoting.QuoteResponse `json:"quote,omitempty"`
}

// Send godoc
// @ID           sendQuote
// @Summary      Send a quote to its recipient
// @Tags         quote-lifecycle
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Failure      409 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Router       /quotes/{id}/send [post]
func (h *QuoteHandler) Send(c *gin.Context) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return
	}
	resp, err := h.lifecycle.Send(c.Request.Context(), tenantID, quoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordSent(c.Request.Context(), tenantID)
	}
	h.Success(c, resp)
}

// ExecuteDirect godoc
// @ID           executeQuote
// @Summary      Execute a quote into a contract with a captured signature
// @Tags         quote-lifecycle
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Param        request body ExecuteDirectRequest true "Signer and signature"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Failure      409 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Router       /quotes/{id}/execute [post]
func (h *QuoteHandler) ExecuteDirect(c *gin.Context) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return
	}
	var req ExecuteDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.lifecycle.ExecuteDirect(c.Request.Context(), tenantID, quoteID, appquoting.ExecuteDirectRequest{
		AccountID:  uuid.MustParse(req.AccountID),
		SignerName: req.SignerName,
		SignerIP:   c.ClientIP(),
		Signature:  req.Signature,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordExecuted(c.Request.Context(), tenantID, telemetry.ExecutionDirect, totalFloat(resp.Summary))
	}
	h.Success(c, resp)
}

// ExecuteCoterm godoc
// @ID           executeCoterm
// @Summary      Execute a co-term quote against the contract it replaces
// @Description  Terminates the source contract, migrates its services and bills the difference in one transaction
// @Tags         quote-lifecycle
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Success      200 {object} Envelope[CotermResponse]
// @Failure      409 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Failure      500 {object} ErrorEnvelope
// @Router       /quotes/{id}/coterm [post]
func (h *QuoteHandler) ExecuteCoterm(c *gin.Context) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	result, err := h.coterm.ExecuteCoterm(ctx, tenantID, quoteID)
	if err != nil {
		if h.metrics != nil && appquoting.IsOrchestrationFailure(err) {
			h.metrics.RecordCotermFailed(ctx, tenantID)
		}
		h.HandleError(c, err)
		return
	}

	resp := CotermResponse{Result: result}
	// the contract is committed; a failed reload only drops the quote from the body
	if q, err := h.quotes.GetByID(ctx, tenantID, quoteID); err == nil {
		resp.Quote = q
		if h.metrics != nil {
			h.metrics.RecordExecuted(ctx, tenantID, telemetry.ExecutionCoterm, totalFloat(q.Summary))
		}
	}
	h.Success(c, resp)
}

// CalculateTax godoc
// @ID           calculateQuoteTax
// @Summary      Calculate and store the tax of a quote
// @Description  Uses the finance integration when available and the location rate table otherwise
// @Tags         quote-lifecycle
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Success      200 {object} Envelope[appquoting.TaxOutcome]
// @Failure      404 {object} ErrorEnvelope
// @Router       /quotes/{id}/tax [post]
func (h *QuoteHandler) CalculateTax(c *gin.Context) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return
	}
	outcome, err := h.tax.CalculateTax(c.Request.Context(), tenantID, quoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordTax(c.Request.Context(), string(outcome.Status))
	}
	h.Success(c, outcome)
}
