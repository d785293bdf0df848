package handler

import (
	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddonRequest is an addon attached to a line item
type AddonRequest struct {
	Name  string          `json:"name" binding:"required,max=200" example:"After-hours support"`
	Price decimal.Decimal `json:"price" example:"25.00"`
	Qty   decimal.Decimal `json:"qty" example:"1"`
}

// AddItemRequest represents a request to add a line item
// @Description	Request body for adding a catalog item to a quote
type AddItemRequest struct {
	CatalogItemID string            `json:"catalog_item_id" binding:"required,uuid"`
	Price         *decimal.Decimal  `json:"price" example:"1250.00"`
	Qty           decimal.Decimal   `json:"qty" example:"2"`
	Frequency     *string           `json:"frequency" binding:"omitempty,oneof=MONTHLY QUARTERLY ANNUALLY" example:"MONTHLY"`
	Payments      *int              `json:"payments" binding:"omitempty,min=1,max=120" example:"3"`
	Notes         string            `json:"notes" binding:"max=2000"`
	Meta          map[string]string `json:"meta"`
	Addons        []AddonRequest    `json:"addons" binding:"omitempty,dive"`
}

// UpdateItemRequest represents a request to change a line item
// @Description	Request body for updating a quote line item; omitted fields are left as they are
type UpdateItemRequest struct {
	Price          *decimal.Decimal  `json:"price"`
	Qty            *decimal.Decimal  `json:"qty"`
	Frequency      *string           `json:"frequency" binding:"omitempty,oneof=MONTHLY QUARTERLY ANNUALLY"`
	Payments       *int              `json:"payments" binding:"omitempty,min=1,max=120"`
	ClearFinancing bool              `json:"clear_financing"`
	Notes          *string           `json:"notes" binding:"omitempty,max=2000"`
	Meta           map[string]string `json:"meta"`
	Addons         []AddonRequest    `json:"addons" binding:"omitempty,dive"`
}

// ReorderItemRequest moves a line item within its category
type ReorderItemRequest struct {
	Position *int `json:"position" binding:"required,min=0" example:"0"`
}

// AddItem godoc
// @ID           addQuoteItem
// @Summary      Add a line item to a quote
// @Tags         quote-items
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Param        request body AddItemRequest true "Line item"
// @Success      201 {object} Envelope[appquoting.QuoteResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Router       /quotes/{id}/items [post]
func (h *QuoteHandler) AddItem(c *gin.Context) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return
	}
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.ledger.AddItem(c.Request.Context(), tenantID, quoteID, appquoting.AddItemRequest{
		CatalogItemID: uuid.MustParse(req.CatalogItemID),
		Price:         req.Price,
		Qty:           req.Qty,
		Frequency:     req.Frequency,
		Payments:      req.Payments,
		Notes:         req.Notes,
		Meta:          req.Meta,
		Addons:        toAddonInputs(req.Addons),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// UpdateItem godoc
// @ID           updateQuoteItem
// @Summary      Update a line item
// @Tags         quote-items
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Param        item_id path string true "Item ID"
// @Param        request body UpdateItemRequest true "Changed fields"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Router       /quotes/{id}/items/{item_id} [put]
func (h *QuoteHandler) UpdateItem(c *gin.Context) {
	tenantID, quoteID, itemID, ok := h.itemParams(c)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.ledger.UpdateItem(c.Request.Context(), tenantID, quoteID, itemID, appquoting.UpdateItemRequest{
		Price:          req.Price,
		Qty:            req.Qty,
		Frequency:      req.Frequency,
		Payments:       req.Payments,
		ClearFinancing: req.ClearFinancing,
		Notes:          req.Notes,
		Meta:           req.Meta,
		Addons:         toAddonInputs(req.Addons),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem godoc
// @ID           removeQuoteItem
// @Summary      Remove a line item
// @Tags         quote-items
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Param        item_id path string true "Item ID"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Router       /quotes/{id}/items/{item_id} [delete]
func (h *QuoteHandler) RemoveItem(c *gin.Context) {
	tenantID, quoteID, itemID, ok := h.itemParams(c)
	if !ok {
		return
	}
	resp, err := h.ledger.RemoveItem(c.Request.Context(), tenantID, quoteID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReorderItem godoc
// @ID           reorderQuoteItem
// @Summary      Move a line item within its category
// @Tags         quote-items
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Quote ID"
// @Param        item_id path string true "Item ID"
// @Param        request body ReorderItemRequest true "Zero-based target position"
// @Success      200 {object} Envelope[appquoting.QuoteResponse]
// @Router       /quotes/{id}/items/{item_id}/reorder [post]
func (h *QuoteHandler) ReorderItem(c *gin.Context) {
	tenantID, quoteID, itemID, ok := h.itemParams(c)
	if !ok {
		return
	}
	var req ReorderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.ledger.Reorder(c.Request.Context(), tenantID, quoteID, itemID, *req.Position)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *QuoteHandler) itemParams(c *gin.Context) (uuid.UUID, uuid.UUID, uuid.UUID, bool) {
	tenantID, quoteID, ok := h.quoteParams(c)
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	return tenantID, quoteID, itemID, true
}

func toAddonInputs(in []AddonRequest) []appquoting.AddonInput {
	if in == nil {
		return nil
	}
	out := make([]appquoting.AddonInput, 0, len(in))
	for _, a := range in {
		out = append(out, appquoting.AddonInput{Name: a.Name, Price: a.Price, Qty: a.Qty})
	}
	return out
}
