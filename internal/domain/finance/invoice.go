package finance

import (
	"fmt"
	"time"

	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "DRAFT"
	InvoiceStatusSent  InvoiceStatus = "SENT"
	InvoiceStatusPaid  InvoiceStatus = "PAID"
	InvoiceStatusVoid  InvoiceStatus = "VOID"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusVoid:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return target == InvoiceStatusSent || target == InvoiceStatusVoid
	case InvoiceStatusSent:
		return target == InvoiceStatusPaid || target == InvoiceStatusVoid
	}
	return false
}

// InvoiceItem is a billed line on an invoice
type InvoiceItem struct {
	ID            uuid.UUID
	InvoiceID     uuid.UUID
	CatalogItemID uuid.UUID
	Description   string
	Price         decimal.Decimal
	Qty           decimal.Decimal
	CreatedAt     time.Time
}

// Amount returns price × qty
func (i *InvoiceItem) Amount() decimal.Decimal {
	return i.Price.Mul(i.Qty)
}

// Invoice bills one-time charges to an account
type Invoice struct {
	shared.TenantAggregateRoot
	AccountID uuid.UUID
	QuoteID   *uuid.UUID // quote that produced the invoice, if any
	Number    string
	Status    InvoiceStatus
	DueDate   time.Time
	SentAt    *time.Time
	Items     []InvoiceItem
}

// NewInvoice creates a draft invoice due netTermsDays after now
func NewInvoice(tenantID, accountID uuid.UUID, number string, netTermsDays int, now time.Time) (*Invoice, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if netTermsDays < 0 {
		return nil, shared.NewDomainError("INVALID_NET_TERMS", "Net terms cannot be negative")
	}
	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountID:           accountID,
		Number:              number,
		Status:              InvoiceStatusDraft,
		DueDate:             now.AddDate(0, 0, netTermsDays),
		Items:               make([]InvoiceItem, 0),
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return inv, nil
}

// AddItem appends a billed line to a draft invoice
func (inv *Invoice) AddItem(catalogItemID uuid.UUID, description string, price, qty decimal.Decimal) (*InvoiceItem, error) {
	if inv.Status != InvoiceStatusDraft {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Only draft invoices can be modified")
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	inv.Items = append(inv.Items, InvoiceItem{
		ID:            uuid.New(),
		InvoiceID:     inv.ID,
		CatalogItemID: catalogItemID,
		Description:   description,
		Price:         price,
		Qty:           qty,
		CreatedAt:     inv.UpdatedAt,
	})
	return &inv.Items[len(inv.Items)-1], nil
}

// Send moves a draft invoice to SENT
func (inv *Invoice) Send(now time.Time) error {
	if !inv.Status.CanTransitionTo(InvoiceStatusSent) {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot send invoice in status %s", inv.Status))
	}
	if len(inv.Items) == 0 {
		return shared.NewDomainError("EMPTY_INVOICE", "Invoice has no items")
	}
	inv.Status = InvoiceStatusSent
	inv.SentAt = &now
	inv.Touch(now)
	return nil
}

// Total returns the sum of item amounts
func (inv *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range inv.Items {
		total = total.Add(inv.Items[i].Amount())
	}
	return total
}

// TaxLocation maps a jurisdiction to a tax rate percentage
type TaxLocation struct {
	StateCode string
	Rate      decimal.Decimal // percent, e.g. 8.25
}
