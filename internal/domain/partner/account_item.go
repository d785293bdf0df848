package partner

import (
	"time"

	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountItem is a recurring service billed to an account.
// QuoteID records the contract the service was migrated from.
type AccountItem struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	AccountID     uuid.UUID
	CatalogItemID uuid.UUID
	QuoteID       *uuid.UUID
	Price         decimal.Decimal
	Qty           decimal.Decimal
	Notes         string
	Meta          map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAccountItem creates a recurring item sourced from the given quote
func NewAccountItem(tenantID, accountID, catalogItemID uuid.UUID, quoteID *uuid.UUID, price, qty decimal.Decimal, now time.Time) (*AccountItem, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if catalogItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CATALOG_ITEM", "Catalog item ID cannot be empty")
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return &AccountItem{
		ID:            uuid.New(),
		TenantID:      tenantID,
		AccountID:     accountID,
		CatalogItemID: catalogItemID,
		QuoteID:       quoteID,
		Price:         price,
		Qty:           qty,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// MonthlyTotal returns price × qty
func (i *AccountItem) MonthlyTotal() decimal.Decimal {
	return i.Price.Mul(i.Qty)
}
