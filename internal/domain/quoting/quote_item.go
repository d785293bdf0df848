package quoting

import (
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Addon is an extra charge attached to a line item
type Addon struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Total returns price × qty
func (a Addon) Total() decimal.Decimal {
	return a.Price.Mul(a.Qty)
}

// QuoteItem is a priced entry in a quote's line item ledger
type QuoteItem struct {
	ID            uuid.UUID
	QuoteID       uuid.UUID
	CatalogItemID *uuid.UUID // may dangle after the catalog entry is deleted
	Price         decimal.Decimal
	Qty           decimal.Decimal
	Ord           int
	Frequency     *catalog.Frequency
	Payments      *int
	Notes         string
	Meta          map[string]string
	AddonTotal    decimal.Decimal
	Addons        []Addon
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ItemInput carries the fields for a new line item
type ItemInput struct {
	CatalogItemID uuid.UUID
	Price         *decimal.Decimal // nil takes the catalog price
	Qty           decimal.Decimal
	Frequency     *catalog.Frequency
	Payments      *int
	Notes         string
	Meta          map[string]string
	Addons        []Addon
}

// ItemUpdate carries optional changes to an existing line item
type ItemUpdate struct {
	Price     *decimal.Decimal
	Qty       *decimal.Decimal
	Frequency *catalog.Frequency
	Payments  *int
	Notes     *string
	Meta      map[string]string
	Addons    []Addon // nil leaves addons untouched, empty clears them
	// ClearFinancing removes frequency and payments
	ClearFinancing bool
}

// BaseTotal returns price × qty
func (i *QuoteItem) BaseTotal() decimal.Decimal {
	return i.Price.Mul(i.Qty)
}

// LineTotal returns price × qty plus attached addons
func (i *QuoteItem) LineTotal() decimal.Decimal {
	return i.BaseTotal().Add(i.AddonTotal)
}

// IsFinanced reports whether the item is split across recurring installments.
// Both a frequency and a positive payments count are required.
func (i *QuoteItem) IsFinanced() bool {
	return i.Frequency != nil && i.Payments != nil && *i.Payments > 0
}

// SetAddons replaces the addons and recomputes AddonTotal
func (i *QuoteItem) SetAddons(addons []Addon) {
	i.Addons = make([]Addon, 0, len(addons))
	total := decimal.Zero
	for _, a := range addons {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		i.Addons = append(i.Addons, a)
		total = total.Add(a.Total())
	}
	i.AddonTotal = total
}

func validateAmounts(price, qty decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return nil
}

func validateFinancing(freq *catalog.Frequency, payments *int) error {
	if freq != nil && !freq.IsValid() {
		return shared.NewDomainError("INVALID_FREQUENCY", "Unknown billing frequency: "+string(*freq))
	}
	if payments != nil && *payments < 0 {
		return shared.NewDomainError("INVALID_PAYMENTS", "Payments cannot be negative")
	}
	return nil
}

func validateAddons(addons []Addon) error {
	for _, a := range addons {
		if a.Name == "" {
			return shared.NewDomainError("INVALID_ADDON", "Addon name cannot be empty")
		}
		if err := validateAmounts(a.Price, a.Qty); err != nil {
			return err
		}
	}
	return nil
}
