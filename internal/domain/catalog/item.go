package catalog

import (
	"context"
	"strings"

	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemType distinguishes recurring services from one-time products
type ItemType string

const (
	ItemTypeService ItemType = "SERVICE"
	ItemTypeProduct ItemType = "PRODUCT"
)

// IsValid checks if the type is a known ItemType
func (t ItemType) IsValid() bool {
	return t == ItemTypeService || t == ItemTypeProduct
}

// Frequency is a billing interval
type Frequency string

const (
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyAnnually  Frequency = "ANNUALLY"
)

// IsValid checks if the frequency is a known billing interval
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}

// ParseFrequency normalizes user input into a Frequency
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", shared.NewDomainError("INVALID_FREQUENCY", "Unknown billing frequency: "+s)
	}
	return f, nil
}

// Item is the master definition of a sellable thing, independent of any quote's pricing.
// Items are read-only from the quoting engine's perspective.
type Item struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	SKU       string
	Name      string
	Type      ItemType
	Taxable   bool
	Price     decimal.Decimal // catalog unit price
	Cost      decimal.Decimal // unit cost, consumed by margin analysis
	Frequency Frequency       // recurrence for services
}

// Provider resolves a tenant's catalog items by ID.
// Missing IDs and items of other tenants are absent from the result; they are not an error.
type Provider interface {
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*Item, error)
}
