package finance

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByIDForTenant finds an invoice with its items
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindByAccount lists invoices billed to an account, newest first
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]Invoice, error)

	// Save creates or updates an invoice together with its items
	Save(ctx context.Context, invoice *Invoice) error

	// GenerateNumber returns the next invoice number for a tenant
	GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// TaxLocationRepository reads the jurisdiction tax table
type TaxLocationRepository interface {
	// FindByState returns the location for a state code or shared.ErrNotFound
	FindByState(ctx context.Context, stateCode string) (*TaxLocation, error)
}
