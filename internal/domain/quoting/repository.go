package quoting

import (
	"context"

	"github.com/google/uuid"
)

// ListQuery selects a page of a tenant's quotes. Nil criteria match everything.
type ListQuery struct {
	Page      int
	PageSize  int
	OrderBy   string
	OrderDir  string
	Status    *QuoteStatus
	AccountID *uuid.UUID
	LeadID    *uuid.UUID
	Archived  *bool
}

// Offset is the number of rows skipped before Page
func (q ListQuery) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// QuoteRepository defines the interface for quote persistence
type QuoteRepository interface {
	// FindByIDForTenant finds a quote with its items by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Quote, error)

	// FindByIDForUpdate finds a quote and locks its row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Quote, error)

	// FindAllForTenant finds quotes for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query ListQuery) ([]Quote, error)

	// CountForTenant counts quotes for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, query ListQuery) (int64, error)

	// Save creates or updates a quote together with its items
	Save(ctx context.Context, quote *Quote) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, quote *Quote) error

	// DeleteForTenant soft deletes a quote
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
