package partner

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	Save(ctx context.Context, account *Account) error
}

// LeadRepository defines the interface for lead persistence
type LeadRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Lead, error)
	Save(ctx context.Context, lead *Lead) error
}

// AccountItemRepository defines the interface for account-level recurring items
type AccountItemRepository interface {
	// FindByAccount lists the recurring items billed to an account
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]AccountItem, error)

	// CreateBatch inserts several items at once
	CreateBatch(ctx context.Context, items []*AccountItem) error

	// DeleteByQuote removes the account's items that were migrated from the given quote
	DeleteByQuote(ctx context.Context, tenantID, accountID, quoteID uuid.UUID) (int64, error)
}
