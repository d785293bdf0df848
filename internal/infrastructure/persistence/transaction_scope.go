package persistence

import (
	"context"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/domain/finance"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/quoting"
	"gorm.io/gorm"
)

// GormTransactionScope implements appquoting.TransactionScope using GORM transactions
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appquoting.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) QuoteRepo() quoting.QuoteRepository {
	return NewGormQuoteRepository(r.tx)
}

func (r *gormTransactionalRepositories) AccountItemRepo() partner.AccountItemRepository {
	return NewGormAccountItemRepository(r.tx)
}

func (r *gormTransactionalRepositories) InvoiceRepo() finance.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

var (
	_ appquoting.TransactionScope          = (*GormTransactionScope)(nil)
	_ appquoting.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
