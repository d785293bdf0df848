package quoting

import (
	"context"

	"github.com/erp/quoting/internal/domain/finance"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/quoting"
)

// TransactionScope provides transactional access to the repositories a quote
// transition touches. All repository calls made inside fn share one database
// transaction and are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to the current transaction.
//
// QuoteRepo().FindByIDForUpdate holds a row lock on the quote until commit,
// which serializes concurrent ledger edits, tax runs and executions.
type TransactionalRepositories interface {
	QuoteRepo() quoting.QuoteRepository
	AccountItemRepo() partner.AccountItemRepository
	InvoiceRepo() finance.InvoiceRepository
}

// NoOpTransactionScope runs fn against plain repositories without a transaction.
// This is useful for testing.
type NoOpTransactionScope struct {
	quoteRepo       quoting.QuoteRepository
	accountItemRepo partner.AccountItemRepository
	invoiceRepo     finance.InvoiceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	quoteRepo quoting.QuoteRepository,
	accountItemRepo partner.AccountItemRepository,
	invoiceRepo finance.InvoiceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		quoteRepo:       quoteRepo,
		accountItemRepo: accountItemRepo,
		invoiceRepo:     invoiceRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// QuoteRepo returns the quote repository
func (s *NoOpTransactionScope) QuoteRepo() quoting.QuoteRepository {
	return s.quoteRepo
}

// AccountItemRepo returns the account item repository
func (s *NoOpTransactionScope) AccountItemRepo() partner.AccountItemRepository {
	return s.accountItemRepo
}

// InvoiceRepo returns the invoice repository
func (s *NoOpTransactionScope) InvoiceRepo() finance.InvoiceRepository {
	return s.invoiceRepo
}
