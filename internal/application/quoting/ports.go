package quoting

import (
	"context"
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinanceIntegration is the external accounting system.
// Any error is treated as the integration being unavailable.
type FinanceIntegration interface {
	TaxByQuote(ctx context.Context, quote *quoting.Quote) (decimal.Decimal, error)
}

// TaxRateTable resolves a jurisdiction's tax rate in percent.
// found is false when the jurisdiction has no rate.
type TaxRateTable interface {
	RateFor(ctx context.Context, stateCode string) (rate decimal.Decimal, found bool, err error)
}

// MarginAnalyzer computes profitability for a quote; it never mutates the quote
type MarginAnalyzer interface {
	ByQuote(ctx context.Context, quote *quoting.Quote, refs catalog.Refs) (*quoting.Margin, error)
}

// DocumentRenderer produces a PDF for a quote or contract
type DocumentRenderer interface {
	Render(ctx context.Context, templateName string, doc Document) ([]byte, error)
}

// FileStorage persists binary files and returns their ID
type FileStorage interface {
	Store(ctx context.Context, name, mimeType string, data []byte, ownerID uuid.UUID) (string, error)
	Delete(ctx context.Context, fileID string) error
}

// Notifier hands a templated message to the delivery system.
// Delivery itself is asynchronous and its failures are not reported back.
type Notifier interface {
	Deliver(ctx context.Context, n Notification) error
}

// ActivityRecorder appends entries to the audit log
type ActivityRecorder interface {
	Record(ctx context.Context, activity Activity) error
}

// Template names used for quote notifications and documents
const (
	TemplateQuoteSent       = "quote_sent"
	TemplateCotermQuoteSent = "coterm_quote_sent"
	TemplateCotermExecuted  = "coterm_executed"
	TemplateQuoteDocument   = "quote"
	TemplateContract        = "contract"
)

// Activity types written to the audit log
const (
	ActivityQuoteSent     = "quote.sent"
	ActivityQuoteExecuted = "quote.executed"
	ActivityQuoteCotermed = "quote.cotermed"
	ActivityTaxCalculated = "quote.tax_calculated"
)

// Recipient is the addressee of a notification
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Attachment is a file sent along with a notification
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Notification is a templated message for one recipient
type Notification struct {
	TenantID    uuid.UUID      `json:"tenant_id"`
	Template    string         `json:"template"`
	Recipient   Recipient      `json:"recipient"`
	Models      map[string]any `json:"models"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// Activity is one audit log entry
type Activity struct {
	TenantID  uuid.UUID      `json:"tenant_id"`
	Type      string         `json:"type"`
	SubjectID uuid.UUID      `json:"subject_id"`
	Message   string         `json:"message"`
	Detail    map[string]any `json:"detail,omitempty"`
	At        time.Time      `json:"at"`
}

// Document is the rendering context for quote and contract PDFs
type Document struct {
	QuoteID         uuid.UUID
	Title           string
	PartyName       string
	Status          string
	Term            int
	SentOn          *time.Time
	ActivatedOn     *time.Time
	ContractExpires *time.Time
	ContractName    string
	Services        []DocumentLine
	Products        []DocumentLine
	Summary         quoting.Summary
}

// DocumentLine is one rendered line item
type DocumentLine struct {
	Name      string
	SKU       string
	Qty       decimal.Decimal
	Price     decimal.Decimal
	Addons    decimal.Decimal
	Total     decimal.Decimal
	Financing string // e.g. "3 x MONTHLY"; empty when not financed
	Notes     string
}
