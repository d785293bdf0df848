package quoting

import (
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateQuoteRequest represents a request to draft a quote
type CreateQuoteRequest struct {
	AccountID *uuid.UUID
	LeadID    *uuid.UUID
	CotermID  *uuid.UUID
	Term      *int
	NetTerms  *int
	ExpiresOn *time.Time
	CouponID  *uuid.UUID
	Preferred bool
}

// AddonInput is an addon on an add or update request
type AddonInput struct {
	Name  string
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// AddItemRequest represents a request to add a line item
type AddItemRequest struct {
	CatalogItemID uuid.UUID
	Price         *decimal.Decimal
	Qty           decimal.Decimal
	Frequency     *string
	Payments      *int
	Notes         string
	Meta          map[string]string
	Addons        []AddonInput
}

// UpdateItemRequest represents a request to change a line item
type UpdateItemRequest struct {
	Price          *decimal.Decimal
	Qty            *decimal.Decimal
	Frequency      *string
	Payments       *int
	ClearFinancing bool
	Notes          *string
	Meta           map[string]string
	Addons         []AddonInput
}

// ExecuteDirectRequest represents a signed execution of a quote
type ExecuteDirectRequest struct {
	AccountID  uuid.UUID
	SignerName string
	SignerIP   string
	Signature  string // base64 image, optionally as a data URL
}

// QuoteListFilter holds list query options
type QuoteListFilter struct {
	Page      int
	PageSize  int
	OrderBy   string
	OrderDir  string
	Status    string
	AccountID *uuid.UUID
	LeadID    *uuid.UUID
	Archived  *bool
}

// AddonResponse is an addon in API responses
type AddonResponse struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

// QuoteItemResponse is a line item in API responses
type QuoteItemResponse struct {
	ID            uuid.UUID         `json:"id"`
	CatalogItemID *uuid.UUID        `json:"catalog_item_id,omitempty"`
	Kind          string            `json:"kind"`
	Name          string            `json:"name,omitempty"`
	Price         decimal.Decimal   `json:"price"`
	Qty           decimal.Decimal   `json:"qty"`
	Ord           int               `json:"ord"`
	Frequency     *string           `json:"frequency,omitempty"`
	Payments      *int              `json:"payments,omitempty"`
	Financed      bool              `json:"financed"`
	Notes         string            `json:"notes,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
	AddonTotal    decimal.Decimal   `json:"addon_total"`
	Addons        []AddonResponse   `json:"addons,omitempty"`
	LineTotal     decimal.Decimal   `json:"line_total"`
}

// QuoteResponse is the full quote representation
type QuoteResponse struct {
	ID              uuid.UUID           `json:"id"`
	TenantID        uuid.UUID           `json:"tenant_id"`
	AccountID       *uuid.UUID          `json:"account_id,omitempty"`
	LeadID          *uuid.UUID          `json:"lead_id,omitempty"`
	CotermID        *uuid.UUID          `json:"coterm_id,omitempty"`
	Term            int                 `json:"term"`
	NetTerms        int                 `json:"net_terms"`
	Status          string              `json:"status"`
	Presentable     bool                `json:"presentable"`
	Archived        bool                `json:"archived"`
	Preferred       bool                `json:"preferred"`
	Active          bool                `json:"active"`
	Editable        bool                `json:"editable"`
	ActivatedOn     *time.Time          `json:"activated_on,omitempty"`
	ExpiresOn       *time.Time          `json:"expires_on,omitempty"`
	SentOn          *time.Time          `json:"sent_on,omitempty"`
	ContractExpires *time.Time          `json:"contract_expires,omitempty"`
	ContractName    string              `json:"contract_name,omitempty"`
	SignatureFileID *string             `json:"signature_file_id,omitempty"`
	CouponID        *uuid.UUID          `json:"coupon_id,omitempty"`
	Services        []QuoteItemResponse `json:"services"`
	Products        []QuoteItemResponse `json:"products"`
	Orphaned        []QuoteItemResponse `json:"orphaned,omitempty"`
	Summary         quoting.Summary     `json:"summary"`
	Version         int                 `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// QuoteListItemResponse is the condensed representation used in lists
type QuoteListItemResponse struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   *uuid.UUID `json:"account_id,omitempty"`
	LeadID      *uuid.UUID `json:"lead_id,omitempty"`
	Status      string     `json:"status"`
	Term        int        `json:"term"`
	Archived    bool       `json:"archived"`
	Preferred   bool       `json:"preferred"`
	ItemCount   int        `json:"item_count"`
	ActivatedOn *time.Time `json:"activated_on,omitempty"`
	SentOn      *time.Time `json:"sent_on,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CotermResult describes what a co-term execution changed
type CotermResult struct {
	QuoteID       uuid.UUID  `json:"quote_id"`
	SourceID      uuid.UUID  `json:"source_id"`
	AccountID     uuid.UUID  `json:"account_id"`
	RemovedItems  int64      `json:"removed_items"`
	MigratedItems int        `json:"migrated_items"`
	InvoiceID     *uuid.UUID `json:"invoice_id,omitempty"`
	Notified      bool       `json:"notified"`
}

// ToQuoteResponse converts a quote and its resolved catalog to a response
func ToQuoteResponse(q *quoting.Quote, refs catalog.Refs, summary quoting.Summary) QuoteResponse {
	resp := QuoteResponse{
		ID:              q.ID,
		TenantID:        q.TenantID,
		AccountID:       q.AccountID,
		LeadID:          q.LeadID,
		CotermID:        q.CotermID,
		Term:            q.Term,
		NetTerms:        q.NetTerms,
		Status:          q.Status.String(),
		Presentable:     q.Presentable,
		Archived:        q.Archived,
		Preferred:       q.Preferred,
		Active:          q.Active,
		Editable:        q.IsEditable(),
		ActivatedOn:     q.ActivatedOn,
		ExpiresOn:       q.ExpiresOn,
		SentOn:          q.SentOn,
		ContractExpires: q.ContractExpires,
		ContractName:    q.ContractName,
		SignatureFileID: q.SignatureFileID,
		CouponID:        q.CouponID,
		Services:        make([]QuoteItemResponse, 0),
		Products:        make([]QuoteItemResponse, 0),
		Summary:         summary,
		Version:         q.Version,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
	for _, item := range q.ServiceItems(refs) {
		resp.Services = append(resp.Services, toItemResponse(item, refs))
	}
	for _, item := range q.ProductItems(refs) {
		resp.Products = append(resp.Products, toItemResponse(item, refs))
	}
	for i := range q.Items {
		if refs.Of(q.Items[i].CatalogItemID).IsDeleted() {
			resp.Orphaned = append(resp.Orphaned, toItemResponse(&q.Items[i], refs))
		}
	}
	return resp
}

func toItemResponse(item *quoting.QuoteItem, refs catalog.Refs) QuoteItemResponse {
	ref := refs.Of(item.CatalogItemID)
	resp := QuoteItemResponse{
		ID:            item.ID,
		CatalogItemID: item.CatalogItemID,
		Kind:          ref.Kind().String(),
		Price:         item.Price,
		Qty:           item.Qty,
		Ord:           item.Ord,
		Payments:      item.Payments,
		Financed:      item.IsFinanced(),
		Notes:         item.Notes,
		Meta:          item.Meta,
		AddonTotal:    item.AddonTotal,
		LineTotal:     item.LineTotal(),
	}
	if ci, ok := ref.Item(); ok {
		resp.Name = ci.Name
	}
	if item.Frequency != nil {
		f := string(*item.Frequency)
		resp.Frequency = &f
	}
	for _, a := range item.Addons {
		resp.Addons = append(resp.Addons, AddonResponse{ID: a.ID, Name: a.Name, Price: a.Price, Qty: a.Qty})
	}
	return resp
}

// ToQuoteListItemResponse converts a quote to its list representation
func ToQuoteListItemResponse(q *quoting.Quote) QuoteListItemResponse {
	return QuoteListItemResponse{
		ID:          q.ID,
		AccountID:   q.AccountID,
		LeadID:      q.LeadID,
		Status:      q.Status.String(),
		Term:        q.Term,
		Archived:    q.Archived,
		Preferred:   q.Preferred,
		ItemCount:   len(q.Items),
		ActivatedOn: q.ActivatedOn,
		SentOn:      q.SentOn,
		CreatedAt:   q.CreatedAt,
	}
}

func toAddons(in []AddonInput) []quoting.Addon {
	if in == nil {
		return nil
	}
	out := make([]quoting.Addon, 0, len(in))
	for _, a := range in {
		out = append(out, quoting.Addon{Name: a.Name, Price: a.Price, Qty: a.Qty})
	}
	return out
}

func parseFrequency(s *string) (*catalog.Frequency, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	f, err := catalog.ParseFrequency(*s)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
