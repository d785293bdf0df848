package models

import (
	"time"

	"github.com/erp/quoting/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root
type InvoiceModel struct {
	TenantAggregateModel
	AccountID uuid.UUID             `gorm:"type:uuid;not null;index"`
	QuoteID   *uuid.UUID            `gorm:"type:uuid;index"`
	Number    string                `gorm:"type:varchar(50);not null;index"`
	Status    finance.InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	DueDate   time.Time             `gorm:"not null"`
	SentAt    *time.Time
	Items     []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	inv := &finance.Invoice{
		TenantAggregateRoot: m.TenantAggregateModel.ToDomain(),
		AccountID:           m.AccountID,
		QuoteID:             m.QuoteID,
		Number:              m.Number,
		Status:              m.Status,
		DueDate:             m.DueDate,
		SentAt:              m.SentAt,
		Items:               make([]finance.InvoiceItem, len(m.Items)),
	}
	for i, item := range m.Items {
		inv.Items[i] = finance.InvoiceItem{
			ID:            item.ID,
			InvoiceID:     item.InvoiceID,
			CatalogItemID: item.CatalogItemID,
			Description:   item.Description,
			Price:         item.Price,
			Qty:           item.Qty,
			CreatedAt:     item.CreatedAt,
		}
	}
	return inv
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		AccountID: inv.AccountID,
		QuoteID:   inv.QuoteID,
		Number:    inv.Number,
		Status:    inv.Status,
		DueDate:   inv.DueDate,
		SentAt:    inv.SentAt,
		Items:     make([]InvoiceItemModel, len(inv.Items)),
	}
	m.TenantAggregateModel.FromDomain(inv.TenantAggregateRoot)
	for i, item := range inv.Items {
		m.Items[i] = InvoiceItemModel{
			ID:            item.ID,
			InvoiceID:     inv.ID,
			CatalogItemID: item.CatalogItemID,
			Description:   item.Description,
			Price:         item.Price,
			Qty:           item.Qty,
			CreatedAt:     item.CreatedAt,
		}
	}
	return m
}

// InvoiceItemModel is the persistence model for an invoice line
type InvoiceItemModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	CatalogItemID uuid.UUID       `gorm:"type:uuid;not null"`
	Description   string          `gorm:"type:varchar(255);not null"`
	Price         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Qty           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:1"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// TaxLocationModel is one row of the jurisdiction tax table
type TaxLocationModel struct {
	StateCode string          `gorm:"type:varchar(10);primaryKey"`
	Rate      decimal.Decimal `gorm:"type:decimal(8,4);not null"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (TaxLocationModel) TableName() string {
	return "tax_locations"
}

// ToDomain converts the persistence model to a domain TaxLocation
func (m *TaxLocationModel) ToDomain() *finance.TaxLocation {
	return &finance.TaxLocation{StateCode: m.StateCode, Rate: m.Rate}
}
